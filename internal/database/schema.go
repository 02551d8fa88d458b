package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"blogapi/internal/config"
	"blogapi/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes accepted by DB_SCHEMA_MODE.
const (
	// SchemaModeHybrid runs SQL migrations, then AutoMigrate outside prod-like environments.
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do against the current database.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// prodLike environments never run AutoMigrate implicitly.
var prodLike = map[string]bool{"production": true, "prod": true, "staging": true, "stage": true}

func normalizedSchemaMode(cfg *config.Config) string {
	if mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); mode != "" {
		return mode
	}
	return SchemaModeHybrid
}

// schemaPolicy decides which schema steps run for cfg.
func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	guarded := prodLike[strings.ToLower(strings.TrimSpace(cfg.Env))]

	switch mode := normalizedSchemaMode(cfg); mode {
	case SchemaModeHybrid:
		runSQL, runAuto = true, !guarded
	case SchemaModeSQL:
		runSQL = true
	case SchemaModeAuto:
		if guarded && !cfg.DBAutoMigrateAllowDestructive {
			err = fmt.Errorf("DB_SCHEMA_MODE=auto is refused in %q unless DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
			return
		}
		runAuto = true
	default:
		err = fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
	return
}

func runAutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the database up to date according to DB_SCHEMA_MODE. SQL migrations
// run first so AutoMigrate only ever adds to what they created.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	}
	if !runAuto {
		return nil
	}

	mode := normalizedSchemaMode(cfg)
	if cfg.DBAutoMigrateAllowDestructive && prodLike[strings.ToLower(cfg.Env)] {
		middleware.Logger.Warn("AutoMigrate enabled in a production-like environment", slog.String("env", cfg.Env))
	}
	middleware.Logger.Info("Running AutoMigrate", slog.String("mode", mode), slog.String("env", cfg.Env))
	if err := runAutoMigrate(db.WithContext(ctx)); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the schema policy and pending SQL migrations.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               normalizedSchemaMode(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
	}

	if !runSQL {
		return status, nil
	}

	runner := NewRunner(db, GetMigrations())
	if status.AppliedVersions, err = runner.Applied(ctx); err != nil {
		return nil, err
	}
	if status.PendingMigrations, err = runner.Pending(ctx); err != nil {
		return nil, err
	}

	return status, nil
}
