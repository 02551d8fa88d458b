package database

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"blogapi/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog records one applied SQL migration.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime;index"`
}

// TableName specifies the table name for GORM
func (MigrationLog) TableName() string {
	return "migration_logs"
}

// Runner applies and reverts a fixed, version-ordered set of migrations.
// Each script runs in the same transaction as its log row.
type Runner struct {
	db         *gorm.DB
	migrations []Migration
}

// NewRunner binds migrations to db.
func NewRunner(db *gorm.DB, migrations []Migration) *Runner {
	return &Runner{db: db, migrations: migrations}
}

func (r *Runner) ensureLog(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return fmt.Errorf("ensure migration log table: %w", err)
	}
	return nil
}

// Applied returns the applied versions in ascending order. A missing log table means none.
func (r *Runner) Applied(ctx context.Context) ([]int, error) {
	if !r.db.Migrator().HasTable(&MigrationLog{}) {
		return []int{}, nil
	}
	var versions []int
	if err := r.db.WithContext(ctx).Model(&MigrationLog{}).
		Order("version ASC").
		Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	return versions, nil
}

// Pending returns the migrations not yet recorded in the log.
func (r *Runner) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateAppliedVersions(applied, r.migrations); err != nil {
		return nil, err
	}
	done := make(map[int]struct{}, len(applied))
	for _, v := range applied {
		done[v] = struct{}{}
	}
	var pending []Migration
	for _, m := range r.migrations {
		if _, ok := done[m.Version]; !ok {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Up applies every pending migration in version order.
func (r *Runner) Up(ctx context.Context) error {
	if err := r.ensureLog(ctx); err != nil {
		return err
	}
	pending, err := r.Pending(ctx)
	if err != nil {
		return err
	}
	for _, m := range pending {
		middleware.Logger.Info("Applying migration", slog.Int("version", m.Version), slog.String("name", m.Name))
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.UpScript).Error; err != nil {
				return err
			}
			return tx.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.String(), err)
		}
	}
	if len(pending) == 0 {
		middleware.Logger.Debug("No pending migrations")
	}
	return nil
}

// Down reverts one applied migration.
func (r *Runner) Down(ctx context.Context, version int) error {
	var target *Migration
	for i := range r.migrations {
		if r.migrations[i].Version == version {
			target = &r.migrations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}
	idx := sort.SearchInts(applied, version)
	if idx == len(applied) || applied[idx] != version {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	middleware.Logger.Info("Rolling back migration", slog.Int("version", version), slog.String("name", target.Name))
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(target.DownScript).Error; err != nil {
			return fmt.Errorf("rollback %s: %w", target.String(), err)
		}
		return tx.Where("version = ?", version).Delete(&MigrationLog{}).Error
	})
}

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return NewRunner(db, GetMigrations()).Up(ctx)
}

// RollbackMigration reverts one embedded migration by version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return NewRunner(db, GetMigrations()).Down(ctx, version)
}

// validateAppliedVersions refuses a log that names versions this build does not know.
func validateAppliedVersions(applied []int, registered []Migration) error {
	known := make(map[int]struct{}, len(registered))
	for _, m := range registered {
		known[m.Version] = struct{}{}
	}

	var unknown []string
	for _, version := range applied {
		if _, ok := known[version]; !ok {
			unknown = append(unknown, fmt.Sprintf("%06d", version))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("migration_logs has versions unknown to this build: %s (roll them back with cmd/migrate down or rebuild the database)",
		strings.Join(unknown, ", "))
}
