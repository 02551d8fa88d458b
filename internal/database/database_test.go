package database

import (
	"context"
	"testing"

	"blogapi/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestConfigurePool_Defaults(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, configurePool(db, &config.Config{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
}

func TestDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "blog"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=blog sslmode=disable", DSN(cfg))

	cfg.DBSSLMode = "require"
	assert.Contains(t, DSN(cfg), "sslmode=require")
}

func TestIsPostgres(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	assert.False(t, IsPostgres(db))
	assert.False(t, IsPostgres(nil))
}

func TestEmbeddedMigrations(t *testing.T) {
	ms := GetMigrations()
	require.Len(t, ms, 3)
	for i, m := range ms {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpScript)
		assert.NotEmpty(t, m.DownScript)
	}
	assert.Equal(t, "000002_post_search", ms[1].String())
	assert.Contains(t, ms[1].UpScript, "pg_trgm")
	assert.Contains(t, ms[2].UpScript, "LOWER(name)")

	assert.Nil(t, GetMigrationByVersion(99))
	require.NotNil(t, GetMigrationByVersion(1))
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{"hybrid dev", config.Config{Env: "development"}, true, true, false},
		{"hybrid prod", config.Config{Env: "production", DBSchemaMode: "hybrid"}, true, false, false},
		{"sql", config.Config{Env: "development", DBSchemaMode: "SQL"}, true, false, false},
		{"auto dev", config.Config{Env: "development", DBSchemaMode: "auto"}, false, true, false},
		{"auto prod refused", config.Config{Env: "production", DBSchemaMode: "auto"}, false, false, true},
		{"auto prod allowed", config.Config{Env: "production", DBSchemaMode: "auto", DBAutoMigrateAllowDestructive: true}, false, true, false},
		{"unknown", config.Config{DBSchemaMode: "yolo"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAuto, runAuto)
		})
	}
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))

	err := validateAppliedVersions([]int{1, 7}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")
}

func TestAutoMigrateOnSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, runAutoMigrate(db))

	for _, table := range []string{"users", "verification_codes", "password_reset_codes", "user_followings", "tags", "posts", "post_tags", "post_reactions", "post_bookmarks"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

// singleConnDB keeps every statement on one in-memory database.
func singleConnDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func testMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "widgets", UpScript: "CREATE TABLE widgets (id INTEGER PRIMARY KEY)", DownScript: "DROP TABLE widgets"},
		{Version: 2, Name: "gadgets", UpScript: "CREATE TABLE gadgets (id INTEGER PRIMARY KEY)", DownScript: "DROP TABLE gadgets"},
	}
}

func TestRunner_UpAndDown(t *testing.T) {
	db := singleConnDB(t)
	ctx := context.Background()
	runner := NewRunner(db, testMigrations())

	applied, err := runner.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	require.NoError(t, runner.Up(ctx))
	assert.True(t, db.Migrator().HasTable("widgets"))
	assert.True(t, db.Migrator().HasTable("gadgets"))

	// A second run is a no-op.
	require.NoError(t, runner.Up(ctx))
	applied, err = runner.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)

	require.NoError(t, runner.Down(ctx, 2))
	assert.False(t, db.Migrator().HasTable("gadgets"))
	pending, err := runner.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)

	assert.Error(t, runner.Down(ctx, 2))
	assert.Error(t, runner.Down(ctx, 9))
}

func TestRunner_FailedScriptIsNotLogged(t *testing.T) {
	db := singleConnDB(t)
	ctx := context.Background()

	broken := append(testMigrations()[:1], Migration{Version: 2, Name: "broken", UpScript: "CREATE TABLE nope (", DownScript: ""})
	runner := NewRunner(db, broken)
	require.Error(t, runner.Up(ctx))

	applied, err := runner.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)
}
