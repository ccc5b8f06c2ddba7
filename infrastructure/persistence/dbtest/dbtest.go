// Package dbtest opens throwaway migrated databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/devscore/integrity/infrastructure/config"
	"github.com/devscore/integrity/infrastructure/persistence/database"
	"github.com/devscore/integrity/infrastructure/persistence/migration"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// New opens a migrated SQLite database under t.TempDir and closes it when
// the test ends.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Driver: config.DriverSqlite,
		Sqlite: config.SqliteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := migration.Up1(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
