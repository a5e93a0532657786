// Package dbtest opens throwaway SQLite stores for package tests.
package dbtest

import (
	"testing"

	"gorm.io/gorm"

	"github.com/Skotchmaster/news_guard/internal/models"
	"github.com/Skotchmaster/news_guard/pkg/db"
)

func InitTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := gdb.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return gdb
}
