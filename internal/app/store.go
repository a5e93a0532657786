// Package app holds the wiring shared by the binaries under cmd/.
package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/news_guard/internal/config"
	"github.com/Skotchmaster/news_guard/internal/migrations"
	"github.com/Skotchmaster/news_guard/internal/models"
	"github.com/Skotchmaster/news_guard/pkg/db"
)

// OpenStore connects to the configured database. When migrate is set the
// schema is brought up to date: goose for PostgreSQL, AutoMigrate for SQLite.
func OpenStore(ctx context.Context, cfg config.Config, migrate bool) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		gdb, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := gdb.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
				return nil, fmt.Errorf("sqlite automigrate: %w", err)
			}
		}
		return gdb, nil
	default:
		gdb, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if migrate {
			sqlDB, err := gdb.DB()
			if err != nil {
				return nil, err
			}
			if err := migrations.Up(ctx, sqlDB); err != nil {
				return nil, err
			}
		}
		return gdb, nil
	}
}

// Ping reports whether the store answers.
func Ping(gdb *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
