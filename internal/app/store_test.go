package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/news_guard/internal/config"
	"github.com/Skotchmaster/news_guard/internal/models"
)

func TestOpenStore_SQLiteMigrates(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{DBDriver: config.DriverSQLite, SQLitePath: ":memory:"}

	gdb, err := OpenStore(ctx, cfg, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(gdb) })

	assert.True(t, gdb.Migrator().HasTable(&models.User{}))
	assert.True(t, gdb.Migrator().HasTable("news_history"))
	assert.True(t, gdb.Migrator().HasTable("generated_news"))
	assert.NoError(t, Ping(gdb)(ctx))
}

func TestOpenStore_PostgresNeedsDSN(t *testing.T) {
	_, err := OpenStore(context.Background(), config.Config{DBDriver: config.DriverPostgres}, false)
	assert.Error(t, err)
}
