// Package dbtest opens throwaway SQLite stores for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lunalog/lunalog/internal/database"
	"github.com/lunalog/lunalog/internal/setup/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Config returns a defaulted config pointing at a fresh SQLite file in the
// test's temporary directory.
func Config(t testing.TB) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Common.Storage.Driver = config.DriverSQLite
	cfg.Common.Storage.SQLitePath = filepath.Join(t.TempDir(), "lunalog.db")
	return cfg
}

// New opens a migrated SQLite store, optionally adjusting the config first.
// The store is closed when the test ends.
func New(t testing.TB, opts ...func(*config.Config)) database.Client {
	t.Helper()

	cfg := Config(t)
	for _, opt := range opts {
		opt(cfg)
	}

	return Open(t, cfg)
}

// Open opens and migrates the store described by cfg.
func Open(t testing.TB, cfg *config.Config) database.Client {
	t.Helper()

	client, err := database.NewConnection(context.Background(), cfg, zap.NewNop(), true)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}
