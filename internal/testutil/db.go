// Package testutil provides shared helpers for package tests.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/muxarr/muxarr/internal/config"
	"github.com/muxarr/muxarr/internal/database"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/stretchr/testify/require"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewDB opens a migrated in-memory SQLite database for a test.
func NewDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      ":memory:",
		LogLevel: "silent",
	}, Logger())
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// NewAccount creates and persists a provider account with one credential.
func NewAccount(t *testing.T, db *database.DB, name string) *models.Account {
	t.Helper()

	account := &models.Account{
		Name:     name,
		Server:   "http://provider.example",
		Username: name + "-user",
		Password: name + "-pass",
		Enabled:  models.BoolPtr(true),
	}
	require.NoError(t, db.Create(account).Error)

	credential := &models.Credential{
		AccountID:      account.ID,
		Username:       name + "-user",
		Password:       name + "-pass",
		MaxConnections: 1,
		Enabled:        models.BoolPtr(true),
	}
	require.NoError(t, db.Create(credential).Error)
	return account
}
