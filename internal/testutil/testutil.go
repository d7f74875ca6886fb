// Package testutil provides shared test helpers for slot providers and workspaces.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/devnotes/internal/storage"
	"github.com/starford/devnotes/internal/workspace"
)

// Logger returns a logger that discards everything below error level.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestSlots creates a temporary slot directory with a file provider.
func TestSlots(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	require.NoError(t, err)
	return dir, fs
}

// TestSQLite creates a temporary SQLite slot provider that is closed on cleanup.
func TestSQLite(t *testing.T) *storage.SQLite {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "devnotes-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestWorkspace opens a workspace over p, closed on cleanup.
func TestWorkspace(t *testing.T, p storage.Provider) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.New(p, Logger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}
