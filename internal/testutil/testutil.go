// Package testutil provides shared test infrastructure: an in-memory
// SQLite store with migrations applied and the demo dataset loaded.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/oraculo-ai/oraculo/internal/storage"
	"github.com/oraculo-ai/oraculo/migrations"
)

// NewSeededDB opens an in-memory store, runs all migrations, and loads
// the demo dataset. The store is closed when the test finishes.
func NewSeededDB(t *testing.T) *storage.DB {
	t.Helper()
	db := NewEmptyDB(t)
	if err := db.SeedDemoData(context.Background()); err != nil {
		t.Fatalf("testutil: seed demo data: %v", err)
	}
	return db
}

// NewEmptyDB opens an in-memory store with migrations applied but no data.
func NewEmptyDB(t *testing.T) *storage.DB {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, ":memory:", TestLogger(t), storage.Options{})
	if err != nil {
		t.Fatalf("testutil: open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		t.Fatalf("testutil: run migrations: %v", err)
	}
	return db
}

// TestLogger returns a logger configured for test output (warns only).
func TestLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
