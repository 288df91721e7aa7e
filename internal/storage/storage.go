// Package storage provides the SQLite storage layer and the closed
// catalog of read-only sales queries.
//
// It manages a bounded database/sql connection pool over the pure-Go
// SQLite driver, forward-only migrations from an embedded filesystem,
// and every query the tool layer is allowed to run. No mutation
// capability is exposed outside migrations and demo seeding.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"github.com/oraculo-ai/oraculo/internal/model"
)

// timestampLayout is the storage format of sale_date. Lexicographic order
// on this layout equals chronological order, which is what lets half-open
// interval bounds be bound as plain parameters.
const timestampLayout = "2006-01-02 15:04:05"

// DB wraps the SQLite connection pool and query settings.
type DB struct {
	sql          *sql.DB
	logger       *slog.Logger
	maxRows      int
	queryTimeout time.Duration

	// schemaGroup deduplicates concurrent schema introspections; the
	// schema never changes after migrations, so all waiters can share
	// one result.
	schemaGroup singleflight.Group
}

// Options tunes pool size and query limits. Zero values take defaults.
type Options struct {
	MaxConns     int           // default 4
	MaxRows      int           // raw-SELECT row cap, default 200
	QueryTimeout time.Duration // per-query deadline, default 5s
}

// Open opens (creating if needed) the SQLite database at path.
// Use ":memory:" for an in-memory store in tests.
func Open(ctx context.Context, path string, logger *slog.Logger, opts Options) (*DB, error) {
	if opts.MaxConns <= 0 {
		opts.MaxConns = 4
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = 200
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 5 * time.Second
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	if path == ":memory:" {
		// A second pooled connection would see a different empty database.
		pool.SetMaxOpenConns(1)
	} else {
		pool.SetMaxOpenConns(opts.MaxConns)
	}
	pool.SetMaxIdleConns(opts.MaxConns)

	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("storage: ping %s: %w", path, err)
	}

	return &DB{
		sql:          pool,
		logger:       logger,
		maxRows:      opts.MaxRows,
		queryTimeout: opts.QueryTimeout,
	}, nil
}

// Ping checks connectivity to the database.
func (db *DB) Ping(ctx context.Context) error {
	return db.sql.PingContext(ctx)
}

// Close shuts down the connection pool.
func (db *DB) Close() error {
	return db.sql.Close()
}

// MaxRows returns the raw-SELECT row cap.
func (db *DB) MaxRows() int { return db.maxRows }

// withTimeout derives the per-query context. Callers pass the returned
// cancel to defer so the timer is released on every exit path.
func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.queryTimeout)
}

// mapErr converts driver errors into the storage taxonomy. A deadline
// hit becomes ErrStorageTimeout so the tool layer can feed a recoverable
// failure back into the model loop.
func mapErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("storage: %s: %w", op, model.ErrStorageTimeout)
	}
	return fmt.Errorf("storage: %s: %w", op, err)
}
