// Package sqlite implements the local record, pending operation and settings
// stores on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/heartmarshall/wardsync/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MemoryPath opens a private in-memory database. Useful for tests.
const MemoryPath = ":memory:"

// Engine owns the SQLite handle. The handle is opened and migrated lazily on
// first use; concurrent first users share the same handle.
type Engine struct {
	path        string
	busyTimeout time.Duration
	log         *slog.Logger

	mu sync.Mutex
	db atomic.Pointer[sql.DB]
}

// NewEngine creates an Engine for the database file at path. Nothing is
// opened until Initialize or the first query.
func NewEngine(path string, busyTimeout time.Duration, log *slog.Logger) *Engine {
	return &Engine{
		path:        path,
		busyTimeout: busyTimeout,
		log:         log.With("storage", "sqlite"),
	}
}

// Initialize opens the database and applies migrations. It is idempotent.
// A failed attempt is not cached; the next call tries again.
func (e *Engine) Initialize(ctx context.Context) error {
	_, err := e.handle(ctx)
	return err
}

func (e *Engine) handle(ctx context.Context) (*sql.DB, error) {
	if db := e.db.Load(); db != nil {
		return db, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if db := e.db.Load(); db != nil {
		return db, nil
	}

	db, err := e.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %v", e.path, domain.ErrStorageUnavailable, err)
	}
	e.db.Store(db)

	e.log.InfoContext(ctx, "storage initialized", slog.String("path", e.path))
	return db, nil
}

func (e *Engine) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(e.path, e.busyTimeout))
	if err != nil {
		return nil, err
	}

	// One connection serialises writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func dsn(path string, busyTimeout time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	if path != MemoryPath {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	return "file:" + path + "?" + q.Encode()
}

func migrate(ctx context.Context, db *sql.DB) error {
	dir, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, dir)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable, opening it if needed.
func (e *Engine) Ping(ctx context.Context) error {
	db, err := e.handle(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close releases the handle. A later call reopens it.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	db := e.db.Swap(nil)
	if db == nil {
		return nil
	}
	return db.Close()
}

// querier returns the transaction carried by ctx, or the shared handle.
func (e *Engine) querier(ctx context.Context) (Querier, error) {
	if tx, ok := ctx.Value(txCtxKey{}).(*sql.Tx); ok {
		return tx, nil
	}
	return e.handle(ctx)
}
