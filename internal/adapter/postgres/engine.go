// Package postgres implements the local record, pending operation and
// settings stores on PostgreSQL, for deployments where several ward
// workstations share one database. Drains are serialised across agents with
// an advisory lock (OperationRepo.TryLockDrain).
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/pressly/goose/v3"

	"github.com/heartmarshall/wardsync/internal/config"
	"github.com/heartmarshall/wardsync/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Engine owns the connection pool. The pool is created and the schema
// migrated lazily on first use; concurrent first users share one pool.
type Engine struct {
	cfg config.StorageConfig
	log *slog.Logger

	mu   sync.RWMutex
	pool Pool
}

// NewEngine creates an Engine for cfg.DSN. Nothing is opened until
// Initialize or the first query.
func NewEngine(cfg config.StorageConfig, log *slog.Logger) *Engine {
	return &Engine{cfg: cfg, log: log.With("storage", "postgres")}
}

// NewEngineWithPool wraps an already connected and migrated pool.
func NewEngineWithPool(pool Pool, log *slog.Logger) *Engine {
	return &Engine{pool: pool, log: log.With("storage", "postgres")}
}

// Initialize connects and applies migrations. It is idempotent.
// A failed attempt is not cached; the next call tries again.
func (e *Engine) Initialize(ctx context.Context) error {
	_, err := e.handle(ctx)
	return err
}

func (e *Engine) handle(ctx context.Context) (Pool, error) {
	e.mu.RLock()
	pool := e.pool
	e.mu.RUnlock()
	if pool != nil {
		return pool, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pool != nil {
		return e.pool, nil
	}

	if err := Migrate(ctx, e.cfg.DSN); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	p, err := NewPool(ctx, e.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	e.pool = p

	e.log.InfoContext(ctx, "storage initialized")
	return p, nil
}

// Migrate applies the embedded goose migrations to the database at dsn.
func Migrate(ctx context.Context, dsn string) error {
	// goose requires *sql.DB.
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	dir, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, dir)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable, connecting if needed.
func (e *Engine) Ping(ctx context.Context) error {
	pool, err := e.handle(ctx)
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

// Close releases the pool. A later call reconnects.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pool != nil {
		e.pool.Close()
		e.pool = nil
	}
	return nil
}

func (e *Engine) querier(ctx context.Context) (Querier, error) {
	pool, err := e.handle(ctx)
	if err != nil {
		return nil, err
	}
	return QuerierFromCtx(ctx, pool), nil
}
