package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/heartmarshall/wardsync/internal/domain"
)

const operationsTable = "pending_operations"

type operationRow struct {
	ID         int64  `db:"id"`
	Type       string `db:"type"`
	Endpoint   string `db:"endpoint"`
	Data       []byte `db:"data"`
	EnqueuedAt int64  `db:"enqueued_at"`
}

func (r operationRow) toDomain() domain.PendingOperation {
	return domain.PendingOperation{
		ID:        r.ID,
		Type:      domain.OperationType(r.Type),
		Endpoint:  r.Endpoint,
		Data:      json.RawMessage(r.Data),
		Timestamp: r.EnqueuedAt,
	}
}

// OperationRepo persists the pending operation log.
type OperationRepo struct {
	engine *Engine
}

// NewOperationRepo creates an operation repository on top of engine.
func NewOperationRepo(engine *Engine) *OperationRepo {
	return &OperationRepo{engine: engine}
}

// Initialize connects the underlying storage.
func (r *OperationRepo) Initialize(ctx context.Context) error {
	return r.engine.Initialize(ctx)
}

// Append stores op and returns the identity value assigned by the database.
func (r *OperationRepo) Append(ctx context.Context, op *domain.PendingOperation) (int64, error) {
	q, err := r.engine.querier(ctx)
	if err != nil {
		return 0, mapError(err, "pending_operation", "new")
	}

	query, args, err := psql.
		Insert(operationsTable).
		Columns("type", "endpoint", "data", "enqueued_at").
		Values(string(op.Type), op.Endpoint, op.Data, op.Timestamp).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build operation insert: %w", err)
	}

	var id int64
	if err := q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, mapError(err, "pending_operation", "new")
	}
	return id, nil
}

// ListAscending returns every pending operation in ascending id order.
func (r *OperationRepo) ListAscending(ctx context.Context) ([]domain.PendingOperation, error) {
	q, err := r.engine.querier(ctx)
	if err != nil {
		return nil, mapError(err, "pending_operations", "*")
	}

	query, args, err := psql.
		Select("id", "type", "endpoint", "data", "enqueued_at").
		From(operationsTable).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build operations query: %w", err)
	}

	var rows []operationRow
	if err := pgxscan.Select(ctx, q, &rows, query, args...); err != nil {
		return nil, mapError(err, "pending_operations", "*")
	}

	ops := make([]domain.PendingOperation, len(rows))
	for i, row := range rows {
		ops[i] = row.toDomain()
	}
	return ops, nil
}

// Delete removes an operation. Deleting an absent id is not an error.
func (r *OperationRepo) Delete(ctx context.Context, id int64) error {
	q, err := r.engine.querier(ctx)
	if err != nil {
		return mapError(err, "pending_operation", strconv.FormatInt(id, 10))
	}

	query, args, err := psql.
		Delete(operationsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build operation delete: %w", err)
	}

	if _, err := q.Exec(ctx, query, args...); err != nil {
		return mapError(err, "pending_operation", strconv.FormatInt(id, 10))
	}
	return nil
}

// Count returns the number of pending operations.
func (r *OperationRepo) Count(ctx context.Context) (int, error) {
	q, err := r.engine.querier(ctx)
	if err != nil {
		return 0, mapError(err, "pending_operations", "*")
	}

	query, args, err := psql.Select("COUNT(*)").From(operationsTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build operations count: %w", err)
	}

	var n int64
	if err := q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, mapError(err, "pending_operations", "*")
	}
	return int(n), nil
}

// drainLockKey is the advisory lock id shared by every agent on the database.
const drainLockKey int64 = 0x77617264_73796e63 // "wardsync"

// TryLockDrain takes the database-wide drain lock without waiting. The lock
// lives in a transaction on its own connection and is held until release;
// ok is false when another agent holds it.
func (r *OperationRepo) TryLockDrain(ctx context.Context) (release func(), ok bool, err error) {
	pool, err := r.engine.handle(ctx)
	if err != nil {
		return nil, false, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, false, mapError(err, "drain_lock", "begin")
	}

	var locked bool
	if err := tx.QueryRow(ctx, "SELECT pg_try_advisory_xact_lock($1)", drainLockKey).Scan(&locked); err != nil {
		_ = tx.Rollback(ctx)
		return nil, false, mapError(err, "drain_lock", "acquire")
	}
	if !locked {
		_ = tx.Rollback(ctx)
		return nil, false, nil
	}

	return func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}, true, nil
}
