package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/heartmarshall/wardsync/internal/domain"
)

const operationsTable = "pending_operations"

type operationRow struct {
	ID         int64  `db:"id"`
	Type       string `db:"type"`
	Endpoint   string `db:"endpoint"`
	Data       string `db:"data"`
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

// Initialize opens the underlying storage.
func (r *OperationRepo) Initialize(ctx context.Context) error {
	return r.engine.Initialize(ctx)
}

// Append stores op and returns the id assigned by the database. AUTOINCREMENT
// guarantees ids are never reused, even after the newest entry is removed.
func (r *OperationRepo) Append(ctx context.Context, op *domain.PendingOperation) (int64, error) {
	q, err := r.engine.querier(ctx)
	if err != nil {
		return 0, mapError(err, "pending_operation", "new")
	}

	query, args, err := builder.
		Insert(operationsTable).
		Columns("type", "endpoint", "data", "enqueued_at").
		Values(string(op.Type), op.Endpoint, string(op.Data), op.Timestamp).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build operation insert: %w", err)
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(err, "pending_operation", "new")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// ListAscending returns every pending operation in ascending id order.
func (r *OperationRepo) ListAscending(ctx context.Context) ([]domain.PendingOperation, error) {
	q, err := r.engine.querier(ctx)
	if err != nil {
		return nil, mapError(err, "pending_operations", "*")
	}

	query, args, err := builder.
		Select("id", "type", "endpoint", "data", "enqueued_at").
		From(operationsTable).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build operations query: %w", err)
	}

	var rows []operationRow
	if err := sqlscan.Select(ctx, q, &rows, query, args...); err != nil {
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

	query, args, err := builder.
		Delete(operationsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build operation delete: %w", err)
	}

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
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

	query, args, err := builder.Select("COUNT(*)").From(operationsTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build operations count: %w", err)
	}

	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, mapError(err, "pending_operations", "*")
	}
	return n, nil
}
