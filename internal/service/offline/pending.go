package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/heartmarshall/wardsync/internal/domain"
)

// PendingLog is the FIFO of remote writes waiting to be replayed.
type PendingLog struct {
	repo operationRepo
	log  *slog.Logger
	now  clock
}

// NewPendingLog creates a PendingLog.
func NewPendingLog(logger *slog.Logger, repo operationRepo) *PendingLog {
	return &PendingLog{
		repo: repo,
		log:  logger.With("service", "pending"),
		now:  time.Now,
	}
}

// Initialize opens the underlying storage.
func (l *PendingLog) Initialize(ctx context.Context) error {
	if err := l.repo.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize pending log: %w", err)
	}
	return nil
}

// Enqueue appends an operation and returns it with its assigned id.
func (l *PendingLog) Enqueue(ctx context.Context, typ domain.OperationType, endpoint string, data json.RawMessage) (domain.PendingOperation, error) {
	var errs []domain.FieldError
	if !typ.IsValid() {
		errs = append(errs, domain.FieldError{Field: "type", Message: "must be CREATE, UPDATE or DELETE"})
	}
	if strings.TrimSpace(endpoint) == "" {
		errs = append(errs, domain.FieldError{Field: "endpoint", Message: "required"})
	}
	if len(data) > 0 && !json.Valid(data) {
		errs = append(errs, domain.FieldError{Field: "data", Message: "must be valid JSON"})
	}
	if len(errs) > 0 {
		return domain.PendingOperation{}, domain.NewValidationErrors(errs)
	}

	if len(data) == 0 {
		data = json.RawMessage("null")
	}

	op := domain.PendingOperation{
		Type:      typ,
		Endpoint:  endpoint,
		Data:      data,
		Timestamp: l.now().UnixMilli(),
	}

	id, err := l.repo.Append(ctx, &op)
	if err != nil {
		return domain.PendingOperation{}, fmt.Errorf("enqueue %s %s: %w", typ, endpoint, err)
	}
	op.ID = id

	l.log.InfoContext(ctx, "operation queued",
		slog.Int64("id", id),
		slog.String("type", typ.String()),
		slog.String("endpoint", endpoint),
	)
	return op, nil
}

// ListPending returns all queued operations in enqueue order.
func (l *PendingLog) ListPending(ctx context.Context) ([]domain.PendingOperation, error) {
	ops, err := l.repo.ListAscending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return ops, nil
}

// ClaimDrain reserves the log for one drain. ok is false when another agent
// on the same storage holds the claim; release must be called when ok is true.
func (l *PendingLog) ClaimDrain(ctx context.Context) (release func(), ok bool, err error) {
	locker, shared := l.repo.(drainLocker)
	if !shared {
		return func() {}, true, nil
	}
	release, ok, err = locker.TryLockDrain(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("claim drain: %w", err)
	}
	return release, ok, nil
}

// Remove deletes the operation with id. Removing an absent id is a no-op.
func (l *PendingLog) Remove(ctx context.Context, id int64) error {
	if err := l.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove pending %d: %w", id, err)
	}
	return nil
}

// Count returns the number of queued operations.
func (l *PendingLog) Count(ctx context.Context) (int, error) {
	n, err := l.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}
