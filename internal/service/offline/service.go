// Package offline holds the durable offline state: local patient records and
// the log of remote writes that still have to be replayed.
package offline

import (
	"context"
	"time"

	"github.com/heartmarshall/wardsync/internal/domain"
)

type recordRepo interface {
	Initialize(ctx context.Context) error
	Get(ctx context.Context, id string) (*domain.LocalRecord, error)
	GetByNaturalKey(ctx context.Context, key string) (*domain.LocalRecord, error)
	Upsert(ctx context.Context, rec *domain.LocalRecord) error
	List(ctx context.Context) ([]domain.LocalRecord, error)
	DeleteSyncedBefore(ctx context.Context, cutoff int64) (int, error)
}

type operationRepo interface {
	Initialize(ctx context.Context) error
	Append(ctx context.Context, op *domain.PendingOperation) (int64, error)
	ListAscending(ctx context.Context) ([]domain.PendingOperation, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// drainLocker is implemented by operation repos whose storage can be shared
// by several agents. An embedded database is owned by one agent and needs no lock.
type drainLocker interface {
	TryLockDrain(ctx context.Context) (release func(), ok bool, err error)
}

type clock func() time.Time
