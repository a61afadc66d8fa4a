package offline

import (
	"context"
	"sync"

	"github.com/heartmarshall/wardsync/internal/domain"
)

// ---------------------------------------------------------------------------
// Manual mocks (moq-style with func fields)
// ---------------------------------------------------------------------------

type recordRepoMock struct {
	InitializeFunc         func(ctx context.Context) error
	GetFunc                func(ctx context.Context, id string) (*domain.LocalRecord, error)
	GetByNaturalKeyFunc    func(ctx context.Context, key string) (*domain.LocalRecord, error)
	UpsertFunc             func(ctx context.Context, rec *domain.LocalRecord) error
	ListFunc               func(ctx context.Context) ([]domain.LocalRecord, error)
	DeleteSyncedBeforeFunc func(ctx context.Context, cutoff int64) (int, error)

	mu          sync.Mutex
	upsertCalls []domain.LocalRecord
	cutoffs     []int64
}

func (m *recordRepoMock) Initialize(ctx context.Context) error {
	return m.InitializeFunc(ctx)
}

func (m *recordRepoMock) Get(ctx context.Context, id string) (*domain.LocalRecord, error) {
	return m.GetFunc(ctx, id)
}

func (m *recordRepoMock) GetByNaturalKey(ctx context.Context, key string) (*domain.LocalRecord, error) {
	return m.GetByNaturalKeyFunc(ctx, key)
}

func (m *recordRepoMock) Upsert(ctx context.Context, rec *domain.LocalRecord) error {
	m.mu.Lock()
	m.upsertCalls = append(m.upsertCalls, *rec)
	m.mu.Unlock()
	if m.UpsertFunc == nil {
		return nil
	}
	return m.UpsertFunc(ctx, rec)
}

func (m *recordRepoMock) UpsertCalls() []domain.LocalRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.LocalRecord(nil), m.upsertCalls...)
}

func (m *recordRepoMock) List(ctx context.Context) ([]domain.LocalRecord, error) {
	return m.ListFunc(ctx)
}

func (m *recordRepoMock) DeleteSyncedBefore(ctx context.Context, cutoff int64) (int, error) {
	m.mu.Lock()
	m.cutoffs = append(m.cutoffs, cutoff)
	m.mu.Unlock()
	return m.DeleteSyncedBeforeFunc(ctx, cutoff)
}

type operationRepoMock struct {
	InitializeFunc    func(ctx context.Context) error
	AppendFunc        func(ctx context.Context, op *domain.PendingOperation) (int64, error)
	ListAscendingFunc func(ctx context.Context) ([]domain.PendingOperation, error)
	DeleteFunc        func(ctx context.Context, id int64) error
	CountFunc         func(ctx context.Context) (int, error)

	mu          sync.Mutex
	appendCalls int
}

func (m *operationRepoMock) Initialize(ctx context.Context) error {
	return m.InitializeFunc(ctx)
}

func (m *operationRepoMock) Append(ctx context.Context, op *domain.PendingOperation) (int64, error) {
	m.mu.Lock()
	m.appendCalls++
	m.mu.Unlock()
	return m.AppendFunc(ctx, op)
}

func (m *operationRepoMock) AppendCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendCalls
}

func (m *operationRepoMock) ListAscending(ctx context.Context) ([]domain.PendingOperation, error) {
	return m.ListAscendingFunc(ctx)
}

func (m *operationRepoMock) Delete(ctx context.Context, id int64) error {
	return m.DeleteFunc(ctx, id)
}

func (m *operationRepoMock) Count(ctx context.Context) (int, error) {
	return m.CountFunc(ctx)
}

// lockingOperationRepoMock is an operationRepoMock whose storage is shared.
type lockingOperationRepoMock struct {
	operationRepoMock

	TryLockDrainFunc func(ctx context.Context) (func(), bool, error)
}

func (m *lockingOperationRepoMock) TryLockDrain(ctx context.Context) (func(), bool, error) {
	return m.TryLockDrainFunc(ctx)
}
