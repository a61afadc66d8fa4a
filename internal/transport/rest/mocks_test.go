package rest

import (
	"context"

	"github.com/heartmarshall/wardsync/internal/auth"
	"github.com/heartmarshall/wardsync/internal/connectivity"
	"github.com/heartmarshall/wardsync/internal/domain"
	"github.com/heartmarshall/wardsync/internal/service/intake"
	"github.com/heartmarshall/wardsync/internal/service/syncer"
)

// ---------------------------------------------------------------------------
// Manual mocks (moq-style with func fields)
// ---------------------------------------------------------------------------

type intakeServiceMock struct {
	SubmitFunc func(ctx context.Context, p domain.Patient) (intake.Outcome, error)
}

func (m *intakeServiceMock) Submit(ctx context.Context, p domain.Patient) (intake.Outcome, error) {
	return m.SubmitFunc(ctx, p)
}

type recordReaderMock struct {
	GetRecordByIDFunc         func(ctx context.Context, id string) (*domain.LocalRecord, error)
	GetRecordByNaturalKeyFunc func(ctx context.Context, key string) (*domain.LocalRecord, error)
	GetAllRecordsFunc         func(ctx context.Context) ([]domain.LocalRecord, error)
}

func (m *recordReaderMock) GetRecordByID(ctx context.Context, id string) (*domain.LocalRecord, error) {
	return m.GetRecordByIDFunc(ctx, id)
}

func (m *recordReaderMock) GetRecordByNaturalKey(ctx context.Context, key string) (*domain.LocalRecord, error) {
	return m.GetRecordByNaturalKeyFunc(ctx, key)
}

func (m *recordReaderMock) GetAllRecords(ctx context.Context) ([]domain.LocalRecord, error) {
	return m.GetAllRecordsFunc(ctx)
}

type pendingReaderMock struct {
	ListPendingFunc func(ctx context.Context) ([]domain.PendingOperation, error)
	CountFunc       func(ctx context.Context) (int, error)
}

func (m *pendingReaderMock) ListPending(ctx context.Context) ([]domain.PendingOperation, error) {
	return m.ListPendingFunc(ctx)
}

func (m *pendingReaderMock) Count(ctx context.Context) (int, error) {
	return m.CountFunc(ctx)
}

type drainerMock struct {
	DrainPendingFunc func(ctx context.Context) (syncer.Result, error)
}

func (m *drainerMock) DrainPending(ctx context.Context) (syncer.Result, error) {
	return m.DrainPendingFunc(ctx)
}

type noticeBoardMock struct {
	notice connectivity.Notice
	shown  bool
}

func (m *noticeBoardMock) Current() (connectivity.Notice, bool) { return m.notice, m.shown }

type tokenStoreMock struct {
	SetTokenFunc func(ctx context.Context, token string) (auth.TokenInfo, error)
	ClearFunc    func(ctx context.Context) error
	InfoFunc     func(ctx context.Context) (auth.TokenInfo, error)
}

func (m *tokenStoreMock) SetToken(ctx context.Context, token string) (auth.TokenInfo, error) {
	return m.SetTokenFunc(ctx, token)
}

func (m *tokenStoreMock) Clear(ctx context.Context) error {
	return m.ClearFunc(ctx)
}

func (m *tokenStoreMock) Info(ctx context.Context) (auth.TokenInfo, error) {
	return m.InfoFunc(ctx)
}
