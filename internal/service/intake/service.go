// Package intake registers patients, falling back to local storage and the
// pending log whenever the remote API cannot take the write.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/wardsync/internal/domain"
	"github.com/heartmarshall/wardsync/pkg/ctxutil"
)

type connectivityStatus interface {
	Status() bool
}

type remoteClient interface {
	CreatePatient(ctx context.Context, payload json.RawMessage) (string, error)
	PatientsEndpoint() string
}

type recordStore interface {
	SaveRecord(ctx context.Context, rec domain.LocalRecord) (domain.LocalRecord, error)
}

type pendingLog interface {
	Enqueue(ctx context.Context, typ domain.OperationType, endpoint string, data json.RawMessage) (domain.PendingOperation, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// State is the lifecycle position of one submission.
type State string

const (
	StateIdle         State = "IDLE"
	StateSubmitting   State = "SUBMITTING"
	StateSucceeded    State = "SUCCEEDED"
	StateSavedOffline State = "SAVED_OFFLINE"
	StateFailed       State = "FAILED"
)

// IsTerminal reports whether no further transition can follow s.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateSavedOffline || s == StateFailed
}

// Outcome is what the user is shown for a submission. SAVED_OFFLINE is a
// success tagged Offline; only FAILED carries Err.
type Outcome struct {
	State        State
	SubmissionID uuid.UUID
	// ID is the server id on SUCCEEDED and the local id on SAVED_OFFLINE.
	ID      string
	Offline bool
	// RemoteErr is set when an online attempt failed and the write was queued.
	RemoteErr error
	Err       error
}

// Success reports whether the user should see a success message.
func (o Outcome) Success() bool {
	return o.State == StateSucceeded || o.State == StateSavedOffline
}

// Service is the submission controller.
type Service struct {
	status  connectivityStatus
	remote  remoteClient
	records recordStore
	pending pendingLog
	tx      txManager
	log     *slog.Logger
	now     func() time.Time
}

// NewService creates the intake Service.
func NewService(
	logger *slog.Logger,
	status connectivityStatus,
	remote remoteClient,
	records recordStore,
	pending pendingLog,
	tx txManager,
) *Service {
	return &Service{
		status:  status,
		remote:  remote,
		records: records,
		pending: pending,
		tx:      tx,
		log:     logger.With("service", "intake"),
		now:     time.Now,
	}
}

// Submit registers p after normalizing its text fields. An invalid payload is rejected with a
// *domain.ValidationError before the submission starts. Once started, the
// submission always ends in a terminal state, even if ctx is cancelled; a
// FAILED outcome carries its cause in Outcome.Err.
func (s *Service) Submit(ctx context.Context, p domain.Patient) (Outcome, error) {
	p = p.Normalized()
	if err := p.Validate(); err != nil {
		return Outcome{State: StateIdle}, err
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return Outcome{State: StateIdle}, fmt.Errorf("encode patient: %w", err)
	}

	submissionID := uuid.New()
	ctx = ctxutil.WithSubmissionID(ctx, submissionID)
	log := s.log.With(slog.String("submission_id", submissionID.String()))
	log.DebugContext(ctx, "submission started", slog.String("state", string(StateSubmitting)))

	if !s.status.Status() {
		out := s.saveOffline(context.WithoutCancel(ctx), p, payload)
		out.SubmissionID = submissionID
		s.logOutcome(ctx, log, out)
		return out, nil
	}

	id, err := s.remote.CreatePatient(ctx, payload)
	if err == nil {
		out := Outcome{State: StateSucceeded, SubmissionID: submissionID, ID: id}
		s.logOutcome(ctx, log, out)
		return out, nil
	}

	log.WarnContext(ctx, "remote create failed, saving offline", slog.String("error", err.Error()))
	out := s.saveOffline(context.WithoutCancel(ctx), p, payload)
	out.SubmissionID = submissionID
	out.RemoteErr = err
	s.logOutcome(ctx, log, out)
	return out, nil
}

// saveOffline stores the record and its CREATE operation atomically.
func (s *Service) saveOffline(ctx context.Context, p domain.Patient, payload json.RawMessage) Outcome {
	id := domain.NewLocalID(s.now())

	data, err := withID(payload, id)
	if err != nil {
		return Outcome{State: StateFailed, Err: err}
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.records.SaveRecord(ctx, domain.LocalRecord{
			ID:         id,
			NaturalKey: p.Identificacion,
			Payload:    data,
		}); err != nil {
			return err
		}
		if _, err := s.pending.Enqueue(ctx, domain.OperationCreate, s.remote.PatientsEndpoint(), data); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return Outcome{State: StateFailed, Err: fmt.Errorf("save offline: %w", err)}
	}

	return Outcome{State: StateSavedOffline, ID: id, Offline: true}
}

func (s *Service) logOutcome(ctx context.Context, log *slog.Logger, out Outcome) {
	attrs := []any{slog.String("state", string(out.State)), slog.String("id", out.ID)}
	switch {
	case out.Err != nil:
		level := slog.LevelError
		if errors.Is(out.Err, domain.ErrConstraintViolation) {
			level = slog.LevelWarn
		}
		log.Log(ctx, level, "submission failed", append(attrs, slog.String("error", out.Err.Error()))...)
	case out.Offline:
		log.InfoContext(ctx, "submission saved offline", attrs...)
	default:
		log.InfoContext(ctx, "submission succeeded", attrs...)
	}
}

// withID returns payload with an "id" member set to id.
func withID(payload json.RawMessage, id string) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if obj == nil {
		obj = map[string]json.RawMessage{}
	}
	idJSON, err := json.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("encode id: %w", err)
	}
	obj["id"] = idJSON

	out, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return out, nil
}
