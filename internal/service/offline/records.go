package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/heartmarshall/wardsync/internal/domain"
)

// RecordStore keeps patient records on this workstation.
type RecordStore struct {
	repo recordRepo
	log  *slog.Logger
	now  clock
}

// NewRecordStore creates a RecordStore.
func NewRecordStore(logger *slog.Logger, repo recordRepo) *RecordStore {
	return &RecordStore{
		repo: repo,
		log:  logger.With("service", "records"),
		now:  time.Now,
	}
}

// Initialize opens the underlying storage. Safe to call repeatedly and
// concurrently.
func (s *RecordStore) Initialize(ctx context.Context) error {
	if err := s.repo.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize records: %w", err)
	}
	return nil
}

// SaveRecord inserts or replaces rec by id. An empty id gets a fresh local
// id, the timestamp is set to now and a previously synced record stays
// synced. It returns the record as stored.
func (s *RecordStore) SaveRecord(ctx context.Context, rec domain.LocalRecord) (domain.LocalRecord, error) {
	now := s.now()
	if rec.ID == "" {
		rec.ID = domain.NewLocalID(now)
	}
	rec.NaturalKey = strings.TrimSpace(rec.NaturalKey)
	rec.Timestamp = now.UnixMilli()
	if len(rec.Payload) == 0 {
		rec.Payload = json.RawMessage("{}")
	}

	if err := s.repo.Upsert(ctx, &rec); err != nil {
		return domain.LocalRecord{}, fmt.Errorf("save record %s: %w", rec.ID, err)
	}

	s.log.DebugContext(ctx, "record saved",
		slog.String("id", rec.ID),
		slog.Bool("synced", rec.Synced),
	)
	return rec, nil
}

// GetRecordByID returns the record with id or domain.ErrNotFound.
func (s *RecordStore) GetRecordByID(ctx context.Context, id string) (*domain.LocalRecord, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// GetRecordByNaturalKey returns the record with the given identificacion or
// domain.ErrNotFound.
func (s *RecordStore) GetRecordByNaturalKey(ctx context.Context, key string) (*domain.LocalRecord, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.NewValidationError("identificacion", "required")
	}
	rec, err := s.repo.GetByNaturalKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get record by identificacion: %w", err)
	}
	return rec, nil
}

// GetAllRecords returns a snapshot of every stored record.
func (s *RecordStore) GetAllRecords(ctx context.Context) ([]domain.LocalRecord, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recs, nil
}

// MarkSynced flags the record as confirmed by the remote API. A missing
// record is ignored.
func (s *RecordStore) MarkSynced(ctx context.Context, id string) error {
	rec, err := s.repo.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.DebugContext(ctx, "mark synced: record not found", slog.String("id", id))
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark synced %s: %w", id, err)
	}

	rec.Synced = true
	if _, err := s.SaveRecord(ctx, *rec); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// PurgeSyncedOlderThan deletes synced records last written before
// now-threshold and returns how many were removed. Unsynced records are
// never purged.
func (s *RecordStore) PurgeSyncedOlderThan(ctx context.Context, threshold time.Duration) (int, error) {
	if threshold < 0 {
		return 0, domain.NewValidationError("threshold", "must not be negative")
	}

	cutoff := s.now().Add(-threshold).UnixMilli()
	n, err := s.repo.DeleteSyncedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge synced records: %w", err)
	}

	s.log.InfoContext(ctx, "synced records purged",
		slog.Int("deleted", n),
		slog.Duration("threshold", threshold),
	)
	return n, nil
}
