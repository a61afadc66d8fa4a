package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/heartmarshall/wardsync/internal/domain"
)

const patientsTable = "patients"

var patientColumns = []string{"id", "natural_key", "payload", "stamped_at", "synced"}

// upsertPatientSuffix keeps synced sticky: once true it never reverts.
const upsertPatientSuffix = `ON CONFLICT (id) DO UPDATE SET
	natural_key = EXCLUDED.natural_key,
	payload     = EXCLUDED.payload,
	stamped_at  = EXCLUDED.stamped_at,
	synced      = patients.synced OR EXCLUDED.synced`

type patientRow struct {
	ID         string  `db:"id"`
	NaturalKey *string `db:"natural_key"`
	Payload    []byte  `db:"payload"`
	StampedAt  int64   `db:"stamped_at"`
	Synced     bool    `db:"synced"`
}

func (r patientRow) toDomain() domain.LocalRecord {
	rec := domain.LocalRecord{
		ID:        r.ID,
		Payload:   json.RawMessage(r.Payload),
		Timestamp: r.StampedAt,
		Synced:    r.Synced,
	}
	if r.NaturalKey != nil {
		rec.NaturalKey = *r.NaturalKey
	}
	return rec
}

// RecordRepo persists local patient records.
type RecordRepo struct {
	engine *Engine
}

// NewRecordRepo creates a record repository on top of engine.
func NewRecordRepo(engine *Engine) *RecordRepo {
	return &RecordRepo{engine: engine}
}

// Initialize connects the underlying storage.
func (r *RecordRepo) Initialize(ctx context.Context) error {
	return r.engine.Initialize(ctx)
}

// Get returns a record by id, or domain.ErrNotFound.
func (r *RecordRepo) Get(ctx context.Context, id string) (*domain.LocalRecord, error) {
	return r.getBy(ctx, "id", id)
}

// GetByNaturalKey returns the record whose natural key matches, or domain.ErrNotFound.
func (r *RecordRepo) GetByNaturalKey(ctx context.Context, key string) (*domain.LocalRecord, error) {
	return r.getBy(ctx, "natural_key", key)
}

func (r *RecordRepo) getBy(ctx context.Context, column, value string) (*domain.LocalRecord, error) {
	q, err := r.engine.querier(ctx)
	if err != nil {
		return nil, mapError(err, "patient", value)
	}

	query, args, err := psql.
		Select(patientColumns...).
		From(patientsTable).
		Where(squirrel.Eq{column: value}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build patient query: %w", err)
	}

	var row patientRow
	if err := pgxscan.Get(ctx, q, &row, query, args...); err != nil {
		return nil, mapError(err, "patient", value)
	}

	rec := row.toDomain()
	return &rec, nil
}

// Upsert inserts the record or replaces the stored one with the same id.
// A natural key already held by another id yields domain.ErrConstraintViolation.
func (r *RecordRepo) Upsert(ctx context.Context, rec *domain.LocalRecord) error {
	q, err := r.engine.querier(ctx)
	if err != nil {
		return mapError(err, "patient", rec.ID)
	}

	var naturalKey *string
	if rec.NaturalKey != "" {
		naturalKey = &rec.NaturalKey
	}

	query, args, err := psql.
		Insert(patientsTable).
		Columns(patientColumns...).
		Values(rec.ID, naturalKey, rec.Payload, rec.Timestamp, rec.Synced).
		Suffix(upsertPatientSuffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("build patient upsert: %w", err)
	}

	if _, err := q.Exec(ctx, query, args...); err != nil {
		return mapError(err, "patient", rec.ID)
	}
	return nil
}

// List returns every stored record, oldest write first.
func (r *RecordRepo) List(ctx context.Context) ([]domain.LocalRecord, error) {
	q, err := r.engine.querier(ctx)
	if err != nil {
		return nil, mapError(err, "patients", "*")
	}

	query, args, err := psql.
		Select(patientColumns...).
		From(patientsTable).
		OrderBy("stamped_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build patients query: %w", err)
	}

	var rows []patientRow
	if err := pgxscan.Select(ctx, q, &rows, query, args...); err != nil {
		return nil, mapError(err, "patients", "*")
	}

	records := make([]domain.LocalRecord, len(rows))
	for i, row := range rows {
		records[i] = row.toDomain()
	}
	return records, nil
}

// DeleteSyncedBefore removes synced records stamped before cutoff (unix
// millis) and returns how many were removed. Unsynced records are kept.
func (r *RecordRepo) DeleteSyncedBefore(ctx context.Context, cutoff int64) (int, error) {
	q, err := r.engine.querier(ctx)
	if err != nil {
		return 0, mapError(err, "patients", "*")
	}

	query, args, err := psql.
		Delete(patientsTable).
		Where(squirrel.Eq{"synced": true}).
		Where(squirrel.Lt{"stamped_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build patients purge: %w", err)
	}

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, mapError(err, "patients", "*")
	}
	return int(tag.RowsAffected()), nil
}
