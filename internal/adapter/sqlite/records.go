package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/heartmarshall/wardsync/internal/domain"
)

const patientsTable = "patients"

var patientColumns = []string{"id", "natural_key", "payload", "stamped_at", "synced"}

// upsertPatientSuffix keeps synced sticky: once true it never reverts.
const upsertPatientSuffix = `ON CONFLICT (id) DO UPDATE SET
	natural_key = excluded.natural_key,
	payload     = excluded.payload,
	stamped_at  = excluded.stamped_at,
	synced      = (patients.synced OR excluded.synced)`

type patientRow struct {
	ID         string         `db:"id"`
	NaturalKey sql.NullString `db:"natural_key"`
	Payload    string         `db:"payload"`
	StampedAt  int64          `db:"stamped_at"`
	Synced     bool           `db:"synced"`
}

func (r patientRow) toDomain() domain.LocalRecord {
	return domain.LocalRecord{
		ID:         r.ID,
		NaturalKey: r.NaturalKey.String,
		Payload:    json.RawMessage(r.Payload),
		Timestamp:  r.StampedAt,
		Synced:     r.Synced,
	}
}

// RecordRepo persists local patient records.
type RecordRepo struct {
	engine *Engine
}

// NewRecordRepo creates a record repository on top of engine.
func NewRecordRepo(engine *Engine) *RecordRepo {
	return &RecordRepo{engine: engine}
}

// Initialize opens the underlying storage.
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

	query, args, err := builder.
		Select(patientColumns...).
		From(patientsTable).
		Where(squirrel.Eq{column: value}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build patient query: %w", err)
	}

	var row patientRow
	if err := sqlscan.Get(ctx, q, &row, query, args...); err != nil {
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

	query, args, err := builder.
		Insert(patientsTable).
		Columns(patientColumns...).
		Values(rec.ID, nullString(rec.NaturalKey), string(rec.Payload), rec.Timestamp, rec.Synced).
		Suffix(upsertPatientSuffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("build patient upsert: %w", err)
	}

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
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

	query, args, err := builder.
		Select(patientColumns...).
		From(patientsTable).
		OrderBy("stamped_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build patients query: %w", err)
	}

	var rows []patientRow
	if err := sqlscan.Select(ctx, q, &rows, query, args...); err != nil {
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

	query, args, err := builder.
		Delete(patientsTable).
		Where(squirrel.Eq{"synced": true}).
		Where(squirrel.Lt{"stamped_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build patients purge: %w", err)
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(err, "patients", "*")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// nullString stores an empty natural key as NULL so that records without one
// never collide on the unique index.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
