package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
)

const settingsTable = "settings"

// SettingRepo is a small key/value store for agent settings such as the
// remote API bearer token.
type SettingRepo struct {
	engine *Engine
}

// NewSettingRepo creates a settings repository on top of engine.
func NewSettingRepo(engine *Engine) *SettingRepo {
	return &SettingRepo{engine: engine}
}

// GetSetting returns the value stored under key, or domain.ErrNotFound.
func (r *SettingRepo) GetSetting(ctx context.Context, key string) (string, error) {
	q, err := r.engine.querier(ctx)
	if err != nil {
		return "", mapError(err, "setting", key)
	}

	query, args, err := psql.
		Select("value").
		From(settingsTable).
		Where(squirrel.Eq{"key": key}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build setting query: %w", err)
	}

	var value string
	if err := q.QueryRow(ctx, query, args...).Scan(&value); err != nil {
		return "", mapError(err, "setting", key)
	}
	return value, nil
}

// PutSetting stores value under key, replacing any previous value.
func (r *SettingRepo) PutSetting(ctx context.Context, key, value string) error {
	q, err := r.engine.querier(ctx)
	if err != nil {
		return mapError(err, "setting", key)
	}

	query, args, err := psql.
		Insert(settingsTable).
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value").
		ToSql()
	if err != nil {
		return fmt.Errorf("build setting upsert: %w", err)
	}

	if _, err := q.Exec(ctx, query, args...); err != nil {
		return mapError(err, "setting", key)
	}
	return nil
}

// DeleteSetting removes key. Deleting an absent key is not an error.
func (r *SettingRepo) DeleteSetting(ctx context.Context, key string) error {
	q, err := r.engine.querier(ctx)
	if err != nil {
		return mapError(err, "setting", key)
	}

	query, args, err := psql.
		Delete(settingsTable).
		Where(squirrel.Eq{"key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build setting delete: %w", err)
	}

	if _, err := q.Exec(ctx, query, args...); err != nil {
		return mapError(err, "setting", key)
	}
	return nil
}
