package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/and161185/kesef/internal/errs"
)

// SettingRepo implements SettingRepository using SQLite.
type SettingRepo struct{ db *DB }

// NewSettingRepo constructs a settings repository.
func NewSettingRepo(db *DB) *SettingRepo { return &SettingRepo{db: db} }

// Get returns the value stored under key.
func (r *SettingRepo) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := r.db.SQL.QueryRowContext(ctx, `SELECT value FROM settings WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errs.ErrNotFound
	}
	return v, err
}

// Set inserts or replaces key.
func (r *SettingRepo) Set(ctx context.Context, key, value string) error {
	const q = `
INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`
	_, err := r.db.SQL.ExecContext(ctx, q, key, value, formatTS(time.Now()))
	return err
}

// All returns every setting.
func (r *SettingRepo) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err = rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
