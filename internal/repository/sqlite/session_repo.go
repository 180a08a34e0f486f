package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
)

// SessionRepo implements SessionRepository using SQLite.
type SessionRepo struct{ db *DB }

// NewSessionRepo constructs a session repository.
func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

// Create inserts a session.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) error {
	const q = `INSERT INTO sessions (token, master_password, created_at, expires_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.SQL.ExecContext(ctx, q, s.Token, s.MasterPassword, formatTS(s.CreatedAt), formatTS(s.ExpiresAt))
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get loads a session by token.
func (r *SessionRepo) Get(ctx context.Context, token string) (*model.Session, error) {
	const q = `SELECT token, master_password, created_at, expires_at FROM sessions WHERE token=?`
	var (
		s                  model.Session
		created, expiresAt string
		err                error
	)
	if err = r.db.SQL.QueryRowContext(ctx, q, token).Scan(&s.Token, &s.MasterPassword, &created, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	if s.CreatedAt, err = parseTS(created); err != nil {
		return nil, err
	}
	if s.ExpiresAt, err = parseTS(expiresAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete removes one session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.SQL.ExecContext(ctx, `DELETE FROM sessions WHERE token=?`, token)
	return err
}

// DeleteExpired removes sessions whose expiry is not after now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.SQL.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at<=?`, formatTS(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteAll removes every session.
func (r *SessionRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.SQL.ExecContext(ctx, `DELETE FROM sessions`)
	return err
}
