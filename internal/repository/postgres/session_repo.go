package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
)

// SessionRepo implements SessionRepository using PostgreSQL.
type SessionRepo struct{ db *DB }

// NewSessionRepo constructs a session repository.
func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

// Create inserts a session.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) error {
	const q = `INSERT INTO sessions (token, master_password, created_at, expires_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, s.Token, s.MasterPassword, s.CreatedAt, s.ExpiresAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Get loads a session by token.
func (r *SessionRepo) Get(ctx context.Context, token string) (*model.Session, error) {
	const q = `SELECT token, master_password, created_at, expires_at FROM sessions WHERE token=$1`
	var s model.Session
	if err := r.db.Pool.QueryRow(ctx, q, token).Scan(&s.Token, &s.MasterPassword, &s.CreatedAt, &s.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Delete removes one session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE token=$1`, token)
	return err
}

// DeleteExpired removes sessions whose expiry is not after now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at<=$1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteAll removes every session.
func (r *SessionRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions`)
	return err
}
