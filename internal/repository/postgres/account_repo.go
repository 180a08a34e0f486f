package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/repository"
)

// AccountRepo implements AccountRepository using PostgreSQL.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

const accountCols = `id, name, institution, owner, account_number, last_scraped_at, is_active, created_at`

func scanAccount(row pgx.Row) (model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Name, &a.Institution, &a.Owner, &a.AccountNumber, &a.LastScrapedAt, &a.IsActive, &a.CreatedAt)
	return a, err
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account, envelope string) error {
	const q = `
INSERT INTO accounts (name, institution, owner, encrypted_credentials, account_number, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`
	return r.db.Pool.QueryRow(ctx, q,
		a.Name, string(a.Institution), string(a.Owner), envelope, a.AccountNumber, a.IsActive,
	).Scan(&a.ID, &a.CreatedAt)
}

// Get loads an account by id.
func (r *AccountRepo) Get(ctx context.Context, id int64) (*model.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts WHERE id=$1`
	a, err := scanAccount(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// List returns all accounts.
func (r *AccountRepo) List(ctx context.Context) ([]model.Account, error) {
	return r.list(ctx, `SELECT `+accountCols+` FROM accounts ORDER BY id`)
}

// ListActive returns accounts with the active flag set.
func (r *AccountRepo) ListActive(ctx context.Context) ([]model.Account, error) {
	return r.list(ctx, `SELECT `+accountCols+` FROM accounts WHERE is_active ORDER BY id`)
}

func (r *AccountRepo) list(ctx context.Context, q string) ([]model.Account, error) {
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update applies the non-nil fields of u.
func (r *AccountRepo) Update(ctx context.Context, id int64, u repository.AccountUpdate) error {
	var (
		p    params
		sets []string
	)
	if u.Name != nil {
		sets = append(sets, "name="+p.add(*u.Name))
	}
	if u.Institution != nil {
		sets = append(sets, "institution="+p.add(string(*u.Institution)))
	}
	if u.Owner != nil {
		sets = append(sets, "owner="+p.add(string(*u.Owner)))
	}
	if u.AccountNumber != nil {
		sets = append(sets, "account_number="+p.add(*u.AccountNumber))
	}
	if u.IsActive != nil {
		sets = append(sets, "is_active="+p.add(*u.IsActive))
	}
	if u.Credentials != nil {
		sets = append(sets, "encrypted_credentials="+p.add(*u.Credentials))
	}
	if len(sets) == 0 {
		_, err := r.Get(ctx, id)
		return err
	}
	q := `UPDATE accounts SET ` + strings.Join(sets, ", ") + ` WHERE id=` + p.add(id)
	tag, err := r.db.Pool.Exec(ctx, q, p...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes an account; transactions and scrape logs follow by cascade.
func (r *AccountRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// GetCredentials returns the encrypted credentials envelope.
func (r *AccountRepo) GetCredentials(ctx context.Context, id int64) (string, error) {
	var env string
	err := r.db.Pool.QueryRow(ctx, `SELECT encrypted_credentials FROM accounts WHERE id=$1`, id).Scan(&env)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", errs.ErrNotFound
	}
	return env, err
}

// SetCredentials overwrites the encrypted credentials envelope.
func (r *AccountRepo) SetCredentials(ctx context.Context, id int64, envelope string) error {
	return r.execOne(ctx, `UPDATE accounts SET encrypted_credentials=$2 WHERE id=$1`, id, envelope)
}

// MarkScraped records a successful scrape time.
func (r *AccountRepo) MarkScraped(ctx context.Context, id int64, at time.Time) error {
	return r.execOne(ctx, `UPDATE accounts SET last_scraped_at=$2 WHERE id=$1`, id, at)
}

// SetAccountNumberIfEmpty stores number unless the account already has one.
func (r *AccountRepo) SetAccountNumberIfEmpty(ctx context.Context, id int64, number string) error {
	const q = `UPDATE accounts SET account_number=$2 WHERE id=$1 AND COALESCE(account_number, '')=''`
	_, err := r.db.Pool.Exec(ctx, q, id, number)
	return err
}

func (r *AccountRepo) execOne(ctx context.Context, q string, args ...any) error {
	tag, err := r.db.Pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
