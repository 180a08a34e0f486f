package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/repository"
)

// AccountRepo implements AccountRepository using SQLite.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

const accountCols = `id, name, institution, owner, account_number, last_scraped_at, is_active, created_at`

func scanAccount(s scanner) (model.Account, error) {
	var (
		a         model.Account
		num       sql.NullString
		scraped   sql.NullString
		createdAt string
		err       error
	)
	if err = s.Scan(&a.ID, &a.Name, &a.Institution, &a.Owner, &num, &scraped, &a.IsActive, &createdAt); err != nil {
		return a, err
	}
	a.AccountNumber = strPtr(num)
	if a.LastScrapedAt, err = tsPtr(scraped); err != nil {
		return a, err
	}
	a.CreatedAt, err = parseTS(createdAt)
	return a, err
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account, envelope string) error {
	const q = `
INSERT INTO accounts (name, institution, owner, encrypted_credentials, account_number, is_active, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.SQL.ExecContext(ctx, q,
		a.Name, string(a.Institution), string(a.Owner), envelope, nullString(a.AccountNumber), a.IsActive, formatTS(a.CreatedAt))
	if err != nil {
		return err
	}
	a.ID, err = res.LastInsertId()
	return err
}

// Get loads an account by id.
func (r *AccountRepo) Get(ctx context.Context, id int64) (*model.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts WHERE id=?`
	a, err := scanAccount(r.db.SQL.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	return r.list(ctx, `SELECT `+accountCols+` FROM accounts WHERE is_active=1 ORDER BY id`)
}

func (r *AccountRepo) list(ctx context.Context, q string) ([]model.Account, error) {
	rows, err := r.db.SQL.QueryContext(ctx, q)
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
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Institution != nil {
		add("institution", string(*u.Institution))
	}
	if u.Owner != nil {
		add("owner", string(*u.Owner))
	}
	if u.AccountNumber != nil {
		add("account_number", *u.AccountNumber)
	}
	if u.IsActive != nil {
		add("is_active", *u.IsActive)
	}
	if u.Credentials != nil {
		add("encrypted_credentials", *u.Credentials)
	}
	if len(sets) == 0 {
		_, err := r.Get(ctx, id)
		return err
	}
	args = append(args, id)
	res, err := r.db.SQL.ExecContext(ctx, `UPDATE accounts SET `+strings.Join(sets, ", ")+` WHERE id=?`, args...)
	if err != nil {
		return err
	}
	return affectedOne(res, errs.ErrNotFound)
}

// Delete removes an account with its transactions and scrape logs.
func (r *AccountRepo) Delete(ctx context.Context, id int64) (err error) {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM transactions WHERE account_id=?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM scrape_logs WHERE account_id=?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOne(res, errs.ErrNotFound)
}

// GetCredentials returns the encrypted credentials envelope.
func (r *AccountRepo) GetCredentials(ctx context.Context, id int64) (string, error) {
	var env string
	err := r.db.SQL.QueryRowContext(ctx, `SELECT encrypted_credentials FROM accounts WHERE id=?`, id).Scan(&env)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errs.ErrNotFound
	}
	return env, err
}

// SetCredentials overwrites the encrypted credentials envelope.
func (r *AccountRepo) SetCredentials(ctx context.Context, id int64, envelope string) error {
	res, err := r.db.SQL.ExecContext(ctx, `UPDATE accounts SET encrypted_credentials=? WHERE id=?`, envelope, id)
	if err != nil {
		return err
	}
	return affectedOne(res, errs.ErrNotFound)
}

// MarkScraped records a successful scrape time.
func (r *AccountRepo) MarkScraped(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.SQL.ExecContext(ctx, `UPDATE accounts SET last_scraped_at=? WHERE id=?`, formatTS(at), id)
	if err != nil {
		return err
	}
	return affectedOne(res, errs.ErrNotFound)
}

// SetAccountNumberIfEmpty stores number unless the account already has one.
func (r *AccountRepo) SetAccountNumberIfEmpty(ctx context.Context, id int64, number string) error {
	const q = `UPDATE accounts SET account_number=? WHERE id=? AND (account_number IS NULL OR account_number='')`
	_, err := r.db.SQL.ExecContext(ctx, q, number, id)
	return err
}
