package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/repository"
)

// TransactionRepo implements TransactionRepository using PostgreSQL.
type TransactionRepo struct{ db *DB }

// NewTransactionRepo constructs a transaction repository.
func NewTransactionRepo(db *DB) *TransactionRepo { return &TransactionRepo{db: db} }

// Insert stores t unless its natural key already exists.
func (r *TransactionRepo) Insert(ctx context.Context, t *model.Transaction) (bool, error) {
	const q = `
INSERT INTO transactions (
    account_id, identifier, date, processed_date, original_amount, original_currency,
    charged_amount, description, memo, category, type, installment_number, installment_total,
    status, scraped_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (account_id, date, charged_amount, description) DO NOTHING
RETURNING id, created_at`
	err := r.db.Pool.QueryRow(ctx, q,
		t.AccountID, t.Identifier, t.Date, t.ProcessedDate, t.OriginalAmount, t.OriginalCurrency,
		t.ChargedAmount, t.Description, t.Memo, t.Category, string(t.Type), t.InstallmentNumber, t.InstallmentTotal,
		string(t.Status), t.ScrapedAt,
	).Scan(&t.ID, &t.CreatedAt)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	default:
		return false, err
	}
}

func where(f model.TransactionFilter, p *params) string {
	var conds []string
	if f.AccountID != nil {
		conds = append(conds, "t.account_id="+p.add(*f.AccountID))
	}
	if f.Owner != nil {
		conds = append(conds, "a.owner="+p.add(string(*f.Owner)))
	}
	if f.Category != nil {
		conds = append(conds, "t.category="+p.add(*f.Category))
	}
	if f.Status != nil {
		conds = append(conds, "t.status="+p.add(string(*f.Status)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		conds = append(conds, "t.description ILIKE "+p.add(repository.ContainsPattern(s))+" ESCAPE '"+repository.LikeEscape+"'")
	}
	if f.StartDate != nil {
		conds = append(conds, "t.date>="+p.add(*f.StartDate))
	}
	if f.EndDate != nil {
		conds = append(conds, "t.date<="+p.add(*f.EndDate))
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func orderBy(s model.TransactionSort) string {
	switch s {
	case model.SortDateAsc:
		return " ORDER BY t.date ASC, t.id ASC"
	case model.SortAmountDesc:
		return " ORDER BY t.charged_amount DESC, t.id DESC"
	case model.SortAmountAsc:
		return " ORDER BY t.charged_amount ASC, t.id ASC"
	default:
		return " ORDER BY t.date DESC, t.id DESC"
	}
}

const selectView = `
SELECT t.id, t.account_id, t.identifier, t.date, t.processed_date, t.original_amount, t.original_currency,
       t.charged_amount, t.description, t.memo, t.category, t.type, t.installment_number, t.installment_total,
       t.status, t.scraped_at, t.created_at, a.name, a.owner
FROM transactions t JOIN accounts a ON a.id = t.account_id`

// List returns matching transactions joined with their account.
func (r *TransactionRepo) List(ctx context.Context, f model.TransactionFilter) ([]model.TransactionView, error) {
	var p params
	q := selectView + where(f, &p) + orderBy(f.Sort)
	if f.Limit > 0 {
		q += " LIMIT " + p.add(f.Limit) + " OFFSET " + p.add(f.Offset)
	}

	rows, err := r.db.Pool.Query(ctx, q, p...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.TransactionView{}
	for rows.Next() {
		var v model.TransactionView
		if err = rows.Scan(&v.ID, &v.AccountID, &v.Identifier, &v.Date, &v.ProcessedDate, &v.OriginalAmount,
			&v.OriginalCurrency, &v.ChargedAmount, &v.Description, &v.Memo, &v.Category, &v.Type,
			&v.InstallmentNumber, &v.InstallmentTotal, &v.Status, &v.ScrapedAt, &v.CreatedAt,
			&v.AccountName, &v.AccountOwner); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Count returns the number of matching transactions.
func (r *TransactionRepo) Count(ctx context.Context, f model.TransactionFilter) (int, error) {
	var p params
	q := `SELECT COUNT(*) FROM transactions t JOIN accounts a ON a.id = t.account_id` + where(f, &p)
	var n int
	err := r.db.Pool.QueryRow(ctx, q, p...).Scan(&n)
	return n, err
}

// UpdateCategory sets the category of one transaction.
func (r *TransactionRepo) UpdateCategory(ctx context.Context, id int64, category string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE transactions SET category=$2 WHERE id=$1`, id, category)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
