package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/repository"
)

// TransactionRepo implements TransactionRepository using SQLite.
type TransactionRepo struct{ db *DB }

// NewTransactionRepo constructs a transaction repository.
func NewTransactionRepo(db *DB) *TransactionRepo { return &TransactionRepo{db: db} }

// Insert stores t unless its natural key already exists.
func (r *TransactionRepo) Insert(ctx context.Context, t *model.Transaction) (bool, error) {
	const q = `
INSERT INTO transactions (
    account_id, identifier, date, processed_date, original_amount, original_currency,
    charged_amount, description, memo, category, type, installment_number, installment_total,
    status, scraped_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (account_id, date, charged_amount, description) DO NOTHING`
	now := time.Now().UTC()
	res, err := r.db.SQL.ExecContext(ctx, q,
		t.AccountID, nullString(t.Identifier), formatDate(t.Date), nullDate(t.ProcessedDate),
		t.OriginalAmount, t.OriginalCurrency, t.ChargedAmount, t.Description, nullString(t.Memo),
		nullString(t.Category), string(t.Type), nullInt(t.InstallmentNumber), nullInt(t.InstallmentTotal),
		string(t.Status), formatTS(t.ScrapedAt), formatTS(now))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return false, err
	}
	t.CreatedAt = now
	return true, nil
}

func where(f model.TransactionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.AccountID != nil {
		conds = append(conds, "t.account_id=?")
		args = append(args, *f.AccountID)
	}
	if f.Owner != nil {
		conds = append(conds, "a.owner=?")
		args = append(args, string(*f.Owner))
	}
	if f.Category != nil {
		conds = append(conds, "t.category=?")
		args = append(args, *f.Category)
	}
	if f.Status != nil {
		conds = append(conds, "t.status=?")
		args = append(args, string(*f.Status))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		conds = append(conds, "t.description LIKE ? ESCAPE '"+repository.LikeEscape+"'")
		args = append(args, repository.ContainsPattern(s))
	}
	if f.StartDate != nil {
		conds = append(conds, "t.date>=?")
		args = append(args, formatDate(*f.StartDate))
	}
	if f.EndDate != nil {
		conds = append(conds, "t.date<=?")
		args = append(args, formatDate(*f.EndDate))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
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

// List returns matching transactions joined with their account.
func (r *TransactionRepo) List(ctx context.Context, f model.TransactionFilter) ([]model.TransactionView, error) {
	const sel = `
SELECT t.id, t.account_id, t.identifier, t.date, t.processed_date, t.original_amount, t.original_currency,
       t.charged_amount, t.description, t.memo, t.category, t.type, t.installment_number, t.installment_total,
       t.status, t.scraped_at, t.created_at, a.name, a.owner
FROM transactions t JOIN accounts a ON a.id = t.account_id`
	w, args := where(f)
	q := sel + w + orderBy(f.Sort)
	if f.Limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.SQL.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.TransactionView{}
	for rows.Next() {
		var (
			v                                   model.TransactionView
			ident, memo, cat                    sql.NullString
			date, processed, scraped, createdAt sql.NullString
			instNum, instTotal                  sql.NullInt64
		)
		if err = rows.Scan(&v.ID, &v.AccountID, &ident, &date, &processed, &v.OriginalAmount, &v.OriginalCurrency,
			&v.ChargedAmount, &v.Description, &memo, &cat, &v.Type, &instNum, &instTotal,
			&v.Status, &scraped, &createdAt, &v.AccountName, &v.AccountOwner); err != nil {
			return nil, err
		}
		v.Identifier, v.Memo, v.Category = strPtr(ident), strPtr(memo), strPtr(cat)
		v.InstallmentNumber, v.InstallmentTotal = intPtr(instNum), intPtr(instTotal)
		if v.Date, err = parseDate(date.String); err != nil {
			return nil, err
		}
		if v.ProcessedDate, err = datePtr(processed); err != nil {
			return nil, err
		}
		if v.ScrapedAt, err = parseTS(scraped.String); err != nil {
			return nil, err
		}
		if v.CreatedAt, err = parseTS(createdAt.String); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Count returns the number of matching transactions.
func (r *TransactionRepo) Count(ctx context.Context, f model.TransactionFilter) (int, error) {
	w, args := where(f)
	q := `SELECT COUNT(*) FROM transactions t JOIN accounts a ON a.id = t.account_id` + w
	var n int
	err := r.db.SQL.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

// UpdateCategory sets the category of one transaction.
func (r *TransactionRepo) UpdateCategory(ctx context.Context, id int64, category string) error {
	res, err := r.db.SQL.ExecContext(ctx, `UPDATE transactions SET category=? WHERE id=?`, category, id)
	if err != nil {
		return err
	}
	return affectedOne(res, errs.ErrNotFound)
}
