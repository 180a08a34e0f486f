package postgres

import (
	"context"

	"github.com/and161185/kesef/internal/model"
)

// ScrapeLogRepo implements ScrapeLogRepository using PostgreSQL.
type ScrapeLogRepo struct{ db *DB }

// NewScrapeLogRepo constructs a scrape log repository.
func NewScrapeLogRepo(db *DB) *ScrapeLogRepo { return &ScrapeLogRepo{db: db} }

// Create appends a log row.
func (r *ScrapeLogRepo) Create(ctx context.Context, l *model.ScrapeLog) error {
	const q = `
INSERT INTO scrape_logs (account_id, status, error_message, transactions_count, started_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	return r.db.Pool.QueryRow(ctx, q,
		l.AccountID, string(l.Status), l.ErrorMessage, l.TransactionsCount, l.StartedAt, l.CompletedAt,
	).Scan(&l.ID)
}

// ListByAccount returns the newest logs of an account first.
func (r *ScrapeLogRepo) ListByAccount(ctx context.Context, accountID int64, limit int) ([]model.ScrapeLog, error) {
	q := `
SELECT id, account_id, status, error_message, transactions_count, started_at, completed_at
FROM scrape_logs WHERE account_id=$1 ORDER BY started_at DESC, id DESC`
	args := []any{accountID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ScrapeLog{}
	for rows.Next() {
		var l model.ScrapeLog
		if err = rows.Scan(&l.ID, &l.AccountID, &l.Status, &l.ErrorMessage, &l.TransactionsCount, &l.StartedAt, &l.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
