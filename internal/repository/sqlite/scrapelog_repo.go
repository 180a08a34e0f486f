package sqlite

import (
	"context"
	"database/sql"

	"github.com/and161185/kesef/internal/model"
)

// ScrapeLogRepo implements ScrapeLogRepository using SQLite.
type ScrapeLogRepo struct{ db *DB }

// NewScrapeLogRepo constructs a scrape log repository.
func NewScrapeLogRepo(db *DB) *ScrapeLogRepo { return &ScrapeLogRepo{db: db} }

// Create appends a log row.
func (r *ScrapeLogRepo) Create(ctx context.Context, l *model.ScrapeLog) error {
	const q = `
INSERT INTO scrape_logs (account_id, status, error_message, transactions_count, started_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.SQL.ExecContext(ctx, q,
		l.AccountID, string(l.Status), nullString(l.ErrorMessage), l.TransactionsCount,
		formatTS(l.StartedAt), nullTS(l.CompletedAt))
	if err != nil {
		return err
	}
	l.ID, err = res.LastInsertId()
	return err
}

// ListByAccount returns the newest logs of an account first.
func (r *ScrapeLogRepo) ListByAccount(ctx context.Context, accountID int64, limit int) ([]model.ScrapeLog, error) {
	q := `
SELECT id, account_id, status, error_message, transactions_count, started_at, completed_at
FROM scrape_logs WHERE account_id=? ORDER BY started_at DESC, id DESC`
	args := []any{accountID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.SQL.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ScrapeLog{}
	for rows.Next() {
		var (
			l         model.ScrapeLog
			msg, done sql.NullString
			started   string
		)
		if err = rows.Scan(&l.ID, &l.AccountID, &l.Status, &msg, &l.TransactionsCount, &started, &done); err != nil {
			return nil, err
		}
		l.ErrorMessage = strPtr(msg)
		if l.StartedAt, err = parseTS(started); err != nil {
			return nil, err
		}
		if l.CompletedAt, err = tsPtr(done); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
