package sqlite

import (
	"context"
	"time"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
)

// RuleRepo implements RuleRepository using SQLite.
type RuleRepo struct{ db *DB }

// NewRuleRepo constructs a category rule repository.
func NewRuleRepo(db *DB) *RuleRepo { return &RuleRepo{db: db} }

// List returns rules in evaluation order.
func (r *RuleRepo) List(ctx context.Context) ([]model.CategoryRule, error) {
	const q = `SELECT id, pattern, category, priority, created_at FROM category_rules ORDER BY priority DESC, id ASC`
	rows, err := r.db.SQL.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CategoryRule{}
	for rows.Next() {
		var (
			cr model.CategoryRule
			ts string
		)
		if err = rows.Scan(&cr.ID, &cr.Pattern, &cr.Category, &cr.Priority, &ts); err != nil {
			return nil, err
		}
		if cr.CreatedAt, err = parseTS(ts); err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// Create inserts a rule.
func (r *RuleRepo) Create(ctx context.Context, cr *model.CategoryRule) error {
	const q = `INSERT INTO category_rules (pattern, category, priority, created_at) VALUES (?, ?, ?, ?)`
	cr.CreatedAt = time.Now().UTC()
	res, err := r.db.SQL.ExecContext(ctx, q, cr.Pattern, cr.Category, cr.Priority, formatTS(cr.CreatedAt))
	if err != nil {
		return err
	}
	cr.ID, err = res.LastInsertId()
	return err
}

// Delete removes a rule.
func (r *RuleRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.SQL.ExecContext(ctx, `DELETE FROM category_rules WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOne(res, errs.ErrNotFound)
}
