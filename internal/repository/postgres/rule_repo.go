package postgres

import (
	"context"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
)

// RuleRepo implements RuleRepository using PostgreSQL.
type RuleRepo struct{ db *DB }

// NewRuleRepo constructs a category rule repository.
func NewRuleRepo(db *DB) *RuleRepo { return &RuleRepo{db: db} }

// List returns rules in evaluation order.
func (r *RuleRepo) List(ctx context.Context) ([]model.CategoryRule, error) {
	const q = `SELECT id, pattern, category, priority, created_at FROM category_rules ORDER BY priority DESC, id ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CategoryRule{}
	for rows.Next() {
		var cr model.CategoryRule
		if err = rows.Scan(&cr.ID, &cr.Pattern, &cr.Category, &cr.Priority, &cr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// Create inserts a rule.
func (r *RuleRepo) Create(ctx context.Context, cr *model.CategoryRule) error {
	const q = `INSERT INTO category_rules (pattern, category, priority) VALUES ($1, $2, $3) RETURNING id, created_at`
	return r.db.Pool.QueryRow(ctx, q, cr.Pattern, cr.Category, cr.Priority).Scan(&cr.ID, &cr.CreatedAt)
}

// Delete removes a rule.
func (r *RuleRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM category_rules WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
