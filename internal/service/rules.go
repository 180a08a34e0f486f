package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/kesef/internal/categorize"
	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/repository"
	"go.uber.org/zap"
)

// RuleService manages custom category rules.
type RuleService interface {
	List(ctx context.Context) ([]model.CategoryRule, error)
	Create(ctx context.Context, pattern, category string, priority int) (*model.CategoryRule, error)
	Delete(ctx context.Context, id int64) error
	// Recategorize re-applies the current rules to every stored transaction
	// and returns how many changed category.
	Recategorize(ctx context.Context) (int, error)
	// Categories returns the built-in category table.
	Categories() []categorize.Category
}

type RuleServiceImpl struct {
	rules repository.RuleRepository
	txns  repository.TransactionRepository
	log   *zap.Logger
}

// NewRuleService constructs RuleService.
func NewRuleService(rules repository.RuleRepository, txns repository.TransactionRepository, logger *zap.Logger) *RuleServiceImpl {
	return &RuleServiceImpl{rules: rules, txns: txns, log: logger.Named("rules")}
}

// List returns rules in evaluation order.
func (s *RuleServiceImpl) List(ctx context.Context) ([]model.CategoryRule, error) {
	return s.rules.List(ctx)
}

// Create stores a rule. Patterns that are not valid regular expressions are
// accepted and later matched as plain text.
func (s *RuleServiceImpl) Create(ctx context.Context, pattern, category string, priority int) (*model.CategoryRule, error) {
	pattern = strings.TrimSpace(pattern)
	category = strings.TrimSpace(category)
	if pattern == "" || category == "" {
		return nil, fmt.Errorf("%w: pattern and category are required", errs.ErrValidation)
	}
	r := &model.CategoryRule{Pattern: pattern, Category: category, Priority: priority}
	if err := s.rules.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes a rule or returns errs.ErrNotFound.
func (s *RuleServiceImpl) Delete(ctx context.Context, id int64) error {
	return s.rules.Delete(ctx, id)
}

// Recategorize walks all transactions once with a single compiled rule set.
func (s *RuleServiceImpl) Recategorize(ctx context.Context) (int, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return 0, err
	}
	rs := categorize.Compile(rules)

	rows, err := s.txns.List(ctx, model.TransactionFilter{Sort: model.SortDateAsc})
	if err != nil {
		return 0, err
	}
	changed := 0
	for i := range rows {
		cat := rs.Categorize(rows[i].Description)
		if rows[i].Category != nil && *rows[i].Category == cat {
			continue
		}
		if err := s.txns.UpdateCategory(ctx, rows[i].ID, cat); err != nil {
			return changed, err
		}
		changed++
	}
	s.log.Info("recategorized", zap.Int("scanned", len(rows)), zap.Int("changed", changed))
	return changed, nil
}

// Categories returns the built-in table.
func (s *RuleServiceImpl) Categories() []categorize.Category {
	return categorize.Builtin
}
