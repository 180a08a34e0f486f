package service

import (
	"context"
	"fmt"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/repository"
)

// TransactionService lists transactions page by page.
type TransactionService interface {
	List(ctx context.Context, f model.TransactionFilter, page int) (model.TransactionPage, error)
}

type TransactionServiceImpl struct {
	txns repository.TransactionRepository
}

// NewTransactionService constructs TransactionService.
func NewTransactionService(txns repository.TransactionRepository) *TransactionServiceImpl {
	return &TransactionServiceImpl{txns: txns}
}

// List clamps paging, then returns the page with totals.
func (s *TransactionServiceImpl) List(ctx context.Context, f model.TransactionFilter, page int) (model.TransactionPage, error) {
	if f.Sort == "" {
		f.Sort = model.SortDateDesc
	}
	if !f.Sort.Valid() {
		return model.TransactionPage{}, fmt.Errorf("%w: unknown sort %q", errs.ErrValidation, string(f.Sort))
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return model.TransactionPage{}, fmt.Errorf("%w: endDate is before startDate", errs.ErrValidation)
	}
	switch {
	case f.Limit <= 0:
		f.Limit = model.DefaultPageLimit
	case f.Limit > model.MaxPageLimit:
		f.Limit = model.MaxPageLimit
	}
	if page < 1 {
		page = 1
	}
	f.Offset = (page - 1) * f.Limit

	total, err := s.txns.Count(ctx, f)
	if err != nil {
		return model.TransactionPage{}, err
	}
	items, err := s.txns.List(ctx, f)
	if err != nil {
		return model.TransactionPage{}, err
	}
	return model.TransactionPage{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: (total + f.Limit - 1) / f.Limit,
	}, nil
}
