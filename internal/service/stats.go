package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/and161185/kesef/internal/categorize"
	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/repository"
)

// Period selects the aggregation window of the dashboard.
type Period string

// Periods. Weeks start on Sunday.
const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// OwnerAll disables the owner filter.
const OwnerAll = "all"

const (
	dailyWindowDays = 30
	recentCount     = 10
	unknownAccount  = "לא ידוע"
)

// StatsService computes dashboard analytics.
type StatsService interface {
	Stats(ctx context.Context, owner string, period Period) (model.Stats, error)
}

type StatsServiceImpl struct {
	txns repository.TransactionRepository
	loc  *time.Location
	now  func() time.Time
}

// NewStatsService constructs the analytics service; periods are evaluated in loc.
func NewStatsService(txns repository.TransactionRepository, loc *time.Location) *StatsServiceImpl {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsServiceImpl{txns: txns, loc: loc, now: time.Now}
}

// ParseOwner maps the query value to a filter; "" and "all" mean no filter.
func ParseOwner(v string) (*model.Owner, error) {
	if v == "" || v == OwnerAll {
		return nil, nil
	}
	o := model.Owner(v)
	if !o.Valid() {
		return nil, fmt.Errorf("%w: owner must be all, %s or %s", errs.ErrValidation, model.OwnerMine, model.OwnerWife)
	}
	return &o, nil
}

// PeriodStart returns the first calendar day of p containing today, at midnight UTC.
func PeriodStart(p Period, today time.Time) (time.Time, error) {
	y, m, d := today.Date()
	switch p {
	case PeriodToday:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case PeriodWeek:
		return time.Date(y, m, d-int(today.Weekday()), 0, 0, 0, 0, time.UTC), nil
	case PeriodMonth, "":
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), nil
	case PeriodYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("%w: period must be today, week, month or year", errs.ErrValidation)
}

// Stats aggregates spending in the period. Amounts keep their sign.
func (s *StatsServiceImpl) Stats(ctx context.Context, ownerParam string, period Period) (model.Stats, error) {
	owner, err := ParseOwner(ownerParam)
	if err != nil {
		return model.Stats{}, err
	}
	today := calendarDate(s.now(), s.loc)
	start, err := PeriodStart(period, today)
	if err != nil {
		return model.Stats{}, err
	}

	rows, err := s.txns.List(ctx, model.TransactionFilter{Owner: owner, StartDate: &start, Sort: model.SortDateAsc})
	if err != nil {
		return model.Stats{}, err
	}

	var st model.Stats
	total := decimal.Zero
	type catAcc struct {
		sum   decimal.Decimal
		count int
	}
	byCat := map[string]*catAcc{}
	type accAcc struct {
		name string
		sum  decimal.Decimal
	}
	byAcc := map[int64]*accAcc{}

	for i := range rows {
		amt := decimal.NewFromFloat(rows[i].ChargedAmount)
		total = total.Add(amt)

		cat := categorize.Uncategorized
		if rows[i].Category != nil && *rows[i].Category != "" {
			cat = *rows[i].Category
		}
		c, ok := byCat[cat]
		if !ok {
			c = &catAcc{}
			byCat[cat] = c
		}
		c.sum = c.sum.Add(amt)
		c.count++

		a, ok := byAcc[rows[i].AccountID]
		if !ok {
			name := rows[i].AccountName
			if name == "" {
				name = unknownAccount
			}
			a = &accAcc{name: name}
			byAcc[rows[i].AccountID] = a
		}
		a.sum = a.sum.Add(amt)
	}

	st.TotalSpending = total.InexactFloat64()
	for name, c := range byCat {
		st.SpendingByCategory = append(st.SpendingByCategory, model.CategoryTotal{Category: name, Total: c.sum.InexactFloat64(), Count: c.count})
	}
	sort.Slice(st.SpendingByCategory, func(i, j int) bool {
		return byMagnitude(st.SpendingByCategory[i].Total, st.SpendingByCategory[j].Total,
			st.SpendingByCategory[i].Category < st.SpendingByCategory[j].Category)
	})
	for id, a := range byAcc {
		st.SpendingByAccount = append(st.SpendingByAccount, model.AccountTotal{AccountID: id, AccountName: a.name, Total: a.sum.InexactFloat64()})
	}
	sort.Slice(st.SpendingByAccount, func(i, j int) bool {
		return byMagnitude(st.SpendingByAccount[i].Total, st.SpendingByAccount[j].Total,
			st.SpendingByAccount[i].AccountID < st.SpendingByAccount[j].AccountID)
	})

	if st.DailySpending, err = s.daily(ctx, owner, today); err != nil {
		return model.Stats{}, err
	}

	pending := model.StatusPending
	if st.PendingTransactions, err = s.txns.Count(ctx, model.TransactionFilter{Owner: owner, Status: &pending}); err != nil {
		return model.Stats{}, err
	}
	if st.RecentTransactions, err = s.txns.List(ctx, model.TransactionFilter{Owner: owner, Sort: model.SortDateDesc, Limit: recentCount}); err != nil {
		return model.Stats{}, err
	}
	return st, nil
}

// daily sums each of the last 30 days that has transactions, oldest first.
func (s *StatsServiceImpl) daily(ctx context.Context, owner *model.Owner, today time.Time) ([]model.DailyTotal, error) {
	from := today.AddDate(0, 0, -dailyWindowDays)
	rows, err := s.txns.List(ctx, model.TransactionFilter{Owner: owner, StartDate: &from, Sort: model.SortDateAsc})
	if err != nil {
		return nil, err
	}
	var out []model.DailyTotal
	sum := decimal.Zero
	for i := range rows {
		if len(out) > 0 && !out[len(out)-1].Date.Equal(rows[i].Date) {
			out[len(out)-1].Total = sum.InexactFloat64()
			sum = decimal.Zero
		}
		if len(out) == 0 || !out[len(out)-1].Date.Equal(rows[i].Date) {
			out = append(out, model.DailyTotal{Date: rows[i].Date})
		}
		sum = sum.Add(decimal.NewFromFloat(rows[i].ChargedAmount))
	}
	if len(out) > 0 {
		out[len(out)-1].Total = sum.InexactFloat64()
	}
	return out, nil
}

// byMagnitude orders larger absolute amounts first and falls back to tie.
func byMagnitude(a, b float64, tie bool) bool {
	aa, bb := abs(a), abs(b)
	if aa != bb {
		return aa > bb
	}
	return tie
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
