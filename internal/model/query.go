package model

import "time"

// TransactionSort selects the ordering of a transaction listing.
type TransactionSort string

// Sort orders.
const (
	SortDateDesc   TransactionSort = "date_desc"
	SortDateAsc    TransactionSort = "date_asc"
	SortAmountDesc TransactionSort = "amount_desc"
	SortAmountAsc  TransactionSort = "amount_asc"
)

// Valid reports whether s is a known sort order.
func (s TransactionSort) Valid() bool {
	switch s {
	case SortDateDesc, SortDateAsc, SortAmountDesc, SortAmountAsc:
		return true
	}
	return false
}

// Listing limits.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// TransactionFilter narrows a transaction listing. Zero values mean "no filter".
// Limit <= 0 returns every matching row.
type TransactionFilter struct {
	AccountID *int64
	Owner     *Owner
	Category  *string
	Status    *TransactionStatus
	Search    string
	StartDate *time.Time // inclusive
	EndDate   *time.Time // inclusive
	Sort      TransactionSort
	Limit     int
	Offset    int
}

// TransactionPage is one page of a listing.
type TransactionPage struct {
	Items      []TransactionView
	Total      int
	Page       int
	TotalPages int
}

// CategoryTotal is the spending of one category.
type CategoryTotal struct {
	Category string
	Total    float64
	Count    int
}

// AccountTotal is the spending of one account.
type AccountTotal struct {
	AccountID   int64
	AccountName string
	Total       float64
}

// DailyTotal is the spending of one calendar day.
type DailyTotal struct {
	Date  time.Time
	Total float64
}

// Stats is the dashboard analytics snapshot.
type Stats struct {
	TotalSpending       float64
	SpendingByCategory  []CategoryTotal
	SpendingByAccount   []AccountTotal
	DailySpending       []DailyTotal
	PendingTransactions int
	RecentTransactions  []TransactionView
}
