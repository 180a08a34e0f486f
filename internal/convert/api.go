// Package convert maps domain entities to the JSON shapes of the HTTP API and back.
// None of the outgoing shapes carries credentials.
package convert

import (
	"fmt"
	"time"

	"github.com/and161185/kesef/internal/categorize"
	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// --- helpers ---

func date(t time.Time) string { return t.Format(DateLayout) }

func optDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := date(*t)
	return &s
}

// ParseDate parses a wire date; an empty string yields nil.
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: bad date %q", errs.ErrValidation, s)
	}
	return &t, nil
}

// --- Accounts ---

// Account is an account without its credentials envelope.
type Account struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	CompanyID     string     `json:"companyId"`
	Owner         string     `json:"owner"`
	AccountNumber *string    `json:"accountNumber"`
	LastScrapedAt *time.Time `json:"lastScrapedAt"`
	IsActive      bool       `json:"isActive"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// ToAccount converts a domain account.
func ToAccount(a model.Account) Account {
	return Account{
		ID:            a.ID,
		Name:          a.Name,
		CompanyID:     string(a.Institution),
		Owner:         string(a.Owner),
		AccountNumber: a.AccountNumber,
		LastScrapedAt: a.LastScrapedAt,
		IsActive:      a.IsActive,
		CreatedAt:     a.CreatedAt,
	}
}

// ToAccounts converts a list, never returning nil.
func ToAccounts(in []model.Account) []Account {
	out := make([]Account, 0, len(in))
	for _, a := range in {
		out = append(out, ToAccount(a))
	}
	return out
}

// CreateAccountRequest is the body of POST /api/accounts.
type CreateAccountRequest struct {
	Name          string            `json:"name"`
	CompanyID     string            `json:"companyId"`
	Owner         string            `json:"owner"`
	Credentials   map[string]string `json:"credentials"`
	AccountNumber *string           `json:"accountNumber"`
}

// NewAccount converts the request; field validation is left to the service.
func (r CreateAccountRequest) NewAccount() (model.NewAccount, error) {
	if r.Name == "" || r.CompanyID == "" || r.Owner == "" || r.Credentials == nil {
		return model.NewAccount{}, fmt.Errorf("%w: name, companyId, owner and credentials are required", errs.ErrValidation)
	}
	return model.NewAccount{
		Name:          r.Name,
		Institution:   model.Institution(r.CompanyID),
		Owner:         model.Owner(r.Owner),
		Credentials:   model.Credentials(r.Credentials),
		AccountNumber: r.AccountNumber,
	}, nil
}

// UpdateAccountRequest is the body of PUT /api/accounts/:id. Absent fields stay unchanged.
type UpdateAccountRequest struct {
	Name          *string           `json:"name"`
	CompanyID     *string           `json:"companyId"`
	Owner         *string           `json:"owner"`
	AccountNumber *string           `json:"accountNumber"`
	IsActive      *bool             `json:"isActive"`
	Credentials   map[string]string `json:"credentials"`
}

// Patch converts the request into a domain patch.
func (r UpdateAccountRequest) Patch() model.AccountPatch {
	p := model.AccountPatch{
		Name:          r.Name,
		AccountNumber: r.AccountNumber,
		IsActive:      r.IsActive,
	}
	if r.CompanyID != nil {
		inst := model.Institution(*r.CompanyID)
		p.Institution = &inst
	}
	if r.Owner != nil {
		o := model.Owner(*r.Owner)
		p.Owner = &o
	}
	if r.Credentials != nil {
		p.Credentials = model.Credentials(r.Credentials)
	}
	return p
}

// --- Scrape ---

// ScrapeLog is one audit row.
type ScrapeLog struct {
	ID                int64      `json:"id"`
	AccountID         int64      `json:"accountId"`
	Status            string     `json:"status"`
	ErrorMessage      *string    `json:"errorMessage"`
	TransactionsCount int        `json:"transactionsCount"`
	StartedAt         time.Time  `json:"startedAt"`
	CompletedAt       *time.Time `json:"completedAt"`
}

// ToScrapeLogs converts audit rows.
func ToScrapeLogs(in []model.ScrapeLog) []ScrapeLog {
	out := make([]ScrapeLog, 0, len(in))
	for _, l := range in {
		out = append(out, ScrapeLog{
			ID:                l.ID,
			AccountID:         l.AccountID,
			Status:            string(l.Status),
			ErrorMessage:      l.ErrorMessage,
			TransactionsCount: l.TransactionsCount,
			StartedAt:         l.StartedAt,
			CompletedAt:       l.CompletedAt,
		})
	}
	return out
}

type ScrapeOutcome struct {
	AccountID         int64  `json:"accountId"`
	AccountName       string `json:"accountName"`
	Status            string `json:"status"`
	TransactionsCount int    `json:"transactionsCount"`
	ErrorMessage      string `json:"errorMessage,omitempty"`
}

type ScrapeCounts struct {
	TotalAccounts     int `json:"totalAccounts"`
	SuccessCount      int `json:"successCount"`
	ErrorCount        int `json:"errorCount"`
	TotalTransactions int `json:"totalTransactions"`
}

// ScrapeResponse is the body returned by POST /api/scrape.
type ScrapeResponse struct {
	Success bool            `json:"success"`
	RunID   string          `json:"runId"`
	Summary ScrapeCounts    `json:"summary"`
	Results []ScrapeOutcome `json:"results"`
}

// ToScrapeResponse converts a batch summary.
func ToScrapeResponse(s model.ScrapeSummary) ScrapeResponse {
	results := make([]ScrapeOutcome, 0, len(s.Results))
	for _, o := range s.Results {
		results = append(results, ScrapeOutcome{
			AccountID:         o.AccountID,
			AccountName:       o.AccountName,
			Status:            string(o.Status),
			TransactionsCount: o.TransactionsCount,
			ErrorMessage:      o.ErrorMessage,
		})
	}
	return ScrapeResponse{
		Success: true,
		RunID:   s.RunID,
		Summary: ScrapeCounts{
			TotalAccounts:     s.TotalAccounts,
			SuccessCount:      s.SuccessCount,
			ErrorCount:        s.ErrorCount,
			TotalTransactions: s.TotalTransactions,
		},
		Results: results,
	}
}

// --- Transactions ---

// Transaction is a transaction row joined with its account.
type Transaction struct {
	ID                int64     `json:"id"`
	AccountID         int64     `json:"accountId"`
	AccountName       string    `json:"accountName"`
	AccountOwner      string    `json:"accountOwner"`
	Identifier        *string   `json:"identifier"`
	Date              string    `json:"date"`
	ProcessedDate     *string   `json:"processedDate"`
	OriginalAmount    float64   `json:"originalAmount"`
	OriginalCurrency  string    `json:"originalCurrency"`
	ChargedAmount     float64   `json:"chargedAmount"`
	Description       string    `json:"description"`
	Memo              *string   `json:"memo"`
	Category          *string   `json:"category"`
	Type              string    `json:"type"`
	InstallmentNumber *int      `json:"installmentNumber"`
	InstallmentTotal  *int      `json:"installmentTotal"`
	Status            string    `json:"status"`
	ScrapedAt         time.Time `json:"scrapedAt"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ToTransaction converts a joined row.
func ToTransaction(v model.TransactionView) Transaction {
	t := v.Transaction
	return Transaction{
		ID:                t.ID,
		AccountID:         t.AccountID,
		AccountName:       v.AccountName,
		AccountOwner:      string(v.AccountOwner),
		Identifier:        t.Identifier,
		Date:              date(t.Date),
		ProcessedDate:     optDate(t.ProcessedDate),
		OriginalAmount:    t.OriginalAmount,
		OriginalCurrency:  t.OriginalCurrency,
		ChargedAmount:     t.ChargedAmount,
		Description:       t.Description,
		Memo:              t.Memo,
		Category:          t.Category,
		Type:              string(t.Type),
		InstallmentNumber: t.InstallmentNumber,
		InstallmentTotal:  t.InstallmentTotal,
		Status:            string(t.Status),
		ScrapedAt:         t.ScrapedAt,
		CreatedAt:         t.CreatedAt,
	}
}

func toTransactions(in []model.TransactionView) []Transaction {
	out := make([]Transaction, 0, len(in))
	for _, v := range in {
		out = append(out, ToTransaction(v))
	}
	return out
}

// TransactionPage is the body returned by GET /api/transactions.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total"`
	Page         int           `json:"page"`
	TotalPages   int           `json:"totalPages"`
}

// ToTransactionPage converts a listing page.
func ToTransactionPage(p model.TransactionPage) TransactionPage {
	return TransactionPage{
		Transactions: toTransactions(p.Items),
		Total:        p.Total,
		Page:         p.Page,
		TotalPages:   p.TotalPages,
	}
}

// --- Stats ---

type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

type AccountTotal struct {
	AccountID   int64   `json:"accountId"`
	AccountName string  `json:"accountName"`
	Total       float64 `json:"total"`
}

type DailyTotal struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

// Stats is the body returned by GET /api/stats.
type Stats struct {
	TotalSpending       float64         `json:"totalSpending"`
	SpendingByCategory  []CategoryTotal `json:"spendingByCategory"`
	SpendingByAccount   []AccountTotal  `json:"spendingByAccount"`
	DailySpending       []DailyTotal    `json:"dailySpending"`
	PendingTransactions int             `json:"pendingTransactions"`
	RecentTransactions  []Transaction   `json:"recentTransactions"`
}

// ToStats converts the analytics snapshot.
func ToStats(s model.Stats) Stats {
	out := Stats{
		TotalSpending:       s.TotalSpending,
		SpendingByCategory:  make([]CategoryTotal, 0, len(s.SpendingByCategory)),
		SpendingByAccount:   make([]AccountTotal, 0, len(s.SpendingByAccount)),
		DailySpending:       make([]DailyTotal, 0, len(s.DailySpending)),
		PendingTransactions: s.PendingTransactions,
		RecentTransactions:  toTransactions(s.RecentTransactions),
	}
	for _, c := range s.SpendingByCategory {
		out.SpendingByCategory = append(out.SpendingByCategory, CategoryTotal(c))
	}
	for _, a := range s.SpendingByAccount {
		out.SpendingByAccount = append(out.SpendingByAccount, AccountTotal(a))
	}
	for _, d := range s.DailySpending {
		out.DailySpending = append(out.DailySpending, DailyTotal{Date: date(d.Date), Total: d.Total})
	}
	return out
}

// --- Categories ---

type Rule struct {
	ID        int64     `json:"id"`
	Pattern   string    `json:"pattern"`
	Category  string    `json:"category"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToRule converts a custom rule.
func ToRule(r model.CategoryRule) Rule { return Rule(r) }

// ToRules converts a list, never returning nil.
func ToRules(in []model.CategoryRule) []Rule {
	out := make([]Rule, 0, len(in))
	for _, r := range in {
		out = append(out, ToRule(r))
	}
	return out
}

// CreateRuleRequest is the body of POST /api/settings/categories.
type CreateRuleRequest struct {
	Pattern  string `json:"pattern"`
	Category string `json:"category"`
	Priority int    `json:"priority"`
}

// DeleteRuleRequest is the body of DELETE /api/settings/categories.
type DeleteRuleRequest struct {
	ID int64 `json:"id"`
}

// Category is a built-in category as the UI renders it.
type Category struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
	Emoji string `json:"emoji"`
}

// ToCategories drops the merchant fragments.
func ToCategories(in []categorize.Category) []Category {
	out := make([]Category, 0, len(in))
	for _, c := range in {
		out = append(out, Category{Name: c.Name, Icon: c.Icon, Color: c.Color, Emoji: c.Emoji})
	}
	return out
}

// --- Institutions ---

// Institution describes a supported bank or card company and its login fields.
type Institution struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

// ToInstitutions lists the fixed institution set.
func ToInstitutions() []Institution {
	all := model.Institutions()
	out := make([]Institution, 0, len(all))
	for _, i := range all {
		out = append(out, Institution{ID: string(i), Name: i.DisplayName(), Fields: i.CredentialFields()})
	}
	return out
}
