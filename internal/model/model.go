// Package model defines domain entities used by services and repositories.
package model

import "time"

// Owner tags an account with the household member it belongs to.
type Owner string

// Owner values.
const (
	OwnerMine Owner = "mine"
	OwnerWife Owner = "wife"
)

// Valid reports whether o is one of the fixed owner tags.
func (o Owner) Valid() bool { return o == OwnerMine || o == OwnerWife }

// Account is a bank or card account scraped on behalf of the user.
// The encrypted credentials envelope is intentionally absent: only the
// credential store reads it, through a dedicated repository call.
type Account struct {
	ID            int64
	Name          string
	Institution   Institution
	Owner         Owner
	AccountNumber *string    // masked number, filled by the first scrape when empty
	LastScrapedAt *time.Time // nil until the first successful scrape
	IsActive      bool
	CreatedAt     time.Time
}

// NewAccount is the creation intent for an account.
type NewAccount struct {
	Name          string
	Institution   Institution
	Owner         Owner
	Credentials   Credentials
	AccountNumber *string
}

// AccountPatch holds optional field updates. Nil fields are left unchanged.
type AccountPatch struct {
	Name          *string
	Institution   *Institution
	Owner         *Owner
	AccountNumber *string
	IsActive      *bool
	Credentials   Credentials // re-encrypted when non-nil
}

// Empty reports whether the patch changes nothing.
func (p AccountPatch) Empty() bool {
	return p.Name == nil && p.Institution == nil && p.Owner == nil &&
		p.AccountNumber == nil && p.IsActive == nil && p.Credentials == nil
}

// TransactionType distinguishes one-off charges from installment plans.
type TransactionType string

// Transaction types.
const (
	TypeNormal       TransactionType = "normal"
	TypeInstallments TransactionType = "installments"
)

// TransactionStatus tells whether the bank already settled the transaction.
type TransactionStatus string

// Transaction statuses.
const (
	StatusCompleted TransactionStatus = "completed"
	StatusPending   TransactionStatus = "pending"
)

// Transaction is a normalized, categorized transaction row.
// (AccountID, Date, ChargedAmount, Description) is its natural key.
type Transaction struct {
	ID                int64
	AccountID         int64
	Identifier        *string
	Date              time.Time // calendar date, midnight UTC
	ProcessedDate     *time.Time
	OriginalAmount    float64
	OriginalCurrency  string
	ChargedAmount     float64 // local currency, negative for debits
	Description       string
	Memo              *string
	Category          *string
	Type              TransactionType
	InstallmentNumber *int
	InstallmentTotal  *int
	Status            TransactionStatus
	ScrapedAt         time.Time
	CreatedAt         time.Time
}

// TransactionView is a transaction joined with its account's name and owner.
type TransactionView struct {
	Transaction
	AccountName  string
	AccountOwner Owner
}

// CategoryRule maps a description pattern to a category. Higher priority is tried first.
type CategoryRule struct {
	ID        int64
	Pattern   string // regular expression, or plain text when it does not compile
	Category  string
	Priority  int
	CreatedAt time.Time
}

// ScrapeStatus is the outcome of one scrape attempt for one account.
type ScrapeStatus string

// Scrape statuses.
const (
	ScrapeSuccess ScrapeStatus = "success"
	ScrapeError   ScrapeStatus = "error"
)

// ScrapeLog is an append-only audit row, one per orchestration attempt per account.
type ScrapeLog struct {
	ID                int64
	AccountID         int64
	Status            ScrapeStatus
	ErrorMessage      *string
	TransactionsCount int
	StartedAt         time.Time
	CompletedAt       *time.Time
}

// Session binds an opaque bearer token to the master password it unlocks.
type Session struct {
	Token          string
	MasterPassword string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }

// Setting keys.
const (
	SettingMasterPasswordHash = "master_password_hash"
	SettingTelegramBotToken   = "telegram_bot_token"
	SettingTelegramChatID     = "telegram_chat_id"
	SettingDailyReportTime    = "daily_report_time"
)
