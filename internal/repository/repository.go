// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/and161185/kesef/internal/model"
)

// AccountUpdate is a storage-level partial update. Nil fields are left unchanged.
// Credentials holds an already encrypted envelope.
type AccountUpdate struct {
	Name          *string
	Institution   *model.Institution
	Owner         *model.Owner
	AccountNumber *string
	IsActive      *bool
	Credentials   *string
}

// AccountRepository stores accounts. Only GetCredentials and SetCredentials
// touch the encrypted credentials envelope.
type AccountRepository interface {
	// Create inserts an account with its envelope and fills ID and CreatedAt.
	Create(ctx context.Context, a *model.Account, envelope string) error
	// Get loads an account by ID.
	Get(ctx context.Context, id int64) (*model.Account, error)
	// List returns all accounts ordered by ID.
	List(ctx context.Context) ([]model.Account, error)
	// ListActive returns active accounts ordered by ID.
	ListActive(ctx context.Context) ([]model.Account, error)
	// Update applies a partial update.
	Update(ctx context.Context, id int64, u AccountUpdate) error
	// Delete removes an account together with its transactions and scrape logs.
	Delete(ctx context.Context, id int64) error
	// GetCredentials returns the encrypted credentials envelope.
	GetCredentials(ctx context.Context, id int64) (string, error)
	// SetCredentials overwrites the encrypted credentials envelope.
	SetCredentials(ctx context.Context, id int64, envelope string) error
	// MarkScraped sets the last successful scrape time.
	MarkScraped(ctx context.Context, id int64, at time.Time) error
	// SetAccountNumberIfEmpty records number only when none is stored yet.
	SetAccountNumberIfEmpty(ctx context.Context, id int64, number string) error
}

// TransactionRepository stores normalized transactions.
type TransactionRepository interface {
	// Insert stores t unless a row with the same natural key exists.
	// It reports whether a row was inserted and fills ID and CreatedAt when it was.
	Insert(ctx context.Context, t *model.Transaction) (bool, error)
	// List returns transactions joined with their account, filtered, sorted and paged.
	List(ctx context.Context, f model.TransactionFilter) ([]model.TransactionView, error)
	// Count returns the number of rows matching f, ignoring paging.
	Count(ctx context.Context, f model.TransactionFilter) (int, error)
	// UpdateCategory sets the category of one transaction.
	UpdateCategory(ctx context.Context, id int64, category string) error
}

// RuleRepository stores custom category rules.
type RuleRepository interface {
	// List returns rules by descending priority, then ascending ID.
	List(ctx context.Context) ([]model.CategoryRule, error)
	// Create inserts a rule and fills ID and CreatedAt.
	Create(ctx context.Context, r *model.CategoryRule) error
	// Delete removes a rule.
	Delete(ctx context.Context, id int64) error
}

// ScrapeLogRepository is the append-only scrape audit trail.
type ScrapeLogRepository interface {
	// Create appends a log row and fills its ID.
	Create(ctx context.Context, l *model.ScrapeLog) error
	// ListByAccount returns an account's logs, newest first. limit <= 0 means all.
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]model.ScrapeLog, error)
}

// SessionRepository stores login sessions.
type SessionRepository interface {
	// Create inserts a session.
	Create(ctx context.Context, s model.Session) error
	// Get loads a session by token.
	Get(ctx context.Context, token string) (*model.Session, error)
	// Delete removes one session; a missing token is not an error.
	Delete(ctx context.Context, token string) error
	// DeleteExpired removes sessions expired at now and returns how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// DeleteAll removes every session.
	DeleteAll(ctx context.Context) error
}

// SettingRepository is a key-value settings store.
type SettingRepository interface {
	// Get returns the value of key or errs.ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set inserts or replaces key.
	Set(ctx context.Context, key, value string) error
	// All returns every stored setting.
	All(ctx context.Context) (map[string]string, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Accounts     AccountRepository
	Transactions TransactionRepository
	Rules        RuleRepository
	ScrapeLogs   ScrapeLogRepository
	Sessions     SessionRepository
	Settings     SettingRepository
}
