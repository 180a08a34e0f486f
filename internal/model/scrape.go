package model

import "time"

// Installments describes an installment plan position.
type Installments struct {
	Number int
	Total  int
}

// RawTransaction is a transaction as reported by the external scraper, before normalization.
type RawTransaction struct {
	Identifier       *string
	Type             string
	Date             time.Time
	ProcessedDate    *time.Time
	OriginalAmount   float64
	OriginalCurrency string
	ChargedAmount    float64
	Description      string
	Memo             string
	Status           string
	Installments     *Installments
}

// ScrapedAccount is one sub-account of a scrape result.
type ScrapedAccount struct {
	AccountNumber string
	Txns          []RawTransaction
}

// ScrapeRequest is the input for one external scrape session.
type ScrapeRequest struct {
	Institution Institution
	StartDate   time.Time
	Credentials Credentials
}

// ScrapeOutcome reports what happened to one account during a scrape batch.
type ScrapeOutcome struct {
	AccountID         int64
	AccountName       string
	Status            ScrapeStatus
	TransactionsCount int
	ErrorMessage      string
}

// ScrapeSummary aggregates a scrape batch.
type ScrapeSummary struct {
	RunID             string
	TotalAccounts     int
	SuccessCount      int
	ErrorCount        int
	TotalTransactions int
	Results           []ScrapeOutcome
}

// Add records an outcome and updates the counters.
func (s *ScrapeSummary) Add(o ScrapeOutcome) {
	s.Results = append(s.Results, o)
	s.TotalAccounts++
	if o.Status == ScrapeSuccess {
		s.SuccessCount++
	} else {
		s.ErrorCount++
	}
	s.TotalTransactions += o.TransactionsCount
}
