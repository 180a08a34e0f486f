package scraper

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/kesef/internal/model"
)

type options struct {
	CombineInstallments bool  `json:"combineInstallments"`
	ShowBrowser         bool  `json:"showBrowser"`
	Timeout             int64 `json:"timeout"`
}

type request struct {
	CompanyID   string            `json:"companyId"`
	StartDate   string            `json:"startDate"`
	Credentials map[string]string `json:"credentials"`
	Options     options           `json:"options"`
}

type result struct {
	Success      bool         `json:"success"`
	ErrorType    string       `json:"errorType"`
	ErrorMessage string       `json:"errorMessage"`
	Accounts     []accountOut `json:"accounts"`
}

type accountOut struct {
	AccountNumber string   `json:"accountNumber"`
	Txns          []txnOut `json:"txns"`
}

type installmentsOut struct {
	Number int `json:"number"`
	Total  int `json:"total"`
}

type txnOut struct {
	Identifier       json.RawMessage  `json:"identifier"`
	Type             string           `json:"type"`
	Date             string           `json:"date"`
	ProcessedDate    string           `json:"processedDate"`
	OriginalAmount   float64          `json:"originalAmount"`
	OriginalCurrency string           `json:"originalCurrency"`
	ChargedAmount    float64          `json:"chargedAmount"`
	Description      string           `json:"description"`
	Memo             string           `json:"memo"`
	Status           string           `json:"status"`
	Installments     *installmentsOut `json:"installments"`
}

// parseTime accepts the ISO forms the scraper emits.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

// identifier renders a string or numeric identifier; null and absent give nil.
func identifier(raw json.RawMessage) *string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if str == "" {
			return nil
		}
		return &str
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		v := num.String()
		return &v
	}
	return &s
}

func (t txnOut) model() (model.RawTransaction, error) {
	date, err := parseTime(t.Date)
	if err != nil {
		return model.RawTransaction{}, fmt.Errorf("date: %w", err)
	}
	raw := model.RawTransaction{
		Identifier:       identifier(t.Identifier),
		Type:             t.Type,
		Date:             date,
		OriginalAmount:   t.OriginalAmount,
		OriginalCurrency: t.OriginalCurrency,
		ChargedAmount:    t.ChargedAmount,
		Description:      t.Description,
		Memo:             t.Memo,
		Status:           t.Status,
	}
	if t.ProcessedDate != "" {
		pd, err := parseTime(t.ProcessedDate)
		if err != nil {
			return model.RawTransaction{}, fmt.Errorf("processedDate: %w", err)
		}
		raw.ProcessedDate = &pd
	}
	if t.Installments != nil && (t.Installments.Number != 0 || t.Installments.Total != 0) {
		raw.Installments = &model.Installments{Number: t.Installments.Number, Total: t.Installments.Total}
	}
	return raw, nil
}

// accounts converts the decoded result. Transactions that do not convert are
// logged and dropped; the rest of the account is kept.
func (r result) accounts(log *zap.Logger) []model.ScrapedAccount {
	out := make([]model.ScrapedAccount, 0, len(r.Accounts))
	for i, a := range r.Accounts {
		sa := model.ScrapedAccount{AccountNumber: a.AccountNumber, Txns: make([]model.RawTransaction, 0, len(a.Txns))}
		for j, t := range a.Txns {
			raw, err := t.model()
			if err != nil {
				log.Warn("scraped transaction skipped",
					zap.Int("account", i),
					zap.Int("txn", j),
					zap.Error(err))
				continue
			}
			sa.Txns = append(sa.Txns, raw)
		}
		out = append(out, sa)
	}
	return out
}
