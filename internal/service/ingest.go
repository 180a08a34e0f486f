package service

import (
	"context"
	"strings"
	"time"

	"github.com/and161185/kesef/internal/categorize"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/repository"
	"go.uber.org/zap"
)

const defaultCurrency = "ILS"

// Ingester normalizes raw scraper transactions and stores the new ones.
type Ingester struct {
	txns  repository.TransactionRepository
	rules repository.RuleRepository
	loc   *time.Location
	now   func() time.Time
	log   *zap.Logger
}

// NewIngester constructs an Ingester. Raw timestamps are reduced to calendar dates in loc.
func NewIngester(txns repository.TransactionRepository, rules repository.RuleRepository, loc *time.Location, logger *zap.Logger) *Ingester {
	if loc == nil {
		loc = time.UTC
	}
	return &Ingester{txns: txns, rules: rules, loc: loc, now: time.Now, log: logger.Named("ingest")}
}

// Ingest categorizes and inserts raws for accountID and returns how many rows were new.
// Rows already stored under the natural key are skipped silently; other insert errors
// are logged and skipped. Only failures outside the row loop are returned.
func (in *Ingester) Ingest(ctx context.Context, accountID int64, raws []model.RawTransaction) (int, error) {
	rules, err := in.rules.List(ctx)
	if err != nil {
		return 0, err
	}
	rs := categorize.Compile(rules)
	scrapedAt := in.now().UTC()

	inserted := 0
	for i := range raws {
		t := Normalize(raws[i], accountID, in.loc, scrapedAt)
		cat := rs.Categorize(t.Description)
		t.Category = &cat

		ok, err := in.txns.Insert(ctx, &t)
		if err != nil {
			in.log.Warn("transaction skipped",
				zap.Int64("account_id", accountID),
				zap.Time("date", t.Date),
				zap.Error(err))
			continue
		}
		if ok {
			inserted++
		}
	}
	in.log.Debug("ingested",
		zap.Int64("account_id", accountID),
		zap.Int("received", len(raws)),
		zap.Int("inserted", inserted))
	return inserted, nil
}

// Normalize maps a raw transaction to a storable row without its category.
func Normalize(raw model.RawTransaction, accountID int64, loc *time.Location, scrapedAt time.Time) model.Transaction {
	t := model.Transaction{
		AccountID:        accountID,
		Identifier:       raw.Identifier,
		Date:             calendarDate(raw.Date, loc),
		OriginalAmount:   raw.OriginalAmount,
		OriginalCurrency: strings.TrimSpace(raw.OriginalCurrency),
		ChargedAmount:    raw.ChargedAmount,
		Description:      strings.TrimSpace(raw.Description),
		Type:             model.TypeNormal,
		Status:           model.StatusCompleted,
		ScrapedAt:        scrapedAt,
	}
	if t.OriginalCurrency == "" {
		t.OriginalCurrency = defaultCurrency
	}
	if raw.ProcessedDate != nil && !raw.ProcessedDate.IsZero() {
		d := calendarDate(*raw.ProcessedDate, loc)
		t.ProcessedDate = &d
	}
	if memo := strings.TrimSpace(raw.Memo); memo != "" {
		t.Memo = &memo
	}
	if strings.EqualFold(strings.TrimSpace(raw.Status), string(model.StatusPending)) {
		t.Status = model.StatusPending
	}
	if raw.Installments != nil {
		t.Type = model.TypeInstallments
		if raw.Installments.Number > 0 {
			n := raw.Installments.Number
			t.InstallmentNumber = &n
		}
		if raw.Installments.Total > 0 {
			n := raw.Installments.Total
			t.InstallmentTotal = &n
		}
	} else if strings.EqualFold(raw.Type, string(model.TypeInstallments)) {
		t.Type = model.TypeInstallments
	}
	return t
}

// calendarDate returns the date of ts as seen in loc, at midnight UTC.
func calendarDate(ts time.Time, loc *time.Location) time.Time {
	y, m, d := ts.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
