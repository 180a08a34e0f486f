package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/and161185/kesef/internal/categorize"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/repository"
)

// ReportService builds and delivers the daily spending summary.
type ReportService interface {
	// Generate renders the summary of the day before now as Telegram HTML.
	Generate(ctx context.Context, now time.Time) (string, error)
	// Send generates the summary and reports whether it was delivered.
	Send(ctx context.Context, now time.Time) (bool, error)
}

type ReportServiceImpl struct {
	txns      repository.TransactionRepository
	messenger Messenger
	loc       *time.Location
	log       *zap.Logger
}

// NewReportService constructs ReportService; days are evaluated in loc.
func NewReportService(txns repository.TransactionRepository, messenger Messenger, loc *time.Location, logger *zap.Logger) *ReportServiceImpl {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportServiceImpl{txns: txns, messenger: messenger, loc: loc, log: logger.Named("report")}
}

type categorySum struct {
	name  string
	total decimal.Decimal
	count int
}

type accountSum struct {
	id    int64
	name  string
	total decimal.Decimal
}

// Generate sums absolute charged amounts of yesterday by category, owner and
// account, plus the month-to-date total.
func (s *ReportServiceImpl) Generate(ctx context.Context, now time.Time) (string, error) {
	today := calendarDate(now, s.loc)
	yesterday := today.AddDate(0, 0, -1)

	rows, err := s.txns.List(ctx, model.TransactionFilter{StartDate: &yesterday, EndDate: &yesterday, Sort: model.SortDateAsc})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>סיכום יומי - %s</b>\n\n", yesterday.Format("02.01.2006"))
	if len(rows) == 0 {
		b.WriteString("✨ אין עסקאות מאתמול – יום חסכוני!")
		return b.String(), nil
	}

	total := decimal.Zero
	byCat := map[string]*categorySum{}
	byOwner := map[model.Owner]decimal.Decimal{}
	byAcc := map[int64]*accountSum{}
	for i := range rows {
		amt := decimal.NewFromFloat(rows[i].ChargedAmount).Abs()
		total = total.Add(amt)

		cat := categorize.Default
		if rows[i].Category != nil && *rows[i].Category != "" {
			cat = *rows[i].Category
		}
		c, ok := byCat[cat]
		if !ok {
			c = &categorySum{name: cat}
			byCat[cat] = c
		}
		c.total = c.total.Add(amt)
		c.count++

		owner := rows[i].AccountOwner
		if !owner.Valid() {
			owner = model.OwnerMine
		}
		byOwner[owner] = byOwner[owner].Add(amt)

		a, ok := byAcc[rows[i].AccountID]
		if !ok {
			name := rows[i].AccountName
			if name == "" {
				name = unknownAccount
			}
			a = &accountSum{id: rows[i].AccountID, name: name}
			byAcc[rows[i].AccountID] = a
		}
		a.total = a.total.Add(amt)
	}

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthRows, err := s.txns.List(ctx, model.TransactionFilter{StartDate: &monthStart, Sort: model.SortDateAsc})
	if err != nil {
		return "", err
	}
	month := decimal.Zero
	for i := range monthRows {
		month = month.Add(decimal.NewFromFloat(monthRows[i].ChargedAmount).Abs())
	}

	cats := make([]*categorySum, 0, len(byCat))
	for _, c := range byCat {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if cmp := cats[i].total.Cmp(cats[j].total); cmp != 0 {
			return cmp > 0
		}
		return cats[i].name < cats[j].name
	})
	accs := make([]*accountSum, 0, len(byAcc))
	for _, a := range byAcc {
		accs = append(accs, a)
	}
	sort.Slice(accs, func(i, j int) bool { return accs[i].id < accs[j].id })

	fmt.Fprintf(&b, "💰 <b>סה\"כ הוצאות אתמול:</b> %s\n\n", FormatShekels(total))
	b.WriteString("📋 <b>פירוט:</b>\n")
	for _, c := range cats {
		fmt.Fprintf(&b, "%s %s: %s (%d עסקאות)\n", categorize.Emoji(c.name), html.EscapeString(c.name), FormatShekels(c.total), c.count)
	}
	fmt.Fprintf(&b, "\n👤 <b>שלי:</b> %s\n", FormatShekels(byOwner[model.OwnerMine]))
	fmt.Fprintf(&b, "👩 <b>אשתי:</b> %s\n", FormatShekels(byOwner[model.OwnerWife]))
	b.WriteString("\n💳 <b>לפי כרטיס:</b>\n")
	for _, a := range accs {
		fmt.Fprintf(&b, "• %s: %s\n", html.EscapeString(a.name), FormatShekels(a.total))
	}
	fmt.Fprintf(&b, "\n📈 <b>סה\"כ החודש:</b> %s", FormatShekels(month))
	return b.String(), nil
}

// Send generates the report for now and hands it to the messenger.
func (s *ReportServiceImpl) Send(ctx context.Context, now time.Time) (bool, error) {
	msg, err := s.Generate(ctx, now)
	if err != nil {
		return false, err
	}
	sent := s.messenger.Send(ctx, msg)
	s.log.Info("daily report", zap.Bool("sent", sent))
	return sent, nil
}

// FormatShekels renders the absolute amount rounded to whole shekels with
// thousands separators, e.g. ₪1,235.
func FormatShekels(d decimal.Decimal) string {
	digits := d.Abs().Round(0).StringFixed(0)
	var b strings.Builder
	b.WriteString("₪")
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
