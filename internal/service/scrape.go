package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/repository"
	"github.com/and161185/kesef/internal/scraper"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// DefaultLookbackDays is how far back a scrape reaches when not configured.
const DefaultLookbackDays = 60

// Messages stored in scrape logs and outcomes.
const (
	MsgDecryption = "שגיאה בפענוח פרטי הגישה - יתכן שסיסמת המאסטר השתנתה. יש להזין מחדש את פרטי הגישה."
	MsgInternal   = "שגיאה פנימית"
)

// ScrapeService runs scrape batches.
type ScrapeService interface {
	// Run scrapes accountID, or every active account when accountID is nil.
	// Per-account failures are reported in the summary, never returned.
	Run(ctx context.Context, accountID *int64, masterPassword string) (model.ScrapeSummary, error)
}

// credentialSource opens an account's credentials envelope.
type credentialSource interface {
	GetDecryptedCredentials(ctx context.Context, id int64, masterPassword string) (model.Credentials, error)
}

type ScrapeServiceImpl struct {
	accounts repository.AccountRepository
	logs     repository.ScrapeLogRepository
	creds    credentialSource
	scraper  scraper.Scraper
	ingester *Ingester
	lookback int
	loc      *time.Location
	now      func() time.Time
	log      *zap.Logger

	mu sync.Mutex // one external scrape session at a time
}

// NewScrapeService constructs the orchestrator.
func NewScrapeService(
	accounts repository.AccountRepository,
	logs repository.ScrapeLogRepository,
	creds credentialSource,
	sc scraper.Scraper,
	ingester *Ingester,
	lookbackDays int,
	loc *time.Location,
	logger *zap.Logger,
) *ScrapeServiceImpl {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ScrapeServiceImpl{
		accounts: accounts,
		logs:     logs,
		creds:    creds,
		scraper:  sc,
		ingester: ingester,
		lookback: lookbackDays,
		loc:      loc,
		now:      time.Now,
		log:      logger.Named("scrape"),
	}
}

// Run selects the accounts and scrapes them one after another.
// Concurrent calls wait for the running batch to finish. A started batch is not
// cancelled with ctx: every selected account is attempted and logged.
func (s *ScrapeServiceImpl) Run(ctx context.Context, accountID *int64, masterPassword string) (model.ScrapeSummary, error) {
	ctx = context.WithoutCancel(ctx)
	var targets []model.Account
	if accountID != nil {
		a, err := s.accounts.Get(ctx, *accountID)
		if err != nil {
			return model.ScrapeSummary{}, err
		}
		targets = []model.Account{*a}
	} else {
		active, err := s.accounts.ListActive(ctx)
		if err != nil {
			return model.ScrapeSummary{}, err
		}
		if len(active) == 0 {
			return model.ScrapeSummary{}, fmt.Errorf("%w: no active accounts", errs.ErrNotFound)
		}
		targets = active
	}

	runID, err := uuid.NewV4()
	if err != nil {
		return model.ScrapeSummary{}, err
	}
	sum := model.ScrapeSummary{RunID: runID.String()}
	log := s.log.With(zap.String("run_id", sum.RunID))

	s.mu.Lock()
	defer s.mu.Unlock()

	log.Info("scrape batch started", zap.Int("accounts", len(targets)))
	for i := range targets {
		sum.Add(s.scrapeOne(ctx, log, targets[i], masterPassword))
	}
	log.Info("scrape batch finished",
		zap.Int("success", sum.SuccessCount),
		zap.Int("errors", sum.ErrorCount),
		zap.Int("inserted", sum.TotalTransactions))
	return sum, nil
}

// scrapeOne runs the per-account pipeline: decrypt, scrape, ingest, log.
// Any failure, panics included, ends as an error outcome with an error log row.
func (s *ScrapeServiceImpl) scrapeOne(ctx context.Context, log *zap.Logger, a model.Account, masterPassword string) (out model.ScrapeOutcome) {
	started := s.now().UTC()
	log = log.With(zap.Int64("account_id", a.ID), zap.String("institution", string(a.Institution)))
	out = model.ScrapeOutcome{AccountID: a.ID, AccountName: a.Name}

	defer func() {
		if r := recover(); r != nil {
			log.Error("scrape panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			out = s.fail(ctx, log, a, started, MsgInternal)
		}
	}()

	inserted, err := s.pipeline(ctx, log, a, masterPassword)
	if err != nil {
		log.Warn("scrape failed", zap.Error(err))
		return s.fail(ctx, log, a, started, outcomeMessage(err))
	}

	completed := s.now().UTC()
	if err := s.accounts.MarkScraped(ctx, a.ID, completed); err != nil {
		log.Error("mark scraped", zap.Error(err))
	}
	s.writeLog(ctx, log, &model.ScrapeLog{
		AccountID:         a.ID,
		Status:            model.ScrapeSuccess,
		TransactionsCount: inserted,
		StartedAt:         started,
		CompletedAt:       &completed,
	})
	log.Info("scrape succeeded", zap.Int("inserted", inserted))

	out.Status = model.ScrapeSuccess
	out.TransactionsCount = inserted
	return out
}

func (s *ScrapeServiceImpl) pipeline(ctx context.Context, log *zap.Logger, a model.Account, masterPassword string) (int, error) {
	creds, err := s.creds.GetDecryptedCredentials(ctx, a.ID, masterPassword)
	if err != nil {
		return 0, err
	}
	if !a.Institution.Valid() {
		return 0, fmt.Errorf("%w: %q", errs.ErrUnsupportedInstitution, string(a.Institution))
	}

	y, m, d := s.now().In(s.loc).Date()
	start := time.Date(y, m, d-s.lookback, 0, 0, 0, 0, s.loc)

	scraped, err := s.scraper.Scrape(ctx, model.ScrapeRequest{
		Institution: a.Institution,
		StartDate:   start,
		Credentials: creds,
	})
	if err != nil {
		return 0, err
	}

	var raws []model.RawTransaction
	numbered := a.AccountNumber != nil && *a.AccountNumber != ""
	for _, sa := range scraped {
		if !numbered && sa.AccountNumber != "" {
			if err := s.accounts.SetAccountNumberIfEmpty(ctx, a.ID, sa.AccountNumber); err != nil {
				log.Warn("account number not recorded", zap.Error(err))
			} else {
				numbered = true
			}
		}
		raws = append(raws, sa.Txns...)
	}
	return s.ingester.Ingest(ctx, a.ID, raws)
}

func (s *ScrapeServiceImpl) fail(ctx context.Context, log *zap.Logger, a model.Account, started time.Time, msg string) model.ScrapeOutcome {
	completed := s.now().UTC()
	s.writeLog(ctx, log, &model.ScrapeLog{
		AccountID:    a.ID,
		Status:       model.ScrapeError,
		ErrorMessage: &msg,
		StartedAt:    started,
		CompletedAt:  &completed,
	})
	return model.ScrapeOutcome{
		AccountID:    a.ID,
		AccountName:  a.Name,
		Status:       model.ScrapeError,
		ErrorMessage: msg,
	}
}

func (s *ScrapeServiceImpl) writeLog(ctx context.Context, log *zap.Logger, l *model.ScrapeLog) {
	if err := s.logs.Create(ctx, l); err != nil {
		log.Error("scrape log not written", zap.Error(err))
	}
}

// outcomeMessage turns a per-account failure into the text shown to the user.
// Storage and other internal errors are only logged.
func outcomeMessage(err error) string {
	var f *scraper.Failure
	switch {
	case errors.Is(err, errs.ErrDecryption):
		return MsgDecryption
	case errors.As(err, &f):
		return f.Error()
	case errors.Is(err, errs.ErrExternalService), errors.Is(err, errs.ErrUnsupportedInstitution):
		return err.Error()
	default:
		return MsgInternal
	}
}
