package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/and161185/kesef/internal/config"
	"github.com/and161185/kesef/internal/errs"
	"github.com/and161185/kesef/internal/limiter"
	"github.com/and161185/kesef/internal/migrate"
	"github.com/and161185/kesef/internal/model"
	"github.com/and161185/kesef/internal/notify/telegram"
	"github.com/and161185/kesef/internal/repository"
	"github.com/and161185/kesef/internal/repository/postgres"
	"github.com/and161185/kesef/internal/repository/sqlite"
	"github.com/and161185/kesef/internal/scheduler"
	"github.com/and161185/kesef/internal/scraper"
	"github.com/and161185/kesef/internal/service"
)

// app holds the wired services shared by every command.
type app struct {
	cfg   config.Config
	loc   *time.Location
	log   *zap.Logger
	store repository.Store

	accounts     *service.AccountServiceImpl
	auth         *service.AuthServiceImpl
	scrape       *service.ScrapeServiceImpl
	transactions *service.TransactionServiceImpl
	stats        *service.StatsServiceImpl
	rules        *service.RuleServiceImpl
	report       *service.ReportServiceImpl
	messenger    *service.TelegramMessenger

	close func()
}

// openStore opens and migrates the configured backend. The login limiter lives
// next to the data: in-process for sqlite, in a table for postgres.
func openStore(ctx context.Context, c config.Config) (repository.Store, limiter.Limiter, func(), error) {
	switch c.Storage.Driver {
	case config.DriverPostgres:
		if err := migrate.UpDSN(ctx, c.Storage.DSN); err != nil {
			return repository.Store{}, nil, nil, fmt.Errorf("migrate up: %w", err)
		}
		pool, err := pgxpool.New(ctx, c.Storage.DSN)
		if err != nil {
			return repository.Store{}, nil, nil, fmt.Errorf("pgxpool: %w", err)
		}
		lim := limiter.NewPG(pool, c.Auth.LoginWindow, c.Auth.MaxFails, c.Auth.BlockFor)
		return postgres.NewStore(&postgres.DB{Pool: pool}), lim, pool.Close, nil
	default:
		db, err := sqlite.Open(ctx, c.Storage.Path)
		if err != nil {
			return repository.Store{}, nil, nil, fmt.Errorf("open %s: %w", c.Storage.Path, err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return repository.Store{}, nil, nil, fmt.Errorf("migrate up: %w", err)
		}
		lim := limiter.NewMemory(c.Auth.LoginWindow, c.Auth.MaxFails, c.Auth.BlockFor)
		return sqlite.NewStore(db), lim, func() { _ = db.Close() }, nil
	}
}

func newApp(ctx context.Context, c config.Config, log *zap.Logger) (*app, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	store, lim, closeFn, err := openStore(ctx, c)
	if err != nil {
		return nil, err
	}

	accounts := service.NewAccountService(store.Accounts, store.ScrapeLogs, log.Named("accounts"))
	ingester := service.NewIngester(store.Transactions, store.Rules, loc, log.Named("ingest"))
	sc := scraper.NewExec(c.Scraper.Command, c.Scraper.Args, c.Scraper.Timeout, log.Named("scraper"))
	messenger := service.NewTelegramMessenger(store.Settings, telegram.New(c.Telegram.APIURL, log.Named("telegram")), log.Named("telegram"))

	return &app{
		cfg:          c,
		loc:          loc,
		log:          log,
		store:        store,
		accounts:     accounts,
		auth:         service.NewAuthService(store.Settings, store.Sessions, accounts, lim, c.Auth.SessionTTL, log),
		scrape:       service.NewScrapeService(store.Accounts, store.ScrapeLogs, accounts, sc, ingester, c.Scraper.LookbackDays, loc, log.Named("scrape")),
		transactions: service.NewTransactionService(store.Transactions),
		stats:        service.NewStatsService(store.Transactions, loc),
		rules:        service.NewRuleService(store.Rules, store.Transactions, log.Named("rules")),
		report:       service.NewReportService(store.Transactions, messenger, loc, log.Named("report")),
		messenger:    messenger,
		close:        closeFn,
	}, nil
}

// reportSpec returns the daily report schedule: the stored daily_report_time
// when set and valid, otherwise the configured cron expression.
func reportSpec(ctx context.Context, settings repository.SettingRepository, fallback string, log *zap.Logger) string {
	v, err := settings.Get(ctx, model.SettingDailyReportTime)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			log.Warn("read daily_report_time", zap.Error(err))
		}
		return fallback
	}
	h, m, err := service.ParseReportTime(v)
	if err != nil {
		log.Warn("ignoring stored daily_report_time", zap.String("value", v))
		return fallback
	}
	return scheduler.DailySpec(h, m)
}
