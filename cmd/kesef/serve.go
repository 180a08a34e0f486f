package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/kesef/internal/scheduler"
	httpserver "github.com/and161185/kesef/internal/server/http"
	"github.com/and161185/kesef/internal/service"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API and run the daily report scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	logger.Info("starting",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr),
		zap.String("storage", cfg.Storage.Driver),
	)

	sched := scheduler.New(a.report, a.loc, logger.Named("scheduler"))
	if err := sched.Schedule(reportSpec(ctx, a.store.Settings, cfg.Report.Cron, logger)); err != nil {
		return err
	}
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sched.Stop(stopCtx)
	}()
	logger.Info("daily report scheduled", zap.String("spec", sched.Spec()), zap.String("timezone", a.loc.String()))

	settings := service.NewSettingsService(a.store.Settings, a.messenger, sched.ScheduleDaily, logger.Named("settings"))

	if !cfg.Log.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := httpserver.New(httpserver.Services{
		Auth:         a.auth,
		Accounts:     a.accounts,
		Scrape:       a.scrape,
		Transactions: a.transactions,
		Stats:        a.stats,
		Rules:        a.rules,
		Settings:     settings,
	}, httpserver.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SecureCookie:   cfg.Server.SecureCookie,
		SessionTTL:     cfg.Auth.SessionTTL,
	}, logger.Named("http"))

	err = srv.Run(ctx, cfg.Server.Addr)
	logger.Info("shutdown complete")
	return err
}
