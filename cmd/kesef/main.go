// Command kesef runs the household finance dashboard: the HTTP API with its
// daily report scheduler, and one-shot maintenance commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/and161185/kesef/internal/config"
	"github.com/and161185/kesef/internal/logging"
)

var (
	cfgFile string
	version = "dev"

	v      = viper.New()
	cfg    config.Config
	logger = zap.NewNop()

	rootCmd = &cobra.Command{
		Use:   "kesef",
		Short: "Household finance dashboard for Israeli banks and card companies",
		Long: `kesef scrapes bank and credit card accounts, stores categorized
transactions and serves a dashboard API with a daily Telegram summary.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./kesef.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-dev", false, "human-readable console logs")
	rootCmd.PersistentFlags().String("db", "", "sqlite database file (overrides storage.path)")

	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log.dev", rootCmd.PersistentFlags().Lookup("log-dev"))
	_ = v.BindPFlag("storage.path", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(passwdCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	c, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	l, err := logging.New(c.Log.Level, c.Log.Dev)
	if err != nil {
		return err
	}
	cfg, logger = c, l
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "kesef", version)
		},
	}
}
