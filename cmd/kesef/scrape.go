package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/and161185/kesef/internal/model"
)

// cliClient is the limiter key for logins made from the command line.
const cliClient = "cli"

func scrapeCmd() *cobra.Command {
	var accountID int64
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape active accounts (or one account) and store new transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			pw, err := newPrompter(os.Stdin, cmd.ErrOrStderr()).secret("Master password")
			if err != nil {
				return err
			}
			sess, err := a.auth.Login(ctx, pw, cliClient)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			defer func() { _ = a.auth.Logout(ctx, sess.Token) }()

			var id *int64
			if cmd.Flags().Changed("account") {
				id = &accountID
			}
			sum, err := a.scrape.Run(ctx, id, sess.MasterPassword)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
	cmd.Flags().Int64Var(&accountID, "account", 0, "scrape only this account id")
	return cmd
}

func printSummary(w io.Writer, s model.ScrapeSummary) {
	for _, r := range s.Results {
		if r.Status == model.ScrapeSuccess {
			fmt.Fprintf(w, "  ok    #%d %s: %d transactions\n", r.AccountID, r.AccountName, r.TransactionsCount)
			continue
		}
		fmt.Fprintf(w, "  error #%d %s: %s\n", r.AccountID, r.AccountName, r.ErrorMessage)
	}
	fmt.Fprintf(w, "%d accounts, %d ok, %d failed, %d transactions (run %s)\n",
		s.TotalAccounts, s.SuccessCount, s.ErrorCount, s.TotalTransactions, s.RunID)
}
