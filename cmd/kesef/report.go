package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Send yesterday's spending summary to Telegram now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			if dryRun {
				text, err := a.report.Generate(ctx, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}
			sent, err := a.report.Send(ctx, time.Now())
			if err != nil {
				return err
			}
			if !sent {
				return errors.New("report was not delivered; check telegram_bot_token and telegram_chat_id")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "report sent")
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the report instead of sending it")
	return cmd
}
