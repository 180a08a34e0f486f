package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func passwdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Set the master password, or change it and re-encrypt stored credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			p := newPrompter(os.Stdin, cmd.ErrOrStderr())

			setup, err := a.auth.IsSetup(ctx)
			if err != nil {
				return err
			}
			if !setup {
				pw, err := p.newSecret("New master password")
				if err != nil {
					return err
				}
				sess, err := a.auth.Setup(ctx, pw)
				if err != nil {
					return err
				}
				_ = a.auth.Logout(ctx, sess.Token)
				fmt.Fprintln(out, "master password set")
				return nil
			}

			old, err := p.secret("Current master password")
			if err != nil {
				return err
			}
			pw, err := p.newSecret("New master password")
			if err != nil {
				return err
			}
			rep, err := a.auth.ChangeMasterPassword(ctx, old, pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "master password changed; %d accounts re-encrypted\n", rep.Reencrypted)
			if len(rep.Failed) > 0 {
				fmt.Fprintf(out, "credentials of accounts %v could not be decrypted and must be re-entered\n", rep.Failed)
			}
			return nil
		},
	}
}
