package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token for --user",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, true, func(cmd *cobra.Command, _ []string, a *app) error {
			if len(a.cfg.JWTSecret) < 16 {
				return errors.New("JWT_SECRET must be set (16+ characters) to match the API server")
			}
			res, err := a.auth.IssueToken(cmd.Context(), a.identity)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Token)
			fmt.Fprintf(cmd.ErrOrStderr(), "Expires %s\n", res.ExpiresAt.Format(time.RFC3339))
			return nil
		}),
	}
}
