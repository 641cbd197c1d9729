package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pokertracker/internal/core"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var in core.UserInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, false, func(cmd *cobra.Command, _ []string, a *app) error {
			u, err := a.auth.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s) with id %s\n", u.User.Username, u.User.Email, u.User.ID)
			return nil
		}),
	}
	add.Flags().StringVar(&in.Email, "email", "", "email address")
	add.Flags().StringVar(&in.Username, "username", "", "display name, 3-50 characters")
	add.Flags().StringVar(&in.Password, "password", "", "password, at least 8 characters")
	_ = add.MarkFlagRequired("email")
	_ = add.MarkFlagRequired("username")
	_ = add.MarkFlagRequired("password")

	cmd.AddCommand(add)
	return cmd
}
