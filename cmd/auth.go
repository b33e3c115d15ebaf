package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/preprints/internal/app"
	"github.com/lehigh-university-libraries/preprints/internal/session"
	"github.com/spf13/cobra"
)

func newAuthCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in with your institutional account",
		Long: `Sign-in uses the configured identity provider (PREPRINTS_AUTH_URL). Only
accounts whose email ends in PREPRINTS_ALLOWED_DOMAIN are accepted.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Sign in through the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				if err := a.SignIn(cmd.Context()); err != nil {
					return err
				}
				snap := a.Guard.Snapshot()
				if snap.State != session.Authenticated {
					return fmt.Errorf("%w: %s", app.ErrSignInRequired, snap.Message)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", snap.Email)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				if a.Guard == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Sign-in is disabled")
					return nil
				}
				if err := a.Guard.SignOut(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current sign-in state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				if a.Guard == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Sign-in is disabled (no identity provider configured)")
					return nil
				}
				snap := a.Guard.Check(cmd.Context())
				switch snap.State {
				case session.Authenticated:
					fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", snap.Email)
				default:
					fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
					if snap.Message != "" {
						fmt.Fprintln(cmd.OutOrStdout(), snap.Message)
					}
				}
				return nil
			})
		},
	})

	return cmd
}
