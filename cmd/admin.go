package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/preprints/internal/app"
	"github.com/spf13/cobra"
)

func newAdminCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the locally held admin key",
		Long: `The admin key enables deleting preprints. It is stored in the local state
database until you log out and is only sent with delete requests.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "login [KEY]",
		Short: "Store the admin key",
		Long:  "Stores the admin key. When KEY is omitted it is read from stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			} else {
				fmt.Fprint(cmd.ErrOrStderr(), "Admin key: ")
				line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				key = strings.TrimSpace(line)
			}
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				if err := a.Admin.Login(cmd.Context(), key); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Admin mode enabled")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Forget the admin key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				if err := a.Admin.Logout(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Admin mode disabled")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report whether an admin key is held",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				if a.Admin.Active() {
					fmt.Fprintln(cmd.OutOrStdout(), "Admin mode: active")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Admin mode: inactive")
				}
				return nil
			})
		},
	})

	return cmd
}
