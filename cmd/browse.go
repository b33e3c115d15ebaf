package cmd

import (
	"log/slog"

	"github.com/lehigh-university-libraries/preprints/internal/app"
	"github.com/lehigh-university-libraries/preprints/internal/tui"
	"github.com/spf13/cobra"
)

func newBrowseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Open the interactive preprint browser",
		Long: `Opens the full-screen browser. You are asked to sign in first when an
identity provider is configured.

Logs are written to preprints.log in the state directory while the browser runs.`,
		Example: `  preprints browse`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logs, err := loadConfig(opts, true)
			if err != nil {
				return err
			}
			defer logs.Close()

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					slog.Warn("Unable to close local state", "err", err)
				}
			}()

			slog.Info("Starting browser", "api", cfg.APIURL, "auth", cfg.AuthEnabled())
			return tui.Run(cmd.Context(), a)
		},
	}
}
