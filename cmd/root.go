package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	verbose bool
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "preprints",
		Short: "Browse and publish student preprints from the terminal",
		Long: `Preprints is a terminal front end for the student preprint catalog.

Signed-in students can search and read preprints, upload new papers with
their PDF, and administrators holding the admin key can remove entries.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(newBrowseCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newShowCmd(opts))
	cmd.AddCommand(newOpenCmd(opts))
	cmd.AddCommand(newUploadCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newAdminCmd(opts))
	cmd.AddCommand(newAuthCmd(opts))

	return cmd
}
