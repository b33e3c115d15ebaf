package cmd

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/preprints/internal/app"
	"github.com/lehigh-university-libraries/preprints/internal/models"
	"github.com/lehigh-university-libraries/preprints/internal/output"
	"github.com/spf13/cobra"
)

type queryFlags struct {
	text     string
	category string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&q.text, "query", "q", "", "Search text")
	cmd.Flags().StringVarP(&q.category, "category", "c", models.CategoryAll, "Category filter (all, cs, ai, math, physics)")
}

func (q *queryFlags) patch() models.QueryPatch {
	return models.QueryPatch{Text: &q.text, Category: &q.category}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var q queryFlags
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List preprints matching a search",
		Example: `  # Everything, newest first
  preprints list

  # AI papers mentioning transformers, as JSON
  preprints list --category ai --query transformers --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), opts, func(a *app.App) error {
				if err := a.View.SetQuery(cmd.Context(), q.patch()); err != nil {
					return err
				}
				return output.WriteList(cmd.OutOrStdout(), f, a.View.State().Items)
			})
		},
	}
	q.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "o", "table", "Output format (table, json, yaml)")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "show ID",
		Short:   "Show one preprint",
		Example: `  preprints show 12 --format yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), opts, func(a *app.App) error {
				p, err := a.Catalog.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return output.WriteOne(cmd.OutOrStdout(), f, *p)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "table", "Output format (table, json, yaml)")
	return cmd
}

func newOpenCmd(opts *rootOptions) *cobra.Command {
	var downloadDir string

	cmd := &cobra.Command{
		Use:   "open ID",
		Short: "Open a preprint's PDF in the system viewer",
		Example: `  # Open the stored PDF link in the default viewer
  preprints open 12

  # Save a local copy first and open that
  preprints open 12 --download ~/Downloads`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), opts, func(a *app.App) error {
				p, err := a.Catalog.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				target, err := a.Viewer.Show(cmd.Context(), *p, downloadDir)
				if err != nil {
					return err
				}
				slog.Debug("Opened PDF", "id", id, "target", target)
				fmt.Fprintln(cmd.OutOrStdout(), target)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&downloadDir, "download", "", "Download the PDF into this directory before opening")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var q queryFlags
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export matching preprints to Parquet or JSON Lines",
		Example: `  preprints export --out preprints.parquet
  preprints export --category math --out math.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(a *app.App) error {
				if err := a.View.SetQuery(cmd.Context(), q.patch()); err != nil {
					return err
				}
				items := a.View.State().Items
				if err := output.Export(out, items); err != nil {
					return err
				}
				slog.Info("Exported preprints", "count", len(items), "path", out)
				return nil
			})
		},
	}
	q.register(cmd)
	cmd.Flags().StringVar(&out, "out", "preprints.parquet", "Output file (.parquet or .jsonl)")
	return cmd
}

func newInspectCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "inspect FILE",
		Short:   "Print the rows of an exported file",
		Example: `  preprints inspect preprints.parquet --limit 5`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := output.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows\n\n", args[0], len(rows))
			for i, r := range rows {
				if limit > 0 && i >= limit {
					break
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%d] #%d %s\n", i+1, r.ID, r.Title)
				fmt.Fprintf(cmd.OutOrStdout(), "    category=%s uploaded=%s version=%d", r.Category, r.UploadedAt, r.Version)
				if r.DOI != "" {
					fmt.Fprintf(cmd.OutOrStdout(), " doi=%s", r.DOI)
				}
				fmt.Fprintln(cmd.OutOrStdout())
				if r.Abstract != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", output.Truncate(r.Abstract, 100))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum rows to print (0 for all)")
	return cmd
}
