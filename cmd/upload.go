package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/preprints/internal/app"
	"github.com/lehigh-university-libraries/preprints/internal/catalog"
	"github.com/lehigh-university-libraries/preprints/internal/models"
	"github.com/lehigh-university-libraries/preprints/internal/suggest"
	"github.com/spf13/cobra"
)

type uploadFlags struct {
	title      string
	abstract   string
	category   string
	courseCode string
	authors    string
	faculty    string
	mintDOI    bool
	file       string
	suggest    bool
}

func (f uploadFlags) request() (models.UploadRequest, error) {
	req := models.UploadRequest{
		Title:      f.title,
		Abstract:   f.abstract,
		Category:   f.category,
		CourseCode: f.courseCode,
		Authors:    f.authors,
		Faculty:    f.faculty,
		MintDOI:    f.mintDOI,
	}
	if f.file != "" {
		name, mediaType, data, err := catalog.LoadAttachment(f.file)
		if err != nil {
			return req, err
		}
		req.FileName, req.FileType, req.FileData = name, mediaType, data
	}
	return req, nil
}

func newUploadCmd(opts *rootOptions) *cobra.Command {
	var f uploadFlags

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a new preprint with its PDF",
		Long: `Uploads a preprint. A PDF file, a title and an abstract are required.

With --suggest, missing fields are drafted from the PDF by the configured
suggestion provider (SUGGEST_PROVIDER=gemini|openai) before uploading.`,
		Example: `  preprints upload --file paper.pdf --title "Sparse Attention" \
    --abstract "We study..." --category FDS --course-code CS301

  # Let the suggestion provider fill in the title and abstract
  preprints upload --file paper.pdf --suggest`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request()
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), opts, func(a *app.App) error {
				if f.suggest && len(req.FileData) > 0 {
					svc, err := a.Suggester()
					if err != nil {
						return err
					}
					sug, err := svc.Suggest(cmd.Context(), suggest.Document{
						Name:      req.FileName,
						MediaType: req.FileType,
						Data:      req.FileData,
					})
					if err != nil {
						return fmt.Errorf("failed to suggest metadata: %w", err)
					}
					suggest.Apply(&req, sug)
					slog.Info("Applied suggested metadata", "title", req.Title)
				}

				created, err := a.Upload(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded preprint #%d: %s\n", created.ID, created.Title)
				if doi := models.Deref(created.DOI); doi != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "DOI: %s\n", doi)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&f.title, "title", "", "Paper title")
	cmd.Flags().StringVar(&f.abstract, "abstract", "", "Paper abstract")
	cmd.Flags().StringVar(&f.category, "category", models.DefaultUploadCategory, "Category (FDS, FDE, TOC, OS)")
	cmd.Flags().StringVar(&f.courseCode, "course-code", "", "Course code, e.g. CS301")
	cmd.Flags().StringVar(&f.authors, "authors", "", "Comma separated author names")
	cmd.Flags().StringVar(&f.faculty, "faculty", "", "Supervising faculty")
	cmd.Flags().BoolVar(&f.mintDOI, "mint-doi", false, "Ask the repository to mint a DOI")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Path to the PDF")
	cmd.Flags().BoolVar(&f.suggest, "suggest", false, "Draft missing metadata from the PDF")

	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Permanently delete a preprint (admin mode only)",
		Example: `  preprints admin login
  preprints delete 12`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), opts, func(a *app.App) error {
				if !a.Admin.Active() {
					return &catalog.APIError{Kind: catalog.ErrUnauthorized, Message: "Admin mode is not active, run `preprints admin login` first"}
				}
				if !yes {
					p, err := a.Catalog.Get(cmd.Context(), id)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Delete %q?\nThis will permanently remove the entry and its PDF. [y/N] ", p.Title)
					answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
					if ans := strings.ToLower(strings.TrimSpace(answer)); ans != "y" && ans != "yes" {
						fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
						return nil
					}
				}
				if err := a.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted preprint #%d\n", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
