// Package viewer hands preprint PDFs to the platform's external viewer.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/lehigh-university-libraries/preprints/internal/models"
)

// ErrNoPDF means the preprint has no attached file.
var ErrNoPDF = errors.New("preprint has no PDF attached")

// Opener shows a URL or local path to the user.
type Opener func(target string) error

// Command returns the platform command that opens target in its default
// application.
func Command(goos, target string) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", target)
	case "windows":
		return exec.Command("cmd", "/c", "start", "", target)
	default:
		return exec.Command("xdg-open", target)
	}
}

// Open launches the default application for target and waits for the
// launcher to exit.
func Open(target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return errors.New("empty target")
	}
	cmd := Command(runtime.GOOS, target)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch viewer: %w", err)
	}
	return cmd.Wait()
}

// Viewer opens a preprint's PDF, optionally downloading it first.
type Viewer struct {
	Fetcher *Fetcher
	Open    Opener
}

// New returns a viewer using the system opener.
func New(fetcher *Fetcher) *Viewer {
	return &Viewer{Fetcher: fetcher, Open: Open}
}

// Show opens p's PDF. With downloadDir set, the file is saved there and the
// local copy is opened; otherwise the https URL is handed over directly.
// It returns what was opened.
func (v *Viewer) Show(ctx context.Context, p models.Preprint, downloadDir string) (string, error) {
	pdfURL := p.PDFURL()
	if pdfURL == "" {
		return "", ErrNoPDF
	}

	target := pdfURL
	if downloadDir != "" {
		path, err := v.Fetcher.Download(ctx, pdfURL, downloadDir, fmt.Sprintf("preprint-%d.pdf", p.ID))
		if err != nil {
			return "", err
		}
		target = path
	}

	slog.Info("Opening PDF", "id", p.ID, "target", target)
	if err := v.Open(target); err != nil {
		return target, fmt.Errorf("failed to open %s: %w", target, err)
	}
	return target, nil
}
