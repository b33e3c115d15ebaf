package viewer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// maxPDFSize caps a single download
const maxPDFSize = 100 << 20

// Fetcher retrieves PDFs from the file store
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new PDF fetcher
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Download saves the PDF at rawURL into dir and returns the written path.
// The file name comes from the URL, falling back to fallbackName.
func (f *Fetcher) Download(ctx context.Context, rawURL, dir, fallbackName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch PDF: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("PDF URL returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read PDF data: %w", err)
	}
	if len(data) > maxPDFSize {
		return "", fmt.Errorf("PDF larger than %d bytes", maxPDFSize)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", fmt.Errorf("downloaded file is not a PDF")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	outputPath := filepath.Join(dir, fileName(rawURL, fallbackName))
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write PDF file: %w", err)
	}

	slog.Info("Downloaded PDF", "url", rawURL, "path", outputPath, "bytes", len(data))
	return outputPath, nil
}

// fileName picks a safe local name for the file behind rawURL
func fileName(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || !strings.HasSuffix(strings.ToLower(base), ".pdf") {
		return fallback
	}
	return base
}
