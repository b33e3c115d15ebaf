package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/preprints/internal/models"
	"github.com/lehigh-university-libraries/preprints/internal/retry"
)

// DefaultBaseURL is the hosted preprint API
const DefaultBaseURL = "https://rvu-preprints-api.onrender.com/api"

// AdminKeyHeader carries the privileged token on delete requests
const AdminKeyHeader = "X-ADMIN-KEY"

// Client represents a preprint API client
type Client struct {
	BaseURL    string
	Retry      retry.Policy
	httpClient *http.Client
}

// NewClient creates a new preprint API client
func NewClient(baseURL string, timeout time.Duration, policy retry.Policy) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Retry:   policy,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// List fetches the preprints matching query. Transient failures are retried;
// once the attempts run out the error is ErrBackendUnavailable. An empty
// slice is a valid result.
func (c *Client) List(ctx context.Context, query models.Query) ([]models.Preprint, error) {
	params := url.Values{}
	if query.Text != "" {
		params.Set("q", query.Text)
	}
	if query.Category != "" && query.Category != models.CategoryAll {
		params.Set("category", query.Category)
	}

	listURL := c.BaseURL + "/preprints/"
	if len(params) > 0 {
		listURL += "?" + params.Encode()
	}

	var preprints []models.Preprint
	err := retry.Do(ctx, c.Retry, "list preprints", func(ctx context.Context) error {
		var page []models.Preprint
		if err := c.getJSON(ctx, listURL, &page); err != nil {
			return err
		}
		preprints = page
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("Preprint list unavailable", "url", listURL, "err", err)
		return nil, newAPIError(ErrBackendUnavailable, 0, UnavailableMessage, err)
	}

	if preprints == nil {
		preprints = []models.Preprint{}
	}
	return preprints, nil
}

// Get fetches a single preprint. A non-success response surviving the retries
// is reported as ErrNotFound.
func (c *Client) Get(ctx context.Context, id int) (*models.Preprint, error) {
	getURL := fmt.Sprintf("%s/preprints/%d/", c.BaseURL, id)

	var preprint models.Preprint
	var lastStatus int
	err := retry.Do(ctx, c.Retry, "get preprint", func(ctx context.Context) error {
		err := c.getJSON(ctx, getURL, &preprint)
		var se *statusError
		if errors.As(err, &se) {
			lastStatus = se.Status
			if se.Status == http.StatusNotFound {
				return retry.Permanent(err)
			}
		}
		return err
	})
	if err == nil {
		return &preprint, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if lastStatus != 0 {
		return nil, newAPIError(ErrNotFound, lastStatus, "Failed to fetch preprint", err)
	}
	return nil, newAPIError(ErrBackendUnavailable, 0, UnavailableMessage, err)
}

// Create uploads a new preprint with its PDF. It is never retried.
func (c *Client) Create(ctx context.Context, req models.UploadRequest) (*models.Preprint, error) {
	if err := ValidateUpload(req); err != nil {
		return nil, err
	}

	body, contentType, err := encodeUpload(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode upload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/preprints/", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.do(httpReq)
	if err != nil {
		return nil, newAPIError(ErrBackendUnavailable, 0, "Upload failed: "+err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Any rejected submission is reported as a validation failure.
		msg := serverMessage(resp.Body, "Upload failed")
		slog.Warn("Upload rejected", "status", resp.StatusCode, "message", msg)
		return nil, newAPIError(ErrValidationFailed, resp.StatusCode, msg, nil)
	}

	var created models.Preprint
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode created preprint: %w", err)
	}
	slog.Info("Preprint uploaded", "id", created.ID, "title", created.Title)
	return &created, nil
}

// Delete removes a preprint using the admin key. It is never retried.
func (c *Client) Delete(ctx context.Context, id int, token string) error {
	if strings.TrimSpace(token) == "" {
		return newAPIError(ErrUnauthorized, 0, "An admin key is required to delete preprints", nil)
	}

	deleteURL := fmt.Sprintf("%s/admin/preprints/%d/", c.BaseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	req.Header.Set(AdminKeyHeader, token)

	resp, err := c.do(req)
	if err != nil {
		return newAPIError(ErrBackendUnavailable, 0, "Error deleting preprint: "+err.Error(), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		slog.Info("Preprint deleted", "id", id)
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return newAPIError(ErrUnauthorized, resp.StatusCode, serverMessage(resp.Body, "Admin key was rejected"), nil)
	case resp.StatusCode == http.StatusNotFound:
		return newAPIError(ErrNotFound, resp.StatusCode, serverMessage(resp.Body, "Preprint not found"), nil)
	default:
		return newAPIError(ErrBackendError, resp.StatusCode, serverMessage(resp.Body, "Failed to delete preprint"), nil)
	}
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &statusError{Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-Request-ID", uuid.NewString())
	return c.httpClient.Do(req)
}

// encodeUpload builds the multipart body in the field order the API expects
func encodeUpload(req models.UploadRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	category := req.Category
	if category == "" {
		category = models.FallbackCategory
	}

	fields := []struct{ name, value string }{
		{"title", req.Title},
		{"abstract", req.Abstract},
		{"category", category},
		{"course_code", req.CourseCode},
		{"authors", req.Authors},
		{"faculty", req.Faculty},
		{"mint_doi", strconv.FormatBool(req.MintDOI)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = "preprint.pdf"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="pdf_file"; filename=%q`, fileName))
	h.Set("Content-Type", req.FileType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.FileData); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// serverMessage returns the `error` field of a JSON error body, or fallback
func serverMessage(body io.Reader, fallback string) string {
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil || len(data) == 0 {
		return fallback
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error == "" {
		return fallback
	}
	return payload.Error
}
