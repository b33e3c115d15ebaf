package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/preprints/internal/models"
	"github.com/lehigh-university-libraries/preprints/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, retry.Policy{Attempts: 4, Delay: time.Millisecond}), srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestList_QueryParameters(t *testing.T) {
	tests := []struct {
		name     string
		query    models.Query
		wantRaw  string
		wantPath string
	}{
		{name: "all categories and empty text send no params", query: models.DefaultQuery(), wantRaw: "", wantPath: "/preprints/"},
		{name: "text only", query: models.Query{Text: "graphs", Category: "all"}, wantRaw: "q=graphs", wantPath: "/preprints/"},
		{name: "category only", query: models.Query{Category: "math"}, wantRaw: "category=math", wantPath: "/preprints/"},
		{name: "both", query: models.Query{Text: "neural nets", Category: "ai"}, wantRaw: "category=ai&q=neural+nets", wantPath: "/preprints/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, tt.wantPath, r.URL.Path)
				assert.Equal(t, tt.wantRaw, r.URL.RawQuery)
				writeJSON(t, w, http.StatusOK, []models.Preprint{})
			})
			_, err := c.List(context.Background(), tt.query)
			require.NoError(t, err)
		})
	}
}

func TestList_PreservesServerOrder(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, []models.Preprint{{ID: 3}, {ID: 1}, {ID: 2}})
	})

	got, err := c.List(context.Background(), models.DefaultQuery())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{3, 1, 2}, []int{got[0].ID, got[1].ID, got[2].ID})
}

func TestList_EmptyIsSuccess(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	})

	got, err := c.List(context.Background(), models.DefaultQuery())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestList_RetriesColdBackend(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(t, w, http.StatusOK, []models.Preprint{{ID: 1}})
	})

	got, err := c.List(context.Background(), models.DefaultQuery())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.EqualValues(t, 3, calls.Load())
}

func TestList_UnavailableAfterFourAttempts(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.List(context.Background(), models.DefaultQuery())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Equal(t, UnavailableMessage, Message(err))
	assert.EqualValues(t, 4, calls.Load())
}

func TestGet(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/preprints/7/":
			writeJSON(t, w, http.StatusOK, models.Preprint{ID: 7, Title: "Seven"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	p, err := c.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Seven", p.Title)

	_, err = c.Get(context.Background(), 8)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Get(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGet_ServerErrorsBecomeNotFound(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Get(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 4, calls.Load())
}

func validUpload() models.UploadRequest {
	return models.UploadRequest{
		Title:      "Graph coloring",
		Abstract:   "We color graphs.",
		Category:   "FDS",
		CourseCode: "FDS",
		Authors:    "A, B",
		Faculty:    "Dr. C",
		MintDOI:    true,
		FileName:   "paper.pdf",
		FileType:   models.PDFMediaType,
		FileData:   pdfBytes,
	}
}

func TestCreate_SendsMultipartForm(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/preprints/", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "Graph coloring", r.FormValue("title"))
		assert.Equal(t, "We color graphs.", r.FormValue("abstract"))
		assert.Equal(t, "FDS", r.FormValue("category"))
		assert.Equal(t, "FDS", r.FormValue("course_code"))
		assert.Equal(t, "A, B", r.FormValue("authors"))
		assert.Equal(t, "Dr. C", r.FormValue("faculty"))
		assert.Equal(t, "true", r.FormValue("mint_doi"))

		f, hdr, err := r.FormFile("pdf_file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "paper.pdf", hdr.Filename)
		assert.Equal(t, models.PDFMediaType, hdr.Header.Get("Content-Type"))
		data, _ := io.ReadAll(f)
		assert.Equal(t, pdfBytes, data)

		writeJSON(t, w, http.StatusCreated, models.Preprint{ID: 42, Title: "Graph coloring"})
	})

	p, err := c.Create(context.Background(), validUpload())
	require.NoError(t, err)
	assert.Equal(t, 42, p.ID)
}

func TestCreate_EmptyCategoryFallsBack(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, models.FallbackCategory, r.FormValue("category"))
		assert.Equal(t, "false", r.FormValue("mint_doi"))
		writeJSON(t, w, http.StatusCreated, models.Preprint{ID: 1})
	})

	req := validUpload()
	req.Category = ""
	req.MintDOI = false
	_, err := c.Create(context.Background(), req)
	require.NoError(t, err)
}

func TestCreate_InvalidInputNeverReachesNetwork(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	tests := []struct {
		name    string
		mutate  func(*models.UploadRequest)
		wantMsg string
	}{
		{name: "missing file", mutate: func(r *models.UploadRequest) { r.FileData = nil }, wantMsg: "Please select a PDF file"},
		{name: "wrong media type", mutate: func(r *models.UploadRequest) { r.FileType = "image/png" }, wantMsg: "Please select a PDF file"},
		{name: "blank title", mutate: func(r *models.UploadRequest) { r.Title = "   " }, wantMsg: "Title and abstract are required"},
		{name: "empty abstract", mutate: func(r *models.UploadRequest) { r.Abstract = "" }, wantMsg: "Title and abstract are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validUpload()
			tt.mutate(&req)
			_, err := c.Create(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, tt.wantMsg, Message(err))
		})
	}
	assert.EqualValues(t, 0, calls.Load())
}

func TestCreate_ServerRejection(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind error
		wantMsg  string
	}{
		{name: "server error message", status: http.StatusBadRequest, body: `{"error":"Title already exists"}`, wantKind: ErrValidationFailed, wantMsg: "Title already exists"},
		{name: "no JSON body", status: http.StatusBadRequest, body: "nope", wantKind: ErrValidationFailed, wantMsg: "Upload failed"},
		{name: "server fault", status: http.StatusInternalServerError, body: "", wantKind: ErrValidationFailed, wantMsg: "Upload failed"},
		{name: "gateway fault with message", status: http.StatusBadGateway, body: `{"error":"Storage bucket unreachable"}`, wantKind: ErrValidationFailed, wantMsg: "Storage bucket unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Create(context.Background(), validUpload())
			assert.ErrorIs(t, err, tt.wantKind)
			assert.Equal(t, tt.wantMsg, Message(err))
			assert.EqualValues(t, 1, calls.Load(), "create must not be retried")
		})
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind error
	}{
		{name: "success", status: http.StatusNoContent},
		{name: "ok with body", status: http.StatusOK},
		{name: "bad key", status: http.StatusUnauthorized, wantKind: ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, wantKind: ErrUnauthorized},
		{name: "missing", status: http.StatusNotFound, wantKind: ErrNotFound},
		{name: "other", status: http.StatusBadGateway, wantKind: ErrBackendError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/admin/preprints/5/", r.URL.Path)
				assert.Equal(t, "s3cret", r.Header.Get(AdminKeyHeader))
				w.WriteHeader(tt.status)
			})
			err := c.Delete(context.Background(), 5, "s3cret")
			if tt.wantKind == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantKind)
			}
			assert.EqualValues(t, 1, calls.Load(), "delete must not be retried")
		})
	}
}

func TestDelete_RequiresToken(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	err := c.Delete(context.Background(), 5, "  ")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.EqualValues(t, 0, calls.Load())
}

func TestDelete_ServerErrorMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "Invalid admin key"})
	})

	err := c.Delete(context.Background(), 1, "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Invalid admin key", Message(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestLoadAttachment(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(pdfPath, pdfBytes, 0644))
	txtPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("plain words"), 0644))

	name, mediaType, data, err := LoadAttachment(pdfPath)
	require.NoError(t, err)
	assert.Equal(t, "paper.pdf", name)
	assert.Equal(t, models.PDFMediaType, mediaType)
	assert.Equal(t, pdfBytes, data)

	_, mediaType, _, err = LoadAttachment(txtPath)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mediaType)

	_, _, _, err = LoadAttachment(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}
