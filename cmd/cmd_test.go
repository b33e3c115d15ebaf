package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/preprints/internal/models"
	"github.com/lehigh-university-libraries/preprints/internal/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(t *testing.T, handler http.Handler) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("PREPRINTS_API_URL", srv.URL)
	t.Setenv("PREPRINTS_AUTH_URL", "")
	t.Setenv("PREPRINTS_STATE_DIR", t.TempDir())
	t.Setenv("PREPRINTS_RETRY_ATTEMPTS", "1")
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func listHandler(items []models.Preprint, seen *[]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/preprints/" {
			if seen != nil {
				*seen = append(*seen, r.URL.RawQuery)
			}
			_ = json.NewEncoder(w).Encode(items)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"browse", "list", "show", "open", "upload", "delete", "export", "inspect", "admin", "auth"} {
		assert.Contains(t, names, want)
	}
}

func TestListCmd_JSON(t *testing.T) {
	var seen []string
	testEnv(t, listHandler([]models.Preprint{{ID: 1, Title: "Prime Gaps", Category: "math"}}, &seen))

	out, err := execute(t, "", "list", "--category", "math", "--query", "gaps", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Prime Gaps"`)
	require.Len(t, seen, 1)
	assert.Contains(t, seen[0], "category=math")
	assert.Contains(t, seen[0], "q=gaps")
}

func TestListCmd_BadFormat(t *testing.T) {
	testEnv(t, listHandler(nil, nil))
	_, err := execute(t, "", "list", "--format", "xml")
	assert.Error(t, err)
}

func TestDeleteCmd_RequiresAdmin(t *testing.T) {
	testEnv(t, listHandler(nil, nil))
	_, err := execute(t, "", "delete", "3", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Admin mode is not active")
}

func TestAdminCmd_LoginStatusLogout(t *testing.T) {
	testEnv(t, listHandler(nil, nil))

	out, err := execute(t, "", "admin", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "inactive")

	_, err = execute(t, "secret\n", "admin", "login")
	require.NoError(t, err)

	out, err = execute(t, "", "admin", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Admin mode: active")

	_, err = execute(t, "", "admin", "logout")
	require.NoError(t, err)
	out, err = execute(t, "", "admin", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "inactive")
}

func TestAuthCmd_DisabledWithoutProvider(t *testing.T) {
	testEnv(t, listHandler(nil, nil))
	out, err := execute(t, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Sign-in is disabled")

	_, err = execute(t, "", "auth", "login")
	assert.Error(t, err)
}

func TestExportAndInspect(t *testing.T) {
	testEnv(t, listHandler([]models.Preprint{
		{ID: 1, Title: "Prime Gaps", Category: "math", Abstract: "Bounds."},
		{ID: 2, Title: "Graph Networks", Category: "ai"},
	}, nil))
	path := filepath.Join(t.TempDir(), "out.jsonl")

	_, err := execute(t, "", "export", "--out", path)
	require.NoError(t, err)

	rows, err := output.Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	out, err := execute(t, "", "inspect", path, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "2 rows")
	assert.Contains(t, out, "#1 Prime Gaps")
	assert.NotContains(t, out, "Graph Networks")
}

func TestParseID(t *testing.T) {
	id, err := parseID("12")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	for _, bad := range []string{"", "x", "0", "-3"} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}
