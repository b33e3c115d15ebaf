package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lehigh-university-libraries/preprints/internal/app"
	"github.com/lehigh-university-libraries/preprints/internal/catalog"
	"github.com/lehigh-university-libraries/preprints/internal/config"
	"github.com/lehigh-university-libraries/preprints/internal/models"
	"github.com/lehigh-university-libraries/preprints/internal/storage"
	"github.com/lehigh-university-libraries/preprints/internal/viewmodel"
)

type fakeCatalog struct {
	mu      sync.Mutex
	items   []models.Preprint
	fail    bool
	queries []models.Query
	deleted []int
}

func (f *fakeCatalog) List(_ context.Context, q models.Query) ([]models.Preprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.fail {
		return nil, &catalog.APIError{Kind: catalog.ErrBackendUnavailable, Message: catalog.UnavailableMessage}
	}
	var out []models.Preprint
	for _, p := range f.items {
		if q.Category != models.CategoryAll && !strings.EqualFold(p.Category, q.Category) {
			continue
		}
		if q.Text != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(q.Text)) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalog) Get(_ context.Context, id int) (*models.Preprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.items {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (f *fakeCatalog) Create(_ context.Context, req models.UploadRequest) (*models.Preprint, error) {
	return &models.Preprint{ID: 99, Title: req.Title, Abstract: req.Abstract, Category: req.Category}, nil
}

func (f *fakeCatalog) Delete(_ context.Context, id int, token string) error {
	if token != "secret" {
		return &catalog.APIError{Kind: catalog.ErrUnauthorized, Status: 403, Message: "Invalid admin key"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCatalog) lastQuery() models.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return models.Query{}
	}
	return f.queries[len(f.queries)-1]
}

func samplePreprints() []models.Preprint {
	return []models.Preprint{
		{ID: 1, Title: "Graph Neural Networks", Abstract: "Message passing on graphs.", Category: "ai"},
		{ID: 2, Title: "Prime Gaps", Abstract: "Bounds on gaps between primes.", Category: "math"},
		{ID: 3, Title: "Cache Oblivious Trees", Abstract: "B-trees without tuning.", Category: "cs"},
	}
}

func newTestModel(t *testing.T, fc *fakeCatalog) appModel {
	t.Helper()
	cfg := &config.Config{AllowedDomain: "@rvu.edu.in"}
	a := app.Assemble(context.Background(), cfg, app.Deps{
		Catalog: fc,
		Slots:   storage.NewMemoryStore(),
	})
	t.Cleanup(func() { _ = a.Close() })
	return newAppModel(context.Background(), a)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m appModel, msg tea.Msg) (appModel, tea.Cmd) {
	t.Helper()
	mm, cmd := m.Update(msg)
	out, ok := mm.(appModel)
	if !ok {
		t.Fatalf("expected appModel, got %T", mm)
	}
	return out, cmd
}

// settle runs a single command and feeds its message back into the model.
func settle(t *testing.T, m appModel, cmd tea.Cmd) appModel {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	m, _ = send(t, m, cmd())
	return m
}

func loaded(t *testing.T, fc *fakeCatalog) appModel {
	t.Helper()
	m := newTestModel(t, fc)
	return settle(t, m, m.refreshCmd())
}

func TestBrowse_NoAuthStartsOnCatalog(t *testing.T) {
	m := newTestModel(t, &fakeCatalog{})
	if m.screen != screenBrowse {
		t.Fatalf("expected browse screen without an identity provider")
	}
}

func TestBrowse_EmptyState(t *testing.T) {
	m := loaded(t, &fakeCatalog{})
	v := m.View()
	if !strings.Contains(v, "No preprints found") || !strings.Contains(v, "Try adjusting your search filters") {
		t.Fatalf("expected empty state, got:\n%s", v)
	}
	if !strings.Contains(v, "Select a preprint") {
		t.Fatalf("expected detail placeholder, got:\n%s", v)
	}
}

func TestBrowse_CardAbstractIsTruncated(t *testing.T) {
	long := strings.Repeat("a", 200)
	if got := truncateAbstract(long, cardAbstractLimit); got != strings.Repeat("a", 150)+"..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncateAbstract("short", cardAbstractLimit); got != "short" {
		t.Fatalf("short abstract changed: %q", got)
	}
}

func TestBrowse_CategoryCycleIssuesQuery(t *testing.T) {
	fc := &fakeCatalog{items: samplePreprints()}
	m := loaded(t, fc)

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if got := m.app.View.State().Status; got != viewmodel.StatusLoading {
		t.Fatalf("expected loading while the query is in flight, got %v", got)
	}
	m = settle(t, m, cmd)

	want := models.SearchCategories[1].Code
	if q := fc.lastQuery(); q.Category != want {
		t.Fatalf("expected category %q, got %q", want, q.Category)
	}
	st := m.app.View.State()
	if len(st.Items) != 1 || st.Items[0].ID != 3 {
		t.Fatalf("expected only the cs preprint, got %+v", st.Items)
	}
}

func TestBrowse_SearchAppliesText(t *testing.T) {
	fc := &fakeCatalog{items: samplePreprints()}
	m := loaded(t, fc)

	m, _ = send(t, m, keyRunes("/"))
	if !m.searching {
		t.Fatalf("expected search input to be focused")
	}
	m, _ = send(t, m, keyRunes("prime"))
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = settle(t, m, cmd)

	if q := fc.lastQuery(); q.Text != "prime" || q.Category != models.CategoryAll {
		t.Fatalf("unexpected query: %+v", q)
	}
	if st := m.app.View.State(); len(st.Items) != 1 || st.Items[0].ID != 2 {
		t.Fatalf("unexpected items: %+v", st.Items)
	}
}

func TestBrowse_StaleRefreshIsDiscarded(t *testing.T) {
	fc := &fakeCatalog{items: samplePreprints()}
	m := loaded(t, fc)

	ai, mathCat := "ai", "math"
	older := m.app.View.BeginQuery(models.QueryPatch{Category: &ai})
	newer := m.app.View.BeginQuery(models.QueryPatch{Category: &mathCat})

	m, _ = send(t, m, refreshDoneMsg{ticket: newer, items: []models.Preprint{samplePreprints()[1]}})
	m, _ = send(t, m, refreshDoneMsg{ticket: older, items: []models.Preprint{samplePreprints()[0]}})

	st := m.app.View.State()
	if len(st.Items) != 1 || st.Items[0].ID != 2 {
		t.Fatalf("expected the newer math result to win, got %+v", st.Items)
	}
	if st.Status != viewmodel.StatusIdle {
		t.Fatalf("expected idle, got %v", st.Status)
	}
}

func TestBrowse_ErrorPanelKeepsItems(t *testing.T) {
	fc := &fakeCatalog{items: samplePreprints()}
	m := loaded(t, fc)

	fc.mu.Lock()
	fc.fail = true
	fc.mu.Unlock()

	m, cmd := send(t, m, keyRunes("r"))
	m = settle(t, m, cmd)

	st := m.app.View.State()
	if st.Status != viewmodel.StatusError || len(st.Items) != 3 {
		t.Fatalf("expected error with stale items, got status=%v items=%d", st.Status, len(st.Items))
	}
	v := m.View()
	if !strings.Contains(v, "r: retry") {
		t.Fatalf("expected retry hint, got:\n%s", v)
	}
	if !strings.Contains(v, "Graph Neural Networks") {
		t.Fatalf("expected previous items to stay visible, got:\n%s", v)
	}
}

func TestBrowse_SelectAndClear(t *testing.T) {
	m := loaded(t, &fakeCatalog{items: samplePreprints()})

	m, _ = send(t, m, keyRunes("j"))
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	st := m.app.View.State()
	if st.Selected == nil || st.Selected.ID != 2 {
		t.Fatalf("expected second preprint selected, got %+v", st.Selected)
	}

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.app.View.State().Selected != nil {
		t.Fatalf("expected selection cleared")
	}
}

func TestDelete_HiddenWithoutAdmin(t *testing.T) {
	fc := &fakeCatalog{items: samplePreprints()}
	m := loaded(t, fc)
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if strings.Contains(m.View(), "d: delete") {
		t.Fatalf("delete action must not be offered without admin mode")
	}
	m, cmd := send(t, m, keyRunes("d"))
	if m.modal != modalNone || cmd != nil {
		t.Fatalf("expected d to do nothing without admin mode")
	}
}

func TestDelete_ConfirmFlow(t *testing.T) {
	fc := &fakeCatalog{items: samplePreprints()}
	m := loaded(t, fc)
	if err := m.app.Admin.Login(context.Background(), "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	v := m.View()
	if !strings.Contains(v, "ADMIN MODE") || !strings.Contains(v, "d: delete") {
		t.Fatalf("expected admin badge and delete action, got:\n%s", v)
	}

	m, _ = send(t, m, keyRunes("d"))
	if m.modal != modalConfirmDelete {
		t.Fatalf("expected confirm modal")
	}
	if v := m.View(); !strings.Contains(v, `Delete "Graph Neural Networks"?`) {
		t.Fatalf("expected confirm text, got:\n%s", v)
	}

	m, cmd := send(t, m, keyRunes("y"))
	m = settle(t, m, cmd)

	if m.modal != modalNone {
		t.Fatalf("expected modal closed after delete")
	}
	st := m.app.View.State()
	if len(st.Items) != 2 || st.Selected != nil {
		t.Fatalf("expected item removed and selection cleared, got items=%d selected=%v", len(st.Items), st.Selected)
	}
	if len(fc.deleted) != 1 || fc.deleted[0] != 1 {
		t.Fatalf("expected delete of id 1, got %v", fc.deleted)
	}
}

func TestDelete_CancelKeepsItem(t *testing.T) {
	fc := &fakeCatalog{items: samplePreprints()}
	m := loaded(t, fc)
	_ = m.app.Admin.Login(context.Background(), "secret")
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = send(t, m, keyRunes("d"))
	m, cmd := send(t, m, keyRunes("n"))

	if cmd != nil || m.modal != modalNone {
		t.Fatalf("expected cancel without a command")
	}
	if len(m.app.View.State().Items) != 3 || len(fc.deleted) != 0 {
		t.Fatalf("expected nothing deleted")
	}
}

func TestDelete_RejectedKeyShowsAlert(t *testing.T) {
	fc := &fakeCatalog{items: samplePreprints()}
	m := loaded(t, fc)
	_ = m.app.Admin.Login(context.Background(), "wrong")
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = send(t, m, keyRunes("d"))
	m, cmd := send(t, m, keyRunes("y"))
	m = settle(t, m, cmd)

	if m.modal != modalAlert || !strings.Contains(m.alert, "Invalid admin key") {
		t.Fatalf("expected alert, got modal=%v alert=%q", m.modal, m.alert)
	}
	if len(m.app.View.State().Items) != 3 {
		t.Fatalf("expected the item to remain listed")
	}
}

func TestUpload_ValidationRunsBeforeNetwork(t *testing.T) {
	m := loaded(t, &fakeCatalog{})
	m, _ = send(t, m, keyRunes("u"))
	if m.modal != modalUpload || !m.app.View.State().UploadOpen {
		t.Fatalf("expected upload modal open")
	}

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd != nil {
		t.Fatalf("expected no network command for an invalid form")
	}
	if m.upload.err != "Please select a PDF file" {
		t.Fatalf("unexpected form error: %q", m.upload.err)
	}

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.modal != modalNone || m.app.View.State().UploadOpen {
		t.Fatalf("expected upload modal closed")
	}
}

func TestUpload_SuccessSelectsCreated(t *testing.T) {
	m := loaded(t, &fakeCatalog{items: samplePreprints()})
	m, _ = send(t, m, keyRunes("u"))

	created := &models.Preprint{ID: 99, Title: "Fresh"}
	m, _ = send(t, m, uploadDoneMsg{created: created})
	if m.upload.busy != "Upload successful!" || m.modal != modalUpload {
		t.Fatalf("expected success message before the modal closes")
	}

	m, _ = send(t, m, uploadSettledMsg{created: *created})
	st := m.app.View.State()
	if m.modal != modalNone || st.UploadOpen {
		t.Fatalf("expected upload modal closed")
	}
	if st.Selected == nil || st.Selected.ID != 99 {
		t.Fatalf("expected created preprint selected, got %+v", st.Selected)
	}
}

func TestUpload_CursorFollowsCreatedAfterRefresh(t *testing.T) {
	fc := &fakeCatalog{items: samplePreprints()}
	m := loaded(t, fc)
	m, _ = send(t, m, keyRunes("u"))

	created := models.Preprint{ID: 99, Title: "Fresh", Category: "cs"}
	fc.mu.Lock()
	fc.items = append(fc.items, created)
	fc.mu.Unlock()

	m, cmd := send(t, m, uploadSettledMsg{created: created})
	if cmd == nil {
		t.Fatalf("expected a refresh command")
	}
	ticket := m.app.View.BeginAfterUpload(created)
	items, err := m.app.View.Fetch(context.Background(), ticket)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	m, _ = send(t, m, refreshDoneMsg{ticket: ticket, items: items})

	st := m.app.View.State()
	if st.Selected == nil || st.Selected.ID != 99 {
		t.Fatalf("expected created preprint selected, got %+v", st.Selected)
	}
	if st.Items[m.cursor].ID != 99 {
		t.Fatalf("expected cursor on the created preprint, got index %d (id %d)", m.cursor, st.Items[m.cursor].ID)
	}
}

func TestUpload_FailureKeepsForm(t *testing.T) {
	m := loaded(t, &fakeCatalog{})
	m, _ = send(t, m, keyRunes("u"))
	m, _ = send(t, m, uploadDoneMsg{err: &catalog.APIError{Kind: catalog.ErrBackendUnavailable, Message: "Upload failed"}})

	if m.modal != modalUpload || m.upload.err != "Upload failed" {
		t.Fatalf("expected form to stay open with error, got modal=%v err=%q", m.modal, m.upload.err)
	}
}

func TestAdminKey_EmptyKeyRejected(t *testing.T) {
	m := loaded(t, &fakeCatalog{})
	m, _ = send(t, m, keyRunes("a"))
	if m.modal != modalAdminKey {
		t.Fatalf("expected admin key modal")
	}
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = settle(t, m, cmd)
	if m.adminErr == "" || m.app.Admin.Active() {
		t.Fatalf("expected empty key rejected")
	}
}

func TestNotice_ClearedOnlyBySameSeq(t *testing.T) {
	m := loaded(t, &fakeCatalog{})
	m.flash("one", false)
	m.flash("two", false)
	m, _ = send(t, m, clearNoticeMsg{seq: 1})
	if m.notice != "two" {
		t.Fatalf("expected stale clear ignored, got %q", m.notice)
	}
	m, _ = send(t, m, clearNoticeMsg{seq: 2})
	if m.notice != "" {
		t.Fatalf("expected notice cleared")
	}
}

var _ app.Catalog = (*fakeCatalog)(nil)
