// Package viewmodel keeps the query, the result list, and the selection
// consistent with the remote catalog.
package viewmodel

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/preprints/internal/catalog"
	"github.com/lehigh-university-libraries/preprints/internal/models"
)

// Lister fetches the result list for a query.
type Lister interface {
	List(ctx context.Context, query models.Query) ([]models.Preprint, error)
}

// Status of the last refresh.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// State is a copy of the view model safe to read without locking.
type State struct {
	Query      models.Query
	Items      []models.Preprint
	Selected   *models.Preprint
	Status     Status
	Err        string
	UploadOpen bool
	// Loaded is false until the first refresh succeeds.
	Loaded bool
	// Generation is the ticket generation of the list being shown.
	Generation uint64
}

// Ticket identifies one refresh request.
type Ticket struct {
	Generation uint64
	Query      models.Query
	// pin is the id of a just-uploaded item to keep selected when this
	// refresh lands, even if the list does not contain it yet.
	pin *int
}

// Model is the single source of truth for what the catalog views show. All
// methods may be called from any goroutine.
type Model struct {
	lister Lister

	mu         sync.Mutex
	query      models.Query
	items      []models.Preprint
	selected   *models.Preprint
	status     Status
	errMsg     string
	uploadOpen bool
	loaded     bool

	issued  uint64
	applied uint64
}

// New returns a model for the default query. Nothing is fetched until the
// first refresh.
func New(lister Lister) *Model {
	return &Model{
		lister: lister,
		query:  models.DefaultQuery(),
		items:  []models.Preprint{},
	}
}

// State returns a snapshot.
func (m *Model) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]models.Preprint, len(m.items))
	copy(items, m.items)
	var selected *models.Preprint
	if m.selected != nil {
		sel := *m.selected
		selected = &sel
	}
	return State{
		Query:      m.query,
		Items:      items,
		Selected:   selected,
		Status:     m.status,
		Err:        m.errMsg,
		UploadOpen: m.uploadOpen,
		Loaded:     m.loaded,
		Generation: m.applied,
	}
}

// SetQuery merges patch into the query and refreshes.
func (m *Model) SetQuery(ctx context.Context, patch models.QueryPatch) error {
	return m.run(ctx, m.BeginQuery(patch))
}

// Refresh re-fetches the list for the current query. On failure the previous
// list and selection stay in place and the error message is recorded.
func (m *Model) Refresh(ctx context.Context) error {
	return m.run(ctx, m.BeginRefresh())
}

// AfterUpload closes the upload form, selects item at once, and refreshes.
// The selection stays on item when the refresh lands even if the fresh list
// does not contain it yet.
func (m *Model) AfterUpload(ctx context.Context, item models.Preprint) error {
	return m.run(ctx, m.BeginAfterUpload(item))
}

func (m *Model) run(ctx context.Context, t Ticket) error {
	items, err := m.Fetch(ctx, t)
	m.Complete(t, items, err)
	return err
}

// BeginQuery merges patch into the query and starts a refresh for it.
func (m *Model) BeginQuery(patch models.QueryPatch) Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.query = m.query.Merge(patch)
	return m.beginLocked(nil)
}

// BeginRefresh starts a refresh of the current query.
func (m *Model) BeginRefresh() Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.beginLocked(nil)
}

// BeginAfterUpload performs the synchronous half of AfterUpload.
func (m *Model) BeginAfterUpload(item models.Preprint) Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadOpen = false
	sel := item
	m.selected = &sel
	id := item.ID
	return m.beginLocked(&id)
}

func (m *Model) beginLocked(pin *int) Ticket {
	m.issued++
	m.status = StatusLoading
	m.errMsg = ""
	return Ticket{Generation: m.issued, Query: m.query, pin: pin}
}

// Fetch runs the network half of a refresh. It does not touch the model.
func (m *Model) Fetch(ctx context.Context, t Ticket) ([]models.Preprint, error) {
	return m.lister.List(ctx, t.Query)
}

// Complete applies the outcome of t. It reports false when the response was
// superseded: it was issued for a query that is no longer current, or a newer
// response has already been applied.
func (m *Model) Complete(t Ticket, items []models.Preprint, err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.Generation < m.applied || t.Query != m.query {
		slog.Debug("Discarding superseded refresh", "generation", t.Generation, "applied", m.applied)
		m.settleLocked(t)
		return false
	}

	if err != nil {
		slog.Warn("Refresh failed", "generation", t.Generation, "err", err)
		if t.Generation != m.issued {
			// A newer request for this query is still in flight.
			return false
		}
		m.applied = t.Generation
		m.status = StatusError
		m.errMsg = catalog.Message(err)
		return true
	}

	m.items = make([]models.Preprint, len(items))
	copy(m.items, items)
	m.applied = t.Generation
	m.loaded = true
	m.errMsg = ""
	m.resolveSelectionLocked(t.pin)
	m.settleLocked(t)
	return true
}

// settleLocked ends loading once the newest request has resolved.
func (m *Model) settleLocked(t Ticket) {
	if t.Generation == m.issued && m.status != StatusError {
		m.status = StatusIdle
	}
}

func (m *Model) resolveSelectionLocked(pin *int) {
	if m.selected == nil {
		return
	}
	id := m.selected.ID
	for i := range m.items {
		if m.items[i].ID == id {
			fresh := m.items[i]
			m.selected = &fresh
			return
		}
	}
	if pin != nil && *pin == id {
		// Just uploaded and not listed yet.
		return
	}
	m.selected = nil
}

// Select sets the selection directly. It never touches the network.
func (m *Model) Select(item *models.Preprint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item == nil {
		m.selected = nil
		return
	}
	sel := *item
	m.selected = &sel
}

// AfterDelete drops id from the list without re-fetching and clears the
// selection when it pointed at the deleted item.
func (m *Model) AfterDelete(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.items[:0:0]
	for _, p := range m.items {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	m.items = kept
	if m.selected != nil && m.selected.ID == id {
		m.selected = nil
	}
}

// OpenUpload shows the upload form.
func (m *Model) OpenUpload() {
	m.mu.Lock()
	m.uploadOpen = true
	m.mu.Unlock()
}

// CloseUpload hides the upload form without uploading.
func (m *Model) CloseUpload() {
	m.mu.Lock()
	m.uploadOpen = false
	m.mu.Unlock()
}
