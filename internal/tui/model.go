package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lehigh-university-libraries/preprints/internal/app"
	"github.com/lehigh-university-libraries/preprints/internal/catalog"
	"github.com/lehigh-university-libraries/preprints/internal/models"
	"github.com/lehigh-university-libraries/preprints/internal/session"
	"github.com/lehigh-university-libraries/preprints/internal/viewmodel"
)

type screen int

const (
	screenGate screen = iota
	screenBrowse
)

type modal int

const (
	modalNone modal = iota
	modalUpload
	modalAdminKey
	modalConfirmDelete
	modalAlert
)

type appModel struct {
	ctx context.Context
	app *app.App

	width  int
	height int

	screen    screen
	session   session.Snapshot
	signingIn bool

	search      textinput.Model
	searching   bool
	categoryIdx int
	cursor      int

	modal modal

	upload    uploadForm
	uploading bool

	adminInput textinput.Model
	adminErr   string

	pendingDelete *models.Preprint
	confirmFocus  bool
	deleting      bool

	alert string

	notice      string
	noticeIsErr bool
	noticeSeq   int

	spinner spinner.Model
}

// uploadSettledMsg fires once the success notice has been shown.
type uploadSettledMsg struct{ created models.Preprint }

func newAppModel(ctx context.Context, a *app.App) appModel {
	m := appModel{
		ctx:     ctx,
		app:     a,
		width:   100,
		height:  30,
		screen:  screenGate,
		session: session.Snapshot{State: session.Unknown},
		upload:  newUploadForm(),
	}
	if a.Guard == nil {
		m.screen = screenBrowse
	}

	m.search = newTextInput("Search titles, abstracts, authors", 200)
	m.search.Prompt = "/ "

	m.adminInput = newTextInput("Admin key", 256)
	m.adminInput.EchoMode = textinput.EchoPassword
	m.adminInput.EchoCharacter = '•'

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot

	m.syncCategoryIdx()
	return m
}

func (m appModel) Init() tea.Cmd {
	if m.screen == screenBrowse {
		return tea.Batch(m.spinner.Tick, m.refreshCmd())
	}
	return tea.Batch(m.spinner.Tick, m.checkSessionCmd())
}

func (m *appModel) syncCategoryIdx() {
	q := m.app.View.State().Query
	for i, c := range models.SearchCategories {
		if c.Code == q.Category {
			m.categoryIdx = i
		}
	}
}

func (m *appModel) flash(text string, isErr bool) tea.Cmd {
	m.noticeSeq++
	m.notice = text
	m.noticeIsErr = isErr
	return clearNoticeAfter(m.noticeSeq)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionMsg:
		return m.applySession(msg.snap)

	case signInDoneMsg:
		m.signingIn = false
		return m.applySession(m.app.Guard.Snapshot())

	case refreshDoneMsg:
		if m.app.View.Complete(msg.ticket, msg.items, msg.err) {
			if sel := m.app.View.State().Selected; sel != nil {
				m.cursorTo(sel.ID)
			}
		}
		m.clampCursor()
		return m, nil

	case uploadDoneMsg:
		m.upload.busy = ""
		if msg.err != nil {
			m.uploading = false
			m.upload.err = catalog.Message(msg.err)
			return m, nil
		}
		m.upload.err = ""
		m.upload.busy = "Upload successful!"
		created := *msg.created
		return m, tea.Tick(noticeDuration, func(time.Time) tea.Msg {
			return uploadSettledMsg{created: created}
		})

	case uploadSettledMsg:
		m.uploading = false
		m.modal = modalNone
		m.upload = newUploadForm()
		t := m.app.View.BeginAfterUpload(msg.created)
		return m, tea.Batch(m.fetchCmd(t), m.flash("Preprint uploaded", false))

	case suggestDoneMsg:
		m.upload.busy = ""
		if msg.err != nil {
			m.upload.err = "Suggestion failed: " + msg.err.Error()
			return m, nil
		}
		m.upload.err = ""
		m.upload.apply(msg.suggestion)
		return m, nil

	case deleteDoneMsg:
		m.deleting = false
		m.pendingDelete = nil
		if msg.err != nil {
			m.modal = modalAlert
			m.alert = catalog.Message(msg.err)
			return m, nil
		}
		m.modal = modalNone
		m.app.View.AfterDelete(msg.id)
		m.clampCursor()
		return m, m.flash("Preprint deleted", false)

	case adminLoginDoneMsg:
		if msg.err != nil {
			m.adminErr = catalog.Message(msg.err)
			return m, nil
		}
		m.modal = modalNone
		m.adminErr = ""
		m.adminInput.SetValue("")
		return m, m.flash("Admin mode enabled", false)

	case adminLogoutDoneMsg:
		if msg.err != nil {
			return m, m.flash("Unable to exit admin mode: "+msg.err.Error(), true)
		}
		return m, m.flash("Admin mode disabled", false)

	case openDoneMsg:
		if msg.err != nil {
			return m, m.flash(catalog.Message(msg.err), true)
		}
		return m, m.flash("Opened "+msg.target, false)

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.screen == screenGate {
			return m.updateGate(msg)
		}
		switch m.modal {
		case modalUpload:
			return m.updateUpload(msg)
		case modalAdminKey:
			return m.updateAdminKey(msg)
		case modalConfirmDelete:
			return m.updateConfirmDelete(msg)
		case modalAlert:
			return m.updateAlert(msg)
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateBrowse(msg)
	}

	if m.modal == modalUpload {
		var cmd tea.Cmd
		m.upload, cmd = m.upload.update(msg)
		return m, cmd
	}
	return m, nil
}

// applySession moves between the sign-in gate and the catalog.
func (m appModel) applySession(snap session.Snapshot) (tea.Model, tea.Cmd) {
	m.session = snap
	if snap.State == session.Authenticated {
		if m.screen != screenBrowse {
			m.screen = screenBrowse
			return m, m.refreshCmd()
		}
		return m, nil
	}
	if m.screen == screenBrowse && m.app.Guard != nil {
		m.screen = screenGate
		m.modal = modalNone
	}
	return m, nil
}

func (m appModel) updateGate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "enter":
		if m.signingIn || m.session.State != session.Unauthenticated {
			return m, nil
		}
		m.signingIn = true
		m.session.Message = ""
		return m, m.signInCmd()
	}
	return m, nil
}

func (m appModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.app.View.State()

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.searching = true
		m.search.SetValue(st.Query.Text)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case "tab", "c":
		return m.shiftCategory(1)
	case "shift+tab", "C":
		return m.shiftCategory(-1)
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(st.Items)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		if m.cursor >= 0 && m.cursor < len(st.Items) {
			item := st.Items[m.cursor]
			m.app.View.Select(&item)
		}
		return m, nil
	case "esc":
		m.app.View.Select(nil)
		return m, nil
	case "r":
		return m, m.refreshCmd()
	case "u":
		m.app.View.OpenUpload()
		m.modal = modalUpload
		return m, nil
	case "a":
		if !m.app.Admin.Active() {
			m.modal = modalAdminKey
			m.adminErr = ""
			m.adminInput.SetValue("")
			return m, m.adminInput.Focus()
		}
		return m, nil
	case "x":
		if m.app.Admin.Active() {
			return m, m.adminLogoutCmd()
		}
		return m, nil
	case "d":
		if m.canDelete(st) {
			sel := *st.Selected
			m.pendingDelete = &sel
			m.confirmFocus = false
			m.modal = modalConfirmDelete
		}
		return m, nil
	case "o":
		if st.Selected != nil {
			return m, m.openPDFCmd(*st.Selected)
		}
		return m, nil
	case "L":
		if m.app.Guard != nil {
			return m, m.signOutCmd()
		}
		return m, nil
	}
	return m, nil
}

// canDelete gates the delete action. Without an admin key the action does not
// exist in the UI at all.
func (m appModel) canDelete(st viewmodel.State) bool {
	return m.app.Admin.Active() && st.Selected != nil
}

func (m appModel) shiftCategory(delta int) (tea.Model, tea.Cmd) {
	n := len(models.SearchCategories)
	m.categoryIdx = (m.categoryIdx + delta + n) % n
	code := models.SearchCategories[m.categoryIdx].Code
	m.cursor = 0
	return m, m.queryCmd(models.QueryPatch{Category: &code})
}

func (m appModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		text := m.search.Value()
		m.cursor = 0
		return m, m.queryCmd(models.QueryPatch{Text: &text})
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue(m.app.View.State().Query.Text)
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m appModel) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.uploading {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.app.View.CloseUpload()
		m.modal = modalNone
		return m, nil
	case "ctrl+s":
		req := m.upload.request()
		if err := catalog.ValidateUpload(req); err != nil {
			m.upload.err = catalog.Message(err)
			return m, nil
		}
		m.uploading = true
		m.upload.err = ""
		m.upload.busy = "Uploading..."
		return m, m.uploadCmd(req)
	case "ctrl+g":
		doc, ok := m.upload.document()
		if !ok {
			m.upload.err = "Please select a PDF file"
			return m, nil
		}
		m.upload.err = ""
		m.upload.busy = "Reading the PDF for suggestions..."
		return m, m.suggestCmd(doc)
	}
	var cmd tea.Cmd
	m.upload, cmd = m.upload.update(msg)
	return m, cmd
}

func (m appModel) updateAdminKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.modal = modalNone
		m.adminInput.Blur()
		return m, nil
	case "enter":
		return m, m.adminLoginCmd(m.adminInput.Value())
	}
	var cmd tea.Cmd
	m.adminInput, cmd = m.adminInput.Update(msg)
	return m, cmd
}

func (m appModel) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.deleting {
		return m, nil
	}
	switch msg.String() {
	case "tab", "shift+tab", "left", "right", "h", "l":
		m.confirmFocus = !m.confirmFocus
		return m, nil
	case "y":
		return m.confirmDelete()
	case "enter":
		if m.confirmFocus {
			return m.confirmDelete()
		}
		m.modal = modalNone
		m.pendingDelete = nil
		return m, nil
	case "n", "esc":
		m.modal = modalNone
		m.pendingDelete = nil
		return m, nil
	}
	return m, nil
}

func (m appModel) confirmDelete() (tea.Model, tea.Cmd) {
	if m.pendingDelete == nil || !m.app.Admin.Active() {
		m.modal = modalNone
		return m, nil
	}
	m.deleting = true
	return m, m.deleteCmd(m.pendingDelete.ID)
}

func (m appModel) updateAlert(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc", "q", " ":
		m.modal = modalNone
		m.alert = ""
	}
	return m, nil
}

func (m *appModel) clampCursor() {
	n := len(m.app.View.State().Items)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *appModel) cursorTo(id int) {
	for i, p := range m.app.View.State().Items {
		if p.ID == id {
			m.cursor = i
			return
		}
	}
}
