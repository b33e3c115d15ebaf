package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lehigh-university-libraries/preprints/internal/catalog"
	"github.com/lehigh-university-libraries/preprints/internal/models"
	"github.com/lehigh-university-libraries/preprints/internal/session"
	"github.com/lehigh-university-libraries/preprints/internal/suggest"
	"github.com/lehigh-university-libraries/preprints/internal/viewmodel"
)

// noticeDuration is how long a success notice stays up.
const noticeDuration = 1500 * time.Millisecond

type sessionMsg struct{ snap session.Snapshot }

type signInDoneMsg struct{ err error }

type refreshDoneMsg struct {
	ticket viewmodel.Ticket
	items  []models.Preprint
	err    error
}

type uploadDoneMsg struct {
	created *models.Preprint
	err     error
}

type suggestDoneMsg struct {
	suggestion *suggest.Suggestion
	err        error
}

type deleteDoneMsg struct {
	id  int
	err error
}

type adminLoginDoneMsg struct{ err error }

type adminLogoutDoneMsg struct{ err error }

type openDoneMsg struct {
	target string
	err    error
}

type clearNoticeMsg struct{ seq int }

func (m appModel) checkSessionCmd() tea.Cmd {
	ctx, guard := m.ctx, m.app.Guard
	return func() tea.Msg {
		return sessionMsg{snap: guard.Check(ctx)}
	}
}

func (m appModel) signInCmd() tea.Cmd {
	ctx, a := m.ctx, m.app
	return func() tea.Msg {
		return signInDoneMsg{err: a.SignIn(ctx)}
	}
}

func (m appModel) signOutCmd() tea.Cmd {
	ctx, guard := m.ctx, m.app.Guard
	return func() tea.Msg {
		_ = guard.SignOut(ctx)
		return sessionMsg{snap: guard.Snapshot()}
	}
}

// fetchCmd runs the network half of a view model refresh.
func (m appModel) fetchCmd(t viewmodel.Ticket) tea.Cmd {
	ctx, view := m.ctx, m.app.View
	return func() tea.Msg {
		items, err := view.Fetch(ctx, t)
		return refreshDoneMsg{ticket: t, items: items, err: err}
	}
}

func (m appModel) refreshCmd() tea.Cmd {
	return m.fetchCmd(m.app.View.BeginRefresh())
}

func (m appModel) queryCmd(patch models.QueryPatch) tea.Cmd {
	return m.fetchCmd(m.app.View.BeginQuery(patch))
}

func (m appModel) uploadCmd(req models.UploadRequest) tea.Cmd {
	ctx, c := m.ctx, m.app.Catalog
	return func() tea.Msg {
		created, err := c.Create(ctx, req)
		return uploadDoneMsg{created: created, err: err}
	}
}

func (m appModel) suggestCmd(doc suggest.Document) tea.Cmd {
	ctx, a := m.ctx, m.app
	return func() tea.Msg {
		svc, err := a.Suggester()
		if err != nil {
			return suggestDoneMsg{err: err}
		}
		sug, err := svc.Suggest(ctx, doc)
		return suggestDoneMsg{suggestion: sug, err: err}
	}
}

func (m appModel) deleteCmd(id int) tea.Cmd {
	ctx, c, holder := m.ctx, m.app.Catalog, m.app.Admin
	return func() tea.Msg {
		token, ok := holder.Token()
		if !ok {
			return deleteDoneMsg{id: id, err: &catalog.APIError{Kind: catalog.ErrUnauthorized, Message: "Admin mode is not active"}}
		}
		return deleteDoneMsg{id: id, err: c.Delete(ctx, id, token)}
	}
}

func (m appModel) adminLoginCmd(key string) tea.Cmd {
	ctx, holder := m.ctx, m.app.Admin
	return func() tea.Msg {
		return adminLoginDoneMsg{err: holder.Login(ctx, key)}
	}
}

func (m appModel) adminLogoutCmd() tea.Cmd {
	ctx, holder := m.ctx, m.app.Admin
	return func() tea.Msg {
		return adminLogoutDoneMsg{err: holder.Logout(ctx)}
	}
}

func (m appModel) openPDFCmd(p models.Preprint) tea.Cmd {
	ctx, v := m.ctx, m.app.Viewer
	return func() tea.Msg {
		target, err := v.Show(ctx, p, "")
		return openDoneMsg{target: target, err: err}
	}
}

func clearNoticeAfter(seq int) tea.Cmd {
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}
