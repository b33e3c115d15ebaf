package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lehigh-university-libraries/preprints/internal/app"
	"github.com/lehigh-university-libraries/preprints/internal/session"
)

// Run starts the interactive browser and blocks until the user quits.
func Run(ctx context.Context, a *app.App) error {
	applyColorProfilePreference()

	m := newAppModel(ctx, a)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if a.Guard != nil {
		unsubscribe := a.Guard.Subscribe(func(snap session.Snapshot) {
			p.Send(sessionMsg{snap: snap})
		})
		defer unsubscribe()
	}

	_, err := p.Run()
	return err
}
