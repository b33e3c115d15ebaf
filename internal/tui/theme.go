package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	colorMuted     lipgloss.TerminalColor = ac("240", "243")
	colorAccent    lipgloss.TerminalColor = ac("27", "62")
	colorAccentFg  lipgloss.TerminalColor = ac("255", "235")
	colorBorder    lipgloss.TerminalColor = ac("250", "243")
	colorSelected  lipgloss.TerminalColor = ac("232", "255")
	colorError     lipgloss.TerminalColor = ac("160", "203")
	colorSuccess   lipgloss.TerminalColor = ac("28", "114")
	colorAdminBg   lipgloss.TerminalColor = ac("166", "208")
	colorBadgeBg   lipgloss.TerminalColor = ac("254", "237")
	colorControlBg lipgloss.TerminalColor = ac("252", "235")
)

func styleMuted() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorMuted)
}

func styleTitle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true)
}

func styleError() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorError)
}

func styleBadge() lipgloss.Style {
	return lipgloss.NewStyle().Padding(0, 1).Background(colorBadgeBg)
}

func styleAdminBadge() lipgloss.Style {
	return lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(colorAccentFg).Background(colorAdminBg)
}

func styleCard(selected bool) lipgloss.Style {
	st := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)
	if selected {
		st = st.BorderForeground(colorSelected)
	}
	return st
}

func stylePanel() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)
}

// applyColorProfilePreference honors NO_COLOR for the interactive TUI.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}
