package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lehigh-university-libraries/preprints/internal/models"
	"github.com/lehigh-university-libraries/preprints/internal/output"
	"github.com/lehigh-university-libraries/preprints/internal/session"
	"github.com/lehigh-university-libraries/preprints/internal/viewmodel"
)

const cardAbstractLimit = 150

// truncateAbstract keeps the first limit runes and marks the cut.
func truncateAbstract(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

func longDate(p models.Preprint) string {
	if p.UploadedAt.IsZero() {
		return ""
	}
	return p.UploadedAt.Format("January 2, 2006")
}

func (m appModel) View() string {
	if m.screen == screenGate {
		return m.gateView()
	}

	body := m.browseView()
	switch m.modal {
	case modalUpload:
		return m.overlay(m.upload.view(min(m.width-4, 96)))
	case modalAdminKey:
		return m.overlay(m.adminKeyView())
	case modalConfirmDelete:
		return m.overlay(m.confirmDeleteView())
	case modalAlert:
		return m.overlay(m.alertView())
	}
	return body
}

func (m appModel) overlay(box string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m appModel) gateView() string {
	var lines []string
	lines = append(lines, styleTitle().Render("Student Preprints"), "")

	switch {
	case m.signingIn:
		lines = append(lines, m.spinner.View()+" Waiting for sign-in to finish in your browser...")
	case m.session.State == session.Unknown:
		lines = append(lines, m.spinner.View()+" Checking your session...")
	default:
		lines = append(lines,
			"Sign in with your "+m.app.Config.AllowedDomain+" account to browse preprints.",
			"",
			styleMuted().Render("enter: sign in   q: quit"),
		)
	}
	if m.session.Message != "" {
		lines = append(lines, "", styleError().Render(m.session.Message))
	}
	return m.overlay(stylePanel().Width(min(m.width-4, 64)).Render(strings.Join(lines, "\n")))
}

func (m appModel) browseView() string {
	st := m.app.View.State()

	listW := m.width * 3 / 5
	if listW < 40 {
		listW = 40
	}
	detailW := m.width - listW - 1
	if detailW < 30 {
		detailW = 30
	}

	sections := []string{m.headerView(st), m.filterView(st)}
	if m.notice != "" {
		ns := lipgloss.NewStyle().Foreground(colorSuccess)
		if m.noticeIsErr {
			ns = styleError()
		}
		sections = append(sections, ns.Render(m.notice))
	}

	list := m.listView(st, listW)
	detail := m.detailView(st, detailW)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, list, " ", detail))
	sections = append(sections, m.helpView(st))
	return strings.Join(sections, "\n")
}

func (m appModel) headerView(st viewmodel.State) string {
	left := styleTitle().Render("Student Preprints")
	if st.Status == viewmodel.StatusLoading {
		left += " " + m.spinner.View()
	}

	var right []string
	if m.app.Admin.Active() {
		right = append(right, styleAdminBadge().Render("ADMIN MODE")+styleMuted().Render(" x: exit"))
	}
	if m.session.Email != "" {
		right = append(right, styleMuted().Render(m.session.Email))
	}
	r := strings.Join(right, "  ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(r)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + r
}

func (m appModel) filterView(st viewmodel.State) string {
	var search string
	if m.searching {
		search = m.search.View()
	} else if st.Query.Text != "" {
		search = "/ " + st.Query.Text
	} else {
		search = styleMuted().Render("/ search")
	}
	cat := lipgloss.NewStyle().Padding(0, 1).Background(colorControlBg).
		Render("‹ " + models.SearchCategories[m.categoryIdx].Label + " ›")
	return search + "   " + cat
}

func (m appModel) listView(st viewmodel.State, width int) string {
	var blocks []string
	if st.Status == viewmodel.StatusError {
		blocks = append(blocks, stylePanel().BorderForeground(colorError).Width(width-2).Render(
			styleError().Render(st.Err)+"\n"+styleMuted().Render("r: retry")))
	}

	if len(st.Items) == 0 {
		switch {
		case st.Status == viewmodel.StatusLoading && !st.Loaded:
			blocks = append(blocks, m.spinner.View()+" Loading preprints...")
		case st.Status != viewmodel.StatusError:
			blocks = append(blocks, lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(
				"\n"+styleTitle().Render("No preprints found")+"\n"+styleMuted().Render("Try adjusting your search filters")))
		}
		return strings.Join(blocks, "\n")
	}

	avail := m.height - 6
	if st.Status == viewmodel.StatusError {
		avail -= 4
	}
	perCard := 6
	visible := avail / perCard
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := min(start+visible, len(st.Items))

	for i := start; i < end; i++ {
		blocks = append(blocks, m.cardView(st.Items[i], i == m.cursor, st.Selected != nil && st.Selected.ID == st.Items[i].ID, width))
	}
	if len(st.Items) > end-start {
		blocks = append(blocks, styleMuted().Render(fmt.Sprintf("%d-%d of %d", start+1, end, len(st.Items))))
	}
	return strings.Join(blocks, "\n")
}

func (m appModel) cardView(p models.Preprint, cursor, selected bool, width int) string {
	inner := width - 4

	title := styleTitle().Render(output.Truncate(p.Title, inner))
	meta := []string{styleBadge().Render(p.Tag())}
	if d := output.ShortDate(p); d != "" {
		meta = append(meta, styleMuted().Render(d))
	}
	if models.Deref(p.DOI) != "" {
		meta = append(meta, styleBadge().Foreground(colorSuccess).Render("DOI"))
	}
	abstract := lipgloss.NewStyle().Width(inner).Foreground(colorMuted).
		Render(truncateAbstract(p.Abstract, cardAbstractLimit))

	st := styleCard(selected).Width(width - 2)
	if cursor && !selected {
		st = st.BorderForeground(colorAccent)
	}
	return st.Render(title + "\n" + strings.Join(meta, " ") + "\n" + abstract)
}

func (m appModel) detailView(st viewmodel.State, width int) string {
	panel := stylePanel().Width(width - 2)
	if st.Selected == nil {
		return panel.Render(styleTitle().Render("Select a preprint") + "\n" +
			styleMuted().Render("Choose from the list to view details"))
	}
	p := *st.Selected
	inner := width - 4

	field := func(label, value string) string {
		if value == "" {
			return ""
		}
		return styleMuted().Render(label+": ") + value
	}

	lines := []string{
		lipgloss.NewStyle().Bold(true).Width(inner).Render(p.Title),
		"",
	}
	for _, f := range []string{
		field("Category", models.CategoryLabel(p.Category)),
		field("Course", models.Deref(p.CourseCode)),
		field("Authors", models.Deref(p.Authors)),
		field("Faculty", models.Deref(p.Faculty)),
		field("Uploaded", longDate(p)),
		field("Version", fmt.Sprintf("v%d", p.Version)),
		field("DOI", models.Deref(p.DOI)),
	} {
		if f != "" {
			lines = append(lines, f)
		}
	}
	if ab := renderMarkdown(p.Abstract, inner); ab != "" {
		lines = append(lines, "", styleTitle().Render("Abstract"), ab)
	}
	if u := p.PDFURL(); u != "" {
		lines = append(lines, "", styleMuted().Render("PDF: ")+output.Truncate(u, inner-5))
	}

	actions := []string{}
	if p.PDFURL() != "" {
		actions = append(actions, "o: open PDF")
	}
	if m.canDelete(st) {
		actions = append(actions, styleError().Render("d: delete"))
	}
	if len(actions) > 0 {
		lines = append(lines, "", strings.Join(actions, "   "))
	}
	return panel.Render(strings.Join(lines, "\n"))
}

func (m appModel) helpView(st viewmodel.State) string {
	if m.searching {
		return styleMuted().Render("enter: search   esc: cancel")
	}
	keys := []string{"/: search", "tab: category", "j/k: move", "enter: select", "r: refresh", "u: upload"}
	if m.app.Admin.Active() {
		if m.canDelete(st) {
			keys = append(keys, "d: delete")
		}
		keys = append(keys, "x: exit admin")
	} else {
		keys = append(keys, "a: admin")
	}
	if m.app.Guard != nil {
		keys = append(keys, "L: sign out")
	}
	keys = append(keys, "q: quit")
	return styleMuted().Render(strings.Join(keys, "   "))
}

func (m appModel) adminKeyView() string {
	lines := []string{
		styleTitle().Render("Admin mode"),
		"",
		"Enter the admin key to enable delete.",
		"",
		m.adminInput.View(),
	}
	if m.adminErr != "" {
		lines = append(lines, "", styleError().Render(m.adminErr))
	}
	lines = append(lines, "", styleMuted().Render("enter: confirm   esc: cancel"))
	return stylePanel().Width(56).Render(strings.Join(lines, "\n"))
}

func (m appModel) confirmDeleteView() string {
	title := ""
	if m.pendingDelete != nil {
		title = m.pendingDelete.Title
	}
	button := func(label string, focused bool) string {
		st := lipgloss.NewStyle().Padding(0, 2).Background(colorControlBg)
		if focused {
			st = st.Bold(true).Foreground(colorAccentFg).Background(colorError)
		}
		return st.Render(label)
	}
	lines := []string{
		lipgloss.NewStyle().Width(56).Render(`Delete "` + title + `"?`),
		"This will permanently remove the entry and its PDF.",
		"",
	}
	if m.deleting {
		lines = append(lines, m.spinner.View()+" Deleting...")
	} else {
		lines = append(lines, button("Cancel", !m.confirmFocus)+"  "+button("Delete", m.confirmFocus))
		lines = append(lines, "", styleMuted().Render("y: delete   n/esc: cancel   tab: switch"))
	}
	return stylePanel().BorderForeground(colorError).Width(60).Render(strings.Join(lines, "\n"))
}

func (m appModel) alertView() string {
	lines := []string{
		styleError().Render(m.alert),
		"",
		styleMuted().Render("enter: dismiss"),
	}
	return stylePanel().BorderForeground(colorError).Width(60).Render(strings.Join(lines, "\n"))
}
