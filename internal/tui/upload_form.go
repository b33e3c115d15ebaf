package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lehigh-university-libraries/preprints/internal/catalog"
	"github.com/lehigh-university-libraries/preprints/internal/models"
	"github.com/lehigh-university-libraries/preprints/internal/suggest"
)

type uploadField int

const (
	fieldTitle uploadField = iota
	fieldAbstract
	fieldCategory
	fieldCourse
	fieldAuthors
	fieldFaculty
	fieldMintDOI
	fieldPDF
	fieldCount
)

type uploadForm struct {
	title   textinput.Model
	course  textinput.Model
	authors textinput.Model
	faculty textinput.Model
	pdfPath textinput.Model

	abstract textarea.Model

	categoryIdx int
	mintDOI     bool
	focus       uploadField

	err  string
	busy string
}

func newTextInput(placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Prompt = ""
	return in
}

func newUploadForm() uploadForm {
	f := uploadForm{
		title:   newTextInput("Paper title", 300),
		course:  newTextInput("e.g. CS301", 32),
		authors: newTextInput("Comma separated", 300),
		faculty: newTextInput("Supervising faculty", 120),
		pdfPath: newTextInput("/path/to/paper.pdf", 1024),
	}
	f.abstract = textarea.New()
	f.abstract.Placeholder = "Abstract"
	f.abstract.CharLimit = 0
	f.abstract.ShowLineNumbers = false
	f.abstract.SetHeight(5)
	f.abstract.SetWidth(72)

	for i, c := range models.UploadCategories {
		if c.Code == models.DefaultUploadCategory {
			f.categoryIdx = i
		}
	}
	f.setFocus(fieldTitle)
	return f
}

func (f *uploadForm) inputs() map[uploadField]*textinput.Model {
	return map[uploadField]*textinput.Model{
		fieldTitle:   &f.title,
		fieldCourse:  &f.course,
		fieldAuthors: &f.authors,
		fieldFaculty: &f.faculty,
		fieldPDF:     &f.pdfPath,
	}
}

func (f *uploadForm) setFocus(field uploadField) {
	f.focus = (field + fieldCount) % fieldCount
	for k, in := range f.inputs() {
		if k == f.focus {
			in.Focus()
		} else {
			in.Blur()
		}
	}
	if f.focus == fieldAbstract {
		f.abstract.Focus()
	} else {
		f.abstract.Blur()
	}
}

func (f uploadForm) category() string {
	return models.UploadCategories[f.categoryIdx].Code
}

func (f uploadForm) update(msg tea.Msg) (uploadForm, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "tab", "down":
			if km.String() == "down" && f.focus == fieldAbstract {
				break
			}
			f.setFocus(f.focus + 1)
			return f, nil
		case "shift+tab", "up":
			if km.String() == "up" && f.focus == fieldAbstract {
				break
			}
			f.setFocus(f.focus - 1)
			return f, nil
		}

		switch f.focus {
		case fieldCategory:
			switch km.String() {
			case "left", "h":
				f.categoryIdx = (f.categoryIdx + len(models.UploadCategories) - 1) % len(models.UploadCategories)
			case "right", "l", " ":
				f.categoryIdx = (f.categoryIdx + 1) % len(models.UploadCategories)
			}
			return f, nil
		case fieldMintDOI:
			if km.String() == " " || km.String() == "enter" {
				f.mintDOI = !f.mintDOI
			}
			return f, nil
		}
	}

	var cmd tea.Cmd
	if f.focus == fieldAbstract {
		f.abstract, cmd = f.abstract.Update(msg)
		return f, cmd
	}
	if in, ok := f.inputs()[f.focus]; ok {
		*in, cmd = in.Update(msg)
	}
	return f, cmd
}

// request builds the upload request. A missing or unreadable file leaves the
// attachment empty so the client-side check reports it.
func (f uploadForm) request() models.UploadRequest {
	req := models.UploadRequest{
		Title:      f.title.Value(),
		Abstract:   f.abstract.Value(),
		Category:   f.category(),
		CourseCode: strings.TrimSpace(f.course.Value()),
		Authors:    strings.TrimSpace(f.authors.Value()),
		Faculty:    strings.TrimSpace(f.faculty.Value()),
		MintDOI:    f.mintDOI,
	}
	if path := strings.TrimSpace(f.pdfPath.Value()); path != "" {
		if name, mediaType, data, err := catalog.LoadAttachment(path); err == nil {
			req.FileName, req.FileType, req.FileData = name, mediaType, data
		}
	}
	return req
}

// document returns the attached PDF for metadata suggestion.
func (f uploadForm) document() (suggest.Document, bool) {
	req := f.request()
	if len(req.FileData) == 0 || req.FileType != models.PDFMediaType {
		return suggest.Document{}, false
	}
	return suggest.Document{Name: req.FileName, MediaType: req.FileType, Data: req.FileData}, true
}

func (f *uploadForm) apply(sug *suggest.Suggestion) {
	if sug == nil {
		return
	}
	fill := func(in *textinput.Model, v string) {
		if strings.TrimSpace(in.Value()) == "" && v != "" {
			in.SetValue(v)
		}
	}
	fill(&f.title, sug.Title)
	fill(&f.course, sug.CourseCode)
	fill(&f.authors, sug.Authors)
	fill(&f.faculty, sug.Faculty)
	if strings.TrimSpace(f.abstract.Value()) == "" && sug.Abstract != "" {
		f.abstract.SetValue(sug.Abstract)
	}
	for i, c := range models.UploadCategories {
		if c.Code == sug.Category {
			f.categoryIdx = i
		}
	}
}

func (f uploadForm) view(width int) string {
	labelW := 14
	fieldW := width - labelW - 6
	if fieldW < 20 {
		fieldW = 20
	}

	label := func(field uploadField, text string) string {
		st := styleMuted().Width(labelW)
		if f.focus == field {
			st = lipgloss.NewStyle().Width(labelW).Bold(true).Foreground(colorAccent)
		}
		return st.Render(text)
	}
	row := func(field uploadField, text, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, label(field, text), value)
	}

	cats := make([]string, 0, len(models.UploadCategories))
	for i, c := range models.UploadCategories {
		txt := c.Label
		if i == f.categoryIdx {
			txt = styleBadge().Bold(true).Render("‹ " + c.Label + " ›")
		}
		cats = append(cats, txt)
	}
	doi := "[ ] Mint a DOI"
	if f.mintDOI {
		doi = "[x] Mint a DOI"
	}

	ab := f.abstract
	ab.SetWidth(fieldW)

	lines := []string{
		styleTitle().Render("Upload a preprint"),
		"",
		row(fieldTitle, "Title", f.title.View()),
		row(fieldAbstract, "Abstract", ab.View()),
		row(fieldCategory, "Category", strings.Join(cats, "  ")),
		row(fieldCourse, "Course code", f.course.View()),
		row(fieldAuthors, "Authors", f.authors.View()),
		row(fieldFaculty, "Faculty", f.faculty.View()),
		row(fieldMintDOI, "DOI", doi),
		row(fieldPDF, "PDF file", f.pdfPath.View()),
		"",
	}
	switch {
	case f.busy != "":
		lines = append(lines, styleMuted().Render(f.busy))
	case f.err != "":
		lines = append(lines, styleError().Render(f.err))
	}
	lines = append(lines, styleMuted().Render("tab: next field   ctrl+s: upload   ctrl+g: suggest from PDF   esc: cancel"))
	return stylePanel().Width(width - 2).Render(strings.Join(lines, "\n"))
}
