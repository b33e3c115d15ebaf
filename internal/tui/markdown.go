package tui

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

var (
	mdRendererMu sync.Mutex
	// Keyed by style and wrap width. WithAutoStyle is avoided because its
	// terminal background query can block.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// markdownStyle picks the glamour style from PREPRINTS_TUI_MD_STYLE, dark by default.
func markdownStyle() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("PREPRINTS_TUI_MD_STYLE"))) {
	case styles.LightStyle:
		return styles.LightStyle
	case styles.NoTTYStyle:
		return styles.NoTTYStyle
	default:
		return styles.DarkStyle
	}
}

// renderMarkdown renders abstracts, which often carry inline math and emphasis.
func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}

	style := markdownStyle()
	key := style + ":" + strconv.Itoa(width)

	mdRendererMu.Lock()
	r := mdRenderers[key]
	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			mdRendererMu.Unlock()
			return md
		}
		mdRenderers[key] = rr
		r = rr
	}
	mdRendererMu.Unlock()

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}
