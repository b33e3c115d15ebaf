// Package output renders preprints for the command line.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/lehigh-university-libraries/preprints/internal/models"
	"gopkg.in/yaml.v3"
)

// Format selects how results are printed
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a --format flag value
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: table, json, yaml)", s)
	}
}

// WriteList prints items in the given format
func WriteList(w io.Writer, f Format, items []models.Preprint) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, items)
	case FormatYAML:
		return writeYAML(w, items)
	default:
		if len(items) == 0 {
			_, err := fmt.Fprintln(w, "No preprints found")
			return err
		}
		_, err := fmt.Fprintln(w, listTable(items))
		return err
	}
}

// WriteOne prints a single preprint in the given format
func WriteOne(w io.Writer, f Format, p models.Preprint) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, p)
	case FormatYAML:
		return writeYAML(w, p)
	default:
		_, err := fmt.Fprintln(w, detailTable(p))
		return err
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func listTable(items []models.Preprint) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TAG", "TITLE", "AUTHORS", "UPLOADED", "DOI").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, p := range items {
		t.Row(
			strconv.Itoa(p.ID),
			p.Tag(),
			Truncate(p.Title, 60),
			Truncate(models.Deref(p.Authors), 30),
			ShortDate(p),
			models.Deref(p.DOI),
		)
	}
	return t.String()
}

func detailTable(p models.Preprint) string {
	rows := [][]string{
		{"ID", strconv.Itoa(p.ID)},
		{"Title", p.Title},
		{"Category", models.CategoryLabel(p.Category)},
		{"Course", models.Deref(p.CourseCode)},
		{"Authors", models.Deref(p.Authors)},
		{"Faculty", models.Deref(p.Faculty)},
		{"Uploaded", ShortDate(p)},
		{"Version", strconv.Itoa(p.Version)},
		{"Status", p.Status},
		{"DOI", models.Deref(p.DOI)},
		{"PDF", p.PDFURL()},
		{"Abstract", p.Abstract},
	}
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return headerStyle
			}
			return cellStyle.Width(80)
		}).
		Rows(rows...)
	return t.String()
}

// Truncate shortens s to n runes, ending in "..." when cut
func Truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// ShortDate formats the upload date like "Jan 2, 2006"
func ShortDate(p models.Preprint) string {
	if p.UploadedAt.IsZero() {
		return ""
	}
	return p.UploadedAt.Format("Jan 2, 2006")
}
