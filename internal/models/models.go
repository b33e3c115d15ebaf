package models

import (
	"strings"
	"time"
)

// Preprint represents a document record in the preprint repository
type Preprint struct {
	ID         int       `json:"id" yaml:"id"`
	Title      string    `json:"title" yaml:"title"`
	Abstract   string    `json:"abstract" yaml:"abstract"`
	Category   string    `json:"category" yaml:"category"`
	CourseCode *string   `json:"course_code" yaml:"course_code,omitempty"`
	Authors    *string   `json:"authors" yaml:"authors,omitempty"`
	Faculty    *string   `json:"faculty" yaml:"faculty,omitempty"`
	PDFFile    *string   `json:"pdf_file" yaml:"pdf_file,omitempty"`
	UploadedAt time.Time `json:"uploaded_at" yaml:"uploaded_at"`
	Version    int       `json:"version" yaml:"version"`
	DOI        *string   `json:"doi" yaml:"doi,omitempty"`
	Status     string    `json:"status" yaml:"status"`
}

// PDFURL returns the stored file reference forced to https, or "" when no file is attached.
func (p Preprint) PDFURL() string {
	if p.PDFFile == nil || *p.PDFFile == "" {
		return ""
	}
	return strings.Replace(*p.PDFFile, "http://", "https://", 1)
}

// Tag is the short label shown on list cards: the course code, or the upper-cased category.
func (p Preprint) Tag() string {
	if s := Deref(p.CourseCode); s != "" {
		return s
	}
	return strings.ToUpper(p.Category)
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CategoryAll is the Query category meaning "no category filter".
const CategoryAll = "all"

// Query is the search text and category filter driving what is fetched.
type Query struct {
	Text     string `json:"q,omitempty" yaml:"q,omitempty"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

// DefaultQuery matches every preprint.
func DefaultQuery() Query {
	return Query{Category: CategoryAll}
}

// QueryPatch is a partial Query; nil fields leave the current value untouched.
type QueryPatch struct {
	Text     *string
	Category *string
}

// Merge applies the non-nil fields of patch to q.
func (q Query) Merge(patch QueryPatch) Query {
	if patch.Text != nil {
		q.Text = *patch.Text
	}
	if patch.Category != nil {
		q.Category = *patch.Category
	}
	if q.Category == "" {
		q.Category = CategoryAll
	}
	return q
}

// Category is a selectable category code with its display label.
type Category struct {
	Code  string
	Label string
}

// SearchCategories are the filter choices offered next to the search box.
var SearchCategories = []Category{
	{Code: CategoryAll, Label: "All Categories"},
	{Code: "cs", Label: "Computer Science"},
	{Code: "ai", Label: "AI / ML"},
	{Code: "math", Label: "Mathematics"},
	{Code: "physics", Label: "Physics"},
}

// UploadCategories are the category choices offered by the upload form.
var UploadCategories = []Category{
	{Code: "FDS", Label: "Data Science"},
	{Code: "FDE", Label: "Data Engineering"},
	{Code: "TOC", Label: "Theory of Computation"},
	{Code: "OS", Label: "Operating Systems"},
}

// DefaultUploadCategory is preselected in the upload form.
const DefaultUploadCategory = "FDS"

// FallbackCategory is sent when an upload has no category set.
const FallbackCategory = "cs"

// CategoryLabel returns the display label for code, or code itself when unknown.
func CategoryLabel(code string) string {
	for _, set := range [][]Category{SearchCategories, UploadCategories} {
		for _, c := range set {
			if strings.EqualFold(c.Code, code) {
				return c.Label
			}
		}
	}
	return code
}

// UploadRequest holds the fields submitted when creating a preprint
type UploadRequest struct {
	Title      string
	Abstract   string
	Category   string
	CourseCode string
	Authors    string
	Faculty    string
	MintDOI    bool

	// FileName is the attachment's base name as sent in the multipart part.
	FileName string
	// FileType is the attachment's media type; only application/pdf is accepted.
	FileType string
	FileData []byte
}

// PDFMediaType is the only accepted attachment type.
const PDFMediaType = "application/pdf"
