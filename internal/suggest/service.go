// Package suggest drafts upload metadata for a PDF with an LLM.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/preprints/internal/models"
)

// Suggestion is the metadata the model proposes for an upload
type Suggestion struct {
	Title      string `json:"title"`
	Abstract   string `json:"abstract"`
	Authors    string `json:"authors"`
	Category   string `json:"category"`
	CourseCode string `json:"course_code"`
	Faculty    string `json:"faculty"`
}

// Options selects the provider and model
type Options struct {
	Provider     string
	Model        string
	GeminiAPIKey string
	OpenAIAPIKey string
}

type Service struct {
	provider Provider
	model    string
}

// NewService wires the named provider
func NewService(opts Options) (*Service, error) {
	var p Provider
	switch opts.Provider {
	case "", "gemini":
		p = NewGemini(opts.GeminiAPIKey)
	case "openai":
		p = NewOpenAI(opts.OpenAIAPIKey)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", opts.Provider)
	}
	return NewServiceWithProvider(p, opts.Model), nil
}

// NewServiceWithProvider uses an already constructed provider
func NewServiceWithProvider(p Provider, model string) *Service {
	if model == "" {
		model = defaultModel(p.Name())
	}
	return &Service{provider: p, model: model}
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	default:
		return "gemini-1.5-flash"
	}
}

// Suggest reads doc and returns proposed metadata. Category is always one of
// the upload categories.
func (s *Service) Suggest(ctx context.Context, doc Document) (*Suggestion, error) {
	raw, err := s.provider.Generate(ctx, Request{
		Model:       s.model,
		Temperature: 0.1,
		Prompt:      buildPrompt(),
		Document:    doc,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.provider.Name(), err)
	}

	sug, err := parseSuggestion(raw)
	if err != nil {
		return nil, err
	}
	slog.Info("Generated metadata suggestion", "provider", s.provider.Name(), "model", s.model, "title", sug.Title)
	return sug, nil
}

// Apply copies suggested values into the blank fields of req.
func Apply(req *models.UploadRequest, sug *Suggestion) {
	if sug == nil {
		return
	}
	fill := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = v
		}
	}
	fill(&req.Title, sug.Title)
	fill(&req.Abstract, sug.Abstract)
	fill(&req.Authors, sug.Authors)
	fill(&req.CourseCode, sug.CourseCode)
	fill(&req.Faculty, sug.Faculty)
	fill(&req.Category, sug.Category)
}

func buildPrompt() string {
	codes := make([]string, 0, len(models.UploadCategories))
	for _, c := range models.UploadCategories {
		codes = append(codes, fmt.Sprintf("%s (%s)", c.Code, c.Label))
	}
	return `You are helping a student submit a preprint to their university repository. Read the attached PDF and extract its metadata.

Return ONLY a JSON object with these keys:
- title: the paper title, without line breaks
- abstract: the abstract as written in the paper; if there is none, a faithful 3-5 sentence summary
- authors: author names separated by commas
- category: exactly one of ` + strings.Join(codes, ", ") + `
- course_code: a course code printed on the paper, or ""
- faculty: the supervising faculty member, or ""

Do not invent information that isn't in the document.`
}

// parseSuggestion pulls the JSON object out of a model reply
func parseSuggestion(raw string) (*Suggestion, error) {
	body := strings.TrimSpace(raw)
	if start := strings.Index(body, "{"); start >= 0 {
		if end := strings.LastIndex(body, "}"); end > start {
			body = body[start : end+1]
		}
	}

	var sug Suggestion
	if err := json.Unmarshal([]byte(body), &sug); err != nil {
		return nil, fmt.Errorf("failed to parse suggestion: %w", err)
	}

	sug.Title = strings.Join(strings.Fields(sug.Title), " ")
	sug.Abstract = strings.TrimSpace(sug.Abstract)
	sug.Authors = strings.TrimSpace(sug.Authors)
	sug.CourseCode = strings.TrimSpace(sug.CourseCode)
	sug.Faculty = strings.TrimSpace(sug.Faculty)
	sug.Category = normalizeCategory(sug.Category)

	if sug.Title == "" && sug.Abstract == "" {
		return nil, fmt.Errorf("suggestion has neither title nor abstract")
	}
	return &sug, nil
}

func normalizeCategory(code string) string {
	code = strings.TrimSpace(code)
	for _, c := range models.UploadCategories {
		if strings.EqualFold(c.Code, code) || strings.EqualFold(c.Label, code) {
			return c.Code
		}
	}
	return models.DefaultUploadCategory
}
