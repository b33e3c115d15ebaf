package suggest

import (
	"context"
)

// Document is the file the model reads
type Document struct {
	Name      string
	MediaType string
	Data      []byte
}

// Request represents one generation call to an LLM provider
type Request struct {
	Model       string
	Temperature float64
	Prompt      string
	Document    Document
}

// Provider defines the interface for an LLM provider
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}
