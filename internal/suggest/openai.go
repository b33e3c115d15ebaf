package suggest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultOpenAIURL is the chat completions endpoint
const DefaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAI is a provider for OpenAI
type OpenAI struct {
	APIKey     string
	URL        string
	HTTPClient *http.Client
}

// NewOpenAI returns a new OpenAI provider
func NewOpenAI(apiKey string) *OpenAI {
	return &OpenAI{
		APIKey:     apiKey,
		URL:        DefaultOpenAIURL,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (o *OpenAI) Name() string { return "openai" }

// Generate sends the PDF as a file content part alongside the prompt
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	content := []map[string]any{}
	if len(req.Document.Data) > 0 {
		content = append(content, map[string]any{
			"type": "file",
			"file": map[string]string{
				"filename":  req.Document.Name,
				"file_data": "data:" + req.Document.MediaType + ";base64," + base64.StdEncoding.EncodeToString(req.Document.Data),
			},
		})
	}
	content = append(content, map[string]any{
		"type": "text",
		"text": req.Prompt,
	})

	requestBody, err := json.Marshal(map[string]any{
		"model": req.Model,
		"messages": []map[string]any{
			{
				"role":    "user",
				"content": content,
			},
		},
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}

	return response.Choices[0].Message.Content, nil
}
