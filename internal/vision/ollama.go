package vision

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	DefaultOllamaModel   = "gpt-oss:20b"
	defaultOllamaTimeout = 360 * time.Second
)

// OllamaClient runs judge prompts against a local Ollama instance. Local
// models cannot see images, so this client is judge-only.
type OllamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// NewOllama creates a client for a local Ollama server. Empty arguments
// select localhost and the default model.
func NewOllama(ollamaURL, model string) (*OllamaClient, error) {
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultOllamaModel
	}

	baseURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL: %w", err)
	}

	return &OllamaClient{
		client:  api.NewClient(baseURL, http.DefaultClient),
		model:   model,
		timeout: defaultOllamaTimeout,
	}, nil
}

// Generate satisfies the judge's Generator interface.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: new(bool), // false
	}

	var response strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		response.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	return strings.TrimSpace(response.String()), nil
}
