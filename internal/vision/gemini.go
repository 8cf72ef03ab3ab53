package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/zombar/emoscan/internal/models"
	"github.com/zombar/emoscan/internal/source"
)

const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// DefaultGeminiModels is the fallback chain, tried in order until one
// answers.
var DefaultGeminiModels = []string{
	"gemma-3-27b-it",
	"gemini-2.0-flash-lite-001",
	"gemini-2.0-flash-lite",
}

// GeminiClient calls the Gemini generateContent REST endpoint. It doubles as
// a plain text Generator for the judge when no local model is configured.
type GeminiClient struct {
	baseURL    string
	apiKey     string
	models     []string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewGemini creates a Gemini client with the default model fallback chain.
func NewGemini(baseURL, apiKey string, logger *slog.Logger) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	return &GeminiClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		models:     DefaultGeminiModels,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		now:        time.Now,
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Analyze sends the image with the emotion prompt, walking the model
// fallback chain until one returns text.
func (c *GeminiClient) Analyze(ctx context.Context, image []byte) (models.SourceResult, error) {
	parts := []geminiPart{
		{Text: emotionPrompt},
		{InlineData: &geminiInlineData{
			MimeType: "image/jpeg",
			Data:     base64.StdEncoding.EncodeToString(image),
		}},
	}

	var lastErr error
	for _, model := range c.models {
		text, err := c.generateContent(ctx, model, parts)
		if err != nil {
			lastErr = err
			c.logger.Warn("gemini model failed, trying next", "model", model, "error", err)
			continue
		}
		return source.ParseAIText("gemini-"+model, text, c.now()), nil
	}
	return models.SourceResult{}, fmt.Errorf("gemini: all models failed: %w", lastErr)
}

// Generate satisfies the judge's Generator interface with a text-only call,
// walking the same model fallback chain.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for _, model := range c.models {
		text, err := c.generateContent(ctx, model, []geminiPart{{Text: prompt}})
		if err != nil {
			lastErr = err
			continue
		}
		return text, nil
	}
	return "", fmt.Errorf("gemini: all models failed: %w", lastErr)
}

func (c *GeminiClient) generateContent(ctx context.Context, model string, parts []geminiPart) (string, error) {
	payload, err := json.Marshal(geminiRequest{Contents: []geminiContent{{Parts: parts}}})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
