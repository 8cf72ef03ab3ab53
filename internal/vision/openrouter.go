package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/zombar/emoscan/internal/models"
	"github.com/zombar/emoscan/internal/source"
)

const DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// DefaultOpenRouterModels is the fallback chain for the OpenRouter route.
var DefaultOpenRouterModels = []string{
	"google/gemma-3-27b-it:free",
	"google/gemini-2.0-flash-exp:free",
	"qwen/qwen2.5-vl-32b-instruct:free",
}

// OpenRouterClient talks to OpenRouter through its OpenAI-compatible API.
type OpenRouterClient struct {
	client *openai.Client
	models []string
	logger *slog.Logger
	now    func() time.Time
}

// NewOpenRouter creates an OpenRouter client with the default model chain.
func NewOpenRouter(baseURL, apiKey string, logger *slog.Logger) *OpenRouterClient {
	if baseURL == "" {
		baseURL = DefaultOpenRouterBaseURL
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &OpenRouterClient{
		client: openai.NewClientWithConfig(config),
		models: DefaultOpenRouterModels,
		logger: logger,
		now:    time.Now,
	}
}

// Analyze sends the image as a data URL with the emotion prompt, walking the
// model fallback chain until one answers with text.
func (c *OpenRouterClient) Analyze(ctx context.Context, image []byte) (models.SourceResult, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)

	var lastErr error
	for _, model := range c.models {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{Type: openai.ChatMessagePartTypeText, Text: emotionPrompt},
						{
							Type:     openai.ChatMessagePartTypeImageURL,
							ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
						},
					},
				},
			},
		})
		if err != nil {
			lastErr = err
			c.logger.Warn("openrouter model failed, trying next", "model", model, "error", err)
			continue
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			lastErr = fmt.Errorf("empty response from %s", model)
			continue
		}
		text := resp.Choices[0].Message.Content
		return source.ParseAIText("openrouter-"+model, text, c.now()), nil
	}
	return models.SourceResult{}, fmt.Errorf("openrouter: all models failed: %w", lastErr)
}

// Generate satisfies the judge's Generator interface with a text-only chat
// completion.
func (c *OpenRouterClient) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for _, model := range c.models {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			lastErr = fmt.Errorf("empty response from %s", model)
			continue
		}
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("openrouter: all models failed: %w", lastErr)
}
