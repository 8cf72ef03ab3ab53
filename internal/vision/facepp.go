// Package vision holds the clients for the external emotion classifiers:
// the Face++ detection API and the vision-capable language models. Every
// client returns the same models.SourceResult shape so the analyzer treats
// them interchangeably.
package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/zombar/emoscan/internal/emotion"
	"github.com/zombar/emoscan/internal/models"
	"github.com/zombar/emoscan/internal/source"
)

const (
	DefaultFaceppEndpoint = "https://api-us.faceplusplus.com/facepp/v3/detect"

	faceppTimeout     = 30 * time.Second
	faceppMaxAttempts = 3
)

// FaceppClient calls the Face++ detect endpoint with return_attributes=emotion.
type FaceppClient struct {
	endpoint   string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewFacepp creates a Face++ client. An empty endpoint selects the default
// international endpoint.
func NewFacepp(endpoint, apiKey, apiSecret string, logger *slog.Logger) *FaceppClient {
	if endpoint == "" {
		endpoint = DefaultFaceppEndpoint
	}
	return &FaceppClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: &http.Client{Timeout: faceppTimeout},
		logger:     logger,
		now:        time.Now,
	}
}

// Analyze submits an image and returns the parsed emotion vector. Transient
// HTTP failures are retried with capped exponential backoff. A response with
// no detected face is a valid answer, not a failure: it reads as a pure
// neutral opinion and is not retried.
func (c *FaceppClient) Analyze(ctx context.Context, image []byte) (models.SourceResult, error) {
	var lastErr error
	for attempt := 0; attempt < faceppMaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return models.SourceResult{}, err
			}
		}

		raw, err := c.post(ctx, image)
		if err != nil {
			lastErr = err
			c.logger.Warn("facepp request failed", "attempt", attempt+1, "error", err)
			continue
		}

		result, err := source.ParseFacepp(raw, c.now())
		if err != nil {
			if errors.Is(err, source.ErrNoFaceDetected) {
				c.logger.Info("facepp detected no face, reporting neutral")
				return models.NewSourceResult("facepp", emotion.Neutral(), c.now(), raw), nil
			}
			return models.SourceResult{}, err
		}
		return result, nil
	}
	return models.SourceResult{}, fmt.Errorf("facepp: %w", lastErr)
}

func (c *FaceppClient) post(ctx context.Context, image []byte) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"api_key":           c.apiKey,
		"api_secret":        c.apiSecret,
		"return_attributes": "emotion",
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write form field: %w", err)
		}
	}

	part, err := writer.CreateFormFile("image_file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}
	return raw, nil
}

// sleepBackoff waits 500ms, 1s, 2s... plus up to 25% jitter, honoring
// context cancellation.
func sleepBackoff(ctx context.Context, attempt int) error {
	base := 500 * time.Millisecond << (attempt - 1)
	delay := base + time.Duration(rand.Int63n(int64(base/4)+1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
