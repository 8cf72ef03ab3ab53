// Package queue moves batch analyses off the request path. Jobs are
// enqueued with their trace context so worker spans link back to the
// originating request.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Task type constants
const (
	TypeAnalyzeBatch = "emoscan:analyze_batch"
)

// Queue names in priority order.
const (
	QueueBatch   = "batch-analysis"
	QueueDefault = "default"
)

// AnalyzeBatchPayload carries one batch job. Images travel base64-encoded
// inside the task payload; Redis holds them only until the job completes.
type AnalyzeBatchPayload struct {
	JobID  string   `json:"job_id"`
	Images []string `json:"images"` // base64-encoded JPEG bytes
	// Tracing and timing fields
	TraceID    string `json:"trace_id,omitempty"`
	SpanID     string `json:"span_id,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at"` // Unix timestamp in nanoseconds
}

// Client wraps the Asynq client for enqueueing tasks
type Client struct {
	client *asynq.Client
}

// ClientConfig contains configuration for the queue client
type ClientConfig struct {
	RedisAddr string
}

// NewClient creates a new queue client
func NewClient(cfg ClientConfig) *Client {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
	}

	return &Client{
		client: asynq.NewClient(redisOpt),
	}
}

// EnqueueAnalyzeBatch enqueues a batch analysis job
func (c *Client) EnqueueAnalyzeBatch(ctx context.Context, jobID string, images []string) (string, error) {
	payload := AnalyzeBatchPayload{
		JobID:      jobID,
		Images:     images,
		EnqueuedAt: time.Now().UnixNano(), // Record enqueue time for queue wait metrics
	}

	// Add tracing context if available
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()
		payload.TraceID = spanCtx.TraceID().String()
		payload.SpanID = spanCtx.SpanID().String()

		span.AddEvent("task_enqueued", trace.WithAttributes(
			attribute.String("task.type", TypeAnalyzeBatch),
			attribute.String("job_id", jobID),
			attribute.Int("images.count", len(images)),
			attribute.Int64("enqueued_at", payload.EnqueuedAt),
		))
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(TypeAnalyzeBatch, payloadBytes, asynq.TaskID(jobID))

	opts := []asynq.Option{
		asynq.MaxRetry(5),                   // Remote classifier APIs flake
		asynq.Timeout(15 * time.Minute),     // Whole batch, every image, both pipelines
		asynq.Queue(QueueBatch),             // Batch analysis queue (high priority)
		asynq.Retention(7 * 24 * time.Hour), // Keep completed tasks for 7 days
	}

	info, err := c.client.Enqueue(task, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue batch analysis task: %w", err)
	}

	return info.ID, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}
