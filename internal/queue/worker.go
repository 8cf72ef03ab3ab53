package queue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/emoscan/internal/analyzer"
	"github.com/zombar/emoscan/internal/database"
	"github.com/zombar/emoscan/internal/models"
	"github.com/zombar/emoscan/internal/tracing"
)

// Worker consumes batch analysis tasks and persists the judgments.
type Worker struct {
	server   *asynq.Server
	analyzer *analyzer.Analyzer
	db       *database.DB
	logger   *slog.Logger
}

// WorkerConfig contains configuration for the queue worker
type WorkerConfig struct {
	RedisAddr   string
	Concurrency int
}

// NewWorker creates a worker bound to the batch analysis queue.
func NewWorker(cfg WorkerConfig, a *analyzer.Analyzer, db *database.DB, logger *slog.Logger) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				QueueBatch:   5,
				QueueDefault: 1,
			},
			RetryDelayFunc: retryDelay,
			Logger:         asynqLogger{logger},
		},
	)

	return &Worker{
		server:   server,
		analyzer: a,
		db:       db,
		logger:   logger,
	}
}

// retryDelay grows quadratically. Classifier APIs that are down tend to
// stay down for minutes, not seconds.
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	return time.Duration(n*n) * 30 * time.Second
}

// Run blocks processing tasks until Shutdown is called.
func (w *Worker) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAnalyzeBatch, w.handleAnalyzeBatch)
	return w.server.Run(mux)
}

// Shutdown stops the worker gracefully.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleAnalyzeBatch(ctx context.Context, t *asynq.Task) error {
	var payload AnalyzeBatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	// Rejoin the enqueuing request's trace.
	if payload.TraceID != "" {
		ctx = tracing.ContextWithRemoteSpan(ctx, payload.TraceID, payload.SpanID)
	}
	ctx, span := tracing.Tracer().Start(ctx, "analyze_batch_task",
		trace.WithAttributes(
			attribute.String("job_id", payload.JobID),
			attribute.Int("images.count", len(payload.Images)),
		),
	)
	defer span.End()

	if payload.EnqueuedAt > 0 {
		wait := time.Since(time.Unix(0, payload.EnqueuedAt))
		w.logger.Info("batch job dequeued", "job_id", payload.JobID, "queue_wait_ms", wait.Milliseconds())
	}

	images := make([][]byte, 0, len(payload.Images))
	for i, encoded := range payload.Images {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("decode image %d: %v: %w", i+1, err, asynq.SkipRetry)
		}
		images = append(images, raw)
	}

	result := w.analyzer.AnalyzeBatch(ctx, images)
	if !result.Success {
		// All classifiers failed; worth retrying, the APIs may recover.
		return fmt.Errorf("batch analysis failed: %s", result.ErrorMessage)
	}

	now := time.Now().UTC()
	judgment := &models.Judgment{
		ID:        payload.JobID,
		Kind:      "batch",
		Result:    result,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.db.SaveJudgment(judgment); err != nil {
		return fmt.Errorf("save judgment: %w", err)
	}

	w.logger.Info("batch job completed",
		"job_id", payload.JobID,
		"final_emotion", finalEmotion(result),
		"images", len(images),
	)
	return nil
}

func finalEmotion(result models.BatchAnalysisResponse) string {
	if result.Judgment != nil {
		return result.Judgment.FinalEmotion
	}
	return ""
}

// asynqLogger adapts slog to asynq's logger interface.
type asynqLogger struct {
	logger *slog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
