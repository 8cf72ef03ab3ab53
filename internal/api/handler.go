package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zombar/emoscan/internal/analyzer"
	"github.com/zombar/emoscan/internal/database"
	"github.com/zombar/emoscan/internal/emotion"
	"github.com/zombar/emoscan/internal/models"
	"github.com/zombar/emoscan/internal/tracing"
)

// BatchEnqueuer enqueues batch jobs; the queue client satisfies it.
type BatchEnqueuer interface {
	EnqueueAnalyzeBatch(ctx context.Context, jobID string, images []string) (string, error)
}

// Handler handles HTTP requests
type Handler struct {
	db          *database.DB
	analyzer    *analyzer.Analyzer
	queueClient BatchEnqueuer // nil runs batches synchronously
	mux         *http.ServeMux
}

// NewHandler creates a new API handler with CORS support and metrics
func NewHandler(db *database.DB, a *analyzer.Analyzer, queueClient BatchEnqueuer) http.Handler {
	h := &Handler{
		db:          db,
		analyzer:    a,
		queueClient: queueClient,
		mux:         http.NewServeMux(),
	}

	h.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(h.mux)
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	h.mux.Handle("/metrics", promhttp.Handler()) // Prometheus metrics endpoint
	h.mux.HandleFunc("/api/analyze", h.handleAnalyze)
	h.mux.HandleFunc("/api/analyze/batch", h.handleAnalyzeBatch)
	h.mux.HandleFunc("/api/jobs/", h.handleJobStatus)
	h.mux.HandleFunc("/api/judgments", h.handleListJudgments)
	h.mux.HandleFunc("/api/judgments/", h.handleJudgmentOperations)
	h.mux.HandleFunc("/api/search", h.handleSearchByEmotion)
	h.mux.HandleFunc("/health", h.handleHealth)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleAnalyze runs a single image through the pipeline synchronously.
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Image string `json:"image"` // base64-encoded JPEG
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Image == "" {
		respondError(w, "Image field is required", http.StatusBadRequest)
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		respondError(w, "Image must be base64 encoded", http.StatusBadRequest)
		return
	}

	tracing.SetSpanAttributes(r.Context(), attribute.Int("image.bytes", len(image)))

	start := time.Now()
	result := h.analyzer.AnalyzeImage(r.Context(), image)
	analysisDuration.WithLabelValues("single").Observe(time.Since(start).Seconds())

	if !result.Success {
		analysesTotal.WithLabelValues("single", "error").Inc()
		respondJSON(w, result, http.StatusBadGateway)
		return
	}
	analysesTotal.WithLabelValues("single", "ok").Inc()
	dominantEmotions.WithLabelValues(emotion.Dominant(result.Emotions)).Inc()

	id := uuid.NewString()
	now := time.Now().UTC()
	judgment := &models.Judgment{
		ID:   id,
		Kind: "single",
		Result: models.BatchAnalysisResponse{
			Success:      result.Success,
			Emotions:     result.Emotions,
			AnalysisText: result.AnalysisText,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.db.SaveJudgment(judgment); err != nil {
		respondError(w, fmt.Sprintf("Failed to save analysis: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"id":     id,
		"result": result,
	}, http.StatusOK)
}

// handleAnalyzeBatch enqueues a batch job, or runs it inline when no queue
// is configured.
func (h *Handler) handleAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Images []string `json:"images"` // base64-encoded JPEGs
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Images) == 0 {
		respondError(w, "Images field is required", http.StatusBadRequest)
		return
	}

	tracing.SetSpanAttributes(r.Context(), attribute.Int("images.count", len(req.Images)))
	jobID := uuid.NewString()

	if h.queueClient != nil {
		taskID, err := h.queueClient.EnqueueAnalyzeBatch(r.Context(), jobID, req.Images)
		if err != nil {
			respondError(w, fmt.Sprintf("Failed to enqueue analysis: %v", err), http.StatusInternalServerError)
			return
		}
		batchJobsEnqueued.Inc()

		respondJSON(w, map[string]interface{}{
			"job_id":  jobID,
			"task_id": taskID,
			"status":  "queued",
			"message": "Batch analysis queued for processing",
		}, http.StatusAccepted)
		return
	}

	images := make([][]byte, 0, len(req.Images))
	for i, encoded := range req.Images {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			respondError(w, fmt.Sprintf("Image %d must be base64 encoded", i+1), http.StatusBadRequest)
			return
		}
		images = append(images, raw)
	}

	start := time.Now()
	result := h.analyzer.AnalyzeBatch(r.Context(), images)
	analysisDuration.WithLabelValues("batch").Observe(time.Since(start).Seconds())

	if !result.Success {
		analysesTotal.WithLabelValues("batch", "error").Inc()
		respondJSON(w, result, http.StatusBadGateway)
		return
	}
	analysesTotal.WithLabelValues("batch", "ok").Inc()
	dominantEmotions.WithLabelValues(emotion.Dominant(result.Emotions)).Inc()

	now := time.Now().UTC()
	judgment := &models.Judgment{
		ID:        jobID,
		Kind:      "batch",
		Result:    result,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.db.SaveJudgment(judgment); err != nil {
		respondError(w, fmt.Sprintf("Failed to save analysis: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"job_id": jobID,
		"status": "completed",
		"result": result,
	}, http.StatusOK)
}

// handleJobStatus handles job status requests
func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if idx := strings.Index(jobID, "/"); idx != -1 {
		jobID = jobID[:idx]
	}
	if jobID == "" {
		respondError(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	judgment, err := h.db.GetJudgment(jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSON(w, map[string]interface{}{
				"job_id":  jobID,
				"status":  "pending",
				"message": "Job not complete - it may still be queued or has expired",
			}, http.StatusNotFound)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{
		"job_id":     jobID,
		"status":     "completed",
		"created_at": judgment.CreatedAt,
		"updated_at": judgment.UpdatedAt,
		"result":     judgment.Result,
	}, http.StatusOK)
}

// handleListJudgments handles listing all judgments with pagination
func (h *Handler) handleListJudgments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 10
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	judgments, err := h.db.ListJudgments(limit, offset)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, judgments, http.StatusOK)
}

// handleJudgmentOperations handles GET and DELETE for specific judgments
func (h *Handler) handleJudgmentOperations(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/judgments/")
	if id == "" {
		respondError(w, "Judgment ID is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		judgment, err := h.db.GetJudgment(id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				respondError(w, err.Error(), http.StatusNotFound)
			} else {
				respondError(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		respondJSON(w, judgment, http.StatusOK)
	case http.MethodDelete:
		if err := h.db.DeleteJudgment(id); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				respondError(w, err.Error(), http.StatusNotFound)
			} else {
				respondError(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSearchByEmotion handles searching judgments by dominant emotion
func (h *Handler) handleSearchByEmotion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.ToLower(r.URL.Query().Get("emotion"))
	if name == "" {
		respondError(w, "Emotion parameter is required", http.StatusBadRequest)
		return
	}
	if !slices.Contains(emotion.Categories, name) {
		respondError(w, fmt.Sprintf("Unknown emotion %q", name), http.StatusBadRequest)
		return
	}

	judgments, err := h.db.SearchByEmotion(name)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, judgments, http.StatusOK)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
