// Package analyzer orchestrates the full pipeline: classifier fan-out,
// fusion, agent aggregation and judgment.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/zombar/emoscan/internal/agent"
	"github.com/zombar/emoscan/internal/emotion"
	"github.com/zombar/emoscan/internal/fusion"
	"github.com/zombar/emoscan/internal/models"
	"github.com/zombar/emoscan/internal/report"
)

const (
	classifierTimeout = 45 * time.Second

	// batchConcurrency caps how many images of one batch are classified at
	// once; each image already fans out to every classifier internally.
	batchConcurrency = 4
)

// ImageClassifier is any client that turns an image into a source result.
type ImageClassifier interface {
	Analyze(ctx context.Context, image []byte) (models.SourceResult, error)
}

// Analyzer runs images through the data classifier and the vision model
// chain, fuses the opinions and, for batches, judges them.
type Analyzer struct {
	dataSource    ImageClassifier   // Face++, may be nil
	visionSources []ImageClassifier // tried in order until one succeeds
	fusionEngine  *fusion.Engine
	judge         *agent.Judge
	llmJudge      *agent.LLMJudge // optional, algorithmic judge is the fallback
	logger        *slog.Logger
	now           func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithDataSource sets the structured-data classifier.
func WithDataSource(c ImageClassifier) Option {
	return func(a *Analyzer) { a.dataSource = c }
}

// WithVisionSources sets the vision model fallback chain.
func WithVisionSources(cs ...ImageClassifier) Option {
	return func(a *Analyzer) { a.visionSources = cs }
}

// WithLLMJudge enables the LLM judge for batch analyses.
func WithLLMJudge(lj *agent.LLMJudge) Option {
	return func(a *Analyzer) { a.llmJudge = lj }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// New creates an Analyzer. At least one classifier must be configured or
// every analysis will fail.
func New(logger *slog.Logger, opts ...Option) *Analyzer {
	weights := agent.DefaultWeights()
	a := &Analyzer{
		fusionEngine: fusion.New(fusion.Weights{Facepp: weights.Data, AI: weights.Visual}),
		judge:        agent.NewJudge(weights),
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeImage runs one image through all classifiers concurrently and
// fuses whatever succeeded. Partial failure degrades, total failure reports
// every per-source error.
func (a *Analyzer) AnalyzeImage(ctx context.Context, image []byte) models.AnalysisResponse {
	analysis := a.classifyImage(ctx, image)

	var results []models.SourceResult
	if analysis.DataResult != nil {
		results = append(results, *analysis.DataResult)
	}
	if analysis.VisualResult != nil {
		results = append(results, *analysis.VisualResult)
	}

	if len(results) == 0 {
		msg := "all classifiers failed: " + strings.Join(analysis.Errors, "; ")
		a.logger.Error("image analysis failed", "error", msg)
		return models.AnalysisResponse{
			Success:      false,
			Emotions:     emotion.Neutral(),
			ErrorMessage: msg,
		}
	}

	fused := a.fusionEngine.Fuse(results)
	return models.AnalysisResponse{
		Success:      true,
		Emotions:     fused,
		Sources:      results,
		AnalysisText: report.SingleText(results, fused, analysis.Errors, a.now()),
	}
}

// AnalyzeBatch runs every image through both classifier pipelines, then
// aggregates per-pipeline agents and asks the judge for one final verdict.
// The LLM judge runs first when configured; any failure there falls back to
// the algorithmic judge with a warning recorded on the judgment.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, images [][]byte) models.BatchAnalysisResponse {
	if len(images) == 0 {
		return models.BatchAnalysisResponse{
			Success:      false,
			Emotions:     emotion.Neutral(),
			ErrorMessage: "no images provided",
		}
	}

	imageAnalyses := a.classifyBatch(ctx, images)

	var (
		dataResults   []models.SourceResult
		visualResults []models.SourceResult
		allResults    []models.SourceResult
		errs          []string
	)

	for _, analysis := range imageAnalyses {
		if analysis.DataResult != nil {
			dataResults = append(dataResults, *analysis.DataResult)
			allResults = append(allResults, *analysis.DataResult)
		}
		if analysis.VisualResult != nil {
			visualResults = append(visualResults, *analysis.VisualResult)
			allResults = append(allResults, *analysis.VisualResult)
		}
		for _, e := range analysis.Errors {
			errs = append(errs, fmt.Sprintf("image %d: %s", analysis.ImageID, e))
		}
	}

	if len(allResults) == 0 {
		msg := "all image analyses failed: " + strings.Join(errs, "; ")
		a.logger.Error("batch analysis failed", "images", len(images), "error", msg)
		return models.BatchAnalysisResponse{
			Success:      false,
			Emotions:     emotion.Neutral(),
			Images:       imageAnalyses,
			ErrorMessage: msg,
		}
	}

	dataAgent := agent.AggregateData(dataResults)
	visualAgent := agent.AggregateVisual(visualResults)

	consistency, judgment := a.runJudges(ctx, allResults, dataAgent, visualAgent, &errs)

	finalEmotions := a.fusionEngine.Fuse(allResults)
	if judgment != nil && len(judgment.Emotions) > 0 {
		finalEmotions = judgment.Emotions
	}

	resp := models.BatchAnalysisResponse{
		Success:      true,
		Emotions:     finalEmotions,
		Judgment:     judgment,
		Consistency:  consistency,
		DataAgent:    dataAgent,
		VisualAgent:  visualAgent,
		Images:       imageAnalyses,
		AnalysisText: report.BatchText(imageAnalyses, judgment, errs, len(images), a.now()),
	}
	if len(errs) > 0 {
		resp.ErrorMessage = strings.Join(errs, "; ")
	}
	return resp
}

// runJudges prefers the LLM judge and falls back to the algorithmic one.
// Consistency is always computed algorithmically when both agents exist, so
// the structured consistency fields never depend on a model call.
func (a *Analyzer) runJudges(ctx context.Context, allResults []models.SourceResult, dataAgent, visualAgent *models.AgentResult, errs *[]string) (*models.ConsistencyAnalysis, *models.FinalJudgment) {
	consistency, fallback, err := a.judge.Judge(dataAgent, visualAgent)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("judge: %s", err))
		fallback = nil
	}

	if a.llmJudge == nil {
		return consistency, fallback
	}

	judgment, err := a.llmJudge.Judge(ctx, allResults)
	if err != nil {
		a.logger.Warn("LLM judge failed, using algorithmic judge", "error", err)
		if fallback != nil {
			fallback.Warning = fmt.Sprintf("judge model unavailable (%s), algorithmic judgment used", err)
		}
		return consistency, fallback
	}
	return consistency, judgment
}

// classifyBatch classifies every image concurrently, at most
// batchConcurrency at a time, preserving input order. Each goroutine writes
// only its own slot.
func (a *Analyzer) classifyBatch(ctx context.Context, images [][]byte) []models.ImageAnalysis {
	analyses := make([]models.ImageAnalysis, len(images))
	sem := make(chan struct{}, batchConcurrency)
	var wg sync.WaitGroup

	for i, image := range images {
		wg.Add(1)
		go func(i int, image []byte) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			analysis := a.classifyImage(ctx, image)
			analysis.ImageID = i + 1
			analyses[i] = analysis
		}(i, image)
	}

	wg.Wait()
	return analyses
}

// classifyImage fans out to the data classifier and the vision chain
// concurrently with a bounded per-call timeout.
func (a *Analyzer) classifyImage(ctx context.Context, image []byte) models.ImageAnalysis {
	var (
		analysis models.ImageAnalysis
		mu       sync.Mutex
		wg       sync.WaitGroup
	)

	if a.dataSource != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, classifierTimeout)
			defer cancel()

			result, err := a.dataSource.Analyze(callCtx, image)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				analysis.Errors = append(analysis.Errors, fmt.Sprintf("data source: %s", err))
				return
			}
			analysis.DataResult = &result
		}()
	}

	if len(a.visionSources) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := a.classifyVision(ctx, image)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				analysis.Errors = append(analysis.Errors, fmt.Sprintf("vision source: %s", err))
				return
			}
			analysis.VisualResult = &result
		}()
	}

	wg.Wait()

	if a.dataSource == nil && len(a.visionSources) == 0 {
		analysis.Errors = append(analysis.Errors, "no classifiers configured")
	}
	return analysis
}

// classifyVision walks the vision chain until one classifier answers.
func (a *Analyzer) classifyVision(ctx context.Context, image []byte) (models.SourceResult, error) {
	var lastErr error
	for _, src := range a.visionSources {
		callCtx, cancel := context.WithTimeout(ctx, classifierTimeout)
		result, err := src.Analyze(callCtx, image)
		cancel()
		if err != nil {
			lastErr = err
			a.logger.Warn("vision classifier failed, trying next", "error", err)
			continue
		}
		return result, nil
	}
	return models.SourceResult{}, lastErr
}
