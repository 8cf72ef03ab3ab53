package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zombar/emoscan/internal/emotion"
	"github.com/zombar/emoscan/internal/models"
	"github.com/zombar/emoscan/internal/report"
	"github.com/zombar/emoscan/internal/source"
)

// Generator produces a completion for a prompt. Satisfied by the vision
// package's model clients.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// judgePrompt instructs the reasoning model to act as referee over all
// individual per-image, per-source results and answer with a single JSON
// verdict.
const judgePrompt = `You are a professional emotion-analysis referee. You are given the
individual emotion-recognition results from multiple independent classifiers
across multiple face images of the same person. Produce one final verdict.

Rules:
1. Weigh the consistency of all results; discard obvious outliers.
2. Treat the structured API and the vision models as equally credible.
3. Lower your confidence when the sources disagree strongly.
4. The emotion probabilities must sum to 1.0.

Respond with ONLY a JSON object, no other text:

{
  "final_emotion": "happy",
  "confidence": 0.85,
  "reasoning": "why you decided this",
  "consistency_analysis": "how well the sources agreed",
  "emotions": {
    "angry": 0.05, "disgusted": 0.02, "fearful": 0.03, "happy": 0.75,
    "neutral": 0.10, "sad": 0.03, "surprised": 0.02
  }
}
`

// llmVerdict is the JSON shape the referee model must return. Anything else
// is a parse failure, never a crash.
type llmVerdict struct {
	FinalEmotion        string             `json:"final_emotion"`
	Confidence          float64            `json:"confidence"`
	Reasoning           string             `json:"reasoning"`
	ConsistencyAnalysis string             `json:"consistency_analysis"`
	Emotions            map[string]float64 `json:"emotions"`
}

// LLMJudge asks a reasoning model for the final verdict instead of running
// the algorithmic tie-break. Callers fall back to Judge on any error.
type LLMJudge struct {
	generator Generator
	logger    *slog.Logger
	timeout   time.Duration
}

// NewLLMJudge creates an LLM-backed judge around a model client.
func NewLLMJudge(generator Generator, logger *slog.Logger) *LLMJudge {
	return &LLMJudge{
		generator: generator,
		logger:    logger,
		timeout:   30 * time.Second,
	}
}

// Judge serializes every per-image source result as referee context and
// parses the model's verdict into the same FinalJudgment shape the
// algorithmic path produces.
func (lj *LLMJudge) Judge(ctx context.Context, results []models.SourceResult) (*models.FinalJudgment, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("no results to judge")
	}

	input, err := json.MarshalIndent(map[string]any{"analysis_results": results}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal judge input: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, lj.timeout)
	defer cancel()

	response, err := lj.generator.Generate(ctx, judgePrompt+"\nInput data:\n"+string(input))
	if err != nil {
		return nil, fmt.Errorf("judge model call: %w", err)
	}

	verdict, err := parseVerdict(response)
	if err != nil {
		lj.logger.Warn("judge model returned unparsable verdict", "error", err)
		return nil, err
	}

	vector := emotion.Normalize(canonicalScores(verdict.Emotions))

	finalEmotion := emotion.CanonicalName(strings.ToLower(strings.TrimSpace(verdict.FinalEmotion)))
	if verdict.FinalEmotion == "" {
		finalEmotion = emotion.Dominant(vector)
	}

	confidence := verdict.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	polarity := emotion.Polarity(vector)

	fj := &models.FinalJudgment{
		FinalEmotion:       finalEmotion,
		FinalCategory:      emotion.Categorize(polarity),
		FinalPolarity:      polarity,
		FinalConfidence:    confidence,
		AdjustedConfidence: confidence,
		FinalIntensity:     emotion.IntensityTier(vector[finalEmotion]),
		FinalReliability:   emotion.ReliabilityTier(confidence),
		DecisionBasis:      "judge model verdict: " + verdict.ConsistencyAnalysis,
		Emotions:           vector,
		Reasoning:          verdict.Reasoning,
	}
	fj.Summary = report.Summary(fj)
	return fj, nil
}

// parseVerdict runs the same extraction ladder as the source adapters over
// the referee response.
func parseVerdict(text string) (*llmVerdict, error) {
	for _, candidate := range source.JSONCandidates(text) {
		var v llmVerdict
		if err := json.Unmarshal([]byte(candidate), &v); err != nil {
			continue
		}
		if v.FinalEmotion == "" && len(v.Emotions) == 0 {
			continue
		}
		return &v, nil
	}
	return nil, fmt.Errorf("no valid verdict JSON in response")
}

func canonicalScores(raw map[string]float64) map[string]float64 {
	scores := map[string]float64{}
	for name, val := range raw {
		scores[emotion.CanonicalName(strings.ToLower(strings.TrimSpace(name)))] += val
	}
	return scores
}
