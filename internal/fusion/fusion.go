// Package fusion combines per-source emotion distributions into a single
// consensus vector using fixed trust weights.
package fusion

import (
	"strings"

	"github.com/zombar/emoscan/internal/emotion"
	"github.com/zombar/emoscan/internal/models"
)

// Weights carries the per-source-type trust weights. The structured vendor
// earns more trust than a single generic vision model.
type Weights struct {
	Facepp float64
	AI     float64
}

// DefaultWeights returns the canonical trust weights shared with the
// two-agent judge: structured data 0.6, AI 0.4.
func DefaultWeights() Weights {
	return Weights{Facepp: 0.6, AI: 0.4}
}

// Engine implements the single-image fusion path.
type Engine struct {
	weights Weights
}

// New creates a fusion engine with the given trust weights.
func New(weights Weights) *Engine {
	return &Engine{weights: weights}
}

// Fuse merges any number of source results into one consensus vector.
// Zero results is the neutral distribution and one result passes through
// unchanged. Two or more are combined per category as a weighted arithmetic
// mean (weights keyed by source identity, so ordering is irrelevant), then
// renormalized. Partial agreement survives; this is not a vote.
func (e *Engine) Fuse(results []models.SourceResult) emotion.Vector {
	if len(results) == 0 {
		return emotion.Neutral()
	}
	if len(results) == 1 {
		return results[0].Emotions
	}

	merged := map[string]float64{}
	totalWeight := 0.0
	for _, r := range results {
		w := e.weightFor(r.Source)
		totalWeight += w
		for _, c := range emotion.Categories {
			merged[c] += r.Emotions[c] * w
		}
	}

	if totalWeight > 0 {
		for c := range merged {
			merged[c] /= totalWeight
		}
	}

	return emotion.Normalize(merged)
}

func (e *Engine) weightFor(source string) float64 {
	if strings.HasPrefix(source, "facepp") {
		return e.weights.Facepp
	}
	return e.weights.AI
}
