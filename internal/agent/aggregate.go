// Package agent implements the two aggregation pipelines (data and visual)
// and the judge that reconciles their summary opinions into one decision.
package agent

import (
	"fmt"

	"github.com/zombar/emoscan/internal/emotion"
	"github.com/zombar/emoscan/internal/models"
)

// Agent name tags.
const (
	DataAgent   = "data"
	VisualAgent = "visual"
)

// visualSampleTarget is the sample count at which the visual pipeline's
// confidence is no longer discounted. One model opinion should count for
// less than an opinion backed by many images.
const visualSampleTarget = 5

// AggregateData reduces the structured pipeline's per-image results to one
// summary opinion. Returns nil when there is nothing to aggregate.
func AggregateData(results []models.SourceResult) *models.AgentResult {
	return aggregate(DataAgent, results, false)
}

// AggregateVisual reduces the AI pipeline's per-image results to one summary
// opinion, discounting confidence for small samples.
func AggregateVisual(results []models.SourceResult) *models.AgentResult {
	return aggregate(VisualAgent, results, true)
}

func aggregate(name string, results []models.SourceResult, discountSample bool) *models.AgentResult {
	if len(results) == 0 {
		return nil
	}

	vectors := make([]emotion.Vector, 0, len(results))
	confidenceSum := 0.0
	for _, r := range results {
		vectors = append(vectors, r.Emotions)
		confidenceSum += r.Confidence
	}

	mean := emotion.Mean(vectors)
	dominant := emotion.Dominant(mean)
	polarity := emotion.Polarity(mean)

	confidence := confidenceSum / float64(len(results))
	if discountSample {
		adequacy := float64(len(results)) / visualSampleTarget
		if adequacy > 1 {
			adequacy = 1
		}
		confidence *= adequacy
	}

	intensity := emotion.IntensityTier(mean[dominant])
	reliability := emotion.ReliabilityTier(confidence)
	category := emotion.Categorize(polarity)

	return &models.AgentResult{
		Agent:           name,
		Emotions:        mean,
		DominantEmotion: dominant,
		EmotionCategory: category,
		Polarity:        polarity,
		Confidence:      confidence,
		Intensity:       intensity,
		Reliability:     reliability,
		SampleCount:     len(results),
		Summary: fmt.Sprintf("%s agent: %s %s emotion (%s), confidence %.2f over %d sample(s)",
			name, intensity, category, dominant, confidence, len(results)),
	}
}
