package agent

import (
	"fmt"
	"math"

	"github.com/zombar/emoscan/internal/emotion"
	"github.com/zombar/emoscan/internal/models"
	"github.com/zombar/emoscan/internal/report"
)

// Weights carries each agent's fixed trust weight. The structured data agent
// gets the higher trust; both the fusion engine and the judge share this one
// configuration rather than re-declaring it per module.
type Weights struct {
	Data   float64
	Visual float64
}

// DefaultWeights returns the canonical agent weights: data 0.6, visual 0.4.
func DefaultWeights() Weights {
	return Weights{Data: 0.6, Visual: 0.4}
}

// Judge reconciles two agents' summary opinions into one final decision.
type Judge struct {
	weights Weights
}

// NewJudge creates a judge with the given agent weights.
func NewJudge(weights Weights) *Judge {
	return &Judge{weights: weights}
}

// Judge compares the two agents' opinions and produces the consistency
// analysis and the final judgment. Either agent may be nil, in which case
// the other's opinion is adopted directly with a warning recorded; at least
// one must be present.
func (j *Judge) Judge(data, visual *models.AgentResult) (*models.ConsistencyAnalysis, *models.FinalJudgment, error) {
	switch {
	case data == nil && visual == nil:
		return nil, nil, fmt.Errorf("no agent data available")
	case data == nil:
		fj := judgmentFromAgent(visual)
		fj.Warning = "data agent unavailable, visual agent only"
		return nil, fj, nil
	case visual == nil:
		fj := judgmentFromAgent(data)
		fj.Warning = "visual agent unavailable, data agent only"
		return nil, fj, nil
	}

	consistency := j.analyzeConsistency(data, visual)
	judgment := j.decide(data, visual, consistency)
	judgment.Summary = report.Summary(judgment)
	return consistency, judgment, nil
}

func (j *Judge) analyzeConsistency(data, visual *models.AgentResult) *models.ConsistencyAnalysis {
	emotionMatch := data.DominantEmotion == visual.DominantEmotion
	categoryMatch := data.EmotionCategory == visual.EmotionCategory

	// Polarity spans [-1,1], so half the absolute difference normalizes the
	// gap into [0,1].
	polarityConsistency := 1 - math.Min(1, math.Abs(data.Polarity-visual.Polarity)/2)
	confidenceConsistency := 1 - math.Min(1, math.Abs(data.Confidence-visual.Confidence))

	score := 0.0
	if emotionMatch {
		score += 0.4
	}
	if categoryMatch {
		score += 0.3
	}
	score += 0.2 * polarityConsistency
	score += 0.1 * confidenceConsistency

	return &models.ConsistencyAnalysis{
		EmotionMatch:          emotionMatch,
		CategoryMatch:         categoryMatch,
		PolarityConsistency:   polarityConsistency,
		ConfidenceConsistency: confidenceConsistency,
		ConsistencyScore:      score,
		ConsistencyLevel:      consistencyLevel(score),
	}
}

func consistencyLevel(score float64) string {
	switch {
	case score >= 0.8:
		return "very_high"
	case score >= 0.6:
		return "high"
	case score >= 0.4:
		return "medium"
	case score >= 0.2:
		return "low"
	default:
		return "very_low"
	}
}

func (j *Judge) decide(data, visual *models.AgentResult, consistency *models.ConsistencyAnalysis) *models.FinalJudgment {
	finalPolarity := data.Polarity*j.weights.Data + visual.Polarity*j.weights.Visual
	finalConfidence := data.Confidence*j.weights.Data + visual.Confidence*j.weights.Visual

	// Agreement earns a confidence bonus; proportional to the consistency
	// score, capped at +0.2 and never above 1.0.
	adjusted := math.Min(1.0, finalConfidence+consistency.ConsistencyScore*0.2)

	// Consensus overrides weight. Weight only breaks disagreement: each
	// agent's vote strength is confidence times trust weight, and the
	// comparison is recorded so the decision can be audited.
	var finalEmotion, decisionBasis string
	if consistency.EmotionMatch {
		finalEmotion = data.DominantEmotion
		decisionBasis = "both agents agree"
	} else {
		dataVote := data.Confidence * j.weights.Data
		visualVote := visual.Confidence * j.weights.Visual
		if dataVote >= visualVote {
			finalEmotion = data.DominantEmotion
			decisionBasis = fmt.Sprintf("data agent vote wins (%.2f > %.2f)", dataVote, visualVote)
		} else {
			finalEmotion = visual.DominantEmotion
			decisionBasis = fmt.Sprintf("visual agent vote wins (%.2f > %.2f)", visualVote, dataVote)
		}
	}

	intensityScore := emotion.IntensityMidpoint(data.Intensity)*j.weights.Data +
		emotion.IntensityMidpoint(visual.Intensity)*j.weights.Visual

	merged := map[string]float64{}
	for _, c := range emotion.Categories {
		merged[c] = data.Emotions[c]*j.weights.Data + visual.Emotions[c]*j.weights.Visual
	}

	return &models.FinalJudgment{
		Emotions:           emotion.Normalize(merged),
		FinalEmotion:       finalEmotion,
		FinalCategory:      emotion.Categorize(finalPolarity),
		FinalPolarity:      finalPolarity,
		FinalConfidence:    finalConfidence,
		AdjustedConfidence: adjusted,
		FinalIntensity:     emotion.IntensityTier(intensityScore),
		FinalReliability:   emotion.ReliabilityTier(adjusted),
		DecisionBasis:      decisionBasis,
	}
}

// judgmentFromAgent adopts a single agent's opinion when the other pipeline
// produced nothing at all.
func judgmentFromAgent(a *models.AgentResult) *models.FinalJudgment {
	fj := &models.FinalJudgment{
		FinalEmotion:       a.DominantEmotion,
		FinalCategory:      a.EmotionCategory,
		FinalPolarity:      a.Polarity,
		FinalConfidence:    a.Confidence,
		AdjustedConfidence: a.Confidence,
		FinalIntensity:     a.Intensity,
		FinalReliability:   a.Reliability,
		DecisionBasis:      fmt.Sprintf("%s agent only", a.Agent),
		Emotions:           a.Emotions,
	}
	fj.Summary = report.Summary(fj)
	return fj
}
