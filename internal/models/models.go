package models

import (
	"encoding/json"
	"time"

	"github.com/zombar/emoscan/internal/emotion"
)

// SourceResult is one classifier's opinion about one image. Immutable after
// creation; the raw vendor payload rides along for debugging only.
type SourceResult struct {
	Source          string          `json:"source"` // facepp, gemini-<model>, openrouter-<model>
	Emotions        emotion.Vector  `json:"emotions"`
	DominantEmotion string          `json:"dominant_emotion"`
	Confidence      float64         `json:"confidence"`
	Timestamp       time.Time       `json:"timestamp"`
	RawData         json.RawMessage `json:"raw_data,omitempty"`
}

// NewSourceResult derives the dominant emotion and confidence from the
// (already normalized) vector.
func NewSourceResult(source string, emotions emotion.Vector, ts time.Time, raw json.RawMessage) SourceResult {
	dominant := emotion.Dominant(emotions)
	return SourceResult{
		Source:          source,
		Emotions:        emotions,
		DominantEmotion: dominant,
		Confidence:      emotions[dominant],
		Timestamp:       ts,
		RawData:         raw,
	}
}

// AgentResult is one agent's summary opinion over many per-image source
// results, directly comparable with the other agent's by the judge.
type AgentResult struct {
	Agent           string         `json:"agent"` // data or visual
	Emotions        emotion.Vector `json:"emotions"`
	DominantEmotion string         `json:"dominant_emotion"`
	EmotionCategory string         `json:"emotion_category"` // positive, negative, neutral
	Polarity        float64        `json:"polarity"`
	Confidence      float64        `json:"confidence"`
	Intensity       string         `json:"intensity"`   // low, medium, high
	Reliability     string         `json:"reliability"` // low, medium, high
	SampleCount     int            `json:"sample_count"`
	Summary         string         `json:"summary"`
}

// ConsistencyAnalysis quantifies how much two agents agree.
type ConsistencyAnalysis struct {
	EmotionMatch          bool    `json:"emotion_match"`
	CategoryMatch         bool    `json:"category_match"`
	PolarityConsistency   float64 `json:"polarity_consistency"`
	ConfidenceConsistency float64 `json:"confidence_consistency"`
	ConsistencyScore      float64 `json:"consistency_score"`
	ConsistencyLevel      string  `json:"consistency_level"` // very_high .. very_low
}

// FinalJudgment is the single consensus decision produced for a request,
// by either the algorithmic judge or the LLM judge. The two paths emit the
// same shape so callers never branch on which one ran.
type FinalJudgment struct {
	FinalEmotion       string         `json:"final_emotion"`
	FinalCategory      string         `json:"final_category"`
	FinalPolarity      float64        `json:"final_polarity"`
	FinalConfidence    float64        `json:"final_confidence"`
	AdjustedConfidence float64        `json:"adjusted_confidence"`
	FinalIntensity     string         `json:"final_intensity"`
	FinalReliability   string         `json:"final_reliability"`
	DecisionBasis      string         `json:"decision_basis"`
	Summary            string         `json:"summary"`
	Emotions           emotion.Vector `json:"emotions,omitempty"`
	Reasoning          string         `json:"reasoning,omitempty"` // LLM judge only
	Warning            string         `json:"warning,omitempty"`   // set on degraded paths
}

// AnalysisResponse is the single-image analysis result.
type AnalysisResponse struct {
	Success      bool           `json:"success"`
	Emotions     emotion.Vector `json:"emotions"`
	Sources      []SourceResult `json:"sources"`
	AnalysisText string         `json:"analysis_text"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// ImageAnalysis holds both sources' opinions for one image of a batch.
type ImageAnalysis struct {
	ImageID      int           `json:"image_id"`
	DataResult   *SourceResult `json:"data_result,omitempty"`
	VisualResult *SourceResult `json:"visual_result,omitempty"`
	Errors       []string      `json:"errors,omitempty"`
}

// BatchAnalysisResponse is the batch (multi-image) analysis result.
type BatchAnalysisResponse struct {
	Success      bool                 `json:"success"`
	Emotions     emotion.Vector       `json:"emotions"`
	Judgment     *FinalJudgment       `json:"judgment,omitempty"`
	Consistency  *ConsistencyAnalysis `json:"consistency,omitempty"`
	DataAgent    *AgentResult         `json:"data_agent,omitempty"`
	VisualAgent  *AgentResult         `json:"visual_agent,omitempty"`
	Images       []ImageAnalysis      `json:"images"`
	AnalysisText string               `json:"analysis_text"`
	ErrorMessage string               `json:"error_message,omitempty"`
}

// Judgment is the persisted record of a completed analysis.
type Judgment struct {
	ID        string                `json:"id"`
	Kind      string                `json:"kind"` // single or batch
	Result    BatchAnalysisResponse `json:"result"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}
