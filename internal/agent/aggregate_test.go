package agent

import (
	"math"
	"testing"
	"time"

	"github.com/zombar/emoscan/internal/emotion"
	"github.com/zombar/emoscan/internal/models"
)

func sourceResult(source string, scores map[string]float64) models.SourceResult {
	return models.NewSourceResult(source, emotion.Normalize(scores), time.Now(), nil)
}

func TestAggregateEmpty(t *testing.T) {
	if got := AggregateData(nil); got != nil {
		t.Errorf("AggregateData(nil) = %v, want nil", got)
	}
	if got := AggregateVisual(nil); got != nil {
		t.Errorf("AggregateVisual(nil) = %v, want nil", got)
	}
}

func TestAggregateData(t *testing.T) {
	results := []models.SourceResult{
		sourceResult("facepp", map[string]float64{"happy": 0.8, "neutral": 0.2}),
		sourceResult("facepp", map[string]float64{"happy": 0.6, "neutral": 0.4}),
	}

	a := AggregateData(results)
	if a == nil {
		t.Fatal("expected agent result")
	}

	if a.Agent != DataAgent {
		t.Errorf("agent = %q, want %q", a.Agent, DataAgent)
	}
	if a.DominantEmotion != "happy" {
		t.Errorf("dominant = %q, want happy", a.DominantEmotion)
	}
	if math.Abs(a.Emotions["happy"]-0.7) > 1e-9 {
		t.Errorf("mean happy = %f, want 0.7", a.Emotions["happy"])
	}
	// No sample discount on the data pipeline.
	if math.Abs(a.Confidence-0.7) > 1e-9 {
		t.Errorf("confidence = %f, want 0.7", a.Confidence)
	}
	if a.SampleCount != 2 {
		t.Errorf("sample count = %d, want 2", a.SampleCount)
	}
	if a.EmotionCategory != "positive" {
		t.Errorf("category = %q, want positive", a.EmotionCategory)
	}
	if a.Summary == "" {
		t.Error("summary should not be empty")
	}
}

func TestAggregateVisualSampleDiscount(t *testing.T) {
	one := []models.SourceResult{
		sourceResult("gemini-test", map[string]float64{"happy": 1.0}),
	}

	a := AggregateVisual(one)
	// One sample out of the five-sample target discounts confidence to 1/5.
	if math.Abs(a.Confidence-0.2) > 1e-9 {
		t.Errorf("confidence = %f, want 0.2", a.Confidence)
	}

	five := make([]models.SourceResult, 5)
	for i := range five {
		five[i] = sourceResult("gemini-test", map[string]float64{"happy": 1.0})
	}
	a = AggregateVisual(five)
	if math.Abs(a.Confidence-1.0) > 1e-9 {
		t.Errorf("confidence = %f, want 1.0 at full sample target", a.Confidence)
	}

	ten := make([]models.SourceResult, 10)
	for i := range ten {
		ten[i] = sourceResult("gemini-test", map[string]float64{"happy": 1.0})
	}
	a = AggregateVisual(ten)
	if a.Confidence > 1.0 {
		t.Errorf("confidence = %f, discount must cap at 1.0", a.Confidence)
	}
}

func TestAggregateNegativeCategory(t *testing.T) {
	results := []models.SourceResult{
		sourceResult("facepp", map[string]float64{"angry": 0.9, "neutral": 0.1}),
	}

	a := AggregateData(results)
	if a.EmotionCategory != "negative" {
		t.Errorf("category = %q, want negative", a.EmotionCategory)
	}
	if a.Polarity >= 0 {
		t.Errorf("polarity = %f, want negative", a.Polarity)
	}
	if a.Intensity != "high" {
		t.Errorf("intensity = %q, want high", a.Intensity)
	}
}
