package fusion

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

func TestFuseEmpty(t *testing.T) {
	e := New(DefaultWeights())
	v := e.Fuse(nil)
	if emotion.Dominant(v) != "neutral" || math.Abs(v["neutral"]-1.0) > 1e-9 {
		t.Errorf("fuse of nothing = %v, want pure neutral", v)
	}
}

func TestFuseSinglePassthrough(t *testing.T) {
	e := New(DefaultWeights())
	in := sourceResult("facepp", map[string]float64{"happy": 0.9, "neutral": 0.1})

	v := e.Fuse([]models.SourceResult{in})
	for _, c := range emotion.Categories {
		if math.Abs(v[c]-in.Emotions[c]) > 1e-9 {
			t.Errorf("category %q = %f, want %f", c, v[c], in.Emotions[c])
		}
	}
}

func TestFuseWeighted(t *testing.T) {
	e := New(DefaultWeights())
	facepp := sourceResult("facepp", map[string]float64{"happy": 1.0})
	ai := sourceResult("gemini-test", map[string]float64{"sad": 1.0})

	v := e.Fuse([]models.SourceResult{facepp, ai})

	// 0.6 happy + 0.4 sad, renormalized over total weight 1.0.
	if math.Abs(v["happy"]-0.6) > 1e-9 {
		t.Errorf("happy = %f, want 0.6", v["happy"])
	}
	if math.Abs(v["sad"]-0.4) > 1e-9 {
		t.Errorf("sad = %f, want 0.4", v["sad"])
	}
	if emotion.Dominant(v) != "happy" {
		t.Errorf("dominant = %q, want happy", emotion.Dominant(v))
	}
}

func TestFuseOrderIndependent(t *testing.T) {
	e := New(DefaultWeights())
	facepp := sourceResult("facepp", map[string]float64{"happy": 1.0})
	ai := sourceResult("openrouter-test", map[string]float64{"sad": 1.0})

	a := e.Fuse([]models.SourceResult{facepp, ai})
	b := e.Fuse([]models.SourceResult{ai, facepp})
	for _, c := range emotion.Categories {
		if math.Abs(a[c]-b[c]) > 1e-9 {
			t.Errorf("category %q differs by order: %f vs %f", c, a[c], b[c])
		}
	}
}

func TestFuseEqualWeightsIsMean(t *testing.T) {
	e := New(Weights{Facepp: 1.0, AI: 1.0})
	facepp := sourceResult("facepp", map[string]float64{"happy": 0.8, "neutral": 0.2})
	ai := sourceResult("gemini-test", map[string]float64{"happy": 0.4, "neutral": 0.6})

	v := e.Fuse([]models.SourceResult{facepp, ai})
	if math.Abs(v["happy"]-0.6) > 1e-9 {
		t.Errorf("happy = %f, want 0.6", v["happy"])
	}
	if math.Abs(v["neutral"]-0.4) > 1e-9 {
		t.Errorf("neutral = %f, want 0.4", v["neutral"])
	}
}
