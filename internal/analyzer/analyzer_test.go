package analyzer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/zombar/emoscan/internal/agent"
	"github.com/zombar/emoscan/internal/emotion"
	"github.com/zombar/emoscan/internal/models"
)

type stubClassifier struct {
	result models.SourceResult
	err    error
}

func (s stubClassifier) Analyze(_ context.Context, _ []byte) (models.SourceResult, error) {
	return s.result, s.err
}

type stubGenerator struct {
	response string
	err      error
}

func (s stubGenerator) Generate(_ context.Context, _ string) (string, error) {
	return s.response, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func classifierResult(source string, scores map[string]float64) models.SourceResult {
	return models.NewSourceResult(source, emotion.Normalize(scores), testNow(), nil)
}

func happyData() stubClassifier {
	return stubClassifier{result: classifierResult("facepp", map[string]float64{"happy": 0.8, "neutral": 0.2})}
}

func happyVision() stubClassifier {
	return stubClassifier{result: classifierResult("gemini-test", map[string]float64{"happy": 0.7, "neutral": 0.3})}
}

func TestAnalyzeImageBothSources(t *testing.T) {
	a := New(testLogger(),
		WithDataSource(happyData()),
		WithVisionSources(happyVision()),
		WithClock(testNow),
	)

	resp := a.AnalyzeImage(context.Background(), []byte("img"))

	if !resp.Success {
		t.Fatalf("unexpected failure: %s", resp.ErrorMessage)
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(resp.Sources))
	}
	if got := emotion.Dominant(resp.Emotions); got != "happy" {
		t.Errorf("dominant = %q, want happy", got)
	}
	// 0.6*0.8 + 0.4*0.7
	if got := resp.Emotions["happy"]; got < 0.75 || got > 0.77 {
		t.Errorf("fused happy = %v, want ~0.76", got)
	}
	if !strings.Contains(resp.AnalysisText, "NEURAL NETWORK ANALYSIS COMPLETE") {
		t.Error("analysis text missing")
	}
}

func TestAnalyzeImagePartialFailure(t *testing.T) {
	a := New(testLogger(),
		WithDataSource(stubClassifier{err: errors.New("api down")}),
		WithVisionSources(happyVision()),
		WithClock(testNow),
	)

	resp := a.AnalyzeImage(context.Background(), []byte("img"))

	if !resp.Success {
		t.Fatal("one surviving classifier should still succeed")
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("sources = %d, want 1", len(resp.Sources))
	}
	if resp.Sources[0].Source != "gemini-test" {
		t.Errorf("surviving source = %q", resp.Sources[0].Source)
	}
}

func TestAnalyzeImageAllFail(t *testing.T) {
	a := New(testLogger(),
		WithDataSource(stubClassifier{err: errors.New("api down")}),
		WithVisionSources(stubClassifier{err: errors.New("model down")}),
		WithClock(testNow),
	)

	resp := a.AnalyzeImage(context.Background(), []byte("img"))

	if resp.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(resp.ErrorMessage, "all classifiers failed") {
		t.Errorf("error = %q", resp.ErrorMessage)
	}
	if got := emotion.Dominant(resp.Emotions); got != "neutral" {
		t.Errorf("dominant = %q, want neutral", got)
	}
}

func TestAnalyzeImageNoClassifiers(t *testing.T) {
	a := New(testLogger(), WithClock(testNow))

	resp := a.AnalyzeImage(context.Background(), []byte("img"))

	if resp.Success {
		t.Fatal("expected failure with nothing configured")
	}
	if !strings.Contains(resp.ErrorMessage, "no classifiers configured") {
		t.Errorf("error = %q", resp.ErrorMessage)
	}
}

func TestVisionChainFallback(t *testing.T) {
	a := New(testLogger(),
		WithVisionSources(
			stubClassifier{err: errors.New("first model down")},
			happyVision(),
		),
		WithClock(testNow),
	)

	resp := a.AnalyzeImage(context.Background(), []byte("img"))

	if !resp.Success {
		t.Fatalf("unexpected failure: %s", resp.ErrorMessage)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Source != "gemini-test" {
		t.Errorf("fallback source not used: %+v", resp.Sources)
	}
}

func TestAnalyzeBatchEmpty(t *testing.T) {
	a := New(testLogger(), WithClock(testNow))

	resp := a.AnalyzeBatch(context.Background(), nil)

	if resp.Success {
		t.Fatal("expected failure on empty batch")
	}
	if !strings.Contains(resp.ErrorMessage, "no images provided") {
		t.Errorf("error = %q", resp.ErrorMessage)
	}
}

func TestAnalyzeBatchAlgorithmicJudge(t *testing.T) {
	a := New(testLogger(),
		WithDataSource(happyData()),
		WithVisionSources(happyVision()),
		WithClock(testNow),
	)

	resp := a.AnalyzeBatch(context.Background(), [][]byte{[]byte("a"), []byte("b")})

	if !resp.Success {
		t.Fatalf("unexpected failure: %s", resp.ErrorMessage)
	}
	if len(resp.Images) != 2 {
		t.Fatalf("images = %d, want 2", len(resp.Images))
	}
	if resp.DataAgent == nil || resp.VisualAgent == nil {
		t.Fatal("both agents expected")
	}
	if resp.Judgment == nil {
		t.Fatal("judgment expected")
	}
	if resp.Judgment.DecisionBasis != "both agents agree" {
		t.Errorf("basis = %q", resp.Judgment.DecisionBasis)
	}
	if resp.Consistency == nil || resp.Consistency.ConsistencyLevel == "" {
		t.Error("consistency analysis expected")
	}
	if !strings.Contains(resp.AnalysisText, "FINAL EMOTION ANALYSIS RESULT") {
		t.Error("batch report missing")
	}
}

func TestAnalyzeBatchPartialImages(t *testing.T) {
	a := New(testLogger(),
		WithDataSource(stubClassifier{err: errors.New("api down")}),
		WithVisionSources(happyVision()),
		WithClock(testNow),
	)

	resp := a.AnalyzeBatch(context.Background(), [][]byte{[]byte("a")})

	if !resp.Success {
		t.Fatalf("unexpected failure: %s", resp.ErrorMessage)
	}
	if resp.DataAgent != nil {
		t.Error("no data agent expected when every data call failed")
	}
	if resp.VisualAgent == nil {
		t.Fatal("visual agent expected")
	}
	if !strings.Contains(resp.ErrorMessage, "image 1: data source: api down") {
		t.Errorf("error = %q", resp.ErrorMessage)
	}
	if resp.Judgment == nil || resp.Judgment.Warning == "" {
		t.Error("single-agent judgment should carry a warning")
	}
}

type classifierFunc func(ctx context.Context, image []byte) (models.SourceResult, error)

func (f classifierFunc) Analyze(ctx context.Context, image []byte) (models.SourceResult, error) {
	return f(ctx, image)
}

func TestAnalyzeBatchPreservesImageOrder(t *testing.T) {
	// More images than the batch runs concurrently, with one failing in the
	// middle: results and error attribution must stay in input order.
	source := classifierFunc(func(_ context.Context, image []byte) (models.SourceResult, error) {
		if string(image) == "bad" {
			return models.SourceResult{}, errors.New("api down")
		}
		return happyData().result, nil
	})

	a := New(testLogger(),
		WithDataSource(source),
		WithClock(testNow),
	)

	images := [][]byte{[]byte("a"), []byte("b"), []byte("bad"), []byte("c"), []byte("d"), []byte("e")}
	resp := a.AnalyzeBatch(context.Background(), images)

	if !resp.Success {
		t.Fatalf("unexpected failure: %s", resp.ErrorMessage)
	}
	if len(resp.Images) != len(images) {
		t.Fatalf("images = %d, want %d", len(resp.Images), len(images))
	}
	for i, img := range resp.Images {
		if img.ImageID != i+1 {
			t.Errorf("image at position %d has ID %d", i, img.ImageID)
		}
	}
	if resp.Images[2].DataResult != nil || len(resp.Images[2].Errors) == 0 {
		t.Error("failure should land on the third image")
	}
	if !strings.Contains(resp.ErrorMessage, "image 3: data source: api down") {
		t.Errorf("error = %q", resp.ErrorMessage)
	}
}

func TestAnalyzeBatchLLMJudgeVerdict(t *testing.T) {
	verdict := `{
		"final_emotion": "happy",
		"confidence": 0.9,
		"reasoning": "sources concur",
		"consistency_analysis": "strong agreement",
		"emotions": {"happy": 0.8, "neutral": 0.2}
	}`
	a := New(testLogger(),
		WithDataSource(happyData()),
		WithVisionSources(happyVision()),
		WithLLMJudge(agent.NewLLMJudge(stubGenerator{response: verdict}, testLogger())),
		WithClock(testNow),
	)

	resp := a.AnalyzeBatch(context.Background(), [][]byte{[]byte("a")})

	if !resp.Success {
		t.Fatalf("unexpected failure: %s", resp.ErrorMessage)
	}
	if resp.Judgment == nil {
		t.Fatal("judgment expected")
	}
	if resp.Judgment.Reasoning != "sources concur" {
		t.Errorf("reasoning = %q", resp.Judgment.Reasoning)
	}
	if !strings.HasPrefix(resp.Judgment.DecisionBasis, "judge model verdict") {
		t.Errorf("basis = %q", resp.Judgment.DecisionBasis)
	}
	if got := resp.Emotions["happy"]; got < 0.79 || got > 0.81 {
		t.Errorf("final happy = %v, want 0.8 from the verdict", got)
	}
	// Consistency stays algorithmic even when the model judges.
	if resp.Consistency == nil {
		t.Error("consistency analysis expected")
	}
}

func TestAnalyzeBatchLLMJudgeFallback(t *testing.T) {
	a := New(testLogger(),
		WithDataSource(happyData()),
		WithVisionSources(happyVision()),
		WithLLMJudge(agent.NewLLMJudge(stubGenerator{err: errors.New("model offline")}, testLogger())),
		WithClock(testNow),
	)

	resp := a.AnalyzeBatch(context.Background(), [][]byte{[]byte("a")})

	if !resp.Success {
		t.Fatalf("unexpected failure: %s", resp.ErrorMessage)
	}
	if resp.Judgment == nil {
		t.Fatal("fallback judgment expected")
	}
	if !strings.Contains(resp.Judgment.Warning, "judge model unavailable") {
		t.Errorf("warning = %q", resp.Judgment.Warning)
	}
	if resp.Judgment.Reasoning != "" {
		t.Error("algorithmic judgment carries no model reasoning")
	}
}
