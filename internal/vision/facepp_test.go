package vision

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zombar/emoscan/internal/analyzer"
	"github.com/zombar/emoscan/internal/emotion"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func faceppServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("bad multipart request: %v", err)
		}
		if got := r.FormValue("return_attributes"); got != "emotion" {
			t.Errorf("return_attributes = %q, want emotion", got)
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFaceppAnalyze(t *testing.T) {
	srv := faceppServer(t, `{
		"faces": [{
			"attributes": {
				"emotion": {
					"happiness": 75.0,
					"neutral": 25.0
				}
			}
		}]
	}`)

	c := NewFacepp(srv.URL, "key", "secret", testLogger())
	result, err := c.Analyze(context.Background(), []byte("fake jpeg"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Source != "facepp" {
		t.Errorf("source = %q, want facepp", result.Source)
	}
	if result.DominantEmotion != "happy" {
		t.Errorf("dominant = %q, want happy", result.DominantEmotion)
	}
	if math.Abs(result.Emotions["happy"]-0.75) > 1e-9 {
		t.Errorf("happy = %f, want 0.75", result.Emotions["happy"])
	}
}

func TestFaceppAnalyzeNoFaceIsNeutral(t *testing.T) {
	srv := faceppServer(t, `{"faces": []}`)

	c := NewFacepp(srv.URL, "key", "secret", testLogger())
	result, err := c.Analyze(context.Background(), []byte("empty frame"))
	if err != nil {
		t.Fatalf("no face must not be an error, got: %v", err)
	}

	if result.Source != "facepp" {
		t.Errorf("source = %q, want facepp", result.Source)
	}
	if result.DominantEmotion != "neutral" {
		t.Errorf("dominant = %q, want neutral", result.DominantEmotion)
	}
	if math.Abs(result.Emotions["neutral"]-1.0) > 1e-9 {
		t.Errorf("neutral = %f, want 1.0", result.Emotions["neutral"])
	}
}

func TestFaceppNoFaceOnlySourceSucceeds(t *testing.T) {
	srv := faceppServer(t, `{"faces": []}`)

	a := analyzer.New(testLogger(),
		analyzer.WithDataSource(NewFacepp(srv.URL, "key", "secret", testLogger())))

	resp := a.AnalyzeImage(context.Background(), []byte("empty frame"))
	if !resp.Success {
		t.Fatalf("no-face with a single source must still succeed: %s", resp.ErrorMessage)
	}
	if got := emotion.Dominant(resp.Emotions); got != "neutral" {
		t.Errorf("dominant = %q, want neutral", got)
	}
	if len(resp.Sources) != 1 {
		t.Errorf("sources = %d, want 1", len(resp.Sources))
	}
}

func TestFaceppAnalyzeAPIError(t *testing.T) {
	srv := faceppServer(t, `{"error_message": "AUTHENTICATION_ERROR"}`)

	c := NewFacepp(srv.URL, "key", "secret", testLogger())
	if _, err := c.Analyze(context.Background(), []byte("fake jpeg")); err == nil {
		t.Fatal("expected error from vendor error_message")
	}
}
