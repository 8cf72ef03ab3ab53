package source

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseFacepp(t *testing.T) {
	raw := []byte(`{
		"faces": [{
			"attributes": {
				"emotion": {
					"anger": 5.0,
					"disgust": 2.0,
					"fear": 3.0,
					"happiness": 75.0,
					"neutral": 10.0,
					"sadness": 3.0,
					"surprise": 2.0
				}
			}
		}]
	}`)

	result, err := ParseFacepp(raw, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
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

	sum := 0.0
	for _, v := range result.Emotions {
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("probabilities sum to %f, want 1.0", sum)
	}
}

func TestParseFaceppNoFaces(t *testing.T) {
	_, err := ParseFacepp([]byte(`{"faces": []}`), time.Now())
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("err = %v, want ErrNoFaceDetected", err)
	}
}

func TestParseFaceppNoEmotionBlock(t *testing.T) {
	_, err := ParseFacepp([]byte(`{"faces": [{"attributes": {}}]}`), time.Now())
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("err = %v, want ErrNoFaceDetected", err)
	}
}

func TestParseFaceppAPIError(t *testing.T) {
	_, err := ParseFacepp([]byte(`{"error_message": "AUTHENTICATION_ERROR"}`), time.Now())
	if err == nil || errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("err = %v, want API error", err)
	}
}

func TestParseFaceppInvalidJSON(t *testing.T) {
	_, err := ParseFacepp([]byte(`not json`), time.Now())
	if err == nil {
		t.Error("expected decode error")
	}
}
