package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zombar/emoscan/internal/emotion"
	"github.com/zombar/emoscan/internal/models"
)

// ErrNoFaceDetected signals a valid response that contains no usable face or
// emotion block. Callers substitute the neutral distribution rather than
// failing the request.
var ErrNoFaceDetected = errors.New("no face detected")

// faceppResponse mirrors the slice of the Face++ detect payload we care
// about. Everything else in the response is passed through as raw data.
type faceppResponse struct {
	Faces []struct {
		Attributes struct {
			Emotion map[string]float64 `json:"emotion"`
		} `json:"attributes"`
	} `json:"faces"`
	ErrorMessage string `json:"error_message"`
}

// ParseFacepp converts a raw Face++ detect response into a SourceResult.
// Face++ reports percentages under vendor-specific emotion names; values are
// mapped to canonical categories, divided by 100 and normalized.
func ParseFacepp(raw []byte, ts time.Time) (models.SourceResult, error) {
	var resp faceppResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return models.SourceResult{}, fmt.Errorf("decode facepp response: %w", err)
	}

	if resp.ErrorMessage != "" {
		return models.SourceResult{}, fmt.Errorf("facepp error: %s", resp.ErrorMessage)
	}

	if len(resp.Faces) == 0 {
		return models.SourceResult{}, ErrNoFaceDetected
	}

	// Only the first detected face carries the emotion attributes.
	vendor := resp.Faces[0].Attributes.Emotion
	if len(vendor) == 0 {
		return models.SourceResult{}, ErrNoFaceDetected
	}

	scores := map[string]float64{}
	for name, pct := range vendor {
		if canonical, ok := emotion.FromFacepp(name); ok {
			scores[canonical] = pct / 100.0
		}
	}

	return models.NewSourceResult("facepp", emotion.Normalize(scores), ts, raw), nil
}
