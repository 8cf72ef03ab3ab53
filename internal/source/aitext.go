package source

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/zombar/emoscan/internal/emotion"
	"github.com/zombar/emoscan/internal/models"
)

// aiEmotionPayload is the JSON shape the vision models are instructed to
// return. Only the emotions sub-object is trusted; dominant emotion and
// confidence are rederived after normalization.
type aiEmotionPayload struct {
	Emotions map[string]float64 `json:"emotions"`
}

// ParseAIText extracts an emotion distribution from a free-form model
// response. The strategies run in order until one yields a usable vector:
// inline JSON (four extraction candidates), then bilingual keyword scoring.
// A response with no signal at all degrades to the neutral distribution, so
// a model ignoring its format instructions never kills the pipeline.
func ParseAIText(sourceTag, text string, ts time.Time) models.SourceResult {
	raw, _ := json.Marshal(map[string]string{"response": text})

	if v, ok := extractEmotionJSON(text); ok {
		return models.NewSourceResult(sourceTag, v, ts, raw)
	}

	return models.NewSourceResult(sourceTag, keywordScore(text), ts, raw)
}

func extractEmotionJSON(text string) (emotion.Vector, bool) {
	for _, candidate := range JSONCandidates(text) {
		var payload aiEmotionPayload
		if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
			continue
		}
		if len(payload.Emotions) == 0 {
			continue
		}

		scores := map[string]float64{}
		for name, val := range payload.Emotions {
			scores[emotion.CanonicalName(strings.ToLower(strings.TrimSpace(name)))] += val
		}
		return emotion.Normalize(scores), true
	}
	return nil, false
}

// keywordScore counts keyword occurrences per category and converts the
// counts to probabilities. Zero matches is valid-but-uninformative, which is
// neutral by definition.
func keywordScore(text string) emotion.Vector {
	lower := strings.ToLower(text)

	counts := map[string]float64{}
	for category, keywords := range emotion.KeywordTable() {
		for _, kw := range keywords {
			counts[category] += float64(strings.Count(lower, kw))
		}
	}

	return emotion.Normalize(counts)
}
