package emotion

import "math"

// Categories lists the seven canonical emotion categories. Order matters:
// argmax ties are broken by first position in this table.
var Categories = []string{
	"happy",
	"sad",
	"angry",
	"surprised",
	"neutral",
	"disgusted",
	"fearful",
}

// Vector is a probability distribution over the seven canonical categories.
// A normalized Vector always carries all seven keys and sums to 1.0.
type Vector map[string]float64

// polarityWeights collapses a distribution into a signed scalar. Positive
// emotions pull toward +1, negative toward -1.
var polarityWeights = map[string]float64{
	"happy":     1.0,
	"surprised": 0.3,
	"neutral":   0.0,
	"disgusted": -0.6,
	"fearful":   -0.7,
	"sad":       -0.8,
	"angry":     -0.9,
}

// Neutral returns the zero-evidence distribution.
func Neutral() Vector {
	v := Vector{}
	for _, c := range Categories {
		v[c] = 0.0
	}
	v["neutral"] = 1.0
	return v
}

// Normalize fills in missing canonical keys, drops unknown keys, clamps
// negatives to zero and rescales so the values sum to 1.0. A distribution
// with no probability mass collapses to the neutral vector.
func Normalize(raw map[string]float64) Vector {
	v := Vector{}
	total := 0.0
	for _, c := range Categories {
		val := raw[c]
		if val < 0 || math.IsNaN(val) {
			val = 0
		}
		v[c] = val
		total += val
	}

	if total == 0 {
		v["neutral"] = 1.0
		return v
	}

	for _, c := range Categories {
		v[c] = v[c] / total
	}
	return v
}

// Dominant returns the category with the highest probability. Ties resolve
// to the earlier entry in Categories; an empty vector is neutral.
func Dominant(v Vector) string {
	if len(v) == 0 {
		return "neutral"
	}

	best := ""
	bestVal := math.Inf(-1)
	for _, c := range Categories {
		if val, ok := v[c]; ok && val > bestVal {
			best = c
			bestVal = val
		}
	}
	if best == "" {
		return "neutral"
	}
	return best
}

// Polarity collapses a vector into a signed scalar in [-1, 1] using the
// fixed polarity weight table, normalized by total probability mass.
func Polarity(v Vector) float64 {
	weightedSum := 0.0
	totalMass := 0.0
	for c, val := range v {
		weightedSum += val * PolarityWeight(c)
		totalMass += val
	}
	if totalMass == 0 {
		return 0
	}
	return clamp(weightedSum/totalMass, -1, 1)
}

// PolarityWeight returns the fixed polarity weight for a canonical category,
// or 0 for unknown categories.
func PolarityWeight(category string) float64 {
	return polarityWeights[category]
}

// Categorize buckets a polarity score into positive/negative/neutral.
func Categorize(polarity float64) string {
	switch {
	case polarity > 0.3:
		return "positive"
	case polarity < -0.3:
		return "negative"
	default:
		return "neutral"
	}
}

// IntensityTier buckets an intensity score in [0,1] into low/medium/high.
func IntensityTier(score float64) string {
	switch {
	case score > 0.7:
		return "high"
	case score > 0.5:
		return "medium"
	default:
		return "low"
	}
}

// IntensityMidpoint maps a qualitative intensity tier back to the numeric
// midpoint used when averaging two agents' tiers.
func IntensityMidpoint(tier string) float64 {
	switch tier {
	case "high", "very_high":
		return 0.8
	case "medium":
		return 0.6
	default:
		return 0.4
	}
}

// ReliabilityTier buckets a confidence score into low/medium/high.
func ReliabilityTier(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "high"
	case confidence >= 0.6:
		return "medium"
	default:
		return "low"
	}
}

// Mean returns the elementwise mean of the given vectors, normalized.
// No vectors yields the neutral distribution.
func Mean(vectors []Vector) Vector {
	if len(vectors) == 0 {
		return Neutral()
	}

	sum := map[string]float64{}
	for _, v := range vectors {
		for _, c := range Categories {
			sum[c] += v[c]
		}
	}
	for _, c := range Categories {
		sum[c] /= float64(len(vectors))
	}
	return Normalize(sum)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
