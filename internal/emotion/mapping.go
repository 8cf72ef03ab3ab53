package emotion

// faceppNames maps Face++ attribute names to canonical categories. Face++
// reports percentages under its own vocabulary.
var faceppNames = map[string]string{
	"anger":     "angry",
	"happiness": "happy",
	"sadness":   "sad",
	"surprise":  "surprised",
	"fear":      "fearful",
	"disgust":   "disgusted",
	"neutral":   "neutral",
}

// FromFacepp maps a Face++ attribute name to its canonical category.
// The second return is false for names outside the mapping table.
func FromFacepp(name string) (string, bool) {
	c, ok := faceppNames[name]
	return c, ok
}

// aliasNames folds common vendor and model spellings onto canonical
// categories, covering both English variants and the Chinese labels the
// vision models sometimes answer with.
var aliasNames = map[string]string{
	"happy": "happy", "sad": "sad", "angry": "angry",
	"surprised": "surprised", "neutral": "neutral", "disgusted": "disgusted",
	"fearful": "fearful", "fear": "fearful", "disgust": "disgusted",
	"anger": "angry", "happiness": "happy", "sadness": "sad",
	"surprise": "surprised",

	"开心": "happy", "高兴": "happy", "快乐": "happy",
	"悲伤": "sad", "难过": "sad", "愤怒": "angry", "生气": "angry",
	"惊讶": "surprised", "吃惊": "surprised", "平静": "neutral",
	"中性": "neutral", "无表情": "neutral", "厌恶": "disgusted",
	"恶心": "disgusted", "恐惧": "fearful", "害怕": "fearful", "担心": "fearful",
}

// CanonicalName normalizes an emotion label from any supported vocabulary.
// Unknown labels map to neutral.
func CanonicalName(name string) string {
	if c, ok := aliasNames[name]; ok {
		return c
	}
	return "neutral"
}

// KeywordTable returns the bilingual keyword-to-category table used by the
// last-resort text scan when a model ignores the JSON format instructions.
func KeywordTable() map[string][]string {
	return map[string][]string{
		"happy":     {"快乐", "开心", "高兴", "愉快", "喜悦", "happy", "joy", "smile"},
		"sad":       {"悲伤", "难过", "沮丧", "忧郁", "sad", "sorrow", "grief"},
		"angry":     {"愤怒", "生气", "恼怒", "angry", "rage", "fury"},
		"fearful":   {"恐惧", "害怕", "担心", "fear", "afraid", "scared"},
		"surprised": {"惊讶", "意外", "surprise", "shocked", "amazed"},
		"disgusted": {"厌恶", "恶心", "disgust", "revulsion"},
		"neutral":   {"中性", "平静", "无表情", "neutral", "calm"},
	}
}
