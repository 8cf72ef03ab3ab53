package source

import (
	"regexp"
	"strings"
)

// The model responses rarely arrive as clean JSON. Each extractor below
// returns a candidate JSON object string; they are tried in order and the
// first candidate that unmarshals wins.

var (
	jsonFenceRe = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n```")
	anyFenceRe  = regexp.MustCompile("(?s)```\\s*\\n(.*?)\\n```")
)

// JSONCandidates enumerates likely JSON object spans within a model
// response, most specific first: the whole trimmed text, a ```json fence,
// any fence, then the first balanced {...} span.
func JSONCandidates(text string) []string {
	var out []string

	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") {
		out = append(out, trimmed)
	}

	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		out = append(out, strings.TrimSpace(m[1]))
	}

	if m := anyFenceRe.FindStringSubmatch(text); m != nil {
		if body := strings.TrimSpace(m[1]); strings.HasPrefix(body, "{") {
			out = append(out, body)
		}
	}

	if span := firstBalancedObject(text); span != "" {
		out = append(out, span)
	}

	return out
}

// firstBalancedObject scans for the first balanced {...} span by brace depth
// counting. Regex fails on nested objects, which the judge verdicts always
// contain.
func firstBalancedObject(text string) string {
	depth := 0
	start := -1
	for i, r := range text {
		switch r {
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
