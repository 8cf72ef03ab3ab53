// Package report renders human-readable analysis text. Output is fully
// deterministic for a given input: vectors print in a fixed category order
// and the timestamp is supplied by the caller.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/zombar/emoscan/internal/emotion"
	"github.com/zombar/emoscan/internal/models"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	rule            = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
	maxWarnings     = 3
)

// Summary produces the one-line judgment summary, e.g.
// "high positive emotion, primarily happy, high reliability (both agents agree)".
func Summary(j *models.FinalJudgment) string {
	return fmt.Sprintf("%s %s emotion, primarily %s, %s reliability (%s)",
		j.FinalIntensity, j.FinalCategory, j.FinalEmotion, j.FinalReliability, j.DecisionBasis)
}

// SingleText renders the terminal-style report for a single-image analysis.
func SingleText(results []models.SourceResult, fused emotion.Vector, errs []string, ts time.Time) string {
	if len(results) == 0 {
		return ">>> EMOTION ANALYSIS FAILED <<<\n\nAll classifier calls failed."
	}

	dominant := emotion.Dominant(fused)
	confidence := fused[dominant]

	lines := []string{
		">>> NEURAL NETWORK ANALYSIS COMPLETE <<<",
		"",
		"EMOTIONAL SIGNATURE DETECTED:",
		rule,
		"",
		"MULTI-SOURCE ANALYSIS RESULTS:",
	}

	for _, r := range results {
		lines = append(lines, fmt.Sprintf("• %s: %s (%d%%)",
			strings.ToUpper(r.Source), strings.ToUpper(r.DominantEmotion), percent(r.Confidence)))
	}

	lines = append(lines,
		"",
		"CONSOLIDATED ANALYSIS:",
		fmt.Sprintf("• Primary Emotion: %s", strings.ToUpper(dominant)),
		fmt.Sprintf("• Confidence Level: %d%%", percent(confidence)),
		fmt.Sprintf("• Data Sources: %d classifier(s)", len(results)),
		"",
		"BIOMETRIC DATA:",
		"• Facial Expression Analysis: COMPLETE",
		"• Multi-Model Validation: ACTIVE",
		"• Cross-Reference Check: PASSED",
		"",
		fmt.Sprintf("ANALYSIS TIMESTAMP: %s", ts.Format(timestampLayout)),
		"SYSTEM STATUS: OPERATIONAL",
	)

	lines = append(lines, warningLines(errs)...)

	return strings.Join(lines, "\n")
}

// BatchText renders the terminal-style report for a batch analysis. The
// judgment may come from either judge path; a nil judgment means every
// decision path failed and only the per-image breakdown prints.
func BatchText(images []models.ImageAnalysis, judgment *models.FinalJudgment, errs []string, totalImages int, ts time.Time) string {
	var lines []string

	if judgment != nil {
		lines = append(lines,
			">>> FINAL EMOTION ANALYSIS RESULT <<<",
			"",
			fmt.Sprintf("PRIMARY EMOTION: %s (%d%%)",
				strings.ToUpper(judgment.FinalEmotion), percent(judgment.AdjustedConfidence)),
			fmt.Sprintf("CONFIDENCE LEVEL: %s", strings.ToUpper(judgment.FinalReliability)),
			fmt.Sprintf("DATA SOURCES: %d IMAGES ANALYZED", totalImages),
			fmt.Sprintf("ANALYSIS TIMESTAMP: %s", ts.Format(timestampLayout)),
			"",
			"JUDGMENT BASIS:",
			fmt.Sprintf("• %s", judgment.DecisionBasis),
		)
		if judgment.Reasoning != "" {
			lines = append(lines,
				"",
				"JUDGE AI REASONING:",
				fmt.Sprintf("• %s", judgment.Reasoning),
			)
		}
		if judgment.Warning != "" {
			lines = append(lines,
				"",
				fmt.Sprintf("⚠ %s", judgment.Warning),
			)
		}
		lines = append(lines,
			"",
			rule,
			"",
			">>> DETAILED ANALYSIS BREAKDOWN <<<",
			"",
		)
	} else {
		lines = append(lines,
			">>> EMOTION ANALYSIS RESULT <<<",
			"",
			"⚠ No judgment available",
			fmt.Sprintf("DATA SOURCES: %d IMAGES ANALYZED", totalImages),
			fmt.Sprintf("ANALYSIS TIMESTAMP: %s", ts.Format(timestampLayout)),
			"",
			rule,
			"",
			">>> DETAILED ANALYSIS BREAKDOWN <<<",
			"",
		)
	}

	for _, img := range images {
		lines = append(lines, fmt.Sprintf("IMAGE %d/%d ANALYSIS:", img.ImageID, totalImages))
		lines = append(lines, sourceBlock("┌─ FACE++ API RESULT:", "│", img.DataResult)...)
		lines = append(lines, sourceBlock("└─ VISION AI RESULT:", " ", img.VisualResult)...)
		if len(img.Errors) > 0 {
			lines = append(lines, "⚠ ERRORS:")
			for _, e := range img.Errors {
				lines = append(lines, fmt.Sprintf("   • %s", e))
			}
			lines = append(lines, "")
		}
	}

	lines = append(lines,
		rule,
		"",
		"BIOMETRIC DATA:",
		"• Facial Expression Analysis: COMPLETE",
		"• Multi-Model Validation: ACTIVE",
		fmt.Sprintf("• Judge AI Analysis: %s", judgeStatus(judgment)),
		"",
		"SYSTEM STATUS: OPERATIONAL",
	)

	lines = append(lines, warningLines(errs)...)

	return strings.Join(lines, "\n")
}

func sourceBlock(header, gutter string, r *models.SourceResult) []string {
	if r == nil {
		return []string{header, gutter + "  • ANALYSIS FAILED", strings.TrimRight(gutter, " ")}
	}
	return []string{
		header,
		fmt.Sprintf("%s  • %s", gutter, vectorLine(r.Emotions)),
		fmt.Sprintf("%s  • Dominant: %s (%d%%)", gutter, strings.ToUpper(r.DominantEmotion), percent(r.Confidence)),
		strings.TrimRight(gutter, " "),
	}
}

// vectorLine prints every category above 1%, in canonical category order so
// the report is stable across runs.
func vectorLine(v emotion.Vector) string {
	var parts []string
	for _, c := range emotion.Categories {
		if v[c] > 0.01 {
			parts = append(parts, fmt.Sprintf("%s: %d%%", titleCase(c), percent(v[c])))
		}
	}
	if len(parts) == 0 {
		return "no signal"
	}
	return strings.Join(parts, " | ")
}

func warningLines(errs []string) []string {
	if len(errs) == 0 {
		return nil
	}
	lines := []string{"", "⚠ SYSTEM WARNINGS:"}
	for i, e := range errs {
		if i == maxWarnings {
			break
		}
		lines = append(lines, fmt.Sprintf("• %s", e))
	}
	return lines
}

func judgeStatus(judgment *models.FinalJudgment) string {
	switch {
	case judgment == nil:
		return "FAILED"
	case judgment.Reasoning != "":
		return "COMPLETE"
	default:
		return "FALLBACK"
	}
}

func percent(v float64) int {
	return int(v * 100)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
