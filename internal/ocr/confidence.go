package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate     = regexp.MustCompile(`\b\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}\b|\b(19|20)\d{2}-\d{2}-\d{2}\b`)
	reLabUnit  = regexp.MustCompile(`mg/dl|mmol/l|ng/ml|[uµμ]i?u/ml|mmhg|g/dl|\bkg\b|\bcm\b|\bbmi\b`)
	reRefRange = regexp.MustCompile(`\b\d+(\.\d+)?\s*(-|–|to)\s*\d+(\.\d+)?\b`)
	reLabWord  = regexp.MustCompile(`\b(test|result|reference|range|units?|specimen|serum|plasma|fasting|patient)\b`)
)

func hasDatePattern(s string) bool     { return reDate.MatchString(s) }
func hasLabUnitPattern(s string) bool  { return reLabUnit.MatchString(s) }
func hasRefRangePattern(s string) bool { return reRefRange.MatchString(s) }
func hasLabWordPattern(s string) bool  { return reLabWord.MatchString(s) }

// heuristicConfidence scores decoded text by how much it looks like a lab report.
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if hasLabUnitPattern(txtL) {
		score += 0.2
	}
	if hasRefRangePattern(txtL) {
		score += 0.15
	}
	if hasLabWordPattern(txtL) {
		score += 0.15
	}
	if hasDatePattern(txtL) {
		score += 0.1
	}
	if len(txt) > 120 {
		score += 0.1
	} // enough content
	if strings.TrimSpace(txt) == "" {
		score = 0
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
