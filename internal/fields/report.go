package fields

import "strings"

// ReportText is the OCR output for one image as an ordered list of lines.
// It is immutable once built; accessors hand out copies.
type ReportText struct {
	lines []string
}

// NewReportText splits raw OCR output on newlines. A trailing carriage return is dropped
// from each line so CRLF text behaves like LF text.
func NewReportText(raw string) ReportText {
	parts := strings.Split(raw, "\n")
	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = strings.TrimSuffix(p, "\r")
	}
	return ReportText{lines: lines}
}

// ReportTextFromLines builds a ReportText from already split lines.
func ReportTextFromLines(lines []string) ReportText {
	cp := make([]string, len(lines))
	copy(cp, lines)
	return ReportText{lines: cp}
}

// Lines returns a copy of the report lines in document order.
func (r ReportText) Lines() []string {
	cp := make([]string, len(r.lines))
	copy(cp, r.lines)
	return cp
}

// Len is the number of lines.
func (r ReportText) Len() int { return len(r.lines) }

// IsBlank reports whether the report carries no visible text, e.g. after an OCR failure.
func (r ReportText) IsBlank() bool {
	for _, ln := range r.lines {
		if strings.TrimSpace(ln) != "" {
			return false
		}
	}
	return true
}

func (r ReportText) String() string { return strings.Join(r.lines, "\n") }
