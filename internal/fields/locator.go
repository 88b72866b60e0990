package fields

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sumanths012/SymptoSense/constants"
)

// MatchPolicy decides when a label counts as present in a line.
type MatchPolicy string

const (
	// MatchSubstring accepts the label anywhere in the line, including inside a longer word.
	MatchSubstring MatchPolicy = "substring"
	// MatchWord requires the label to be bounded by a non-alphanumeric rune or a line edge.
	MatchWord MatchPolicy = "word"
)

// ParseMatchPolicy accepts "substring" (also the empty string) and "word".
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch MatchPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchSubstring:
		return MatchSubstring, nil
	case MatchWord:
		return MatchWord, nil
	default:
		return "", fmt.Errorf("unknown match policy %q (want substring|word)", s)
	}
}

// Locator finds the first report line that carries a label for a category.
type Locator struct {
	synonyms SynonymSet
	policy   MatchPolicy
}

func NewLocator(synonyms SynonymSet, policy MatchPolicy) *Locator {
	if policy == "" {
		policy = MatchSubstring
	}
	return &Locator{synonyms: synonyms, policy: policy}
}

// Locate scans lines in document order and returns the first one containing any synonym of cat.
// Matching is case-sensitive. ok is false when no line matches or cat has no synonyms.
func (l *Locator) Locate(text ReportText, cat constants.Category) (line string, ok bool) {
	labels, known := l.synonyms.labels[cat]
	if !known {
		return "", false
	}
	for _, ln := range text.lines {
		for _, label := range labels {
			if l.matches(ln, label) {
				return ln, true
			}
		}
	}
	return "", false
}

func (l *Locator) matches(line, label string) bool {
	if l.policy != MatchWord {
		return strings.Contains(line, label)
	}
	return containsWord(line, label)
}

// containsWord reports whether label occurs in line with no letter or digit directly before or after it.
func containsWord(line, label string) bool {
	for from := 0; from <= len(line)-len(label); {
		i := strings.Index(line[from:], label)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(label)
		if boundaryBefore(line, start) && boundaryAfter(line, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(line[start:])
		from = start + size
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
