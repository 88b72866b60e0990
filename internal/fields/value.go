package fields

import "strings"

// FirstNumber splits line on whitespace and returns the first token that is a plain
// numeric literal, keeping its original spelling ("007", "95.40").
func FirstNumber(line string) (string, bool) {
	for _, tok := range strings.Fields(line) {
		if IsNumericToken(tok) {
			return tok, true
		}
	}
	return "", false
}

// IsNumericToken accepts tokens made of ASCII digits with at most one '.' anywhere
// among them ("95", "95.4", ".5", "95."). Signs, separators and units are rejected,
// so "-95", "1,200", "95.4.2" and "mg/dL" do not qualify. Non-ASCII digits such as
// Arabic-Indic "٩٥" are not numbers here.
func IsNumericToken(tok string) bool {
	digits := 0
	dots := 0
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return digits > 0
}
