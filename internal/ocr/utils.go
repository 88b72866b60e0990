package ocr

import (
	"context"
	"regexp"
	"strings"
)

type ctxKey int

const contentHashKey ctxKey = iota

// WithContentHash tells the extractor the sha256 of the source so converted artifacts can be reused.
func WithContentHash(ctx context.Context, hashHex string) context.Context {
	return context.WithValue(ctx, contentHashKey, hashHex)
}

func contentHashFromCtx(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(contentHashKey).(string)
	return v, ok && v != ""
}

var (
	// a line made only of table rules, pipes and bullets
	reBoxNoise = regexp.MustCompile(`^[\s|¦│┃║─━═┌┐└┘├┤┬┴┼_=~*•·\-+]+$`)
	reSpaces   = regexp.MustCompile(`[ \t\x{00A0}]+`)
)

// Normalize cleans OCR output at the whitespace level only: it unifies line endings,
// collapses horizontal whitespace, drops box-drawing lines and squeezes blank-line runs.
// Characters inside tokens are never rewritten.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\f", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, ln := range lines {
		ln = strings.TrimSpace(reSpaces.ReplaceAllString(ln, " "))
		if ln != "" && reBoxNoise.MatchString(ln) {
			continue
		}
		if ln == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, ln)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
