package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// convertHEICtoPNG converts a HEIC/HEIF photo to PNG with the chosen converter.
// converter: "heif-convert" | "magick" | "sips"
//
// With a content hash the PNG is kept in cacheDir as <hash>.png and reused on the next call;
// otherwise it goes to a temp dir that cleanup removes.
func convertHEICtoPNG(ctx context.Context, r Runner, converter, in, cacheDir, hashHex string) (string, []string, func(), error) {
	var (
		out     string
		cleanup func()
	)
	if hashHex != "" && cacheDir != "" {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return "", nil, nil, err
		}
		out = filepath.Join(cacheDir, hashHex+".png")
		if st, err := os.Stat(out); err == nil && st.Size() > 0 {
			return out, nil, nil, nil
		}
	} else {
		tmpDir, err := os.MkdirTemp("", "symptosense-heic-*")
		if err != nil {
			return "", nil, nil, err
		}
		cleanup = func() { _ = os.RemoveAll(tmpDir) }
		out = filepath.Join(tmpDir, "page.png")
	}

	var args []string
	switch converter {
	case "heif-convert":
		args = []string{in, out}
	case "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return "", nil, cleanup, fmt.Errorf("HEIC not supported: set ocr.heic_converter to one of: heif-convert | magick | sips")
	}
	if _, errb, err := r.Run(ctx, converter, args...); err != nil {
		return "", stderrWarning(errb), cleanup, fmt.Errorf("%s failed: %w", converter, err)
	}

	if _, statErr := os.Stat(out); statErr != nil {
		return "", nil, cleanup, fmt.Errorf("HEIC conversion produced no output: %v", statErr)
	}
	return out, nil, cleanup, nil
}
