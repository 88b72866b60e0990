package ocr

import (
	"fmt"
	"os"

	"github.com/disintegration/imaging"
)

const (
	minOCRHeight    = 1000
	targetOCRHeight = 1600
)

// preprocessImage writes a grayscale copy of path, upscaled when the scan is too small for
// tesseract to resolve digits. The caller must run cleanup.
func preprocessImage(path string) (string, func(), error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", nil, fmt.Errorf("open image: %w", err)
	}

	gray := imaging.Grayscale(img)
	if h := gray.Bounds().Dy(); h > 0 && h < minOCRHeight {
		gray = imaging.Resize(gray, 0, targetOCRHeight, imaging.Lanczos)
	}

	// temp dir rather than next to the source, which may be a watched or read-only directory
	tmpFile, err := os.CreateTemp("", "symptosense-ocr-*.png")
	if err != nil {
		return "", nil, err
	}
	tmp := tmpFile.Name()
	_ = tmpFile.Close()
	cleanup := func() { _ = os.Remove(tmp) }
	if err := imaging.Save(gray, tmp); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("save preprocessed image: %w", err)
	}
	return tmp, cleanup, nil
}
