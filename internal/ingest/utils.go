package ingest

import (
	"path/filepath"
	"strings"

	"github.com/sumanths012/SymptoSense/constants"
)

// AllowedExt checks if a file extension is one the OCR layer can read.
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return base != "." && base != ".." && strings.HasPrefix(base, ".")
}
