package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sumanths012/SymptoSense/constants"
	"github.com/sumanths012/SymptoSense/internal/common"
)

// Source is a report file accepted for extraction.
type Source struct {
	Path    string
	Ext     string
	HashHex string
	Size    int64
}

// Inspect resolves path, checks its extension and hashes its content.
func Inspect(path string) (Source, error) {
	var out Source

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, err
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, common.InvalidInputf("unsupported or missing extension %q", ext)
	}

	f, err := os.Open(abs)
	if err != nil {
		return out, common.NewAppError("FILE_OPEN", "open report", fmt.Errorf("%w: %v", common.ErrNotFound, err))
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return out, fmt.Errorf("hash %s: %w", abs, err)
	}
	return Source{Path: abs, Ext: ext, HashHex: hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}
