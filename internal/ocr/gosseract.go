//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"
)

func init() {
	newGosseractEngine = func(cfg Config, logger *slog.Logger) engine {
		return &gosseractEngine{cfg: cfg, logger: logger}
	}
}

// gosseractEngine runs tesseract in-process through cgo.
type gosseractEngine struct {
	cfg    Config
	logger *slog.Logger
}

func (g *gosseractEngine) Name() string { return BackendGosseract }

func (g *gosseractEngine) Recognize(ctx context.Context, path string) (recognition, error) {
	if err := ctx.Err(); err != nil {
		return recognition{}, err
	}
	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if g.cfg.TessdataDir != "" {
		client.TessdataPrefix = g.cfg.TessdataDir
	}
	if err := client.SetLanguage(g.cfg.TesseractLang); err != nil {
		return recognition{}, fmt.Errorf("failed to set language: %w", err)
	}
	if g.cfg.PSM > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(g.cfg.PSM)); err != nil {
			return recognition{}, fmt.Errorf("failed to set page segmentation mode: %w", err)
		}
	}
	if err := client.SetImage(path); err != nil {
		return recognition{}, fmt.Errorf("failed to set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return recognition{}, fmt.Errorf("OCR failed: %w", err)
	}

	rec := recognition{Text: text}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		rec.Warnings = append(rec.Warnings, "word confidences unavailable: "+err.Error())
		return rec, nil
	}
	var sum float64
	var n int
	for _, b := range boxes {
		if b.Word == "" {
			continue
		}
		sum += b.Confidence
		n++
	}
	if n > 0 {
		rec.Confidence = float32(sum / float64(n) / 100.0)
	}
	g.logger.Debug("gosseract ok", "words", n)
	return rec, nil
}
