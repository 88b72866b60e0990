package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sumanths012/SymptoSense/constants"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	var warn []string
	if e.cfg.Preprocess {
		prepped, cleanup, err := preprocessImage(path)
		if err != nil {
			warn = append(warn, "preprocess skipped: "+err.Error())
		} else {
			defer cleanup()
			path = prepped
		}
	}

	rec, err := e.engine.Recognize(ctx, path)
	warn = append(warn, rec.Warnings...)
	if err != nil {
		return ExtractionResult{SourceType: constants.IMAGE, Engine: e.engine.Name(), Warnings: warn}, err
	}
	txt := Normalize(rec.Text)

	return ExtractionResult{
		Text:       txt,
		Pages:      1,
		SourceType: constants.IMAGE,
		Method:     "image-ocr",
		Engine:     e.engine.Name(),
		Language:   e.cfg.TesseractLang,
		Warnings:   warn,
		Confidence: blendConfidence(rec.Confidence, heuristicConfidence(txt)),
	}, nil
}

// blendConfidence weights the engine's own score higher when it has one.
func blendConfidence(ocrConf, heurConf float32) float32 {
	var conf float32
	if ocrConf > 0 {
		conf = 0.7*ocrConf + 0.3*heurConf
	} else {
		conf = heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

// tesseractEngine shells out to the tesseract CLI.
type tesseractEngine struct {
	cfg    Config
	runner Runner
}

func (t *tesseractEngine) Name() string { return BackendTesseract }

func (t *tesseractEngine) Recognize(ctx context.Context, path string) (recognition, error) {
	txt, warn, err := t.text(ctx, path)
	if err != nil {
		return recognition{Warnings: warn}, err
	}
	rec := recognition{Text: txt, Warnings: warn}
	if t.cfg.EnableTSVConfidence {
		if c, err2 := t.tsvConfidence(ctx, path); err2 == nil {
			rec.Confidence = c
		} else {
			rec.Warnings = append(rec.Warnings, err2.Error())
		}
	}
	return rec, nil
}

func (t *tesseractEngine) baseArgs(path string) []string {
	args := []string{path, "stdout", "-l", t.cfg.TesseractLang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	return args
}

func (t *tesseractEngine) text(ctx context.Context, path string) (string, []string, error) {
	// tesseract <file> stdout -l <lang> [--psm N] [--oem N] [--tessdata-dir D]
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, t.baseArgs(path)...)
	if err != nil {
		return "", stderrWarning(errb), fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil, nil
}

// tsvConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (t *tesseractEngine) tsvConfidence(ctx context.Context, path string) (float32, error) {
	args := append(t.baseArgs(path), "tsv")
	out, _, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return 0, fmt.Errorf("tesseract TSV: %w", err)
	}
	return meanTSVConfidence(string(out)), nil
}

func meanTSVConfidence(tsv string) float32 {
	lines := strings.Split(tsv, "\n")
	// conf is column 11 of 12; header line includes "conf"
	var sum, n float64
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := strings.TrimSpace(cols[10])
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil && v >= 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}

func stderrWarning(errb []byte) []string {
	s := strings.TrimSpace(string(errb))
	if s == "" {
		return nil
	}
	return []string{truncate(s, 512)}
}
