package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sumanths012/SymptoSense/constants"
)

// extractPDF prefers the embedded text layer and rasterizes only when it is missing.
func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{SourceType: constants.PDF, Language: e.cfg.TesseractLang}

	text, pages, warn, err := e.pdfToText(ctx, path)
	res.Warnings = append(res.Warnings, warn...)
	if err == nil {
		text = Normalize(text)
		if nonSpaceLen(text) >= minTextLayerChars {
			res.Text = text
			res.Pages = pages
			res.Method = "pdf-text"
			res.Confidence = blendConfidence(0.95, heuristicConfidence(text))
			return res, nil
		}
		res.Warnings = append(res.Warnings, "pdf has no usable text layer, rasterizing")
	} else {
		res.Warnings = append(res.Warnings, "pdftotext failed, rasterizing: "+err.Error())
	}

	text, pages, warn, conf, err := e.pdfToOCR(ctx, path)
	res.Warnings = append(res.Warnings, warn...)
	res.Engine = e.engine.Name()
	if err != nil {
		return res, err
	}
	res.Text = Normalize(text)
	res.Pages = pages
	res.Method = "pdf-ocr"
	res.Confidence = conf
	return res, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	// pdftotext -layout -enc UTF-8 -eol unix [-l N] <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, append(args, path, "-")...)
	if err != nil {
		return "", 0, stderrWarning(errb), err
	}
	text = string(out)
	// A form-feed \f is used as page separator by default
	pages = 1 + strings.Count(strings.TrimRight(text, "\f\n"), "\f")
	return text, pages, nil, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, conf float32, err error) {
	tmpDir, err := os.MkdirTemp("", "symptosense-pp-*")
	if err != nil {
		return "", 0, nil, 0, err
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("failed to remove temp dir", "path", dir, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	// pdftoppm -r 300 -png [-l N] <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, append(args, path, prefix)...)
	if err != nil {
		return "", 0, stderrWarning(errb), 0, fmt.Errorf("pdftoppm: %w", err)
	}

	// collect generated pngs (page-1.png, page-2.png, ...); zero padding keeps them sortable
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, 0, fmt.Errorf("no pages rendered")
	}

	var (
		b       strings.Builder
		warns   []string
		confSum float32
		ok      int
	)
	for _, img := range matches {
		res, err := e.extractImage(ctx, img)
		warns = append(warns, res.Warnings...)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n") // page break
		}
		b.WriteString(res.Text)
		confSum += res.Confidence
		ok++
	}
	if ok == 0 {
		return "", len(matches), warns, 0, fmt.Errorf("ocr failed on all %d pages", len(matches))
	}
	return b.String(), len(matches), warns, confSum / float32(ok), nil
}
