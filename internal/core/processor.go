package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sumanths012/SymptoSense/constants"
	"github.com/sumanths012/SymptoSense/internal/cache"
	"github.com/sumanths012/SymptoSense/internal/classifier"
	"github.com/sumanths012/SymptoSense/internal/common"
	"github.com/sumanths012/SymptoSense/internal/extract"
	"github.com/sumanths012/SymptoSense/internal/fields"
	"github.com/sumanths012/SymptoSense/internal/form"
	"github.com/sumanths012/SymptoSense/internal/ingest"
	"github.com/sumanths012/SymptoSense/internal/ocr"
)

// OCRSummary describes how the text was obtained.
type OCRSummary struct {
	Method      string  `json:"method"`
	Engine      string  `json:"engine,omitempty"`
	Pages       int     `json:"pages"`
	Confidence  float32 `json:"confidence"`
	Language    string  `json:"language,omitempty"`
	Cached      bool    `json:"cached"`
	NeedsReview bool    `json:"needs_review"`
	Failed      bool    `json:"failed,omitempty"`
	DurationMS  int64   `json:"duration_ms"`
}

// Prefill is the extraction answer handed to the presentation layer.
type Prefill struct {
	Source   string                                `json:"source,omitempty"`
	Fields   map[constants.Category]fields.Outcome `json:"fields"`
	Form     form.Form                             `json:"form"`
	Warnings []string                              `json:"warnings"`
	OCR      *OCRSummary                           `json:"ocr,omitempty"`
	Catalog  uint64                                `json:"catalog_version"`
}

// Processor coordinates OCR (text extract) then field extraction, and classifies assembled forms.
type Processor struct {
	logger        *slog.Logger
	text          extract.TextExtractor
	fields        extract.FieldExtractor
	cache         cache.TextCache
	model         classifier.Classifier
	minConfidence float32
}

type Option func(*Processor)

func WithCache(c cache.TextCache) Option {
	return func(p *Processor) {
		if c != nil {
			p.cache = c
		}
	}
}

func WithClassifier(m classifier.Classifier) Option {
	return func(p *Processor) { p.model = m }
}

func WithMinConfidence(c float32) Option {
	return func(p *Processor) {
		if c > 0 {
			p.minConfidence = c
		}
	}
}

func NewProcessor(logger *slog.Logger, text extract.TextExtractor, fx extract.FieldExtractor, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:        logger,
		text:          text,
		fields:        fx,
		cache:         cache.NopCache{},
		minConfidence: constants.ImageConfidenceThreshold,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ExtractFile runs OCR on path (or reuses a cached transcript of identical content),
// then extracts the requested categories. A failed OCR run is treated as a document without
// text: every category comes back absent and the failure is reported as a warning.
func (p *Processor) ExtractFile(ctx context.Context, path string, categories []constants.Category) (Prefill, error) {
	src, err := ingest.Inspect(path)
	if err != nil {
		return Prefill{}, err
	}
	ctx = ocr.WithContentHash(ctx, src.HashHex)

	var ocrErr error
	res, cached := p.cachedText(ctx, src.HashHex)
	if !cached {
		res, ocrErr = p.text.Extract(ctx, src.Path)
		switch {
		case ocrErr == nil:
			p.storeText(ctx, src.HashHex, res)
		case ctx.Err() != nil:
			// the caller gave up; that is not an unreadable document
			return Prefill{Source: src.Path, Warnings: nonNil(res.Warnings)}, ocrErr
		default:
			p.logger.Error("processor.ocr.failed", "path", src.Path, "error", ocrErr)
			res.Text = ""
		}
	}

	summary := &OCRSummary{
		Method:     res.Method,
		Engine:     res.Engine,
		Pages:      res.Pages,
		Confidence: res.Confidence,
		Language:   res.Language,
		Cached:     cached,
		Failed:     ocrErr != nil,
		DurationMS: res.Duration.Milliseconds(),
	}
	var warnings []string
	warnings = append(warnings, res.Warnings...)
	if ocrErr != nil {
		warnings = append(warnings, fmt.Sprintf("OCR failed, no text could be read from the document: %v", ocrErr))
	} else if res.SourceType == constants.IMAGE || res.Method == "pdf-ocr" {
		// flag low-confidence OCR so the user double-checks the pre-filled values
		if res.Confidence > 0 && res.Confidence < p.minConfidence {
			p.logger.Warn("ocr confidence low; needs review", "path", src.Path, "conf", res.Confidence)
			summary.NeedsReview = true
			warnings = append(warnings, fmt.Sprintf("OCR confidence is low (%.2f); please review the pre-filled values", res.Confidence))
		}
	}
	if res.Text == "" && ocrErr == nil {
		warnings = append(warnings, "no text was recognized in the document")
	}

	out, err := p.ExtractText(ctx, res.Text, categories)
	if err != nil {
		return out, err
	}
	out.Source = src.Path
	out.OCR = summary
	out.Warnings = nonNil(append(warnings, out.Warnings...))
	p.logger.Info("processor.extract.ok",
		"path", src.Path,
		"found", len(out.Form.Values),
		"cached", cached,
		"needs_review", summary.NeedsReview,
		"ocr_failed", summary.Failed,
	)
	return out, nil
}

// ExtractText skips OCR and runs field extraction over already-recognized text.
func (p *Processor) ExtractText(ctx context.Context, text string, categories []constants.Category) (Prefill, error) {
	res, err := p.fields.ExtractFields(ctx, text, categories)
	if err != nil {
		return Prefill{}, err
	}
	byCat := make(map[constants.Category]fields.Outcome, len(res.Outcomes))
	for _, o := range res.Outcomes {
		byCat[o.Category] = o
	}
	return Prefill{
		Fields:   byCat,
		Form:     form.Prefill(res.Result),
		Warnings: nonNil(res.Warnings()),
		Catalog:  res.CatalogVersion,
	}, nil
}

// Predict assembles f into a feature vector and classifies it.
func (p *Processor) Predict(ctx context.Context, f form.Form) (classifier.Prediction, error) {
	if p.model == nil {
		return classifier.Prediction{}, common.NewAppError("NO_MODEL", "classifier is not configured", common.ErrUnavailable)
	}
	vec, err := f.Assemble()
	if err != nil {
		return classifier.Prediction{}, err
	}
	start := time.Now()
	pred, err := classifier.Predict(ctx, p.model, vec)
	if err != nil {
		return classifier.Prediction{}, err
	}
	p.logger.Info("processor.predict.ok", "model", pred.Model, "label", int(pred.Label), "duration_ms", time.Since(start).Milliseconds())
	return pred, nil
}

func (p *Processor) cachedText(ctx context.Context, hash string) (extract.TextExtractionResult, bool) {
	var res extract.TextExtractionResult
	data, ok, err := p.cache.Get(ctx, hash)
	if err != nil {
		p.logger.Warn("ocr cache read failed", "hash", hash, "error", err)
		return res, false
	}
	if !ok {
		return res, false
	}
	if err := json.Unmarshal(data, &res); err != nil {
		p.logger.Warn("ocr cache entry unreadable", "hash", hash, "error", err)
		return extract.TextExtractionResult{}, false
	}
	return res, true
}

func (p *Processor) storeText(ctx context.Context, hash string, res extract.TextExtractionResult) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, hash, data); err != nil {
		p.logger.Warn("ocr cache write failed", "hash", hash, "error", err)
	}
}

// nonNil returns s, or an empty slice when s is nil, so JSON renders [] rather than null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
