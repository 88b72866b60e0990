package extract

import (
	"context"
	"time"

	"github.com/sumanths012/SymptoSense/constants"
	"github.com/sumanths012/SymptoSense/internal/fields"
)

// TextExtractor is Stage 1: file -> text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string        `json:"text"`
	Pages      int           `json:"pages"`
	SourceType string        `json:"source_type"` // "PDF" | "IMAGE" | "TXT"
	Method     string        `json:"method"`      // "pdf-text" | "pdf-ocr" | "image-ocr" | "plain-text"
	Engine     string        `json:"engine,omitempty"`
	Language   string        `json:"language"`
	Duration   time.Duration `json:"duration_ns"`
	Warnings   []string      `json:"warnings,omitempty"`
	Confidence float32       `json:"confidence"`
}

// FieldExtractor is Stage 2: text -> labeled numeric fields.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text string, categories []constants.Category) (FieldsResult, error)
}

type FieldsResult struct {
	fields.Result
	CatalogVersion uint64
	CatalogSource  string
}
