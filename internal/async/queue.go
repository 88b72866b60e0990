package async

import (
	"context"
	"time"

	"github.com/sumanths012/SymptoSense/constants"
	"github.com/sumanths012/SymptoSense/internal/core"
)

// Job is one report file to run through extraction.
type Job struct {
	Path        string
	Categories  []constants.Category
	SubmittedAt time.Time
	TraceID     string
}

// FileProcessor is the part of core.Processor a batch needs.
type FileProcessor interface {
	ExtractFile(ctx context.Context, path string, categories []constants.Category) (core.Prefill, error)
}

// FileResult is the outcome for one Job. Exactly one of Prefill and Err is meaningful.
type FileResult struct {
	Job      Job
	Prefill  core.Prefill
	Err      error
	Duration time.Duration
}
