package async

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sumanths012/SymptoSense/internal/common"
)

// BatchRunner extracts many files concurrently with a bounded number of workers.
// Files are independent: one failure never cancels the others.
type BatchRunner struct {
	proc     FileProcessor
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult func(FileResult)
}

type Option func(*BatchRunner)

func WithWorkers(n int) Option {
	return func(r *BatchRunner) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(r *BatchRunner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithOnResult is called from worker goroutines as each file finishes.
func WithOnResult(fn func(FileResult)) Option {
	return func(r *BatchRunner) { r.onResult = fn }
}

func NewBatchRunner(proc FileProcessor, logger *slog.Logger, opts ...Option) *BatchRunner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &BatchRunner{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run processes jobs and returns their results in input order. Jobs not started before ctx
// is done report ctx's error.
func (r *BatchRunner) Run(ctx context.Context, jobs []Job) []FileResult {
	results := make([]FileResult, len(jobs))
	var failed atomic.Int32
	start := time.Now()

	g := new(errgroup.Group)
	g.SetLimit(r.workers)
	for i, job := range jobs {
		i, job := i, job
		if job.SubmittedAt.IsZero() {
			job.SubmittedAt = time.Now().UTC()
		}
		if job.TraceID == "" {
			_, job.TraceID = common.EnsureRequestID(ctx)
		}
		g.Go(func() error {
			res := r.process(ctx, job)
			if res.Err != nil {
				failed.Add(1)
			}
			results[i] = res
			if r.onResult != nil {
				r.onResult(res)
			}
			return nil
		})
	}
	_ = g.Wait()

	r.logger.Info("batch finished",
		"files", len(jobs),
		"failed", failed.Load(),
		"workers", r.workers,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results
}

func (r *BatchRunner) process(ctx context.Context, job Job) FileResult {
	res := FileResult{Job: job}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	jobCtx, cancel := context.WithTimeout(common.WithRequestID(ctx, job.TraceID), r.timeout)
	defer cancel()

	start := time.Now()
	res.Prefill, res.Err = r.proc.ExtractFile(jobCtx, job.Path, job.Categories)
	res.Duration = time.Since(start)
	if res.Err != nil {
		r.logger.Error("processing failed", "path", job.Path, "trace_id", job.TraceID, "error", res.Err)
	} else {
		r.logger.Debug("processed file successfully", "path", job.Path, "trace_id", job.TraceID, "duration_ms", res.Duration.Milliseconds())
	}
	return res
}
