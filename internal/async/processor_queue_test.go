package async

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumanths012/SymptoSense/constants"
	"github.com/sumanths012/SymptoSense/internal/core"
	"github.com/sumanths012/SymptoSense/internal/logging"
)

type countingProcessor struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (c *countingProcessor) ExtractFile(ctx context.Context, path string, _ []constants.Category) (core.Prefill, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	if strings.HasSuffix(path, "bad.png") {
		return core.Prefill{}, errors.New("ocr failed")
	}
	return core.Prefill{Source: path}, nil
}

func TestBatchRunner_OrderLimitAndIsolation(t *testing.T) {
	proc := &countingProcessor{}
	var mu sync.Mutex
	var seen []string
	r := NewBatchRunner(proc, logging.Discard(), WithWorkers(2), WithOnResult(func(res FileResult) {
		mu.Lock()
		seen = append(seen, res.Job.Path)
		mu.Unlock()
	}))

	jobs := []Job{{Path: "a.png"}, {Path: "bad.png"}, {Path: "c.png"}, {Path: "d.png"}, {Path: "e.png"}}
	results := r.Run(context.Background(), jobs)

	require.Len(t, results, len(jobs))
	for i, res := range results {
		assert.Equal(t, jobs[i].Path, res.Job.Path)
		assert.NotEmpty(t, res.Job.TraceID)
		if jobs[i].Path == "bad.png" {
			assert.Error(t, res.Err)
			continue
		}
		require.NoError(t, res.Err)
		assert.Equal(t, jobs[i].Path, res.Prefill.Source)
	}
	assert.LessOrEqual(t, proc.peak.Load(), int32(2))
	assert.Len(t, seen, len(jobs))
}

func TestBatchRunner_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := NewBatchRunner(&countingProcessor{}, logging.Discard()).Run(ctx, []Job{{Path: "a.png"}})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

type blockingProcessor struct{}

func (blockingProcessor) ExtractFile(ctx context.Context, path string, _ []constants.Category) (core.Prefill, error) {
	if path == "fast.png" {
		return core.Prefill{Source: path}, nil
	}
	<-ctx.Done()
	return core.Prefill{}, ctx.Err()
}

func TestBatchRunner_ProcessTimeoutBoundsEachFile(t *testing.T) {
	r := NewBatchRunner(blockingProcessor{}, logging.Discard(), WithProcessTimeout(20*time.Millisecond))

	start := time.Now()
	results := r.Run(context.Background(), []Job{{Path: "slow.png"}, {Path: "fast.png"}})
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, "fast.png", results[1].Prefill.Source)
}
