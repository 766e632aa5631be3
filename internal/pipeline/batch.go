package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sitebook/sitebook/internal/config"
	"github.com/sitebook/sitebook/internal/model"
)

// BatchProcessor compiles multiple volumes concurrently.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding
// batch functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-volume execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each volume.
	// We use a factory so every volume gets a fresh pipeline wired to
	// its own sections and output file.
	pipelineFactory func(volume config.Volume) *Pipeline

	// concurrency is the maximum number of volumes compiled at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed compile results.
	// Access is synchronized via mutex.
	results []*model.CompileResult
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent volumes.
// Default is 2 if not specified; volumes crawl external sites, so the
// useful ceiling is low.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each volume to create a
// fresh pipeline instance. This ensures that pipeline state doesn't
// leak between volumes and lets each pipeline carry volume-specific
// steps.
func NewBatchProcessor(pipelineFactory func(volume config.Volume) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     2,
		results:         make([]*model.CompileResult, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch compiles multiple volumes concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each volume gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns all results in the order the volumes were given, including
// results for volumes that failed. The error return indicates whether
// the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, volumes []config.Volume) ([]*model.CompileResult, error) {
	bp.logger.Info("starting batch compile",
		"total_volumes", len(volumes),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.CompileResult, len(volumes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, volume := range volumes {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("compiling volume",
				"volume", volume.Name,
				"index", i+1,
				"total", len(volumes),
			)

			result := model.NewCompileResult(volume.Name)

			pipeline := bp.pipelineFactory(volume)
			err := pipeline.Execute(ctx, result)

			// Store result regardless of error
			// The result carries the error when the compile failed
			bp.mu.Lock()
			bp.results[i] = result
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("volume compile failed",
					"volume", volume.Name,
					"error", err,
				)
				// Don't return the error to the errgroup - the other
				// volumes should still compile. The error is recorded
				// in the result.
				return nil
			}

			bp.logger.Info("volume compiled",
				"volume", volume.Name,
				"output", result.OutputPath,
			)

			return nil
		})
	}

	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch compile complete",
		"total_volumes", len(volumes),
		"elapsed", elapsed,
	)

	return bp.results, err
}

// Summary aggregates the stored results into a run summary.
// Call it after ProcessBatch returns.
func (bp *BatchProcessor) Summary() *model.RunSummary {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	summary := &model.RunSummary{Generated: make([]string, 0, len(bp.results))}
	for _, result := range bp.results {
		if result == nil {
			continue
		}
		if result.Succeeded() {
			summary.Generated = append(summary.Generated, result.OutputPath)
		} else {
			summary.Failed = append(summary.Failed, result.VolumeName)
		}
		summary.TotalPages += result.TotalPages()
	}
	return summary
}
