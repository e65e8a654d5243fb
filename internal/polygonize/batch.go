// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package polygonize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/polygonize/pkg/types"
)

// BatchOptions configures a Batch.
type BatchOptions struct {
	OutputDir string

	// Workers bounds the number of concurrent tool runs. Values below one
	// are treated as one.
	Workers int

	// KeepGoing runs every job even after failures. By default the first
	// failure stops further dispatch.
	KeepGoing bool
}

// Summary holds the outcome of a batch run.
type Summary struct {
	Converted int
	Skipped   int
	Failed    int
	Canceled  int

	// Failures lists failed results in completion order.
	Failures []types.JobResult
}

// Total returns the number of jobs that reported a result.
func (s Summary) Total() int {
	return s.Converted + s.Skipped + s.Failed + s.Canceled
}

// HasFailures reports whether any conversion failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

func (s *Summary) add(r types.JobResult) {
	switch r.Status {
	case types.JobConverted:
		s.Converted++
	case types.JobSkipped:
		s.Skipped++
	case types.JobFailed:
		s.Failed++
		s.Failures = append(s.Failures, r)
	case types.JobCanceled:
		s.Canceled++
	}
}

// Batch fans conversion jobs out over a bounded worker pool.
type Batch struct {
	conv   *Converter
	opts   BatchOptions
	logger *slog.Logger
}

// NewBatch creates a batch driver around conv.
func NewBatch(conv *Converter, opts BatchOptions, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Batch{
		conv:   conv,
		opts:   opts,
		logger: logger.With("component", "batch"),
	}
}

// Run converts every input and calls onResult once per finished job, on the
// calling goroutine, in completion order. onResult may be nil.
//
// Without KeepGoing the first failure stops dispatch; jobs already running
// finish normally and Run returns that failure. With KeepGoing all jobs run
// and the returned error joins every failure. Canceling ctx stops dispatch
// and terminates running tools; Run then returns ctx's error.
func (b *Batch) Run(ctx context.Context, inputs []string, onResult func(types.JobResult)) (Summary, error) {
	var summary Summary

	if err := b.conv.fs.MkdirAll(b.opts.OutputDir, 0o755); err != nil {
		return summary, fmt.Errorf("creating output directory %s: %w", b.opts.OutputDir, err)
	}
	b.warnCollisions(inputs)

	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	defer stopDispatch()

	var g errgroup.Group
	g.SetLimit(b.opts.Workers)

	results := make(chan types.JobResult)
	var firstErr error

	go func() {
		defer close(results)
		for _, in := range inputs {
			if dispatchCtx.Err() != nil {
				break
			}
			in := in
			g.Go(func() error {
				// A slot may free up after dispatch was stopped.
				if dispatchCtx.Err() != nil {
					return nil
				}
				res := b.conv.Convert(ctx, Job{Input: in, OutputDir: b.opts.OutputDir})
				results <- res
				if res.Status == types.JobFailed && !b.opts.KeepGoing {
					stopDispatch()
					return fmt.Errorf("converting %s: %w", res.Input, res.Err)
				}
				return nil
			})
		}
		firstErr = g.Wait()
	}()

	for res := range results {
		summary.add(res)
		b.logResult(res)
		if onResult != nil {
			onResult(res)
		}
	}

	if firstErr != nil {
		return summary, fmt.Errorf("%w: %w", ErrConversionFailed, firstErr)
	}
	if summary.HasFailures() {
		errs := make([]error, 0, len(summary.Failures))
		for _, f := range summary.Failures {
			errs = append(errs, fmt.Errorf("converting %s: %w", f.Input, f.Err))
		}
		return summary, fmt.Errorf("%w: %d of %d jobs: %w",
			ErrConversionFailed, summary.Failed, len(inputs), errors.Join(errs...))
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (b *Batch) logResult(res types.JobResult) {
	switch res.Status {
	case types.JobConverted:
		b.logger.Debug("converted", "input", res.Input, "output", res.Output, "duration", res.Duration)
	case types.JobFailed:
		b.logger.Error("conversion failed", "input", res.Input, "error", res.Err)
	case types.JobCanceled:
		b.logger.Debug("canceled", "input", res.Input)
	}
}

// warnCollisions logs inputs that share an output path. Which of them wins is
// left to timing; input names are expected to be unique across the tree.
func (b *Batch) warnCollisions(inputs []string) {
	seen := make(map[string]string, len(inputs))
	for _, in := range inputs {
		out := OutputPath(in, b.opts.OutputDir, b.conv.outputExt)
		if prev, ok := seen[out]; ok {
			b.logger.Warn("inputs share an output path", "output", out, "first", prev, "second", in)
			continue
		}
		seen[out] = in
	}
}
