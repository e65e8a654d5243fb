// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/polygonize/internal/container"
	"github.com/pdiddy/polygonize/internal/discover"
	"github.com/pdiddy/polygonize/internal/ledger"
	"github.com/pdiddy/polygonize/internal/polygonize"
	"github.com/pdiddy/polygonize/internal/report"
	"github.com/pdiddy/polygonize/pkg/types"
)

func runPolygonize(cmd *cobra.Command, args []string) error {
	cfg, err := loadBatchConfig(viper.GetViper())
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	return runBatch(cmd.Context(), cfg, batchIO{
		stdout:   cmd.OutOrStdout(),
		stderr:   cmd.ErrOrStderr(),
		progress: !viper.GetBool("no_progress"),
	}, slog.Default())
}

// batchIO holds the writers a run reports to.
type batchIO struct {
	stdout   io.Writer
	stderr   io.Writer
	progress bool

	// newBar overrides newProgress when set.
	newBar func(total int) *progressbar.ProgressBar
}

func (o batchIO) bar(total int) *progressbar.ProgressBar {
	if o.newBar != nil {
		return o.newBar(total)
	}
	return newProgress(o.stderr, total, o.progress && total > 0)
}

// runBatch discovers, converts, and records one batch. It returns the batch
// error, which is non-nil if discovery or any conversion failed.
func runBatch(ctx context.Context, cfg types.BatchConfig, out batchIO, logger *slog.Logger) error {
	fsys := afero.NewOsFs()

	inputs, err := discover.Files(fsys, cfg.InputDir, cfg.InputExt)
	if err != nil {
		return err
	}
	fmt.Fprintf(out.stdout, "Found %d files\n", len(inputs))

	runner, err := newRunner(ctx, cfg)
	if err != nil {
		return err
	}

	var (
		history *ledger.Ledger
		runID   string
	)
	if cfg.LedgerPath != "" {
		history, err = ledger.Open(cfg.LedgerPath)
		if err != nil {
			return err
		}
		defer history.Close()

		runID, err = history.BeginRun(ctx, cfg.InputDir, cfg.OutputDir, cfg.Workers, len(inputs))
		if err != nil {
			return err
		}
		logger.Info("recording run", "run_id", runID, "ledger", cfg.LedgerPath)
	}

	conv := polygonize.NewConverter(fsys, runner, cfg.Tool, cfg.OutputExt, logger)
	batch := polygonize.NewBatch(conv, polygonize.BatchOptions{
		OutputDir: cfg.OutputDir,
		Workers:   cfg.Workers,
		KeepGoing: cfg.KeepGoing,
	}, logger)

	showBar := out.progress && len(inputs) > 0
	bar := out.bar(len(inputs))
	started := time.Now()

	summary, runErr := batch.Run(ctx, inputs, func(res types.JobResult) {
		if res.Status.Done() {
			_ = bar.Add(1)
		}
		if history != nil {
			// Results that arrive after an interrupt are still recorded.
			if err := history.RecordJob(context.WithoutCancel(ctx), runID, res); err != nil {
				logger.Warn("ledger write failed", "error", err)
			}
		}
	})
	finished := time.Now()
	if showBar && !bar.IsFinished() {
		_ = bar.Exit()
		fmt.Fprintln(out.stderr)
	}

	fmt.Fprintf(out.stdout, "Batch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		summary.Converted, summary.Skipped, summary.Failed, len(inputs))

	if history != nil {
		if err := history.FinishRun(context.WithoutCancel(ctx), runID, summary, runErr); err != nil {
			logger.Warn("ledger write failed", "error", err)
		}
	}

	if cfg.ReportPath != "" {
		r := report.New(summary, runErr)
		r.RunID = runID
		r.InputDir = cfg.InputDir
		r.OutputDir = cfg.OutputDir
		r.Workers = cfg.Workers
		r.Discovered = len(inputs)
		r.StartedAt = started.UTC()
		r.FinishedAt = finished.UTC()
		if err := report.Write(cfg.ReportPath, r); err != nil {
			logger.Error("writing report", "error", err)
		}
	}

	return runErr
}

// newRunner picks the tool runner for cfg.Tool.Mode. Container mode fails
// here, before any job starts, if no runtime or image is available.
func newRunner(ctx context.Context, cfg types.BatchConfig) (polygonize.Runner, error) {
	if cfg.Tool.Mode != types.ModeContainer {
		return polygonize.LocalRunner{}, nil
	}

	rt, err := container.DetectRuntime(ctx)
	if err != nil {
		return nil, err
	}
	if err := rt.ImageExists(ctx, cfg.Tool.Image); err != nil {
		return nil, fmt.Errorf("%w (pull it with `%s pull %s`)", err, rt.Name(), cfg.Tool.Image)
	}
	return polygonize.NewContainerRunner(rt, cfg.Tool.Image, cfg.InputDir, cfg.OutputDir)
}
