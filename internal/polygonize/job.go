// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package polygonize converts raster files to vector polygon files by
// running GDAL's gdal_polygonize tool, one subprocess per raster.
package polygonize

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/pdiddy/polygonize/pkg/types"
)

// Job pairs one input raster with the shared output directory.
type Job struct {
	Input     string
	OutputDir string
}

// OutputPath derives the vector path for input: the input's base name with
// its extension replaced by outputExt, placed directly in outputDir. The
// input's own directory plays no part, so rasters from different
// subdirectories land side by side.
func OutputPath(input, outputDir, outputExt string) string {
	return filepath.Join(outputDir, LayerName(input)+outputExt)
}

// LayerName is the input's base name without its extension.
func LayerName(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Args builds the tool argument vector:
//
//	<input> -b <band> -f <format> <output> <layer> <field>
func Args(tool types.ToolConfig, input, output, layer string) []string {
	return []string{
		input,
		"-b", strconv.Itoa(tool.Band),
		"-f", tool.Format,
		output,
		layer,
		tool.Field,
	}
}

// Converter runs single conversion jobs.
type Converter struct {
	fs        afero.Fs
	runner    Runner
	tool      types.ToolConfig
	outputExt string
	logger    *slog.Logger
}

// NewConverter creates a converter. fs is used only for the output existence
// check; the tool itself writes to the real filesystem.
func NewConverter(fs afero.Fs, runner Runner, tool types.ToolConfig, outputExt string, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		fs:        fs,
		runner:    runner,
		tool:      tool,
		outputExt: outputExt,
		logger:    logger.With("component", "converter"),
	}
}

// Convert performs one job. If the output file already exists, whatever its
// size or state, the tool is not run and the job is reported as skipped. A
// file left half-written by an interrupted run therefore counts as done.
func (c *Converter) Convert(ctx context.Context, job Job) types.JobResult {
	out := OutputPath(job.Input, job.OutputDir, c.outputExt)
	res := types.JobResult{Input: job.Input, Output: out}

	if err := ctx.Err(); err != nil {
		res.Status = types.JobCanceled
		res.Err = err
		return res
	}

	exists, err := afero.Exists(c.fs, out)
	if err != nil {
		res.Status = types.JobFailed
		res.Err = fmt.Errorf("checking %s: %w", out, err)
		return res
	}
	if exists {
		c.logger.Debug("output exists, skipping", "input", job.Input, "output", out)
		res.Status = types.JobSkipped
		return res
	}

	args := Args(c.tool, job.Input, out, LayerName(job.Input))
	c.logger.Debug("running tool", "tool", c.tool.Binary, "args", args)

	start := time.Now()
	stdout, stderr, err := c.runner.Run(ctx, c.tool.Binary, args...)
	res.Duration = time.Since(start)
	res.Stdout = stdout
	res.Stderr = stderr

	switch {
	case err == nil:
		res.Status = types.JobConverted
	case ctx.Err() != nil:
		res.Status = types.JobCanceled
		res.Err = ctx.Err()
	default:
		res.Status = types.JobFailed
		res.Err = newToolError(c.tool.Binary, args, stdout, stderr, err)
	}
	return res
}
