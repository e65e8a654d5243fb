// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report writes a machine-readable summary of a batch run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/polygonize/internal/polygonize"
)

// Report is the file written after a run.
type Report struct {
	RunID      string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	InputDir   string    `json:"input_dir" yaml:"input_dir"`
	OutputDir  string    `json:"output_dir" yaml:"output_dir"`
	Workers    int       `json:"workers" yaml:"workers"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Discovered int       `json:"discovered" yaml:"discovered"`
	Converted  int       `json:"converted" yaml:"converted"`
	Skipped    int       `json:"skipped" yaml:"skipped"`
	Failed     int       `json:"failed" yaml:"failed"`
	Canceled   int       `json:"canceled" yaml:"canceled"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	Failures   []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Failure describes one failed job.
type Failure struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`
	Error  string `json:"error" yaml:"error"`
	Stderr string `json:"stderr,omitempty" yaml:"stderr,omitempty"`
}

// New fills a Report from the batch summary. runErr is the batch error, if
// any.
func New(s polygonize.Summary, runErr error) Report {
	r := Report{
		Converted: s.Converted,
		Skipped:   s.Skipped,
		Failed:    s.Failed,
		Canceled:  s.Canceled,
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	for _, f := range s.Failures {
		var msg string
		if f.Err != nil {
			msg = f.Err.Error()
		}
		r.Failures = append(r.Failures, Failure{
			Input:  f.Input,
			Output: f.Output,
			Error:  msg,
			Stderr: f.Stderr,
		})
	}
	return r
}

// Write stores r at path. A ".json" extension selects JSON; anything else
// is written as YAML.
func Write(path string, r Report) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(r, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(r)
	}
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}
