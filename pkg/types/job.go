// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// JobStatus is the outcome of one conversion job.
type JobStatus string

const (
	JobConverted JobStatus = "converted"
	JobSkipped   JobStatus = "skipped"
	JobFailed    JobStatus = "failed"
	JobCanceled  JobStatus = "canceled"
)

// Done reports whether the job left a usable output behind, either by
// converting or because the output already existed.
func (s JobStatus) Done() bool {
	return s == JobConverted || s == JobSkipped
}

// JobResult records what happened to one input raster.
type JobResult struct {
	// Input is the raster path as discovered.
	Input string `json:"input" yaml:"input"`

	// Output is the derived vector path.
	Output string `json:"output" yaml:"output"`

	Status JobStatus `json:"status" yaml:"status"`

	// Stdout and Stderr hold the tool's captured output. Both are empty for
	// skipped jobs.
	Stdout string `json:"stdout,omitempty" yaml:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty" yaml:"stderr,omitempty"`

	Duration time.Duration `json:"duration" yaml:"duration"`

	// Err is set for failed and canceled jobs.
	Err error `json:"-" yaml:"-"`
}
