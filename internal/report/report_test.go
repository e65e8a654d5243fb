// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/polygonize/internal/polygonize"
	"github.com/pdiddy/polygonize/pkg/types"
)

func sampleReport() Report {
	s := polygonize.Summary{
		Converted: 2,
		Skipped:   1,
		Failed:    1,
		Failures: []types.JobResult{{
			Input:  "/in/bad.tif",
			Output: "/out/bad.gpkg",
			Status: types.JobFailed,
			Stderr: "ERROR 4: bad.tif: not recognized\n",
			Err:    errors.New("exit status 1"),
		}},
	}
	r := New(s, polygonize.ErrConversionFailed)
	r.InputDir = "/in"
	r.OutputDir = "/out"
	r.Workers = 8
	r.Discovered = 4
	r.StartedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.FinishedAt = r.StartedAt.Add(time.Minute)
	return r
}

func TestNew(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, 2, r.Converted)
	assert.Equal(t, "conversion failed", r.Error)
	require.Len(t, r.Failures, 1)
	assert.Equal(t, "/in/bad.tif", r.Failures[0].Input)
	assert.Equal(t, "exit status 1", r.Failures[0].Error)
	assert.Contains(t, r.Failures[0].Stderr, "not recognized")
}

func TestWriteYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.yaml")
	require.NoError(t, Write(path, sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "/in", got["input_dir"])
	assert.Equal(t, 4, got["discovered"])
	failures, ok := got["failures"].([]any)
	require.True(t, ok)
	assert.Len(t, failures, 1)
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.JSON")
	require.NoError(t, Write(path, sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 8, got.Workers)
	assert.Equal(t, 1, got.Failed)
}

func TestWriteOmitsEmptyFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ok.yaml")
	require.NoError(t, Write(path, New(polygonize.Summary{Converted: 3}, nil)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "failures")
	assert.NotContains(t, string(data), "error")
}
