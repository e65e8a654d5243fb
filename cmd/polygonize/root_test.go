// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeRoot runs rootCmd with args against the global viper instance, the
// same path main takes.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "polygonize.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootTakesDirectoriesFromConfigFile(t *testing.T) {
	bin, callLog := stubTool(t, "")
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "vectors")
	writeRasters(t, in, "a.tif", "sub/b.tif")

	cfgPath := writeConfig(t, "input: "+in+"\noutput: "+out+"\nworkers: 1\ntool:\n  binary: "+bin+"\n")

	stdout, err := executeRoot(t, "--config", cfgPath, "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Found 2 files")
	assert.FileExists(t, filepath.Join(out, "a.gpkg"))
	assert.FileExists(t, filepath.Join(out, "b.gpkg"))
	assert.Len(t, readCalls(t, callLog), 2)
}

func TestRootTakesDirectoriesFromEnvironment(t *testing.T) {
	bin, _ := stubTool(t, "")
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "vectors")
	writeRasters(t, in, "x.tif")

	t.Setenv("POLYGONIZE_INPUT", in)
	t.Setenv("POLYGONIZE_OUTPUT", out)
	cfgPath := writeConfig(t, "tool:\n  binary: "+bin+"\n")

	stdout, err := executeRoot(t, "--config", cfgPath, "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 converted")
	assert.FileExists(t, filepath.Join(out, "x.gpkg"))
}

func TestRootReportsMissingDirectories(t *testing.T) {
	cfgPath := writeConfig(t, "workers: 1\n")

	_, err := executeRoot(t, "--config", cfgPath, "--no-progress")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input directory is required")
	assert.Contains(t, err.Error(), "output directory is required")
}
