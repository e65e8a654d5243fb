// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package polygonize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/polygonize/internal/container"
	"github.com/pdiddy/polygonize/pkg/types"
)

func TestLocalRunnerCapturesStdoutStderr(t *testing.T) {
	stdout, stderr, err := LocalRunner{}.Run(context.Background(), "sh", "-c", "echo out; echo err 1>&2")
	require.NoError(t, err)
	assert.Equal(t, "out", strings.TrimSpace(stdout))
	assert.Equal(t, "err", strings.TrimSpace(stderr))
}

func TestLocalRunnerPassesArgumentsVerbatim(t *testing.T) {
	stdout, _, err := LocalRunner{}.Run(context.Background(), "sh", "-c", `printf '%s|' "$@"`, "sh", "a b.tif", `"GPKG"`, "$HOME")
	require.NoError(t, err)
	assert.Equal(t, `a b.tif|"GPKG"|$HOME|`, stdout)
}

func TestLocalRunnerTerminatesOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := LocalRunner{StopGrace: time.Second}.Run(ctx, "sh", "-c", "sleep 10")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLocalRunnerTerminatesForkedChildren(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "stopped")
	script := `( trap 'echo stopped > "$1"; exit 0' TERM; while :; do sleep 0.05; done ) &
wait`

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, _, err := LocalRunner{StopGrace: time.Second}.Run(ctx, "sh", "-c", script, "sh", marker)
	require.Error(t, err)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 3*time.Second, 20*time.Millisecond, "forked child never received SIGTERM")
}

// A stub tool that fails with a diagnostic must surface exit code and text.
func TestConvertWithFailingStub(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "stub-polygonize")
	script := "#!/bin/sh\necho \"stub: cannot open $1\" 1>&2\nexit 3\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0o755))

	tool := types.DefaultToolConfig()
	tool.Binary = stub
	conv := NewConverter(afero.NewOsFs(), LocalRunner{}, tool, ".gpkg", nil)

	res := conv.Convert(context.Background(), Job{Input: filepath.Join(dir, "a.tif"), OutputDir: dir})
	assert.Equal(t, types.JobFailed, res.Status)

	var toolErr *ToolError
	require.True(t, errors.As(res.Err, &toolErr))
	assert.Equal(t, 3, toolErr.ExitCode)
	assert.Contains(t, toolErr.Error(), "stub: cannot open "+filepath.Join(dir, "a.tif"))
}

func TestConvertWithSucceedingStub(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "stub-polygonize")
	// $6 is the output path in `<in> -b 1 -f GPKG <out> <layer> DN`.
	script := "#!/bin/sh\n[ \"$2\" = -b ] && [ \"$8\" = DN ] || exit 9\n: > \"$6\"\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0o755))

	tool := types.DefaultToolConfig()
	tool.Binary = stub
	conv := NewConverter(afero.NewOsFs(), LocalRunner{}, tool, ".gpkg", nil)

	res := conv.Convert(context.Background(), Job{Input: filepath.Join(dir, "a.tif"), OutputDir: dir})
	require.NoError(t, res.Err)
	assert.Equal(t, types.JobConverted, res.Status)
	assert.FileExists(t, filepath.Join(dir, "a.gpkg"))
}

// recordingRuntime captures the RunSpec handed to the container runtime.
type recordingRuntime struct {
	spec container.RunSpec
}

func (r *recordingRuntime) Name() string                              { return "docker" }
func (r *recordingRuntime) Available(context.Context) bool            { return true }
func (r *recordingRuntime) ImageExists(context.Context, string) error { return nil }
func (r *recordingRuntime) Run(_ context.Context, spec container.RunSpec) (string, string, error) {
	r.spec = spec
	return "done", "", nil
}

func TestContainerRunnerTranslatesPaths(t *testing.T) {
	in := filepath.FromSlash("/data/rasters")
	out := filepath.FromSlash("/data/vectors")
	rt := &recordingRuntime{}

	r, err := NewContainerRunner(rt, types.DefaultImage, in, out)
	require.NoError(t, err)

	args := Args(types.DefaultToolConfig(), filepath.Join(in, "sub", "a.tif"), filepath.Join(out, "a.gpkg"), "a")
	stdout, _, err := r.Run(context.Background(), types.DefaultTool, args...)
	require.NoError(t, err)
	assert.Equal(t, "done", stdout)

	assert.Equal(t, types.DefaultImage, rt.spec.Image)
	assert.Equal(t, []string{
		"gdal_polygonize.py", "/input/sub/a.tif", "-b", "1", "-f", "GPKG", "/output/a.gpkg", "a", "DN",
	}, rt.spec.Command)
	assert.Equal(t, []container.Mount{
		{Host: in, Container: "/input"},
		{Host: out, Container: "/output"},
	}, rt.spec.Mounts)
}
