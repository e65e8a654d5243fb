// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package polygonize

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/polygonize/internal/container"
)

//go:generate mockgen -destination=mocks/mock_runner.go -package=mocks . Runner

// Runner executes one tool invocation and returns its captured output.
// The returned error is the raw process error; Converter wraps it.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// DefaultStopGrace is how long a canceled tool gets to exit after SIGTERM
// before it is killed.
const DefaultStopGrace = 5 * time.Second

// LocalRunner runs the tool directly with an explicit argument vector. No
// shell is involved, so paths with spaces or quotes need no escaping.
type LocalRunner struct {
	// StopGrace overrides DefaultStopGrace when positive.
	StopGrace time.Duration
}

func (r LocalRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	grace := r.StopGrace
	if grace <= 0 {
		grace = DefaultStopGrace
	}

	cmd := exec.CommandContext(ctx, name, args...)
	startOwnGroup(cmd)
	cmd.Cancel = func() error { return terminate(cmd) }
	cmd.WaitDelay = grace

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	return stdoutBuf.String(), stderrBuf.String(), err
}

// Container-side mount points for the input and output trees.
const (
	containerInput  = "/input"
	containerOutput = "/output"
)

// ContainerRunner runs the tool inside a GDAL image. Absolute host paths
// under the input or output directory are rewritten to their mount points;
// every other argument passes through unchanged.
type ContainerRunner struct {
	runtime container.Runtime
	image   string
	mounts  []container.Mount
	user    string
}

// NewContainerRunner mounts inputDir and outputDir into image. Both are made
// absolute here, so callers should hand the Converter absolute paths too.
func NewContainerRunner(rt container.Runtime, image, inputDir, outputDir string) (*ContainerRunner, error) {
	in, err := filepath.Abs(inputDir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", inputDir, err)
	}
	out, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", outputDir, err)
	}

	var user string
	if uid, gid := os.Getuid(), os.Getgid(); uid >= 0 && gid >= 0 {
		user = fmt.Sprintf("%d:%d", uid, gid)
	}

	return &ContainerRunner{
		runtime: rt,
		image:   image,
		mounts: []container.Mount{
			{Host: in, Container: containerInput},
			{Host: out, Container: containerOutput},
		},
		user: user,
	}, nil
}

func (r *ContainerRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	command := make([]string, 0, len(args)+1)
	command = append(command, name)
	for _, arg := range args {
		command = append(command, r.translate(arg))
	}

	return r.runtime.Run(ctx, container.RunSpec{
		Image:   r.image,
		Mounts:  r.mounts,
		WorkDir: containerOutput,
		User:    r.user,
		Command: command,
	})
}

func (r *ContainerRunner) translate(arg string) string {
	if strings.HasPrefix(arg, "-") || !filepath.IsAbs(arg) {
		return arg
	}
	if p, ok := container.TranslatePath(r.mounts, arg); ok {
		return p
	}
	return arg
}
