// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package polygonize_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testLogger returns a discard logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTool stands in for gdal_polygonize. It writes the output file named in
// the argument vector, or fails for inputs listed in fail.
type fakeTool struct {
	fail  map[string]string // input base name -> stderr to emit
	delay time.Duration

	mu    sync.Mutex
	calls []string // inputs in call order

	running atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeTool) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		prev := f.maxSeen.Load()
		if n <= prev || f.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}

	input, output := args[0], args[5]
	f.mu.Lock()
	f.calls = append(f.calls, input)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", "", ctx.Err()
		case <-time.After(f.delay):
		}
	}

	if stderr, ok := f.fail[filepath.Base(input)]; ok {
		return "", stderr, errors.New("exit status 1")
	}
	if err := os.WriteFile(output, []byte("gpkg"), 0o644); err != nil {
		return "", err.Error(), err
	}
	return "0...10...20...30...40...50...60...70...80...90...100 - done.\n", "", nil
}

func (f *fakeTool) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// makeRasters creates empty raster files under root and returns their paths
// in the given order.
func makeRasters(t *testing.T, root string, names ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("tif"), 0o644))
		paths = append(paths, p)
	}
	return paths
}
