// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/polygonize/pkg/types"
)

func TestLoadBatchConfigDefaults(t *testing.T) {
	v := viper.New()
	v.Set("input", "in")
	v.Set("output", "out")

	cfg, err := loadBatchConfig(v)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "in"), cfg.InputDir)
	assert.Equal(t, filepath.Join(wd, "out"), cfg.OutputDir)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, ".tif", cfg.InputExt)
	assert.Equal(t, ".gpkg", cfg.OutputExt)
	assert.Equal(t, types.DefaultToolConfig(), cfg.Tool)
	assert.False(t, cfg.KeepGoing)
}

func TestLoadBatchConfigOverrides(t *testing.T) {
	v := viper.New()
	v.Set("input", "/data/in")
	v.Set("output", "/data/out")
	v.Set("workers", 3)
	v.Set("keep_going", true)
	v.Set("tool.binary", "gdal_polygonize")
	v.Set("tool.band", 2)
	v.Set("tool.format", "FlatGeobuf")
	v.Set("tool.mode", "CONTAINER")
	v.Set("output_ext", ".fgb")

	cfg, err := loadBatchConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.KeepGoing)
	assert.Equal(t, "gdal_polygonize", cfg.Tool.Binary)
	assert.Equal(t, 2, cfg.Tool.Band)
	assert.Equal(t, "FlatGeobuf", cfg.Tool.Format)
	assert.Equal(t, types.ModeContainer, cfg.Tool.Mode)
	assert.Equal(t, "DN", cfg.Tool.Field)
	assert.Equal(t, ".fgb", cfg.OutputExt)
}

func TestLoadBatchConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polygonize.yaml")
	content := `input: /srv/rasters
output: /srv/vectors
workers: 6
ledger: /var/lib/polygonize/history.db
tool:
  binary: /opt/gdal/bin/gdal_polygonize.py
  field: value
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadBatchConfig(v)
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/srv/rasters"), cfg.InputDir)
	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, "/var/lib/polygonize/history.db", cfg.LedgerPath)
	assert.Equal(t, "/opt/gdal/bin/gdal_polygonize.py", cfg.Tool.Binary)
	assert.Equal(t, "value", cfg.Tool.Field)
	assert.Equal(t, "GPKG", cfg.Tool.Format)
}

func TestLoadBatchConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]any
		wantErr string
	}{
		{name: "missing input", set: map[string]any{"output": "out"}, wantErr: "input directory is required"},
		{name: "missing output", set: map[string]any{"input": "in"}, wantErr: "output directory is required"},
		{name: "zero workers", set: map[string]any{"input": "in", "output": "out", "workers": 0}, wantErr: "workers must be at least 1"},
		{name: "bad band", set: map[string]any{"input": "in", "output": "out", "tool.band": 0}, wantErr: "band must be at least 1"},
		{name: "extension without dot", set: map[string]any{"input": "in", "output": "out", "input_ext": "tif"}, wantErr: "must start with a dot"},
		{name: "unknown mode", set: map[string]any{"input": "in", "output": "out", "tool.mode": "ssh"}, wantErr: `unknown mode "ssh"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := loadBatchConfig(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("info"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel(""))
}
