// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "runtime"

// ExecMode selects where the conversion tool runs.
type ExecMode string

const (
	// ModeLocal runs the tool binary found on PATH.
	ModeLocal ExecMode = "local"
	// ModeContainer runs the tool inside a GDAL container image.
	ModeContainer ExecMode = "container"
)

// Defaults for the external tool invocation. These reproduce the fixed
// argument shape `<tool> <in> -b 1 -f GPKG <out> <layer> DN`.
const (
	DefaultTool      = "gdal_polygonize.py"
	DefaultBand      = 1
	DefaultFormat    = "GPKG"
	DefaultField     = "DN"
	DefaultInputExt  = ".tif"
	DefaultOutputExt = ".gpkg"
	DefaultImage     = "ghcr.io/osgeo/gdal:latest"
)

// ToolConfig describes how the polygonize tool is invoked.
type ToolConfig struct {
	// Binary is the tool executable name or path (default gdal_polygonize.py).
	Binary string `json:"binary" yaml:"binary" mapstructure:"binary"`

	// Band is the 1-based raster band to polygonize.
	Band int `json:"band" yaml:"band" mapstructure:"band"`

	// Format is the OGR output driver name.
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// Field is the attribute name that carries the source pixel value.
	Field string `json:"field" yaml:"field" mapstructure:"field"`

	// Mode selects local or container execution.
	Mode ExecMode `json:"mode" yaml:"mode" mapstructure:"mode"`

	// Image is the container image used when Mode is ModeContainer.
	Image string `json:"image" yaml:"image" mapstructure:"image"`
}

// BatchConfig holds settings for one batch run.
type BatchConfig struct {
	// InputDir is searched recursively for rasters.
	InputDir string `json:"input" yaml:"input" mapstructure:"input"`

	// OutputDir receives the converted files. It is flat: subdirectories of
	// InputDir are not mirrored.
	OutputDir string `json:"output" yaml:"output" mapstructure:"output"`

	// InputExt is the raster extension to match, including the dot.
	InputExt string `json:"input_ext" yaml:"input_ext" mapstructure:"input_ext"`

	// OutputExt replaces InputExt on output file names.
	OutputExt string `json:"output_ext" yaml:"output_ext" mapstructure:"output_ext"`

	// Workers is the pool size (default: number of CPUs).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// KeepGoing continues past failed conversions and reports them all at
	// the end instead of stopping at the first one.
	KeepGoing bool `json:"keep_going" yaml:"keep_going" mapstructure:"keep_going"`

	// LedgerPath is the SQLite run history database. Empty disables it.
	LedgerPath string `json:"ledger,omitempty" yaml:"ledger,omitempty" mapstructure:"ledger"`

	// ReportPath is an optional YAML or JSON run report.
	ReportPath string `json:"report,omitempty" yaml:"report,omitempty" mapstructure:"report"`

	Tool ToolConfig `json:"tool" yaml:"tool" mapstructure:"tool"`
}

// DefaultToolConfig returns the tool settings of a plain local GDAL install.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		Binary: DefaultTool,
		Band:   DefaultBand,
		Format: DefaultFormat,
		Field:  DefaultField,
		Mode:   ModeLocal,
		Image:  DefaultImage,
	}
}

// DefaultBatchConfig returns a config with every optional setting filled in.
// InputDir and OutputDir are left empty; callers must supply them.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		InputExt:  DefaultInputExt,
		OutputExt: DefaultOutputExt,
		Workers:   runtime.NumCPU(),
		Tool:      DefaultToolConfig(),
	}
}
