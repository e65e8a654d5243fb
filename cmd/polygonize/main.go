// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the polygonize CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/polygonize/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd converts every raster under --input into a vector file in --output.
var rootCmd = &cobra.Command{
	Use:   "polygonize -i <input-dir> -o <output-dir>",
	Short: "Batch-convert rasters to polygon vector files with gdal_polygonize",
	Long: `polygonize searches the input directory recursively for rasters and runs
gdal_polygonize on each one in parallel, writing one GeoPackage per raster
into the output directory. The output directory is flat: a raster at
<input>/sub/c.tif becomes <output>/c.gpkg.

Rasters whose output file already exists are skipped, so an interrupted run
can be restarted with the same arguments. A partially written output from an
interrupted run also counts as existing; delete it to force reconversion.`,
	Args: cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(newLogger(viper.GetString("log_level")))
	},
	RunE: runPolygonize,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./polygonize.yaml or ~/.config/polygonize/polygonize.yaml)")
	pf.String("log-level", "warn", "log level: debug, info, warn, or error")
	pf.String("ledger", "", "SQLite run history database (empty disables history)")

	f := rootCmd.Flags()
	f.StringP("input", "i", "", "directory searched recursively for rasters (or input: in config, POLYGONIZE_INPUT)")
	f.StringP("output", "o", "", "directory that receives the vector files (or output: in config, POLYGONIZE_OUTPUT)")
	f.Int("workers", runtime.NumCPU(), "number of conversions run in parallel")
	f.String("tool", types.DefaultTool, "polygonize executable")
	f.Int("band", types.DefaultBand, "raster band to polygonize")
	f.String("format", types.DefaultFormat, "OGR output driver")
	f.String("field", types.DefaultField, "attribute field that stores the pixel value")
	f.String("input-ext", types.DefaultInputExt, "raster file extension to search for")
	f.String("output-ext", types.DefaultOutputExt, "extension of the written vector files")
	f.String("mode", string(types.ModeLocal), "where the tool runs: local or container")
	f.String("image", types.DefaultImage, "GDAL image used in container mode")
	f.Bool("keep-going", false, "convert every raster even after failures, then report all of them")
	f.String("report", "", "write a run report to this file (.yaml or .json)")
	f.Bool("no-progress", false, "disable the progress bar")

	bindFlags(rootCmd, map[string]string{
		"log_level":   "log-level",
		"ledger":      "ledger",
		"input":       "input",
		"output":      "output",
		"workers":     "workers",
		"tool.binary": "tool",
		"tool.band":   "band",
		"tool.format": "format",
		"tool.field":  "field",
		"tool.mode":   "mode",
		"tool.image":  "image",
		"input_ext":   "input-ext",
		"output_ext":  "output-ext",
		"keep_going":  "keep-going",
		"report":      "report",
		"no_progress": "no-progress",
	})
}

// bindFlags ties viper keys to cobra flags so a flag set on the command line
// overrides the config file and environment.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			flag = cmd.PersistentFlags().Lookup(name)
		}
		if flag == nil {
			panic(fmt.Sprintf("unknown flag %q for key %q", name, key))
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			panic(err)
		}
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("polygonize")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "polygonize"))
		}
	}

	viper.SetEnvPrefix("POLYGONIZE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
