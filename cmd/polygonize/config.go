// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/polygonize/pkg/types"
)

// loadBatchConfig assembles the batch settings from flags, environment, and
// config file, in that order of precedence.
func loadBatchConfig(v *viper.Viper) (types.BatchConfig, error) {
	cfg := types.DefaultBatchConfig()

	cfg.InputDir = v.GetString("input")
	cfg.OutputDir = v.GetString("output")
	cfg.LedgerPath = v.GetString("ledger")
	cfg.ReportPath = v.GetString("report")
	cfg.KeepGoing = v.GetBool("keep_going")
	if v.IsSet("workers") {
		cfg.Workers = v.GetInt("workers")
	}
	if s := v.GetString("input_ext"); s != "" {
		cfg.InputExt = s
	}
	if s := v.GetString("output_ext"); s != "" {
		cfg.OutputExt = s
	}

	if s := v.GetString("tool.binary"); s != "" {
		cfg.Tool.Binary = s
	}
	if v.IsSet("tool.band") {
		cfg.Tool.Band = v.GetInt("tool.band")
	}
	if s := v.GetString("tool.format"); s != "" {
		cfg.Tool.Format = s
	}
	if s := v.GetString("tool.field"); s != "" {
		cfg.Tool.Field = s
	}
	if s := v.GetString("tool.mode"); s != "" {
		cfg.Tool.Mode = types.ExecMode(strings.ToLower(s))
	}
	if s := v.GetString("tool.image"); s != "" {
		cfg.Tool.Image = s
	}

	if err := validateBatchConfig(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// validateBatchConfig checks cfg and resolves its directories to absolute
// paths, which container mode needs for its bind mounts.
func validateBatchConfig(cfg *types.BatchConfig) error {
	var errs []error
	if cfg.InputDir == "" {
		errs = append(errs, errors.New("input directory is required"))
	}
	if cfg.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if cfg.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers))
	}
	if cfg.Tool.Band < 1 {
		errs = append(errs, fmt.Errorf("band must be at least 1, got %d", cfg.Tool.Band))
	}
	if !strings.HasPrefix(cfg.InputExt, ".") {
		errs = append(errs, fmt.Errorf("input extension %q must start with a dot", cfg.InputExt))
	}
	if !strings.HasPrefix(cfg.OutputExt, ".") {
		errs = append(errs, fmt.Errorf("output extension %q must start with a dot", cfg.OutputExt))
	}
	switch cfg.Tool.Mode {
	case types.ModeLocal, types.ModeContainer:
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q: want %s or %s", cfg.Tool.Mode, types.ModeLocal, types.ModeContainer))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	var err error
	if cfg.InputDir, err = filepath.Abs(cfg.InputDir); err != nil {
		return fmt.Errorf("resolving input directory: %w", err)
	}
	if cfg.OutputDir, err = filepath.Abs(cfg.OutputDir); err != nil {
		return fmt.Errorf("resolving output directory: %w", err)
	}
	return nil
}
