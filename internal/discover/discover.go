// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover finds input rasters under a directory tree.
package discover

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

var (
	// ErrPathNotFound is returned when the search root does not exist.
	ErrPathNotFound = errors.New("path not found")

	// ErrNotDirectory is returned when the search root is not a directory.
	ErrNotDirectory = errors.New("not a directory")
)

// Files walks root and returns every regular file, or symlink to one, whose
// extension equals ext. The match is case-sensitive, so ".tif" does not
// match "A.TIF".
//
// The whole tree is listed once; callers reuse the slice for both the count
// and the dispatch so a tree that changes mid-run cannot skew the two.
// An empty result is not an error.
func Files(fsys afero.Fs, root, ext string) ([]string, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, root)
		}
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	var files []string
	err = afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		mode := info.Mode()
		if mode&os.ModeSymlink != 0 {
			// Walk reports links unresolved; follow them to regular files.
			// Dangling links are skipped.
			target, err := fsys.Stat(path)
			if err != nil {
				return nil
			}
			mode = target.Mode()
		}
		if !mode.IsRegular() {
			return nil
		}
		if filepath.Ext(path) == ext {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
