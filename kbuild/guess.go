// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kbuild

import (
	"fmt"
	"os"
	"strings"
)

// IOError indicates a file or worklist entry could not be read. Per §7 it
// is logged as a warning and the file is skipped, unless it is the
// top-level makefile, in which case the caller treats it as fatal.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("kbuild: %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IsDirectory reports whether path names an existing directory.
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// guessSuffixes are tried, in order, when a composite token's filename
// extension must be inferred.
var guessSuffixes = []string{".c", ".S", ".h"}

// GuessSourceForTarget attempts to resolve target (typically a `foo.o`
// object-file reference) to an existing source file. For a target ending
// in .o it tries, in order, each of .c/.S/.h in place of the .o; the path
// with the .o simply removed is not tried. A target without a .o suffix is
// returned as is if it names an existing file. Returns "" if no candidate
// exists on disk.
func GuessSourceForTarget(target string) string {
	base := strings.TrimSuffix(target, ".o")
	if base == target {
		// Not an object-file reference at all; only accept it directly if
		// it already names an existing regular file.
		if fileExists(target) {
			return target
		}
		return ""
	}

	for _, suffix := range guessSuffixes {
		candidate := base + suffix
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// openMakefile opens path for reading, wrapping any error as IOError.
func openMakefile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return f, nil
}
