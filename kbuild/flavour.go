// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kbuild

import (
	"fmt"
	"regexp"

	"vamos.sh/kconfig"
)

// Flavour is the per-tree rule set plugged into the generic pipeline: how
// to name a directory's makefile, and the ordered list of passes that
// implement its object-assignment, subdirectory-descent, macro-expansion
// and output conventions.
type Flavour interface {
	// Name identifies the flavour on the CLI ("linux", "busybox", "coreboot").
	Name() string

	// MakefileName returns the path of the makefile fragment governing dir.
	MakefileName(dir string) string

	// Passes returns this flavour's complete pass list, ready to be handed
	// to NewPipeline.
	Passes() []Pass
}

// MalformedLineError indicates a makefile line matched a recognised head
// but its tail was inconsistent with the expected grammar. Per §7 it is
// logged at debug and the line is skipped; it is never fatal.
type MalformedLineError struct {
	Dir  string
	Line string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("kbuild: malformed line in %s: %q", e.Dir, e.Line)
}

// CommandFailedError indicates a sub-process exited non-zero while the
// caller requested strict mode. Per §7 it propagates and is fatal.
type CommandFailedError struct {
	Command    string
	ExitCode   int
	Output     string
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("kbuild: command %q failed (exit %d): %s", e.Command, e.ExitCode, e.Output)
}

// tokenSplit matches runs of tab or space, used to split the right-hand
// side of an assignment into individual tokens.
var tokenSplit = regexp.MustCompile(`[\t ]+`)

func splitTokens(s string) []string {
	var out []string
	for _, tok := range tokenSplit.Split(s, -1) {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// resolveConfigCondition renders the tristate-aware form of $(CONFIG_X) per
// §4.E item 1 / SPEC_FULL §12: "(CONFIG_X || CONFIG_X_MODULE)" for a
// tristate symbol evaluated to y, or plain "CONFIG_X" otherwise.
func resolveConfigCondition(symbol string, model *kconfig.Model) string {
	if model != nil {
		return model.ConfigString(symbol)
	}
	return "CONFIG_" + symbol
}
