// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kbuild

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// FormatAlternatives renders alts as a presence formula: a disjunction of
// conjunctions. A conjunction of more than one atom is parenthesised only
// when alts itself has more than one disjunct, matching the original
// tool's output step (see coreboot's and the Linux/Busybox output passes).
// Empty conjuncts are dropped; a wholly-empty formula renders as "".
func FormatAlternatives(alts *Alternatives) string {
	if alts.Empty() {
		return ""
	}

	multi := alts.Len() > 1
	var disjuncts []string
	for _, conj := range alts.Items() {
		var atoms []string
		for _, atom := range conj {
			if atom == "" {
				continue
			}
			atoms = append(atoms, atom)
		}
		if len(atoms) == 0 {
			continue
		}
		current := strings.Join(atoms, " && ")
		if multi && len(atoms) > 1 {
			current = "(" + current + ")"
		}
		disjuncts = append(disjuncts, current)
	}
	return strings.Join(disjuncts, " || ")
}

// NormalizeFilename replaces path separators and other punctuation with
// underscores, per §6: "/" -> "_", "-" -> "_", "." -> "_".
func NormalizeFilename(path string) string {
	r := strings.NewReplacer("/", "_", "-", "_", ".", "_")
	return r.Replace(path)
}

// WriteFileFeatures prints, for every path in the feature map in sorted
// order, a line `FILE_<normalised-path>` or `FILE_<normalised-path>
// "<formula>"` per §6. This is the shared final step of every flavour's
// BeforeExit output pass.
func WriteFileFeatures(w io.Writer, features map[string]*Alternatives) error {
	paths := make([]string, 0, len(features))
	for p := range features {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		formula := FormatAlternatives(features[path])
		name := NormalizeFilename(path)
		var err error
		if formula == "" {
			_, err = fmt.Fprintf(w, "FILE_%s\n", name)
		} else {
			_, err = fmt.Fprintf(w, "FILE_%s \"%s\"\n", name, formula)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// outputPass is the shared BeforeExitPass every flavour ends its pipeline
// with: it drains the global feature map into the FILE_<name> "<formula>"
// format and writes it to standard output.
type outputPass struct{}

func (outputPass) Name() string { return "output" }

func (outputPass) BeforeExit(ctx *Context) error {
	features := make(map[string]*Alternatives)
	for _, k := range globalFeatures(ctx.Global).Keys() {
		features[k] = globalFeatures(ctx.Global).Get(k)
	}
	return WriteFileFeatures(os.Stdout, features)
}
