// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kbuild

import (
	"strings"

	"vamos.sh/make"
)

// busyboxPrefixes are Busybox's object-list prefixes, per §4.E.3.
var busyboxPrefixes = []string{"core", "lib"}

var busyboxSubdirTokens = []string{"libs"}

// archivalLibarchive is the one directory Busybox's real tree special-cases,
// per §4.G: its "ifneq ($(lib-y),)" / "$(COMMON_FILES)" idiom depends on
// build-time state this extractor cannot observe, so the surrounding
// ifneq/endif is erased and COMMON_FILES is expanded against the
// disjunction of every core-/lib-$(CONFIG_X) condition seen in the directory.
const archivalLibarchive = "archival/libarchive"

const varAllConfigs = "all_configs"

// Busybox implements Flavour for Busybox's Kbuild dialect: it runs `make
// gen_build_files` once before parsing (to materialise generated
// Makefile fragments), reuses Linux's Kbuild/Makefile naming and
// conditional-block handling, and special-cases archival/libarchive's
// COMMON_FILES idiom. Dirs carries the CLI's repeatable --directory
// flag; when empty, the root directories fall back to the top-level
// makefile's "libs-y" assignment.
type Busybox struct {
	Dirs []string
}

func (Busybox) Name() string { return "busybox" }

func (Busybox) MakefileName(dir string) string {
	return Linux{}.MakefileName(dir)
}

func (b Busybox) Passes() []Pass {
	reserved := reservedNameChecker(busyboxPrefixes, busyboxSubdirTokens)

	return []Pass{
		busyboxInit{Dirs: b.Dirs},
		busyboxBefore{},
		busyboxIgnoreLibarchiveWrapper{},
		conditionalPass{},
		definitionPass{isReserved: reserved},
		busyboxObjectAssignment{inner: newObjectAssignmentPass(busyboxPrefixes)},
		newSubdirListPass(busyboxSubdirTokens),
		busyboxMacroExpandAfter{},
		subdirDescentAfter{},
		outputPass{},
	}
}

// busyboxInit runs `make gen_build_files` before anything else, then
// seeds the worklist exactly like rootInit — falling back, when no
// --directory flags were given, to parsing the top-level Makefile's
// "libs-y" assignment for the default set of root directories.
type busyboxInit struct {
	Dirs []string
}

func (busyboxInit) Name() string { return "busybox-init" }

func (b busyboxInit) Init(ctx *Context, worklist *Worklist) error {
	m, err := make.NewFromInterface(struct{}{}, make.WithTarget("gen_build_files"), make.WithLocaleC())
	if err != nil {
		return err
	}
	if err := m.Execute(); err != nil {
		ctx.Log().Warnf("kbuild: make gen_build_files: %v", err)
	}

	if len(b.Dirs) > 0 {
		for _, dir := range b.Dirs {
			worklist.Push(dir, nil)
		}
		return nil
	}

	dirs, err := defaultBusyboxDirs(Busybox{}.MakefileName("."))
	if err != nil || len(dirs) == 0 {
		worklist.Push(".", nil)
		return nil
	}
	for _, dir := range dirs {
		worklist.Push(dir, nil)
	}
	return nil
}

// defaultBusyboxDirs scans the top-level makefile for a "libs-y\t..."
// assignment line (ignoring the internal "$(libs-y1)" list-construction
// idiom) and returns the directories it names.
func defaultBusyboxDirs(path string) ([]string, error) {
	f, err := openMakefile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lr := NewLineReader(f)
	for {
		line, ok := lr.Next()
		if !ok {
			break
		}
		if strings.HasPrefix(line, "libs-y\t") && !strings.Contains(line, "$(libs-y1)") {
			fields := splitTokens(line)
			if len(fields) > 2 {
				return fields[2:], nil
			}
			return nil, nil
		}
	}
	return nil, nil
}

type busyboxBefore struct{}

func (busyboxBefore) Name() string { return "busybox-before" }

func (busyboxBefore) Before(ctx *Context, local *Scope, dir string, inherited Precondition) error {
	if dir == archivalLibarchive {
		local.Create(varAllConfigs, []string{})
	}
	return nil
}

// busyboxIgnoreLibarchiveWrapper erases the "ifneq ($(lib-y),)" / "endif"
// wrapper that archival/libarchive wraps its COMMON_FILES expansion in,
// per §4.G — its true value depends on build-time state this extractor
// never observes, so both lines are swallowed unconditionally instead of
// being handed to conditionalPass.
type busyboxIgnoreLibarchiveWrapper struct{}

func (busyboxIgnoreLibarchiveWrapper) Name() string  { return "busybox-ignore-libarchive-wrapper" }
func (busyboxIgnoreLibarchiveWrapper) Priority() int { return 5 }

func (busyboxIgnoreLibarchiveWrapper) During(ctx *Context, local *Scope, dir string, line string) (bool, error) {
	if dir != archivalLibarchive {
		return false, nil
	}
	trimmed := strings.TrimSpace(line)
	if trimmed == "ifneq ($(lib-y),)" || trimmed == "endif" {
		return true, nil
	}
	return false, nil
}

// busyboxObjectAssignment wraps the generic objectAssignmentPass to also
// record, in archival/libarchive, every condition seen on a
// "core-$(CONFIG_X)"/"lib-$(CONFIG_X)" line into the all_configs
// accumulator COMMON_FILES later expands against.
type busyboxObjectAssignment struct {
	inner *objectAssignmentPass
}

func (busyboxObjectAssignment) Name() string  { return "object-assignment" }
func (busyboxObjectAssignment) Priority() int { return 30 }

func (p busyboxObjectAssignment) During(ctx *Context, local *Scope, dir string, line string) (bool, error) {
	trimmed := strings.TrimSpace(line)
	m := p.inner.re.FindStringSubmatch(trimmed)
	if m != nil && dir == archivalLibarchive && m[2] != "" {
		condition := resolveConfigCondition(m[2], ctx.Model)
		v, err := local.Get(varAllConfigs)
		if err == nil {
			all := v.([]string)
			all = append(all, condition)
			local.Create(varAllConfigs, all)
		}
	}
	return p.inner.During(ctx, local, dir, line)
}

// busyboxMacroExpandAfter is macroExpandAfter configured with Busybox's
// COMMON_FILES special case.
type busyboxMacroExpandAfter struct{}

func (busyboxMacroExpandAfter) Name() string { return "macro-expand" }

func (busyboxMacroExpandAfter) After(ctx *Context, local *Scope, dir string, inherited Precondition) error {
	base := macroExpandAfter{}
	return base.afterWithExtra(ctx, local, dir, inherited, func(dir, baseName string) string {
		if dir != archivalLibarchive || baseName != "COMMON_FILES" {
			return ""
		}
		v, err := local.Get(varAllConfigs)
		if err != nil {
			return ""
		}
		all := v.([]string)
		if len(all) == 0 {
			return ""
		}
		return strings.Join(all, " || ")
	})
}
