// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kbuild

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBaseNameStripsMacroWrapperOrObjectSuffix(t *testing.T) {
	if got := baseName("$(DRIVER_OBJS)"); got != "DRIVER_OBJS" {
		t.Errorf("baseName(macro) = %q, want DRIVER_OBJS", got)
	}
	if got := baseName("foo.o"); got != "foo" {
		t.Errorf("baseName(foo.o) = %q, want foo", got)
	}
	if got := baseName("foo-y"); got != "foo-y" {
		t.Errorf("baseName(foo-y) = %q, want foo-y unchanged", got)
	}
	if got := baseName("$(foo-y)"); got != "foo-" {
		t.Errorf("baseName(macro with trailing y) = %q, want foo-", got)
	}
}

func TestDefiningLineRegexpMatchesPlainAssignment(t *testing.T) {
	re := definingLineRegexp("foo-y")
	m := re.FindStringSubmatch("foo-y := a.c b.c")
	if m == nil {
		t.Fatal("expected a match")
	}
	if m[1] != "" {
		t.Errorf("CONFIG capture = %q, want empty", m[1])
	}
	if m[3] != "a.c b.c" {
		t.Errorf("rhs capture = %q, want \"a.c b.c\"", m[3])
	}
}

func TestDefiningLineRegexpMatchesConfigSuffix(t *testing.T) {
	re := definingLineRegexp("DRIVER_OBJS")
	m := re.FindStringSubmatch("DRIVER_OBJS-$(CONFIG_FOO) += c.c")
	if m == nil {
		t.Fatal("expected a match")
	}
	if m[1] != "FOO" {
		t.Errorf("CONFIG capture = %q, want FOO", m[1])
	}
}

// TestMacroExpandAfterResolvesCompositeTarget exercises the full Linux
// pipeline over a directory whose obj-y list names an indirection ("extra-y")
// instead of a literal object, requiring the macro expander to re-scan the
// directory's own makefile for the defining line.
func TestMacroExpandAfterResolvesCompositeTarget(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "Makefile"), "obj-y += extra-y\nextra-y := a.c\n")
	mustWrite(t, filepath.Join(dir, "a.c"), "")

	flavour := Linux{Dirs: []string{dir}}
	pipeline := NewPipeline(flavour.Passes(), flavour.MakefileName)

	ctx := newTestContext(t)
	if err := pipeline.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	alts := globalFeatures(ctx.Global).Get(filepath.Join(dir, "a.c"))
	if alts.Len() != 1 || !alts.Items()[0].Equal(Precondition{}) {
		t.Errorf("a.c preconditions = %v, want a single unconditional entry", alts.Items())
	}
}

func TestMacroExpandAfterAppliesConfigSymbolFromDefiningLine(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "Makefile"), "obj-y += extra-y\nextra-y-$(CONFIG_FOO) := a.c\n")
	mustWrite(t, filepath.Join(dir, "a.c"), "")

	flavour := Linux{Dirs: []string{dir}}
	pipeline := NewPipeline(flavour.Passes(), flavour.MakefileName)

	ctx := newTestContext(t)
	if err := pipeline.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	alts := globalFeatures(ctx.Global).Get(filepath.Join(dir, "a.c"))
	if alts.Len() != 1 || !alts.Items()[0].Equal(Precondition{"CONFIG_FOO"}) {
		t.Errorf("a.c preconditions = %v, want [[CONFIG_FOO]]", alts.Items())
	}
}

func TestFileCacheIsPopulatedOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Makefile")
	mustWrite(t, path, "content")

	global := NewScope()
	data, err := readCached(global, path)
	if err != nil {
		t.Fatalf("readCached: %v", err)
	}
	if string(data) != "content" {
		t.Fatalf("data = %q, want content", data)
	}

	if err := os.WriteFile(path, []byte("changed"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cached, err := readCached(global, path)
	if err != nil {
		t.Fatalf("readCached second call: %v", err)
	}
	if string(cached) != "content" {
		t.Errorf("second readCached = %q, want the originally cached content", cached)
	}
}
