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

func TestObjectAssignmentPassRoutesSourceFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "foo.c"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ctx := newTestContext(t)
	local := NewScope()
	commonBefore{}.Before(ctx, local, dir, nil)

	pass := newObjectAssignmentPass([]string{"obj", "lib"})
	consumed, err := pass.During(ctx, local, dir, "obj-y += foo.o")
	if err != nil || !consumed {
		t.Fatalf("consumed=%v err=%v", consumed, err)
	}

	key := filepath.Join(dir, "foo.c")
	feats := globalFeatures(ctx.Global)
	if !feats.Has(key) {
		t.Fatalf("expected a feature entry for %q, have keys %v", key, feats.Keys())
	}
}

func TestObjectAssignmentPassConditionalToken(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bar.c"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ctx := newTestContext(t)
	local := NewScope()
	commonBefore{}.Before(ctx, local, dir, nil)

	pass := newObjectAssignmentPass([]string{"obj"})
	_, err := pass.During(ctx, local, dir, "obj-$(CONFIG_BAR) += bar.o")
	if err != nil {
		t.Fatalf("During: %v", err)
	}

	key := filepath.Join(dir, "bar.c")
	alts := globalFeatures(ctx.Global).Get(key)
	items := alts.Items()
	if len(items) != 1 || !items[0].Equal(Precondition{"CONFIG_BAR"}) {
		t.Errorf("conjunction = %v, want [CONFIG_BAR]", items)
	}
}

func TestObjectAssignmentPassDirectoryGoesToSubdirs(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "child"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	ctx := newTestContext(t)
	local := NewScope()
	commonBefore{}.Before(ctx, local, dir, nil)

	pass := newObjectAssignmentPass([]string{"obj"})
	if _, err := pass.During(ctx, local, dir, "obj-y += child/"); err != nil {
		t.Fatalf("During: %v", err)
	}

	if !subdirsOf(local).Has("child") {
		t.Errorf("expected subdirs to contain %q, have %v", "child", subdirsOf(local).Keys())
	}
}

func TestObjectAssignmentPassCompositeTarget(t *testing.T) {
	dir := t.TempDir()
	ctx := newTestContext(t)
	local := NewScope()
	commonBefore{}.Before(ctx, local, dir, nil)

	pass := newObjectAssignmentPass([]string{"obj"})
	if _, err := pass.During(ctx, local, dir, "obj-y += mystery-y"); err != nil {
		t.Fatalf("During: %v", err)
	}

	if !compositeOf(local).Has("mystery-y") {
		t.Errorf("expected composite map to contain %q, have %v", "mystery-y", compositeOf(local).Keys())
	}
}

func TestSubdirListPassAccumulates(t *testing.T) {
	ctx := newTestContext(t)
	local := NewScope()
	commonBefore{}.Before(ctx, local, ".", nil)

	pass := newSubdirListPass([]string{"subdirs", "libs"})
	if _, err := pass.During(ctx, local, ".", "subdirs-y += drivers/ fs/"); err != nil {
		t.Fatalf("During: %v", err)
	}

	keys := subdirsOf(local).Keys()
	if len(keys) != 2 || keys[0] != "drivers" || keys[1] != "fs" {
		t.Errorf("subdirs keys = %v, want [drivers fs]", keys)
	}
}

func TestSubdirDescentAfterPushesCombinedPrecondition(t *testing.T) {
	ctx := newTestContext(t)
	local := NewScope()
	worklist := &Worklist{}
	local.Create("worklist", worklist)
	commonBefore{}.Before(ctx, local, "root", nil)

	subdirsOf(local).Get("child").AddAlternative(Precondition{"CONFIG_A"})

	if err := (subdirDescentAfter{}).After(ctx, local, "root", Precondition{"CONFIG_ROOT"}); err != nil {
		t.Fatalf("After: %v", err)
	}

	item, ok := worklist.pop()
	if !ok {
		t.Fatal("expected one item pushed onto the worklist")
	}
	want := filepath.Join("root", "child")
	if item.dir != want {
		t.Errorf("dir = %q, want %q", item.dir, want)
	}
	if !item.inherited.Equal(Precondition{"CONFIG_A", "CONFIG_ROOT"}) {
		t.Errorf("inherited = %v, want [CONFIG_A CONFIG_ROOT]", item.inherited)
	}
}
