// SPDX-License-Identifier: MIT
// Copyright (c) 2019 GitHub Inc.
// Copyright (c) 2022 Unikraft GmbH.
package cmdfactory

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestRpadPadsToWidth(t *testing.T) {
	got := rpad("foo", 10)
	if len(got) != 11 { // padding width plus the trailing space baked into the format
		t.Errorf("rpad length = %d, want 11, got %q", len(got), got)
	}
}

func TestDedentRemovesCommonLeadingWhitespace(t *testing.T) {
	in := "  foo\n    bar\n  baz"
	want := "foo\n  bar\nbaz"
	if got := dedent(in); got != want {
		t.Errorf("dedent = %q, want %q", got, want)
	}
}

func TestDedentNoIndentIsUnchanged(t *testing.T) {
	in := "foo\nbar"
	if got := dedent(in); got != in {
		t.Errorf("dedent = %q, want unchanged %q", got, in)
	}
}

func TestIsRootCmd(t *testing.T) {
	root := &cobra.Command{Use: "root"}
	child := &cobra.Command{Use: "child"}
	root.AddCommand(child)

	if !isRootCmd(root) {
		t.Error("a parentless command should be the root")
	}
	if isRootCmd(child) {
		t.Error("a command with a parent should not be the root")
	}
	if isRootCmd(nil) {
		t.Error("nil should not be the root")
	}
}

func TestTraverseVisitsNestedSubcommands(t *testing.T) {
	root := &cobra.Command{Use: "root"}
	a := &cobra.Command{Use: "a", Run: func(*cobra.Command, []string) {}}
	b := &cobra.Command{Use: "b", Run: func(*cobra.Command, []string) {}}
	root.AddCommand(a)
	a.AddCommand(b)

	cmds := traverse(root)
	if len(cmds) != 2 {
		t.Fatalf("traverse returned %d commands, want 2", len(cmds))
	}
}

func TestFullname(t *testing.T) {
	root := &cobra.Command{Use: "root"}
	child := &cobra.Command{Use: "child", Run: func(*cobra.Command, []string) {}}
	root.AddCommand(child)

	if got := fullname(root, child); got != "child" {
		t.Errorf("fullname = %q, want child", got)
	}
}
