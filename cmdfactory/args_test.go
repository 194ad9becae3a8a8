// SPDX-License-Identifier: MIT
// Copyright (c) 2019, 2019 GitHub Inc.
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the MIT License (the "License").
// You may not use this file expect in compliance with the License.
package cmdfactory

import (
	"os"
	"testing"

	"github.com/spf13/cobra"
)

func TestMinimumArgsNoMessageUsesCobraDefault(t *testing.T) {
	fn := MinimumArgs(1, "")
	cmd := &cobra.Command{Use: "x"}
	if err := fn(cmd, nil); err == nil {
		t.Error("expected an error when zero args are given and one is required")
	}
	if err := fn(cmd, []string{"a"}); err != nil {
		t.Errorf("unexpected error with a satisfying arg count: %v", err)
	}
}

func TestMinimumArgsCustomMessage(t *testing.T) {
	fn := MinimumArgs(2, "need at least two")
	cmd := &cobra.Command{Use: "x"}
	err := fn(cmd, []string{"a"})
	if err == nil || err.Error() != "need at least two" {
		t.Errorf("err = %v, want %q", err, "need at least two")
	}
	if err := fn(cmd, []string{"a", "b"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExactArgs(t *testing.T) {
	fn := ExactArgs(1, "exactly one required")
	cmd := &cobra.Command{Use: "x"}

	if err := fn(cmd, []string{"a", "b"}); err == nil || err.Error() != "too many arguments" {
		t.Errorf("err = %v, want too many arguments", err)
	}
	if err := fn(cmd, nil); err == nil || err.Error() != "exactly one required" {
		t.Errorf("err = %v, want exactly one required", err)
	}
	if err := fn(cmd, []string{"a"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNoArgsQuoteReminder(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().String("name", "", "")

	if err := NoArgsQuoteReminder(cmd, nil); err != nil {
		t.Errorf("unexpected error with zero args: %v", err)
	}

	err := NoArgsQuoteReminder(cmd, []string{"extra"})
	if err == nil {
		t.Fatal("expected an error for a stray positional argument")
	}
	if got := err.Error(); got != `unknown argument "extra"` {
		t.Errorf("err = %q, want %q", got, `unknown argument "extra"`)
	}
}

func TestNoArgsQuoteReminderMultipleArgs(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	err := NoArgsQuoteReminder(cmd, []string{"a", "b"})
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestMaxDirArgsDefaultsToCwd(t *testing.T) {
	fn := MaxDirArgs(1)
	cmd := &cobra.Command{Use: "x"}
	if err := fn(cmd, nil); err != nil {
		t.Errorf("MaxDirArgs with zero args should default to cwd without error: %v", err)
	}
}

func TestMaxDirArgsRejectsNonDirectory(t *testing.T) {
	fn := MaxDirArgs(1)
	cmd := &cobra.Command{Use: "x"}
	file, err := os.CreateTemp("", "notadir")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer os.Remove(file.Name())
	file.Close()

	if err := fn(cmd, []string{file.Name()}); err == nil {
		t.Error("expected an error when the path is not a directory")
	}
}

func TestMaxDirArgsTooMany(t *testing.T) {
	fn := MaxDirArgs(1)
	cmd := &cobra.Command{Use: "x"}
	if err := fn(cmd, []string{"a", "b"}); err == nil {
		t.Error("expected an error when more paths are given than allowed")
	}
}
