// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	if err := w.Close(); err != nil {
		t.Fatalf("close pipe writer: %v", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read pipe: %v", err)
	}
	return string(out)
}

func TestExtractOptionsRunWalksLinuxTree(t *testing.T) {
	dir := t.TempDir()

	mustWrite(t, filepath.Join(dir, "Makefile"), `
obj-y += main.o
obj-$(CONFIG_NET) += net.o
`)
	mustWrite(t, filepath.Join(dir, "main.c"), "")

	modelPath := filepath.Join(dir, "x86.model")
	mustWrite(t, modelPath, "CONFIG_NET \"\"\n")

	opts := &extractOptions{
		Directory: []string{dir},
		Flavour:   "linux",
		LogType:   "quiet",
		LogLevel:  "error",
	}

	cmd := &cobra.Command{Use: "kbuild-extract"}
	cmd.SetContext(context.Background())

	out := captureStdout(t, func() {
		if err := opts.Run(cmd, []string{modelPath, "x86"}); err != nil {
			t.Fatalf("Run: %v", err)
		}
	})

	if !strings.Contains(out, "FILE_") {
		t.Errorf("expected output to contain FILE_ entries, got %q", out)
	}
	if !strings.Contains(out, "main_c") {
		t.Errorf("expected output to mention main.c's normalised name, got %q", out)
	}
}

func TestExtractOptionsRunRejectsUnknownFlavour(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "x86.model")
	mustWrite(t, modelPath, "")

	opts := &extractOptions{Flavour: "plan9", LogType: "quiet", LogLevel: "error"}
	cmd := &cobra.Command{Use: "kbuild-extract"}
	cmd.SetContext(context.Background())

	if err := opts.Run(cmd, []string{modelPath, "x86"}); err == nil {
		t.Error("expected an error for an unrecognised flavour")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}
