// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package main

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"vamos.sh/cmdfactory"
	"vamos.sh/kbuild"
	"vamos.sh/kconfig"
	"vamos.sh/log"
)

// extractOptions is the flag/argument surface of kbuild-extract, per §6:
// `kbuild-extract [--directory D]* [--flavour linux|busybox|coreboot] <model> <arch>`.
type extractOptions struct {
	Directory []string `long:"directory" short:"d" usage:"Root directory to start parsing from; may be repeated" split:"false"`
	Flavour   string   `long:"flavour" short:"f" usage:"Kbuild dialect: linux, busybox or coreboot" default:"linux"`
	ArchDir   string   `long:"archdir" usage:"Architecture directory substituted for $(ARCHDIR-y) (coreboot only)" default:"x86"`
	LogType   string   `long:"log-type" usage:"Log formatter: quiet, basic, fancy or json" default:"fancy"`
	LogLevel  string   `long:"log-level" usage:"Log level: panic, fatal, error, warning, info, debug or trace" default:"info"`
}

func main() {
	opts := &extractOptions{}

	cmd, err := cmdfactory.New(opts, cobra.Command{
		Use:   "kbuild-extract [FLAGS] <model> <arch>",
		Short: "Extract per-file configuration-presence formulas from a Kbuild source tree",
		Args:  cobra.ExactArgs(2),
		Long: heredoc.Doc(`
			kbuild-extract walks a Kbuild/Makefile source tree, replaying its
			conditional blocks, object-list assignments and macro expansions, and
			prints the configuration precondition under which every source file
			is compiled.

			<model> is a translated model (as kconfig-translate writes) or a raw
			RSF dump; <arch> is recorded for diagnostics and is not otherwise
			interpreted.
		`),
		Example: heredoc.Doc(`
			# Extract over a Linux kernel tree
			$ kbuild-extract models/x86.model x86 > x86.presence

			# Extract a Busybox tree starting from two root directories
			$ kbuild-extract --flavour busybox -d archival -d libbb models/x86.model x86

			# Extract a Coreboot tree
			$ kbuild-extract --flavour coreboot models/x86.model x86
		`),
	})
	if err != nil {
		panic(err)
	}
	cmd.RunE = opts.Run

	cmdfactory.Main(context.Background(), cmd)
}

func (opts *extractOptions) Run(cmd *cobra.Command, args []string) error {
	log.Setup(log.L, opts.LogType, opts.LogLevel)

	model, err := kconfig.LoadModel(args[0])
	if err != nil {
		return fmt.Errorf("loading model %s: %w", args[0], err)
	}
	arch := args[1]

	var flavour kbuild.Flavour
	switch opts.Flavour {
	case "", "linux":
		flavour = kbuild.Linux{Dirs: opts.Directory}
	case "busybox":
		flavour = kbuild.Busybox{Dirs: opts.Directory}
	case "coreboot":
		flavour = kbuild.Coreboot{Dirs: opts.Directory}
	default:
		return fmt.Errorf("unknown flavour %q: want linux, busybox or coreboot", opts.Flavour)
	}

	ctx := &kbuild.Context{
		Go:      log.WithLogger(cmd.Context(), log.L),
		Global:  kbuild.NewScope(),
		Model:   model,
		Arch:    arch,
		ArchDir: opts.ArchDir,
		Flavour: flavour,
	}

	pipeline := kbuild.NewPipeline(flavour.Passes(), flavour.MakefileName)
	if err := pipeline.Run(ctx); err != nil {
		return fmt.Errorf("extracting %s: %w", arch, err)
	}
	return nil
}
