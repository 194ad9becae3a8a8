// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"vamos.sh/cmdfactory"
	"vamos.sh/kconfig"
	"vamos.sh/log"
)

// translateOptions is the flag/argument surface of kconfig-translate, per
// §6: `kconfig-translate <rsf-dump>`.
type translateOptions struct {
	CNF      bool   `long:"cnf" usage:"Print the .cnf sibling header (c sym / c meta_value lines) instead of the model"`
	LogType  string `long:"log-type" usage:"Log formatter: quiet, basic, fancy or json" default:"fancy"`
	LogLevel string `long:"log-level" usage:"Log level: panic, fatal, error, warning, info, debug or trace" default:"info"`
}

func main() {
	opts := &translateOptions{}

	cmd, err := cmdfactory.New(opts, cobra.Command{
		Use:   "kconfig-translate [FLAGS] <rsf-dump>",
		Short: "Translate a flattened Kconfig dump into a propositional model",
		Args:  cobra.ExactArgs(1),
		Long: heredoc.Doc(`
			kconfig-translate reads a line-oriented Kconfig dump (items, prompts,
			depends, selects, defaults, choices) and writes, per symbol, the
			propositional implication it stands for, honouring tristate
			semantics, choice groups, and always-on/always-off sets.
		`),
		Example: heredoc.Doc(`
			# Translate an RSF dump to a .model file
			$ kconfig-translate linux.rsf > models/x86.model

			# Emit only the .cnf sibling's header lines
			$ kconfig-translate --cnf linux.rsf > models/x86.cnf
		`),
	})
	if err != nil {
		panic(err)
	}
	cmd.RunE = opts.Run

	cmdfactory.Main(context.Background(), cmd)
}

func (opts *translateOptions) Run(cmd *cobra.Command, args []string) error {
	log.Setup(log.L, opts.LogType, opts.LogLevel)

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[0], err)
	}
	defer f.Close()

	cat, err := kconfig.Parse(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	translated := kconfig.Translate(cat)

	if opts.CNF {
		return kconfig.WriteCnfHeader(os.Stdout, cat, translated)
	}
	return translated.WriteTo(os.Stdout)
}
