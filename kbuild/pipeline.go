// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kbuild

import (
	"context"

	"github.com/sirupsen/logrus"

	"vamos.sh/kconfig"
	"vamos.sh/log"
)

// Pass is the common interface of every stage pluggable into the pipeline.
// Concrete passes additionally implement one of InitPass, BeforePass,
// DuringPass, AfterPass or BeforeExitPass — the tagged variant described by
// the "class hierarchy of passes" design note, modelled here as Go
// interfaces rather than an inheritance tree.
type Pass interface {
	Name() string
}

// InitPass runs once, before any directory is processed, and seeds the
// initial worklist.
type InitPass interface {
	Pass
	Init(ctx *Context, worklist *Worklist) error
}

// BeforePass runs once per directory, before its makefile's lines are
// read, and initialises that directory's local scope.
type BeforePass interface {
	Pass
	Before(ctx *Context, local *Scope, dir string, inherited Precondition) error
}

// DuringPass inspects one logical line at a time. Priority determines
// run order among DuringPasses (lower runs first); the first pass whose
// During returns consumed=true stops further handling of that line, per
// §4.D.
type DuringPass interface {
	Pass
	Priority() int
	During(ctx *Context, local *Scope, dir string, line string) (consumed bool, err error)
}

// AfterPass runs once per directory after every line has been handled,
// typically to expand macros and queue subdirectories.
type AfterPass interface {
	Pass
	After(ctx *Context, local *Scope, dir string, inherited Precondition) error
}

// BeforeExitPass runs once, after every directory on the worklist has been
// drained, with access only to the global scope — used for the final
// output step.
type BeforeExitPass interface {
	Pass
	BeforeExit(ctx *Context) error
}

// workItem is one (directory, inherited precondition) pair on the
// worklist.
type workItem struct {
	dir       string
	inherited Precondition
}

// Worklist is the FIFO queue of directories awaiting processing.
// Directories are appended in discovery order and processed in insertion
// order (§5): a directory reached from two different parents is queued
// (and parsed) twice, once per inherited precondition, since each visit
// may contribute a distinct precondition to the files it reaches.
type Worklist struct {
	items []workItem
}

// Push appends dir with its inherited precondition to the end of the
// queue.
func (w *Worklist) Push(dir string, inherited Precondition) {
	w.items = append(w.items, workItem{dir: dir, inherited: inherited.Clone()})
}

func (w *Worklist) pop() (workItem, bool) {
	if len(w.items) == 0 {
		return workItem{}, false
	}
	item := w.items[0]
	w.items = w.items[1:]
	return item, true
}

// Context is the immutable (after construction) record threaded through
// every pass, replacing the source's globally-threaded model/arch
// parameters per the "Global model and arch threaded through every
// object" design note.
type Context struct {
	Go      context.Context
	Global  *Scope
	Model   *kconfig.Model
	Arch    string
	ArchDir string
	Flavour Flavour
}

// Log returns the context-carried logger for ctx.
func (c *Context) Log() *logrus.Logger {
	return log.G(c.Go)
}

// Pipeline orchestrates, for every directory on the worklist, the
// sequence: before-passes, during-line-iteration, after-passes; then,
// once the worklist is drained, before-exit passes.
type Pipeline struct {
	inits       []InitPass
	befores     []BeforePass
	durings     []DuringPass
	afters      []AfterPass
	beforeExits []BeforeExitPass

	MakefileName func(dir string) string
}

// NewPipeline builds a Pipeline from an unordered slice of passes,
// sorting DuringPasses by declared priority.
func NewPipeline(passes []Pass, makefileName func(dir string) string) *Pipeline {
	p := &Pipeline{MakefileName: makefileName}
	for _, pass := range passes {
		switch t := pass.(type) {
		case InitPass:
			p.inits = append(p.inits, t)
		case BeforePass:
			p.befores = append(p.befores, t)
		case DuringPass:
			p.durings = append(p.durings, t)
		case AfterPass:
			p.afters = append(p.afters, t)
		case BeforeExitPass:
			p.beforeExits = append(p.beforeExits, t)
		}
	}
	sortDuringPasses(p.durings)
	return p
}

func sortDuringPasses(passes []DuringPass) {
	for i := 1; i < len(passes); i++ {
		for j := i; j > 0 && passes[j-1].Priority() > passes[j].Priority(); j-- {
			passes[j-1], passes[j] = passes[j], passes[j-1]
		}
	}
}

// Run drains the worklist to completion: seeding it via the init passes,
// then looping until empty, then firing before-exit passes once.
func (p *Pipeline) Run(ctx *Context) error {
	worklist := &Worklist{}

	for _, ip := range p.inits {
		if err := ip.Init(ctx, worklist); err != nil {
			return err
		}
	}

	for {
		item, ok := worklist.pop()
		if !ok {
			break
		}
		if err := p.processDirectory(ctx, item.dir, item.inherited, worklist); err != nil {
			return err
		}
	}

	for _, bp := range p.beforeExits {
		if err := bp.BeforeExit(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) processDirectory(ctx *Context, dir string, inherited Precondition, worklist *Worklist) error {
	local := NewScope()
	local.Create("worklist", worklist)

	for _, bp := range p.befores {
		if err := bp.Before(ctx, local, dir, inherited); err != nil {
			return err
		}
	}

	path := p.MakefileName(dir)
	reader, err := openMakefile(path)
	if err != nil {
		ctx.Log().Warnf("kbuild: skipping %s: %v", path, err)
		return nil
	}
	defer reader.Close()

	lr := NewLineReader(reader)
	for {
		line, ok := lr.Next()
		if !ok {
			break
		}
		for _, dp := range p.durings {
			consumed, err := dp.During(ctx, local, dir, line)
			if err != nil {
				return err
			}
			if consumed {
				break
			}
		}
	}

	for _, ap := range p.afters {
		if err := ap.After(ctx, local, dir, inherited); err != nil {
			return err
		}
	}
	return nil
}
