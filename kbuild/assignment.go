// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kbuild

import (
	"regexp"
	"strings"
)

// directoryTarget is one directory token resolved from an assignment
// line's right-hand side, together with any additional atom it
// contributes to the conjunction under which that directory is reached
// (used by Coreboot to attach synthetic CONFIG_VENDOR_*/CONFIG_BOARD_*
// atoms when a token expands a $(MAINBOARDDIR) reference into several
// concrete mainboard directories).
type directoryTarget struct {
	Dir   string
	Extra string
}

// objectAssignmentPass implements §4.E.3: "{prefix}-(y|$(CONFIG_X))
// (:=|+=|=) <tokens>". It is shared by every flavour; per-flavour
// behaviour is supplied through its fields rather than a subtype, since
// the only things that vary are the recognised prefixes, a token
// pre-processing hook (Linux's "$(srctree)/" stripping) and a directory
// expansion hook (Coreboot's mainboard-pair fan-out).
type objectAssignmentPass struct {
	re *regexp.Regexp

	// preprocessToken rewrites a raw token before resolution, e.g. to
	// strip a "$(srctree)/" prefix. May be nil.
	preprocessToken func(token string) string

	// expandDirectory turns a token that resolved to a directory into one
	// or more concrete directories with any extra conjunct each
	// contributes. The default (nil) yields a single directoryTarget with
	// no extra atom.
	expandDirectory func(ctx *Context, dir, token string) []directoryTarget
}

// newObjectAssignmentPass builds the prefix regex from prefixes, e.g.
// ["obj", "lib"] for Linux.
func newObjectAssignmentPass(prefixes []string) *objectAssignmentPass {
	pat := `^(?:` + strings.Join(prefixes, "|") + `)-(y|\$\(CONFIG_([A-Za-z0-9_]+)\))\s*(:=|\+=|=)\s*(.*)$`
	return &objectAssignmentPass{re: regexp.MustCompile(pat)}
}

func (*objectAssignmentPass) Name() string  { return "object-assignment" }
func (*objectAssignmentPass) Priority() int { return 30 }

func (p *objectAssignmentPass) During(ctx *Context, local *Scope, dir string, line string) (bool, error) {
	trimmed := strings.TrimSpace(line)
	m := p.re.FindStringSubmatch(trimmed)
	if m == nil {
		return false, nil
	}

	symbol := m[2] // "" when the guard was plain "y"
	rhs := substituteDefinitions(strings.TrimSpace(m[4]), definitionsOf(local))

	var extra string
	if symbol != "" {
		extra = resolveConfigCondition(symbol, ctx.Model)
	}

	stack := ifstackOf(local)
	conjunction := stack.Snapshot()
	if extra != "" {
		conjunction = conjunction.AppendTerm(extra)
	}

	for _, token := range splitTokens(rhs) {
		if p.preprocessToken != nil {
			token = p.preprocessToken(token)
		}
		if token == "" {
			continue
		}
		p.resolveOne(ctx, local, dir, token, conjunction)
	}
	return true, nil
}

func (p *objectAssignmentPass) resolveOne(ctx *Context, local *Scope, dir, token string, conjunction Precondition) {
	isDir, sourcePath, isComposite := resolveToken(dir, token)

	if isDir {
		targets := []directoryTarget{{Dir: strings.TrimSuffix(token, "/")}}
		if p.expandDirectory != nil {
			targets = p.expandDirectory(ctx, dir, token)
		}
		for _, t := range targets {
			pc := conjunction
			if t.Extra != "" {
				pc = pc.AppendTerm(t.Extra)
			}
			subdirsOf(local).Get(t.Dir).AddAlternative(pc)
		}
		return
	}

	if isComposite {
		compositeOf(local).Get(token).AddAlternative(conjunction)
		return
	}

	globalFeatures(ctx.Global).Get(sourcePath).AddAlternative(conjunction)
}

// subdirListPass implements §4.E.4: a flavour-specific token that
// unconditionally (modulo the enclosing if-stack) accumulates
// directories to descend into, distinct from a directory reached as a
// side effect of an object-list assignment.
type subdirListPass struct {
	re *regexp.Regexp
}

// newSubdirListPass builds a pass recognising "<token>-(y|$(CONFIG_X))
// (:=|+=|=) <dirs>" for each of the given token names, e.g.
// ["subdirs", "libs"].
func newSubdirListPass(tokens []string) *subdirListPass {
	pat := `^(?:` + strings.Join(tokens, "|") + `)-(y|\$\(CONFIG_([A-Za-z0-9_]+)\))\s*(:=|\+=|=)\s*(.*)$`
	return &subdirListPass{re: regexp.MustCompile(pat)}
}

func (*subdirListPass) Name() string  { return "subdir-list" }
func (*subdirListPass) Priority() int { return 40 }

func (p *subdirListPass) During(ctx *Context, local *Scope, dir string, line string) (bool, error) {
	trimmed := strings.TrimSpace(line)
	m := p.re.FindStringSubmatch(trimmed)
	if m == nil {
		return false, nil
	}

	symbol := m[2]
	rhs := substituteDefinitions(strings.TrimSpace(m[4]), definitionsOf(local))

	var extra string
	if symbol != "" {
		extra = resolveConfigCondition(symbol, ctx.Model)
	}

	stack := ifstackOf(local)
	conjunction := stack.Snapshot()
	if extra != "" {
		conjunction = conjunction.AppendTerm(extra)
	}

	for _, token := range splitTokens(rhs) {
		token = strings.TrimSuffix(token, "/")
		if token == "" {
			continue
		}
		subdirsOf(local).Get(token).AddAlternative(conjunction)
	}
	return true, nil
}

// subdirDescentAfter drains the local subdirectory accumulator built by
// objectAssignmentPass and subdirListPass and pushes each onto the
// worklist, combined with the precondition inherited from this
// directory's own ancestors — realising §3's "directory-condition
// collection accumulated from parent directories".
type subdirDescentAfter struct{}

func (subdirDescentAfter) Name() string { return "subdir-descent" }

func (subdirDescentAfter) After(ctx *Context, local *Scope, dir string, inherited Precondition) error {
	v, err := local.Get("worklist")
	if err != nil {
		return err
	}
	worklist := v.(*Worklist)

	subdirs := subdirsOf(local)
	for _, name := range subdirs.Keys() {
		alts := subdirs.Get(name)
		combined := BuildPrecondition(alts, inherited)
		worklist.Push(joinDir(dir, name), combined)
	}
	return nil
}
