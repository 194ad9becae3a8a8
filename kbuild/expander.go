// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kbuild

import (
	"bytes"
	"os"
	"regexp"
	"strings"
)

const varFileCache = "filecache"

// fileCache returns the run-wide cache of whole-file contents keyed by
// path, creating it on first access. Populated the first time a file is
// read by the macro expander and reused thereafter, per §4.F.
func fileCache(global *Scope) map[string][]byte {
	v, err := global.Get(varFileCache)
	if err != nil {
		m := make(map[string][]byte)
		global.Create(varFileCache, m)
		return m
	}
	return v.(map[string][]byte)
}

func readCached(global *Scope, path string) ([]byte, error) {
	cache := fileCache(global)
	if data, ok := cache[path]; ok {
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cache[path] = data
	return data, nil
}

// macroExpandAfter implements component F: it resolves every pending
// composite-map entry left behind by the object-assignment and
// subdir-list passes, by re-scanning the directory's own makefile for a
// matching defining line.
type macroExpandAfter struct{}

func (macroExpandAfter) Name() string { return "macro-expand" }

func (m macroExpandAfter) After(ctx *Context, local *Scope, dir string, inherited Precondition) error {
	return m.afterWithExtra(ctx, local, dir, inherited, nil)
}

// afterWithExtra is After, parameterized by a hook that lets a flavour
// contribute an additional conjunct to a specific composite target's
// expansion condition — Busybox's COMMON_FILES idiom, whose true
// condition is not fully recoverable from a single defining line and is
// instead seeded from every core-/lib-$(CONFIG_X) condition accumulated
// earlier in the same directory (per §4.G). extra may be nil.
func (m macroExpandAfter) afterWithExtra(ctx *Context, local *Scope, dir string, inherited Precondition, extra func(dir, base string) string) error {
	composite := compositeOf(local)
	if len(composite.Keys()) == 0 {
		return nil
	}

	path := ctx.Flavour.MakefileName(dir)
	data, err := readCached(ctx.Global, path)
	if err != nil {
		// The makefile was already opened successfully once this same visit
		// (processDirectory would have bailed out otherwise); a transient
		// failure here is treated as §7's IOError policy: log and skip.
		ctx.Log().Warnf("kbuild: macro expansion: %s: %v", path, err)
		return nil
	}

	visited := make(map[string]bool)
	for _, target := range composite.Keys() {
		pending := composite.Get(target)
		m.expandTarget(ctx, local, dir, data, target, pending, visited, extra)
	}
	return nil
}

// expandTarget resolves one composite target by deriving its base name,
// scanning data for a matching defining line (replaying the if-stack
// nesting to capture each candidate line's own condition), and routing
// every right-hand-side token to the feature map, the subdirectory
// accumulator, or — on cycle-guarded recursion — back into itself.
func (m macroExpandAfter) expandTarget(ctx *Context, local *Scope, dir string, data []byte, target string, pending *Alternatives, visited map[string]bool, extra func(dir, base string) string) {
	if visited[target] {
		return
	}
	visited[target] = true

	base := baseName(target)
	re := definingLineRegexp(base)

	var seeded string
	if extra != nil {
		seeded = extra(dir, base)
	}

	lr := NewLineReader(bytes.NewReader(data))
	stack := &IfStack{}
	for {
		line, ok := lr.Next()
		if !ok {
			break
		}
		trimmed := strings.TrimSpace(line)

		switch {
		case ifdefRe.MatchString(trimmed):
			mm := ifdefRe.FindStringSubmatch(trimmed)
			stack.PushPositive(configAtom(mm[1]))
			continue
		case ifndefRe.MatchString(trimmed):
			mm := ifndefRe.FindStringSubmatch(trimmed)
			stack.PushNegative(configAtom(mm[1]))
			continue
		case ifeqRe.MatchString(trimmed):
			mm := ifeqRe.FindStringSubmatch(trimmed)
			if atom, ok := resolveTristateCondition(ctx, mm[1], strings.TrimSpace(mm[2])); ok {
				stack.PushPositive(atom)
			} else {
				stack.PushPositive("true")
			}
			continue
		case ifneqRe.MatchString(trimmed):
			mm := ifneqRe.FindStringSubmatch(trimmed)
			if atom, ok := resolveTristateCondition(ctx, mm[1], strings.TrimSpace(mm[2])); ok {
				stack.PushNegative(atom)
			} else {
				stack.PushPositive("true")
			}
			continue
		case elseRe.MatchString(trimmed):
			stack.InvertTop()
			continue
		case endifRe.MatchString(trimmed):
			stack.Pop()
			continue
		}

		match := re.FindStringSubmatch(trimmed)
		if match == nil {
			continue
		}

		definedCond := stack.Snapshot()
		if match[1] != "" {
			definedCond = definedCond.AppendTerm(resolveConfigCondition(match[1], ctx.Model))
		}
		if seeded != "" {
			definedCond = definedCond.AppendTerm(seeded)
		}

		rhs := substituteDefinitions(strings.TrimSpace(match[3]), definitionsOf(local))
		for _, token := range splitTokens(rhs) {
			for _, p := range pending.Items() {
				combined := p.Extend(definedCond)
				m.routeToken(ctx, local, dir, token, combined, visited, extra)
			}
		}
	}
}

func (m macroExpandAfter) routeToken(ctx *Context, local *Scope, dir, token string, combined Precondition, visited map[string]bool, extra func(dir, base string) string) {
	isDir, sourcePath, isComposite := resolveToken(dir, token)
	switch {
	case isDir:
		subdirsOf(local).Get(strings.TrimSuffix(token, "/")).AddAlternative(combined)
	case isComposite:
		single := NewAlternatives()
		single.AddAlternative(combined)
		m.expandTarget(ctx, local, dir, mustReread(ctx, dir), token, single, visited, extra)
	default:
		globalFeatures(ctx.Global).Get(sourcePath).AddAlternative(combined)
	}
}

func mustReread(ctx *Context, dir string) []byte {
	path := ctx.Flavour.MakefileName(dir)
	data, _ := readCached(ctx.Global, path)
	return data
}

// baseName derives the defining-line base name from a composite target,
// per §4.F: strip the "$(...)" macro wrapper and one trailing "y",
// otherwise strip a trailing ".o".
func baseName(target string) string {
	if strings.HasPrefix(target, "$(") && strings.HasSuffix(target, ")") {
		return strings.TrimSuffix(target[2:len(target)-1], "y")
	}
	return strings.TrimSuffix(target, ".o")
}

// definingLineRegexp builds the "^\s*BASE(-y|-objs|-$(CONFIG_X))?\s*(:=|+=|=)\s*(.*)$"
// pattern of §4.F for the given base name.
func definingLineRegexp(base string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(base)
	pat := `^\s*` + quoted + `(?:-y|-objs|-\$\(CONFIG_([A-Za-z0-9_]+)\))?\s*(:=|\+=|=)\s*(.*)$`
	return regexp.MustCompile(pat)
}
