// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kbuild

import (
	"bytes"
	"os"
	"path"
	"regexp"
	"strings"
)

// Coreboot-specific global/local scope variable names.
const (
	varClasses      = "classes"
	varMainboards   = "mainboard_dirs"
	varDirCondition = "dir_conditions"
	varLocalDirs    = "local_dirs"
)

// Coreboot implements Flavour for Coreboot's Makefile.inc dialect: a
// per-directory "classes-y" list of build-stage names (discovered once
// from the top-level Makefile.inc) each act as an object-assignment
// prefix, mainboard directories fan out from "$(MAINBOARDDIR)" tokens,
// and "$(ARCHDIR-y)" is resolved to ctx.ArchDir ("x86" when unset).
type Coreboot struct {
	Dirs []string
}

func (Coreboot) Name() string { return "coreboot" }

func (Coreboot) MakefileName(dir string) string {
	return path.Join(dir, "Makefile.inc")
}

func (c Coreboot) Passes() []Pass {
	return []Pass{
		corebootInit{dirs: c.Dirs},
		corebootBefore{},
		conditionalPass{},
		definitionPass{isReserved: corebootReserved},
		corebootSubdirs{},
		corebootClassObjects{},
		corebootMacroExpandAfter{},
		corebootSubdirDescentAfter{},
		outputPass{},
	}
}

// corebootReserved reports whether a variable-definition candidate name
// is actually one of Coreboot's own "<class>-y" / "subdirs-y" / "classes-y"
// heads, which must be left to the dedicated passes below.
func corebootReserved(name string) bool {
	return name == "classes-y" || name == "subdirs-y" || strings.HasSuffix(name, "-y") || strings.HasSuffix(name, "-srcs")
}

func globalClasses(global *Scope) []string  { return global.StringSlice(varClasses) }
func globalMainboards(global *Scope) []string { return global.StringSlice(varMainboards) }
func globalDirConditions(global *Scope) *AltMap { return global.AltMap(varDirCondition) }

const varClassRegexCache = "class_regex_cache"

type classRegexEntry struct {
	class string
	re    *regexp.Regexp
}

type classRegexCache struct {
	key     string
	entries []classRegexEntry
}

// classObjectRegexes returns the compiled "<class>-(y|$(CONFIG_X)|srcs)"
// regexes for the current class list, compiling them once and reusing the
// result for as long as the class list itself does not change (it is only
// ever appended to, via "classes-y +="), rather than recompiling per line
// per class.
func classObjectRegexes(global *Scope) []classRegexEntry {
	classes := globalClasses(global)
	key := strings.Join(classes, ",")

	if v, err := global.Get(varClassRegexCache); err == nil {
		if cache, ok := v.(classRegexCache); ok && cache.key == key {
			return cache.entries
		}
	}

	entries := make([]classRegexEntry, len(classes))
	for i, cls := range classes {
		pat := `^` + regexp.QuoteMeta(cls) + `-(y|\$[\(\{]CONFIG_([A-Za-z0-9_]+)[\}\)]|srcs)\s*(:=|\+=|=)\s*(.*)$`
		entries[i] = classRegexEntry{class: cls, re: regexp.MustCompile(pat)}
	}
	global.Create(varClassRegexCache, classRegexCache{key: key, entries: entries})
	return entries
}

var (
	corebootClassesRe = regexp.MustCompile(`^classes-y\s*:=\s*(.*)$`)
	corebootClassesAddRe = regexp.MustCompile(`^classes-y\s*\+=\s*(.*)$`)
	corebootSubdirsRootRe = regexp.MustCompile(`^subdirs-y\s*[:+]?=\s*(.*)$`)
)

// corebootInit enumerates src/mainboard/<vendor>/<board> pairs, then scans
// the top-level Makefile.inc for its "classes-y" and "subdirs-y"
// definitions, fanning out "$(MAINBOARDDIR)" subdirectory references
// across every discovered mainboard and resolving "$(ARCHDIR-y)" to the
// ctx.ArchDir architecture tree ("x86" when unset), which is queued under
// a CONFIG_ARCH_<ARCHDIR> precondition.
type corebootInit struct {
	dirs []string
}

func (corebootInit) Name() string { return "coreboot-init" }

func (c corebootInit) Init(ctx *Context, worklist *Worklist) error {
	global := ctx.Global
	global.Create(varMainboards, discoverMainboards())
	global.AltMap(varDirCondition)
	global.AltMap(varFeatures)

	rootMakefile := Coreboot{}.MakefileName(".")
	f, err := openMakefile(rootMakefile)
	if err != nil {
		return err
	}
	defer f.Close()

	lr := NewLineReader(f)
	for {
		line, ok := lr.Next()
		if !ok {
			break
		}
		trimmed := strings.TrimSpace(line)

		if m := corebootClassesRe.FindStringSubmatch(trimmed); m != nil {
			global.Create(varClasses, splitTokens(m[1]))
			continue
		}

		m := corebootSubdirsRootRe.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}

		for _, token := range splitTokens(m[1]) {
			switch {
			case strings.Contains(token, "$(MAINBOARDDIR)"):
				for _, mb := range globalMainboards(global) {
					subdir := strings.ReplaceAll(token, "$(MAINBOARDDIR)", mb)
					if IsDirectory(subdir) {
						worklist.Push(subdir, nil)
					}
				}
			case strings.Contains(token, "$(ARCHDIR-y)"):
				archDir := ctx.ArchDir
				if archDir == "" {
					archDir = "x86"
				}
				item := strings.ReplaceAll(token, "$(ARCHDIR-y)", archDir)
				precond := Precondition{"CONFIG_ARCH_" + toUpperIdent(archDir)}
				globalDirConditions(global).Get(item).AddAlternative(precond)
				worklist.Push(item, precond)
			case IsDirectory(token):
				worklist.Push(token, nil)
			}
		}
	}

	for _, dir := range c.dirs {
		worklist.Push(dir, nil)
	}
	return nil
}

// discoverMainboards lists every "vendor/board" pair under src/mainboard.
func discoverMainboards() []string {
	var out []string
	vendors, err := os.ReadDir("src/mainboard")
	if err != nil {
		return out
	}
	for _, vendor := range vendors {
		if !vendor.IsDir() {
			continue
		}
		vendorDir := path.Join("src/mainboard", vendor.Name())
		boards, err := os.ReadDir(vendorDir)
		if err != nil {
			continue
		}
		for _, board := range boards {
			if !board.IsDir() {
				continue
			}
			out = append(out, path.Join(vendor.Name(), board.Name()))
		}
	}
	return out
}

// corebootBefore resets the per-directory list of subdirectories reached
// this visit, on top of the shared commonBefore initialisation.
type corebootBefore struct{}

func (corebootBefore) Name() string { return "coreboot-before" }

func (corebootBefore) Before(ctx *Context, local *Scope, dir string, inherited Precondition) error {
	if err := (commonBefore{}).Before(ctx, local, dir, inherited); err != nil {
		return err
	}
	local.Create(varLocalDirs, []string{})
	return nil
}

var corebootSubdirRe = regexp.MustCompile(`^subdirs-(y|\$[\{(]CONFIG_([A-Za-z0-9_]+)[\})])\s*(:=|\+=|=)\s*(.*)$`)

// corebootSubdirs implements the per-directory "subdirs-(y|$(CONFIG_X))"
// assignment: each named subdirectory's reaching condition is accumulated
// into the run-wide directory-condition map (not the current directory's
// local scope, since the same subdirectory can be reached from more than
// one parent across the whole tree), with mainboard vendor/board atoms
// appended when the current directory itself lives under
// src/mainboard/<vendor>/<board>.
type corebootSubdirs struct{}

func (corebootSubdirs) Name() string  { return "coreboot-subdirs" }
func (corebootSubdirs) Priority() int { return 30 }

func (corebootSubdirs) During(ctx *Context, local *Scope, dir string, line string) (bool, error) {
	trimmed := strings.TrimSpace(line)
	m := corebootSubdirRe.FindStringSubmatch(trimmed)
	if m == nil {
		return false, nil
	}

	rhs := substituteDefinitions(strings.TrimSpace(m[4]), definitionsOf(local))
	stack := ifstackOf(local)

	for _, token := range splitTokens(rhs) {
		fullpath := path.Join(dir, token)

		var tmp Precondition
		if m[1] != "y" {
			tmp = Precondition{"CONFIG_" + m[2]}
		}

		if !IsDirectory(fullpath) {
			continue
		}

		var extra Precondition
		if strings.HasPrefix(dir, "src/mainboard/") {
			extra = stack.Snapshot()
			if vendor, board, ok := mainboardOptions(dir); ok {
				extra = extra.AppendTerm(vendor).AppendTerm(board)
			}
		}

		cond := tmp.Extend(BuildPrecondition(globalDirConditions(ctx.Global).Get(dir), extra))

		globalDirConditions(ctx.Global).Get(fullpath).AddAlternative(cond)

		dirs := local.StringSlice(varLocalDirs)
		if !containsString(dirs, fullpath) {
			dirs = append(dirs, fullpath)
			local.Create(varLocalDirs, dirs)
		}
	}
	return true, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// mainboardOptions derives the CONFIG_VENDOR_*/CONFIG_BOARD_*_* atoms for
// a directory of the form "src/mainboard/<vendor>/<board>", per the
// synthetic conditions Coreboot's own tree does not express in its
// Makefiles but that improve equivalence with the formula this extractor
// ultimately feeds.
func mainboardOptions(dir string) (vendor, board string, ok bool) {
	rest := strings.TrimPrefix(dir, "src/mainboard/")
	if rest == dir {
		return "", "", false
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	v := toUpperIdent(parts[0])
	b := toUpperIdent(parts[1])
	return "CONFIG_VENDOR_" + v, "CONFIG_BOARD_" + v + "_" + b, true
}

func toUpperIdent(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
}

// corebootClassObjects implements the per-build-stage object assignment:
// for every class name discovered from the top-level "classes-y" list,
// a line "<class>-(y|$(CONFIG_X)|srcs) (:=|+=|=) <tokens>" assigns
// sources (or further composite macros) to that class.
type corebootClassObjects struct{}

func (corebootClassObjects) Name() string  { return "coreboot-class-objects" }
func (corebootClassObjects) Priority() int { return 35 }

func (corebootClassObjects) During(ctx *Context, local *Scope, dir string, line string) (bool, error) {
	trimmed := strings.TrimSpace(line)

	if m := corebootClassesAddRe.FindStringSubmatch(trimmed); m != nil {
		classes := globalClasses(ctx.Global)
		classes = append(classes, splitTokens(m[1])...)
		ctx.Global.Create(varClasses, classes)
		return true, nil
	}

	for _, entry := range classObjectRegexes(ctx.Global) {
		m := entry.re.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}

		rhs := substituteDefinitions(strings.TrimSpace(m[4]), definitionsOf(local))
		stack := ifstackOf(local)

		for _, token := range splitTokens(rhs) {
			fullpath := path.Join(dir, token)

			var additional Precondition
			if m[1] != "y" && m[1] != "srcs" {
				additional = additional.AppendTerm("CONFIG_" + m[2])
			}

			// SONDERFALL: src/arch/x86's "srcs" tokens reference
			// $(MAINBOARDDIR) directly, fanning a single line out across
			// every discovered mainboard.
			if dir == "src/arch/x86" && m[1] == "srcs" && strings.Contains(token, "$(MAINBOARDDIR)") {
				for _, mb := range globalMainboards(ctx.Global) {
					candidate := strings.ReplaceAll(fullpath, "$(MAINBOARDDIR)", mb)
					src := GuessSourceForTarget(candidate)
					if src == "" {
						continue
					}
					cond := stack.Snapshot()
					if vendor, board, ok := mainboardOptions(path.Dir(candidate)); ok {
						cond = cond.AppendTerm(vendor).AppendTerm(board)
					}
					cond = BuildPrecondition(globalDirConditions(ctx.Global).Get(dir), cond)
					fresh := NewAlternatives()
					fresh.AddAlternative(cond)
					globalFeatures(ctx.Global).Set(src, fresh)
				}
			}

			cond := additional.Extend(stack.Snapshot())
			if strings.HasPrefix(dir, "src/mainboard/") {
				if vendor, board, ok := mainboardOptions(dir); ok {
					cond = cond.AppendTerm(vendor).AppendTerm(board)
				}
			}
			full := BuildPrecondition(globalDirConditions(ctx.Global).Get(dir), cond)

			if src := GuessSourceForTarget(fullpath); src != "" {
				fresh := NewAlternatives()
				fresh.AddAlternative(full)
				globalFeatures(ctx.Global).Set(src, fresh)
			} else {
				compositeOf(local).Get(fullpath).AddAlternative(full)
			}
		}
		return true, nil
	}
	return false, nil
}

// corebootMacroExpandAfter expands every pending composite-map entry by
// re-scanning the current directory's own Makefile.inc for its defining
// line, recursing through further macro references until each resolves
// to a concrete source file.
type corebootMacroExpandAfter struct{}

func (corebootMacroExpandAfter) Name() string { return "coreboot-macro-expand" }

func (corebootMacroExpandAfter) After(ctx *Context, local *Scope, dir string, inherited Precondition) error {
	composite := compositeOf(local)
	if len(composite.Keys()) == 0 {
		return nil
	}

	makefilePath := ctx.Flavour.MakefileName(dir)
	data, err := readCached(ctx.Global, makefilePath)
	if err != nil {
		ctx.Log().Warnf("kbuild: coreboot macro expansion: %s: %v", makefilePath, err)
		return nil
	}

	for _, target := range composite.Keys() {
		pending := composite.Get(target)
		downward := BuildPrecondition(pending, nil)
		visited := make(map[string]bool)
		expandCorebootMacro(ctx, local, target, makefilePath, data, downward, visited)
	}
	return nil
}

func expandCorebootMacro(ctx *Context, local *Scope, name, makefilePath string, data []byte, condition Precondition, visited map[string]bool) {
	if visited[name] {
		return
	}
	visited[name] = true

	basepath := pathDir(name)
	filename := pathBase(name)

	m := regexp.MustCompile(`\$\(([A-Za-z0-9,_-]+)\)`).FindStringSubmatch(filename)
	if m == nil {
		return
	}
	basename := m[1]
	re := regexp.MustCompile(`^\s*` + regexp.QuoteMeta(basename) + `\s*(:=|\+=|=)\s*(.*)$`)

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

		mm := re.FindStringSubmatch(trimmed)
		if mm == nil {
			continue
		}

		rhs := substituteDefinitions(strings.TrimSpace(mm[2]), definitionsOf(local))
		ifdefCond := stack.Snapshot()

		for _, item := range splitTokens(rhs) {
			fullpath := path2(basepath, item)

			if src := GuessSourceForTarget(fullpath); src != "" {
				full := condition.Extend(ifdefCond)
				globalFeatures(ctx.Global).Get(src).AddAlternative(full)
			} else {
				expandCorebootMacro(ctx, local, fullpath, makefilePath, data, condition, visited)
			}
		}
	}

	delete(visited, name)
}

func pathDir(p string) string {
	d := path.Dir(p)
	if d == "." {
		return ""
	}
	return d
}

func pathBase(p string) string { return path.Base(p) }

func path2(dir, item string) string {
	if dir == "" {
		return item
	}
	return dir + "/" + item
}

// corebootSubdirDescentAfter pushes every subdirectory reached from the
// current directory this visit onto the worklist, combining its run-wide
// accumulated condition with the current directory's own inherited
// precondition.
type corebootSubdirDescentAfter struct{}

func (corebootSubdirDescentAfter) Name() string { return "coreboot-subdir-descent" }

func (corebootSubdirDescentAfter) After(ctx *Context, local *Scope, dir string, inherited Precondition) error {
	v, err := local.Get("worklist")
	if err != nil {
		return err
	}
	worklist := v.(*Worklist)

	for _, d := range local.StringSlice(varLocalDirs) {
		combined := BuildPrecondition(globalDirConditions(ctx.Global).Get(d), inherited)
		worklist.Push(d, combined)
	}
	return nil
}
