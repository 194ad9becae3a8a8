// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kbuild

import (
	"path"
	"regexp"
	"strings"
)

// Local-scope variable names shared by the passes in this file.
const (
	varIfStack     = "ifstack"
	varDefinitions = "definitions"
	varComposite   = "composite"
	varSubdirs     = "subdirs"
	varNoConfig    = "no_config_nesting"
)

// Global-scope variable name for the per-file feature map that persists
// for the whole run (§3's "per-file feature map").
const varFeatures = "features"

// globalFeatures returns the run-wide feature map, creating it on first
// access.
func globalFeatures(global *Scope) *AltMap {
	return global.AltMap(varFeatures)
}

// commonBefore initialises the per-directory local scope shared by every
// flavour: a fresh if-stack, textual definitions table, composite map and
// subdirectory accumulator, per §3's "per-file data ... created when a
// directory is entered".
type commonBefore struct{}

func (commonBefore) Name() string { return "common-before" }

func (commonBefore) Before(ctx *Context, local *Scope, dir string, inherited Precondition) error {
	local.Create(varIfStack, &IfStack{})
	local.Create(varDefinitions, make(map[string]string))
	local.Create(varComposite, NewAltMap())
	local.Create(varSubdirs, NewAltMap())
	local.Create(varNoConfig, 0)
	return nil
}

func ifstackOf(local *Scope) *IfStack {
	v, _ := local.Get(varIfStack)
	return v.(*IfStack)
}

func definitionsOf(local *Scope) map[string]string {
	return local.StringMap(varDefinitions)
}

func compositeOf(local *Scope) *AltMap {
	return local.AltMap(varComposite)
}

func subdirsOf(local *Scope) *AltMap {
	return local.AltMap(varSubdirs)
}

// --- component 4.E.1: conditional blocks ---

var (
	ifdefRe  = regexp.MustCompile(`^ifdef\s+(\S+)$`)
	ifndefRe = regexp.MustCompile(`^ifndef\s+(\S+)$`)
	ifeqRe   = regexp.MustCompile(`^ifeq\s*\(\s*\$\(([^)]+)\)\s*,\s*([^)]*)\)\s*$`)
	ifneqRe  = regexp.MustCompile(`^ifneq\s*\(\s*\$\(([^)]+)\)\s*,\s*([^)]*)\)\s*$`)
	elseRe   = regexp.MustCompile(`^else$`)
	endifRe  = regexp.MustCompile(`^endif$`)
)

// conditionalPass implements §4.E.1: ifdef/ifndef/ifeq/ifneq/else/endif.
// Priority 10 runs before definitions and object assignment so the
// if-stack is up to date by the time those passes inspect it.
type conditionalPass struct{}

func (conditionalPass) Name() string  { return "conditional-block" }
func (conditionalPass) Priority() int { return 10 }

func (conditionalPass) During(ctx *Context, local *Scope, dir string, line string) (bool, error) {
	stack := ifstackOf(local)
	trimmed := strings.TrimSpace(line)

	switch {
	case ifdefRe.MatchString(trimmed):
		m := ifdefRe.FindStringSubmatch(trimmed)
		stack.PushPositive(configAtom(m[1]))
		return true, nil

	case ifndefRe.MatchString(trimmed):
		m := ifndefRe.FindStringSubmatch(trimmed)
		stack.PushNegative(configAtom(m[1]))
		return true, nil

	case ifeqRe.MatchString(trimmed):
		m := ifeqRe.FindStringSubmatch(trimmed)
		atom, ok := resolveTristateCondition(ctx, m[1], strings.TrimSpace(m[2]))
		if !ok {
			local.Create(varNoConfig, local.Int(varNoConfig)+1)
			stack.PushPositive("true")
			return true, nil
		}
		stack.PushPositive(atom)
		return true, nil

	case ifneqRe.MatchString(trimmed):
		m := ifneqRe.FindStringSubmatch(trimmed)
		atom, ok := resolveTristateCondition(ctx, m[1], strings.TrimSpace(m[2]))
		if !ok {
			local.Create(varNoConfig, local.Int(varNoConfig)+1)
			stack.PushPositive("true")
			return true, nil
		}
		stack.PushNegative(atom)
		return true, nil

	case elseRe.MatchString(trimmed):
		stack.InvertTop()
		return true, nil

	case endifRe.MatchString(trimmed):
		stack.Pop()
		if n := local.Int(varNoConfig); n > 0 {
			local.Create(varNoConfig, n-1)
		}
		return true, nil
	}

	return false, nil
}

// configAtom prefixes a bare Kconfig variable reference ("CONFIG_FOO" or
// "FOO") with "CONFIG_" exactly once.
func configAtom(name string) string {
	if strings.HasPrefix(name, "CONFIG_") {
		return name
	}
	return "CONFIG_" + name
}

// resolveTristateCondition implements the "$(CONFIG_X)" shorthand of
// §4.E.1: "y" resolves to the tristate-aware CONFIG_X form, "m" to the
// _MODULE companion, "n" (or the empty string) to the conjunction of
// both negations. ok is false when name does not name a CONFIG_ variable,
// signalling an unparseable condition (the no_config_nesting counter).
func resolveTristateCondition(ctx *Context, name, value string) (string, bool) {
	if !strings.HasPrefix(name, "CONFIG_") {
		return "", false
	}
	symbol := strings.TrimPrefix(name, "CONFIG_")

	switch value {
	case "y":
		return resolveConfigCondition(symbol, ctx.Model), true
	case "m":
		return "CONFIG_" + symbol + "_MODULE", true
	case "n", "":
		return "!CONFIG_" + symbol + " && !CONFIG_" + symbol + "_MODULE", true
	default:
		return "", false
	}
}

// --- component 4.E.2: variable definitions ---

var definitionRe = regexp.MustCompile(`^([A-Za-z0-9_-]+)\s*(:=|\+=|=)\s*(.*)$`)

// definitionPass implements §4.E.2: NAME := RHS / NAME = RHS / NAME += RHS,
// stored for later greedy fixed-point substitution within the same file.
// It runs after conditionalPass (priority 10) but before object
// assignment (priority 30) so $(NAME) references defined earlier in the
// file are available when an obj-y line references them; it never
// consumes an object-assignment line itself, since objectAssignmentPass
// matches a more specific prefix and runs at a lower (later) priority
// only after this pass has declined non-matching lines.
type definitionPass struct {
	// isReserved reports whether name is one of the flavour's recognised
	// object/subdir prefixes combined with "-y"/"-objs"/"-$(CONFIG_..."; such
	// names are left to objectAssignmentPass/subdirListPass instead.
	isReserved func(name string) bool
}

func (definitionPass) Name() string  { return "variable-definition" }
func (definitionPass) Priority() int { return 20 }

func (d definitionPass) During(ctx *Context, local *Scope, dir string, line string) (bool, error) {
	trimmed := strings.TrimSpace(line)
	m := definitionRe.FindStringSubmatch(trimmed)
	if m == nil {
		return false, nil
	}
	name, op, rhs := m[1], m[2], strings.TrimSpace(m[3])
	if d.isReserved != nil && d.isReserved(name) {
		return false, nil
	}

	defs := definitionsOf(local)
	rhs = substituteDefinitions(rhs, defs)
	if op == "+=" {
		if existing, ok := defs[name]; ok && existing != "" {
			defs[name] = existing + " " + rhs
		} else {
			defs[name] = rhs
		}
	} else {
		defs[name] = rhs
	}
	return true, nil
}

// substituteDefinitions replaces every "$(NAME)" occurrence in s with its
// current value in defs, to a fixed point (repeating until no further
// substitution changes the string), per §4.E.2's "greedy fixed-point"
// rule. A name with no known definition is left untouched.
func substituteDefinitions(s string, defs map[string]string) string {
	for i := 0; i < 64; i++ {
		changed := false
		for name, value := range defs {
			token := "$(" + name + ")"
			if strings.Contains(s, token) {
				s = strings.ReplaceAll(s, token, value)
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return s
}

// --- shared token resolution used by object-assignment and subdir-list passes ---

// resolveToken classifies one right-hand-side token of an assignment line
// per §4.E.3: a directory, a guessable source file, or (failing both) a
// composite target awaiting macro expansion.
func resolveToken(dir, token string) (isDir bool, sourcePath string, isComposite bool) {
	token = strings.TrimSuffix(token, "/")
	joined := joinDir(dir, token)

	if IsDirectory(joined) {
		return true, "", false
	}
	if src := GuessSourceForTarget(joined); src != "" {
		return false, src, false
	}
	return false, "", true
}

// joinDir joins a makefile-relative token onto the directory currently
// being parsed.
func joinDir(dir, token string) string {
	if dir == "" || dir == "." {
		return token
	}
	return path.Join(dir, token)
}
