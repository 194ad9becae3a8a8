// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kbuild

import (
	"path/filepath"
	"strings"
)

// linuxPrefixes are the object-list prefixes Linux's Kbuild recognises,
// per §4.E.3.
var linuxPrefixes = []string{"obj", "lib"}

// linuxSubdirTokens is Linux's flavour-specific subdirectory-descent
// token, per §4.E.4.
var linuxSubdirTokens = []string{"subdirs", "obj-y-subdirs"}

// Linux implements Flavour for the Linux kernel's Kbuild dialect: a
// Kbuild file takes precedence over Makefile in any given directory, and
// "$(srctree)/" prefixes on tokens are stripped before resolution, per
// §4.G. Dirs carries the CLI's repeatable --directory flag; when empty,
// processing starts from ".".
type Linux struct {
	Dirs []string
}

func (Linux) Name() string { return "linux" }

func (Linux) MakefileName(dir string) string {
	kbuild := filepath.Join(dir, "Kbuild")
	if fileExists(kbuild) {
		return kbuild
	}
	return filepath.Join(dir, "Makefile")
}

func (l Linux) Passes() []Pass {
	reserved := reservedNameChecker(linuxPrefixes, linuxSubdirTokens)
	return []Pass{
		rootInit{Dirs: l.Dirs},
		commonBefore{},
		conditionalPass{},
		definitionPass{isReserved: reserved},
		stripSrctreePass(newObjectAssignmentPass(linuxPrefixes)),
		newSubdirListPass(linuxSubdirTokens),
		macroExpandAfter{},
		subdirDescentAfter{},
		outputPass{},
	}
}

// stripSrctreePass installs Linux's "$(srctree)/" token pre-processing
// hook onto an already-constructed objectAssignmentPass.
func stripSrctreePass(p *objectAssignmentPass) *objectAssignmentPass {
	p.preprocessToken = func(token string) string {
		return strings.TrimPrefix(token, "$(srctree)/")
	}
	return p
}

// reservedNameChecker returns a predicate reporting whether name is one
// of objPrefixes/subdirTokens combined with "-y", used by definitionPass
// to avoid swallowing an object-assignment or subdir-list line under the
// generic "NAME := RHS" rule.
func reservedNameChecker(objPrefixes, subdirTokens []string) func(string) bool {
	reserved := make(map[string]struct{})
	for _, p := range objPrefixes {
		reserved[p+"-y"] = struct{}{}
	}
	for _, t := range subdirTokens {
		reserved[t+"-y"] = struct{}{}
	}
	return func(name string) bool {
		if _, ok := reserved[name]; ok {
			return true
		}
		for prefix := range reserved {
			base := strings.TrimSuffix(prefix, "-y")
			if strings.HasPrefix(name, base+"-") {
				return true
			}
		}
		return false
	}
}
