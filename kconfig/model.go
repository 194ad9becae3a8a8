// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kconfig

import (
	"bufio"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// symbolType is the lightweight typecode index a Model needs to answer
// ConfigString, shared by both the .model and .cnf representations.
type symbolType int

const (
	typeUnknown  symbolType = 0
	typeBoolean  symbolType = 1
	typeTristate symbolType = 2
	typeInteger  symbolType = 3
	typeHex      symbolType = 4
	typeString   symbolType = 5
	typeOther    symbolType = 6
)

// Model is a loaded propositional model: per-symbol presence conditions
// plus enough type information to render the tristate-aware CONFIG_X
// form. It is the Go counterpart of vamos/model.py's RsfModel/CnfModel,
// collapsed into a single type since both representations answer the
// same two questions this codebase needs: "what implies symbol X" and
// "is X tristate".
type Model struct {
	path string

	deps     map[string]string // symbol -> raw presence condition ("" if none)
	alwaysOn map[string]struct{}
	alwaysOff map[string]struct{}
	types    map[string]symbolType // symbol (without CONFIG_) -> type, when known
}

// LoadModel reads a model file at path. A path ending in ".cnf" is parsed
// as the sibling .cnf symbol/meta_value table; any other path is parsed as
// a translated-model text dump (the format Translated.WriteTo emits). The
// choice is made from the suffix alone: the content is not inspected, and
// a raw Kconfig dump is not translated here.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "kconfig: opening model %s", path)
	}
	defer f.Close()

	m := &Model{
		path:      path,
		deps:      make(map[string]string),
		alwaysOn:  make(map[string]struct{}),
		alwaysOff: make(map[string]struct{}),
		types:     make(map[string]symbolType),
	}

	if strings.HasSuffix(path, ".cnf") {
		if err := m.parseCnf(f); err != nil {
			return nil, err
		}
		return m, nil
	}

	if err := m.parseTextDump(f); err != nil {
		return nil, err
	}
	return m, nil
}

// NewModelFromCatalogue builds a Model directly from a parsed Catalogue
// and its Translated presence model, without a round trip through the
// text dump format. LoadModel does not use it.
func NewModelFromCatalogue(cat *Catalogue, translated *Translated) *Model {
	m := &Model{
		deps:      make(map[string]string),
		alwaysOn:  make(map[string]struct{}),
		alwaysOff: make(map[string]struct{}),
		types:     make(map[string]symbolType),
	}
	for name, it := range cat.Items {
		m.types[name] = symbolType(it.Type.typeCode())
	}
	for _, symbol := range translated.symbols {
		deps := translated.deps[symbol]
		if sel := translated.selectedBy[symbol]; len(sel) > 0 {
			deps = append(append([]string(nil), deps...), "("+strings.Join(sel, " || ")+")")
		}
		m.deps[symbol] = strings.Join(deps, " && ")
	}
	for symbol := range translated.alwaysOn {
		m.alwaysOn[symbol] = struct{}{}
	}
	for symbol := range translated.alwaysOff {
		m.alwaysOff[symbol] = struct{}{}
	}
	return m
}

// parseTextDump reads the UNDERTAKER_SET / "symbol \"expr\"" dump format
// §6 defines, grounded on RsfModel.parse.
func (m *Model) parseTextDump(f *os.File) error {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "I:") {
			continue
		}
		if strings.HasPrefix(line, "UNDERTAKER_SET") {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			switch fields[1] {
			case "ALWAYS_ON":
				for _, tok := range fields[2:] {
					m.alwaysOn[strings.Trim(tok, `"`)] = struct{}{}
				}
			case "ALWAYS_OFF":
				for _, tok := range fields[2:] {
					m.alwaysOff[strings.Trim(tok, `"`)] = struct{}{}
				}
			}
			continue
		}

		parts := strings.SplitN(line, " ", 2)
		symbol := parts[0]
		if len(parts) == 1 {
			m.deps[symbol] = ""
			continue
		}
		m.deps[symbol] = strings.Trim(strings.TrimSpace(parts[1]), `"`)

		if strings.HasSuffix(symbol, "_MODULE") {
			base := strings.TrimSuffix(symbol, "_MODULE")
			m.types[strings.TrimPrefix(base, "CONFIG_")] = typeTristate
		}
	}
	return sc.Err()
}

// parseCnf reads the "c sym NAME CODE" / "c meta_value ..." header of a
// DIMACS .cnf file, stopping at the first "p cnf" clause line, grounded
// on CnfModel.parse.
func (m *Model) parseCnf(f *os.File) error {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "p cnf") {
			break
		}
		fields := strings.Fields(line)
		switch {
		case strings.HasPrefix(line, "c sym ") && len(fields) >= 4:
			name := fields[2]
			code := parseTypeCode(fields[3])
			m.types[name] = code
			if code == typeTristate {
				m.types[name+"_MODULE"] = code
			}
		case strings.HasPrefix(line, "c meta_value ") && len(fields) >= 3:
			switch fields[2] {
			case "ALWAYS_ON":
				for _, tok := range fields[3:] {
					m.alwaysOn[tok] = struct{}{}
				}
			case "ALWAYS_OFF":
				for _, tok := range fields[3:] {
					m.alwaysOff[tok] = struct{}{}
				}
			}
		}
	}
	return sc.Err()
}

func parseTypeCode(s string) symbolType {
	switch s {
	case "1":
		return typeBoolean
	case "2":
		return typeTristate
	case "3":
		return typeInteger
	case "4":
		return typeHex
	case "5":
		return typeString
	default:
		return typeOther
	}
}

// GetType returns the declared type of symbol ("CONFIG_" prefix
// optional), or "" if the symbol is unknown to this model.
func (m *Model) GetType(symbol string) string {
	symbol = strings.TrimPrefix(symbol, "CONFIG_")
	switch m.types[symbol] {
	case typeBoolean:
		return "boolean"
	case typeTristate:
		return "tristate"
	case typeInteger:
		return "integer"
	case typeHex:
		return "hex"
	case typeString:
		return "string"
	case typeOther:
		return "other"
	default:
		return ""
	}
}

// ConfigString renders symbol per get_config_string: a tristate symbol
// becomes "(CONFIG_X || CONFIG_X_MODULE)", anything else plain
// "CONFIG_X".
func (m *Model) ConfigString(symbol string) string {
	name := strings.TrimPrefix(symbol, "CONFIG_")
	if m.GetType(name) == "tristate" {
		return "(CONFIG_" + name + " || CONFIG_" + name + "_MODULE)"
	}
	return "CONFIG_" + name
}

// IsDefined reports whether symbol (with or without its CONFIG_ prefix)
// appears in the model.
func (m *Model) IsDefined(symbol string) bool {
	if !strings.HasPrefix(symbol, "CONFIG_") {
		symbol = "CONFIG_" + symbol
	}
	_, ok := m.deps[symbol]
	return ok
}

// Symbols returns every symbol the model defines, sorted
// lexicographically. A model loaded from a .cnf file defines no symbols
// here, since only the text dump carries per-symbol lines.
func (m *Model) Symbols() []string {
	names := make([]string, 0, len(m.deps))
	for name := range m.deps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AlwaysOn reports whether symbol is in the model's ALWAYS_ON set.
func (m *Model) AlwaysOn(symbol string) bool {
	_, ok := m.alwaysOn[symbol]
	return ok
}

// AlwaysOff reports whether symbol is in the model's ALWAYS_OFF set.
func (m *Model) AlwaysOff(symbol string) bool {
	_, ok := m.alwaysOff[symbol]
	return ok
}
