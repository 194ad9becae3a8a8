// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package kconfig reads a flattened Kconfig dump (a line-oriented symbol
// catalogue, as produced by undertaker-kconfigdump) and translates it into
// a propositional model: per-symbol implications honouring tristate
// semantics, choice groups, and always-on/always-off sets.
package kconfig

import (
	"bufio"
	"bytes"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// Type is the declared Kconfig data type of an item.
type Type string

const (
	TypeBoolean  Type = "boolean"
	TypeTristate Type = "tristate"
	TypeInteger  Type = "integer"
	TypeHex      Type = "hex"
	TypeString   Type = "string"
	TypeOther    Type = "other"
)

// typeCode returns the on-disk .cnf typecode for t, per §6.
func (t Type) typeCode() int {
	switch t {
	case TypeBoolean:
		return 1
	case TypeTristate:
		return 2
	case TypeInteger:
		return 3
	case TypeHex:
		return 4
	case TypeString:
		return 5
	default:
		return 6
	}
}

// Prompt is one `Prompt NAME "text" "condition"` entry.
type Prompt struct {
	Text      string
	Condition string
}

// Select is one `ItemSelects NAME "target" "condition"` entry.
type Select struct {
	Target    string
	Condition string
}

// Default is one `Default NAME "value" "condition"` entry.
type Default struct {
	Value     string
	Condition string
}

// Item is a single Kconfig symbol as described by the dump.
type Item struct {
	Name       string
	Type       Type
	Prompts    []Prompt
	Depends    string
	Selects    []Select
	Defaults   []Default
	Definition string
	Choice     string // name of the enclosing choice group, if any

	cat *Catalogue
}

// Symbol returns the item's fully-qualified configuration symbol.
func (it *Item) Symbol() string { return "CONFIG_" + it.Name }

// SymbolModule returns the synthetic companion symbol of a tristate item.
func (it *Item) SymbolModule() string { return "CONFIG_" + it.Name + "_MODULE" }

// Tristate reports whether the item is of tristate type.
func (it *Item) Tristate() bool { return it.Type == TypeTristate }

// HasDepends reports whether the item declares a non-empty depends
// expression.
func (it *Item) HasDepends() bool { return it.Depends != "" }

// Omnipresent reports whether the item has no prompt and no dependency —
// meaning it is never directly selectable and is unconditionally present
// wherever reached, per §4.J's "always-on" propagation.
func (it *Item) Omnipresent() bool {
	return len(it.Prompts) == 0 && it.Depends == ""
}

// Dependency rewrites the item's raw depends expression through the
// boolean rewriter under the given eval_to_module flag, returning "" if
// there is no dependency to rewrite.
func (it *Item) Dependency(evalToModule bool) (string, error) {
	if it.Depends == "" {
		return "", nil
	}
	return it.cat.Rewrite(it.Depends, evalToModule)
}

// ChoiceGroup is a `Choice CHOICE TYPE REQUIRED` group.
type ChoiceGroup struct {
	Name     string
	Type     Type
	Required bool
	Members  []string
}

// Catalogue is the in-memory symbol catalogue produced by Parse.
type Catalogue struct {
	Items   map[string]*Item
	Choices map[string]*ChoiceGroup

	// order preserves first-mention order for deterministic iteration
	// (§8 property 6: idempotent re-runs).
	order []string

	HasIgnoredSymbol          bool
	HasCompareWithNonexistent bool
}

// NewCatalogue returns an empty Catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{
		Items:   make(map[string]*Item),
		Choices: make(map[string]*ChoiceGroup),
	}
}

// item returns, creating on first access, the Item named name.
func (c *Catalogue) item(name string) *Item {
	it, ok := c.Items[name]
	if !ok {
		it = &Item{Name: name, cat: c}
		c.Items[name] = it
		c.order = append(c.order, name)
	}
	return it
}

// Options returns every item in catalogue order (first mention in the
// dump), the Go counterpart of rsf.options().values() iterated in
// insertion order.
func (c *Catalogue) Options() []*Item {
	out := make([]*Item, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.Items[name])
	}
	return out
}

// SortedNames returns every item name sorted lexicographically.
func (c *Catalogue) SortedNames() []string {
	names := make([]string, 0, len(c.Items))
	for name := range c.Items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse reads a line-oriented Kconfig dump and builds a Catalogue, per
// §4.H. Unrecognised verbs are ignored. A line whose verb, or whose name
// after a recognised verb, cannot be scanned as an identifier is returned
// as an error; missing quoted fields after the name are read as empty
// strings and do not fail the parse.
func Parse(r io.Reader) (*Catalogue, error) {
	cat := NewCatalogue()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		if len(bytes.TrimSpace([]byte(raw))) == 0 {
			continue
		}
		if err := cat.parseLine(raw); err != nil {
			return nil, errors.Wrapf(err, "kconfig: dump line %d", lineNo)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "kconfig: reading dump")
	}
	return cat, nil
}

func (c *Catalogue) parseLine(raw string) error {
	s := newScanner([]byte(raw), "<dump>")
	s.nextLine()

	verb := s.Ident()
	if s.err != nil {
		return s.err
	}

	switch verb {
	case "Item":
		name := s.Ident()
		typ := Type(s.Rest())
		it := c.item(name)
		it.Type = typ

	case "HasPrompts":
		// Count is implied by the number of Prompt lines actually present;
		// this verb is accepted but not separately tracked.
		s.Ident()
		s.Rest()

	case "Prompt":
		name := s.Ident()
		text, _ := s.TryQuotedString()
		cond, _ := s.TryQuotedString()
		it := c.item(name)
		it.Prompts = append(it.Prompts, Prompt{Text: text, Condition: cond})

	case "Depends":
		name := s.Ident()
		expr, _ := s.TryQuotedString()
		it := c.item(name)
		it.Depends = expr

	case "ItemSelects":
		name := s.Ident()
		target, _ := s.TryQuotedString()
		cond, _ := s.TryQuotedString()
		it := c.item(name)
		it.Selects = append(it.Selects, Select{Target: target, Condition: cond})

	case "Default":
		name := s.Ident()
		value, _ := s.TryQuotedString()
		cond, _ := s.TryQuotedString()
		it := c.item(name)
		it.Defaults = append(it.Defaults, Default{Value: value, Condition: cond})

	case "Choice":
		name := s.Ident()
		fields := s.Rest()
		parts := splitWhitespace(fields)
		group := &ChoiceGroup{Name: name}
		if len(parts) > 0 {
			group.Type = Type(parts[0])
		}
		if len(parts) > 1 {
			group.Required = parts[1] == "y" || parts[1] == "true"
		}
		c.Choices[name] = group

	case "ChoiceItem":
		member := s.Ident()
		choice := s.Rest()
		group, ok := c.Choices[choice]
		if !ok {
			group = &ChoiceGroup{Name: choice}
			c.Choices[choice] = group
		}
		group.Members = append(group.Members, member)
		c.item(member).Choice = choice

	case "Definition":
		name := s.Ident()
		loc, _ := s.TryQuotedString()
		c.item(name).Definition = loc

	default:
		// Unrecognised verb: silently ignored, per §4.E's "a line never
		// recognised is silently ignored" policy applied symmetrically here.
	}

	return s.err
}

func splitWhitespace(s string) []string {
	var out []string
	var cur []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			continue
		}
		cur = append(cur, c)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}
