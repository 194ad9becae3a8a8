// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kconfig

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// SchemaVersion is written as the dump's UNDERTAKER_SET SCHEMA_VERSION
// line, per §6.
const SchemaVersion = "1.1"

// Translated is the propositional model produced from a Catalogue: a set
// of symbols, each with an ordered conjunction of dependency terms, plus
// the always-on / always-off sets that short-circuit trivial symbols.
type Translated struct {
	symbols    []string
	seen       map[string]struct{}
	deps       map[string][]string
	selectedBy map[string][]string
	alwaysOn   map[string]struct{}
	alwaysOff  map[string]struct{}

	freeItemCount int
}

// Translate walks every item of cat and builds its propositional model,
// per §4.J, directly grounded on TranslatedModel.py's three-pass
// algorithm: options first (establishing deps), then choices (forward
// references), then defaults and selects (both independently tolerant of
// BoolParserException — a failing sub-expression is skipped, not fatal).
func Translate(cat *Catalogue) *Translated {
	t := &Translated{
		seen:       make(map[string]struct{}),
		deps:       make(map[string][]string),
		selectedBy: make(map[string][]string),
		alwaysOn:   make(map[string]struct{}),
		alwaysOff:  make(map[string]struct{}),
	}

	for _, it := range cat.Options() {
		t.translateOption(it)
	}

	for _, name := range sortedChoiceNames(cat) {
		t.translateChoice(cat.Choices[name])
	}

	for _, it := range cat.Options() {
		for _, d := range it.Defaults {
			t.translateDefault(cat, it, d)
		}
	}

	for _, it := range cat.Options() {
		for _, sel := range it.Selects {
			t.translateSelect(cat, it, sel)
		}
	}

	if cat.HasIgnoredSymbol {
		t.addSymbol(IgnoredSymbol)
	}
	if cat.HasCompareWithNonexistent {
		t.addSymbol("CONFIG_COMPARE_WITH_NONEXISTENT")
		t.alwaysOff["CONFIG_COMPARE_WITH_NONEXISTENT"] = struct{}{}
	}

	return t
}

func sortedChoiceNames(cat *Catalogue) []string {
	names := make([]string, 0, len(cat.Choices))
	for name := range cat.Choices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *Translated) addSymbol(symbol string) {
	if _, ok := t.seen[symbol]; ok {
		return
	}
	t.seen[symbol] = struct{}{}
	t.symbols = append(t.symbols, symbol)
}

func (t *Translated) newFreeItem() string {
	t.freeItemCount++
	name := fmt.Sprintf("FREE_ITEM_%d", t.freeItemCount)
	t.addSymbol(name)
	return name
}

// translateOption implements TranslatedModel.translate_option: register
// the symbol (and, for tristate items, its _MODULE companion plus the
// mutual-exclusion constraint pair), mark omnipresent items always-on,
// and prepend the rewritten dependency.
func (t *Translated) translateOption(it *Item) {
	symbol := it.Symbol()
	t.addSymbol(symbol)
	t.deps[symbol] = nil

	if it.Omnipresent() {
		t.alwaysOn[symbol] = struct{}{}
	}

	if it.Tristate() {
		symbolModule := it.SymbolModule()
		t.addSymbol(symbolModule)
		t.deps[symbolModule] = nil

		t.deps[symbol] = append(t.deps[symbol], "!"+symbolModule)
		t.deps[symbolModule] = append(t.deps[symbolModule], "!"+symbol, "CONFIG_MODULES")

		if dep, err := it.Dependency(false); err == nil && dep != "" {
			t.deps[symbol] = prepend(t.deps[symbol], dep)
		}
		if dep, err := it.Dependency(true); err == nil && dep != "" {
			t.deps[symbolModule] = prepend(t.deps[symbolModule], dep)
		}
		return
	}

	if dep, err := it.Dependency(true); err == nil && dep != "" {
		t.deps[symbol] = prepend(t.deps[symbol], dep)
	}
}

func prepend(list []string, v string) []string {
	return append([]string{v}, list...)
}

// translateChoice implements TranslatedModel.translate_choice: every
// member of a required choice group gains a forward reference to the
// disjunction of its siblings, the same "pick exactly one" constraint
// the Kconfig choice construct encodes.
func (t *Translated) translateChoice(group *ChoiceGroup) {
	if group == nil || !group.Required || len(group.Members) < 2 {
		return
	}
	for _, member := range group.Members {
		symbol := "CONFIG_" + member
		var siblings []string
		for _, other := range group.Members {
			if other == member {
				continue
			}
			siblings = append(siblings, "CONFIG_"+other)
		}
		if len(siblings) == 0 {
			continue
		}
		forward := "(" + strings.Join(siblings, " || ") + ")"
		t.deps[symbol] = append(t.deps[symbol], forward)
	}
}

// translateDefault implements TranslatedModel.translate_default.
// Defaults only affect non-tristate items outside any choice group and
// with no prompt of their own (choices, tristates and directly-promptable
// items follow different presence rules and are left untouched here).
func (t *Translated) translateDefault(cat *Catalogue, it *Item, d Default) {
	if it.Choice != "" || it.Tristate() || len(it.Prompts) != 0 {
		return
	}
	state, cond := d.Value, d.Condition
	if state == "" {
		return
	}

	switch {
	case state == "y" && cond == "y" && !it.HasDepends():
		t.alwaysOn[it.Symbol()] = struct{}{}
		t.selectedBy[it.Symbol()] = append(t.selectedBy[it.Symbol()], t.newFreeItem())

	case state == "y" || cond == "y":
		expr := cond
		if state == "y" {
			expr = cond
		} else {
			expr = state
		}
		if expr == "n" {
			return
		}
		if expr == "y" {
			t.addSymbol("CONFIG_y")
		}
		rewritten, err := cat.Rewrite(expr, true)
		if err != nil {
			return
		}
		t.selectedBy[it.Symbol()] = append(t.selectedBy[it.Symbol()], rewritten)

	case len(state) > 1 && len(cond) > 1:
		rewritten, err := cat.Rewrite("("+state+") && ("+cond+")", true)
		if err != nil {
			return
		}
		t.selectedBy[it.Symbol()] = append(t.selectedBy[it.Symbol()], rewritten)
	}
}

// translateSelect implements TranslatedModel.translate_select: an
// unconditional select adds the target symbol as a dependency term;
// a conditional select adds an implication "(cond -> target)" instead,
// and records the selecting symbol on the target's selectedBy set when
// the target has no prompt of its own.
func (t *Translated) translateSelect(cat *Catalogue, it *Item, sel Select) {
	target, ok := cat.Items[sel.Target]
	if !ok || target.Tristate() {
		return
	}

	imply := target.Symbol()

	if sel.Condition == "y" {
		t.deps[it.Symbol()] = append(t.deps[it.Symbol()], target.Symbol())
	} else {
		rewritten, err := cat.Rewrite(sel.Condition, true)
		if err != nil {
			return
		}
		if rewritten != "" {
			imply = "((" + rewritten + ") -> " + target.Symbol() + ")"
		}
		t.deps[it.Symbol()] = append(t.deps[it.Symbol()], imply)
	}

	if len(target.Prompts) == 0 {
		t.selectedBy[target.Symbol()] = append(t.selectedBy[target.Symbol()], it.Symbol())
	}

	if it.Tristate() {
		if len(target.Prompts) == 0 {
			t.selectedBy[target.Symbol()] = append(t.selectedBy[target.Symbol()], it.SymbolModule())
		}
		t.deps[it.SymbolModule()] = append(t.deps[it.SymbolModule()], imply)
	}
}

// WriteTo renders the translated model in the dump format §6 defines:
// a header, sorted ALWAYS_ON/ALWAYS_OFF lines, then every symbol sorted
// lexicographically with its conjunction of dependency terms (folding in
// a disjunction-of-selectors term when the symbol is ever selected).
func (t *Translated) WriteTo(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "I: Items-Count: %d\n", len(t.symbols))
	fmt.Fprintf(&b, "I: Format: <variable> [presence condition]\n")
	fmt.Fprintf(&b, "UNDERTAKER_SET SCHEMA_VERSION %s\n", SchemaVersion)

	if len(t.alwaysOn) > 0 {
		fmt.Fprintf(&b, "UNDERTAKER_SET ALWAYS_ON %s\n", quotedSortedSet(t.alwaysOn))
	}
	if len(t.alwaysOff) > 0 {
		fmt.Fprintf(&b, "UNDERTAKER_SET ALWAYS_OFF %s\n", quotedSortedSet(t.alwaysOff))
	}

	symbols := append([]string(nil), t.symbols...)
	sort.Strings(symbols)

	for _, symbol := range symbols {
		deps := append([]string(nil), t.deps[symbol]...)
		if sel := t.selectedBy[symbol]; len(sel) > 0 {
			deps = append(deps, "("+strings.Join(sel, " || ")+")")
		}
		if len(deps) == 0 {
			fmt.Fprintf(&b, "%s\n", symbol)
			continue
		}
		fmt.Fprintf(&b, "%s \"%s\"\n", symbol, strings.Join(deps, " && "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func quotedSortedSet(set map[string]struct{}) string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		names[i] = `"` + name + `"`
	}
	return strings.Join(names, " ")
}
