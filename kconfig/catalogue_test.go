// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kconfig

import (
	"strings"
	"testing"
)

func TestParseItem(t *testing.T) {
	dump := `Item FOO boolean
Prompt FOO "Enable foo" "y"
Depends FOO "BAR"
`
	cat, err := Parse(strings.NewReader(dump))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	it, ok := cat.Items["FOO"]
	if !ok {
		t.Fatal("expected item FOO to exist")
	}
	if it.Type != TypeBoolean {
		t.Errorf("Type = %q, want boolean", it.Type)
	}
	if len(it.Prompts) != 1 || it.Prompts[0].Text != "Enable foo" {
		t.Errorf("Prompts = %+v, want one prompt with text %q", it.Prompts, "Enable foo")
	}
	if it.Depends != "BAR" {
		t.Errorf("Depends = %q, want %q", it.Depends, "BAR")
	}
	if it.Symbol() != "CONFIG_FOO" {
		t.Errorf("Symbol() = %q, want CONFIG_FOO", it.Symbol())
	}
}

func TestParseTristateSymbols(t *testing.T) {
	cat, err := Parse(strings.NewReader("Item FOO tristate\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	it := cat.Items["FOO"]
	if !it.Tristate() {
		t.Fatal("expected FOO to be tristate")
	}
	if it.SymbolModule() != "CONFIG_FOO_MODULE" {
		t.Errorf("SymbolModule() = %q, want CONFIG_FOO_MODULE", it.SymbolModule())
	}
}

func TestParseOmnipresent(t *testing.T) {
	cat, err := Parse(strings.NewReader("Item FOO boolean\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cat.Items["FOO"].Omnipresent() {
		t.Error("item with no prompt and no depends should be omnipresent")
	}

	cat2, err := Parse(strings.NewReader("Item BAR boolean\nDepends BAR \"FOO\"\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cat2.Items["BAR"].Omnipresent() {
		t.Error("item with a depends expression should not be omnipresent")
	}
}

func TestParseChoiceGroup(t *testing.T) {
	dump := `Choice MYCHOICE boolean y
ChoiceItem A MYCHOICE
ChoiceItem B MYCHOICE
`
	cat, err := Parse(strings.NewReader(dump))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	group, ok := cat.Choices["MYCHOICE"]
	if !ok {
		t.Fatal("expected choice group MYCHOICE to exist")
	}
	if !group.Required {
		t.Error("expected MYCHOICE to be required")
	}
	if len(group.Members) != 2 || group.Members[0] != "A" || group.Members[1] != "B" {
		t.Errorf("Members = %v, want [A B]", group.Members)
	}
	if cat.Items["A"].Choice != "MYCHOICE" {
		t.Errorf("item A's Choice = %q, want MYCHOICE", cat.Items["A"].Choice)
	}
}

func TestParseUnrecognisedVerbIgnored(t *testing.T) {
	dump := "SomeFutureVerb a b c\nItem FOO boolean\n"
	cat, err := Parse(strings.NewReader(dump))
	if err != nil {
		t.Fatalf("Parse should not fail on an unrecognised verb: %v", err)
	}
	if _, ok := cat.Items["FOO"]; !ok {
		t.Error("parsing should continue past the unrecognised line")
	}
}

func TestParsePreservesInsertionOrder(t *testing.T) {
	dump := "Item ZETA boolean\nItem ALPHA boolean\nItem MU boolean\n"
	cat, err := Parse(strings.NewReader(dump))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var names []string
	for _, it := range cat.Options() {
		names = append(names, it.Name)
	}
	want := []string{"ZETA", "ALPHA", "MU"}
	if len(names) != len(want) {
		t.Fatalf("Options() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Options()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	sorted := cat.SortedNames()
	if sorted[0] != "ALPHA" || sorted[len(sorted)-1] != "ZETA" {
		t.Errorf("SortedNames() = %v, want lexicographic order", sorted)
	}
}
