// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kbuild

import "testing"

func TestScopeGetMissingVariable(t *testing.T) {
	s := NewScope()
	_, err := s.Get("nope")
	if err == nil {
		t.Fatal("expected a MissingVariable error")
	}
	var mv *MissingVariable
	if me, ok := err.(*MissingVariable); !ok {
		t.Fatalf("error type = %T, want *MissingVariable", err)
	} else {
		mv = me
	}
	if mv.Name != "nope" {
		t.Errorf("MissingVariable.Name = %q, want %q", mv.Name, "nope")
	}
}

func TestScopeCreateAndGet(t *testing.T) {
	s := NewScope()
	s.Create("x", 42)
	v, err := s.Get("x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.(int) != 42 {
		t.Errorf("Get(x) = %v, want 42", v)
	}

	s.Create("x", 43)
	v, _ = s.Get("x")
	if v.(int) != 43 {
		t.Errorf("re-Create should overwrite, got %v", v)
	}
}

func TestScopeIntAndIncr(t *testing.T) {
	s := NewScope()
	if s.Int("counter") != 0 {
		t.Error("Int on an absent key should default to 0")
	}
	if got := s.IncrInt("counter", 3); got != 3 {
		t.Errorf("IncrInt = %d, want 3", got)
	}
	if got := s.IncrInt("counter", 2); got != 5 {
		t.Errorf("IncrInt = %d, want 5", got)
	}
}

func TestScopeStringMapAndSlice(t *testing.T) {
	s := NewScope()
	m := s.StringMap("vars")
	m["NAME"] = "value"
	if s.StringMap("vars")["NAME"] != "value" {
		t.Error("StringMap should return the same backing map on repeated access")
	}

	if s.StringSlice("missing") != nil {
		t.Error("StringSlice on an absent key should return nil")
	}
}

func TestScopeAltMapDefaultsAndPersists(t *testing.T) {
	s := NewScope()
	am := s.AltMap("features")
	am.Get("a.c").AddAlternative(Precondition{"CONFIG_A"})

	again := s.AltMap("features")
	if !again.Has("a.c") {
		t.Error("AltMap should return the same backing map across calls")
	}
	if again.Get("a.c").Len() != 1 {
		t.Errorf("expected 1 disjunct, got %d", again.Get("a.c").Len())
	}
}

func TestAltMapGetCreatesEmptyOnFirstAccess(t *testing.T) {
	am := NewAltMap()
	if am.Has("x") {
		t.Error("Has should be false before any access")
	}
	alt := am.Get("x")
	if !alt.Empty() {
		t.Error("a freshly defaulted Alternatives should be empty")
	}
	if !am.Has("x") {
		t.Error("Get should mark the key as accessed even when defaulting")
	}
}

func TestAltMapKeysSorted(t *testing.T) {
	am := NewAltMap()
	am.Get("zeta")
	am.Get("alpha")
	am.Get("mu")

	keys := am.Keys()
	want := []string{"alpha", "mu", "zeta"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}
