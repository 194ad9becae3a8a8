// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2012 Alex Ogier.
// Copyright (c) 2012 The Go Authors.
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package cmdfactory

import "testing"

func TestIntVarDefaultAndSet(t *testing.T) {
	var dest int
	flag := IntVar(&dest, "retries", 3, "usage")

	if dest != 3 {
		t.Fatalf("dest = %d, want 3", dest)
	}
	if flag.DefValue != "3" {
		t.Errorf("DefValue = %q, want 3", flag.DefValue)
	}

	if err := flag.Value.Set("7"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if dest != 7 {
		t.Errorf("dest = %d, want 7", dest)
	}
	if flag.Value.String() != "7" {
		t.Errorf("String() = %q, want 7", flag.Value.String())
	}
}

func TestIntVarRejectsNonNumeric(t *testing.T) {
	var dest int
	flag := IntVar(&dest, "retries", 0, "usage")
	if err := flag.Value.Set("nope"); err == nil {
		t.Error("expected an error for a non-numeric value")
	}
	if dest != 0 {
		t.Errorf("dest should be left unchanged on a failed Set, got %d", dest)
	}
}

func TestIntVarPSetsShorthand(t *testing.T) {
	var dest int
	flag := IntVarP(&dest, "retries", "r", 1, "usage")
	if flag.Shorthand != "r" {
		t.Errorf("Shorthand = %q, want r", flag.Shorthand)
	}
}
