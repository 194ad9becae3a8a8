// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2012 Alex Ogier.
// Copyright (c) 2012 The Go Authors.
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package cmdfactory

import "testing"

func TestBoolVarDefaultAndSet(t *testing.T) {
	var dest bool
	flag := BoolVar(&dest, "verbose", false, "usage")

	if dest {
		t.Fatal("dest should start false")
	}
	if flag.NoOptDefVal != "true" {
		t.Errorf("NoOptDefVal = %q, want true", flag.NoOptDefVal)
	}

	if err := flag.Value.Set("true"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !dest {
		t.Error("dest should be true after Set(true)")
	}
	if flag.Value.String() != "true" {
		t.Errorf("String() = %q, want true", flag.Value.String())
	}
}

func TestBoolVarRejectsInvalidValue(t *testing.T) {
	var dest bool
	flag := BoolVar(&dest, "verbose", false, "usage")
	if err := flag.Value.Set("not-a-bool"); err == nil {
		t.Error("expected an error for an unparseable bool")
	}
}

func TestBoolVarPSetsShorthand(t *testing.T) {
	var dest bool
	flag := BoolVarP(&dest, "verbose", "v", true, "usage")
	if flag.Shorthand != "v" {
		t.Errorf("Shorthand = %q, want v", flag.Shorthand)
	}
	if !dest {
		t.Error("dest should reflect the default value true")
	}
}
