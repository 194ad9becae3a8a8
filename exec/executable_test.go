// SPDX-License-Identifier: BSD-3-Clause
//
// Authors: Alexander Jung <alex@unikraft.io>
//
// Copyright (c) 2022, Unikraft GmbH.  All rights reserved.
package exec

import (
	"reflect"
	"testing"
)

func TestNewExecutableSplitsBinWithArgs(t *testing.T) {
	e, err := NewExecutable("make -j4", nil, "all")
	if err != nil {
		t.Fatalf("NewExecutable: %v", err)
	}
	if e.bin != "make" {
		t.Errorf("bin = %q, want make", e.bin)
	}
	if !reflect.DeepEqual(e.Args(), []string{"-j4", "all"}) {
		t.Errorf("Args() = %v, want [-j4 all]", e.Args())
	}
}

func TestNewExecutableRejectsEmptyBin(t *testing.T) {
	if _, err := NewExecutable("", nil); err == nil {
		t.Error("expected an error for an empty binary name")
	}
}

type innerArgs struct {
	Quiet bool `flag:"-q"`
}

type testArgs struct {
	Jobs    *int     `flag:"-j"`
	Verbose bool     `flag:"-v"`
	Files   []string `flag:"-f"`
	Output  string   `flag:"-o"`
	Skipped string
	Inner   innerArgs
}

func TestParseInterfaceArgsRendersEachFieldKind(t *testing.T) {
	jobs := 4
	face := testArgs{
		Jobs:    &jobs,
		Verbose: true,
		Files:   []string{"a.c", "b.c"},
		Output:  "out.bin",
		Skipped: "ignored",
		Inner:   innerArgs{Quiet: true},
	}

	args, err := ParseInterfaceArgs(face)
	if err != nil {
		t.Fatalf("ParseInterfaceArgs: %v", err)
	}

	want := []string{"-j", "4", "-v", "-f", "a.c", "-f", "b.c", "-o", "out.bin", "-q"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestParseInterfaceArgsOmitsZeroValues(t *testing.T) {
	args, err := ParseInterfaceArgs(testArgs{})
	if err != nil {
		t.Fatalf("ParseInterfaceArgs: %v", err)
	}
	if len(args) != 0 {
		t.Errorf("expected no args for all-zero struct, got %v", args)
	}
}

func TestParseInterfaceArgsRejectsPointer(t *testing.T) {
	face := &testArgs{}
	if _, err := ParseInterfaceArgs(face); err == nil {
		t.Error("expected an error when passing a pointer")
	}
}

type omitValueArgs struct {
	Level *int `flag:"-l,omitvalueif=0"`
}

func TestParseInterfaceArgsOmitValueIf(t *testing.T) {
	zero := 0
	args, err := ParseInterfaceArgs(omitValueArgs{Level: &zero})
	if err != nil {
		t.Fatalf("ParseInterfaceArgs: %v", err)
	}
	if !reflect.DeepEqual(args, []string{"-l"}) {
		t.Errorf("args = %v, want [-l] (value omitted)", args)
	}
}
