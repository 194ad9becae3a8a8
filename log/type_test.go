// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file expect in compliance with the License.
package log

import "testing"

func TestLoggerTypeFromStringRecognisesCaseInsensitively(t *testing.T) {
	cases := map[string]LoggerType{
		"quiet":  QUIET,
		"BASIC":  BASIC,
		"Fancy":  FANCY,
		"json":   JSON,
		"gibberish": BASIC,
	}
	for name, want := range cases {
		if got := LoggerTypeFromString(name); got != want {
			t.Errorf("LoggerTypeFromString(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestLoggerTypeToStringRoundTrips(t *testing.T) {
	for _, lt := range []LoggerType{QUIET, BASIC, FANCY, JSON} {
		name := LoggerTypeToString(lt)
		if LoggerTypeFromString(name) != lt {
			t.Errorf("round trip through %q did not return %v", name, lt)
		}
	}
}
