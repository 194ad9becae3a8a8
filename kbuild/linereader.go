// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kbuild

import (
	"bufio"
	"io"
	"strings"
)

// LineReader reads logical lines out of a makefile stream: comments are
// stripped per physical line, and a trailing backslash joins the next
// physical line with the backslash itself replaced by a space.
type LineReader struct {
	r *bufio.Reader
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReader(r)}
}

// stripComment removes everything from the first '#' onward (a backslash
// before it does not escape it) and
// trims trailing whitespace, mirroring remove_makefile_comment.
func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimRight(line, " \t\r\n")
}

func (lr *LineReader) readPhysical() (string, bool) {
	raw, err := lr.r.ReadString('\n')
	if raw == "" && err != nil {
		return "", false
	}
	raw = strings.TrimRight(raw, "\r\n")
	return stripComment(raw), true
}

// Next returns the next logical line. ok is false only at end-of-stream
// with no further content, distinguishing a legitimately empty line (e.g.
// one that was entirely a comment) from EOF.
func (lr *LineReader) Next() (line string, ok bool) {
	current, good := lr.readPhysical()
	if !good {
		return "", false
	}

	var b strings.Builder
	for strings.HasSuffix(current, "\\") {
		b.WriteString(strings.TrimSuffix(current, "\\"))
		b.WriteByte(' ')
		next, good := lr.readPhysical()
		if !good {
			current = ""
			break
		}
		current = next
	}
	b.WriteString(current)
	return b.String(), true
}
