// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trace generalizes asm/asm.go's verbose-mode logging
// (a.log/a.logLine/a.logSection/a.logBytes, gated by a bool field) into a
// pluggable sink, per spec.md §7's "non-fatal diagnostics reported through
// a pluggable sink" and SPEC_FULL.md's ambient-stack expansion.
package trace

import (
	"fmt"
	"io"
	"strings"
)

// Tracer receives progress notices from the pipeline. Callers that
// don't care about verbose output use Discard, the same way the teacher's
// verbose field defaults to false.
type Tracer interface {
	Section(name string)
	Logf(format string, args ...any)
	Bytes(addr int, b []byte)
}

// Discard is a Tracer that does nothing, matching the teacher's default
// (verbose=false) behavior.
var Discard Tracer = discardTracer{}

type discardTracer struct{}

func (discardTracer) Section(string)     {}
func (discardTracer) Logf(string, ...any) {}
func (discardTracer) Bytes(int, []byte)  {}

// Writer adapts an io.Writer into a Tracer, formatting output the way
// asm/asm.go's logSection/log/logBytes do.
type Writer struct {
	W io.Writer
}

func (t Writer) Section(name string) {
	fmt.Fprintln(t.W, strings.Repeat("-", len(name)+6))
	fmt.Fprintf(t.W, "-- %s --\n", name)
	fmt.Fprintln(t.W, strings.Repeat("-", len(name)+6))
}

func (t Writer) Logf(format string, args ...any) {
	fmt.Fprintf(t.W, format, args...)
	fmt.Fprintln(t.W)
}

func (t Writer) Bytes(addr int, b []byte) {
	for i, n := 0, len(b); i < n; i += 3 {
		j := i + 3
		if j > n {
			j = n
		}
		t.Logf("%04X-* %s", addr+i, hexString(b[i:j]))
	}
}

func hexString(b []byte) string {
	var sb strings.Builder
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	return sb.String()
}
