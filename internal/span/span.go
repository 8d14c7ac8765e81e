// Copyright 2014-2017 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package span tracks the origin of every token and AST node that flows
// through the assembler, the way asm/fstring.go tracks row/column pairs
// through the 6502 assembler's line-based parser. Because this assembler's
// input is an already lexed token stream rather than raw source text (the
// lexer is a collaborator), a span locates a range by file index and byte
// offset instead of by row and column.
package span

import "fmt"

// Span identifies a contiguous range of source bytes within one file of an
// assembly. File is an index into the caller's file table, not a path,
// so that spans stay cheap to copy and compare.
type Span struct {
	File   int
	Offset int
	Length int
}

// None is the invalid span (File -1) used for synthetic nodes that have no source
// origin (e.g. a reference minted by the direct-page optimizer).
var None = Span{File: -1}

// IsValid reports whether the span names a real file position.
func (s Span) IsValid() bool {
	return s.File >= 0
}

// End returns the offset one past the last byte covered by the span.
func (s Span) End() int {
	return s.Offset + s.Length
}

// Join returns the smallest span covering both s and other. If either span
// is invalid, Join returns the other. Join panics if both spans are valid
// but name different files, since merging spans across files is never
// meaningful for a single diagnostic.
func (s Span) Join(other Span) Span {
	if !s.IsValid() {
		return other
	}
	if !other.IsValid() {
		return s
	}
	if s.File != other.File {
		panic("span: cannot join spans from different files")
	}
	start := s.Offset
	if other.Offset < start {
		start = other.Offset
	}
	end := s.End()
	if other.End() > end {
		end = other.End()
	}
	return Span{File: s.File, Offset: start, Length: end - start}
}

func (s Span) String() string {
	if !s.IsValid() {
		return "<none>"
	}
	return fmt.Sprintf("file %d, offset %d-%d", s.File, s.Offset, s.End())
}

// Macro pairs a macro call-site span with the span of the definition the
// call expanded from, per spec.md §9: expansion preserves the call-site
// span as primary, keeping the definition site available as a secondary.
type Macro struct {
	CallSite   Span
	Definition Span
}
