// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package segment implements the Segment Planner and Direct-Page Optimizer
// (spec.md §4.3, §4.4): splitting a normalized element stream into
// origin-keyed segments and then iteratively shortening instructions whose
// operand provably lands in the zero page.
package segment

import (
	"sort"

	"github.com/beevik/spc700asm/internal/ast"
)

// Segment is a contiguous run of program elements destined for one origin
// address. Segments may be re-opened by a later `org` naming the same
// address, per spec.md §3 — Plan appends to the existing element list
// rather than creating a duplicate Segment.
type Segment struct {
	Origin   int
	Elements []ast.ProgramElement
}

// Program is the full set of segments a source file (after normalization)
// produced, in the order their origins were first opened. internal/encode
// walks Segments in this order to assign label addresses; the final
// output order (ascending by address) is only established by
// internal/memstore's Combine.
type Program struct {
	Segments []*Segment
}

// segmentAt finds (or creates, appending to Segments) the segment with the
// given origin.
func (p *Program) segmentAt(origin int) *Segment {
	for _, s := range p.Segments {
		if s.Origin == origin {
			return s
		}
	}
	s := &Segment{Origin: origin}
	p.Segments = append(p.Segments, s)
	return s
}

// SortedByOrigin returns the segments ordered by ascending origin, the
// order internal/memstore.Combine requires.
func (p *Program) SortedByOrigin() []*Segment {
	out := make([]*Segment, len(p.Segments))
	copy(out, p.Segments)
	sort.Slice(out, func(i, j int) bool { return out[i].Origin < out[j].Origin })
	return out
}
