// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segment

import (
	"github.com/beevik/spc700asm/internal/asmerr"
	"github.com/beevik/spc700asm/internal/ast"
	"github.com/beevik/spc700asm/internal/span"
)

// Plan splits a normalized element stream into origin-keyed segments,
// per spec.md §4.3. By the time Plan runs, AST Normalization has already
// expanded includes and macros, so the only element kinds it should ever
// see are Instruction, Directive and LabelDef — a surviving MacroCall or
// IncludeSource is an internal error in an earlier pass, not a user error,
// so Plan reports it as KindLayout rather than trying to recover.
func Plan(elements []ast.ProgramElement, env *ast.Environment) (*Program, error) {
	prog := &Program{}
	var current *Segment

	for _, el := range elements {
		switch e := el.(type) {
		case *ast.Directive:
			if e.Kind == ast.DirOrg {
				_, ok := e.Origin.Resolved()
				if !ok {
					ok = e.Origin.TryResolve(-1)
				}
				if !ok {
					return nil, asmerr.New(asmerr.KindLayout, e.Span,
						"org target must be a constant expression")
				}
				addr, _ := e.Origin.Resolved()
				current = prog.segmentAt(addr)
				continue
			}
			if e.Kind == ast.DirEnd {
				return prog, nil
			}
			if e.Kind == ast.DirBrr && e.AttachedLabel == nil {
				name := env.FreshName("brr_sample")
				e.AttachedLabel = env.GetGlobal(name, e.Span, ast.AsDefinition)
			}
			if current == nil {
				return nil, asmerr.New(asmerr.KindLayout, e.Span, "%s", asmerr.MsgMissingSegment)
			}
			current.Elements = append(current.Elements, e)

		case *ast.Instruction:
			if current == nil {
				return nil, asmerr.New(asmerr.KindLayout, e.Span, "%s", asmerr.MsgMissingSegment)
			}
			current.Elements = append(current.Elements, e)

		case *ast.LabelDef:
			if current == nil {
				return nil, asmerr.New(asmerr.KindLayout, e.Span, "%s", asmerr.MsgMissingSegment)
			}
			current.Elements = append(current.Elements, e)

		case *ast.MacroCall:
			return nil, asmerr.New(asmerr.KindLayout, e.Span,
				"macro call survived expansion: %s", e.Name)

		case *ast.IncludeSource:
			return nil, asmerr.New(asmerr.KindLayout, e.Span,
				"include directive survived resolution: %s", e.File)

		default:
			return nil, asmerr.New(asmerr.KindLayout, span.None, "unrecognized program element")
		}
	}
	return prog, nil
}
