// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast

import (
	"fmt"

	"github.com/beevik/spc700asm/internal/asmerr"
	"github.com/beevik/spc700asm/internal/span"
	"github.com/beevik/spc700asm/internal/value"
)

// forEachOperandValue calls visit on every AssemblyTimeValue attached
// directly to elements (addressing-mode operands and directive
// parameters), the set every normalization sub-pass needs to walk. It does
// not recurse into macro bodies (DirMacroDef); callers that need to touch
// macro bodies do so explicitly, since pass 1 and expansion treat macro
// bodies specially.
func forEachOperandValue(elements []ProgramElement, visit func(*value.Value)) {
	for _, el := range elements {
		switch e := el.(type) {
		case *Instruction:
			if e.First != nil && e.First.Addr != nil {
				visit(e.First.Addr)
			}
			if e.First != nil && e.First.Bit != nil {
				visit(e.First.Bit)
			}
			if e.Second != nil && e.Second.Addr != nil {
				visit(e.Second.Addr)
			}
			if e.Second != nil && e.Second.Bit != nil {
				visit(e.Second.Bit)
			}
		case *Directive:
			if e.Origin != nil {
				visit(e.Origin)
			}
			for _, t := range e.Table {
				visit(t.Value)
			}
			if e.AssignValue != nil {
				visit(e.AssignValue)
			}
			if e.FillParam != nil {
				visit(e.FillParam)
			}
			if e.FillValue != nil {
				visit(e.FillValue.Value)
			}
		case *MacroCall:
			for _, a := range e.Args {
				visit(a)
			}
		}
	}
}

// ResolveUserMacroArguments is AST Normalization sub-pass 1 (spec.md §4.2
// step 1): every MacroArgument reference inside a macro body is rebound to
// the canonical formal-parameter handle the definition declares, so that
// later Bind calls during expansion reach every use site uniformly.
func ResolveUserMacroArguments(file *File) error {
	for _, el := range file.Elements {
		dir, ok := el.(*Directive)
		if !ok || dir.Kind != DirMacroDef {
			continue
		}
		def := dir.Macro
		byName := make(map[string]*MacroArgument, len(def.Params))
		for _, p := range def.Params {
			byName[p.ParamName] = p
		}
		forEachOperandValue(def.Body, func(v *value.Value) {
			v.Walk(func(n *value.Value) {
				ref, ok := n.Reference()
				if !ok {
					return
				}
				arg, ok := ref.(*MacroArgument)
				if !ok {
					return
				}
				canon, ok := byName[arg.ParamName]
				if !ok {
					return
				}
				if canon != arg {
					n.RebindReference(canon)
				}
			})
		})
	}
	return nil
}

// CoerceToDirectPageAddressing is AST Normalization sub-pass 2 (spec.md
// §4.2 step 2): rewrites long-addressing operands into their direct-page
// form wherever the operand already provably resolves to <= 0xFF, or
// unconditionally when the instruction's ForceDirectPage flag is set. This
// runs before layout, so "resolves" here only catches operands that are
// already-known literals or fully-resolved forward references (e.g. `=`
// assignments processed earlier in the same file); the direct-page
// optimizer (internal/segment) handles the harder case of operands that
// depend on not-yet-laid-out labels.
func CoerceToDirectPageAddressing(file *File) error {
	for _, el := range file.Elements {
		inst, ok := el.(*Instruction)
		if !ok {
			continue
		}
		coerceOperand(inst.First, inst.ForceDirectPage)
		coerceOperand(inst.Second, inst.ForceDirectPage)
	}
	return nil
}

func coerceOperand(mode *AddressingMode, force bool) {
	if mode == nil || mode.Addr == nil {
		return
	}
	if !mode.Kind.IsDirectPageForm() && mode.Kind != AMDirectPage {
		short := mode.Kind.ShortEquivalent()
		if short == mode.Kind {
			return // no direct-page counterpart for this mode
		}
		if force {
			mode.Kind = short
			return
		}
		if mode.Addr.TryResolve(-1) {
			if n, _ := mode.Addr.Resolved(); n >= 0 && n <= 0xFF {
				mode.Kind = short
			}
		}
	}
}

// ResolveSourceIncludes is AST Normalization sub-pass 3 (spec.md §4.2 step
// 3): recursively lexes and parses every IncludeSource element, detects
// cycles via the environment's file table, and splices the included
// file's elements in place.
func (e *Environment) ResolveSourceIncludes(file *File) error {
	var out []ProgramElement
	for _, el := range file.Elements {
		inc, ok := el.(*IncludeSource)
		if !ok {
			out = append(out, el)
			continue
		}
		tokens, source, err := e.frontend.Lex(inc.File)
		if err != nil {
			return asmerr.Wrap(asmerr.KindIO, inc.Span, err, "%s: %s", asmerr.MsgFileNotFound, inc.File)
		}
		childPath := append(append([]string{}, file.IncludePath...), file.Name)
		child, err := e.Parse(tokens, source, inc.File, childPath)
		if err != nil {
			return err
		}
		out = append(out, child.Elements...)
	}
	file.Elements = out
	return nil
}

// ExpandUserMacros is AST Normalization sub-pass 4 (spec.md §4.2 step 4):
// walks the element list top to bottom; for each MacroCall it looks up the
// definition, checks arity, clones the body with actual arguments bound,
// and splices the clone in place. A depth stack bounds recursive macro use
// by Config.MaxMacroExpansionDepth.
func (e *Environment) ExpandUserMacros(file *File) error {
	return e.expandMacros(file.Elements, 0, &file.Elements)
}

func (e *Environment) expandMacros(elements []ProgramElement, depth int, out *[]ProgramElement) error {
	var result []ProgramElement
	for _, el := range elements {
		call, ok := el.(*MacroCall)
		if !ok {
			result = append(result, el)
			continue
		}
		def, ok := e.Macro(call.Name)
		if !ok {
			return asmerr.New(asmerr.KindReference, call.Span, "%s: %s", asmerr.MsgUndefinedMacro, call.Name)
		}
		if len(def.Params) != len(call.Args) {
			return asmerr.New(asmerr.KindReference, call.Span, "%s: %s expects %d, got %d",
				asmerr.MsgArgumentCountMismatch, call.Name, len(def.Params), len(call.Args))
		}
		if depth+1 > e.Config.MaxMacroExpansionDepth {
			return asmerr.New(asmerr.KindReference, call.Span, "%s", asmerr.MsgRecursiveMacroUse)
		}

		mg := NewMacroGlobal(e.FreshName(def.Name+"_global"), call.Span)
		remap := make(map[Reference]Reference, len(def.Params))
		for i, p := range def.Params {
			actual := &MacroArgument{ParamName: p.ParamName, Span: call.Span}
			actual.Bind(call.Args[i])
			remap[p] = actual
		}
		body := cloneElements(def.Body, remap, mg, call.Span)

		var expanded []ProgramElement
		if err := e.expandMacros(body, depth+1, &expanded); err != nil {
			return err
		}
		result = append(result, expanded...)
	}
	*out = result
	return nil
}

// cloneElements deep-clones a macro body for one instantiation, rebinding
// MacroArgument leaves per remap and reparenting any local label the body
// defines under the instantiation's fresh MacroGlobal, per spec.md §9's
// "Macro parameter binding" design note and §3's MacroGlobal description.
// callSite overrides each cloned node's span so diagnostics and later
// macro-expansion spans point at the call, not the definition (spec.md §9
// "Source spans"), while the original definition span remains reachable
// through def.Span for secondary reporting.
func cloneElements(elements []ProgramElement, remap map[Reference]Reference, mg *MacroGlobal, callSite span.Span) []ProgramElement {
	out := make([]ProgramElement, len(elements))
	for i, el := range elements {
		switch e := el.(type) {
		case *Instruction:
			clone := *e
			clone.Span = callSite
			clone.First = cloneMode(e.First, remap)
			clone.Second = cloneMode(e.Second, remap)
			out[i] = &clone
		case *Directive:
			clone := *e
			clone.Span = callSite
			if e.Origin != nil {
				clone.Origin = cloneValue(e.Origin, remap)
			}
			if e.Table != nil {
				clone.Table = make([]SizedValue, len(e.Table))
				for j, t := range e.Table {
					clone.Table[j] = SizedValue{Value: cloneValue(t.Value, remap), Size: t.Size}
				}
			}
			if e.AssignValue != nil {
				clone.AssignValue = cloneValue(e.AssignValue, remap)
			}
			if e.AssignTo != nil {
				clone.AssignTo = remapReference(e.AssignTo, remap, mg)
			}
			if e.FillParam != nil {
				clone.FillParam = cloneValue(e.FillParam, remap)
			}
			if e.FillValue != nil {
				fv := SizedValue{Value: cloneValue(e.FillValue.Value, remap), Size: e.FillValue.Size}
				clone.FillValue = &fv
			}
			out[i] = &clone
		case *MacroCall:
			clone := *e
			clone.Span = callSite
			clone.Args = make([]*value.Value, len(e.Args))
			for j, a := range e.Args {
				clone.Args[j] = cloneValue(a, remap)
			}
			out[i] = &clone
		case *IncludeSource:
			clone := *e
			clone.Span = callSite
			out[i] = &clone
		case *LabelDef:
			clone := *e
			clone.Span = callSite
			clone.Ref = remapReference(e.Ref, remap, mg)
			out[i] = &clone
		default:
			out[i] = el
		}
	}
	return out
}

func remapReference(r Reference, remap map[Reference]Reference, mg *MacroGlobal) Reference {
	if replacement, ok := remap[r]; ok {
		return replacement
	}
	if ll, ok := r.(*LocalLabel); ok {
		replacement := mg.Label().Local(ll.ident, ll.Span)
		remap[r] = replacement
		return replacement
	}
	return r
}

func cloneMode(m *AddressingMode, remap map[Reference]Reference) *AddressingMode {
	if m == nil {
		return nil
	}
	clone := *m
	if m.Addr != nil {
		clone.Addr = cloneValue(m.Addr, remap)
	}
	if m.Bit != nil {
		clone.Bit = cloneValue(m.Bit, remap)
	}
	return &clone
}

func cloneValue(v *value.Value, remap map[Reference]Reference) *value.Value {
	if v == nil {
		return nil
	}
	if ref, ok := v.Reference(); ok {
		if r, ok := ref.(Reference); ok {
			if replacement, ok := remap[r]; ok {
				return value.Ref(replacement, v.Span)
			}
		}
		return value.Ref(ref, v.Span)
	}
	if v.IsLiteral() {
		n, _ := v.Resolved()
		return value.Literal(n, v.Span)
	}
	left, right := v.Children()
	switch {
	case left != nil && right != nil:
		return value.Binary(v.Op(), cloneValue(left, remap), cloneValue(right, remap), v.Span)
	case left != nil:
		return value.Unary(v.Op(), cloneValue(left, remap), v.Span)
	default:
		return value.Here(v.Span)
	}
}

// FillInReferenceLinks is AST Normalization sub-pass 5 (spec.md §4.2 step
// 5): resolves backward relative anchors by a forward scan and forward
// relative anchors by a reverse scan, rebinding every placeholder
// AssemblyTimeValue leaf onto the concrete anchor it names.
//
// Merging a local label definition into its "current" (most recent) global
// label is handled at parse time by the frontend instead of here: creating
// a LocalLabel always requires a parent Label handle (Label.Local), so a
// dotted local label with no preceding global label is rejected as soon as
// the frontend tries to construct one — spec.md §4.2 describes this merge
// as part of this pass, but building the parent/child link at the point of
// construction rather than deferring it is equivalent and avoids a second
// walk over every element.
func FillInReferenceLinks(file *File) error {
	pendingBackward := make(map[string]*Relative) // repetition-key -> most recent definition

	for _, el := range file.Elements {
		ld, ok := el.(*LabelDef)
		if !ok {
			continue
		}
		if ref, ok := ld.Ref.(*Relative); ok && ref.Dir == Backward {
			pendingBackward[relKey(ref)] = ref
		}
	}

	// Reverse pass: resolve forward relative anchor *uses* by scanning from
	// the end, remembering the most recent (in reverse = next upcoming in
	// forward order) definition of each repetition.
	pendingForward := make(map[string]*Relative)
	for i := len(file.Elements) - 1; i >= 0; i-- {
		if ld, ok := file.Elements[i].(*LabelDef); ok {
			if rel, ok := ld.Ref.(*Relative); ok && rel.Dir == Forward {
				pendingForward[relKey(rel)] = rel
			}
		}
	}

	forEachOperandValue(file.Elements, func(v *value.Value) {
		v.Walk(func(n *value.Value) {
			ref, ok := n.Reference()
			if !ok {
				return
			}
			placeholder, ok := ref.(*Relative)
			if !ok || placeholder.Located() {
				return
			}
			var table map[string]*Relative
			if placeholder.Dir == Backward {
				table = pendingBackward
			} else {
				table = pendingForward
			}
			if resolved, ok := table[relKey(placeholder)]; ok && resolved != placeholder {
				n.RebindReference(resolved)
			}
		})
	})
	return nil
}

// relKey buckets an anchor by both direction and repetition id (spec.md
// §3: "an anonymous forward/backward anchor with an integer repetition
// id"), so a `++` anchor never binds to a plain `+` anchor's definition.
func relKey(r *Relative) string {
	dir := "+"
	if r.Dir == Backward {
		dir = "-"
	}
	return fmt.Sprintf("%s%d", dir, r.ID)
}

// ApplyAssignments folds `name = expr` constant definitions (spec.md §6's
// "=" / "set" directive) into their target label's resolved address at
// parse time, the way the teacher's asm.go evaluates an EQU-style constant
// immediately rather than deferring it to the layout passes. Only
// immediately-resolvable right-hand sides are applied here (literals and
// expressions over already-defined constants); one that depends on `*`
// or on a label is left for internal/encode's resolveAssignmentHere,
// which retries it during layout.
func ApplyAssignments(file *File) error {
	for _, el := range file.Elements {
		dir, ok := el.(*Directive)
		if !ok || dir.Kind != DirAssign {
			continue
		}
		switch dir.AssignTo.(type) {
		case *MacroArgument:
			return asmerr.New(asmerr.KindReference, dir.Span, "%s", asmerr.MsgAssignMacroArgument)
		case *MacroGlobal:
			return asmerr.New(asmerr.KindReference, dir.Span, "%s", asmerr.MsgAssignMacroGlobal)
		}
		if !dir.AssignValue.TryResolve(-1) {
			continue
		}
		addr, _ := dir.AssignValue.Resolved()
		switch target := dir.AssignTo.(type) {
		case *Label:
			target.SetLocation(addr)
		case *LocalLabel:
			target.SetLocation(addr)
		}
	}
	return nil
}
