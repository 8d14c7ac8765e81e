// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast

import (
	"fmt"

	"github.com/beevik/spc700asm/internal/span"
	"github.com/beevik/spc700asm/internal/value"
)

// Reference is any named or anonymous symbol usable inside an
// AssemblyTimeValue, per spec.md §3. All five variants implement
// value.Resolvable so an AssemblyTimeValue leaf can hold any of them
// without the value package knowing their concrete type — the teacher's
// asm/expr.go instead closed directly over map[string]int label tables;
// generalizing that map lookup into an interface is what lets this
// assembler support the richer reference graph spec.md §3 asks for.
type Reference interface {
	value.Resolvable
	referenceKind() string
}

// Label is a named address with optional resolved location, owning a table
// of child local labels. Mirrors the teacher's single flat a.labels map
// plus scopeLabel fstring, generalized into an explicit parent/child graph
// per spec.md §9's design note.
type Label struct {
	ident         string
	Span          span.Span
	location      *int
	UsedAsAddress bool
	Locals        map[string]*LocalLabel
}

// NewLabel constructs an unresolved label.
func NewLabel(name string, sp span.Span) *Label {
	return &Label{ident: name, Span: sp, Locals: make(map[string]*LocalLabel)}
}

func (l *Label) ResolvedAddress() (int, bool) {
	if l.location == nil {
		return 0, false
	}
	return *l.location, true
}

// Name implements value.Resolvable.
func (l *Label) Name() string          { return l.ident }
func (l *Label) referenceKind() string { return "label" }

// SetLocation assigns the label's resolved address. Per spec.md §4.6,
// assigning is idempotent forward progress: callers only ever call this
// once layout determines the address of the slot the label is attached to.
func (l *Label) SetLocation(addr int) {
	v := addr
	l.location = &v
}

// Located reports whether SetLocation has been called.
func (l *Label) Located() bool { return l.location != nil }

// Local returns the named child local label, creating it if absent. Per
// spec.md §3's invariant, two local labels of the same name under
// different parents are distinct — each Label owns its own Locals map.
func (l *Label) Local(name string, sp span.Span) *LocalLabel {
	if ll, ok := l.Locals[name]; ok {
		return ll
	}
	ll := &LocalLabel{ident: name, Span: sp, parent: l}
	l.Locals[name] = ll
	return ll
}

// LocalLabel is a name scoped under exactly one parent Label. The parent
// pointer is non-owning (a plain field, not a retained strong reference
// cycle partner) — Go has no borrow checker to enforce weakness, so the
// invariant is enforced by construction order: a LocalLabel is only ever
// created through Label.Local, after its parent already exists.
type LocalLabel struct {
	ident    string
	Span     span.Span
	location *int
	parent   *Label
}

func (ll *LocalLabel) ResolvedAddress() (int, bool) {
	if ll.location == nil {
		return 0, false
	}
	return *ll.location, true
}

func (ll *LocalLabel) referenceKind() string { return "local label" }

// Parent returns the owning global label.
func (ll *LocalLabel) Parent() *Label { return ll.parent }

func (ll *LocalLabel) SetLocation(addr int) {
	v := addr
	ll.location = &v
}

func (ll *LocalLabel) Located() bool { return ll.location != nil }

// QualifiedName returns "parent.local", the name spc700asm's reference dump
// (internal/asmdump) and diagnostics use to disambiguate same-named locals
// under different parents.
func (ll *LocalLabel) QualifiedName() string {
	return ll.parent.Name() + "." + ll.ident
}

// Name satisfies value.Resolvable with the qualified name, since an
// unqualified local-label name is ambiguous outside its parent's scope.
func (ll *LocalLabel) Name() string { return ll.QualifiedName() }

// Direction distinguishes backward (-) from forward (+) relative anchors.
type Direction byte

const (
	Backward Direction = iota
	Forward
)

func (d Direction) String() string {
	if d == Forward {
		return "+"
	}
	return "-"
}

// Relative is an anonymous anchor (+ or -, possibly repeated to select the
// Nth). Per spec.md §4.2 step 5, once bound it becomes a synthetic Label
// whose name encodes direction, id and source offset.
type Relative struct {
	Dir      Direction
	ID       int
	Span     span.Span
	location *int
}

func (r *Relative) ResolvedAddress() (int, bool) {
	if r.location == nil {
		return 0, false
	}
	return *r.location, true
}

func (r *Relative) SetLocation(addr int) {
	v := addr
	r.location = &v
}

func (r *Relative) Located() bool { return r.location != nil }

func (r *Relative) referenceKind() string { return "relative anchor" }

// Name returns the synthetic label name spec.md §4.2 step 5 describes:
// "names encode direction, id, and source offset."
func (r *Relative) Name() string {
	return fmt.Sprintf("ref_%s_%d_%d", r.Dir, r.ID, r.Span.Offset)
}

// MacroArgument is a placeholder bound to an AssemblyTimeValue only while a
// macro body is being expanded. Using it outside a macro is a fatal error
// (checked by the caller before constructing an AssemblyTimeValue around
// one that isn't bound).
type MacroArgument struct {
	ParamName string
	Span      span.Span
	bound     *value.Value
}

func (m *MacroArgument) referenceKind() string { return "macro argument" }

func (m *MacroArgument) Name() string { return "<" + m.ParamName + ">" }

// Bind attaches the actual value for one macro instantiation. Expansion
// creates a fresh MacroArgument per call, binds it here, and clones the
// macro body with each formal argument remapped to that bound handle.
func (m *MacroArgument) Bind(v *value.Value) {
	m.bound = v
}

func (m *MacroArgument) ResolvedAddress() (int, bool) {
	if m.bound == nil {
		return 0, false
	}
	if !m.bound.TryResolve(-1) {
		return 0, false
	}
	return m.bound.Resolved()
}

// MacroGlobal is a per-expansion pseudo-label giving each macro
// instantiation a unique "current global label" context, so local labels
// declared inside a macro body bind to a fresh parent every call.
type MacroGlobal struct {
	label *Label
}

// NewMacroGlobal mints the pseudo-label for one macro instantiation. name
// is produced by the expander (e.g. "<macroname>_global_N") and must be
// unique in the environment — callers mint it via Environment.FreshName.
func NewMacroGlobal(name string, sp span.Span) *MacroGlobal {
	return &MacroGlobal{label: NewLabel(name, sp)}
}

func (m *MacroGlobal) referenceKind() string        { return "macro-global pseudo-label" }
func (m *MacroGlobal) Name() string                 { return m.label.Name() }
func (m *MacroGlobal) ResolvedAddress() (int, bool) { return m.label.ResolvedAddress() }
func (m *MacroGlobal) Label() *Label                { return m.label }
