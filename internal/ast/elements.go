// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast

import (
	"github.com/beevik/spc700asm/internal/span"
	"github.com/beevik/spc700asm/internal/value"
)

// ProgramElement is the sum of Instruction | Directive | UserMacroCall |
// IncludeSource | Label, per spec.md §3. Each concrete type below embeds
// elementTag so only types declared in this package can implement the
// interface (a sealed sum type), the way a Rust enum closes its variant
// set.
type ProgramElement interface {
	Position() span.Span
	elementTag()
}

// Size names how many bytes a table entry or fill value occupies.
type Size byte

const (
	Size1 Size = 1
	Size2 Size = 2
	Size4 Size = 4
)

// SizedValue pairs an AssemblyTimeValue with the byte width it should be
// emitted at (spec.md §3's table directive: "byte/word sequences").
type SizedValue struct {
	Value *value.Value
	Size  Size
}

// ByteRange is the optional offset/length qualifier on incbin and brr
// directives (spec.md §6's "2:3" syntax in scenario 6).
type ByteRange struct {
	Offset int
	Length int
}

// Instruction is a (mnemonic, optional first operand, optional second
// operand) tuple. Per spec.md §3 it carries a force-direct-page flag, a
// source span, and an optional attached label (a label appearing on the
// same source line as the instruction).
type Instruction struct {
	Span            span.Span
	Mnemonic        string
	First           *AddressingMode
	Second          *AddressingMode
	ForceDirectPage bool
	AttachedLabel   Reference
}

func (i *Instruction) Position() span.Span { return i.Span }
func (*Instruction) elementTag()           {}

// DirectiveKind enumerates the directive forms spec.md §3 lists.
type DirectiveKind byte

const (
	DirOrg DirectiveKind = iota
	DirTable
	DirString
	DirIncBin
	DirBrr
	DirAssign
	DirSampleTable
	DirFill
	DirMacroDef
	DirEnd
)

// FillOperation distinguishes fill, fill-align and pad, per spec.md §3.
type FillOperation byte

const (
	FillBytes FillOperation = iota
	FillAlign
	FillPad
)

// MacroDef is the body of a user macro definition, bound to its formal
// parameter list; AST Normalization's macro-argument-binding pass (spec.md
// §4.2 step 1) walks Body replacing each MacroArgument reference.
type MacroDef struct {
	Name      string
	Params    []*MacroArgument
	Body      []ProgramElement
	Span      span.Span
}

// Directive is every non-instruction program element besides macro calls
// and source includes.
type Directive struct {
	Span          span.Span
	Kind          DirectiveKind
	AttachedLabel Reference

	// DirOrg
	Origin *value.Value

	// DirTable
	Table []SizedValue

	// DirString
	Text               []byte
	HasNullTerminator  bool

	// DirIncBin / DirBrr
	File      string
	Range     *ByteRange
	AutoTrim  bool // DirBrr only

	// DirAssign
	AssignTo    Reference
	AssignValue *value.Value

	// DirSampleTable
	AutoAlign bool

	// DirFill
	FillOp    FillOperation
	FillParam *value.Value
	FillValue *SizedValue

	// DirMacroDef
	Macro *MacroDef
}

func (d *Directive) Position() span.Span { return d.Span }
func (*Directive) elementTag()           {}

// MacroCall is an invocation of a previously defined user macro with actual
// argument expressions.
type MacroCall struct {
	Span    span.Span
	Name    string
	Args    []*value.Value
}

func (m *MacroCall) Position() span.Span { return m.Span }
func (*MacroCall) elementTag()           {}

// IncludeSource is a recursive source-file inclusion (".include", distinct
// from the binary incbin directive). AST Normalization's include-resolution
// pass (spec.md §4.2 step 3) replaces it in place with the included file's
// parsed and normalized elements.
type IncludeSource struct {
	Span span.Span
	File string
}

func (s *IncludeSource) Position() span.Span { return s.Span }
func (*IncludeSource) elementTag()           {}

// LabelDef places a label (global or local) at the current point in the
// element stream.
type LabelDef struct {
	Span span.Span
	Ref  Reference
}

func (l *LabelDef) Position() span.Span { return l.Span }
func (*LabelDef) elementTag()           {}
