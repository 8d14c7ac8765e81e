// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encode

import (
	"github.com/beevik/spc700asm/internal/asmerr"
	"github.com/beevik/spc700asm/internal/ast"
	"github.com/beevik/spc700asm/internal/memstore"
	"github.com/beevik/spc700asm/internal/segment"
	"github.com/beevik/spc700asm/internal/span"
	"github.com/beevik/spc700asm/internal/trace"
	"github.com/beevik/spc700asm/internal/value"
)

// branchMnemonics names every mnemonic whose sole (or final) operand is a
// relative branch target rather than a literal addressing mode.
var branchMnemonics = map[string]bool{
	"BRA": true, "BEQ": true, "BNE": true, "BCS": true, "BCC": true,
	"BVS": true, "BVC": true, "BMI": true, "BPL": true,
	"CBNE": true, "DBNZ": true,
}

// Segments walks every segment of prog in the order the planner opened
// them and encodes each independently into a memstore.Segment, assigning
// every label a final address as it is reached — since by this point
// every instruction's length is fixed (the direct-page optimizer has
// already run), a label's address is simply its cumulative byte offset
// from the segment's origin, and no further pass is needed to know it.
func Segments(prog *segment.Program, tr trace.Tracer, files FileReader) (*memstore.Store, error) {
	store := &memstore.Store{}
	for _, seg := range prog.Segments {
		enc, err := encodeSegment(seg, tr, files)
		if err != nil {
			return nil, err
		}
		store.Segments = append(store.Segments, enc)
	}
	return store, nil
}

func encodeSegment(seg *segment.Segment, tr trace.Tracer, files FileReader) (*memstore.Segment, error) {
	out := &memstore.Segment{Origin: seg.Origin}
	addr := seg.Origin

	emit := func(slot *memstore.Slot) {
		out.Slots = append(out.Slots, slot)
		addr++
	}
	attach := func(ref ast.Reference) {
		switch r := ref.(type) {
		case *ast.Label:
			r.SetLocation(addr)
		case *ast.LocalLabel:
			r.SetLocation(addr)
		case *ast.Relative:
			r.SetLocation(addr)
		case *ast.MacroGlobal:
			r.Label().SetLocation(addr)
		}
	}

	for _, el := range seg.Elements {
		switch e := el.(type) {
		case *ast.LabelDef:
			attach(e.Ref)
			tr.Logf("label %s @ %04X", e.Ref.Name(), addr)

		case *ast.Instruction:
			if e.AttachedLabel != nil {
				attach(e.AttachedLabel)
			}
			if err := encodeInstruction(e, &addr, emit); err != nil {
				return nil, err
			}

		case *ast.Directive:
			if e.AttachedLabel != nil {
				attach(e.AttachedLabel)
			}
			if e.Kind == ast.DirAssign {
				resolveAssignmentHere(e, addr)
			}
			if err := encodeDirectiveWithFiles(e, &addr, emit, tr, files); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// resolveAssignmentHere retries a `name = expr` assignment (spec.md §3's
// "assignment of a reference to a value" directive) with the segment's
// current running address as the `*` pseudo-value, per scenario 4
// (`len = *-table`): by the time this directive is reached in source
// order, any label it names earlier in the same segment already carries
// a real address (attach has already run for it), and `*` is simply this
// point's own address. AST normalization's ApplyAssignments already
// folded the purely-constant case before layout existed at all; this
// covers the remaining case that depends on position or an
// already-placed label. A right-hand side that depends on a label not
// yet placed is left unresolved here and is still caught later as an
// unresolved reference if anything ever reads it.
func resolveAssignmentHere(d *ast.Directive, addr int) {
	if !d.AssignValue.TryResolve(addr) {
		return
	}
	n, _ := d.AssignValue.Resolved()
	switch target := d.AssignTo.(type) {
	case *ast.Label:
		if !target.Located() {
			target.SetLocation(n)
		}
	case *ast.LocalLabel:
		if !target.Located() {
			target.SetLocation(n)
		}
	}
}

func encodeInstruction(instr *ast.Instruction, addr *int, emit func(*memstore.Slot)) error {
	opcode, ok := lookupInstruction(instr)
	if !ok {
		return asmerr.New(asmerr.KindAddressing, instr.Span, "%s: %s",
			asmerr.MsgInvalidAddressingMode, instr.Mnemonic)
	}
	emit(memstore.NewLiteralSlot(*addr, instr.Span, opcode))

	if branchMnemonics[instr.Mnemonic] {
		return encodeBranchOperands(instr, addr, emit)
	}
	if swapsOperandByteOrder(instr) {
		if err := encodeOperand(instr.Second, instr.Span, addr, emit); err != nil {
			return err
		}
		return encodeOperand(instr.First, instr.Span, addr, emit)
	}
	if err := encodeOperand(instr.First, instr.Span, addr, emit); err != nil {
		return err
	}
	return encodeOperand(instr.Second, instr.Span, addr, emit)
}

// swapsOperandByteOrder reports whether this instruction's two memory
// operands must be emitted source-before-destination rather than in
// first-operand-first order. Every dp,dp and dp,#imm form (MOV and the
// dp-targeted ALU ops) is written dest,src per spec.md §4.5's table, but
// the hardware always emits the source operand's byte before the
// destination dp byte — spec.md §8 scenario 3 spells this out for
// `mov $10,#$AA`: "second machine operand byte is target DP, source
// immediate precedes it".
func swapsOperandByteOrder(instr *ast.Instruction) bool {
	if instr.First == nil || instr.First.Kind != ast.AMDirectPage || instr.Second == nil {
		return false
	}
	return instr.Second.Kind == ast.AMDirectPage || instr.Second.Kind == ast.AMImmediate
}

// lookupInstruction dispatches an already-parsed Instruction to the
// opcode table, special-casing branches (whose operand is always a bare
// target rather than a registered addressing-mode shape).
func lookupInstruction(instr *ast.Instruction) (byte, bool) {
	switch instr.Mnemonic {
	case "BRA", "BEQ", "BNE", "BCS", "BCC", "BVS", "BVC", "BMI", "BPL":
		op, ok := branchOpcodes[instr.Mnemonic]
		return op, ok
	case "CBNE", "DBNZ":
		sig := "Y"
		if instr.First != nil && instr.First.Kind != ast.AMRegister {
			sig = operandSig(instr.First)
		}
		op, ok := memBranchOpcodes[instr.Mnemonic+" "+sig]
		return op, ok
	default:
		return lookup(instr.Mnemonic, instr.First, instr.Second)
	}
}

func encodeBranchOperands(instr *ast.Instruction, addr *int, emit func(*memstore.Slot)) error {
	switch instr.Mnemonic {
	case "CBNE", "DBNZ":
		if instr.First != nil && instr.First.Kind != ast.AMRegister {
			if err := encodeOperand(instr.First, instr.Span, addr, emit); err != nil {
				return err
			}
		}
		return emitRelative(instr.Second.Addr, instr.Span, addr, emit)
	default:
		return emitRelative(instr.First.Addr, instr.Span, addr, emit)
	}
}

// emitRelative reserves the one-byte branch-offset slot. The target pc is
// this slot's own address plus one (the branch instruction's length from
// here is always exactly this final byte), per spec.md §4.5's
// `pc_after_operand`.
func emitRelative(target *value.Value, sp span.Span, addr *int, emit func(*memstore.Slot)) error {
	pcAfterOperand := *addr + 1
	emit(memstore.NewRelativeSlot(*addr, sp, target, pcAfterOperand))
	return nil
}

// encodeOperand emits the operand bytes for one addressing mode, per
// spec.md §4.5's per-mode byte counts. A nil mode (the second operand of
// a unary instruction) emits nothing.
func encodeOperand(mode *ast.AddressingMode, sp span.Span, addr *int, emit func(*memstore.Slot)) error {
	if mode == nil || mode.Kind == ast.AMRegister {
		return nil
	}
	switch mode.Kind {
	case ast.AMImmediate, ast.AMDirectPage, ast.AMDirectPageXIndexed, ast.AMDirectPageYIndexed,
		ast.AMIndirectX, ast.AMIndirectXAutoIncrement, ast.AMIndirectY,
		ast.AMDirectPageXIndexedIndirect, ast.AMDirectPageIndirectYIndexed:
		if mode.Addr == nil {
			return nil
		}
		emit(memstore.NewDeferredSlot(*addr, sp, memstore.KindByteLow, mode.Addr))
		return nil

	case ast.AMAddress, ast.AMXIndexed, ast.AMYIndexed:
		emit(memstore.NewDeferredSlot(*addr, sp, memstore.KindByteLow, mode.Addr))
		emit(memstore.NewDeferredSlot(*addr, sp, memstore.KindByteHigh, mode.Addr))
		return nil

	case ast.AMDirectPageBit:
		// spec.md §4.5 scopes the packed-high-byte rule to absolute-bit
		// modes only; a dp.bit operand contributes one byte, the full
		// (unmasked) dp address, same as a plain direct-page operand.
		if mode.Addr == nil {
			return nil
		}
		emit(memstore.NewDeferredSlot(*addr, sp, memstore.KindByteLow, mode.Addr))
		return nil

	case ast.AMAddressBit, ast.AMNegatedAddressBit:
		emit(memstore.NewDeferredSlot(*addr, sp, memstore.KindByteLow, mode.Addr))
		high := value.Binary(value.OpShiftRight, mode.Addr, value.Literal(8, sp), sp)
		emit(memstore.NewBitPackedHighSlot(*addr, sp, high, mode.Bit))
		return nil
	}
	return nil
}
