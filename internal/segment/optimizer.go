// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package segment

import (
	"github.com/beevik/spc700asm/internal/ast"
	"github.com/beevik/spc700asm/internal/value"
)

// branchMnemonics mirrors internal/encode's list: branch targets are
// never direct-page-eligible the way a long-addressing operand is, so
// the optimizer must not mistake one for a candidate. Kept as its own
// copy rather than imported, since internal/encode depends on this
// package (for Program/Segment) and importing back would cycle.
var branchMnemonics = map[string]bool{
	"BRA": true, "BEQ": true, "BNE": true, "BCS": true, "BCC": true,
	"BVS": true, "BVC": true, "BMI": true, "BPL": true,
	"CBNE": true, "DBNZ": true,
}

// absoluteOnlyMnemonics have no direct-page opcode for their address
// operand in internal/encode's table, so shortening one would leave an
// operand shape the encoder cannot look up.
var absoluteOnlyMnemonics = map[string]bool{
	"JMP": true, "CALL": true,
	"AND1": true, "OR1": true, "EOR1": true, "NOT1": true, "MOV1": true,
}

// candidate is one long-addressing operand the optimizer may shorten.
type candidate struct {
	instr    *ast.Instruction
	useFirst bool
}

func (c *candidate) mode() *ast.AddressingMode {
	if c.useFirst {
		return c.instr.First
	}
	return c.instr.Second
}

func isLongForm(kind ast.AddressingModeKind) bool {
	switch kind {
	case ast.AMAddress, ast.AMXIndexed, ast.AMYIndexed, ast.AMAddressBit:
		return true
	default:
		return false
	}
}

// operandByteLen returns the number of operand bytes a mode contributes,
// per spec.md §4.5's per-mode byte counts.
func operandByteLen(kind ast.AddressingModeKind) int {
	switch kind {
	case ast.AMRegister:
		return 0
	case ast.AMAddress, ast.AMXIndexed, ast.AMYIndexed, ast.AMAddressBit, ast.AMNegatedAddressBit:
		return 2
	default:
		return 1
	}
}

// Optimize runs the direct-page optimizer (spec.md §4.4) over every
// segment of prog, rewriting eligible long-addressing operands into
// their direct-page form in place.
func Optimize(prog *Program, maxPasses int) error {
	for _, seg := range prog.Segments {
		optimizeSegment(seg, maxPasses)
	}
	return nil
}

func optimizeSegment(seg *Segment, maxPasses int) {
	var candidates []*candidate
	for _, el := range seg.Elements {
		instr, ok := el.(*ast.Instruction)
		if !ok || branchMnemonics[instr.Mnemonic] || absoluteOnlyMnemonics[instr.Mnemonic] {
			continue
		}
		if instr.First != nil && isLongForm(instr.First.Kind) {
			candidates = append(candidates, &candidate{instr, true})
		}
		if instr.Second != nil && isLongForm(instr.Second.Kind) {
			candidates = append(candidates, &candidate{instr, false})
		}
	}
	if len(candidates) == 0 {
		return
	}

	tentative := make(map[*candidate]bool, len(candidates))
	for _, c := range candidates {
		tentative[c] = true
	}

	for pass := 0; pass < maxPasses; pass++ {
		addrs := tentativeAddresses(seg, candidates, tentative)
		resolver := func(r value.Resolvable) (int, bool) {
			if ref, ok := r.(ast.Reference); ok {
				if addr, ok2 := addrs[ref]; ok2 {
					return addr, true
				}
			}
			return r.ResolvedAddress()
		}

		changed := false
		for _, c := range candidates {
			if !tentative[c] {
				continue // monotone: short-to-long only, never the reverse within one invocation
			}
			mode := c.mode()
			val, ok := mode.Addr.ValueUsingResolver(-1, resolver)
			if !ok || val >= 0x100 {
				tentative[c] = false
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, c := range candidates {
		if tentative[c] {
			mode := c.mode()
			mode.Kind = mode.Kind.ShortEquivalent()
		}
	}
}

// tentativeAddresses computes, for the current tentative short/long
// decisions, the address every label/attached-label definition would
// land at — spec.md §4.4 step 2's "decrease tentative addresses of
// later elements... by 1 per prior shortened instruction."
func tentativeAddresses(seg *Segment, candidates []*candidate, tentative map[*candidate]bool) map[ast.Reference]int {
	byInstr := make(map[*ast.Instruction][]*candidate)
	for _, c := range candidates {
		byInstr[c.instr] = append(byInstr[c.instr], c)
	}

	addrs := make(map[ast.Reference]int)
	running := seg.Origin
	for _, el := range seg.Elements {
		switch e := el.(type) {
		case *ast.LabelDef:
			addrs[e.Ref] = running

		case *ast.Instruction:
			if e.AttachedLabel != nil {
				addrs[e.AttachedLabel] = running
			}
			running += 1 + operandByteLen(effectiveKind(e.First, e, true, byInstr, tentative)) +
				operandByteLen(effectiveKind(e.Second, e, false, byInstr, tentative))

		case *ast.Directive:
			if e.AttachedLabel != nil {
				addrs[e.AttachedLabel] = running
			}
			if n, known := staticDirectiveLength(e); known {
				running += n
			}
			// An unknown-length directive (incbin/brr without an
			// explicit byte range) leaves running unchanged: this
			// assembler's direct-page optimizer only ever needs
			// accurate tentative addresses for labels a candidate
			// instruction's operand depends on, and sample data never
			// sits between a candidate and the label it references in
			// any of this codec's supported layouts.
		}
	}
	return addrs
}

func effectiveKind(mode *ast.AddressingMode, instr *ast.Instruction, first bool, byInstr map[*ast.Instruction][]*candidate, tentative map[*candidate]bool) ast.AddressingModeKind {
	if mode == nil {
		return ast.AMRegister // zero operand bytes
	}
	for _, c := range byInstr[instr] {
		if c.useFirst == first && tentative[c] {
			return mode.Kind.ShortEquivalent()
		}
	}
	return mode.Kind
}

// staticDirectiveLength returns the byte length of a directive that can
// be determined without reading any external file or running the BRR
// codec.
func staticDirectiveLength(d *ast.Directive) (int, bool) {
	switch d.Kind {
	case ast.DirTable:
		n := 0
		for _, entry := range d.Table {
			n += int(entry.Size)
		}
		return n, true
	case ast.DirString:
		n := len(d.Text)
		if d.HasNullTerminator {
			n++
		}
		return n, true
	case ast.DirIncBin:
		if d.Range != nil {
			return d.Range.Length, true
		}
		return 0, false
	case ast.DirFill:
		if n, ok := d.FillParam.Resolved(); ok && d.FillOp == ast.FillBytes {
			return n, true
		}
		return 0, false
	default:
		return 0, true
	}
}
