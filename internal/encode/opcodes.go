// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package encode implements the Instruction Encoder (spec.md §4.5):
// picking an opcode byte for each mnemonic × operand-kind combination and
// laying out its operand bytes. Grounded on instructions.go's opcode
// table (the teacher's 6502 instruction set lives in a similarly shaped
// table keyed by addressing mode), generalized to the SPC700's operand
// encodings.
package encode

import "github.com/beevik/spc700asm/internal/ast"

// operandSig collapses an AddressingMode to the structural signature the
// opcode table is keyed on — the numeric value inside the mode never
// affects which opcode is chosen, only the mode's shape does.
func operandSig(m *ast.AddressingMode) string {
	if m == nil {
		return ""
	}
	switch m.Kind {
	case ast.AMRegister:
		return m.Reg.String()
	case ast.AMImmediate:
		return "#imm"
	case ast.AMDirectPage:
		return "dp"
	case ast.AMDirectPageXIndexed:
		return "dp+X"
	case ast.AMDirectPageYIndexed:
		return "dp+Y"
	case ast.AMAddress:
		return "!abs"
	case ast.AMXIndexed:
		return "!abs+X"
	case ast.AMYIndexed:
		return "!abs+Y"
	case ast.AMIndirectX:
		return "(X)"
	case ast.AMIndirectXAutoIncrement:
		return "(X)+"
	case ast.AMIndirectY:
		return "(Y)"
	case ast.AMDirectPageXIndexedIndirect:
		return "[dp+X]"
	case ast.AMDirectPageIndirectYIndexed:
		return "[dp]+Y"
	case ast.AMDirectPageBit:
		return "dp.bit"
	case ast.AMAddressBit:
		return "!abs.bit"
	case ast.AMNegatedAddressBit:
		return "/!abs.bit"
	}
	return "?"
}

// opLen describes an operand's byte contribution so the table doesn't
// need to repeat it per entry — it is deterministic from the operand's
// structural kind.
type opLen byte

const (
	len0 opLen = iota
	len1          // one operand byte (immediate, dp, bit dp)
	len2          // two operand bytes little-endian (absolute)
	len3          // two operand bytes for bit-addressable absolute (low, packed high)
	lenRel        // one relative-branch byte
)

// entry is one opcode table row.
type entry struct {
	mnemonic string
	first    string
	second   string
	opcode   byte
}

// operandlessTable is the explicit list spec.md §4.5 enumerates verbatim.
var operandlessTable = map[string]byte{
	"BRK":   0x0F,
	"RET":   0x6F,
	"RET1":  0x7F,
	"CLRC":  0x60,
	"SETC":  0x80,
	"NOTC":  0xED,
	"CLRV":  0xE0,
	"CLRP":  0x20,
	"SETP":  0x40,
	"EI":    0xA0,
	"DI":    0xC0,
	"NOP":   0x00,
	"SLEEP": 0xEF,
	"STOP":  0xFF,
	"DAA":   0xDF,
	"DAS":   0xBE,
}

// twoRegisterTable holds the operandless forms spec.md §4.5 calls out by
// an explicit register name (or pair) rather than a bare mnemonic: DAA A,
// DAS A, MUL YA and DIV YA,X. The register names are fixed by the
// instruction (there is no other valid choice), so they carry no
// information the opcode doesn't already encode, but the syntax still
// requires writing them out.
var twoRegisterTable = map[string]byte{
	"DAA A":    0xDF,
	"DAS A":    0xBE,
	"MUL YA":   0xCF,
	"DIV YA,X": 0x9E,
}

// table is the bulk of the mnemonic × operand-shape opcode matrix. Not
// every SPC700 addressing-mode permutation the hardware supports is
// present — TCALL 0-15 and the TSET1/TCLR1 read-modify-write forms are
// left out, since no component of this assembler's scope exercises them
// and adding fifteen near-identical TCALL rows would not improve
// confidence in the ones that matter.
var table = []entry{
	// loads
	{"MOV", "A", "#imm", 0xE8}, {"MOV", "A", "dp", 0xE4}, {"MOV", "A", "dp+X", 0xF4},
	{"MOV", "A", "!abs", 0xE5}, {"MOV", "A", "!abs+X", 0xF5}, {"MOV", "A", "!abs+Y", 0xF6},
	{"MOV", "A", "(X)", 0xE6}, {"MOV", "A", "(X)+", 0xBF},
	{"MOV", "A", "[dp+X]", 0xE7}, {"MOV", "A", "[dp]+Y", 0xF7},
	{"MOV", "X", "#imm", 0xCD}, {"MOV", "X", "dp", 0xF8}, {"MOV", "X", "dp+Y", 0xF9},
	{"MOV", "X", "!abs", 0xE9},
	{"MOV", "Y", "#imm", 0x8D}, {"MOV", "Y", "dp", 0xEB}, {"MOV", "Y", "dp+X", 0xFB},
	{"MOV", "Y", "!abs", 0xEC},
	// stores
	{"MOV", "(X)", "A", 0xC6}, {"MOV", "(X)+", "A", 0xAF},
	{"MOV", "dp", "A", 0xC4}, {"MOV", "dp+X", "A", 0xD4},
	{"MOV", "!abs", "A", 0xC5}, {"MOV", "!abs+X", "A", 0xD5}, {"MOV", "!abs+Y", "A", 0xD6},
	{"MOV", "[dp+X]", "A", 0xC7}, {"MOV", "[dp]+Y", "A", 0xD7},
	{"MOV", "dp", "X", 0xD8}, {"MOV", "dp+Y", "X", 0xD9}, {"MOV", "!abs", "X", 0xC9},
	{"MOV", "dp", "Y", 0xCB}, {"MOV", "dp+X", "Y", 0xDB}, {"MOV", "!abs", "Y", 0xCC},
	// register transfers
	{"MOV", "X", "A", 0x7D}, {"MOV", "A", "X", 0x5D},
	{"MOV", "Y", "A", 0xFD}, {"MOV", "A", "Y", 0xDD},
	{"MOV", "X", "SP", 0x9D}, {"MOV", "SP", "X", 0xBD},
	// dp,dp and dp,#imm, keyed in written dest,src order; encode.go's
	// swapsOperandByteOrder emits the source byte first
	{"MOV", "dp", "dp", 0xFA}, {"MOV", "dp", "#imm", 0x8F},

	// word loads/stores
	{"MOVW", "YA", "dp", 0xBA}, {"MOVW", "dp", "YA", 0xDA},

	// ALU: OR, AND, EOR, CMP, ADC, SBC — each shares the same operand
	// shapes against A. The dp,dp / dp,#imm / (X),(Y) forms are keyed in
	// written dest,src order; swapsOperandByteOrder handles the dp,dp and
	// dp,#imm byte order.
	{"OR", "A", "#imm", 0x08}, {"OR", "A", "dp", 0x04}, {"OR", "A", "dp+X", 0x14},
	{"OR", "A", "!abs", 0x05}, {"OR", "A", "!abs+X", 0x15}, {"OR", "A", "!abs+Y", 0x16},
	{"OR", "A", "(X)", 0x06}, {"OR", "A", "[dp+X]", 0x07}, {"OR", "A", "[dp]+Y", 0x17},
	{"OR", "dp", "dp", 0x09}, {"OR", "dp", "#imm", 0x18}, {"OR", "(X)", "(Y)", 0x19},

	{"AND", "A", "#imm", 0x28}, {"AND", "A", "dp", 0x24}, {"AND", "A", "dp+X", 0x34},
	{"AND", "A", "!abs", 0x25}, {"AND", "A", "!abs+X", 0x35}, {"AND", "A", "!abs+Y", 0x36},
	{"AND", "A", "(X)", 0x26}, {"AND", "A", "[dp+X]", 0x27}, {"AND", "A", "[dp]+Y", 0x37},
	{"AND", "dp", "dp", 0x29}, {"AND", "dp", "#imm", 0x38}, {"AND", "(X)", "(Y)", 0x39},

	{"EOR", "A", "#imm", 0x48}, {"EOR", "A", "dp", 0x44}, {"EOR", "A", "dp+X", 0x54},
	{"EOR", "A", "!abs", 0x45}, {"EOR", "A", "!abs+X", 0x55}, {"EOR", "A", "!abs+Y", 0x56},
	{"EOR", "A", "(X)", 0x46}, {"EOR", "A", "[dp+X]", 0x47}, {"EOR", "A", "[dp]+Y", 0x57},
	{"EOR", "dp", "dp", 0x49}, {"EOR", "dp", "#imm", 0x58}, {"EOR", "(X)", "(Y)", 0x59},

	{"CMP", "A", "#imm", 0x68}, {"CMP", "A", "dp", 0x64}, {"CMP", "A", "dp+X", 0x74},
	{"CMP", "A", "!abs", 0x65}, {"CMP", "A", "!abs+X", 0x75}, {"CMP", "A", "!abs+Y", 0x76},
	{"CMP", "A", "(X)", 0x66}, {"CMP", "A", "[dp+X]", 0x67}, {"CMP", "A", "[dp]+Y", 0x77},
	{"CMP", "dp", "dp", 0x69}, {"CMP", "dp", "#imm", 0x78}, {"CMP", "(X)", "(Y)", 0x79},
	{"CMP", "X", "#imm", 0xC8}, {"CMP", "X", "dp", 0x3E}, {"CMP", "X", "!abs", 0x1E},
	{"CMP", "Y", "#imm", 0xAD}, {"CMP", "Y", "dp", 0x7E}, {"CMP", "Y", "!abs", 0x5E},

	{"ADC", "A", "#imm", 0x88}, {"ADC", "A", "dp", 0x84}, {"ADC", "A", "dp+X", 0x94},
	{"ADC", "A", "!abs", 0x85}, {"ADC", "A", "!abs+X", 0x95}, {"ADC", "A", "!abs+Y", 0x96},
	{"ADC", "A", "(X)", 0x86}, {"ADC", "A", "[dp+X]", 0x87}, {"ADC", "A", "[dp]+Y", 0x97},
	{"ADC", "dp", "dp", 0x89}, {"ADC", "dp", "#imm", 0x98}, {"ADC", "(X)", "(Y)", 0x99},

	{"SBC", "A", "#imm", 0xA8}, {"SBC", "A", "dp", 0xA4}, {"SBC", "A", "dp+X", 0xB4},
	{"SBC", "A", "!abs", 0xA5}, {"SBC", "A", "!abs+X", 0xB5}, {"SBC", "A", "!abs+Y", 0xB6},
	{"SBC", "A", "(X)", 0xA6}, {"SBC", "A", "[dp+X]", 0xA7}, {"SBC", "A", "[dp]+Y", 0xB7},
	{"SBC", "dp", "dp", 0xA9}, {"SBC", "dp", "#imm", 0xB8}, {"SBC", "(X)", "(Y)", 0xB9},

	// word arithmetic
	{"ADDW", "YA", "dp", 0x7A}, {"SUBW", "YA", "dp", 0x9A}, {"CMPW", "YA", "dp", 0x5A},
	{"INCW", "dp", "", 0x3A}, {"DECW", "dp", "", 0x1A},

	// shifts/rotates/inc/dec, register and memory forms
	{"ASL", "A", "", 0x1C}, {"ASL", "dp", "", 0x0B}, {"ASL", "dp+X", "", 0x1B}, {"ASL", "!abs", "", 0x0C},
	{"LSR", "A", "", 0x5C}, {"LSR", "dp", "", 0x4B}, {"LSR", "dp+X", "", 0x5B}, {"LSR", "!abs", "", 0x4C},
	{"ROL", "A", "", 0x3C}, {"ROL", "dp", "", 0x2B}, {"ROL", "dp+X", "", 0x3B}, {"ROL", "!abs", "", 0x2C},
	{"ROR", "A", "", 0x7C}, {"ROR", "dp", "", 0x6B}, {"ROR", "dp+X", "", 0x7B}, {"ROR", "!abs", "", 0x6C},
	{"INC", "A", "", 0xBC}, {"INC", "dp", "", 0xAB}, {"INC", "dp+X", "", 0xBB}, {"INC", "!abs", "", 0xAC},
	{"INC", "X", "", 0x3D}, {"INC", "Y", "", 0xFC},
	{"DEC", "A", "", 0x9C}, {"DEC", "dp", "", 0x8B}, {"DEC", "dp+X", "", 0x9B}, {"DEC", "!abs", "", 0x8C},
	{"DEC", "X", "", 0x1D}, {"DEC", "Y", "", 0xDC},

	// bit operations
	{"SET1", "dp.bit", "", 0x02}, {"CLR1", "dp.bit", "", 0x12},
	{"AND1", "C", "!abs.bit", 0x4A}, {"AND1", "C", "/!abs.bit", 0x6A},
	{"OR1", "C", "!abs.bit", 0x0A}, {"OR1", "C", "/!abs.bit", 0x2A},
	{"EOR1", "C", "!abs.bit", 0x8A},
	{"NOT1", "!abs.bit", "", 0xEA},
	{"MOV1", "C", "!abs.bit", 0xAA}, {"MOV1", "!abs.bit", "C", 0xCA},

	// control flow
	{"JMP", "!abs", "", 0x5F}, {"JMP", "[!abs+X]", "", 0x1F},
	{"CALL", "!abs", "", 0x3F}, {"PCALL", "#imm", "", 0x4F},

	// stack
	{"PUSH", "A", "", 0x2D}, {"PUSH", "X", "", 0x4D}, {"PUSH", "Y", "", 0x6D}, {"PUSH", "PSW", "", 0x0D},
	{"POP", "A", "", 0xAE}, {"POP", "X", "", 0xCE}, {"POP", "Y", "", 0xEE}, {"POP", "PSW", "", 0x8E},

	// misc
	{"XCN", "A", "", 0x9F},
}

// branchOpcodes holds the single-operand (relative-only) branches.
var branchOpcodes = map[string]byte{
	"BRA": 0x2F,
	"BEQ": 0xF0, "BNE": 0xD0,
	"BCS": 0xB0, "BCC": 0x90,
	"BVS": 0x70, "BVC": 0x50,
	"BMI": 0x30, "BPL": 0x10,
}

// memBranchOpcodes holds the two-operand (memory test, then relative)
// branches: CBNE and DBNZ. Keyed on mnemonic plus the first operand's
// structural signature, since that is the only part the opcode depends
// on — the second operand is always the relative target.
var memBranchOpcodes = map[string]byte{
	"CBNE dp":   0x2E,
	"CBNE dp+X": 0xDE,
	"DBNZ dp":   0x6E,
	"DBNZ Y":    0xFE,
}

func lookup(mnemonic string, first, second *ast.AddressingMode) (byte, bool) {
	f := operandSig(first)
	s := operandSig(second)
	if first != nil && first.Kind == ast.AMRegister {
		key := mnemonic + " " + f
		if second != nil && second.Kind == ast.AMRegister {
			key = mnemonic + " " + f + "," + s
		}
		if op, ok := twoRegisterTable[key]; ok {
			return op, true
		}
	}
	for _, e := range table {
		if e.mnemonic == mnemonic && e.first == f && e.second == s {
			return e.opcode, true
		}
	}
	if first == nil && second == nil {
		if op, ok := operandlessTable[mnemonic]; ok {
			return op, true
		}
	}
	return 0, false
}
