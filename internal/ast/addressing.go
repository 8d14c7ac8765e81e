// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast

import "github.com/beevik/spc700asm/internal/value"

// Register names one of the SPC700's operand registers. Grounded on
// original_source/src/parser.rs's Register token handling inside
// parse_addressing_mode.
type Register byte

const (
	RegNone Register = iota
	RegA
	RegX
	RegY
	RegYA
	RegSP
	RegPSW
	RegC
)

func (r Register) String() string {
	switch r {
	case RegA:
		return "A"
	case RegX:
		return "X"
	case RegY:
		return "Y"
	case RegYA:
		return "YA"
	case RegSP:
		return "SP"
	case RegPSW:
		return "PSW"
	case RegC:
		return "C"
	default:
		return ""
	}
}

// AddressingModeKind enumerates the addressing-mode shapes spec.md §3
// lists. Grounded on original_source/src/parser.rs's AddressingMode enum
// (the names below mirror its variants).
type AddressingModeKind byte

const (
	AMRegister AddressingModeKind = iota
	AMImmediate
	AMDirectPage
	AMAddress
	AMDirectPageXIndexed
	AMXIndexed
	AMDirectPageYIndexed
	AMYIndexed
	AMIndirectX
	AMIndirectXAutoIncrement
	AMIndirectY
	AMDirectPageXIndexedIndirect
	AMDirectPageIndirectYIndexed
	AMDirectPageBit
	AMAddressBit
	AMNegatedAddressBit
)

func (k AddressingModeKind) String() string {
	switch k {
	case AMRegister:
		return "register"
	case AMImmediate:
		return "immediate"
	case AMDirectPage:
		return "direct page"
	case AMAddress:
		return "absolute"
	case AMDirectPageXIndexed:
		return "direct page, X indexed"
	case AMXIndexed:
		return "absolute, X indexed"
	case AMDirectPageYIndexed:
		return "direct page, Y indexed"
	case AMYIndexed:
		return "absolute, Y indexed"
	case AMIndirectX:
		return "indirect X"
	case AMIndirectXAutoIncrement:
		return "indirect X auto-increment"
	case AMIndirectY:
		return "indirect Y"
	case AMDirectPageXIndexedIndirect:
		return "direct page X-indexed indirect"
	case AMDirectPageIndirectYIndexed:
		return "direct page indirect Y-indexed"
	case AMDirectPageBit:
		return "direct page bit"
	case AMAddressBit:
		return "absolute bit"
	case AMNegatedAddressBit:
		return "negated absolute bit"
	default:
		return "unknown"
	}
}

// IsDirectPageForm reports whether this mode is the short, zero-page form
// of a mode that also has a long (absolute) counterpart. Used by the
// direct-page optimizer (internal/segment) to decide which modes are
// eligible for coercion.
func (k AddressingModeKind) IsDirectPageForm() bool {
	switch k {
	case AMDirectPage, AMDirectPageXIndexed, AMDirectPageYIndexed, AMDirectPageBit,
		AMDirectPageXIndexedIndirect, AMDirectPageIndirectYIndexed:
		return true
	default:
		return false
	}
}

// LongEquivalent returns the absolute-addressing counterpart of a
// direct-page mode, used when the optimizer must revert a coerced
// instruction back to long addressing (spec.md §4.4 step 3).
func (k AddressingModeKind) LongEquivalent() AddressingModeKind {
	switch k {
	case AMDirectPage:
		return AMAddress
	case AMDirectPageXIndexed:
		return AMXIndexed
	case AMDirectPageYIndexed:
		return AMYIndexed
	case AMDirectPageBit:
		return AMAddressBit
	default:
		return k
	}
}

// ShortEquivalent returns the direct-page counterpart of a long-addressing
// mode, or the mode unchanged if it has none.
func (k AddressingModeKind) ShortEquivalent() AddressingModeKind {
	switch k {
	case AMAddress:
		return AMDirectPage
	case AMXIndexed:
		return AMDirectPageXIndexed
	case AMYIndexed:
		return AMDirectPageYIndexed
	case AMAddressBit:
		return AMDirectPageBit
	default:
		return k
	}
}

// AddressingMode is one operand of an Instruction.
type AddressingMode struct {
	Kind Kind
	Reg  Register    // valid when Kind == AMRegister
	Addr *value.Value // valid for every non-register kind
	Bit  *value.Value // valid for AMDirectPageBit / AMAddressBit / AMNegatedAddressBit
}

// Kind is an alias kept local to this file purely so AddressingMode's field
// reads naturally; it is exactly AddressingModeKind.
type Kind = AddressingModeKind

// RegisterOperand constructs a register operand.
func RegisterOperand(r Register) AddressingMode {
	return AddressingMode{Kind: AMRegister, Reg: r}
}

// Simple constructs a non-bit, non-register operand.
func Simple(kind AddressingModeKind, addr *value.Value) AddressingMode {
	return AddressingMode{Kind: kind, Addr: addr}
}

// Bit constructs a bit-addressable operand.
func Bit(kind AddressingModeKind, addr, bit *value.Value) AddressingMode {
	return AddressingMode{Kind: kind, Addr: addr, Bit: bit}
}
