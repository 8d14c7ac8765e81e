// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beevik/spc700asm/internal/ast"
	"github.com/beevik/spc700asm/internal/span"
)

func parseOp(t *testing.T, s string) *ast.AddressingMode {
	t.Helper()
	p := newParser()
	mode, err := p.parseOperand(s, span.None)
	require.NoError(t, err)
	return mode
}

func TestParseOperandRegisters(t *testing.T) {
	mode := parseOp(t, "A")
	assert.Equal(t, ast.AMRegister, mode.Kind)
	assert.Equal(t, ast.RegA, mode.Reg)

	mode = parseOp(t, "ya")
	assert.Equal(t, ast.RegYA, mode.Reg)
}

func TestParseOperandImmediate(t *testing.T) {
	mode := parseOp(t, "#$42")
	require.Equal(t, ast.AMImmediate, mode.Kind)
	require.True(t, mode.Addr.TryResolve(-1))
	n, _ := mode.Addr.Resolved()
	assert.Equal(t, 0x42, n)
}

func TestParseOperandIndirectForms(t *testing.T) {
	assert.Equal(t, ast.AMIndirectX, parseOp(t, "(X)").Kind)
	assert.Equal(t, ast.AMIndirectXAutoIncrement, parseOp(t, "(X)+").Kind)
	assert.Equal(t, ast.AMIndirectY, parseOp(t, "(Y)").Kind)
}

func TestParseOperandDirectPageIndexedIndirectForms(t *testing.T) {
	mode := parseOp(t, "[$10+X]")
	assert.Equal(t, ast.AMDirectPageXIndexedIndirect, mode.Kind)

	mode = parseOp(t, "[$10]+Y")
	assert.Equal(t, ast.AMDirectPageIndirectYIndexed, mode.Kind)

	p := newParser()
	_, err := p.parseOperand("[$10]+Z", span.None)
	require.Error(t, err)
}

func TestParseOperandAbsoluteWithIndex(t *testing.T) {
	assert.Equal(t, ast.AMXIndexed, parseOp(t, "$1234+X").Kind)
	assert.Equal(t, ast.AMYIndexed, parseOp(t, "$1234+Y").Kind)
	assert.Equal(t, ast.AMAddress, parseOp(t, "$10").Kind)
}

func TestParseOperandBitAddressing(t *testing.T) {
	mode := parseOp(t, "$1234.3")
	require.Equal(t, ast.AMAddressBit, mode.Kind)
	require.True(t, mode.Addr.TryResolve(-1))
	addr, _ := mode.Addr.Resolved()
	assert.Equal(t, 0x1234, addr)
	require.True(t, mode.Bit.TryResolve(-1))
	bit, _ := mode.Bit.Resolved()
	assert.Equal(t, 3, bit)
}

func TestParseOperandNegatedBit(t *testing.T) {
	mode := parseOp(t, "/$1234.3")
	assert.Equal(t, ast.AMNegatedAddressBit, mode.Kind)
}

func TestParseOperandNegatedNonBitIsInvalid(t *testing.T) {
	p := newParser()
	_, err := p.parseOperand("/$10", span.None)
	require.Error(t, err)
}

func TestParseOperandWithForceDirectPage(t *testing.T) {
	p := newParser()
	mode, force, err := p.parseOperandWithForce("<$10", span.None)
	require.NoError(t, err)
	assert.True(t, force)
	assert.Equal(t, ast.AMAddress, mode.Kind) // forcing is applied later by AST normalization
}
