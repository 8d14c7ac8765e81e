// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frontend

import (
	"strconv"
	"strings"

	"github.com/beevik/spc700asm/internal/asmerr"
	"github.com/beevik/spc700asm/internal/ast"
	"github.com/beevik/spc700asm/internal/span"
)

// parseOperand parses one addressing-mode operand (spec.md §6). Long and
// direct-page forms share identical syntax ("expr", "expr+X", "expr.bit");
// the distinction is purely a question of the operand's resolved value, so
// this always builds the long-form Kind and leaves narrowing to AST
// normalization's CoerceToDirectPageAddressing pass and the direct-page
// optimizer (internal/segment), per DESIGN.md.
func (p *parser) parseOperand(raw string, sp span.Span) (*ast.AddressingMode, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, asmerr.New(asmerr.KindParse, sp, "empty operand")
	}

	negated := false
	if strings.HasPrefix(s, "/") {
		negated = true
		s = strings.TrimSpace(s[1:])
	}

	if reg, ok := registerName(s); ok {
		if negated {
			return nil, asmerr.New(asmerr.KindAddressing, sp, "%s", asmerr.MsgInvalidAddressingMode)
		}
		return &ast.AddressingMode{Kind: ast.AMRegister, Reg: reg}, nil
	}

	if strings.HasPrefix(s, "#") {
		v, err := p.parseExpr(s[1:], sp)
		if err != nil {
			return nil, err
		}
		mode := ast.Simple(ast.AMImmediate, v)
		return &mode, nil
	}

	switch s {
	case "(X)+":
		mode := ast.Simple(ast.AMIndirectXAutoIncrement, nil)
		return &mode, nil
	case "(X)":
		mode := ast.Simple(ast.AMIndirectX, nil)
		return &mode, nil
	case "(Y)":
		mode := ast.Simple(ast.AMIndirectY, nil)
		return &mode, nil
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "+X]") {
		inner := s[1 : len(s)-len("+X]")]
		v, err := p.parseExpr(inner, sp)
		if err != nil {
			return nil, err
		}
		mode := ast.Simple(ast.AMDirectPageXIndexedIndirect, v)
		return &mode, nil
	}
	if strings.HasPrefix(s, "[") {
		closeIdx := strings.Index(s, "]")
		if closeIdx < 0 || s[closeIdx+1:] != "+Y" {
			return nil, asmerr.New(asmerr.KindAddressing, sp, "%s", asmerr.MsgInvalidAddressingMode)
		}
		inner := s[1:closeIdx]
		v, err := p.parseExpr(inner, sp)
		if err != nil {
			return nil, err
		}
		mode := ast.Simple(ast.AMDirectPageIndirectYIndexed, v)
		return &mode, nil
	}

	rest := s
	kind := ast.AMAddress
	switch {
	case strings.HasSuffix(rest, "+X"):
		kind = ast.AMXIndexed
		rest = rest[:len(rest)-2]
	case strings.HasSuffix(rest, "+Y"):
		kind = ast.AMYIndexed
		rest = rest[:len(rest)-2]
	}
	rest = strings.TrimSpace(rest)

	if dot := bitSuffixIndex(rest); dot >= 0 {
		if kind != ast.AMAddress {
			return nil, asmerr.New(asmerr.KindAddressing, sp, "%s", asmerr.MsgInvalidAddressingMode)
		}
		addrExpr := rest[:dot]
		bitExpr := rest[dot+1:]
		addrVal, err := p.parseExpr(addrExpr, sp)
		if err != nil {
			return nil, err
		}
		bitVal, err := p.parseExpr(bitExpr, sp)
		if err != nil {
			return nil, err
		}
		bitKind := ast.AMAddressBit
		if negated {
			bitKind = ast.AMNegatedAddressBit
		}
		mode := ast.Bit(bitKind, addrVal, bitVal)
		return &mode, nil
	}
	if negated {
		return nil, asmerr.New(asmerr.KindAddressing, sp, "%s", asmerr.MsgInvalidAddressingMode)
	}

	v, err := p.parseExpr(rest, sp)
	if err != nil {
		return nil, err
	}
	mode := ast.Simple(kind, v)
	return &mode, nil
}

func registerName(s string) (ast.Register, bool) {
	switch strings.ToUpper(s) {
	case "A":
		return ast.RegA, true
	case "X":
		return ast.RegX, true
	case "Y":
		return ast.RegY, true
	case "YA":
		return ast.RegYA, true
	case "SP":
		return ast.RegSP, true
	case "PSW":
		return ast.RegPSW, true
	case "C":
		return ast.RegC, true
	}
	return ast.RegNone, false
}

// bitSuffixIndex returns the index of a trailing ".N" bit-index suffix
// (N being 0-7), or -1 if rest has none. A leading-dot local-label
// reference ("." + name) is not mistaken for this, since the suffix is
// searched from the end and must be all decimal digits.
func bitSuffixIndex(rest string) int {
	dot := strings.LastIndexByte(rest, '.')
	if dot < 0 || dot == len(rest)-1 {
		return -1
	}
	digits := rest[dot+1:]
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || n > 7 {
		return -1
	}
	return dot
}
