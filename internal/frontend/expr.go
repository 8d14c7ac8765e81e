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
	"github.com/beevik/spc700asm/internal/value"
)

// exprState walks one expression substring left to right, the way
// asm/expr.go's exprParser walks a token queue with a shunting-yard
// precedence table. Here the "tokens" are recognized directly off the
// character stream since operand expressions are always short, single-line
// substrings.
type exprState struct {
	p   *parser
	s   string
	pos int
	sp  span.Span
}

// binOpPrec gives each binary operator's precedence, spec.md §3's operator
// set ordered loosest-to-tightest: bitwise or, xor, and, shifts, add/sub,
// mul/div/mod, exponent (right-associative).
var binOpPrec = map[value.Op]int{
	value.OpOr:         1,
	value.OpXor:        2,
	value.OpAnd:        3,
	value.OpShiftLeft:  4,
	value.OpShiftRight: 4,
	value.OpAdd:        5,
	value.OpSubtract:   5,
	value.OpMultiply:   6,
	value.OpDivide:     6,
	value.OpModulo:     6,
	value.OpExponent:   7,
}

func (p *parser) parseExpr(s string, sp span.Span) (*value.Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, asmerr.New(asmerr.KindParse, sp, "expected an expression")
	}
	es := &exprState{p: p, s: s, sp: sp}
	v, err := es.parseBinary(0)
	if err != nil {
		return nil, err
	}
	es.skipWhitespace()
	if es.pos != len(es.s) {
		return nil, asmerr.New(asmerr.KindParse, sp, "unexpected trailing text in expression: %q", es.s[es.pos:])
	}
	return v, nil
}

func (es *exprState) skipWhitespace() {
	for es.pos < len(es.s) && (es.s[es.pos] == ' ' || es.s[es.pos] == '\t') {
		es.pos++
	}
}

func (es *exprState) peekByte() (byte, bool) {
	if es.pos >= len(es.s) {
		return 0, false
	}
	return es.s[es.pos], true
}

// peekBinaryOp reports the binary operator at the current position, if
// any, and its byte width, without consuming it.
func (es *exprState) peekBinaryOp() (value.Op, int, bool) {
	es.skipWhitespace()
	rest := es.s[es.pos:]
	switch {
	case strings.HasPrefix(rest, "**"):
		return value.OpExponent, 2, true
	case strings.HasPrefix(rest, "<<"):
		return value.OpShiftLeft, 2, true
	case strings.HasPrefix(rest, ">>"):
		return value.OpShiftRight, 2, true
	case strings.HasPrefix(rest, "+"):
		return value.OpAdd, 1, true
	case strings.HasPrefix(rest, "-"):
		return value.OpSubtract, 1, true
	case strings.HasPrefix(rest, "*"):
		return value.OpMultiply, 1, true
	case strings.HasPrefix(rest, "/"):
		return value.OpDivide, 1, true
	case strings.HasPrefix(rest, "%"):
		return value.OpModulo, 1, true
	case strings.HasPrefix(rest, "&"):
		return value.OpAnd, 1, true
	case strings.HasPrefix(rest, "|"):
		return value.OpOr, 1, true
	case strings.HasPrefix(rest, "^"):
		return value.OpXor, 1, true
	}
	return 0, 0, false
}

func (es *exprState) parseBinary(minPrec int) (*value.Value, error) {
	left, err := es.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, width, ok := es.peekBinaryOp()
		if !ok {
			break
		}
		prec := binOpPrec[op]
		if prec < minPrec {
			break
		}
		es.pos += width
		nextMin := prec + 1
		if op == value.OpExponent {
			nextMin = prec // right-associative
		}
		right, err := es.parseBinary(nextMin)
		if err != nil {
			return nil, err
		}
		left = value.Binary(op, left, right, es.sp)
	}
	return left, nil
}

// parseUnary also disambiguates a bare run of '+' or '-' characters with
// nothing following (a relative-anchor reference, spec.md §3) from the
// unary negate operator, per DESIGN.md's relative-anchor grounding note.
func (es *exprState) parseUnary() (*value.Value, error) {
	es.skipWhitespace()
	if rel, ok, err := es.tryParseAnchor(); ok || err != nil {
		return rel, err
	}
	c, ok := es.peekByte()
	if !ok {
		return nil, asmerr.New(asmerr.KindParse, es.sp, "expected an expression")
	}
	switch c {
	case '-':
		es.pos++
		child, err := es.parseUnary()
		if err != nil {
			return nil, err
		}
		return value.Unary(value.OpNegate, child, es.sp), nil
	case '~':
		es.pos++
		child, err := es.parseUnary()
		if err != nil {
			return nil, err
		}
		return value.Unary(value.OpBitwiseNot, child, es.sp), nil
	}
	return es.parsePrimary()
}

func (es *exprState) tryParseAnchor() (*value.Value, bool, error) {
	c, ok := es.peekByte()
	if !ok || (c != '+' && c != '-') {
		return nil, false, nil
	}
	i := es.pos
	for i < len(es.s) && es.s[i] == c {
		i++
	}
	rest := strings.TrimLeft(es.s[i:], " \t")
	if rest != "" && rest[0] != ')' && rest[0] != ',' {
		return nil, false, nil // not a bare anchor; let '+'/'-' fall through as operators
	}
	dir := ast.Forward
	if c == '-' {
		dir = ast.Backward
	}
	id := i - es.pos
	es.pos = i
	ref := &ast.Relative{Dir: dir, ID: id, Span: es.sp}
	return value.Ref(ref, es.sp), true, nil
}

func (es *exprState) parsePrimary() (*value.Value, error) {
	es.skipWhitespace()
	c, ok := es.peekByte()
	if !ok {
		return nil, asmerr.New(asmerr.KindParse, es.sp, "expected an expression")
	}

	switch {
	case c == '(':
		es.pos++
		v, err := es.parseBinary(0)
		if err != nil {
			return nil, err
		}
		es.skipWhitespace()
		if b, ok := es.peekByte(); !ok || b != ')' {
			return nil, asmerr.New(asmerr.KindParse, es.sp, "expected closing ')'")
		}
		es.pos++
		return v, nil

	case c == '*':
		es.pos++
		return value.Here(es.sp), nil

	case c == '$':
		if es.pos+1 < len(es.s) && hexadecimal(es.s[es.pos+1]) {
			start := es.pos + 1
			end := start
			for end < len(es.s) && hexadecimal(es.s[end]) {
				end++
			}
			n, err := strconv.ParseInt(es.s[start:end], 16, 64)
			if err != nil {
				return nil, asmerr.New(asmerr.KindParse, es.sp, "invalid hex literal: %s", es.s[start:end])
			}
			es.pos = end
			return value.Literal(int(n), es.sp), nil
		}
		es.pos++
		return value.Here(es.sp), nil

	case c == '%':
		if es.pos+1 < len(es.s) && binaryDigit(es.s[es.pos+1]) {
			start := es.pos + 1
			end := start
			for end < len(es.s) && binaryDigit(es.s[end]) {
				end++
			}
			n, err := strconv.ParseInt(es.s[start:end], 2, 64)
			if err != nil {
				return nil, asmerr.New(asmerr.KindParse, es.sp, "invalid binary literal: %s", es.s[start:end])
			}
			es.pos = end
			return value.Literal(int(n), es.sp), nil
		}
		return nil, asmerr.New(asmerr.KindParse, es.sp, "unexpected '%%' in expression")

	case decimal(c):
		start := es.pos
		end := start
		for end < len(es.s) && decimal(es.s[end]) {
			end++
		}
		n, err := strconv.Atoi(es.s[start:end])
		if err != nil {
			return nil, asmerr.New(asmerr.KindParse, es.sp, "invalid decimal literal: %s", es.s[start:end])
		}
		es.pos = end
		return value.Literal(n, es.sp), nil

	case c == '.' || identifierStartChar(c):
		return es.parseIdentifier()
	}
	return nil, asmerr.New(asmerr.KindParse, es.sp, "unexpected character %q in expression", c)
}

func (es *exprState) parseIdentifier() (*value.Value, error) {
	start := es.pos
	local := false
	if es.s[es.pos] == '.' {
		local = true
		es.pos++
	}
	idStart := es.pos
	for es.pos < len(es.s) && identifierChar(es.s[es.pos]) {
		es.pos++
	}
	if es.pos == idStart {
		return nil, asmerr.New(asmerr.KindParse, es.sp, "expected identifier at %q", es.s[start:])
	}
	name := es.s[idStart:es.pos]

	if local {
		ref, err := es.p.localRef(name, es.sp)
		if err != nil {
			return nil, err
		}
		return value.Ref(ref, es.sp), nil
	}

	// global.local qualified reference
	if es.pos < len(es.s) && es.s[es.pos] == '.' {
		dotPos := es.pos
		es.pos++
		localStart := es.pos
		for es.pos < len(es.s) && identifierChar(es.s[es.pos]) {
			es.pos++
		}
		if es.pos > localStart {
			localName := es.s[localStart:es.pos]
			g := es.p.env.GetGlobal(name, es.sp, ast.AsAddress)
			return value.Ref(g.Local(localName, es.sp), es.sp), nil
		}
		es.pos = dotPos
	}

	if arg, ok := es.p.macroParam(name); ok {
		return value.Ref(arg, es.sp), nil
	}
	g := es.p.env.GetGlobal(name, es.sp, ast.AsAddress)
	return value.Ref(g, es.sp), nil
}
