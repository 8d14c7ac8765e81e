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

func newParser() *parser {
	return &parser{env: ast.NewEnvironment(ast.DefaultConfig(), nil)}
}

func resolveConst(t *testing.T, expr string) int {
	t.Helper()
	p := newParser()
	v, err := p.parseExpr(expr, span.None)
	require.NoError(t, err)
	require.True(t, v.TryResolve(0x10))
	n, ok := v.Resolved()
	require.True(t, ok)
	return n
}

func TestParseExprLiterals(t *testing.T) {
	assert.Equal(t, 0x42, resolveConst(t, "$42"))
	assert.Equal(t, 5, resolveConst(t, "%101"))
	assert.Equal(t, 17, resolveConst(t, "17"))
}

func TestParseExprHereIsTheDollarSign(t *testing.T) {
	assert.Equal(t, 0x10, resolveConst(t, "$"))
}

func TestParseExprPrecedenceAndAssociativity(t *testing.T) {
	assert.Equal(t, 14, resolveConst(t, "2+3*4"))
	assert.Equal(t, 20, resolveConst(t, "(2+3)*4"))
	// exponent is right-associative: 2**(3**2) = 2**9 = 512, not (2**3)**2 = 64.
	assert.Equal(t, 512, resolveConst(t, "2**3**2"))
}

func TestParseExprUnaryNegateAndBitwiseNot(t *testing.T) {
	assert.Equal(t, -5, resolveConst(t, "-5"))
	assert.Equal(t, ^3, resolveConst(t, "~3"))
}

func TestParseExprRejectsTrailingGarbage(t *testing.T) {
	p := newParser()
	_, err := p.parseExpr("1 + 2 3", span.None)
	require.Error(t, err)
}

func TestParseExprRejectsEmpty(t *testing.T) {
	p := newParser()
	_, err := p.parseExpr("   ", span.None)
	require.Error(t, err)
}

func TestParseExprResolvesGlobalLabel(t *testing.T) {
	p := newParser()
	label := p.env.GetGlobal("target", span.None, ast.AsDefinition)
	label.SetLocation(0x1234)

	v, err := p.parseExpr("target", span.None)
	require.NoError(t, err)
	require.True(t, v.TryResolve(-1))
	n, _ := v.Resolved()
	assert.Equal(t, 0x1234, n)
}

func TestParseExprLocalLabelRequiresCurrentGlobal(t *testing.T) {
	p := newParser()
	_, err := p.parseExpr(".loop", span.None)
	require.Error(t, err)

	p.currentGlobal = ast.NewLabel("main", span.None)
	v, err := p.parseExpr(".loop", span.None)
	require.NoError(t, err)
	ref, ok := v.Reference()
	require.True(t, ok)
	assert.Equal(t, "main.loop", ref.Name())
}

func TestParseExprBareAnchorsAreRelativeReferences(t *testing.T) {
	p := newParser()
	v, err := p.parseExpr("+", span.None)
	require.NoError(t, err)
	ref, ok := v.Reference()
	require.True(t, ok)
	rel, ok := ref.(*ast.Relative)
	require.True(t, ok)
	assert.Equal(t, ast.Forward, rel.Dir)
	assert.Equal(t, 1, rel.ID)
}

func TestParseExprDoubledAnchorCarriesItsRepetitionId(t *testing.T) {
	p := newParser()
	v, err := p.parseExpr("++", span.None)
	require.NoError(t, err)
	ref, ok := v.Reference()
	require.True(t, ok)
	rel, ok := ref.(*ast.Relative)
	require.True(t, ok)
	assert.Equal(t, ast.Forward, rel.Dir)
	assert.Equal(t, 2, rel.ID)
}

func TestParseExprMinusFollowedByOperandIsSubtraction(t *testing.T) {
	// "$-table" is a subtraction, not a lone backward anchor, because a
	// non-comma/paren token follows the run of '-' characters.
	p := newParser()
	table := p.env.GetGlobal("table", span.None, ast.AsDefinition)
	table.SetLocation(5)

	v, err := p.parseExpr("$-table", span.None)
	require.NoError(t, err)
	require.True(t, v.TryResolve(9))
	n, _ := v.Resolved()
	assert.Equal(t, 4, n)
}

func TestParseExprMacroParamTakesPrecedenceOverGlobal(t *testing.T) {
	p := newParser()
	arg := &ast.MacroArgument{ParamName: "n"}
	p.macroParams = map[string]*ast.MacroArgument{"n": arg}

	v, err := p.parseExpr("n", span.None)
	require.NoError(t, err)
	ref, ok := v.Reference()
	require.True(t, ok)
	assert.Same(t, arg, ref)
}
