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

func tokensFor(lines ...string) []ast.Token {
	toks := make([]ast.Token, len(lines))
	for i, l := range lines {
		toks[i] = ast.Token{Span: span.Span{File: 0, Offset: i, Length: len(l)}, Payload: l}
	}
	return toks
}

func TestParseLinesScenario1(t *testing.T) {
	p := &parser{env: ast.NewEnvironment(ast.DefaultConfig(), nil)}
	elements, err := p.parseLines(tokensFor("org $0000", "main: mov a,#$42", "ret"))
	require.NoError(t, err)
	require.Len(t, elements, 4)

	org, ok := elements[0].(*ast.Directive)
	require.True(t, ok)
	assert.Equal(t, ast.DirOrg, org.Kind)

	instr, ok := elements[2].(*ast.Instruction)
	require.True(t, ok)
	assert.Equal(t, "MOV", instr.Mnemonic)
	require.NotNil(t, instr.AttachedLabel)
	assert.Equal(t, "main", instr.AttachedLabel.Name())

	ret, ok := elements[3].(*ast.Instruction)
	require.True(t, ok)
	assert.Equal(t, "RET", ret.Mnemonic)
}

func TestParseLinesSkipsBlankAndCommentOnlyLines(t *testing.T) {
	p := &parser{env: ast.NewEnvironment(ast.DefaultConfig(), nil)}
	elements, err := p.parseLines(tokensFor("", "  ", "; just a comment", "nop"))
	require.NoError(t, err)
	require.Len(t, elements, 1)
}

func TestParseLinesLocalLabelDefinitionAndBranchToIt(t *testing.T) {
	p := &parser{env: ast.NewEnvironment(ast.DefaultConfig(), nil)}
	elements, err := p.parseLines(tokensFor("main:", ".loop: nop", "bra .loop"))
	require.NoError(t, err)
	require.Len(t, elements, 4)

	localDef, ok := elements[1].(*ast.LabelDef)
	require.True(t, ok)
	assert.Equal(t, "main.loop", localDef.Ref.Name())
}

func TestParseLinesRelativeLabelDefCarriesItsRepetitionId(t *testing.T) {
	p := &parser{env: ast.NewEnvironment(ast.DefaultConfig(), nil)}
	elements, err := p.parseLines(tokensFor("++: nop"))
	require.NoError(t, err)
	require.Len(t, elements, 2)

	def, ok := elements[0].(*ast.LabelDef)
	require.True(t, ok)
	rel, ok := def.Ref.(*ast.Relative)
	require.True(t, ok)
	assert.Equal(t, ast.Forward, rel.Dir)
	assert.Equal(t, 2, rel.ID)
}

func TestParseLinesAssignment(t *testing.T) {
	p := &parser{env: ast.NewEnvironment(ast.DefaultConfig(), nil)}
	elements, err := p.parseLines(tokensFor("table: db $01,$02,$03,$04", "len = *-table"))
	require.NoError(t, err)
	require.Len(t, elements, 3)

	assign, ok := elements[2].(*ast.Directive)
	require.True(t, ok)
	assert.Equal(t, ast.DirAssign, assign.Kind)
	assert.Equal(t, "len", assign.AssignTo.Name())
}

func TestParseLinesMacroDefinitionAndCall(t *testing.T) {
	env := ast.NewEnvironment(ast.DefaultConfig(), nil)
	p := &parser{env: env}
	elements, err := p.parseLines(tokensFor(
		"macro double n",
		"mov a,#n",
		"endmacro",
		"double $5",
	))
	require.NoError(t, err)
	require.Len(t, elements, 2)

	def, ok := elements[0].(*ast.Directive)
	require.True(t, ok)
	assert.Equal(t, ast.DirMacroDef, def.Kind)
	assert.Equal(t, "double", def.Macro.Name)
	require.Len(t, def.Macro.Params, 1)
	assert.Equal(t, "n", def.Macro.Params[0].ParamName)

	call, ok := elements[1].(*ast.MacroCall)
	require.True(t, ok)
	assert.Equal(t, "double", call.Name)
	require.Len(t, call.Args, 1)

	_, isMacro := env.Macro("double")
	assert.True(t, isMacro)
}

func TestParseLinesMacroMissingEndmacroErrors(t *testing.T) {
	p := &parser{env: ast.NewEnvironment(ast.DefaultConfig(), nil)}
	_, err := p.parseLines(tokensFor("macro double n", "mov a,#n"))
	require.Error(t, err)
}

func TestParseLinesRejectsTooManyOperands(t *testing.T) {
	p := &parser{env: ast.NewEnvironment(ast.DefaultConfig(), nil)}
	_, err := p.parseLines(tokensFor("mov a, b, c"))
	require.Error(t, err)
}

func TestParseLinesIncludeAndFillDirectives(t *testing.T) {
	p := &parser{env: ast.NewEnvironment(ast.DefaultConfig(), nil)}
	elements, err := p.parseLines(tokensFor(`include "shared.inc"`, "fill 3,$EE", "fill align 8"))
	require.NoError(t, err)
	require.Len(t, elements, 3)

	inc, ok := elements[0].(*ast.IncludeSource)
	require.True(t, ok)
	assert.Equal(t, "shared.inc", inc.File)

	fill, ok := elements[1].(*ast.Directive)
	require.True(t, ok)
	assert.Equal(t, ast.DirFill, fill.Kind)
	assert.Equal(t, ast.FillBytes, fill.FillOp)

	align, ok := elements[2].(*ast.Directive)
	require.True(t, ok)
	assert.Equal(t, ast.FillAlign, align.FillOp)
}

func TestParseLinesIncBinWithRange(t *testing.T) {
	p := &parser{env: ast.NewEnvironment(ast.DefaultConfig(), nil)}
	elements, err := p.parseLines(tokensFor(`incbin "blob.bin",2:3`))
	require.NoError(t, err)
	require.Len(t, elements, 1)
	dir, ok := elements[0].(*ast.Directive)
	require.True(t, ok)
	require.NotNil(t, dir.Range)
	assert.Equal(t, 2, dir.Range.Offset)
	assert.Equal(t, 3, dir.Range.Length)
}
