// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beevik/spc700asm/internal/span"
)

// stubFrontend is a minimal Frontend that hands back whatever elements were
// configured for a given source text, used to drive Environment.Parse
// without a real lexer/grammar.
type stubFrontend struct {
	elements map[string][]ProgramElement
}

func (f *stubFrontend) Lex(filename string) ([]Token, string, error) {
	return nil, filename, nil
}

func (f *stubFrontend) ParseTokens(tokens []Token, env *Environment, sourceName string) ([]ProgramElement, error) {
	return f.elements[sourceName], nil
}

func TestGetGlobalIsIdempotent(t *testing.T) {
	env := NewEnvironment(DefaultConfig(), nil)
	a := env.GetGlobal("main", span.None, AsDefinition)
	b := env.GetGlobal("main", span.None, AsAddress)
	assert.Same(t, a, b)
	assert.True(t, b.UsedAsAddress)
}

func TestGetGlobalDefinitionOverwritesSpan(t *testing.T) {
	env := NewEnvironment(DefaultConfig(), nil)
	first := span.Span{File: 0, Offset: 1}
	second := span.Span{File: 0, Offset: 99}
	env.GetGlobal("main", first, AsDefinition)
	l := env.GetGlobal("main", second, AsDefinition)
	assert.Equal(t, second, l.Span)
}

func TestAllGlobalsPreservesFirstSeenOrder(t *testing.T) {
	env := NewEnvironment(DefaultConfig(), nil)
	env.GetGlobal("c", span.None, AsAddress)
	env.GetGlobal("a", span.None, AsAddress)
	env.GetGlobal("b", span.None, AsAddress)
	names := make([]string, 0, 3)
	for _, l := range env.AllGlobals() {
		names = append(names, l.Name())
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestFreshNameNeverCollidesWithARegisteredGlobal(t *testing.T) {
	env := NewEnvironment(DefaultConfig(), nil)
	env.GetGlobal("brr_sample_1", span.None, AsDefinition)
	name := env.FreshName("brr_sample")
	assert.NotEqual(t, "brr_sample_1", name)
	_, err := env.LookupGlobal(name)
	assert.Error(t, err, "a freshly minted name must not already be registered")
}

func TestMacroDefineAndLookup(t *testing.T) {
	env := NewEnvironment(DefaultConfig(), nil)
	_, ok := env.Macro("m")
	assert.False(t, ok)

	def := &MacroDef{Name: "m"}
	env.DefineMacro(def)
	got, ok := env.Macro("m")
	require.True(t, ok)
	assert.Same(t, def, got)
}

func TestParseRunsNormalizationAndRegistersFile(t *testing.T) {
	label := NewLabel("main", span.None)
	fe := &stubFrontend{elements: map[string][]ProgramElement{
		"main.asm": {&LabelDef{Ref: label}},
	}}
	env := NewEnvironment(DefaultConfig(), fe)
	file, err := env.Parse(nil, "source text", "main.asm", nil)
	require.NoError(t, err)
	assert.False(t, file.HasUnresolvedSourceIncludes())

	again, ok := env.FindFileBySource("source text")
	require.True(t, ok)
	assert.Same(t, file, again)
}

func TestParseReturnsCachedFileForRepeatedSource(t *testing.T) {
	fe := &stubFrontend{elements: map[string][]ProgramElement{"a.asm": nil}}
	env := NewEnvironment(DefaultConfig(), fe)
	first, err := env.Parse(nil, "same source", "a.asm", nil)
	require.NoError(t, err)
	second, err := env.Parse(nil, "same source", "a.asm", nil)
	require.NoError(t, err)
	assert.Same(t, first, second)
}
