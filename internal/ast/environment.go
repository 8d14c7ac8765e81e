// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast

import (
	"fmt"
	"sync"

	"github.com/beevik/prefixtree/v2"

	"github.com/beevik/spc700asm/internal/asmerr"
	"github.com/beevik/spc700asm/internal/span"
)

// Usage records why a global label was looked up, per spec.md §4.1:
// AsDefinition overwrites the label's definition span; AsAddress marks the
// label as having been used in an address context.
type Usage byte

const (
	AsDefinition Usage = iota
	AsAddress
)

// Config enumerates the tunables spec.md §6 lists. Mirrors the way the
// teacher inlines its own constants (a.origin default, an implicit
// MAX_PASSES) as configurable fields instead, per SPEC_FULL.md's ambient
// stack expansion.
type Config struct {
	MaxMacroExpansionDepth       int
	MaxReferenceResolutionPasses int
}

// DefaultConfig returns the configuration spec.md §6 names as defaults.
func DefaultConfig() Config {
	return Config{
		MaxMacroExpansionDepth:       1000,
		MaxReferenceResolutionPasses: 10,
	}
}

// File is one parsed assembly source file as it moves through AST
// Normalization (spec.md §4.2): Elements starts as the raw parse and is
// progressively rewritten in place by each sub-pass.
type File struct {
	Source             string // the file's source text, used as its identity key
	Name               string
	IncludePath        []string // names of files that transitively included this one
	Elements           []ProgramElement
	unresolvedIncludes bool
}

// HasUnresolvedSourceIncludes reports whether this file still has
// un-expanded IncludeSource elements, used by Environment.FindFileBySource
// to detect include cycles (spec.md §4.1's find_file_by_source).
func (f *File) HasUnresolvedSourceIncludes() bool {
	return f.unresolvedIncludes
}

// Frontend is the collaborator spec.md §1 excludes from the core: a lexer
// and grammar driver that turns raw file content into a token stream and
// then a raw ProgramElement list. Environment.Parse and
// Environment.ResolveSourceIncludes call it; internal/frontend provides
// one (thin, test-oriented) implementation, and a production front-end
// supplies its own.
type Frontend interface {
	// Lex reads and tokenizes the named file, returning its raw source text
	// alongside the token stream (the source text is the file-table
	// identity key FindFileBySource uses for cycle detection).
	Lex(filename string) (tokens []Token, source string, err error)
	// ParseTokens builds a raw ProgramElement list from a token stream.
	ParseTokens(tokens []Token, env *Environment, sourceName string) ([]ProgramElement, error)
}

// Token is an opaque lexed unit. The core never inspects its fields; it
// only threads the slice through to Frontend.ParseTokens. Concrete lexers attach
// whatever payload they need via the Payload field.
type Token struct {
	Span    span.Span
	Payload any
}

// Environment is the symbol table and file registry shared across a whole
// assembly, including recursively included files. Grounded on
// original_source/src/sema/mod.rs's Environment (globals, files,
// options) and get_global_label.
type Environment struct {
	Config Config

	mu       sync.RWMutex
	globals  *prefixtree.Tree[*Label]
	order    []*Label
	files    map[string]*File
	macros   map[string]*MacroDef
	fresh    int
	frontend Frontend
}

// NewEnvironment constructs an environment backed by the given frontend
// collaborator.
func NewEnvironment(cfg Config, frontend Frontend) *Environment {
	return &Environment{
		Config:   cfg,
		globals:  prefixtree.New[*Label](),
		files:    make(map[string]*File),
		macros:   make(map[string]*MacroDef),
		frontend: frontend,
	}
}

// GetGlobal performs the idempotent lookup-or-insert spec.md §4.1
// describes. Locking is a plain (non-reentrant) sync.RWMutex: the only
// recursion in this core is Parse re-entering itself for include
// resolution, and Parse never calls GetGlobal while already holding the
// lock across that recursive call — see SPEC_FULL.md §5.
func (e *Environment) GetGlobal(name string, sp span.Span, usage Usage) *Label {
	e.mu.Lock()
	defer e.mu.Unlock()

	label, err := e.globals.FindValue(name)
	if err != nil {
		label = NewLabel(name, sp)
		e.globals.Add(name, label)
		e.order = append(e.order, label)
	}
	switch usage {
	case AsDefinition:
		label.Span = sp
	case AsAddress:
		label.UsedAsAddress = true
	}
	return label
}

// AllGlobals returns every global label created so far, in first-seen
// order, for diagnostics and the reference dump (internal/asmdump) to
// walk without needing to iterate the prefix tree directly.
func (e *Environment) AllGlobals() []*Label {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Label, len(e.order))
	copy(out, e.order)
	return out
}

// LookupGlobal finds a global label by unambiguous prefix, the same
// abbreviation-matching operation beevik/cmd uses prefixtree for. FreshName
// does its own collision check through the prefix tree and does not call
// this.
func (e *Environment) LookupGlobal(prefix string) (*Label, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.globals.FindValue(prefix)
}

// FreshName mints a name guaranteed unused by any global label registered
// so far, for macro-global pseudo-labels and BRR sample synthetic labels
// (spec.md §4.3's brr_sample_K).
func (e *Environment) FreshName(prefix string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	for {
		e.fresh++
		name := fmt.Sprintf("%s_%d", prefix, e.fresh)
		if _, err := e.globals.FindValue(name); err != nil {
			return name
		}
	}
}

// DefineMacro registers a user macro definition. Redefinition replaces the
// previous definition, matching the teacher's pseudoOps-style "last one
// wins" table semantics.
func (e *Environment) DefineMacro(def *MacroDef) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.macros[def.Name] = def
}

// Macro looks up a user macro definition by name.
func (e *Environment) Macro(name string) (*MacroDef, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.macros[name]
	return m, ok
}

// FindFileBySource returns the already-registered File for the given
// source text, and whether such a file is registered at all — used by
// include resolution to detect cycles, per spec.md §4.1.
func (e *Environment) FindFileBySource(source string) (*File, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	f, ok := e.files[source]
	return f, ok
}

// registerFile inserts a file into the file table before its includes are
// resolved, so a recursive include back to the same source text is
// detectable as a cycle rather than re-parsed.
func (e *Environment) registerFile(f *File) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.files[f.Source] = f
}

// Parse lexes and parses source into a File, then runs the normalization
// sub-passes, per spec.md §4.1 ("parse(tokens, source)") and §4.2. includePath
// is the chain of files whose inclusion led here, used to prepend to any
// further nested include and to detect cycles.
func (e *Environment) Parse(tokens []Token, source, name string, includePath []string) (*File, error) {
	if existing, ok := e.FindFileBySource(source); ok {
		if existing.HasUnresolvedSourceIncludes() {
			return nil, asmerr.New(asmerr.KindIO, span.None, "%s: %s", asmerr.MsgIncludeCycle, name)
		}
		return existing, nil
	}

	elements, err := e.frontend.ParseTokens(tokens, e, name)
	if err != nil {
		return nil, err
	}

	file := &File{
		Source:             source,
		Name:               name,
		IncludePath:        includePath,
		Elements:           elements,
		unresolvedIncludes: true,
	}
	e.registerFile(file)

	if err := ResolveUserMacroArguments(file); err != nil {
		return nil, err
	}
	if err := ApplyAssignments(file); err != nil {
		return nil, err
	}
	if err := CoerceToDirectPageAddressing(file); err != nil {
		return nil, err
	}
	if err := e.ResolveSourceIncludes(file); err != nil {
		return nil, err
	}
	file.unresolvedIncludes = false
	if err := e.ExpandUserMacros(file); err != nil {
		return nil, err
	}
	if err := FillInReferenceLinks(file); err != nil {
		return nil, err
	}
	return file, nil
}
