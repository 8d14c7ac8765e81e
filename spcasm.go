// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spcasm implements the public surface of the SPC700 assembler:
// lex and parse a source file via a collaborating ast.Frontend, then run
// it through AST normalization, segment planning, the direct-page
// optimizer, instruction encoding, reference resolution and segment
// combination, per spec.md §2's dataflow. Grounded on asm/asm.go's
// Assemble(r io.Reader, verbose bool) entry point and its ordered
// steps-slice pipeline.
package spcasm

import (
	"os"

	"github.com/beevik/spc700asm/internal/asmdump"
	"github.com/beevik/spc700asm/internal/ast"
	"github.com/beevik/spc700asm/internal/encode"
	"github.com/beevik/spc700asm/internal/frontend"
	"github.com/beevik/spc700asm/internal/memstore"
	"github.com/beevik/spc700asm/internal/resolve"
	"github.com/beevik/spc700asm/internal/segment"
	"github.com/beevik/spc700asm/internal/trace"
)

// osFiles reads incbin/brr payloads and .include sources from the real
// filesystem, satisfying both internal/frontend.FileReader and
// internal/encode.FileReader's identically-shaped interfaces. Mirrors
// host/settings.go's real-filesystem default, generalized from the
// teacher's bare os.Open call in the same spot.
type osFiles struct{}

func (osFiles) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// Options configures one call to Assemble. Every field is optional; the
// zero Options assembles from the real filesystem with no tracing, the
// bundled internal/frontend parser, and spec.md §6's default tunables.
type Options struct {
	// Tracer receives progress notices from the encoder stage (label
	// addresses and BRR sizes).
	// Defaults to trace.Discard.
	Tracer trace.Tracer
	// Files loads incbin/brr payloads and .include sources. Defaults to
	// the real filesystem.
	Files interface {
		ReadFile(name string) ([]byte, error)
	}
	// Frontend lexes and parses source text into raw program elements.
	// Defaults to a new internal/frontend.Frontend reading from Files.
	Frontend ast.Frontend
	// Config holds the assembler's tunables (macro expansion depth,
	// reference resolution pass budget). Defaults to ast.DefaultConfig().
	Config ast.Config
}

func (o Options) withDefaults() Options {
	if o.Tracer == nil {
		o.Tracer = trace.Discard
	}
	if o.Files == nil {
		o.Files = osFiles{}
	}
	if o.Frontend == nil {
		if fr, ok := o.Files.(frontend.FileReader); ok {
			o.Frontend = frontend.NewWithFiles(fr)
		} else {
			o.Frontend = frontend.New()
		}
	}
	if o.Config == (ast.Config{}) {
		o.Config = ast.DefaultConfig()
	}
	return o
}

// Result is the outcome of a successful assembly.
type Result struct {
	// Code is the flat byte vector spec.md §4.7 describes: every segment
	// combined in ascending address order, gaps zero-filled.
	Code []byte
	// Dump is the full set of resolved global and local labels and their
	// final addresses, the optional reference dump spec.md §6 allows
	// alongside the binary output.
	Dump *asmdump.Dump
	// ReferenceResolutionPasses is the number of fixed-point passes the
	// Reference Resolver actually needed (spec.md §4.6), surfaced mainly
	// for diagnostics and tests checking resolution converges promptly.
	ReferenceResolutionPasses int
}

// assembler carries the state threaded through one Assemble call's step
// pipeline, the same shape asm/asm.go's unexported assembler struct plays
// for its own steps slice.
type assembler struct {
	opts     Options
	env      *ast.Environment
	elements []ast.ProgramElement
	prog     *segment.Program
	store    *memstore.Store
	code     []byte
	passes   int
}

// Assemble lexes and parses filename via opts.Frontend, then runs the
// full assembly pipeline spec.md §2 describes, returning the combined
// machine-code image and resolved reference dump.
func Assemble(filename string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	env := ast.NewEnvironment(opts.Config, opts.Frontend)
	a := &assembler{opts: opts, env: env}

	tokens, source, err := opts.Frontend.Lex(filename)
	if err != nil {
		return nil, err
	}
	file, err := env.Parse(tokens, source, filename, nil)
	if err != nil {
		return nil, err
	}
	a.elements = file.Elements

	steps := []func(a *assembler) error{
		(*assembler).planSegments,
		(*assembler).optimize,
		(*assembler).encodeSegments,
		(*assembler).resolveReferences,
		(*assembler).combine,
	}
	for _, step := range steps {
		if err := step(a); err != nil {
			return nil, err
		}
	}

	return &Result{
		Code:                      a.code,
		Dump:                      a.buildDump(),
		ReferenceResolutionPasses: a.passes,
	}, nil
}

func (a *assembler) planSegments() error {
	prog, err := segment.Plan(a.elements, a.env)
	if err != nil {
		return err
	}
	a.prog = prog
	return nil
}

func (a *assembler) optimize() error {
	return segment.Optimize(a.prog, a.opts.Config.MaxReferenceResolutionPasses)
}

func (a *assembler) encodeSegments() error {
	store, err := encode.Segments(a.prog, a.opts.Tracer, a.opts.Files)
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

func (a *assembler) resolveReferences() error {
	passes, err := resolve.Passes(a.store, a.opts.Config.MaxReferenceResolutionPasses)
	a.passes = passes
	return err
}

func (a *assembler) combine() error {
	code, err := a.store.Combine()
	if err != nil {
		return err
	}
	a.code = code
	return nil
}

// buildDump walks every global label (and its children) that reached a
// resolved address, producing the reference dump spec.md §6 allows as an
// optional exit artifact alongside the binary image.
func (a *assembler) buildDump() *asmdump.Dump {
	dump := &asmdump.Dump{}
	for _, lbl := range a.env.AllGlobals() {
		if addr, ok := lbl.ResolvedAddress(); ok {
			dump.Add(lbl.Name(), addr)
		}
		for _, local := range lbl.Locals {
			if addr, ok := local.ResolvedAddress(); ok {
				dump.Add(local.QualifiedName(), addr)
			}
		}
	}
	return dump
}
