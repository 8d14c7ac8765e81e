// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frontend

import (
	"os"
	"strings"

	"github.com/beevik/spc700asm/internal/ast"
	"github.com/beevik/spc700asm/internal/span"
)

// FileReader loads source text by name. Mirrors internal/encode.FileReader's
// seam so tests can supply in-memory fixtures instead of touching disk, the
// way host/settings.go abstracts its own file access.
type FileReader interface {
	ReadFile(name string) ([]byte, error)
}

type osReader struct{}

func (osReader) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// Frontend is a thin, line-oriented implementation of ast.Frontend: good
// enough to drive the textual scenarios spec.md §8 describes, not a
// production-grade lexer/grammar (that collaborator is explicitly
// out of scope; see DESIGN.md).
type Frontend struct {
	files FileReader
	names []string
}

// New constructs a Frontend that reads source files from the real
// filesystem.
func New() *Frontend {
	return &Frontend{files: osReader{}}
}

// NewWithFiles constructs a Frontend backed by a custom FileReader, for
// tests that supply in-memory source without touching disk.
func NewWithFiles(files FileReader) *Frontend {
	return &Frontend{files: files}
}

// FileName returns the filename a given span.Span.File index was minted
// for, used only for diagnostic rendering.
func (f *Frontend) FileName(index int) (string, bool) {
	if index < 0 || index >= len(f.names) {
		return "", false
	}
	return f.names[index], true
}

// Lex reads filename and splits it into one Token per source line. Each
// token's Payload is the raw line text (including any trailing comment);
// ParseTokens strips comments itself so that error spans can still point at
// the comment text if ever useful.
func (f *Frontend) Lex(filename string) (tokens []ast.Token, source string, err error) {
	data, err := f.files.ReadFile(filename)
	if err != nil {
		return nil, "", err
	}
	source = string(data)

	fileIndex := len(f.names)
	f.names = append(f.names, filename)

	lines := strings.Split(source, "\n")
	tokens = make([]ast.Token, len(lines))
	offset := 0
	for i, line := range lines {
		tokens[i] = ast.Token{
			Span:    span.Span{File: fileIndex, Offset: offset, Length: len(line)},
			Payload: line,
		}
		offset += len(line) + 1
	}
	return tokens, source, nil
}

// ParseTokens builds a raw ProgramElement list from a token stream lexed by
// Lex.
func (f *Frontend) ParseTokens(tokens []ast.Token, env *ast.Environment, sourceName string) ([]ast.ProgramElement, error) {
	p := &parser{env: env}
	return p.parseLines(tokens)
}
