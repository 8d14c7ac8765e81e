// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frontend

import (
	"strings"

	"github.com/beevik/spc700asm/internal/asmerr"
	"github.com/beevik/spc700asm/internal/span"
)

// splitKeyword splits s into its first whitespace-delimited word and
// whatever follows, the way asm/fstring.go's consumeWhile/consumeWhitespace
// pair peels a directive or mnemonic keyword off a source line.
func splitKeyword(s string) (keyword, rest string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", false
	}
	i := 0
	for i < len(s) && !whitespace(s[i]) {
		i++
	}
	return s[:i], s[i:], true
}

// splitTopLevel splits s on sep, ignoring occurrences inside a quoted
// string or nested inside ()/[] — the addressing-mode operand forms use
// both, and a db list's string items may themselves contain commas.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"':
			quote = c
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		default:
			if c == sep && depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// findUnquotedColon returns the index of the first ':' not inside a quoted
// string, or -1. Used to split a leading label definition off a statement.
func findUnquotedColon(s string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '"' {
			quote = c
			continue
		}
		if c == ':' {
			return i
		}
	}
	return -1
}

// findUnquotedEquals returns the index of the first '=' not inside a
// quoted string, used to recognize a `name = expr` constant assignment
// (spec.md §6) ahead of the keyword-directive dispatch.
func findUnquotedEquals(s string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '"' {
			quote = c
			continue
		}
		if c == '=' {
			return i
		}
	}
	return -1
}

// labelKind classifies the token preceding an unquoted ':' as one of the
// label shapes spec.md §3 describes.
type labelKind byte

const (
	labelInvalid labelKind = iota
	labelGlobal
	labelLocal
	labelRelForward
	labelRelBackward
)

func classifyLabelToken(s string) labelKind {
	if s == "" {
		return labelInvalid
	}
	allPlus, allMinus := true, true
	for i := 0; i < len(s); i++ {
		if s[i] != '+' {
			allPlus = false
		}
		if s[i] != '-' {
			allMinus = false
		}
	}
	if allPlus {
		return labelRelForward
	}
	if allMinus {
		return labelRelBackward
	}
	if s[0] == '.' {
		if len(s) < 2 || !identifierStartChar(s[1]) {
			return labelInvalid
		}
		for i := 2; i < len(s); i++ {
			if !identifierChar(s[i]) {
				return labelInvalid
			}
		}
		return labelLocal
	}
	if !identifierStartChar(s[0]) {
		return labelInvalid
	}
	for i := 1; i < len(s); i++ {
		if !identifierChar(s[i]) {
			return labelInvalid
		}
	}
	return labelGlobal
}

// parseQuotedString parses a single double-quoted string literal
// (spec.md §6), returning its unescaped text.
func parseQuotedString(s string, sp span.Span) (string, error) {
	b, err := parseQuotedBytes(s, sp)
	return string(b), err
}

// parseQuotedBytes parses a double-quoted string literal with C-style
// backslash escapes (\n \t \r \0 \\ \"), grounded on asm/fstring.go's
// quote-aware scanning (consumeUntilUnquotedChar).
func parseQuotedBytes(s string, sp span.Span) ([]byte, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return nil, asmerr.New(asmerr.KindParse, sp, "expected a quoted string, got %q", s)
	}
	inner := s[1 : len(s)-1]
	out := make([]byte, 0, len(inner))
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\\' && i+1 < len(inner) {
			i++
			switch inner[i] {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case '0':
				out = append(out, 0)
			case '\\':
				out = append(out, '\\')
			case '"':
				out = append(out, '"')
			default:
				out = append(out, inner[i])
			}
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
