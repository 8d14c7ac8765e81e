// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frontend

import (
	"strings"

	"github.com/beevik/spc700asm/internal/asmerr"
	"github.com/beevik/spc700asm/internal/ast"
	"github.com/beevik/spc700asm/internal/span"
	"github.com/beevik/spc700asm/internal/value"
)

// parser drives the line-oriented grammar spec.md §6 describes: an
// optional label, then a directive or instruction. It tracks just enough
// state across lines — the current global label, and (inside a macro
// body) the formal parameter names — to resolve local labels and macro
// arguments as they're encountered, the way asm/asm.go's assembler keeps
// a running "current label" across the lines of one pass.
type parser struct {
	env           *ast.Environment
	currentGlobal *ast.Label
	macroParams   map[string]*ast.MacroArgument
}

// localRef resolves a leading-dot local label name against the current
// global label, per spec.md §4.1's "local label used without a preceding
// global label" rule.
func (p *parser) localRef(name string, sp span.Span) (*ast.LocalLabel, error) {
	if p.currentGlobal == nil {
		return nil, asmerr.New(asmerr.KindReference, sp, "%s", asmerr.MsgMissingGlobalLabel)
	}
	return p.currentGlobal.Local(name, sp), nil
}

// macroParam reports whether name is a formal parameter of the macro body
// currently being parsed.
func (p *parser) macroParam(name string) (*ast.MacroArgument, bool) {
	if p.macroParams == nil {
		return nil, false
	}
	arg, ok := p.macroParams[name]
	return arg, ok
}

// parseLines parses a token stream into raw program elements. It walks by
// index rather than ranging directly over tokens so that a "macro" header
// line can consume the body lines (and its terminating "endmacro") as a
// unit instead of each being parsed as an independent statement.
func (p *parser) parseLines(tokens []ast.Token) ([]ast.ProgramElement, error) {
	var out []ast.ProgramElement
	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		raw, _ := tok.Payload.(string)
		text := strings.TrimSpace(stripComment(raw))
		if text == "" {
			i++
			continue
		}

		if kw, rest, ok := splitKeyword(text); ok && strings.EqualFold(kw, "macro") {
			def, consumed, err := p.parseMacroDef(tokens, i, rest, tok.Span)
			if err != nil {
				return nil, err
			}
			p.env.DefineMacro(def)
			out = append(out, &ast.Directive{Span: tok.Span, Kind: ast.DirMacroDef, Macro: def})
			i += consumed
			continue
		}

		elems, err := p.parseStatement(text, tok.Span)
		if err != nil {
			return nil, err
		}
		out = append(out, elems...)
		i++
	}
	return out, nil
}

// parseMacroDef parses a "macro NAME p1, p2" header at tokens[headerIdx]
// and collects body lines up to and including a matching "endmacro",
// returning the definition and the number of tokens consumed (including
// both the header and the endmacro line).
func (p *parser) parseMacroDef(tokens []ast.Token, headerIdx int, headerRest string, headerSpan span.Span) (*ast.MacroDef, int, error) {
	name, paramNames, err := parseMacroHeader(headerRest)
	if err != nil {
		return nil, 0, err
	}
	if name == "" {
		return nil, 0, asmerr.New(asmerr.KindParse, headerSpan, "macro definition is missing a name")
	}

	end := -1
	for j := headerIdx + 1; j < len(tokens); j++ {
		raw, _ := tokens[j].Payload.(string)
		text := strings.TrimSpace(stripComment(raw))
		if strings.EqualFold(text, "endmacro") {
			end = j
			break
		}
	}
	if end < 0 {
		return nil, 0, asmerr.New(asmerr.KindParse, headerSpan, "macro %s has no matching endmacro", name)
	}

	params := make([]*ast.MacroArgument, len(paramNames))
	for i, pn := range paramNames {
		params[i] = &ast.MacroArgument{ParamName: pn, Span: headerSpan}
	}

	savedParams, savedGlobal := p.macroParams, p.currentGlobal
	p.macroParams = make(map[string]*ast.MacroArgument, len(params))
	for _, a := range params {
		p.macroParams[a.ParamName] = a
	}
	p.currentGlobal = ast.NewLabel(name+"$body", headerSpan)

	body, err := p.parseLines(tokens[headerIdx+1 : end])

	p.macroParams, p.currentGlobal = savedParams, savedGlobal
	if err != nil {
		return nil, 0, err
	}

	def := &ast.MacroDef{Name: name, Params: params, Body: body, Span: headerSpan}
	return def, end - headerIdx + 1, nil
}

func parseMacroHeader(rest string) (name string, params []string, err error) {
	rest = strings.TrimSpace(rest)
	idx := strings.IndexAny(rest, " \t")
	if idx < 0 {
		return rest, nil, nil
	}
	name = rest[:idx]
	paramsStr := strings.TrimSpace(rest[idx:])
	if paramsStr == "" {
		return name, nil, nil
	}
	for _, part := range splitTopLevel(paramsStr, ',') {
		part = strings.TrimSpace(part)
		if part != "" {
			params = append(params, part)
		}
	}
	return name, params, nil
}

// parseStatement parses one non-empty, non-macro-header source line: an
// optional "label:" prefix followed by an optional directive or
// instruction.
func (p *parser) parseStatement(text string, sp span.Span) ([]ast.ProgramElement, error) {
	label, rest, hasLabel, err := p.splitLabel(text, sp)
	if err != nil {
		return nil, err
	}

	rest = strings.TrimSpace(rest)

	var out []ast.ProgramElement
	if hasLabel {
		out = append(out, &ast.LabelDef{Span: sp, Ref: label})
	}
	if rest == "" {
		return out, nil
	}

	el, err := p.parseInstructionOrDirective(rest, sp)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return out, nil
	}
	if hasLabel {
		switch e := el.(type) {
		case *ast.Instruction:
			e.AttachedLabel = label
		case *ast.Directive:
			e.AttachedLabel = label
		}
	}
	return append(out, el), nil
}

// splitLabel peels a leading "label:" off text, if the token before the
// first unquoted colon is shaped like a label (spec.md §3: a global
// identifier, a leading-dot local identifier, or a run of '+'/'-').
func (p *parser) splitLabel(text string, sp span.Span) (ast.Reference, string, bool, error) {
	idx := findUnquotedColon(text)
	if idx < 0 {
		return nil, text, false, nil
	}
	candidate := strings.TrimSpace(text[:idx])
	kind := classifyLabelToken(candidate)
	if kind == labelInvalid {
		return nil, text, false, nil
	}
	rest := text[idx+1:]

	switch kind {
	case labelGlobal:
		lbl := p.env.GetGlobal(candidate, sp, ast.AsDefinition)
		p.currentGlobal = lbl
		return lbl, rest, true, nil
	case labelLocal:
		ref, err := p.localRef(candidate[1:], sp)
		if err != nil {
			return nil, "", false, err
		}
		return ref, rest, true, nil
	case labelRelForward:
		return &ast.Relative{Dir: ast.Forward, ID: len(candidate), Span: sp}, rest, true, nil
	case labelRelBackward:
		return &ast.Relative{Dir: ast.Backward, ID: len(candidate), Span: sp}, rest, true, nil
	}
	return nil, text, false, nil
}

// parseInstructionOrDirective parses whatever follows an optional label:
// a constant assignment, a keyword directive, a macro call, or an
// instruction mnemonic with operands.
func (p *parser) parseInstructionOrDirective(rest string, sp span.Span) (ast.ProgramElement, error) {
	if idx := findUnquotedEquals(rest); idx >= 0 {
		return p.parseAssign(rest[:idx], rest[idx+1:], sp)
	}

	kw, after, ok := splitKeyword(rest)
	if !ok {
		return nil, nil
	}

	switch strings.ToUpper(kw) {
	case "ORG":
		v, err := p.parseExpr(after, sp)
		if err != nil {
			return nil, err
		}
		return &ast.Directive{Span: sp, Kind: ast.DirOrg, Origin: v}, nil
	case "END":
		return &ast.Directive{Span: sp, Kind: ast.DirEnd}, nil
	case "INCLUDE":
		name, err := parseQuotedString(strings.TrimSpace(after), sp)
		if err != nil {
			return nil, err
		}
		return &ast.IncludeSource{Span: sp, File: name}, nil
	case "DB", "BYTE":
		return p.parseTableDirective(after, sp, ast.Size1)
	case "DW", "WORD":
		return p.parseTableDirective(after, sp, ast.Size2)
	case "DD", "DWORD":
		return p.parseTableDirective(after, sp, ast.Size4)
	case "ASCII":
		text, err := parseQuotedBytes(strings.TrimSpace(after), sp)
		if err != nil {
			return nil, err
		}
		return &ast.Directive{Span: sp, Kind: ast.DirString, Text: text}, nil
	case "ASCIIZ":
		text, err := parseQuotedBytes(strings.TrimSpace(after), sp)
		if err != nil {
			return nil, err
		}
		return &ast.Directive{Span: sp, Kind: ast.DirString, Text: text, HasNullTerminator: true}, nil
	case "INCBIN":
		return p.parseIncBin(after, sp)
	case "BRR":
		return p.parseBrr(after, sp)
	case "SAMPLETABLE":
		auto := strings.Contains(strings.ToUpper(after), "ALIGN")
		return &ast.Directive{Span: sp, Kind: ast.DirSampleTable, AutoAlign: auto}, nil
	case "FILL":
		return p.parseFill(after, sp, ast.FillBytes)
	case "PAD":
		return p.parseFill(after, sp, ast.FillPad)
	case "SET":
		parts := splitTopLevel(after, ',')
		if len(parts) != 2 {
			return nil, asmerr.New(asmerr.KindParse, sp, "set requires a target and a value")
		}
		return p.parseAssign(parts[0], parts[1], sp)
	case "MACRO":
		return nil, asmerr.New(asmerr.KindParse, sp, "nested macro definitions are not supported")
	case "ENDMACRO":
		return nil, asmerr.New(asmerr.KindParse, sp, "endmacro without a matching macro")
	default:
		if def, isMacro := p.env.Macro(kw); isMacro {
			return p.parseMacroCall(def, kw, after, sp)
		}
		return p.parseInstruction(kw, after, sp)
	}
}

func (p *parser) parseMacroCall(def *ast.MacroDef, name, after string, sp span.Span) (*ast.MacroCall, error) {
	after = strings.TrimSpace(after)
	var args []*value.Value
	if after != "" {
		for _, part := range splitTopLevel(after, ',') {
			v, err := p.parseExpr(strings.TrimSpace(part), sp)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
	}
	_ = def
	return &ast.MacroCall{Span: sp, Name: name, Args: args}, nil
}

// parseAssign parses the "name = expr" constant-assignment form (spec.md
// §6). The target must be a global or local label; macro arguments are
// rejected here (and defensively again by ApplyAssignments).
func (p *parser) parseAssign(name, exprStr string, sp span.Span) (*ast.Directive, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, asmerr.New(asmerr.KindParse, sp, "expected an assignment target")
	}

	var target ast.Reference
	switch {
	case strings.HasPrefix(name, "."):
		ref, err := p.localRef(name[1:], sp)
		if err != nil {
			return nil, err
		}
		target = ref
	default:
		if _, ok := p.macroParam(name); ok {
			return nil, asmerr.New(asmerr.KindReference, sp, "%s", asmerr.MsgAssignMacroArgument)
		}
		lbl := p.env.GetGlobal(name, sp, ast.AsDefinition)
		p.currentGlobal = lbl
		target = lbl
	}

	v, err := p.parseExpr(exprStr, sp)
	if err != nil {
		return nil, err
	}
	return &ast.Directive{Span: sp, Kind: ast.DirAssign, AssignTo: target, AssignValue: v}, nil
}

func (p *parser) parseRangeSpec(s string, sp span.Span) (*ast.ByteRange, error) {
	parts := splitTopLevel(s, ':')
	if len(parts) != 2 {
		return nil, asmerr.New(asmerr.KindParse, sp, "expected an offset:length byte range")
	}
	offVal, err := p.parseExpr(strings.TrimSpace(parts[0]), sp)
	if err != nil {
		return nil, err
	}
	lenVal, err := p.parseExpr(strings.TrimSpace(parts[1]), sp)
	if err != nil {
		return nil, err
	}
	if !offVal.TryResolve(-1) || !lenVal.TryResolve(-1) {
		return nil, asmerr.New(asmerr.KindParse, sp, "byte range bounds must be constant expressions")
	}
	off, _ := offVal.Resolved()
	length, _ := lenVal.Resolved()
	return &ast.ByteRange{Offset: off, Length: length}, nil
}

func (p *parser) parseIncBin(after string, sp span.Span) (*ast.Directive, error) {
	parts := splitTopLevel(after, ',')
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return nil, asmerr.New(asmerr.KindParse, sp, "incbin requires a filename")
	}
	name, err := parseQuotedString(strings.TrimSpace(parts[0]), sp)
	if err != nil {
		return nil, err
	}
	d := &ast.Directive{Span: sp, Kind: ast.DirIncBin, File: name}
	if len(parts) > 1 {
		r, err := p.parseRangeSpec(strings.TrimSpace(parts[1]), sp)
		if err != nil {
			return nil, err
		}
		d.Range = r
	}
	return d, nil
}

func (p *parser) parseBrr(after string, sp span.Span) (*ast.Directive, error) {
	parts := splitTopLevel(after, ',')
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return nil, asmerr.New(asmerr.KindParse, sp, "brr requires a filename")
	}
	name, err := parseQuotedString(strings.TrimSpace(parts[0]), sp)
	if err != nil {
		return nil, err
	}
	d := &ast.Directive{Span: sp, Kind: ast.DirBrr, File: name}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.ContainsRune(part, ':') {
			r, err := p.parseRangeSpec(part, sp)
			if err != nil {
				return nil, err
			}
			d.Range = r
			continue
		}
		if strings.EqualFold(part, "trim") || strings.EqualFold(part, "autotrim") {
			d.AutoTrim = true
			continue
		}
		return nil, asmerr.New(asmerr.KindParse, sp, "unrecognized brr option: %s", part)
	}
	return d, nil
}

func (p *parser) parseFill(after string, sp span.Span, op ast.FillOperation) (*ast.Directive, error) {
	text := strings.TrimSpace(after)
	if op == ast.FillBytes {
		if kw2, after2, ok := splitKeyword(text); ok && strings.EqualFold(kw2, "align") {
			return p.parseFill(after2, sp, ast.FillAlign)
		}
	}
	parts := splitTopLevel(text, ',')
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return nil, asmerr.New(asmerr.KindParse, sp, "expected a fill amount")
	}
	param, err := p.parseExpr(strings.TrimSpace(parts[0]), sp)
	if err != nil {
		return nil, err
	}
	fv := &ast.SizedValue{Value: value.Literal(0, sp), Size: ast.Size1}
	if len(parts) > 1 {
		v, err := p.parseExpr(strings.TrimSpace(parts[1]), sp)
		if err != nil {
			return nil, err
		}
		fv = &ast.SizedValue{Value: v, Size: ast.Size1}
	}
	return &ast.Directive{Span: sp, Kind: ast.DirFill, FillOp: op, FillParam: param, FillValue: fv}, nil
}

func (p *parser) parseTableDirective(after string, sp span.Span, size ast.Size) (*ast.Directive, error) {
	after = strings.TrimSpace(after)
	if after == "" {
		return nil, asmerr.New(asmerr.KindParse, sp, "expected at least one value")
	}
	var entries []ast.SizedValue
	for _, item := range splitTopLevel(after, ',') {
		item = strings.TrimSpace(item)
		if size == ast.Size1 && strings.HasPrefix(item, `"`) {
			bytes, err := parseQuotedBytes(item, sp)
			if err != nil {
				return nil, err
			}
			for _, b := range bytes {
				entries = append(entries, ast.SizedValue{Value: value.Literal(int(b), sp), Size: ast.Size1})
			}
			continue
		}
		v, err := p.parseExpr(item, sp)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.SizedValue{Value: v, Size: size})
	}
	return &ast.Directive{Span: sp, Kind: ast.DirTable, Table: entries}, nil
}

// parseInstruction parses "MNEMONIC [operand1[, operand2]]". A leading '<'
// on an operand forces direct-page addressing (Instruction.ForceDirectPage),
// mirroring the '<'/'>' width-forcing convention of 6502-family assemblers
// the teacher's own mnemonic table descends from.
func (p *parser) parseInstruction(mnemonic, operandsStr string, sp span.Span) (*ast.Instruction, error) {
	instr := &ast.Instruction{Span: sp, Mnemonic: strings.ToUpper(strings.TrimSpace(mnemonic))}

	operandsStr = strings.TrimSpace(operandsStr)
	if operandsStr == "" {
		return instr, nil
	}

	parts := splitTopLevel(operandsStr, ',')
	if len(parts) > 2 {
		return nil, asmerr.New(asmerr.KindParse, sp, "%s", asmerr.MsgTwoOperandsNotAllowed)
	}

	first, forceFirst, err := p.parseOperandWithForce(parts[0], sp)
	if err != nil {
		return nil, err
	}
	instr.First = first
	instr.ForceDirectPage = forceFirst

	if len(parts) == 2 {
		second, forceSecond, err := p.parseOperandWithForce(parts[1], sp)
		if err != nil {
			return nil, err
		}
		instr.Second = second
		instr.ForceDirectPage = instr.ForceDirectPage || forceSecond
	}
	return instr, nil
}

func (p *parser) parseOperandWithForce(raw string, sp span.Span) (*ast.AddressingMode, bool, error) {
	s := strings.TrimSpace(raw)
	force := false
	if strings.HasPrefix(s, "<") {
		force = true
		s = strings.TrimSpace(s[1:])
	}
	mode, err := p.parseOperand(s, sp)
	return mode, force, err
}
