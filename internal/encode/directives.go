// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package encode

import (
	"github.com/beevik/spc700asm/internal/asmerr"
	"github.com/beevik/spc700asm/internal/ast"
	"github.com/beevik/spc700asm/internal/brr"
	"github.com/beevik/spc700asm/internal/memstore"
	"github.com/beevik/spc700asm/internal/span"
	"github.com/beevik/spc700asm/internal/trace"
	"github.com/beevik/spc700asm/internal/value"
)

// FileReader loads the raw bytes backing an incbin or brr directive.
// Grounded on original_source/src/assembler/directive.rs's file-reading
// calls, generalized into an interface so tests can supply fixture bytes
// without touching the filesystem — the same seam host/settings.go uses
// for its own I/O collaborators.
type FileReader interface {
	ReadFile(name string) ([]byte, error)
}

func encodeDirectiveWithFiles(d *ast.Directive, addr *int, emit func(*memstore.Slot), tr trace.Tracer, files FileReader) error {
	switch d.Kind {
	case ast.DirOrg, ast.DirEnd, ast.DirMacroDef:
		// Consumed earlier (segment.Plan / AST normalization); should not
		// reach the encoder, but tolerate a stray one as a no-op rather
		// than failing the whole assembly over a bookkeeping directive.
		return nil

	case ast.DirAssign:
		return nil // applied by normalization or by encodeSegment's resolveAssignmentHere; emits no bytes

	case ast.DirTable:
		for _, entry := range d.Table {
			switch entry.Size {
			case ast.Size1:
				emit(memstore.NewDeferredSlot(*addr, d.Span, memstore.KindByteLow, entry.Value))
			case ast.Size2:
				emit(memstore.NewDeferredSlot(*addr, d.Span, memstore.KindByteLow, entry.Value))
				emit(memstore.NewDeferredSlot(*addr, d.Span, memstore.KindByteHigh, entry.Value))
			case ast.Size4:
				emit(memstore.NewDeferredSlot(*addr, d.Span, memstore.KindByteLow, entry.Value))
				emit(memstore.NewDeferredSlot(*addr, d.Span, memstore.KindByteHigh, entry.Value))
				upper := value.Binary(value.OpShiftRight, entry.Value, value.Literal(16, d.Span), d.Span)
				emit(memstore.NewDeferredSlot(*addr, d.Span, memstore.KindByteLow, upper))
				emit(memstore.NewDeferredSlot(*addr, d.Span, memstore.KindByteHigh, upper))
			}
		}
		return nil

	case ast.DirString:
		for _, b := range d.Text {
			emit(memstore.NewLiteralSlot(*addr, d.Span, b))
		}
		if d.HasNullTerminator {
			emit(memstore.NewLiteralSlot(*addr, d.Span, 0))
		}
		return nil

	case ast.DirIncBin:
		if files == nil {
			return asmerr.New(asmerr.KindIO, d.Span, "%s: %s", asmerr.MsgFileNotFound, d.File)
		}
		data, err := files.ReadFile(d.File)
		if err != nil {
			return asmerr.Wrap(asmerr.KindIO, d.Span, err, "%s: %s", asmerr.MsgFileNotFound, d.File)
		}
		data, err = sliceRange(data, d.Range, d.Span)
		if err != nil {
			return err
		}
		for _, b := range data {
			emit(memstore.NewLiteralSlot(*addr, d.Span, b))
		}
		return nil

	case ast.DirBrr:
		if files == nil {
			return asmerr.New(asmerr.KindIO, d.Span, "%s: %s", asmerr.MsgFileNotFound, d.File)
		}
		raw, err := files.ReadFile(d.File)
		if err != nil {
			return asmerr.Wrap(asmerr.KindIO, d.Span, err, "%s: %s", asmerr.MsgFileNotFound, d.File)
		}
		samples, err := brr.DecodePCM(raw, d.Span)
		if err != nil {
			return err
		}
		if d.Range != nil {
			// d.Range is in bytes; each 16-bit PCM sample is two bytes.
			samples, err = brr.Slice(samples, d.Range.Offset/2, d.Range.Length/2, d.Span)
			if err != nil {
				return err
			}
		}
		if d.AutoTrim {
			samples = brr.AutoTrim(samples)
		}
		encoded := brr.EncodeBlocks(samples)
		tr.Logf("brr: %d samples -> %d bytes", len(samples), len(encoded))
		for _, b := range encoded {
			emit(memstore.NewLiteralSlot(*addr, d.Span, b))
		}
		return nil

	case ast.DirSampleTable:
		if d.AutoAlign {
			for *addr%256 != 0 {
				emit(memstore.NewLiteralSlot(*addr, d.Span, 0))
			}
		} else if *addr%256 != 0 {
			return asmerr.New(asmerr.KindLayout, d.Span, "%s", asmerr.MsgUnalignedSampleTable)
		}
		return nil

	case ast.DirFill:
		return encodeFill(d, addr, emit)
	}
	return nil
}

func sliceRange(data []byte, r *ast.ByteRange, sp span.Span) ([]byte, error) {
	if r == nil {
		return data, nil
	}
	if r.Offset < 0 || r.Offset > len(data) {
		return nil, asmerr.New(asmerr.KindIO, sp, "%s", asmerr.MsgRangeOutOfBounds)
	}
	end := r.Offset + r.Length
	if end > len(data) {
		end = len(data)
	}
	return data[r.Offset:end], nil
}

func encodeFill(d *ast.Directive, addr *int, emit func(*memstore.Slot)) error {
	count, ok := d.FillParam.Resolved()
	if !ok {
		d.FillParam.TryResolve(-1)
		count, ok = d.FillParam.Resolved()
	}
	switch d.FillOp {
	case ast.FillBytes:
		if !ok {
			return asmerr.New(asmerr.KindLayout, d.Span, "fill amount must be a constant expression")
		}
		for i := 0; i < count; i++ {
			emit(memstore.NewDeferredSlot(*addr, d.Span, memstore.KindByteLow, d.FillValue.Value))
		}
		return nil

	case ast.FillAlign:
		if !ok {
			return asmerr.New(asmerr.KindLayout, d.Span, "fill align boundary must be a constant expression")
		}
		for *addr%count != 0 {
			emit(memstore.NewDeferredSlot(*addr, d.Span, memstore.KindByteLow, d.FillValue.Value))
		}
		return nil

	case ast.FillPad:
		if !ok {
			return asmerr.New(asmerr.KindLayout, d.Span, "pad target address must be a constant expression")
		}
		for *addr < count {
			emit(memstore.NewDeferredSlot(*addr, d.Span, memstore.KindByteLow, d.FillValue.Value))
		}
		return nil
	}
	return nil
}
