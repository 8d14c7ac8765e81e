// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memstore holds the post-encode, pre-resolve memory image: one
// Slot per emitted byte, addressed absolutely, some already literal and
// some still a deferred AssemblyTimeValue. Grounded on
// original_source/src/assembler/mod.rs's AssembledData /
// LabeledMemoryValue, generalized from the teacher's plain []byte output
// buffer (asm/asm.go's a.segments) since this assembler needs to keep
// per-byte provenance alive past the point bytes are first emitted.
package memstore

import (
	"github.com/beevik/spc700asm/internal/asmerr"
	"github.com/beevik/spc700asm/internal/span"
	"github.com/beevik/spc700asm/internal/value"
)

// Kind identifies how a Slot's final byte is computed once its Value (and,
// for KindBitPackedHigh, Bit) resolves.
type Kind byte

const (
	// KindByteLow takes bits 0-7 of Value.
	KindByteLow Kind = iota
	// KindByteHigh takes bits 8-15 of Value.
	KindByteHigh
	// KindRelative computes a signed 8-bit branch offset: Value (the
	// branch target) minus PCAfterOperand, per spec.md §4.5.
	KindRelative
	// KindBitPackedHigh packs an absolute-bit operand's high byte:
	// (address_high & 0x1F) | (bit_index << 5), per spec.md §4.5. Value
	// must already be the address's high byte (shifted down by 8), not the
	// full address; resolving to a high byte outside 0-0x1F is the
	// bit-addressable-absolute overflow spec.md §9 documents.
	KindBitPackedHigh
)

// Slot is one byte of the eventual output, still possibly deferred.
type Slot struct {
	Address int
	Span    span.Span
	Kind    Kind

	Value *value.Value // nil only if Literal is already set
	Bit   *value.Value // only used by KindBitPackedHigh

	// PCAfterOperand is the program counter immediately after this
	// instruction's operand byte, used by KindRelative.
	PCAfterOperand int

	resolved bool
	byte     byte
}

// NewLiteralSlot constructs an already-resolved slot, used for bytes whose
// value never depended on a reference (opcodes, string/table literal
// bytes, fill bytes, BRR-encoded bytes).
func NewLiteralSlot(addr int, sp span.Span, b byte) *Slot {
	return &Slot{Address: addr, Span: sp, resolved: true, byte: b}
}

// NewDeferredSlot constructs a slot whose byte depends on resolving v.
func NewDeferredSlot(addr int, sp span.Span, kind Kind, v *value.Value) *Slot {
	return &Slot{Address: addr, Span: sp, Kind: kind, Value: v}
}

// NewRelativeSlot constructs a branch-offset slot.
func NewRelativeSlot(addr int, sp span.Span, target *value.Value, pcAfterOperand int) *Slot {
	return &Slot{Address: addr, Span: sp, Kind: KindRelative, Value: target, PCAfterOperand: pcAfterOperand}
}

// NewBitPackedHighSlot constructs the packed-high-byte slot of a
// bit-addressable absolute operand.
func NewBitPackedHighSlot(addr int, sp span.Span, addrHigh, bit *value.Value) *Slot {
	return &Slot{Address: addr, Span: sp, Kind: KindBitPackedHigh, Value: addrHigh, Bit: bit}
}

// Resolved reports whether this slot's final byte is known.
func (s *Slot) Resolved() bool { return s.resolved }

// Byte returns the slot's final byte; only valid once Resolved is true.
func (s *Slot) Byte() byte { return s.byte }

// TryResolve attempts to collapse this slot to a final byte. It reports
// whether the slot's resolved state changed as a result of this call, the
// signal internal/resolve's fixed-point loop watches for (spec.md §4.6:
// "a pass reports whether any slot changed"). An error is returned only
// for a slot whose resolved value is out of range for its Kind (spec.md
// §9's bit-addressable-absolute overflow policy); such an error is
// terminal and internal/resolve propagates it immediately rather than
// retrying further passes.
func (s *Slot) TryResolve() (bool, error) {
	if s.resolved {
		return false, nil
	}
	switch s.Kind {
	case KindByteLow:
		if !s.Value.TryResolve(-1) {
			return false, nil
		}
		n, _ := s.Value.Resolved()
		s.byte = byte(n & 0xFF)

	case KindByteHigh:
		if !s.Value.TryResolve(-1) {
			return false, nil
		}
		n, _ := s.Value.Resolved()
		s.byte = byte((n >> 8) & 0xFF)

	case KindRelative:
		if !s.Value.TryResolve(-1) {
			return false, nil
		}
		target, _ := s.Value.Resolved()
		offset := target - s.PCAfterOperand
		s.byte = byte(int8(offset))

	case KindBitPackedHigh:
		if !s.Value.TryResolve(-1) || !s.Bit.TryResolve(-1) {
			return false, nil
		}
		addrHigh, _ := s.Value.Resolved()
		bit, _ := s.Bit.Resolved()
		if addrHigh < 0 || addrHigh > 0x1F {
			return false, asmerr.New(asmerr.KindAddressing, s.Span, "%s", asmerr.MsgBitAddressOutOfRange)
		}
		s.byte = byte((addrHigh & 0x1F) | (bit << 5))
	}
	s.resolved = true
	return true, nil
}

// Segment is the encoded form of a segment.Segment: an origin plus a flat
// ordered run of slots.
type Segment struct {
	Origin int
	Slots  []*Slot
}

// Store is the full set of encoded segments produced by internal/encode,
// consumed by internal/resolve and then Combine.
type Store struct {
	Segments []*Segment
}

// AllSlots returns every slot across every segment, in segment then
// in-segment order — not necessarily address order across segments,
// which is only established by Combine.
func (s *Store) AllSlots() []*Slot {
	var out []*Slot
	for _, seg := range s.Segments {
		out = append(out, seg.Slots...)
	}
	return out
}

// Combine walks segments in ascending origin order, per spec.md §4.7,
// zero-filling gaps and failing on overlap or rewind.
func (s *Store) Combine() ([]byte, error) {
	segs := make([]*Segment, len(s.Segments))
	copy(segs, s.Segments)
	for i := 1; i < len(segs); i++ {
		for j := i; j > 0 && segs[j-1].Origin > segs[j].Origin; j-- {
			segs[j-1], segs[j] = segs[j], segs[j-1]
		}
	}

	var out []byte
	for _, seg := range segs {
		if seg.Origin < len(out) {
			sp := span.None
			if len(seg.Slots) > 0 {
				sp = seg.Slots[0].Span
			}
			return nil, asmerr.New(asmerr.KindLayout, sp, "%s", asmerr.MsgSectionMismatch)
		}
		for len(out) < seg.Origin {
			out = append(out, 0)
		}
		for _, slot := range seg.Slots {
			if !slot.Resolved() {
				return nil, asmerr.New(asmerr.KindReference, slot.Span, "%s", asmerr.MsgUnresolvedLabel)
			}
			out = append(out, slot.Byte())
		}
	}
	return out, nil
}
