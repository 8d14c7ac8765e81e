// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beevik/spc700asm/internal/asmerr"
	"github.com/beevik/spc700asm/internal/memstore"
	"github.com/beevik/spc700asm/internal/span"
	"github.com/beevik/spc700asm/internal/value"
)

type fakeRef struct {
	addr int
	ok   bool
}

func (f *fakeRef) ResolvedAddress() (int, bool) { return f.addr, f.ok }
func (f *fakeRef) Name() string                 { return "ref" }

func TestPassesResolvesInOnePassWhenAlreadyKnown(t *testing.T) {
	ref := &fakeRef{addr: 0x20, ok: true}
	store := &memstore.Store{Segments: []*memstore.Segment{{
		Slots: []*memstore.Slot{
			memstore.NewDeferredSlot(0, span.None, memstore.KindByteLow, value.Ref(ref, span.None)),
		},
	}}}
	passes, err := Passes(store, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, passes)
}

func TestPassesStopsAtFirstUnchangedPass(t *testing.T) {
	store := &memstore.Store{Segments: []*memstore.Segment{{
		Slots: []*memstore.Slot{
			memstore.NewLiteralSlot(0, span.None, 0xFF),
		},
	}}}
	passes, err := Passes(store, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, passes, "no deferred slots means the first pass changes nothing and the loop stops immediately")
}

func TestPassesStopsImmediatelyOnOutOfRangeBitAddress(t *testing.T) {
	store := &memstore.Store{Segments: []*memstore.Segment{{
		Slots: []*memstore.Slot{
			memstore.NewBitPackedHighSlot(0, span.None, value.Literal(0x20, span.None), value.Literal(2, span.None)),
		},
	}}}
	_, err := Passes(store, 10)
	require.Error(t, err)
	var asmErr *asmerr.Error
	require.ErrorAs(t, err, &asmErr)
	assert.Equal(t, asmerr.KindAddressing, asmErr.Kind)
}

func TestPassesUnresolvableErrors(t *testing.T) {
	ref := &fakeRef{ok: false}
	store := &memstore.Store{Segments: []*memstore.Segment{{
		Slots: []*memstore.Slot{
			memstore.NewDeferredSlot(0, span.None, memstore.KindByteLow, value.Ref(ref, span.None)),
		},
	}}}
	passes, err := Passes(store, 3)
	assert.Equal(t, 1, passes, "the first pass changes nothing, so the loop stops before the cap")
	require.Error(t, err)
	var asmErr *asmerr.Error
	require.ErrorAs(t, err, &asmErr)
	assert.Equal(t, asmerr.KindReference, asmErr.Kind)
	assert.Equal(t, asmerr.MsgUnresolvedLabel, asmErr.Message)
}
