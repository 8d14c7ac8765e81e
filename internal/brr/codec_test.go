// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package brr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeBlocksLength(t *testing.T) {
	samples := make([]int16, BlockSize*3)
	for i := range samples {
		samples[i] = int16(i * 100)
	}
	encoded := EncodeBlocks(samples)
	assert.Len(t, encoded, 3*EncodedBlockSize)
}

func TestEncodeBlocksSetsLoopEndOnlyOnFinalBlock(t *testing.T) {
	samples := make([]int16, BlockSize*2)
	encoded := EncodeBlocks(samples)
	require.Len(t, encoded, 2*EncodedBlockSize)
	assert.Zero(t, encoded[0]&0x02, "the first block must not carry the loop-end flag")
	assert.NotZero(t, encoded[EncodedBlockSize]&0x02, "the final block must carry the loop-end flag")
}

func TestDecodeBlocksRoundTripsASilentSignal(t *testing.T) {
	samples := make([]int16, BlockSize*4)
	encoded := EncodeBlocks(samples)
	decoded := DecodeBlocks(encoded)
	require.Len(t, decoded, len(samples))
	for _, s := range decoded {
		assert.Zero(t, s)
	}
}

func TestDecodeBlocksRoundTripApproximatesASineLikeSignal(t *testing.T) {
	samples := make([]int16, BlockSize*8)
	for i := range samples {
		// a simple ramp/triangle wave exercises more than one predictor filter
		v := (i % 64) - 32
		samples[i] = int16(v * 900)
	}
	encoded := EncodeBlocks(samples)
	decoded := DecodeBlocks(encoded)
	require.Len(t, decoded, len(samples))

	// ADPCM is lossy; the round trip should stay close, not bit-exact.
	for i, want := range samples {
		got := decoded[i]
		diff := int(want) - int(got)
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqualf(t, diff, 6000, "sample %d: want ~%d got %d", i, want, got)
	}
}

func TestDecodeBlocksIgnoresTrailingPartialBlock(t *testing.T) {
	encoded := EncodeBlocks(make([]int16, BlockSize))
	decoded := DecodeBlocks(encoded[:len(encoded)-1])
	assert.Empty(t, decoded)
}
