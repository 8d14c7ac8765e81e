// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package brr

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beevik/spc700asm/internal/span"
)

func buildWAV(t *testing.T, channels, bitsPerSample uint16, samples []int16) []byte {
	t.Helper()
	var pcm []byte
	for _, s := range samples {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(s))
		pcm = append(pcm, b[:]...)
	}

	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:2], 1) // PCM
	binary.LittleEndian.PutUint16(fmtChunk[2:4], channels)
	binary.LittleEndian.PutUint32(fmtChunk[4:8], 44100)
	binary.LittleEndian.PutUint32(fmtChunk[8:12], 44100*uint32(channels)*uint32(bitsPerSample)/8)
	binary.LittleEndian.PutUint16(fmtChunk[12:14], channels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(fmtChunk[14:16], bitsPerSample)

	var buf []byte
	buf = append(buf, []byte("RIFF")...)
	buf = append(buf, make([]byte, 4)...) // size, unchecked by DecodePCM
	buf = append(buf, []byte("WAVE")...)

	buf = append(buf, []byte("fmt ")...)
	var sz [4]byte
	binary.LittleEndian.PutUint32(sz[:], uint32(len(fmtChunk)))
	buf = append(buf, sz[:]...)
	buf = append(buf, fmtChunk...)

	buf = append(buf, []byte("data")...)
	binary.LittleEndian.PutUint32(sz[:], uint32(len(pcm)))
	buf = append(buf, sz[:]...)
	buf = append(buf, pcm...)

	require.True(t, len(buf) > 0)
	return buf
}

func TestDecodePCMMonoSixteenBit(t *testing.T) {
	want := []int16{1, -2, 3, -4, 32767, -32768}
	wav := buildWAV(t, 1, 16, want)
	got, err := DecodePCM(wav, span.None)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodePCMRejectsNotRIFF(t *testing.T) {
	_, err := DecodePCM([]byte("not a wav file at all"), span.None)
	assert.Error(t, err)
}

func TestDecodePCMRejectsStereo(t *testing.T) {
	wav := buildWAV(t, 2, 16, []int16{1, 2, 3, 4})
	_, err := DecodePCM(wav, span.None)
	assert.Error(t, err)
}

func TestDecodePCMRejectsEightBit(t *testing.T) {
	wav := buildWAV(t, 1, 8, []int16{1, 2})
	_, err := DecodePCM(wav, span.None)
	assert.Error(t, err)
}

func TestSliceWithinBounds(t *testing.T) {
	samples := []int16{0, 1, 2, 3, 4, 5}
	got, err := Slice(samples, 2, 3, span.None)
	require.NoError(t, err)
	assert.Equal(t, []int16{2, 3, 4}, got)
}

func TestSliceSaturatesLength(t *testing.T) {
	samples := []int16{0, 1, 2}
	got, err := Slice(samples, 1, 100, span.None)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 2}, got)
}

func TestSliceRejectsOffsetOutOfBounds(t *testing.T) {
	samples := []int16{0, 1, 2}
	_, err := Slice(samples, 10, 1, span.None)
	assert.Error(t, err)
}

func TestAutoTrimStripsLeadingAndTrailingRuns(t *testing.T) {
	samples := []int16{5, 5, 5, 1, 2, 3, 9, 9}
	got := AutoTrim(samples)
	assert.Equal(t, []int16{5, 1, 2, 3, 9}, got)
}

func TestAutoTrimEmpty(t *testing.T) {
	assert.Empty(t, AutoTrim(nil))
}

func TestAutoTrimAllSameSample(t *testing.T) {
	got := AutoTrim([]int16{7, 7, 7, 7})
	assert.Equal(t, []int16{7}, got)
}
