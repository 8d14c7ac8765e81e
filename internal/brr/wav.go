// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package brr implements the BRR codec (spec.md §4.8): reading a WAV
// container down to 16-bit mono PCM samples, and encoding/decoding the
// SNES's 9-byte ADPCM block format. Grounded on
// original_source/src/brr/mod.rs and original_source/src/brr/test.rs's
// documented header bit layout, structured the way the teacher lays out
// memory.go's byte-level accessors over a flat buffer.
package brr

import (
	"encoding/binary"

	"github.com/beevik/spc700asm/internal/asmerr"
	"github.com/beevik/spc700asm/internal/span"
)

// DecodePCM reads a WAV container and extracts 16-bit PCM mono samples,
// per spec.md §4.8 step 1. Non-mono, non-16-bit or non-PCM input is an
// audio-processing error.
func DecodePCM(data []byte, sp span.Span) ([]int16, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, asmerr.New(asmerr.KindIO, sp, "%s: not a RIFF/WAVE file", asmerr.MsgAudioProcessing)
	}

	var (
		channels      uint16
		bitsPerSample uint16
		audioFormat   uint16
		pcm           []byte
		foundFmt      bool
		foundData     bool
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			break
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, asmerr.New(asmerr.KindIO, sp, "%s: truncated fmt chunk", asmerr.MsgAudioProcessing)
			}
			audioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			foundFmt = true
		case "data":
			pcm = data[body : body+size]
			foundData = true
		}
		pos = body + size
		if size%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if !foundFmt || !foundData {
		return nil, asmerr.New(asmerr.KindIO, sp, "%s: missing fmt or data chunk", asmerr.MsgAudioProcessing)
	}
	if audioFormat != 1 {
		return nil, asmerr.New(asmerr.KindIO, sp, "%s: not PCM audio", asmerr.MsgAudioProcessing)
	}
	if channels != 1 {
		return nil, asmerr.New(asmerr.KindIO, sp, "%s: not mono", asmerr.MsgAudioProcessing)
	}
	if bitsPerSample != 16 {
		return nil, asmerr.New(asmerr.KindIO, sp, "%s: not 16-bit", asmerr.MsgAudioProcessing)
	}

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}
	return samples, nil
}

// Slice applies an optional byte-range (expressed in samples here, since
// the caller has already converted the directive's byte offset/length
// into a sample range) with a saturating upper bound, per spec.md §4.8
// step 2.
func Slice(samples []int16, offset, length int, sp span.Span) ([]int16, error) {
	if offset < 0 || offset > len(samples) {
		return nil, asmerr.New(asmerr.KindIO, sp, "%s", asmerr.MsgRangeOutOfBounds)
	}
	end := offset + length
	if end > len(samples) {
		end = len(samples)
	}
	if end < offset {
		return nil, asmerr.New(asmerr.KindIO, sp, "%s", asmerr.MsgRangeOutOfBounds)
	}
	return samples[offset:end], nil
}

// AutoTrim strips leading runs equal to the first sample and trailing
// runs equal to the last sample, preserving one of each, per spec.md
// §4.8 step 3.
func AutoTrim(samples []int16) []int16 {
	if len(samples) == 0 {
		return samples
	}
	start := 0
	first := samples[0]
	for start+1 < len(samples) && samples[start+1] == first {
		start++
	}
	end := len(samples) - 1
	last := samples[end]
	for end-1 > start && samples[end-1] == last {
		end--
	}
	return samples[start : end+1]
}
