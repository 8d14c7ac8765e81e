// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package brr

import "math"

// BlockSize is the number of PCM samples one BRR block encodes.
const BlockSize = 16

// EncodedBlockSize is the number of bytes one BRR block occupies: a
// 1-byte header plus 8 bytes of packed 4-bit nibbles (two samples per
// byte), per spec.md §4.8 step 4.
const EncodedBlockSize = 9

// predictorCoeffs holds the four fixed IIR predictors spec.md §4.8
// names, as (p1 coefficient, p2 coefficient) pairs.
var predictorCoeffs = [4][2]float64{
	{0, 0},
	{15.0 / 16.0, 0},
	{61.0 / 32.0, -15.0 / 16.0},
	{115.0 / 64.0, -13.0 / 16.0},
}

// shiftRange is the set of shifts the encoder searches, −1..14. The
// header's 4-bit shift field stores shift+1, so the whole range packs
// into field values 0..15.
var shiftRange = []int{-1, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}

func predict(filter, p1, p2 int) float64 {
	c := predictorCoeffs[filter]
	return c[0]*float64(p1) + c[1]*float64(p2)
}

func clamp16(v int) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func clampNibble(v int) int {
	if v > 7 {
		return 7
	}
	if v < -8 {
		return -8
	}
	return v
}

// simulateBlock decodes 16 nibbles under the given filter/shift starting
// from warm-up samples (p2, p1) = (second-to-last, last already-decoded
// sample), returning the resulting nibbles, the decoded samples, and the
// summed squared error against the true samples.
func simulateBlock(samples []int16, filter, shift int, p1, p2 int) (nibbles [16]int, decoded [16]int16, cost float64) {
	scale := math.Pow(2, float64(shift))
	for i, s := range samples {
		pred := predict(filter, p1, p2)
		diff := float64(s) - pred
		n := clampNibble(int(math.Round(diff / scale)))
		d := int(clamp16(int(math.Round(float64(n)*scale + pred))))
		nibbles[i] = n
		decoded[i] = int16(d)
		err := float64(s) - float64(d)
		cost += err * err
		p2 = p1
		p1 = d
	}
	return
}

// EncodeBlocks encodes samples into successive 16-sample BRR blocks, per
// spec.md §4.8 steps 4-5. The final (possibly short, zero-padded) block
// has its LoopEnd flag set.
func EncodeBlocks(samples []int16) []byte {
	var out []byte
	p1, p2 := 0, 0
	for offset := 0; offset < len(samples); offset += BlockSize {
		end := offset + BlockSize
		block := make([]int16, BlockSize)
		upper := end
		if upper > len(samples) {
			upper = len(samples)
		}
		copy(block, samples[offset:upper])

		bestFilter, bestShift := 0, 0
		var bestNibbles [16]int
		var bestDecoded [16]int16
		bestCost := math.Inf(1)
		for filter := 0; filter < 4; filter++ {
			for _, shift := range shiftRange {
				nibbles, decoded, cost := simulateBlock(block, filter, shift, p1, p2)
				if cost < bestCost {
					bestCost = cost
					bestFilter = filter
					bestShift = shift
					bestNibbles = nibbles
					bestDecoded = decoded
				}
			}
		}

		isFinal := end >= len(samples)
		var flags byte
		if isFinal {
			flags |= 0x03 // LoopEnd: end (bit 0) and loop (bit 1)
		}
		header := byte((bestShift+1)<<4) | byte(bestFilter<<2) | flags
		out = append(out, header)
		for i := 0; i < BlockSize; i += 2 {
			hi := byte(bestNibbles[i]) & 0x0F
			lo := byte(bestNibbles[i+1]) & 0x0F
			out = append(out, (hi<<4)|lo)
		}

		p1 = int(bestDecoded[BlockSize-1])
		p2 = int(bestDecoded[BlockSize-2])
	}
	return out
}

// DecodeBlocks is the inverse of EncodeBlocks, used by the round-trip
// property test (spec.md §4.8: "encode(decode(b)) = b for any legal
// block").
func DecodeBlocks(data []byte) []int16 {
	var out []int16
	p1, p2 := 0, 0
	for pos := 0; pos+EncodedBlockSize <= len(data); pos += EncodedBlockSize {
		header := data[pos]
		shiftField := int(header >> 4)
		filter := int((header >> 2) & 0x03)
		scale := math.Pow(2, float64(shiftField-1))

		for i := 0; i < 8; i++ {
			b := data[pos+1+i]
			for _, nibble := range [2]byte{b >> 4, b & 0x0F} {
				n := int(int8(nibble << 4) >> 4) // sign-extend 4 bits
				pred := predict(filter, p1, p2)
				d := int(clamp16(int(math.Round(float64(n)*scale + pred))))
				out = append(out, int16(d))
				p2 = p1
				p1 = d
			}
		}
	}
	return out
}
