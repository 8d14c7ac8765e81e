// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spcasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beevik/spc700asm/internal/brr"
)

type memFiles map[string][]byte

func (f memFiles) ReadFile(name string) ([]byte, error) {
	if data, ok := f[name]; ok {
		return data, nil
	}
	return nil, notFoundErr(name)
}

type notFoundErr string

func (e notFoundErr) Error() string { return "not found: " + string(e) }

func assembleSource(t *testing.T, source string, files memFiles) *Result {
	t.Helper()
	all := memFiles{"main.asm": []byte(source)}
	for name, data := range files {
		all[name] = data
	}
	result, err := Assemble("main.asm", Options{Files: all})
	require.NoError(t, err)
	return result
}

// TestScenarioMovImmediateThenRet covers the simplest shape: an
// immediate-mode load followed by a return.
func TestScenarioMovImmediateThenRet(t *testing.T) {
	result := assembleSource(t, "org $0000\nmain: mov a,#$42\nret\n", nil)
	assert.Equal(t, []byte{0xE8, 0x42, 0x6F}, result.Code)
}

// TestScenarioBranchToPrecedingLabel covers a backward branch whose offset
// is computed against pc_after_operand, per DESIGN.md's documented
// resolution of the source text's own internal inconsistency (-3, not -2).
func TestScenarioBranchToPrecedingLabel(t *testing.T) {
	result := assembleSource(t, "org $0200\nmain:\n.loop:\nnop\nbra .loop\n", nil)
	assert.Equal(t, append(make([]byte, 0x0200), 0x00, 0x2F, 0xFD), result.Code)
}

// TestScenarioDirectPageImmediateSwapsByteOrder covers the hardware quirk
// that a dp,#imm instruction's bytes are emitted source-before-destination.
func TestScenarioDirectPageImmediateSwapsByteOrder(t *testing.T) {
	result := assembleSource(t, "org 0\nmov $10,#$AA\n", nil)
	assert.Equal(t, []byte{0x8F, 0xAA, 0x10}, result.Code)
}

// TestScenarioAssignmentAgainstTableLength covers `len = *-table`
// resolving against the segment's own running address once `table` has
// been placed.
func TestScenarioAssignmentAgainstTableLength(t *testing.T) {
	result := assembleSource(t, "org 0\ntable: db $01,$02,$03,$04\nlen = *-table\n", nil)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, result.Code)

	require.NotNil(t, result.Dump)
	var addr int
	var found bool
	for _, e := range result.Dump.Entries {
		if e.Name == "len" {
			addr, found = e.Address, true
		}
	}
	require.True(t, found)
	assert.Equal(t, 4, addr)
}

// TestScenarioForwardJumpEmitsLittleEndianAbsolute covers a forward
// reference to a label placed at 0x0100, past the zero page.
func TestScenarioForwardJumpEmitsLittleEndianAbsolute(t *testing.T) {
	var src string
	src = "org 0\njmp forward\n"
	for i := 0; i < 0x100-3; i++ {
		src += "nop\n"
	}
	src += "forward: nop\n"

	result := assembleSource(t, src, nil)
	require.True(t, len(result.Code) >= 3)
	assert.Equal(t, byte(0x5F), result.Code[0])
	assert.Equal(t, byte(0x00), result.Code[1])
	assert.Equal(t, byte(0x01), result.Code[2])
}

// TestScenarioIncBinWithByteRange covers a sliced binary include.
func TestScenarioIncBinWithByteRange(t *testing.T) {
	result := assembleSource(t, `org 0
incbin "blob.bin",2:3
`, memFiles{"blob.bin": {0x00, 0x11, 0x22, 0x33, 0x44, 0x55}})
	assert.Equal(t, []byte{0x22, 0x33, 0x44}, result.Code)
}

// TestBrrRoundTripPreservesLowDynamicRangeBlocks pins the property that
// re-encoding a decoded block reproduces the original encoding whenever the
// source samples fit comfortably in the codec's dynamic range.
func TestBrrRoundTripPreservesLowDynamicRangeBlocks(t *testing.T) {
	samples := make([]int16, brr.BlockSize)
	for i := range samples {
		v := (i%5 - 2) * 200 // small-amplitude sawtooth, well inside 12 bits
		samples[i] = int16(v)
	}
	encoded := brr.EncodeBlocks(samples)
	decoded := brr.DecodeBlocks(encoded)
	reencoded := brr.EncodeBlocks(decoded)
	assert.Equal(t, encoded, reencoded)
}

func TestAssembleReturnsErrorForUnresolvedReference(t *testing.T) {
	_, err := Assemble("main.asm", Options{Files: memFiles{"main.asm": []byte("org 0\njmp nowhere\n")}})
	require.Error(t, err)
}

func TestAssembleReturnsErrorForMissingSegment(t *testing.T) {
	_, err := Assemble("main.asm", Options{Files: memFiles{"main.asm": []byte("nop\n")}})
	require.Error(t, err)
}
