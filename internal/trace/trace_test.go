// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscardIgnoresEverything(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard.Section("ignored")
		Discard.Logf("ignored %d", 42)
		Discard.Bytes(0, []byte{1, 2, 3})
	})
}

func TestWriterSectionFramesTheName(t *testing.T) {
	var sb strings.Builder
	w := Writer{W: &sb}
	w.Section("foo")
	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "-- foo --", lines[1])
	assert.Equal(t, lines[0], lines[2])
}

func TestWriterLogfAppendsNewline(t *testing.T) {
	var sb strings.Builder
	w := Writer{W: &sb}
	w.Logf("value=%d", 7)
	assert.Equal(t, "value=7\n", sb.String())
}

func TestWriterBytesChunksByThree(t *testing.T) {
	var sb strings.Builder
	w := Writer{W: &sb}
	w.Bytes(0x10, []byte{0x01, 0x02, 0x03, 0x04})
	out := sb.String()
	assert.Contains(t, out, "0010-* 01 02 03")
	assert.Contains(t, out, "0013-* 04")
}
