// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDirectPageForm(t *testing.T) {
	assert.True(t, AMDirectPage.IsDirectPageForm())
	assert.True(t, AMDirectPageBit.IsDirectPageForm())
	assert.False(t, AMAddress.IsDirectPageForm())
	assert.False(t, AMRegister.IsDirectPageForm())
}

func TestLongAndShortEquivalentsRoundTrip(t *testing.T) {
	pairs := []struct{ short, long AddressingModeKind }{
		{AMDirectPage, AMAddress},
		{AMDirectPageXIndexed, AMXIndexed},
		{AMDirectPageYIndexed, AMYIndexed},
		{AMDirectPageBit, AMAddressBit},
	}
	for _, p := range pairs {
		assert.Equal(t, p.long, p.short.LongEquivalent())
		assert.Equal(t, p.short, p.long.ShortEquivalent())
	}
}

func TestEquivalentsAreNoOpsForModesWithoutACounterpart(t *testing.T) {
	assert.Equal(t, AMRegister, AMRegister.LongEquivalent())
	assert.Equal(t, AMIndirectX, AMIndirectX.ShortEquivalent())
}

func TestRegisterString(t *testing.T) {
	assert.Equal(t, "A", RegA.String())
	assert.Equal(t, "YA", RegYA.String())
	assert.Equal(t, "", RegNone.String())
}
