// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resolve implements the Reference Resolver (spec.md §4.6): a
// bounded fixed-point loop over every still-deferred memory slot.
// Grounded on original_source/src/assembler/mod.rs's
// execute_label_resolution_pass, generalized from the teacher's
// single-pass asm/expr.go eval (the teacher never needed more than one
// pass because it resolves labels before emitting any bytes that
// reference them).
package resolve

import (
	"github.com/beevik/spc700asm/internal/asmerr"
	"github.com/beevik/spc700asm/internal/memstore"
)

// Passes runs up to maxPasses fixed-point iterations over every slot in
// store, per spec.md §4.6. It returns the number of passes actually run.
// A pass "changes" when at least one slot that was unresolved becomes
// resolved; the loop stops the first pass that changes nothing, or the
// first pass after which no slot is left unresolved.
func Passes(store *memstore.Store, maxPasses int) (int, error) {
	slots := store.AllSlots()
	ran := 0
	for ran < maxPasses {
		ran++
		changed, pending := false, false
		for _, s := range slots {
			didChange, err := s.TryResolve()
			if err != nil {
				return ran, err
			}
			if didChange {
				changed = true
			}
			if !s.Resolved() {
				pending = true
			}
		}
		if !changed || !pending {
			break
		}
	}

	for _, s := range slots {
		if !s.Resolved() {
			return ran, asmerr.New(asmerr.KindReference, s.Span, "%s", asmerr.MsgUnresolvedLabel)
		}
	}
	return ran, nil
}
