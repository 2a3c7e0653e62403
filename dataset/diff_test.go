// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"fmt"
	"testing"
)

func makeMismatches(typ string, n int) []Mismatch {
	out := make([]Mismatch, n)
	for i := range out {
		out[i] = Mismatch{Type: typ, Key: fmt.Sprintf("%s-%d", typ, i)}
	}
	return out
}

func TestCategorizeMismatches(t *testing.T) {
	lim := Limits{Value: 2, MissingSource: 1, MissingTarget: 1}
	in := append(makeMismatches(MismatchValue, 5), makeMismatches(MismatchMissingSource, 3)...)
	in = append(in, makeMismatches(MismatchMissingTarget, 1)...)

	byType, truncated := CategorizeMismatches(in, lim)

	if !truncated {
		t.Error("expected truncated flag")
	}
	if len(byType[MismatchValue]) != 2 {
		t.Errorf("value bucket = %d, expected 2", len(byType[MismatchValue]))
	}
	if len(byType[MismatchMissingSource]) != 1 {
		t.Errorf("missing-source bucket = %d, expected 1", len(byType[MismatchMissingSource]))
	}
	// Within the limit, nothing is cut.
	if len(byType[MismatchMissingTarget]) != 1 {
		t.Errorf("missing-target bucket = %d, expected 1", len(byType[MismatchMissingTarget]))
	}
}

func TestCategorizeMismatches_NothingTruncated(t *testing.T) {
	in := makeMismatches(MismatchValue, 3)
	byType, truncated := CategorizeMismatches(in, DefaultLimits())
	if truncated {
		t.Error("unexpected truncation")
	}
	if len(byType[MismatchValue]) != 3 {
		t.Errorf("value bucket = %d", len(byType[MismatchValue]))
	}
}

func TestCategorizeMismatches_UncappedCategory(t *testing.T) {
	// Duplicate mismatches carry no cap.
	in := makeMismatches(MismatchDuplicate, 10)
	byType, truncated := CategorizeMismatches(in, Limits{Value: 1})
	if truncated {
		t.Error("unexpected truncation")
	}
	if len(byType[MismatchDuplicate]) != 10 {
		t.Errorf("duplicate bucket = %d", len(byType[MismatchDuplicate]))
	}
}

func TestTruncateMismatches_Ordering(t *testing.T) {
	in := append(makeMismatches(MismatchMissingSource, 2), makeMismatches(MismatchValue, 2)...)
	in = append(in, makeMismatches(MismatchMissingTarget, 1)...)

	out := TruncateMismatches(in, DefaultLimits())

	if len(out) != 5 {
		t.Fatalf("len = %d, expected 5", len(out))
	}
	// Value mismatches come first in the flattened slice.
	if out[0].Type != MismatchValue || out[1].Type != MismatchValue {
		t.Errorf("expected value mismatches first, got %s, %s", out[0].Type, out[1].Type)
	}
}

func TestDefaultLimits(t *testing.T) {
	lim := DefaultLimits()
	if lim.Value != 1000 || lim.MissingSource != 250 || lim.MissingTarget != 250 {
		t.Errorf("unexpected defaults: %+v", lim)
	}
}
