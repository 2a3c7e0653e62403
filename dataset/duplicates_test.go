// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"testing"
)

func TestFindDuplicates(t *testing.T) {
	f := &Frame{
		Columns: []string{"id", "region"},
		Rows: [][]any{
			{int64(1), "east"},
			{int64(2), "west"},
			{int64(1), "east"},
			{int64(1), "east"},
			{int64(3), "west"},
		},
	}

	groups, err := FindDuplicates(f, []string{"ID"})
	if err != nil {
		t.Fatalf("FindDuplicates failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 duplicate group, got %d", len(groups))
	}
	g := groups[0]
	if g.Key != "1" {
		t.Errorf("group key = %q", g.Key)
	}
	if g.Count != 3 {
		t.Errorf("group count = %d, expected 3", g.Count)
	}
	if len(g.Rows) != 3 {
		t.Errorf("group rows = %d", len(g.Rows))
	}
}

func TestFindDuplicates_CompositeKey(t *testing.T) {
	f := &Frame{
		Columns: []string{"id", "region"},
		Rows: [][]any{
			{int64(1), "east"},
			{int64(1), "west"},
			{int64(1), "West "},
		},
	}

	groups, err := FindDuplicates(f, []string{"id", "region"})
	if err != nil {
		t.Fatalf("FindDuplicates failed: %v", err)
	}
	// (1, west) appears twice after normalization; (1, east) is unique.
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].Key != "1|west" {
		t.Errorf("group key = %q", groups[0].Key)
	}
}

func TestFindDuplicates_WholeRow(t *testing.T) {
	f := &Frame{
		Columns: []string{"id", "region"},
		Rows: [][]any{
			{int64(1), "east"},
			{int64(2), "west"},
			{int64(3), "north"},
		},
	}

	// Without key columns, grouping falls back to the full row. Three
	// distinct rows must not collapse into one group.
	groups, err := FindDuplicates(f, nil)
	if err != nil {
		t.Fatalf("FindDuplicates failed: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("expected no duplicate groups, got %d", len(groups))
	}

	f.Rows = append(f.Rows, []any{int64(2), "west"})
	groups, err = FindDuplicates(f, nil)
	if err != nil {
		t.Fatalf("FindDuplicates failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 duplicate group, got %d", len(groups))
	}
	if groups[0].Count != 2 {
		t.Errorf("group count = %d, expected 2", groups[0].Count)
	}
}

func TestFindDuplicates_UnknownKey(t *testing.T) {
	f := &Frame{Columns: []string{"id"}}
	if _, err := FindDuplicates(f, []string{"nope"}); err == nil {
		t.Fatal("expected error for unknown key column")
	}
}

func TestDuplicatesResult(t *testing.T) {
	f := &Frame{
		Columns: []string{"id"},
		Rows:    [][]any{{int64(1)}, {int64(1)}, {int64(2)}},
	}

	res, err := DuplicatesResult(f, []string{"id"})
	if err != nil {
		t.Fatalf("DuplicatesResult failed: %v", err)
	}
	if res.Passed {
		t.Error("expected failure with duplicates present")
	}
	if res.MismatchCount != 1 {
		t.Errorf("mismatch count = %d", res.MismatchCount)
	}
	if res.Mismatches[0].Type != MismatchDuplicate {
		t.Errorf("mismatch type = %s", res.Mismatches[0].Type)
	}
	if res.Mismatches[0].SourceValue != "2 occurrences" {
		t.Errorf("source value = %q", res.Mismatches[0].SourceValue)
	}
}

func TestDuplicatesResult_Clean(t *testing.T) {
	f := &Frame{
		Columns: []string{"id"},
		Rows:    [][]any{{int64(1)}, {int64(2)}},
	}

	res, err := DuplicatesResult(f, []string{"id"})
	if err != nil {
		t.Fatalf("DuplicatesResult failed: %v", err)
	}
	if !res.Passed {
		t.Errorf("expected pass, got message %q", res.Message)
	}
	if res.SourceRows != 2 || res.TargetRows != 2 {
		t.Errorf("row counts = %d/%d", res.SourceRows, res.TargetRows)
	}
}
