// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleFrames() (*Frame, *Frame) {
	src := &Frame{
		Columns: []string{"ID", "Name", "Amount"},
		Rows: [][]any{
			{int64(1), "Alice", 100.0},
			{int64(2), "Bob", 200.0},
			{int64(3), "Carol", 300.0},
		},
	}
	tgt := &Frame{
		Columns: []string{"id", "name", "amount"},
		Rows: [][]any{
			{int64(1), "alice", 100.0},
			{int64(2), "Bob", 250.0},
			{int64(4), "Dave", 400.0},
		},
	}
	return src, tgt
}

func TestComparator_CompareByKey(t *testing.T) {
	src, tgt := sampleFrames()
	c := &Comparator{}

	res, err := c.Compare(src, tgt, []string{"id"})
	require.NoError(t, err)

	require.False(t, res.Passed)
	require.Equal(t, 3, res.SourceRows)
	require.Equal(t, 3, res.TargetRows)
	require.Equal(t, 3, res.MismatchCount)

	byType := map[string][]Mismatch{}
	for _, m := range res.Mismatches {
		byType[m.Type] = append(byType[m.Type], m)
	}

	// Row 2 differs on amount (200 vs 250); names compare case-insensitively.
	require.Len(t, byType[MismatchValue], 1)
	require.Equal(t, "2", byType[MismatchValue][0].Key)
	require.Equal(t, "Amount", byType[MismatchValue][0].Column)
	require.Equal(t, "200", byType[MismatchValue][0].SourceValue)
	require.Equal(t, "250", byType[MismatchValue][0].TargetValue)

	// Key 3 exists only in source, key 4 only in target.
	require.Len(t, byType[MismatchMissingTarget], 1)
	require.Equal(t, "3", byType[MismatchMissingTarget][0].Key)
	require.Len(t, byType[MismatchMissingSource], 1)
	require.Equal(t, "4", byType[MismatchMissingSource][0].Key)
}

func TestComparator_CompareByKey_Identical(t *testing.T) {
	src, _ := sampleFrames()
	tgt := &Frame{
		Columns: []string{"id", "name", "amount"},
		Rows: [][]any{
			{int64(1), "ALICE", 100.0},
			{int64(2), "bob", "200"},
			{int64(3), "Carol", 300.0},
		},
	}
	c := &Comparator{}

	res, err := c.Compare(src, tgt, []string{"ID"})
	require.NoError(t, err)
	require.True(t, res.Passed)
	require.Equal(t, 0, res.MismatchCount)
	require.Contains(t, res.Message, "identical")
}

func TestComparator_CompareByKey_UnknownKey(t *testing.T) {
	src, tgt := sampleFrames()
	c := &Comparator{}

	_, err := c.Compare(src, tgt, []string{"nope"})
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "source:"))
}

func TestComparator_CompareByRowHash(t *testing.T) {
	src := &Frame{
		Columns: []string{"a", "b"},
		Rows: [][]any{
			{"x", int64(1)},
			{"y", int64(2)},
			{"y", int64(2)},
		},
	}
	tgt := &Frame{
		Columns: []string{"A", "B"},
		Rows: [][]any{
			{"X", int64(1)},
			{"y", int64(2)},
			{"z", int64(3)},
		},
	}
	c := &Comparator{}

	res, err := c.Compare(src, tgt, nil)
	require.NoError(t, err)
	require.False(t, res.Passed)

	// Source has one extra "y" row, target has an unmatched "z" row.
	counts := map[string]int{}
	for _, m := range res.Mismatches {
		counts[m.Type]++
	}
	require.Equal(t, 1, counts[MismatchMissingTarget])
	require.Equal(t, 1, counts[MismatchMissingSource])
}

func TestComparator_CompareByRowHash_AllMatched(t *testing.T) {
	src := &Frame{
		Columns: []string{"a"},
		Rows:    [][]any{{"x"}, {"y"}},
	}
	tgt := &Frame{
		Columns: []string{"a"},
		Rows:    [][]any{{"Y"}, {"x"}},
	}
	c := &Comparator{}

	res, err := c.Compare(src, tgt, nil)
	require.NoError(t, err)
	require.True(t, res.Passed)
}

func TestComparator_NilFrame(t *testing.T) {
	c := &Comparator{}
	_, err := c.Compare(nil, &Frame{}, nil)
	require.Error(t, err)
}

func TestComparator_NoSharedColumns(t *testing.T) {
	src := &Frame{
		Columns: []string{"alpha", "beta"},
		Rows:    [][]any{{1, 2}, {3, 4}},
	}
	tgt := &Frame{
		Columns: []string{"gamma", "delta"},
		Rows:    [][]any{{1, 2}, {3, 4}},
	}
	c := &Comparator{}

	// Equal row counts must not pass when the frames share no columns.
	_, err := c.Compare(src, tgt, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no columns in common")

	src.Columns = []string{"id", "beta"}
	tgt.Columns = []string{"ID", "delta"}
	_, err = c.Compare(src, tgt, []string{"id"})
	require.NoError(t, err)

	tgt.Columns = []string{"gamma", "delta"}
	_, err = c.Compare(src, tgt, []string{"beta"})
	require.Error(t, err)
}

func TestComparator_SmallKeyBatch(t *testing.T) {
	src, tgt := sampleFrames()
	// Batch of 1 forces multiple passes over the common keys but must not
	// change the outcome.
	c := &Comparator{KeyBatchSize: 1}

	res, err := c.Compare(src, tgt, []string{"id"})
	require.NoError(t, err)
	require.Equal(t, 3, res.MismatchCount)
}

func TestCheckThreshold(t *testing.T) {
	tests := []struct {
		name     string
		src, tgt int
		pct      float64
		passed   bool
	}{
		{"exact match at zero pct", 100, 100, 0, true},
		{"any gap fails at zero pct", 100, 99, 0, false},
		{"within threshold", 100, 95, 5, true},
		{"at the boundary", 100, 95, 5, true},
		{"beyond threshold", 100, 94, 5, false},
		{"target larger also counts", 100, 106, 5, false},
		{"allowance taken from the larger side", 95, 100, 5, true},
		{"larger side allowance still exceeded", 94, 100, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, msg := CheckThreshold(tt.src, tt.tgt, tt.pct)
			if passed != tt.passed {
				t.Errorf("CheckThreshold(%d, %d, %v) = %v (%s), expected %v",
					tt.src, tt.tgt, tt.pct, passed, msg, tt.passed)
			}
			if msg == "" {
				t.Error("expected a message")
			}
		})
	}
}

func TestCompareColumnStructure(t *testing.T) {
	src := &Frame{Columns: []string{"ID", "Name"}}
	tgt := &Frame{Columns: []string{"id", "name"}}
	same, srcOnly, tgtOnly := CompareColumnStructure(src, tgt)
	require.True(t, same)
	require.Empty(t, srcOnly)
	require.Empty(t, tgtOnly)

	tgt.Columns = []string{"id", "extra"}
	same, srcOnly, tgtOnly = CompareColumnStructure(src, tgt)
	require.False(t, same)
	require.Equal(t, []string{"Name"}, srcOnly)
	require.Equal(t, []string{"extra"}, tgtOnly)
}
