// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"testing"
	"time"
)

func TestStandardize_NullFill(t *testing.T) {
	f := &Frame{
		Columns: []string{"amount", "name"},
		Rows: [][]any{
			{100.0, "Alice"},
			{nil, nil},
			{"NaN", "  Bob  "},
		},
	}

	if err := Standardize(f, StandardizeOptions{}); err != nil {
		t.Fatalf("Standardize failed: %v", err)
	}

	// The numeric column gets 0, the text column gets "0".
	if f.Rows[1][0] != float64(0) {
		t.Errorf("numeric null fill = %v", f.Rows[1][0])
	}
	if f.Rows[1][1] != "0" {
		t.Errorf("text null fill = %v", f.Rows[1][1])
	}
	if f.Rows[2][0] != float64(0) {
		t.Errorf("NaN string fill = %v", f.Rows[2][0])
	}
	if f.Rows[2][1] != "Bob" {
		t.Errorf("string not trimmed: %q", f.Rows[2][1])
	}
}

func TestStandardize_TimezoneDropped(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	f := &Frame{
		Columns: []string{"ts"},
		Rows: [][]any{
			{time.Date(2024, 6, 1, 14, 30, 0, 500, loc)},
		},
	}

	if err := Standardize(f, StandardizeOptions{}); err != nil {
		t.Fatalf("Standardize failed: %v", err)
	}

	got, ok := f.Rows[0][0].(time.Time)
	if !ok {
		t.Fatalf("cell is %T, expected time.Time", f.Rows[0][0])
	}
	want := time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("timestamp = %v, expected wall clock preserved in UTC %v", got, want)
	}
}

func TestStandardize_DateColumns(t *testing.T) {
	f := &Frame{
		Columns: []string{"order_date"},
		Rows: [][]any{
			{"2024-03-15"},
			{"03/15/2024"},
			{"15-Mar-2024"},
			{"not a date"},
		},
	}

	err := Standardize(f, StandardizeOptions{DateColumns: []string{"Order Date"}})
	if err != nil {
		t.Fatalf("Standardize failed: %v", err)
	}

	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		got, ok := f.Rows[i][0].(time.Time)
		if !ok || !got.Equal(want) {
			t.Errorf("row %d: parsed date = %v (%T)", i, f.Rows[i][0], f.Rows[i][0])
		}
	}
	// Unparseable values stay as-is.
	if f.Rows[3][0] != "not a date" {
		t.Errorf("unparseable date changed to %v", f.Rows[3][0])
	}
}

func TestStandardize_PercentageColumns(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		fromExcel bool
		expected  any
	}{
		{"percent string", "42.5%", false, 42.5},
		{"plain number string", "42.344", false, 42.34},
		{"numeric cell", 42.5, false, 42.5},
		{"excel fraction", 0.425, true, 42.5},
		{"excel percent string keeps value", "42.5%", true, 42.5},
		{"non-numeric left alone", "n/a", false, "n/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Frame{
				Columns: []string{"rate"},
				Rows:    [][]any{{tt.value}},
			}
			err := Standardize(f, StandardizeOptions{
				PercentageColumns: []string{"rate"},
				FromExcel:         tt.fromExcel,
			})
			if err != nil {
				t.Fatalf("Standardize failed: %v", err)
			}
			if f.Rows[0][0] != tt.expected {
				t.Errorf("percentage = %v (%T), expected %v", f.Rows[0][0], f.Rows[0][0], tt.expected)
			}
		})
	}
}

func TestStandardize_MissingConfiguredColumnSkipped(t *testing.T) {
	f := &Frame{
		Columns: []string{"id"},
		Rows:    [][]any{{int64(1)}},
	}
	// Both sides of a comparison share one configured list; a column absent
	// on this side is not an error.
	err := Standardize(f, StandardizeOptions{
		DateColumns:       []string{"created_at"},
		PercentageColumns: []string{"rate"},
	})
	if err != nil {
		t.Fatalf("Standardize failed: %v", err)
	}
}
