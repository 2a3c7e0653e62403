// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func TestNormalizeKeyValue(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"nil value", nil, "NA"},
		{"empty string", "", "NA"},
		{"whitespace only", "   ", "NA"},
		{"NaN float", math.NaN(), "NA"},
		{"nan string", "NaN", "NA"},
		{"none string", "None", "NA"},
		{"null string", "NULL", "NA"},
		{"lowercased", "Hello", "hello"},
		{"underscores squashed", "customer_id", "customerid"},
		{"spaces squashed", "New  York City", "newyorkcity"},
		{"mixed separators", "Customer_ ID", "customerid"},
		{"int64", int64(42), "42"},
		{"float without trailing zeros", 42.50, "42.5"},
		{"whole float", 100.0, "100"},
		{"bool", true, "true"},
		{"leading and trailing space", "  abc  ", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeKeyValue(tt.value)
			if got != tt.expected {
				t.Errorf("NormalizeKeyValue(%v) = %q, expected %q", tt.value, got, tt.expected)
			}
		})
	}
}

func TestNormalizeKeyValue_Time(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	got := NormalizeKeyValue(ts)
	if got != "2024-03-1510:30:00" {
		t.Errorf("NormalizeKeyValue(time) = %q", got)
	}
}

func TestCompositeKey(t *testing.T) {
	row := []any{int64(7), "West Region", nil}
	key := CompositeKey(row, []int{0, 1, 2})
	if key != "7|westregion|NA" {
		t.Errorf("CompositeKey = %q", key)
	}

	// Index past the end of the row reads as missing.
	key = CompositeKey(row, []int{0, 5})
	if key != "7|NA" {
		t.Errorf("CompositeKey with short row = %q", key)
	}
}

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		a, b     any
		expected bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs empty string", nil, "", true},
		{"nil vs value", nil, "x", false},
		{"both NaN", math.NaN(), math.NaN(), true},
		{"equal ints", int64(5), int64(5), true},
		{"int vs float same value", int64(5), 5.0, true},
		{"numeric string vs number", "5.0", 5.0, true},
		{"different numbers", 5.0, 5.1, false},
		{"case-insensitive strings", "Alpha", "alpha", true},
		{"trimmed strings", "  abc", "abc  ", true},
		{"different strings", "abc", "abd", false},
		{"bool vs int", true, int64(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValuesEqual(tt.a, tt.b)
			if got != tt.expected {
				t.Errorf("ValuesEqual(%v, %v) = %v, expected %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestMatchColumns(t *testing.T) {
	src := []string{"ID", "Name", "Amount", "SourceExtra"}
	tgt := []string{"id", "name", "amount", "TargetExtra"}

	pairs, srcOnly, tgtOnly := MatchColumns(src, tgt)

	if len(pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d: %v", len(pairs), pairs)
	}
	if pairs[0].Source != "ID" || pairs[0].Target != "id" {
		t.Errorf("unexpected first pair: %+v", pairs[0])
	}
	if !reflect.DeepEqual(srcOnly, []string{"SourceExtra"}) {
		t.Errorf("srcOnly = %v", srcOnly)
	}
	if !reflect.DeepEqual(tgtOnly, []string{"TargetExtra"}) {
		t.Errorf("tgtOnly = %v", tgtOnly)
	}
}

func TestFindKeyColumns(t *testing.T) {
	columns := []string{"Customer ID", "Order_Date", "amount"}

	tests := []struct {
		name     string
		keys     []string
		expected []string
		wantErr  bool
	}{
		{"exact case-insensitive", []string{"customer id"}, []string{"Customer ID"}, false},
		{"alnum fallback", []string{"Customer_ID"}, []string{"Customer ID"}, false},
		{"multiple keys", []string{"order date", "AMOUNT"}, []string{"Order_Date", "amount"}, false},
		{"unknown key", []string{"missing"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindKeyColumns(columns, tt.keys)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("FindKeyColumns = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"whitespace only", "  ", nil},
		{"single", "id", []string{"id"}},
		{"multiple with spaces", "id, name ,amount", []string{"id", "name", "amount"}},
		{"trailing comma", "id,name,", []string{"id", "name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitList(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("SplitList(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}
