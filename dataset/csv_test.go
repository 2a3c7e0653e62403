// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadCSV(t *testing.T) {
	input := "id,name,amount\n1,Alice,100.5\n2,Bob,\n"

	f, err := ReadCSV(strings.NewReader(input), CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	if len(f.Columns) != 3 || f.Columns[0] != "id" {
		t.Errorf("columns = %v", f.Columns)
	}
	if f.RowCount() != 2 {
		t.Fatalf("rows = %d, expected 2", f.RowCount())
	}
	if f.Rows[0][0] != int64(1) {
		t.Errorf("cell (0,0) = %v (%T), expected int64 1", f.Rows[0][0], f.Rows[0][0])
	}
	if f.Rows[0][2] != 100.5 {
		t.Errorf("cell (0,2) = %v (%T), expected float64 100.5", f.Rows[0][2], f.Rows[0][2])
	}
	if f.Rows[1][2] != nil {
		t.Errorf("empty cell = %v, expected nil", f.Rows[1][2])
	}
}

func TestReadCSV_Delimiters(t *testing.T) {
	tests := []struct {
		name      string
		delimiter string
		input     string
	}{
		{"comma default", "", "a,b\n1,2\n"},
		{"tab word", "tab", "a\tb\n1\t2\n"},
		{"tab escape", `\t`, "a\tb\n1\t2\n"},
		{"semicolon", ";", "a;b\n1;2\n"},
		{"pipe", "|", "a|b\n1|2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ReadCSV(strings.NewReader(tt.input), CSVOptions{Delimiter: tt.delimiter})
			if err != nil {
				t.Fatalf("ReadCSV failed: %v", err)
			}
			if len(f.Columns) != 2 || f.RowCount() != 1 {
				t.Errorf("parsed %d columns, %d rows", len(f.Columns), f.RowCount())
			}
		})
	}
}

func TestReadCSV_SkipRowsAndHeaderOverride(t *testing.T) {
	input := "junk line\nanother\n1,2\n3,4\n"

	f, err := ReadCSV(strings.NewReader(input), CSVOptions{
		SkipRows:      2,
		HeaderColumns: []string{"x", "y"},
	})
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if f.Columns[0] != "x" || f.Columns[1] != "y" {
		t.Errorf("columns = %v", f.Columns)
	}
	if f.RowCount() != 2 {
		t.Errorf("rows = %d, expected 2", f.RowCount())
	}
}

func TestReadCSV_SkipRowsPastEOF(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("a,b\n"), CSVOptions{SkipRows: 5}); err == nil {
		t.Fatal("expected error skipping past end of file")
	}
}

func TestReadCSV_MissingHeader(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader(""), CSVOptions{}); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestReadCSVFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte("id,name\n1,Alice\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := ReadCSVFile(path, CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSVFile failed: %v", err)
	}
	if f.RowCount() != 1 || f.Rows[0][1] != "Alice" {
		t.Errorf("unexpected frame: %+v", f)
	}

	if _, err := ReadCSVFile(filepath.Join(dir, "missing.csv"), CSVOptions{}); err == nil {
		t.Fatal("expected error for missing file")
	}
}
