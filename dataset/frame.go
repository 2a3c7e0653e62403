// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

// Package dataset loads tabular data from SQL queries, Excel workbooks and
// delimited files, standardizes it, and compares source against target
// row sets producing categorized mismatches and xlsx reports.
package dataset

import "fmt"

// Frame is an in-memory table. Rows hold values in column order; a cell is
// nil, int64, float64, string, bool or time.Time depending on the loader.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// NewFrame returns an empty frame with the given column names.
func NewFrame(columns ...string) *Frame {
	return &Frame{Columns: columns}
}

// RowCount returns the number of data rows.
func (f *Frame) RowCount() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// ColumnIndex returns the position of name or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Head returns a frame with at most n rows, sharing the underlying rows.
func (f *Frame) Head(n int) *Frame {
	if n >= len(f.Rows) {
		return f
	}
	return &Frame{Columns: f.Columns, Rows: f.Rows[:n]}
}

// Cell returns the value at (row, col) or an error when out of range.
func (f *Frame) Cell(row, col int) (any, error) {
	if row < 0 || row >= len(f.Rows) {
		return nil, fmt.Errorf("row %d out of range (%d rows)", row, f.RowCount())
	}
	if col < 0 || col >= len(f.Columns) {
		return nil, fmt.Errorf("column %d out of range (%d columns)", col, len(f.Columns))
	}
	r := f.Rows[row]
	if col >= len(r) {
		return nil, nil
	}
	return r[col], nil
}

// Select returns a new frame containing only the named columns, in order.
// Missing columns yield an error.
func (f *Frame) Select(columns ...string) (*Frame, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		j := f.ColumnIndex(c)
		if j < 0 {
			return nil, fmt.Errorf("column %q not found", c)
		}
		idx[i] = j
	}
	out := &Frame{Columns: columns, Rows: make([][]any, 0, len(f.Rows))}
	for _, row := range f.Rows {
		nr := make([]any, len(idx))
		for i, j := range idx {
			if j < len(row) {
				nr[i] = row[j]
			}
		}
		out.Rows = append(out.Rows, nr)
	}
	return out, nil
}
