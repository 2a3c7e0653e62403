// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// StandardizeOptions steer the cleanup pass that runs on every frame before
// comparison so both sides agree on representation.
type StandardizeOptions struct {
	// DateColumns are parsed into time.Time (naive, timezone dropped).
	DateColumns []string
	// PercentageColumns are normalized to a 0-100 number rounded to two
	// decimals. FromExcel marks values stored as fractions (0.42 for 42%).
	PercentageColumns []string
	FromExcel         bool
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"02-Jan-2006",
	"2006/01/02",
	time.RFC3339,
}

// Standardize mutates f in place: strings are trimmed, null-ish cells in
// numeric-looking columns become 0 and in text columns "0", timestamps lose
// their zone, and the configured date/percentage columns are coerced.
func Standardize(f *Frame, opts StandardizeOptions) error {
	dateIdx, err := optionalIndexes(f, opts.DateColumns)
	if err != nil {
		return fmt.Errorf("date columns: %w", err)
	}
	pctIdx, err := optionalIndexes(f, opts.PercentageColumns)
	if err != nil {
		return fmt.Errorf("percentage columns: %w", err)
	}

	numericCol := numericColumns(f)
	for _, row := range f.Rows {
		for i := range row {
			if i >= len(f.Columns) {
				break
			}
			row[i] = cleanCell(row[i], numericCol[i])
		}
	}
	for _, i := range dateIdx {
		for _, row := range f.Rows {
			if i >= len(row) {
				continue
			}
			t, ok := parseDate(row[i])
			if ok {
				row[i] = t
			}
		}
	}
	for _, i := range pctIdx {
		for _, row := range f.Rows {
			if i >= len(row) {
				continue
			}
			row[i] = normalizePercentage(row[i], opts.FromExcel)
		}
	}
	return nil
}

// numericColumns reports, per column index, whether every non-missing cell
// parses as a number. Such columns get 0 fills instead of "0".
func numericColumns(f *Frame) []bool {
	out := make([]bool, len(f.Columns))
	for i := range out {
		out[i] = true
		seen := false
		for _, row := range f.Rows {
			v := cellAt(row, i)
			if isMissing(v) {
				continue
			}
			seen = true
			if _, ok := toFloat(v); !ok {
				out[i] = false
				break
			}
		}
		if !seen {
			out[i] = false
		}
	}
	return out
}

func cleanCell(v any, numeric bool) any {
	if isMissing(v) {
		if numeric {
			return float64(0)
		}
		return "0"
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case time.Time:
		// Drop the zone; wall clock comparisons only.
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	}
	return v
}

func parseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" || s == "0" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return time.Date(parsed.Year(), parsed.Month(), parsed.Day(),
					parsed.Hour(), parsed.Minute(), parsed.Second(), 0, time.UTC), true
			}
		}
	}
	return time.Time{}, false
}

// normalizePercentage coerces a cell to a percentage value in [0, 100]
// rounded to two decimals. Database sources carry "42.5%" strings or plain
// numbers; Excel stores the fraction 0.425.
func normalizePercentage(v any, fromExcel bool) any {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		trimmed := strings.TrimSuffix(s, "%")
		f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return v
		}
		if fromExcel && !strings.HasSuffix(s, "%") {
			f *= 100
		}
		return round2(f)
	default:
		f, ok := toFloat(v)
		if !ok {
			return v
		}
		if fromExcel {
			f *= 100
		}
		return round2(f)
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// optionalIndexes resolves names against the frame's columns with the same
// relaxed matching used for keys. Columns absent from this side are skipped;
// both sides of a comparison share one column list.
func optionalIndexes(f *Frame, names []string) ([]int, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var idx []int
	for _, n := range names {
		resolved, err := FindKeyColumns(f.Columns, []string{n})
		if err != nil {
			continue
		}
		idx = append(idx, f.ColumnIndex(resolved[0]))
	}
	return idx, nil
}
