// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
)

const (
	// DefaultKeyBatchSize bounds how many common keys are value-compared per
	// pass to keep memory flat on wide tables.
	DefaultKeyBatchSize = 50000
	// DefaultChunkSize is the row limit above which frames are processed in
	// slices rather than as a whole.
	DefaultChunkSize = 500000
)

// Mismatch categories.
const (
	MismatchValue         = "VALUE_MISMATCH"
	MismatchMissingSource = "MISSING_IN_SOURCE"
	MismatchMissingTarget = "MISSING_IN_TARGET"
	MismatchDuplicate     = "DUPLICATE"
)

// Mismatch is one observed difference between source and target.
type Mismatch struct {
	Type        string         `json:"type"`
	Key         string         `json:"key"`
	Column      string         `json:"column,omitempty"`
	SourceValue string         `json:"source_value,omitempty"`
	TargetValue string         `json:"target_value,omitempty"`
	Row         map[string]any `json:"row,omitempty"`
}

// CompareResult summarizes one source/target comparison.
type CompareResult struct {
	Passed         bool
	Message        string
	SourceRows     int
	TargetRows     int
	MismatchCount  int
	Mismatches     []Mismatch
	ColumnMappings []ColumnMapping
	SourceOnlyCols []string
	TargetOnlyCols []string
}

// Comparator runs dataset comparisons. The zero value is usable; Logger
// defaults to slog.Default and sizes default to the package constants.
type Comparator struct {
	Logger       *slog.Logger
	KeyBatchSize int
	ChunkSize    int
}

func (c *Comparator) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Comparator) keyBatchSize() int {
	if c.KeyBatchSize > 0 {
		return c.KeyBatchSize
	}
	return DefaultKeyBatchSize
}

func (c *Comparator) chunkSize() int {
	if c.ChunkSize > 0 {
		return c.ChunkSize
	}
	return DefaultChunkSize
}

// Compare diffs src against tgt. When keyColumns is non-empty rows are
// matched by composite key and compared column by column; otherwise whole
// rows are matched by hash.
func (c *Comparator) Compare(src, tgt *Frame, keyColumns []string) (*CompareResult, error) {
	if src == nil || tgt == nil {
		return nil, fmt.Errorf("compare: nil frame")
	}
	if len(keyColumns) > 0 {
		return c.compareByKey(src, tgt, keyColumns)
	}
	return c.compareByRowHash(src, tgt)
}

func (c *Comparator) compareByKey(src, tgt *Frame, keyColumns []string) (*CompareResult, error) {
	srcKeys, err := FindKeyColumns(src.Columns, keyColumns)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	tgtKeys, err := FindKeyColumns(tgt.Columns, keyColumns)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	srcKeyIdx := columnIndexes(src, srcKeys)
	tgtKeyIdx := columnIndexes(tgt, tgtKeys)

	pairs, srcOnlyCols, tgtOnlyCols := MatchColumns(src.Columns, tgt.Columns)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("frames have no columns in common")
	}
	// Key columns are matched by definition; compare only the shared
	// non-key columns for values.
	valuePairs := make([]ColumnMapping, 0, len(pairs))
	keySet := make(map[string]bool, len(srcKeys))
	for _, k := range srcKeys {
		keySet[canonicalColumn(k)] = true
	}
	for _, p := range pairs {
		if !keySet[canonicalColumn(p.Source)] {
			valuePairs = append(valuePairs, p)
		}
	}

	srcByKey := indexByKey(src, srcKeyIdx)
	tgtByKey := indexByKey(tgt, tgtKeyIdx)

	res := &CompareResult{
		SourceRows:     src.RowCount(),
		TargetRows:     tgt.RowCount(),
		ColumnMappings: pairs,
		SourceOnlyCols: srcOnlyCols,
		TargetOnlyCols: tgtOnlyCols,
	}

	var common []string
	for k := range srcByKey {
		if _, ok := tgtByKey[k]; ok {
			common = append(common, k)
		} else {
			res.Mismatches = append(res.Mismatches, Mismatch{
				Type: MismatchMissingTarget,
				Key:  k,
				Row:  rowMap(src, srcByKey[k][0]),
			})
		}
	}
	for k := range tgtByKey {
		if _, ok := srcByKey[k]; !ok {
			res.Mismatches = append(res.Mismatches, Mismatch{
				Type: MismatchMissingSource,
				Key:  k,
				Row:  rowMap(tgt, tgtByKey[k][0]),
			})
		}
	}
	sort.Strings(common)

	srcColIdx := make([]int, len(valuePairs))
	tgtColIdx := make([]int, len(valuePairs))
	for i, p := range valuePairs {
		srcColIdx[i] = src.ColumnIndex(p.Source)
		tgtColIdx[i] = tgt.ColumnIndex(p.Target)
	}

	batch := c.keyBatchSize()
	for start := 0; start < len(common); start += batch {
		end := min(start+batch, len(common))
		for _, k := range common[start:end] {
			sRow := src.Rows[srcByKey[k][0]]
			tRow := tgt.Rows[tgtByKey[k][0]]
			for i, p := range valuePairs {
				sv := cellAt(sRow, srcColIdx[i])
				tv := cellAt(tRow, tgtColIdx[i])
				if !ValuesEqual(sv, tv) {
					res.Mismatches = append(res.Mismatches, Mismatch{
						Type:        MismatchValue,
						Key:         k,
						Column:      p.Source,
						SourceValue: stringify(sv),
						TargetValue: stringify(tv),
					})
				}
			}
		}
	}

	res.MismatchCount = len(res.Mismatches)
	res.Passed = res.MismatchCount == 0
	if res.Passed {
		res.Message = fmt.Sprintf("All %d matched rows are identical", len(common))
	} else {
		res.Message = fmt.Sprintf("%d mismatches across %d source / %d target rows",
			res.MismatchCount, res.SourceRows, res.TargetRows)
	}
	c.logger().Debug("key comparison complete",
		slog.Int("common_keys", len(common)),
		slog.Int("mismatches", res.MismatchCount))
	return res, nil
}

// compareByRowHash matches full rows by a hash over the shared columns. Used
// when no primary key is configured.
func (c *Comparator) compareByRowHash(src, tgt *Frame) (*CompareResult, error) {
	pairs, srcOnlyCols, tgtOnlyCols := MatchColumns(src.Columns, tgt.Columns)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("frames have no columns in common")
	}

	srcCols := make([]string, len(pairs))
	tgtCols := make([]string, len(pairs))
	for i, p := range pairs {
		srcCols[i] = p.Source
		tgtCols[i] = p.Target
	}
	srcIdx := columnIndexes(src, srcCols)
	tgtIdx := columnIndexes(tgt, tgtCols)

	srcHashes := hashRows(src, srcIdx)
	tgtHashes := hashRows(tgt, tgtIdx)

	res := &CompareResult{
		SourceRows:     src.RowCount(),
		TargetRows:     tgt.RowCount(),
		ColumnMappings: pairs,
		SourceOnlyCols: srcOnlyCols,
		TargetOnlyCols: tgtOnlyCols,
	}

	for h, rows := range srcHashes {
		tRows := tgtHashes[h]
		for extra := len(rows) - len(tRows); extra > 0; extra-- {
			res.Mismatches = append(res.Mismatches, Mismatch{
				Type: MismatchMissingTarget,
				Key:  h[:12],
				Row:  rowMap(src, rows[0]),
			})
		}
	}
	for h, rows := range tgtHashes {
		sRows := srcHashes[h]
		for extra := len(rows) - len(sRows); extra > 0; extra-- {
			res.Mismatches = append(res.Mismatches, Mismatch{
				Type: MismatchMissingSource,
				Key:  h[:12],
				Row:  rowMap(tgt, rows[0]),
			})
		}
	}

	res.MismatchCount = len(res.Mismatches)
	res.Passed = res.MismatchCount == 0
	if res.Passed {
		res.Message = fmt.Sprintf("All %d rows matched by content", res.SourceRows)
	} else {
		res.Message = fmt.Sprintf("%d unmatched rows across %d source / %d target rows",
			res.MismatchCount, res.SourceRows, res.TargetRows)
	}
	return res, nil
}

// CheckThreshold applies a completeness check: the absolute row-count gap
// must stay within pct percent of the larger row count. A zero pct demands
// an exact match.
func CheckThreshold(srcRows, tgtRows int, pct float64) (bool, string) {
	diff := math.Abs(float64(srcRows - tgtRows))
	if pct <= 0 {
		if diff == 0 {
			return true, fmt.Sprintf("Exact match: %d rows in both source and target", srcRows)
		}
		return false, fmt.Sprintf("Row counts differ: source=%d target=%d", srcRows, tgtRows)
	}
	allowed := pct / 100 * float64(max(srcRows, tgtRows))
	if diff <= allowed {
		return true, fmt.Sprintf("Within threshold: source=%d target=%d diff=%.0f allowed=%.2f",
			srcRows, tgtRows, diff, allowed)
	}
	return false, fmt.Sprintf("Threshold exceeded: source=%d target=%d diff=%.0f allowed=%.2f",
		srcRows, tgtRows, diff, allowed)
}

// CompareColumnStructure reports whether the two frames expose the same
// columns after canonicalization.
func CompareColumnStructure(src, tgt *Frame) (bool, []string, []string) {
	_, srcOnly, tgtOnly := MatchColumns(src.Columns, tgt.Columns)
	return len(srcOnly) == 0 && len(tgtOnly) == 0, srcOnly, tgtOnly
}

func columnIndexes(f *Frame, names []string) []int {
	idx := make([]int, len(names))
	for i, n := range names {
		idx[i] = f.ColumnIndex(n)
	}
	return idx
}

func cellAt(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

// indexByKey maps composite key to the row indexes carrying it. Order of
// first occurrence wins for lookups; later duplicates stay visible for the
// duplicate check.
func indexByKey(f *Frame, keyIdx []int) map[string][]int {
	out := make(map[string][]int, len(f.Rows))
	for i, row := range f.Rows {
		k := CompositeKey(row, keyIdx)
		out[k] = append(out[k], i)
	}
	return out
}

func hashRows(f *Frame, idx []int) map[string][]int {
	out := make(map[string][]int, len(f.Rows))
	var sb strings.Builder
	for i, row := range f.Rows {
		sb.Reset()
		for _, j := range idx {
			sb.WriteString(NormalizeKeyValue(cellAt(row, j)))
			sb.WriteByte('\x1f')
		}
		sum := sha256.Sum256([]byte(sb.String()))
		h := hex.EncodeToString(sum[:])
		out[h] = append(out[h], i)
	}
	return out
}

func rowMap(f *Frame, rowIdx int) map[string]any {
	row := f.Rows[rowIdx]
	m := make(map[string]any, len(f.Columns))
	for i, c := range f.Columns {
		m[c] = cellAt(row, i)
	}
	return m
}
