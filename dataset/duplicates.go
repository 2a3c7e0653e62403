// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import "fmt"

// DuplicateGroup records one key that appears more than once in a frame.
type DuplicateGroup struct {
	Key   string
	Count int
	Rows  []map[string]any
}

// FindDuplicates groups rows of f by the given key columns, or by the whole
// row when no keys are configured, and returns the groups with more than one
// member. Keys are resolved with the same relaxed matching used by
// comparisons.
func FindDuplicates(f *Frame, keyColumns []string) ([]DuplicateGroup, error) {
	var byKey map[string][]int
	if len(keyColumns) == 0 {
		allIdx := make([]int, len(f.Columns))
		for i := range allIdx {
			allIdx[i] = i
		}
		byKey = make(map[string][]int, len(f.Rows))
		for h, rows := range hashRows(f, allIdx) {
			byKey[h[:12]] = rows
		}
	} else {
		keys, err := FindKeyColumns(f.Columns, keyColumns)
		if err != nil {
			return nil, err
		}
		byKey = indexByKey(f, columnIndexes(f, keys))
	}
	var groups []DuplicateGroup
	for k, rows := range byKey {
		if len(rows) < 2 {
			continue
		}
		g := DuplicateGroup{Key: k, Count: len(rows)}
		for _, i := range rows {
			g.Rows = append(g.Rows, rowMap(f, i))
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// DuplicatesResult runs the duplicates check as a comparison-shaped result
// so the execution layer can treat all test types uniformly.
func DuplicatesResult(f *Frame, keyColumns []string) (*CompareResult, error) {
	groups, err := FindDuplicates(f, keyColumns)
	if err != nil {
		return nil, err
	}
	res := &CompareResult{SourceRows: f.RowCount(), TargetRows: f.RowCount()}
	for _, g := range groups {
		res.Mismatches = append(res.Mismatches, Mismatch{
			Type:        MismatchDuplicate,
			Key:         g.Key,
			SourceValue: fmt.Sprintf("%d occurrences", g.Count),
			Row:         g.Rows[0],
		})
	}
	res.MismatchCount = len(res.Mismatches)
	res.Passed = res.MismatchCount == 0
	if res.Passed {
		res.Message = fmt.Sprintf("No duplicate keys in %d rows", f.RowCount())
	} else {
		res.Message = fmt.Sprintf("%d duplicated keys in %d rows", len(groups), f.RowCount())
	}
	return res, nil
}
