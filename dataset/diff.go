// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

// Limits caps how many mismatches of each category are retained after a
// comparison. Large diffs are truncated rather than dropped so a report
// stays useful without ballooning.
type Limits struct {
	Value         int
	MissingSource int
	MissingTarget int
}

// DefaultLimits mirror what the reporting layer can sensibly render.
func DefaultLimits() Limits {
	return Limits{Value: 1000, MissingSource: 250, MissingTarget: 250}
}

// CategorizeMismatches splits mismatches by category and truncates each
// bucket to its limit. The returned truncated flag is set when anything was
// cut. MismatchCount on the result is left untouched.
func CategorizeMismatches(in []Mismatch, lim Limits) (byType map[string][]Mismatch, truncated bool) {
	byType = map[string][]Mismatch{}
	caps := map[string]int{
		MismatchValue:         lim.Value,
		MismatchMissingSource: lim.MissingSource,
		MismatchMissingTarget: lim.MissingTarget,
	}
	for _, m := range in {
		c, ok := caps[m.Type]
		if !ok {
			byType[m.Type] = append(byType[m.Type], m)
			continue
		}
		if len(byType[m.Type]) >= c {
			truncated = true
			continue
		}
		byType[m.Type] = append(byType[m.Type], m)
	}
	return byType, truncated
}

// TruncateMismatches flattens the capped categories back into one slice,
// value mismatches first.
func TruncateMismatches(in []Mismatch, lim Limits) []Mismatch {
	byType, _ := CategorizeMismatches(in, lim)
	out := make([]Mismatch, 0, len(in))
	for _, t := range []string{MismatchValue, MismatchMissingSource, MismatchMissingTarget, MismatchDuplicate} {
		out = append(out, byType[t]...)
	}
	for t, ms := range byType {
		switch t {
		case MismatchValue, MismatchMissingSource, MismatchMissingTarget, MismatchDuplicate:
		default:
			out = append(out, ms...)
		}
	}
	return out
}
