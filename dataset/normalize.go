// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var keySquashRe = regexp.MustCompile(`[_\s]+`)

// NormalizeKeyValue canonicalizes a single key cell so that the same logical
// key matches across sources with different casing, spacing or null spelling.
// Nils and empty strings map to "NA"; everything else is lowercased with
// underscores and whitespace runs removed.
func NormalizeKeyValue(v any) string {
	if v == nil {
		return "NA"
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		if math.IsNaN(t) {
			return "NA"
		}
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		s = strconv.FormatInt(t, 10)
	case int:
		s = strconv.Itoa(t)
	case bool:
		s = strconv.FormatBool(t)
	case time.Time:
		s = t.Format("2006-01-02 15:04:05")
	default:
		s = fmt.Sprintf("%v", t)
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "none") || strings.EqualFold(s, "null") {
		return "NA"
	}
	s = strings.ToLower(s)
	return keySquashRe.ReplaceAllString(s, "")
}

// CompositeKey joins the normalized key cells of a row at the given column
// indexes with "|".
func CompositeKey(row []any, keyIdx []int) string {
	parts := make([]string, len(keyIdx))
	for i, j := range keyIdx {
		var v any
		if j < len(row) {
			v = row[j]
		}
		parts[i] = NormalizeKeyValue(v)
	}
	return strings.Join(parts, "|")
}

// ValuesEqual reports whether two cells are equal for comparison purposes.
// Both-missing counts as equal, numerics compare by value, and strings
// compare case-insensitively after trimming.
func ValuesEqual(a, b any) bool {
	am, bm := isMissing(a), isMissing(b)
	if am && bm {
		return true
	}
	if am != bm {
		return false
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		if math.IsNaN(af) && math.IsNaN(bf) {
			return true
		}
		return af == bf
	}
	return strings.EqualFold(strings.TrimSpace(stringify(a)), strings.TrimSpace(stringify(b)))
}

func isMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	case string:
		s := strings.TrimSpace(t)
		return s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "none") || strings.EqualFold(s, "null")
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]`)

func canonicalColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func alnumColumn(name string) string {
	return nonAlnumRe.ReplaceAllString(canonicalColumn(name), "")
}

// ColumnMapping pairs a source column with the target column it was matched
// to. Unmatched columns appear with an empty counterpart.
type ColumnMapping struct {
	Source string
	Target string
}

// MatchColumns aligns source and target column names case-insensitively,
// returning the pairs in source order plus the leftovers on each side.
func MatchColumns(src, tgt []string) (pairs []ColumnMapping, srcOnly, tgtOnly []string) {
	tgtByCanon := make(map[string]string, len(tgt))
	for _, t := range tgt {
		if _, ok := tgtByCanon[canonicalColumn(t)]; !ok {
			tgtByCanon[canonicalColumn(t)] = t
		}
	}
	used := make(map[string]bool, len(tgt))
	for _, s := range src {
		if t, ok := tgtByCanon[canonicalColumn(s)]; ok && !used[canonicalColumn(s)] {
			pairs = append(pairs, ColumnMapping{Source: s, Target: t})
			used[canonicalColumn(s)] = true
		} else {
			srcOnly = append(srcOnly, s)
		}
	}
	for _, t := range tgt {
		if !used[canonicalColumn(t)] {
			tgtOnly = append(tgtOnly, t)
		}
	}
	return pairs, srcOnly, tgtOnly
}

// FindKeyColumns resolves the requested primary-key columns against the
// actual column names of a frame. Matching is case-insensitive first, then
// falls back to comparing names with all non-alphanumerics stripped, so
// "Customer_ID" still finds "customer id".
func FindKeyColumns(columns, keys []string) ([]string, error) {
	byCanon := make(map[string]string, len(columns))
	byAlnum := make(map[string]string, len(columns))
	for _, c := range columns {
		if _, ok := byCanon[canonicalColumn(c)]; !ok {
			byCanon[canonicalColumn(c)] = c
		}
		if _, ok := byAlnum[alnumColumn(c)]; !ok {
			byAlnum[alnumColumn(c)] = c
		}
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if c, ok := byCanon[canonicalColumn(k)]; ok {
			out = append(out, c)
			continue
		}
		if c, ok := byAlnum[alnumColumn(k)]; ok {
			out = append(out, c)
			continue
		}
		return nil, fmt.Errorf("key column %q not found among %v", k, columns)
	}
	return out, nil
}

// SplitList parses a comma-separated column list, trimming blanks.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
