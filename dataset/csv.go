// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CSVOptions control delimited-file loading.
type CSVOptions struct {
	// Delimiter defaults to ','. "\t" and "tab" select tab separation.
	Delimiter string
	// SkipRows drops this many leading rows before the header.
	SkipRows int
	// HeaderColumns, when set, replaces the header row entirely and the
	// file is read as data only.
	HeaderColumns []string
}

// ReadCSVFile loads path as a frame, inferring cell types: empty cells
// become nil, integers int64, decimals float64, everything else string.
func ReadCSVFile(path string, opts CSVOptions) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	frame, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	return frame, nil
}

// ReadCSV parses delimited data from r.
func ReadCSV(r io.Reader, opts CSVOptions) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiterRune(opts.Delimiter)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	for i := 0; i < opts.SkipRows; i++ {
		if _, err := cr.Read(); err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("skip rows: file has fewer than %d rows", opts.SkipRows)
			}
			return nil, err
		}
	}

	var frame Frame
	if len(opts.HeaderColumns) > 0 {
		frame.Columns = append([]string(nil), opts.HeaderColumns...)
	} else {
		header, err := cr.Read()
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("missing header row")
			}
			return nil, err
		}
		frame.Columns = make([]string, len(header))
		for i, h := range header {
			frame.Columns[i] = strings.TrimSpace(h)
		}
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]any, len(rec))
		for i, cell := range rec {
			row[i] = inferCell(cell)
		}
		frame.Rows = append(frame.Rows, row)
	}
	return &frame, nil
}

func delimiterRune(d string) rune {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "", ",":
		return ','
	case "\t", "tab", `\t`:
		return '\t'
	case ";":
		return ';'
	case "|":
		return '|'
	default:
		return []rune(strings.TrimSpace(d))[0]
	}
}

// inferCell maps a raw text cell to nil/int64/float64/string.
func inferCell(s string) any {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil
	}
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return f
	}
	return t
}
