// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelOptions control workbook loading.
type ExcelOptions struct {
	// Sheet selects the worksheet by name; empty means the first sheet.
	Sheet string
	// SkipRows drops leading rows before the header.
	SkipRows int
	// HeaderColumns replaces the header row when set.
	HeaderColumns []string
}

// ReadExcelFile loads one worksheet of an xlsx workbook as a frame with the
// same type inference as CSV loading.
func ReadExcelFile(path string, opts ExcelOptions) (*Frame, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = wb.GetSheetName(0)
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if opts.SkipRows > 0 {
		if opts.SkipRows >= len(rows) {
			return nil, fmt.Errorf("skip rows: sheet %q has only %d rows", sheet, len(rows))
		}
		rows = rows[opts.SkipRows:]
	}

	var frame Frame
	if len(opts.HeaderColumns) > 0 {
		frame.Columns = append([]string(nil), opts.HeaderColumns...)
	} else {
		if len(rows) == 0 {
			return nil, fmt.Errorf("sheet %q is empty", sheet)
		}
		frame.Columns = make([]string, len(rows[0]))
		for i, h := range rows[0] {
			frame.Columns[i] = strings.TrimSpace(h)
		}
		rows = rows[1:]
	}

	for _, rec := range rows {
		row := make([]any, len(frame.Columns))
		for i := range frame.Columns {
			if i < len(rec) {
				row[i] = inferCell(rec[i])
			}
		}
		frame.Rows = append(frame.Rows, row)
	}
	return &frame, nil
}
