// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ReportSampleRows caps how many source/target rows a report embeds.
const ReportSampleRows = 1000

// Report describes everything written into one xlsx result workbook.
type Report struct {
	TestCaseID string
	TestType   string
	ExecutedAt time.Time
	Result     *CompareResult
	Source     *Frame
	Target     *Frame
	Limits     Limits
}

// WriteReport renders the workbook at path with Summary, Source Data,
// Target Data, Mismatches and Column Mapping sheets. Mismatches beyond the
// per-category limits are dropped with a note on the summary sheet.
func WriteReport(path string, rep Report) error {
	wb := excelize.NewFile()
	defer wb.Close()

	const summary = "Summary"
	wb.SetSheetName(wb.GetSheetName(0), summary)

	status := "FAILED"
	if rep.Result.Passed {
		status = "PASSED"
	}
	byType, truncated := CategorizeMismatches(rep.Result.Mismatches, rep.Limits)
	summaryRows := [][]any{
		{"Test Case", rep.TestCaseID},
		{"Test Type", rep.TestType},
		{"Executed At", rep.ExecutedAt.Format("2006-01-02 15:04:05")},
		{"Status", status},
		{"Message", rep.Result.Message},
		{"Source Rows", rep.Result.SourceRows},
		{"Target Rows", rep.Result.TargetRows},
		{"Total Mismatches", rep.Result.MismatchCount},
		{"Value Mismatches", len(byType[MismatchValue])},
		{"Missing In Source", len(byType[MismatchMissingSource])},
		{"Missing In Target", len(byType[MismatchMissingTarget])},
		{"Duplicates", len(byType[MismatchDuplicate])},
	}
	if truncated {
		summaryRows = append(summaryRows, []any{"Note", "mismatch lists truncated for readability"})
	}
	for i, row := range summaryRows {
		if err := setRow(wb, summary, i+1, row); err != nil {
			return err
		}
	}

	if rep.Source != nil {
		if err := writeFrameSheet(wb, "Source Data", rep.Source.Head(ReportSampleRows)); err != nil {
			return err
		}
	}
	if rep.Target != nil {
		if err := writeFrameSheet(wb, "Target Data", rep.Target.Head(ReportSampleRows)); err != nil {
			return err
		}
	}
	if err := writeMismatchSheet(wb, byType); err != nil {
		return err
	}
	if err := writeMappingSheet(wb, rep.Result); err != nil {
		return err
	}

	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func writeFrameSheet(wb *excelize.File, name string, f *Frame) error {
	if _, err := wb.NewSheet(name); err != nil {
		return err
	}
	header := make([]any, len(f.Columns))
	for i, c := range f.Columns {
		header[i] = c
	}
	if err := setRow(wb, name, 1, header); err != nil {
		return err
	}
	for i, row := range f.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		if err := setRow(wb, name, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func writeMismatchSheet(wb *excelize.File, byType map[string][]Mismatch) error {
	const name = "Mismatches"
	if _, err := wb.NewSheet(name); err != nil {
		return err
	}
	if err := setRow(wb, name, 1, []any{"Type", "Key", "Column", "Source Value", "Target Value"}); err != nil {
		return err
	}
	rowNum := 2
	for _, t := range []string{MismatchValue, MismatchMissingSource, MismatchMissingTarget, MismatchDuplicate} {
		for _, m := range byType[t] {
			err := setRow(wb, name, rowNum, []any{m.Type, m.Key, m.Column, m.SourceValue, m.TargetValue})
			if err != nil {
				return err
			}
			rowNum++
		}
	}
	return nil
}

func writeMappingSheet(wb *excelize.File, res *CompareResult) error {
	const name = "Column Mapping"
	if _, err := wb.NewSheet(name); err != nil {
		return err
	}
	if err := setRow(wb, name, 1, []any{"Source Column", "Target Column"}); err != nil {
		return err
	}
	rowNum := 2
	for _, p := range res.ColumnMappings {
		if err := setRow(wb, name, rowNum, []any{p.Source, p.Target}); err != nil {
			return err
		}
		rowNum++
	}
	for _, c := range res.SourceOnlyCols {
		if err := setRow(wb, name, rowNum, []any{c, ""}); err != nil {
			return err
		}
		rowNum++
	}
	for _, c := range res.TargetOnlyCols {
		if err := setRow(wb, name, rowNum, []any{"", c}); err != nil {
			return err
		}
		rowNum++
	}
	return nil
}

func setRow(wb *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return wb.SetSheetRow(sheet, cell, &values)
}

func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	default:
		return t
	}
}
