// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteReport(t *testing.T) {
	src, tgt := sampleFrames()
	c := &Comparator{}
	res, err := c.Compare(src, tgt, []string{"id"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "TC001_execution_7_20240315.xlsx")
	err = WriteReport(path, Report{
		TestCaseID: "TC001",
		TestType:   "CCD_Validation",
		ExecutedAt: time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
		Result:     res,
		Source:     src,
		Target:     tgt,
		Limits:     DefaultLimits(),
	})
	require.NoError(t, err)

	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer wb.Close()

	require.ElementsMatch(t,
		[]string{"Summary", "Source Data", "Target Data", "Mismatches", "Column Mapping"},
		wb.GetSheetList())

	// Summary carries the test case id and status.
	v, err := wb.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	require.Equal(t, "TC001", v)
	v, err = wb.GetCellValue("Summary", "B4")
	require.NoError(t, err)
	require.Equal(t, "FAILED", v)

	// Source Data starts with the header row.
	v, err = wb.GetCellValue("Source Data", "A1")
	require.NoError(t, err)
	require.Equal(t, "ID", v)

	// Mismatches sheet has a header plus one row per retained mismatch.
	rows, err := wb.GetRows("Mismatches")
	require.NoError(t, err)
	require.Len(t, rows, res.MismatchCount+1)
	require.Equal(t, "Type", rows[0][0])
}

func TestWriteReport_TruncationNote(t *testing.T) {
	res := &CompareResult{
		Message:       "diffs",
		MismatchCount: 3,
		Mismatches:    makeMismatches(MismatchValue, 3),
	}

	path := filepath.Join(t.TempDir(), "report.xlsx")
	err := WriteReport(path, Report{
		TestCaseID: "TC002",
		TestType:   "CCD_Validation",
		ExecutedAt: time.Now(),
		Result:     res,
		Limits:     Limits{Value: 1, MissingSource: 1, MissingTarget: 1},
	})
	require.NoError(t, err)

	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows("Summary")
	require.NoError(t, err)
	last := rows[len(rows)-1]
	require.Equal(t, "Note", last[0])

	// Only the capped number of mismatches is written.
	mrows, err := wb.GetRows("Mismatches")
	require.NoError(t, err)
	require.Len(t, mrows, 2)
}

func TestReadExcelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &[]any{"id", "name", "amount"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A2", &[]any{1, "Alice", 100.5}))
	require.NoError(t, wb.SetSheetRow(sheet, "A3", &[]any{2, "Bob", 200}))
	require.NoError(t, wb.SaveAs(path))
	require.NoError(t, wb.Close())

	f, err := ReadExcelFile(path, ExcelOptions{})
	require.NoError(t, err)

	require.Equal(t, []string{"id", "name", "amount"}, f.Columns)
	require.Equal(t, 2, f.RowCount())
	require.Equal(t, int64(1), f.Rows[0][0])
	require.Equal(t, "Alice", f.Rows[0][1])
	require.Equal(t, 100.5, f.Rows[0][2])
}

func TestReadExcelFile_SheetSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.xlsx")
	wb := excelize.NewFile()
	_, err := wb.NewSheet("Extract")
	require.NoError(t, err)
	require.NoError(t, wb.SetSheetRow("Extract", "A1", &[]any{"id"}))
	require.NoError(t, wb.SetSheetRow("Extract", "A2", &[]any{7}))
	require.NoError(t, wb.SaveAs(path))
	require.NoError(t, wb.Close())

	f, err := ReadExcelFile(path, ExcelOptions{Sheet: "Extract"})
	require.NoError(t, err)
	require.Equal(t, []string{"id"}, f.Columns)
	require.Equal(t, int64(7), f.Rows[0][0])

	_, err = ReadExcelFile(path, ExcelOptions{Sheet: "Nope"})
	require.Error(t, err)
}

func TestReadExcelFile_SkipRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skip.xlsx")
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &[]any{"report title"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A2", &[]any{"id", "name"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A3", &[]any{1, "Alice"}))
	require.NoError(t, wb.SaveAs(path))
	require.NoError(t, wb.Close())

	f, err := ReadExcelFile(path, ExcelOptions{SkipRows: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"id", "name"}, f.Columns)
	require.Equal(t, 1, f.RowCount())
}
