// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fileTestService(t *testing.T) *Service {
	t.Helper()
	return &Service{
		logger: slog.Default(),
		config: &ServiceConfig{DataRoot: t.TempDir()},
	}
}

func TestSaveTestCaseFile(t *testing.T) {
	s := fileTestService(t)
	tc := &TestCaseEntity{ID: 5, TCID: "TC005"}

	path, err := s.SaveTestCaseFile(tc, "extract.csv", strings.NewReader("id\n1\n"))
	if err != nil {
		t.Fatalf("SaveTestCaseFile failed: %v", err)
	}
	if filepath.Base(filepath.Dir(path)) != "tc_5" {
		t.Errorf("file stored outside test case dir: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "id\n1\n" {
		t.Errorf("stored content = %q, err %v", data, err)
	}
}

func TestSaveTestCaseFile_FlattensPath(t *testing.T) {
	s := fileTestService(t)
	tc := &TestCaseEntity{ID: 5, TCID: "TC005"}

	path, err := s.SaveTestCaseFile(tc, "../../etc/passwd", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("SaveTestCaseFile failed: %v", err)
	}
	if filepath.Base(path) != "passwd" || !strings.Contains(path, "tc_5") {
		t.Errorf("traversal not flattened: %s", path)
	}
}

func TestSaveTestCaseFile_NoDataRoot(t *testing.T) {
	s := &Service{logger: slog.Default(), config: &ServiceConfig{}}
	tc := &TestCaseEntity{ID: 1}
	if _, err := s.SaveTestCaseFile(tc, "f.csv", strings.NewReader("x")); err == nil {
		t.Fatal("expected error without data root")
	}
}

func TestResolveTestCaseFile(t *testing.T) {
	s := fileTestService(t)
	tc := &TestCaseEntity{ID: 9}

	// Relative references resolve under the test case directory.
	path, err := s.ResolveTestCaseFile(tc, "input.xlsx")
	if err != nil {
		t.Fatalf("ResolveTestCaseFile failed: %v", err)
	}
	want := filepath.Join(s.config.DataRoot, "tc_9", "input.xlsx")
	if path != want {
		t.Errorf("resolved path = %s, expected %s", path, want)
	}

	// Absolute references pass through.
	abs := filepath.Join(t.TempDir(), "query.sql")
	path, err = s.ResolveTestCaseFile(tc, abs)
	if err != nil || path != abs {
		t.Errorf("absolute ref = %s, %v", path, err)
	}

	if _, err := s.ResolveTestCaseFile(tc, "  "); err == nil {
		t.Error("expected error for empty reference")
	}
}

func TestOpenTestCaseFile(t *testing.T) {
	s := fileTestService(t)
	tc := &TestCaseEntity{ID: 7, TCID: "TC007"}

	if _, err := s.SaveTestCaseFile(tc, "source.csv", strings.NewReader("id\n1\n")); err != nil {
		t.Fatalf("SaveTestCaseFile failed: %v", err)
	}

	// Downloads resolve through the same path logic as uploads.
	r, name, err := s.OpenTestCaseFile(tc, "source.csv")
	if err != nil {
		t.Fatalf("OpenTestCaseFile failed: %v", err)
	}
	defer r.Close()
	if name != "source.csv" {
		t.Errorf("download name = %s", name)
	}
	data, err := io.ReadAll(r)
	if err != nil || string(data) != "id\n1\n" {
		t.Errorf("downloaded content = %q, err %v", data, err)
	}

	if _, _, err := s.OpenTestCaseFile(tc, "missing.csv"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file error = %v, expected not found", err)
	}
	if _, _, err := s.OpenTestCaseFile(tc, " "); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestReportPath(t *testing.T) {
	s := fileTestService(t)
	tc := &TestCaseEntity{ID: 3, TCID: "TC003"}
	at := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)

	path := s.reportPath(tc, 77, at)
	if filepath.Base(path) != "TC003_execution_77_20240315.xlsx" {
		t.Errorf("report name = %s", filepath.Base(path))
	}
}

func TestOpenReport(t *testing.T) {
	s := fileTestService(t)
	dir := t.TempDir()
	reportFile := filepath.Join(dir, "TC001_execution_1_20240315.xlsx")
	if err := os.WriteFile(reportFile, []byte("fake"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, name, err := s.OpenReport(&ExecutionEntity{ID: 1, ReportPath: reportFile})
	if err != nil {
		t.Fatalf("OpenReport failed: %v", err)
	}
	r.Close()
	if name != "TC001_execution_1_20240315.xlsx" {
		t.Errorf("download name = %s", name)
	}

	// No report recorded and missing file both map to not found.
	if _, _, err := s.OpenReport(&ExecutionEntity{ID: 2}); err == nil {
		t.Error("expected error without report path")
	}
	_, _, err = s.OpenReport(&ExecutionEntity{ID: 3, ReportPath: filepath.Join(dir, "gone.xlsx")})
	if err == nil {
		t.Error("expected error for missing file")
	}
}
