// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// testCaseDir is the on-disk home of a test case: uploaded inputs plus
// generated reports. Empty when no data root is configured.
func (s *Service) testCaseDir(tc *TestCaseEntity) string {
	if s.config.DataRoot == "" {
		return ""
	}
	return filepath.Join(s.config.DataRoot, fmt.Sprintf("tc_%d", tc.ID))
}

// SaveTestCaseFile stores an uploaded input file under the test case
// directory and returns the stored path. The name is flattened to its base
// to keep uploads inside the directory.
func (s *Service) SaveTestCaseFile(tc *TestCaseEntity, name string, r io.Reader) (string, error) {
	dir := s.testCaseDir(tc)
	if dir == "" {
		return "", fmt.Errorf("no data root configured")
	}
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: invalid file name %q", ErrBadRequest, name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create test case dir: %w", err)
	}

	path := filepath.Join(dir, base)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// ResolveTestCaseFile maps a stored file reference to an absolute path.
// Absolute references are used as-is; everything else resolves against the
// test case directory.
func (s *Service) ResolveTestCaseFile(tc *TestCaseEntity, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty file reference", ErrBadRequest)
	}
	if filepath.IsAbs(ref) {
		return ref, nil
	}
	dir := s.testCaseDir(tc)
	if dir == "" {
		return "", fmt.Errorf("no data root configured")
	}
	return filepath.Join(dir, filepath.Base(ref)), nil
}

// reportPath builds the workbook location for one execution, named
// <TCID>_execution_<id>_<yyyymmdd>.xlsx.
func (s *Service) reportPath(tc *TestCaseEntity, executionID int64, at time.Time) string {
	dir := s.testCaseDir(tc)
	if dir == "" {
		return ""
	}
	name := fmt.Sprintf("%s_execution_%d_%s.xlsx", tc.TCID, executionID, at.Format("20060102"))
	return filepath.Join(dir, name)
}

// OpenTestCaseFile returns a reader over a stored input file of a test case
// plus its download name. Mirrors SaveTestCaseFile.
func (s *Service) OpenTestCaseFile(tc *TestCaseEntity, name string) (io.ReadCloser, string, error) {
	path, err := s.ResolveTestCaseFile(tc, name)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: file %q for test case %d", ErrNotFound, filepath.Base(path), tc.ID)
		}
		return nil, "", fmt.Errorf("open test case file: %w", err)
	}
	return f, filepath.Base(path), nil
}

// OpenReport returns a reader over the stored report of an execution plus
// the download file name.
func (s *Service) OpenReport(e *ExecutionEntity) (io.ReadCloser, string, error) {
	if e.ReportPath == "" {
		return nil, "", fmt.Errorf("%w: execution %d has no report", ErrNotFound, e.ID)
	}
	f, err := os.Open(e.ReportPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: report file missing for execution %d", ErrNotFound, e.ID)
		}
		return nil, "", fmt.Errorf("open report: %w", err)
	}
	return f, filepath.Base(e.ReportPath), nil
}
