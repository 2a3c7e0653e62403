// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
)

const testCaseColumns = `
	id, project_id, tcid, name, test_type, enabled,
	src_connection_id, tgt_connection_id, src_data_file, tgt_data_file, filters,
	delimiter, pk_columns, date_fields, percentage_fields, threshold_percentage,
	src_sheet_name, tgt_sheet_name, header_columns, skip_rows, created_at, updated_at`

func scanTestCase(row pgx.Row) (*TestCaseEntity, error) {
	var tc TestCaseEntity
	err := row.Scan(&tc.ID, &tc.ProjectID, &tc.TCID, &tc.Name, &tc.TestType, &tc.Enabled,
		&tc.SrcConnectionID, &tc.TgtConnectionID, &tc.SrcDataFile, &tc.TgtDataFile, &tc.Filters,
		&tc.Delimiter, &tc.PKColumns, &tc.DateFields, &tc.PercentageFields, &tc.ThresholdPercentage,
		&tc.SrcSheetName, &tc.TgtSheetName, &tc.HeaderColumns, &tc.SkipRows, &tc.CreatedAt, &tc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &tc, nil
}

// CreateTestCase inserts a test case.
func (s *Service) CreateTestCase(ctx context.Context, req *TestCaseRequest) (*TestCaseEntity, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	if err := validateTestCase(req); err != nil {
		return nil, err
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	args := testCaseArgs(req)
	args["enabled"] = enabled
	tc, err := scanTestCase(s.pool.QueryRow(ctx, `
		INSERT INTO dataqe.test_cases
			(project_id, tcid, name, test_type, enabled,
			 src_connection_id, tgt_connection_id, src_data_file, tgt_data_file, filters,
			 delimiter, pk_columns, date_fields, percentage_fields, threshold_percentage,
			 src_sheet_name, tgt_sheet_name, header_columns, skip_rows)
		VALUES
			(@project_id, @tcid, @name, @test_type, @enabled,
			 @src_connection_id, @tgt_connection_id, @src_data_file, @tgt_data_file, @filters,
			 @delimiter, @pk_columns, @date_fields, @percentage_fields, @threshold_percentage,
			 @src_sheet_name, @tgt_sheet_name, @header_columns, @skip_rows)
		RETURNING`+testCaseColumns, args))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: tcid %q already exists in project %d", ErrConflict, req.TCID, req.ProjectID)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: project or connection reference", ErrNotFound)
		}
		return nil, fmt.Errorf("create test case: %w", err)
	}
	return tc, nil
}

// GetTestCase returns one test case by id.
func (s *Service) GetTestCase(ctx context.Context, id int64) (*TestCaseEntity, error) {
	tc, err := scanTestCase(s.pool.QueryRow(ctx,
		`SELECT`+testCaseColumns+` FROM dataqe.test_cases WHERE id = @id`,
		pgx.NamedArgs{"id": id}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: test case %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get test case: %w", err)
	}
	return tc, nil
}

// ListTestCases returns the test cases of one project ordered by tcid.
func (s *Service) ListTestCases(ctx context.Context, projectID int64) ([]TestCaseEntity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+testCaseColumns+` FROM dataqe.test_cases WHERE project_id = @project_id ORDER BY tcid`,
		pgx.NamedArgs{"project_id": projectID})
	if err != nil {
		return nil, fmt.Errorf("list test cases: %w", err)
	}
	defer rows.Close()

	var cases []TestCaseEntity
	for rows.Next() {
		tc, err := scanTestCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan test case: %w", err)
		}
		cases = append(cases, *tc)
	}
	return cases, rows.Err()
}

// UpdateTestCase replaces a test case's settings.
func (s *Service) UpdateTestCase(ctx context.Context, id int64, req *TestCaseRequest) (*TestCaseEntity, error) {
	if err := validateTestCase(req); err != nil {
		return nil, err
	}
	current, err := s.GetTestCase(ctx, id)
	if err != nil {
		return nil, err
	}
	enabled := current.Enabled
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	args := testCaseArgs(req)
	args["id"] = id
	args["enabled"] = enabled
	tc, err := scanTestCase(s.pool.QueryRow(ctx, `
		UPDATE dataqe.test_cases
		SET project_id = @project_id, tcid = @tcid, name = @name, test_type = @test_type,
			enabled = @enabled, src_connection_id = @src_connection_id,
			tgt_connection_id = @tgt_connection_id, src_data_file = @src_data_file,
			tgt_data_file = @tgt_data_file, filters = @filters, delimiter = @delimiter,
			pk_columns = @pk_columns, date_fields = @date_fields,
			percentage_fields = @percentage_fields, threshold_percentage = @threshold_percentage,
			src_sheet_name = @src_sheet_name, tgt_sheet_name = @tgt_sheet_name,
			header_columns = @header_columns, skip_rows = @skip_rows, updated_at = now()
		WHERE id = @id
		RETURNING`+testCaseColumns, args))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: test case %d", ErrNotFound, id)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: tcid %q already exists in project %d", ErrConflict, req.TCID, req.ProjectID)
		}
		return nil, fmt.Errorf("update test case: %w", err)
	}
	return tc, nil
}

// DeleteTestCase removes a test case, its execution history via cascades,
// and its data directory on disk.
func (s *Service) DeleteTestCase(ctx context.Context, id int64) error {
	tc, err := s.GetTestCase(ctx, id)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM dataqe.test_cases WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("delete test case: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: test case %d", ErrNotFound, id)
	}
	if dir := s.testCaseDir(tc); dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("Failed to remove test case directory", "dir", dir, "error", err)
		}
	}
	return nil
}

// authorizeTestCase verifies the scope may touch the given test case and
// returns it together with its project.
func (s *Service) authorizeTestCase(ctx context.Context, scope Scope, id int64) (*TestCaseEntity, *ProjectEntity, error) {
	tc, err := s.GetTestCase(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.authorizeProject(ctx, scope, tc.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return tc, p, nil
}

func testCaseArgs(req *TestCaseRequest) pgx.NamedArgs {
	return pgx.NamedArgs{
		"project_id":           req.ProjectID,
		"tcid":                 req.TCID,
		"name":                 req.Name,
		"test_type":            req.TestType,
		"src_connection_id":    req.SrcConnectionID,
		"tgt_connection_id":    req.TgtConnectionID,
		"src_data_file":        req.SrcDataFile,
		"tgt_data_file":        req.TgtDataFile,
		"filters":              req.Filters,
		"delimiter":            req.Delimiter,
		"pk_columns":           req.PKColumns,
		"date_fields":          req.DateFields,
		"percentage_fields":    req.PercentageFields,
		"threshold_percentage": req.ThresholdPercentage,
		"src_sheet_name":       req.SrcSheetName,
		"tgt_sheet_name":       req.TgtSheetName,
		"header_columns":       req.HeaderColumns,
		"skip_rows":            req.SkipRows,
	}
}

func testCaseResponse(tc *TestCaseEntity) TestCaseResponse {
	return TestCaseResponse{
		ID:                  tc.ID,
		ProjectID:           tc.ProjectID,
		TCID:                tc.TCID,
		Name:                tc.Name,
		TestType:            tc.TestType,
		Enabled:             tc.Enabled,
		SrcConnectionID:     tc.SrcConnectionID,
		TgtConnectionID:     tc.TgtConnectionID,
		SrcDataFile:         tc.SrcDataFile,
		TgtDataFile:         tc.TgtDataFile,
		Filters:             tc.Filters,
		Delimiter:           tc.Delimiter,
		PKColumns:           tc.PKColumns,
		DateFields:          tc.DateFields,
		PercentageFields:    tc.PercentageFields,
		ThresholdPercentage: tc.ThresholdPercentage,
		SrcSheetName:        tc.SrcSheetName,
		TgtSheetName:        tc.TgtSheetName,
		HeaderColumns:       tc.HeaderColumns,
		SkipRows:            tc.SkipRows,
		CreatedAt:           tc.CreatedAt,
		UpdatedAt:           tc.UpdatedAt,
	}
}
