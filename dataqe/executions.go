// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/srm999/DataQEsuite/dataset"
)

// CreateExecution records a new pending run for a test case.
func (s *Service) CreateExecution(ctx context.Context, testCaseID, executedBy int64) (*ExecutionEntity, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	var e ExecutionEntity
	err := s.pool.QueryRow(ctx, `
		INSERT INTO dataqe.executions (test_case_id, status, executed_by)
		VALUES (@test_case_id, @status, @executed_by)
		RETURNING id, test_case_id, status, message, source_rows, target_rows,
			mismatch_count, report_path, executed_by, started_at, finished_at`,
		pgx.NamedArgs{"test_case_id": testCaseID, "status": StPending, "executed_by": executedBy},
	).Scan(&e.ID, &e.TestCaseID, &e.Status, &e.Message, &e.SourceRows, &e.TargetRows,
		&e.MismatchCount, &e.ReportPath, &e.ExecutedBy, &e.StartedAt, &e.FinishedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: test case %d", ErrNotFound, testCaseID)
		}
		return nil, fmt.Errorf("create execution: %w", err)
	}
	return &e, nil
}

// MarkExecutionRunning flips a pending execution to RUNNING.
func (s *Service) MarkExecutionRunning(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE dataqe.executions SET status = @status WHERE id = @id`,
		pgx.NamedArgs{"id": id, "status": StRunning})
	if err != nil {
		return fmt.Errorf("mark execution running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: execution %d", ErrNotFound, id)
	}
	return nil
}

// FinishExecution records the terminal state of a run.
func (s *Service) FinishExecution(ctx context.Context, id int64, status, message string,
	srcRows, tgtRows, mismatches int, reportPath string) error {

	tag, err := s.pool.Exec(ctx, `
		UPDATE dataqe.executions
		SET status = @status, message = @message, source_rows = @source_rows,
			target_rows = @target_rows, mismatch_count = @mismatch_count,
			report_path = @report_path, finished_at = now()
		WHERE id = @id`,
		pgx.NamedArgs{
			"id":             id,
			"status":         status,
			"message":        message,
			"source_rows":    srcRows,
			"target_rows":    tgtRows,
			"mismatch_count": mismatches,
			"report_path":    reportPath,
		})
	if err != nil {
		return fmt.Errorf("finish execution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: execution %d", ErrNotFound, id)
	}
	return nil
}

// GetExecution returns one execution by id.
func (s *Service) GetExecution(ctx context.Context, id int64) (*ExecutionEntity, error) {
	var e ExecutionEntity
	err := s.pool.QueryRow(ctx, `
		SELECT id, test_case_id, status, message, source_rows, target_rows,
			mismatch_count, report_path, executed_by, started_at, finished_at
		FROM dataqe.executions WHERE id = @id`,
		pgx.NamedArgs{"id": id},
	).Scan(&e.ID, &e.TestCaseID, &e.Status, &e.Message, &e.SourceRows, &e.TargetRows,
		&e.MismatchCount, &e.ReportPath, &e.ExecutedBy, &e.StartedAt, &e.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: execution %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get execution: %w", err)
	}
	return &e, nil
}

// GetExecutionResponse returns the API view of one execution, including the
// test case identity and the executing user's name.
func (s *Service) GetExecutionResponse(ctx context.Context, id int64) (*ExecutionResponse, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.test_case_id, tc.tcid, tc.name, e.status, e.message,
			e.source_rows, e.target_rows, e.mismatch_count, e.report_path,
			u.username, e.started_at, e.finished_at
		FROM dataqe.executions e
		JOIN dataqe.test_cases tc ON tc.id = e.test_case_id
		JOIN dataqe.users u ON u.id = e.executed_by
		WHERE e.id = @id`,
		pgx.NamedArgs{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get execution view: %w", err)
	}
	defer rows.Close()

	execs, err := scanExecutionResponses(rows)
	if err != nil {
		return nil, err
	}
	if len(execs) == 0 {
		return nil, fmt.Errorf("%w: execution %d", ErrNotFound, id)
	}
	return &execs[0], nil
}

// ListExecutions returns one page of execution history, newest first.
// Non-admin scopes only see runs of their own team's test cases. A zero
// testCaseID means all test cases in scope.
func (s *Service) ListExecutions(ctx context.Context, scope Scope, testCaseID int64, page int) (*ExecutionPage, error) {
	if page < 1 {
		page = 1
	}
	size := s.pageSize()

	where := ` WHERE 1=1`
	args := pgx.NamedArgs{"limit": size, "offset": (page - 1) * size}
	if testCaseID > 0 {
		where += ` AND e.test_case_id = @test_case_id`
		args["test_case_id"] = testCaseID
	}
	if !scope.IsAdmin {
		where += ` AND p.team_id = @team_id`
		args["team_id"] = scope.TeamID
	}

	var total int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM dataqe.executions e
		JOIN dataqe.test_cases tc ON tc.id = e.test_case_id
		JOIN dataqe.projects p ON p.id = tc.project_id`+where, args,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count executions: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.test_case_id, tc.tcid, tc.name, e.status, e.message,
			e.source_rows, e.target_rows, e.mismatch_count, e.report_path,
			u.username, e.started_at, e.finished_at
		FROM dataqe.executions e
		JOIN dataqe.test_cases tc ON tc.id = e.test_case_id
		JOIN dataqe.projects p ON p.id = tc.project_id
		JOIN dataqe.users u ON u.id = e.executed_by`+where+`
		ORDER BY e.started_at DESC, e.id DESC
		LIMIT @limit OFFSET @offset`, args)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	execs, err := scanExecutionResponses(rows)
	if err != nil {
		return nil, err
	}

	totalPages := (total + size - 1) / size
	if totalPages == 0 {
		totalPages = 1
	}
	return &ExecutionPage{
		Executions: execs,
		Page:       page,
		PageSize:   size,
		TotalRows:  total,
		TotalPages: totalPages,
	}, nil
}

// Dashboard aggregates per-status totals, the most recent runs and the test
// cases failing most often over the trailing 30 days.
func (s *Service) Dashboard(ctx context.Context, scope Scope) (*DashboardResponse, error) {
	where := ` WHERE 1=1`
	args := pgx.NamedArgs{}
	if !scope.IsAdmin {
		where += ` AND p.team_id = @team_id`
		args["team_id"] = scope.TeamID
	}

	resp := &DashboardResponse{}

	rows, err := s.pool.Query(ctx, `
		SELECT e.status, count(*)
		FROM dataqe.executions e
		JOIN dataqe.test_cases tc ON tc.id = e.test_case_id
		JOIN dataqe.projects p ON p.id = tc.project_id`+where+`
		GROUP BY e.status ORDER BY e.status`, args)
	if err != nil {
		return nil, fmt.Errorf("dashboard status totals: %w", err)
	}
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			rows.Close()
			return nil, err
		}
		resp.StatusTotals = append(resp.StatusTotals, sc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT e.id, e.test_case_id, tc.tcid, tc.name, e.status, e.message,
			e.source_rows, e.target_rows, e.mismatch_count, e.report_path,
			u.username, e.started_at, e.finished_at
		FROM dataqe.executions e
		JOIN dataqe.test_cases tc ON tc.id = e.test_case_id
		JOIN dataqe.projects p ON p.id = tc.project_id
		JOIN dataqe.users u ON u.id = e.executed_by`+where+`
		ORDER BY e.started_at DESC, e.id DESC
		LIMIT 10`, args)
	if err != nil {
		return nil, fmt.Errorf("dashboard recent: %w", err)
	}
	resp.Recent, err = scanExecutionResponses(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT tc.id, tc.tcid, tc.name, count(*) AS failures
		FROM dataqe.executions e
		JOIN dataqe.test_cases tc ON tc.id = e.test_case_id
		JOIN dataqe.projects p ON p.id = tc.project_id`+where+`
		AND e.status IN ('FAILED','ERROR')
		AND e.started_at > now() - interval '30 days'
		GROUP BY tc.id, tc.tcid, tc.name
		ORDER BY failures DESC, tc.tcid
		LIMIT 5`, args)
	if err != nil {
		return nil, fmt.Errorf("dashboard problem tests: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pt ProblemTest
		if err := rows.Scan(&pt.TestCaseID, &pt.TCID, &pt.Name, &pt.Failures); err != nil {
			return nil, err
		}
		resp.ProblemTests = append(resp.ProblemTests, pt)
	}
	return resp, rows.Err()
}

// InsertMismatches stores a capped sample of mismatches for one execution.
func (s *Service) InsertMismatches(ctx context.Context, executionID int64, mismatches []dataset.Mismatch) error {
	if len(mismatches) == 0 {
		return nil
	}
	if limit := s.mismatchKeepLimit(); len(mismatches) > limit {
		mismatches = mismatches[:limit]
	}

	return withTxRetry(ctx, 3, func() error {
		return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{AccessMode: pgx.ReadWrite}, func(tx pgx.Tx) error {
			for _, m := range mismatches {
				_, err := tx.Exec(ctx, `
					INSERT INTO dataqe.mismatches (execution_id, type, key_value, column_name, source_value, target_value)
					VALUES (@execution_id, @type, @key_value, @column_name, @source_value, @target_value)`,
					pgx.NamedArgs{
						"execution_id": executionID,
						"type":         m.Type,
						"key_value":    m.Key,
						"column_name":  m.Column,
						"source_value": m.SourceValue,
						"target_value": m.TargetValue,
					})
				if err != nil {
					return fmt.Errorf("insert mismatch: %w", err)
				}
			}
			return nil
		})
	})
}

// ListMismatches returns the stored mismatch sample of one execution.
func (s *Service) ListMismatches(ctx context.Context, executionID int64) ([]MismatchEntity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, execution_id, type, key_value, column_name, source_value, target_value
		FROM dataqe.mismatches WHERE execution_id = @execution_id ORDER BY id`,
		pgx.NamedArgs{"execution_id": executionID})
	if err != nil {
		return nil, fmt.Errorf("list mismatches: %w", err)
	}
	defer rows.Close()

	var out []MismatchEntity
	for rows.Next() {
		var m MismatchEntity
		if err := rows.Scan(&m.ID, &m.ExecutionID, &m.Type, &m.KeyValue, &m.ColumnName, &m.SourceValue, &m.TargetValue); err != nil {
			return nil, fmt.Errorf("scan mismatch: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanExecutionResponses(rows pgx.Rows) ([]ExecutionResponse, error) {
	var out []ExecutionResponse
	for rows.Next() {
		var e ExecutionResponse
		var reportPath string
		var finishedAt *time.Time
		if err := rows.Scan(&e.ID, &e.TestCaseID, &e.TCID, &e.TestName, &e.Status, &e.Message,
			&e.SourceRows, &e.TargetRows, &e.MismatchCount, &reportPath,
			&e.ExecutedBy, &e.StartedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		e.HasReport = reportPath != ""
		e.FinishedAt = finishedAt
		out = append(out, e)
	}
	return out, rows.Err()
}
