// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/srm999/DataQEsuite/dataset"
)

// Executor runs test cases end to end: load both sides, standardize,
// compare, write the report workbook and persist the outcome.
type Executor struct {
	service    *Service
	comparator *dataset.Comparator
	notifier   Notifier
	logger     *slog.Logger
}

// NewExecutor creates an executor on top of a service. A nil notifier
// disables failure notifications.
func NewExecutor(service *Service, notifier Notifier, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Executor{
		service:    service,
		comparator: &dataset.Comparator{Logger: logger},
		notifier:   notifier,
		logger:     logger,
	}
}

// ExecuteTestCase runs one test case on behalf of the scope and returns the
// finished execution record. Engine failures are recorded as ERROR runs,
// not returned as errors; only setup problems (authorization, missing test
// case, closed service) fail outright.
func (e *Executor) ExecuteTestCase(ctx context.Context, scope Scope, testCaseID int64) (*ExecutionEntity, error) {
	if err := e.service.checkClosed(); err != nil {
		return nil, err
	}
	tc, project, err := e.service.authorizeTestCase(ctx, scope, testCaseID)
	if err != nil {
		return nil, err
	}
	if !tc.Enabled {
		return nil, fmt.Errorf("%w: test case %s is disabled", ErrBadRequest, tc.TCID)
	}

	exec, err := e.service.CreateExecution(ctx, tc.ID, scope.UserID)
	if err != nil {
		return nil, err
	}
	if err := e.service.MarkExecutionRunning(ctx, exec.ID); err != nil {
		return nil, err
	}

	totalStart := e.service.stageStart()
	outcome := e.run(ctx, tc, exec)
	e.service.observeStage(ctx, MetricsOpExecute, MetricsStageTotal, totalStart,
		outcome.srcRows+outcome.tgtRows, outcome.status == StError)

	persistStart := e.service.stageStart()
	if err := e.service.FinishExecution(ctx, exec.ID, outcome.status, outcome.message,
		outcome.srcRows, outcome.tgtRows, outcome.mismatchCount, outcome.reportPath); err != nil {
		return nil, err
	}
	if len(outcome.mismatches) > 0 {
		if err := e.service.InsertMismatches(ctx, exec.ID, outcome.mismatches); err != nil {
			e.logger.Error("Failed to store mismatches", "execution_id", exec.ID, "error", err)
		}
	}
	e.service.observeStage(ctx, MetricsOpExecute, MetricsStagePersist, persistStart,
		len(outcome.mismatches), false)

	if outcome.status == StFailed || outcome.status == StError {
		e.notifyFailure(ctx, tc, project, exec.ID, outcome)
	}

	e.logger.Info("Test case executed",
		"tcid", tc.TCID,
		"execution_id", exec.ID,
		"status", outcome.status,
		"mismatches", outcome.mismatchCount)

	return e.service.GetExecution(ctx, exec.ID)
}

type runOutcome struct {
	status        string
	message       string
	srcRows       int
	tgtRows       int
	mismatchCount int
	mismatches    []dataset.Mismatch
	reportPath    string
}

// run performs the engine work and converts every failure into an outcome.
func (e *Executor) run(ctx context.Context, tc *TestCaseEntity, exec *ExecutionEntity) runOutcome {
	start := e.service.stageStart()
	src, srcExcel, err := e.loadSide(ctx, tc, tc.SrcConnectionID, tc.SrcDataFile, tc.SrcSheetName)
	e.service.observeStage(ctx, MetricsOpExecute, MetricsStageLoadSource, start, src.RowCount(), err != nil)
	if err != nil {
		return runOutcome{status: StError, message: fmt.Sprintf("load source: %v", err)}
	}

	var tgt *dataset.Frame
	var tgtExcel bool
	if tc.TestType != TestDuplicates {
		start = e.service.stageStart()
		tgt, tgtExcel, err = e.loadSide(ctx, tc, tc.TgtConnectionID, tc.TgtDataFile, tc.TgtSheetName)
		e.service.observeStage(ctx, MetricsOpExecute, MetricsStageLoadTarget, start, tgt.RowCount(), err != nil)
		if err != nil {
			return runOutcome{status: StError, srcRows: src.RowCount(), message: fmt.Sprintf("load target: %v", err)}
		}
	}

	start = e.service.stageStart()
	err = e.standardize(tc, src, srcExcel, tgt, tgtExcel)
	e.service.observeStage(ctx, MetricsOpExecute, MetricsStageStandardize, start,
		src.RowCount()+tgt.RowCount(), err != nil)
	if err != nil {
		return runOutcome{status: StError, srcRows: src.RowCount(), tgtRows: tgt.RowCount(),
			message: fmt.Sprintf("standardize: %v", err)}
	}

	start = e.service.stageStart()
	result, err := e.compare(tc, src, tgt)
	e.service.observeStage(ctx, MetricsOpExecute, MetricsStageCompare, start,
		src.RowCount()+tgt.RowCount(), err != nil)
	if err != nil {
		return runOutcome{status: StError, srcRows: src.RowCount(), tgtRows: tgt.RowCount(),
			message: fmt.Sprintf("compare: %v", err)}
	}

	outcome := runOutcome{
		message:       result.Message,
		srcRows:       result.SourceRows,
		tgtRows:       result.TargetRows,
		mismatchCount: result.MismatchCount,
		mismatches:    dataset.TruncateMismatches(result.Mismatches, dataset.DefaultLimits()),
	}
	if result.Passed {
		outcome.status = StPassed
	} else {
		outcome.status = StFailed
	}

	if e.wantReport(tc, outcome.status) {
		start = e.service.stageStart()
		path := e.service.reportPath(tc, exec.ID, time.Now())
		err := dataset.WriteReport(path, dataset.Report{
			TestCaseID: tc.TCID,
			TestType:   tc.TestType,
			ExecutedAt: time.Now(),
			Result:     result,
			Source:     src,
			Target:     tgt,
			Limits:     dataset.DefaultLimits(),
		})
		e.service.observeStage(ctx, MetricsOpExecute, MetricsStageReport, start, result.MismatchCount, err != nil)
		if err != nil {
			e.logger.Error("Failed to write report", "tcid", tc.TCID, "execution_id", exec.ID, "error", err)
		} else {
			outcome.reportPath = path
		}
	}
	return outcome
}

// wantReport decides whether a workbook is written: correctness and
// duplicates always document the run, completeness only when it failed.
func (e *Executor) wantReport(tc *TestCaseEntity, status string) bool {
	if e.service.config.DataRoot == "" {
		return false
	}
	if tc.TestType == TestCompleteness {
		return status == StFailed
	}
	return true
}

// loadSide materializes one side of the comparison. A nil or file-based
// connection reads the data file directly; a database connection treats the
// file as a SQL query. The second result marks workbook-sourced data, which
// stores percentages as fractions.
func (e *Executor) loadSide(ctx context.Context, tc *TestCaseEntity, connID *int64, dataFile, sheet string) (*dataset.Frame, bool, error) {
	path, err := e.service.ResolveTestCaseFile(tc, dataFile)
	if err != nil {
		return nil, false, err
	}

	var conn *ConnectionEntity
	if connID != nil {
		conn, err = e.service.GetConnection(ctx, *connID)
		if err != nil {
			return nil, false, err
		}
	}

	if conn == nil || conn.IsExcel {
		frame, err := e.loadFile(path, sheet, tc)
		fromExcel := isWorkbookPath(path)
		return frame, fromExcel, err
	}

	dsn, err := conn.DSN()
	if err != nil {
		return nil, false, err
	}
	db, err := dataset.OpenSQL(conn.Driver, dsn)
	if err != nil {
		return nil, false, err
	}
	defer db.Close()

	query, err := dataset.ReadSQLFile(path)
	if err != nil {
		return nil, false, err
	}
	query = applyFilters(query, tc.Filters)
	frame, err := dataset.QueryFrame(ctx, db, query)
	return frame, false, err
}

func isWorkbookPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return true
	}
	return false
}

func (e *Executor) loadFile(path, sheet string, tc *TestCaseEntity) (*dataset.Frame, error) {
	if isWorkbookPath(path) {
		return dataset.ReadExcelFile(path, dataset.ExcelOptions{
			Sheet:         sheet,
			SkipRows:      tc.SkipRows,
			HeaderColumns: dataset.SplitList(tc.HeaderColumns),
		})
	}
	return dataset.ReadCSVFile(path, dataset.CSVOptions{
		Delimiter:     tc.Delimiter,
		SkipRows:      tc.SkipRows,
		HeaderColumns: dataset.SplitList(tc.HeaderColumns),
	})
}

func (e *Executor) standardize(tc *TestCaseEntity, src *dataset.Frame, srcExcel bool, tgt *dataset.Frame, tgtExcel bool) error {
	opts := dataset.StandardizeOptions{
		DateColumns:       dataset.SplitList(tc.DateFields),
		PercentageColumns: dataset.SplitList(tc.PercentageFields),
	}

	srcOpts := opts
	srcOpts.FromExcel = srcExcel
	if err := dataset.Standardize(src, srcOpts); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if tgt != nil {
		tgtOpts := opts
		tgtOpts.FromExcel = tgtExcel
		if err := dataset.Standardize(tgt, tgtOpts); err != nil {
			return fmt.Errorf("target: %w", err)
		}
	}
	return nil
}

func (e *Executor) compare(tc *TestCaseEntity, src, tgt *dataset.Frame) (*dataset.CompareResult, error) {
	keys := dataset.SplitList(tc.PKColumns)
	switch tc.TestType {
	case TestDuplicates:
		return dataset.DuplicatesResult(src, keys)
	case TestCompleteness:
		passed, msg := dataset.CheckThreshold(src.RowCount(), tgt.RowCount(), tc.ThresholdPercentage)
		return &dataset.CompareResult{
			Passed:     passed,
			Message:    msg,
			SourceRows: src.RowCount(),
			TargetRows: tgt.RowCount(),
		}, nil
	case TestCorrectness:
		return e.comparator.Compare(src, tgt, keys)
	default:
		return nil, fmt.Errorf("unsupported test type %q", tc.TestType)
	}
}

func (e *Executor) notifyFailure(ctx context.Context, tc *TestCaseEntity, project *ProjectEntity, executionID int64, outcome runOutcome) {
	emails, err := e.service.ListTeamMemberEmails(ctx, project.TeamID)
	if err != nil {
		e.logger.Error("Failed to resolve notification recipients", "team_id", project.TeamID, "error", err)
		return
	}
	if len(emails) == 0 {
		return
	}
	notice := FailureNotice{
		TCID:        tc.TCID,
		TestName:    tc.Name,
		ExecutionID: executionID,
		Status:      outcome.status,
		Message:     outcome.message,
		Mismatches:  outcome.mismatchCount,
		Recipients:  emails,
	}
	if err := e.notifier.NotifyFailure(ctx, notice); err != nil {
		e.logger.Error("Failed to send failure notification", "tcid", tc.TCID, "error", err)
	}
}

// applyFilters appends the optional filter fragment of a test case to its
// SQL query. Fragments may start with WHERE/AND or be a bare condition.
func applyFilters(query, filters string) string {
	f := strings.TrimSpace(filters)
	if f == "" {
		return query
	}
	upper := strings.ToUpper(f)
	if strings.HasPrefix(upper, "WHERE") || strings.HasPrefix(upper, "AND") ||
		strings.HasPrefix(upper, "ORDER") || strings.HasPrefix(upper, "LIMIT") {
		return query + " " + f
	}
	if strings.Contains(strings.ToUpper(query), " WHERE ") {
		return query + " AND " + f
	}
	return query + " WHERE " + f
}
