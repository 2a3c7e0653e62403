// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"time"
)

// Database entity models for PostgreSQL tables
// These models are used for database operations and have db struct tags

// TeamEntity represents a row in dataqe.teams
type TeamEntity struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// ProjectEntity represents a row in dataqe.projects
type ProjectEntity struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	TeamID    int64     `db:"team_id"`
	CreatedAt time.Time `db:"created_at"`
}

// UserEntity represents a row in dataqe.users
type UserEntity struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"` // bcrypt hash, never serialized
	IsAdmin      bool      `db:"is_admin"`
	TeamID       *int64    `db:"team_id"` // NULL for admins without a team
	CreatedAt    time.Time `db:"created_at"`
}

// ConnectionEntity represents a row in dataqe.connections
// A connection is either a database endpoint or an Excel/flat-file marker.
type ConnectionEntity struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	ProjectID int64     `db:"project_id"`
	Driver    string    `db:"driver"` // "postgres" or "sqlite"; ignored for file connections
	Server    string    `db:"server"`
	Database  string    `db:"database"`
	Username  string    `db:"username"`
	Password  string    `db:"password"`
	Warehouse string    `db:"warehouse"`
	Role      string    `db:"role"`
	IsExcel   bool      `db:"is_excel"` // file-based source (Excel/CSV), no DSN
	CreatedAt time.Time `db:"created_at"`
}

// TestCaseEntity represents a row in dataqe.test_cases
type TestCaseEntity struct {
	ID        int64  `db:"id"`
	ProjectID int64  `db:"project_id"`
	TCID      string `db:"tcid"` // human identifier, unique per project
	Name      string `db:"name"`
	TestType  string `db:"test_type"` // Completeness, Correctness, Duplicates
	Enabled   bool   `db:"enabled"`   // disabled cases are skipped by runs

	SrcConnectionID *int64 `db:"src_connection_id"`
	TgtConnectionID *int64 `db:"tgt_connection_id"`
	SrcDataFile     string `db:"src_data_file"` // SQL file, workbook or delimited file
	TgtDataFile     string `db:"tgt_data_file"`
	Filters         string `db:"filters"` // extra WHERE fragment appended to SQL sources

	Delimiter           string  `db:"delimiter"`
	PKColumns           string  `db:"pk_columns"` // comma-separated key columns
	DateFields          string  `db:"date_fields"`
	PercentageFields    string  `db:"percentage_fields"`
	ThresholdPercentage float64 `db:"threshold_percentage"`
	SrcSheetName        string  `db:"src_sheet_name"`
	TgtSheetName        string  `db:"tgt_sheet_name"`
	HeaderColumns       string  `db:"header_columns"`
	SkipRows            int     `db:"skip_rows"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ExecutionEntity represents a row in dataqe.executions
type ExecutionEntity struct {
	ID            int64      `db:"id"`
	TestCaseID    int64      `db:"test_case_id"`
	Status        string     `db:"status"`
	Message       string     `db:"message"`
	SourceRows    int        `db:"source_rows"`
	TargetRows    int        `db:"target_rows"`
	MismatchCount int        `db:"mismatch_count"`
	ReportPath    string     `db:"report_path"` // empty when no workbook was written
	ExecutedBy    int64      `db:"executed_by"`
	StartedAt     time.Time  `db:"started_at"`
	FinishedAt    *time.Time `db:"finished_at"`
}

// MismatchEntity represents a row in dataqe.mismatches
type MismatchEntity struct {
	ID          int64  `db:"id"`
	ExecutionID int64  `db:"execution_id"`
	Type        string `db:"type"`
	KeyValue    string `db:"key_value"`
	ColumnName  string `db:"column_name"`
	SourceValue string `db:"source_value"`
	TargetValue string `db:"target_value"`
}

// ScheduleEntity represents a row in dataqe.schedules
type ScheduleEntity struct {
	ID         int64     `db:"id"`
	TestCaseID int64     `db:"test_case_id"`
	Frequency  string    `db:"frequency"` // DAILY or WEEKLY
	RunAt      string    `db:"run_at"`    // "HH:MM", 24-hour
	Weekdays   string    `db:"weekdays"`  // comma-separated 0-6 (Sunday=0), WEEKLY only
	Enabled    bool      `db:"enabled"`
	CreatedAt  time.Time `db:"created_at"`
}
