// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"time"
)

// REST/JSON models for HTTP API requests and responses
// These models are used for serialization/deserialization of HTTP requests and responses

// LoginRequest carries user credentials
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse returns the bearer token and the authenticated profile
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse is the serialized view of a user (no password material)
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
	TeamID   *int64 `json:"team_id,omitempty"`
}

// UserRequest creates or updates a user
type UserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"` // empty on update keeps the current password
	IsAdmin  bool   `json:"is_admin"`
	TeamID   *int64 `json:"team_id,omitempty"`
}

// TeamRequest creates or renames a team
type TeamRequest struct {
	Name string `json:"name"`
}

// TeamResponse is the serialized view of a team
type TeamResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectRequest creates or updates a project
type ProjectRequest struct {
	Name   string `json:"name"`
	TeamID int64  `json:"team_id"`
}

// ProjectResponse is the serialized view of a project
type ProjectResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	TeamID    int64     `json:"team_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectMemberRequest assigns a user to a project's owning team
type ProjectMemberRequest struct {
	UserID int64 `json:"user_id"`
}

// ConnectionRequest creates or updates a connection
type ConnectionRequest struct {
	Name      string `json:"name"`
	ProjectID int64  `json:"project_id"`
	Driver    string `json:"driver,omitempty"`
	Server    string `json:"server,omitempty"`
	Database  string `json:"database,omitempty"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
	Warehouse string `json:"warehouse,omitempty"`
	Role      string `json:"role,omitempty"`
	IsExcel   bool   `json:"is_excel"`
}

// ConnectionResponse is the serialized view of a connection (no password)
type ConnectionResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ProjectID int64     `json:"project_id"`
	Driver    string    `json:"driver,omitempty"`
	Server    string    `json:"server,omitempty"`
	Database  string    `json:"database,omitempty"`
	Username  string    `json:"username,omitempty"`
	Warehouse string    `json:"warehouse,omitempty"`
	Role      string    `json:"role,omitempty"`
	IsExcel   bool      `json:"is_excel"`
	CreatedAt time.Time `json:"created_at"`
}

// TestCaseRequest creates or updates a test case
type TestCaseRequest struct {
	ProjectID int64  `json:"project_id"`
	TCID      string `json:"tcid"`
	Name      string `json:"name"`
	TestType  string `json:"test_type"`
	Enabled   *bool  `json:"enabled,omitempty"` // defaults to true on create

	SrcConnectionID *int64 `json:"src_connection_id,omitempty"`
	TgtConnectionID *int64 `json:"tgt_connection_id,omitempty"`
	SrcDataFile     string `json:"src_data_file,omitempty"`
	TgtDataFile     string `json:"tgt_data_file,omitempty"`
	Filters         string `json:"filters,omitempty"`

	Delimiter           string  `json:"delimiter,omitempty"`
	PKColumns           string  `json:"pk_columns,omitempty"`
	DateFields          string  `json:"date_fields,omitempty"`
	PercentageFields    string  `json:"percentage_fields,omitempty"`
	ThresholdPercentage float64 `json:"threshold_percentage,omitempty"`
	SrcSheetName        string  `json:"src_sheet_name,omitempty"`
	TgtSheetName        string  `json:"tgt_sheet_name,omitempty"`
	HeaderColumns       string  `json:"header_columns,omitempty"`
	SkipRows            int     `json:"skip_rows,omitempty"`
}

// TestCaseResponse is the serialized view of a test case
type TestCaseResponse struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	TCID      string `json:"tcid"`
	Name      string `json:"name"`
	TestType  string `json:"test_type"`
	Enabled   bool   `json:"enabled"`

	SrcConnectionID *int64 `json:"src_connection_id,omitempty"`
	TgtConnectionID *int64 `json:"tgt_connection_id,omitempty"`
	SrcDataFile     string `json:"src_data_file,omitempty"`
	TgtDataFile     string `json:"tgt_data_file,omitempty"`
	Filters         string `json:"filters,omitempty"`

	Delimiter           string  `json:"delimiter,omitempty"`
	PKColumns           string  `json:"pk_columns,omitempty"`
	DateFields          string  `json:"date_fields,omitempty"`
	PercentageFields    string  `json:"percentage_fields,omitempty"`
	ThresholdPercentage float64 `json:"threshold_percentage,omitempty"`
	SrcSheetName        string  `json:"src_sheet_name,omitempty"`
	TgtSheetName        string  `json:"tgt_sheet_name,omitempty"`
	HeaderColumns       string  `json:"header_columns,omitempty"`
	SkipRows            int     `json:"skip_rows,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExecutionResponse is the serialized view of one run
type ExecutionResponse struct {
	ID            int64      `json:"id"`
	TestCaseID    int64      `json:"test_case_id"`
	TCID          string     `json:"tcid,omitempty"`
	TestName      string     `json:"test_name,omitempty"`
	Status        string     `json:"status"`
	Message       string     `json:"message,omitempty"`
	SourceRows    int        `json:"source_rows"`
	TargetRows    int        `json:"target_rows"`
	MismatchCount int        `json:"mismatch_count"`
	HasReport     bool       `json:"has_report"`
	ExecutedBy    string     `json:"executed_by,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// ExecutionPage is one page of execution history
type ExecutionPage struct {
	Executions []ExecutionResponse `json:"executions"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalRows  int                 `json:"total_rows"`
	TotalPages int                 `json:"total_pages"`
}

// MismatchResponse is the serialized view of one stored mismatch
type MismatchResponse struct {
	ID          int64  `json:"id"`
	ExecutionID int64  `json:"execution_id"`
	Type        string `json:"type"`
	Key         string `json:"key"`
	Column      string `json:"column,omitempty"`
	SourceValue string `json:"source_value,omitempty"`
	TargetValue string `json:"target_value,omitempty"`
}

// ScheduleRequest creates or updates a schedule
type ScheduleRequest struct {
	TestCaseID int64  `json:"test_case_id"`
	Frequency  string `json:"frequency"`
	RunAt      string `json:"run_at"`
	Weekdays   string `json:"weekdays,omitempty"`
	Enabled    *bool  `json:"enabled,omitempty"`
}

// ScheduleResponse is the serialized view of a schedule
type ScheduleResponse struct {
	ID         int64     `json:"id"`
	TestCaseID int64     `json:"test_case_id"`
	Frequency  string    `json:"frequency"`
	RunAt      string    `json:"run_at"`
	Weekdays   string    `json:"weekdays,omitempty"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
}

// StatusCount pairs an execution status with its total
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// ProblemTest summarizes a frequently failing test case
type ProblemTest struct {
	TestCaseID int64  `json:"test_case_id"`
	TCID       string `json:"tcid"`
	Name       string `json:"name"`
	Failures   int    `json:"failures"`
}

// DashboardResponse backs the results overview page
type DashboardResponse struct {
	StatusTotals []StatusCount       `json:"status_totals"`
	Recent       []ExecutionResponse `json:"recent"`
	ProblemTests []ProblemTest       `json:"problem_tests"`
}

// ErrorResponse is the standardized error body
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FileUploadResponse reports where an uploaded input landed
type FileUploadResponse struct {
	FileName string `json:"file_name"`
}
