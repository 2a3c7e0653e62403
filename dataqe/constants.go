// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

// Execution status constants
const (
	StPending = "PENDING"
	StRunning = "RUNNING"
	StPassed  = "PASSED"
	StFailed  = "FAILED"
	StError   = "ERROR"
)

// Test type constants
const (
	TestCompleteness = "Completeness"
	TestCorrectness  = "Correctness"
	TestDuplicates   = "Duplicates"
)

// Schedule frequency constants
const (
	FreqDaily  = "DAILY"
	FreqWeekly = "WEEKLY"
)

// SystemUsername is the synthetic account scheduled runs execute under.
const SystemUsername = "system"
