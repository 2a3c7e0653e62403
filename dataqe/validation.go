// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/srm999/DataQEsuite/dataset"
)

// Validation error sentinels for better error mapping
var (
	ErrNotFound     = errors.New("not_found")
	ErrBadRequest   = errors.New("bad_request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// validateTestCase normalizes and checks a test case request before it hits
// the database.
func validateTestCase(req *TestCaseRequest) error {
	req.TCID = strings.TrimSpace(req.TCID)
	req.Name = strings.TrimSpace(req.Name)
	req.TestType = strings.TrimSpace(req.TestType)

	if req.ProjectID <= 0 {
		return fmt.Errorf("%w: project_id is required", ErrBadRequest)
	}
	if req.TCID == "" {
		return fmt.Errorf("%w: tcid is required", ErrBadRequest)
	}
	if req.Name == "" {
		return fmt.Errorf("%w: name is required", ErrBadRequest)
	}
	switch req.TestType {
	case TestCompleteness, TestCorrectness, TestDuplicates:
	default:
		return fmt.Errorf("%w: invalid test_type %q", ErrBadRequest, req.TestType)
	}
	if req.TestType == TestDuplicates && strings.TrimSpace(req.PKColumns) == "" {
		return fmt.Errorf("%w: pk_columns required for %s tests", ErrBadRequest, TestDuplicates)
	}
	if req.ThresholdPercentage < 0 || req.ThresholdPercentage > 100 {
		return fmt.Errorf("%w: threshold_percentage must be within [0,100]", ErrBadRequest)
	}
	if req.SkipRows < 0 {
		return fmt.Errorf("%w: skip_rows must be >= 0", ErrBadRequest)
	}
	if req.SrcDataFile == "" {
		return fmt.Errorf("%w: src_data_file is required", ErrBadRequest)
	}
	if req.TestType != TestDuplicates && req.TgtDataFile == "" {
		return fmt.Errorf("%w: tgt_data_file is required for %s tests", ErrBadRequest, req.TestType)
	}
	return nil
}

// validateConnection checks a connection request. File connections only need
// a name; database connections need a driver the engine can open.
func validateConnection(req *ConnectionRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Driver = strings.ToLower(strings.TrimSpace(req.Driver))

	if req.Name == "" {
		return fmt.Errorf("%w: name is required", ErrBadRequest)
	}
	if req.ProjectID <= 0 {
		return fmt.Errorf("%w: project_id is required", ErrBadRequest)
	}
	if req.IsExcel {
		return nil
	}
	switch req.Driver {
	case dataset.DriverPostgres, dataset.DriverSQLite:
	default:
		return fmt.Errorf("%w: unsupported driver %q", ErrBadRequest, req.Driver)
	}
	if req.Server == "" && req.Driver == dataset.DriverPostgres {
		return fmt.Errorf("%w: server is required for %s connections", ErrBadRequest, req.Driver)
	}
	if req.Database == "" {
		return fmt.Errorf("%w: database is required", ErrBadRequest)
	}
	return nil
}

// validateSchedule checks frequency, HH:MM time and weekday list.
func validateSchedule(req *ScheduleRequest) error {
	req.Frequency = strings.ToUpper(strings.TrimSpace(req.Frequency))
	req.RunAt = strings.TrimSpace(req.RunAt)

	if req.TestCaseID <= 0 {
		return fmt.Errorf("%w: test_case_id is required", ErrBadRequest)
	}
	switch req.Frequency {
	case FreqDaily, FreqWeekly:
	default:
		return fmt.Errorf("%w: frequency must be %s or %s", ErrBadRequest, FreqDaily, FreqWeekly)
	}
	if _, _, err := parseRunAt(req.RunAt); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if req.Frequency == FreqWeekly {
		days, err := parseWeekdays(req.Weekdays)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		if len(days) == 0 {
			return fmt.Errorf("%w: weekdays required for %s schedules", ErrBadRequest, FreqWeekly)
		}
	}
	return nil
}

// parseRunAt parses a 24-hour "HH:MM" string.
func parseRunAt(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("run_at must be HH:MM, got %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("run_at hour out of range in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("run_at minute out of range in %q", s)
	}
	return hour, minute, nil
}

// parseWeekdays parses a comma-separated 0-6 day list (Sunday=0), deduped
// and sorted by first occurrence.
func parseWeekdays(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	seen := make(map[int]bool)
	var days []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil || d < 0 || d > 6 {
			return nil, fmt.Errorf("invalid weekday %q (expect 0-6)", part)
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	return days, nil
}

// validateUser checks a user create/update request.
func validateUser(req *UserRequest, creating bool) error {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" {
		return fmt.Errorf("%w: username is required", ErrBadRequest)
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return fmt.Errorf("%w: valid email is required", ErrBadRequest)
	}
	if creating && len(req.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrBadRequest)
	}
	if !creating && req.Password != "" && len(req.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrBadRequest)
	}
	return nil
}
