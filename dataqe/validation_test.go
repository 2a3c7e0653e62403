// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"errors"
	"reflect"
	"testing"
)

func validTestCaseRequest() *TestCaseRequest {
	return &TestCaseRequest{
		ProjectID:   1,
		TCID:        "TC001",
		Name:        "orders source vs warehouse",
		TestType:    TestCorrectness,
		SrcDataFile: "orders_src.sql",
		TgtDataFile: "orders_tgt.sql",
		PKColumns:   "order_id",
	}
}

func TestValidateTestCase(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TestCaseRequest)
		wantErr bool
	}{
		{"valid correctness", func(r *TestCaseRequest) {}, false},
		{"missing project", func(r *TestCaseRequest) { r.ProjectID = 0 }, true},
		{"missing tcid", func(r *TestCaseRequest) { r.TCID = "  " }, true},
		{"missing name", func(r *TestCaseRequest) { r.Name = "" }, true},
		{"bad test type", func(r *TestCaseRequest) { r.TestType = "FANCY" }, true},
		{"duplicates needs pk", func(r *TestCaseRequest) {
			r.TestType = TestDuplicates
			r.PKColumns = ""
		}, true},
		{"duplicates without target file ok", func(r *TestCaseRequest) {
			r.TestType = TestDuplicates
			r.TgtDataFile = ""
		}, false},
		{"correctness needs target file", func(r *TestCaseRequest) { r.TgtDataFile = "" }, true},
		{"missing source file", func(r *TestCaseRequest) { r.SrcDataFile = "" }, true},
		{"threshold over 100", func(r *TestCaseRequest) { r.ThresholdPercentage = 101 }, true},
		{"negative threshold", func(r *TestCaseRequest) { r.ThresholdPercentage = -1 }, true},
		{"negative skip rows", func(r *TestCaseRequest) { r.SkipRows = -1 }, true},
		{"completeness with threshold", func(r *TestCaseRequest) {
			r.TestType = TestCompleteness
			r.ThresholdPercentage = 5
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validTestCaseRequest()
			tt.mutate(req)
			err := validateTestCase(req)
			if tt.wantErr {
				if !errors.Is(err, ErrBadRequest) {
					t.Errorf("expected ErrBadRequest, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateConnection(t *testing.T) {
	tests := []struct {
		name    string
		req     ConnectionRequest
		wantErr bool
	}{
		{"postgres", ConnectionRequest{Name: "wh", ProjectID: 1, Driver: "postgres", Server: "db", Database: "dw"}, false},
		{"driver case-insensitive", ConnectionRequest{Name: "wh", ProjectID: 1, Driver: " Postgres ", Server: "db", Database: "dw"}, false},
		{"sqlite without server", ConnectionRequest{Name: "local", ProjectID: 1, Driver: "sqlite", Database: "app.db"}, false},
		{"excel skips driver checks", ConnectionRequest{Name: "sheet", ProjectID: 1, IsExcel: true}, false},
		{"missing name", ConnectionRequest{ProjectID: 1, Driver: "postgres", Server: "db", Database: "dw"}, true},
		{"missing project", ConnectionRequest{Name: "wh", Driver: "postgres", Server: "db", Database: "dw"}, true},
		{"unknown driver", ConnectionRequest{Name: "wh", ProjectID: 1, Driver: "oracle", Database: "dw"}, true},
		{"postgres without server", ConnectionRequest{Name: "wh", ProjectID: 1, Driver: "postgres", Database: "dw"}, true},
		{"missing database", ConnectionRequest{Name: "wh", ProjectID: 1, Driver: "postgres", Server: "db"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConnection(&tt.req)
			if tt.wantErr && !errors.Is(err, ErrBadRequest) {
				t.Errorf("expected ErrBadRequest, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		name    string
		req     ScheduleRequest
		wantErr bool
	}{
		{"daily", ScheduleRequest{TestCaseID: 1, Frequency: "daily", RunAt: "06:30"}, false},
		{"weekly", ScheduleRequest{TestCaseID: 1, Frequency: "WEEKLY", RunAt: "23:59", Weekdays: "1,3,5"}, false},
		{"missing test case", ScheduleRequest{Frequency: "DAILY", RunAt: "06:30"}, true},
		{"bad frequency", ScheduleRequest{TestCaseID: 1, Frequency: "HOURLY", RunAt: "06:30"}, true},
		{"bad time", ScheduleRequest{TestCaseID: 1, Frequency: "DAILY", RunAt: "24:00"}, true},
		{"weekly without days", ScheduleRequest{TestCaseID: 1, Frequency: "WEEKLY", RunAt: "06:30"}, true},
		{"weekly bad day", ScheduleRequest{TestCaseID: 1, Frequency: "WEEKLY", RunAt: "06:30", Weekdays: "7"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSchedule(&tt.req)
			if tt.wantErr && !errors.Is(err, ErrBadRequest) {
				t.Errorf("expected ErrBadRequest, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseRunAt(t *testing.T) {
	hour, minute, err := parseRunAt("09:05")
	if err != nil || hour != 9 || minute != 5 {
		t.Errorf("parseRunAt(09:05) = %d:%d, %v", hour, minute, err)
	}

	for _, bad := range []string{"", "9", "9:5:0", "ab:00", "12:xy", "-1:00", "12:60"} {
		if _, _, err := parseRunAt(bad); err == nil {
			t.Errorf("parseRunAt(%q) should fail", bad)
		}
	}
}

func TestParseWeekdays(t *testing.T) {
	days, err := parseWeekdays("1, 3,5,3")
	if err != nil {
		t.Fatalf("parseWeekdays failed: %v", err)
	}
	if !reflect.DeepEqual(days, []int{1, 3, 5}) {
		t.Errorf("days = %v", days)
	}

	if days, err := parseWeekdays(""); err != nil || days != nil {
		t.Errorf("empty list = %v, %v", days, err)
	}
	if _, err := parseWeekdays("8"); err == nil {
		t.Error("expected error for day 8")
	}
	if _, err := parseWeekdays("x"); err == nil {
		t.Error("expected error for non-numeric day")
	}
}

func TestValidateUser(t *testing.T) {
	tests := []struct {
		name     string
		req      UserRequest
		creating bool
		wantErr  bool
	}{
		{"valid create", UserRequest{Username: "alice", Email: "a@example.com", Password: "longenough"}, true, false},
		{"short password on create", UserRequest{Username: "alice", Email: "a@example.com", Password: "short"}, true, true},
		{"update keeps password", UserRequest{Username: "alice", Email: "a@example.com"}, false, false},
		{"short password on update", UserRequest{Username: "alice", Email: "a@example.com", Password: "short"}, false, true},
		{"missing username", UserRequest{Email: "a@example.com", Password: "longenough"}, true, true},
		{"bad email", UserRequest{Username: "alice", Email: "nope", Password: "longenough"}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateUser(&tt.req, tt.creating)
			if tt.wantErr && !errors.Is(err, ErrBadRequest) {
				t.Errorf("expected ErrBadRequest, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
