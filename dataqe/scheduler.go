// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/robfig/cron/v3"
)

// Scheduler runs enabled schedules through cron. Scheduled runs execute as
// the synthetic system user so history stays attributable.
type Scheduler struct {
	service  *Service
	executor *Executor
	logger   *slog.Logger

	cron *cron.Cron

	mu      sync.Mutex
	entries map[int64]scheduleEntry // schedule id -> cron entry
	system  Scope
}

type scheduleEntry struct {
	entryID    cron.EntryID
	testCaseID int64
}

// NewScheduler creates a scheduler. Call Start to begin dispatching.
func NewScheduler(service *Service, executor *Executor, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		service:  service,
		executor: executor,
		logger:   logger,
		cron:     cron.New(),
		entries:  make(map[int64]scheduleEntry),
	}
}

// Start loads persisted schedules, registers them and starts the cron loop.
func (sch *Scheduler) Start(ctx context.Context) error {
	system, err := sch.service.EnsureSystemUser(ctx)
	if err != nil {
		return fmt.Errorf("ensure system user: %w", err)
	}
	sch.mu.Lock()
	sch.system = ScopeFor(system)
	sch.mu.Unlock()

	if err := sch.loadPersisted(ctx); err != nil {
		return err
	}
	sch.cron.Start()
	sch.logger.Info("Scheduler started", "schedules", len(sch.entries))
	return nil
}

// Stop halts dispatching and waits for running jobs to finish.
func (sch *Scheduler) Stop() {
	stopped := sch.cron.Stop()
	<-stopped.Done()
	sch.logger.Info("Scheduler stopped")
}

// loadPersisted registers every enabled schedule from the database.
func (sch *Scheduler) loadPersisted(ctx context.Context) error {
	schedules, err := sch.service.ListAllSchedules(ctx)
	if err != nil {
		return err
	}
	for i := range schedules {
		s := schedules[i]
		if !s.Enabled {
			continue
		}
		if err := sch.register(&s); err != nil {
			sch.logger.Error("Failed to register schedule", "schedule_id", s.ID, "error", err)
		}
	}
	return nil
}

// Register adds or replaces the cron entry of a schedule.
func (sch *Scheduler) Register(s *ScheduleEntity) error {
	sch.Unregister(s.ID)
	if !s.Enabled {
		return nil
	}
	return sch.register(s)
}

func (sch *Scheduler) register(s *ScheduleEntity) error {
	spec, err := cronSpecFor(s)
	if err != nil {
		return err
	}
	scheduleID := s.ID
	testCaseID := s.TestCaseID
	entryID, err := sch.cron.AddFunc(spec, func() {
		sch.runScheduled(scheduleID, testCaseID)
	})
	if err != nil {
		return fmt.Errorf("add cron entry for schedule %d: %w", s.ID, err)
	}
	sch.mu.Lock()
	sch.entries[s.ID] = scheduleEntry{entryID: entryID, testCaseID: s.TestCaseID}
	sch.mu.Unlock()
	sch.logger.Debug("Schedule registered", "schedule_id", s.ID, "spec", spec)
	return nil
}

// Unregister removes the cron entry of a schedule if present.
func (sch *Scheduler) Unregister(scheduleID int64) {
	sch.mu.Lock()
	entry, ok := sch.entries[scheduleID]
	if ok {
		delete(sch.entries, scheduleID)
	}
	sch.mu.Unlock()
	if ok {
		sch.cron.Remove(entry.entryID)
	}
}

// UnregisterTestCase removes every cron entry belonging to a test case.
// Called when the test case is deleted, which cascades its schedule rows
// away without going through per-schedule deletes.
func (sch *Scheduler) UnregisterTestCase(testCaseID int64) {
	sch.mu.Lock()
	var removed []cron.EntryID
	for id, entry := range sch.entries {
		if entry.testCaseID == testCaseID {
			delete(sch.entries, id)
			removed = append(removed, entry.entryID)
		}
	}
	sch.mu.Unlock()
	for _, entryID := range removed {
		sch.cron.Remove(entryID)
	}
}

func (sch *Scheduler) runScheduled(scheduleID, testCaseID int64) {
	sch.mu.Lock()
	scope := sch.system
	sch.mu.Unlock()

	ctx := context.Background()
	exec, err := sch.executor.ExecuteTestCase(ctx, scope, testCaseID)
	if err != nil {
		// Disabled test cases are skipped quietly; real failures are logged.
		if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrNotFound) {
			sch.logger.Debug("Scheduled run skipped",
				"schedule_id", scheduleID, "test_case_id", testCaseID, "reason", err)
			return
		}
		sch.logger.Error("Scheduled run failed",
			"schedule_id", scheduleID, "test_case_id", testCaseID, "error", err)
		return
	}
	sch.logger.Info("Scheduled run finished",
		"schedule_id", scheduleID, "test_case_id", testCaseID,
		"execution_id", exec.ID, "status", exec.Status)
}

// cronSpecFor translates a schedule row into a cron spec: "M H * * *" for
// daily runs, "M H * * d1,d2" for weekly ones.
func cronSpecFor(s *ScheduleEntity) (string, error) {
	hour, minute, err := parseRunAt(s.RunAt)
	if err != nil {
		return "", err
	}
	switch s.Frequency {
	case FreqDaily:
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	case FreqWeekly:
		days, err := parseWeekdays(s.Weekdays)
		if err != nil {
			return "", err
		}
		if len(days) == 0 {
			return "", fmt.Errorf("weekly schedule %d has no weekdays", s.ID)
		}
		sort.Ints(days)
		parts := make([]string, len(days))
		for i, d := range days {
			parts[i] = strconv.Itoa(d)
		}
		return fmt.Sprintf("%d %d * * %s", minute, hour, strings.Join(parts, ",")), nil
	default:
		return "", fmt.Errorf("unsupported frequency %q", s.Frequency)
	}
}

// CreateSchedule persists a schedule and registers it with the running cron.
func (s *Service) CreateSchedule(ctx context.Context, req *ScheduleRequest) (*ScheduleEntity, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	if err := validateSchedule(req); err != nil {
		return nil, err
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	var sc ScheduleEntity
	err := s.pool.QueryRow(ctx, `
		INSERT INTO dataqe.schedules (test_case_id, frequency, run_at, weekdays, enabled)
		VALUES (@test_case_id, @frequency, @run_at, @weekdays, @enabled)
		RETURNING id, test_case_id, frequency, run_at, weekdays, enabled, created_at`,
		pgx.NamedArgs{
			"test_case_id": req.TestCaseID,
			"frequency":    req.Frequency,
			"run_at":       req.RunAt,
			"weekdays":     req.Weekdays,
			"enabled":      enabled,
		},
	).Scan(&sc.ID, &sc.TestCaseID, &sc.Frequency, &sc.RunAt, &sc.Weekdays, &sc.Enabled, &sc.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: test case %d", ErrNotFound, req.TestCaseID)
		}
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	return &sc, nil
}

// GetSchedule returns one schedule by id.
func (s *Service) GetSchedule(ctx context.Context, id int64) (*ScheduleEntity, error) {
	var sc ScheduleEntity
	err := s.pool.QueryRow(ctx, `
		SELECT id, test_case_id, frequency, run_at, weekdays, enabled, created_at
		FROM dataqe.schedules WHERE id = @id`,
		pgx.NamedArgs{"id": id},
	).Scan(&sc.ID, &sc.TestCaseID, &sc.Frequency, &sc.RunAt, &sc.Weekdays, &sc.Enabled, &sc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: schedule %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return &sc, nil
}

// ListSchedules returns the schedules of one test case.
func (s *Service) ListSchedules(ctx context.Context, testCaseID int64) ([]ScheduleEntity, error) {
	return s.querySchedules(ctx,
		`SELECT id, test_case_id, frequency, run_at, weekdays, enabled, created_at
		 FROM dataqe.schedules WHERE test_case_id = @test_case_id ORDER BY id`,
		pgx.NamedArgs{"test_case_id": testCaseID})
}

// ListAllSchedules returns every schedule, used at scheduler startup.
func (s *Service) ListAllSchedules(ctx context.Context) ([]ScheduleEntity, error) {
	return s.querySchedules(ctx,
		`SELECT id, test_case_id, frequency, run_at, weekdays, enabled, created_at
		 FROM dataqe.schedules ORDER BY id`, pgx.NamedArgs{})
}

func (s *Service) querySchedules(ctx context.Context, query string, args pgx.NamedArgs) ([]ScheduleEntity, error) {
	rows, err := s.pool.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var out []ScheduleEntity
	for rows.Next() {
		var sc ScheduleEntity
		if err := rows.Scan(&sc.ID, &sc.TestCaseID, &sc.Frequency, &sc.RunAt, &sc.Weekdays, &sc.Enabled, &sc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// UpdateSchedule replaces a schedule's settings.
func (s *Service) UpdateSchedule(ctx context.Context, id int64, req *ScheduleRequest) (*ScheduleEntity, error) {
	if err := validateSchedule(req); err != nil {
		return nil, err
	}
	current, err := s.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	enabled := current.Enabled
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	var sc ScheduleEntity
	err = s.pool.QueryRow(ctx, `
		UPDATE dataqe.schedules
		SET test_case_id = @test_case_id, frequency = @frequency, run_at = @run_at,
			weekdays = @weekdays, enabled = @enabled
		WHERE id = @id
		RETURNING id, test_case_id, frequency, run_at, weekdays, enabled, created_at`,
		pgx.NamedArgs{
			"id":           id,
			"test_case_id": req.TestCaseID,
			"frequency":    req.Frequency,
			"run_at":       req.RunAt,
			"weekdays":     req.Weekdays,
			"enabled":      enabled,
		},
	).Scan(&sc.ID, &sc.TestCaseID, &sc.Frequency, &sc.RunAt, &sc.Weekdays, &sc.Enabled, &sc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: schedule %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("update schedule: %w", err)
	}
	return &sc, nil
}

// DeleteSchedule removes a schedule.
func (s *Service) DeleteSchedule(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM dataqe.schedules WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: schedule %d", ErrNotFound, id)
	}
	return nil
}

func scheduleResponse(sc *ScheduleEntity) ScheduleResponse {
	return ScheduleResponse{
		ID:         sc.ID,
		TestCaseID: sc.TestCaseID,
		Frequency:  sc.Frequency,
		RunAt:      sc.RunAt,
		Weekdays:   sc.Weekdays,
		Enabled:    sc.Enabled,
		CreatedAt:  sc.CreatedAt,
	}
}
