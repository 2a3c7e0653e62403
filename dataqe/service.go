// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

// Package dataqe implements the data-validation service: teams, projects,
// connections, test cases, executions, schedules and the HTTP API over them.
package dataqe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service provides the core DataQE functionality backed by PostgreSQL.
// Handlers, the executor and the scheduler all run on top of it.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	config *ServiceConfig

	// Cleanup tracking
	mu     sync.RWMutex
	closed bool
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	AppName string // Application name for connection tracking

	// DataRoot is the directory holding uploaded test inputs and generated
	// reports, one subdirectory per test case.
	DataRoot string

	PageSize          int // Executions per history page (0 = default 20)
	MismatchKeepLimit int // Stored mismatches per execution (0 = default 100)

	StageMetrics    StageMetricsRecorder // Optional per-stage timing sink
	LogStageTimings bool                 // Also log stage timings at debug level
}

// DefaultPageSize is the execution history page size when unconfigured.
const DefaultPageSize = 20

// DefaultMismatchKeepLimit caps stored mismatch rows per execution.
const DefaultMismatchKeepLimit = 100

// NewService creates a service instance from an existing pool and runs the
// idempotent schema migrations.
func NewService(pool *pgxpool.Pool, config *ServiceConfig, logger *slog.Logger) (*Service, error) {
	if config == nil {
		config = &ServiceConfig{AppName: "dataqe-suite"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	service := &Service{
		pool:   pool,
		logger: logger,
		config: config,
	}

	ctx := context.Background()
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if err := service.initializeSchemaInTx(ctx, tx); err != nil {
			logger.Error("Failed to initialize database schema", "error", err)
			return err
		}
		logger.Debug("Database schema initialized successfully")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dataqe service: %w", err)
	}

	return service, nil
}

// Close shuts the service down. Safe to call more than once.
// Note: this does NOT close the database pool - the caller owns its lifecycle.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.logger.Debug("Shutting down dataqe service")
	s.closed = true
	return nil
}

// Pool returns the underlying database connection pool
// This allows advanced users to execute custom queries
func (s *Service) Pool() *pgxpool.Pool {
	return s.pool
}

// checkClosed returns an error if the service has been closed
func (s *Service) checkClosed() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errors.New("dataqe service has been closed")
	}
	return nil
}

func (s *Service) pageSize() int {
	if s.config.PageSize > 0 {
		return s.config.PageSize
	}
	return DefaultPageSize
}

func (s *Service) mismatchKeepLimit() int {
	if s.config.MismatchKeepLimit > 0 {
		return s.config.MismatchKeepLimit
	}
	return DefaultMismatchKeepLimit
}
