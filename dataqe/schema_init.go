// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// initializeSchema creates the required tables if they don't exist
func (s *Service) initializeSchema(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return s.initializeSchemaInTx(ctx, tx)
	})
}

// initializeSchemaInTx creates the required tables within an existing transaction
func (s *Service) initializeSchemaInTx(ctx context.Context, tx pgx.Tx) error {
	migrations := []string{
		// Dedicated application schema
		/*language=postgresql*/ `CREATE SCHEMA IF NOT EXISTS dataqe`,

		// 1) Teams own projects and users
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS dataqe.teams (
			id         BIGSERIAL PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		// 2) Projects group connections and test cases under a team
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS dataqe.projects (
			id         BIGSERIAL PRIMARY KEY,
			name       TEXT NOT NULL,
			team_id    BIGINT NOT NULL REFERENCES dataqe.teams(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (team_id, name)
		)`,

		// 3) Users; team_id is NULL for unassigned admins
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS dataqe.users (
			id            BIGSERIAL PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
			team_id       BIGINT REFERENCES dataqe.teams(id),
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		// 4) Connections: database endpoints or Excel/flat-file markers
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS dataqe.connections (
			id         BIGSERIAL PRIMARY KEY,
			name       TEXT NOT NULL,
			project_id BIGINT NOT NULL REFERENCES dataqe.projects(id) ON DELETE CASCADE,
			driver     TEXT NOT NULL DEFAULT '',
			server     TEXT NOT NULL DEFAULT '',
			database   TEXT NOT NULL DEFAULT '',
			username   TEXT NOT NULL DEFAULT '',
			password   TEXT NOT NULL DEFAULT '',
			warehouse  TEXT NOT NULL DEFAULT '',
			role       TEXT NOT NULL DEFAULT '',
			is_excel   BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (project_id, name)
		)`,

		// 5) Test cases
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS dataqe.test_cases (
			id                   BIGSERIAL PRIMARY KEY,
			project_id           BIGINT NOT NULL REFERENCES dataqe.projects(id) ON DELETE CASCADE,
			tcid                 TEXT NOT NULL,
			name                 TEXT NOT NULL,
			test_type            TEXT NOT NULL CHECK (test_type IN ('Completeness','Correctness','Duplicates')),
			enabled              BOOLEAN NOT NULL DEFAULT TRUE,
			src_connection_id    BIGINT REFERENCES dataqe.connections(id),
			tgt_connection_id    BIGINT REFERENCES dataqe.connections(id),
			src_data_file        TEXT NOT NULL DEFAULT '',
			tgt_data_file        TEXT NOT NULL DEFAULT '',
			filters              TEXT NOT NULL DEFAULT '',
			delimiter            TEXT NOT NULL DEFAULT '',
			pk_columns           TEXT NOT NULL DEFAULT '',
			date_fields          TEXT NOT NULL DEFAULT '',
			percentage_fields    TEXT NOT NULL DEFAULT '',
			threshold_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
			src_sheet_name       TEXT NOT NULL DEFAULT '',
			tgt_sheet_name       TEXT NOT NULL DEFAULT '',
			header_columns       TEXT NOT NULL DEFAULT '',
			skip_rows            INTEGER NOT NULL DEFAULT 0,
			created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (project_id, tcid)
		)`,

		// 6) Executions
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS dataqe.executions (
			id             BIGSERIAL PRIMARY KEY,
			test_case_id   BIGINT NOT NULL REFERENCES dataqe.test_cases(id) ON DELETE CASCADE,
			status         TEXT NOT NULL CHECK (status IN ('PENDING','RUNNING','PASSED','FAILED','ERROR')),
			message        TEXT NOT NULL DEFAULT '',
			source_rows    INTEGER NOT NULL DEFAULT 0,
			target_rows    INTEGER NOT NULL DEFAULT 0,
			mismatch_count INTEGER NOT NULL DEFAULT 0,
			report_path    TEXT NOT NULL DEFAULT '',
			executed_by    BIGINT NOT NULL REFERENCES dataqe.users(id),
			started_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			finished_at    TIMESTAMPTZ
		)`,

		// 7) Stored mismatch samples, capped per execution by the service
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS dataqe.mismatches (
			id           BIGSERIAL PRIMARY KEY,
			execution_id BIGINT NOT NULL REFERENCES dataqe.executions(id) ON DELETE CASCADE,
			type         TEXT NOT NULL,
			key_value    TEXT NOT NULL DEFAULT '',
			column_name  TEXT NOT NULL DEFAULT '',
			source_value TEXT NOT NULL DEFAULT '',
			target_value TEXT NOT NULL DEFAULT ''
		)`,

		// 8) Schedules
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS dataqe.schedules (
			id           BIGSERIAL PRIMARY KEY,
			test_case_id BIGINT NOT NULL REFERENCES dataqe.test_cases(id) ON DELETE CASCADE,
			frequency    TEXT NOT NULL CHECK (frequency IN ('DAILY','WEEKLY')),
			run_at       TEXT NOT NULL,
			weekdays     TEXT NOT NULL DEFAULT '',
			enabled      BOOLEAN NOT NULL DEFAULT TRUE,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		// Indexes for the hot paths
		`CREATE INDEX IF NOT EXISTS projects_team_idx ON dataqe.projects(team_id)`,
		`CREATE INDEX IF NOT EXISTS users_team_idx ON dataqe.users(team_id)`,
		`CREATE INDEX IF NOT EXISTS connections_project_idx ON dataqe.connections(project_id)`,
		`CREATE INDEX IF NOT EXISTS test_cases_project_idx ON dataqe.test_cases(project_id)`,
		`CREATE INDEX IF NOT EXISTS executions_case_started_idx ON dataqe.executions(test_case_id, started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS executions_status_idx ON dataqe.executions(status)`,
		`CREATE INDEX IF NOT EXISTS mismatches_execution_idx ON dataqe.mismatches(execution_id)`,
		`CREATE INDEX IF NOT EXISTS schedules_case_idx ON dataqe.schedules(test_case_id)`,
	}

	for i, migration := range migrations {
		if _, err := tx.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
