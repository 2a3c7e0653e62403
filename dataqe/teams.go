// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// CreateTeam inserts a new team.
func (s *Service) CreateTeam(ctx context.Context, req *TeamRequest) (*TeamEntity, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: team name is required", ErrBadRequest)
	}

	var team TeamEntity
	err := s.pool.QueryRow(ctx, `
		INSERT INTO dataqe.teams (name)
		VALUES (@name)
		RETURNING id, name, created_at`,
		pgx.NamedArgs{"name": name},
	).Scan(&team.ID, &team.Name, &team.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: team %q already exists", ErrConflict, name)
		}
		return nil, fmt.Errorf("create team: %w", err)
	}
	return &team, nil
}

// GetTeam returns one team by id.
func (s *Service) GetTeam(ctx context.Context, id int64) (*TeamEntity, error) {
	var team TeamEntity
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, created_at FROM dataqe.teams WHERE id = @id`,
		pgx.NamedArgs{"id": id},
	).Scan(&team.ID, &team.Name, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: team %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	return &team, nil
}

// ListTeams returns all teams ordered by name.
func (s *Service) ListTeams(ctx context.Context) ([]TeamEntity, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, created_at FROM dataqe.teams ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var teams []TeamEntity
	for rows.Next() {
		var t TeamEntity
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// UpdateTeam renames a team.
func (s *Service) UpdateTeam(ctx context.Context, id int64, req *TeamRequest) (*TeamEntity, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: team name is required", ErrBadRequest)
	}

	var team TeamEntity
	err := s.pool.QueryRow(ctx, `
		UPDATE dataqe.teams SET name = @name WHERE id = @id
		RETURNING id, name, created_at`,
		pgx.NamedArgs{"id": id, "name": name},
	).Scan(&team.ID, &team.Name, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: team %d", ErrNotFound, id)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: team %q already exists", ErrConflict, name)
		}
		return nil, fmt.Errorf("update team: %w", err)
	}
	return &team, nil
}

// DeleteTeam removes a team. Teams still referenced by projects or users
// cannot be deleted.
func (s *Service) DeleteTeam(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM dataqe.teams WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: team %d still has projects or members", ErrConflict, id)
		}
		return fmt.Errorf("delete team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: team %d", ErrNotFound, id)
	}
	return nil
}

func teamResponse(t *TeamEntity) TeamResponse {
	return TeamResponse{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt}
}
