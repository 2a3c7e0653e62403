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

// CreateProject inserts a project under a team.
func (s *Service) CreateProject(ctx context.Context, req *ProjectRequest) (*ProjectEntity, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrBadRequest)
	}
	if req.TeamID <= 0 {
		return nil, fmt.Errorf("%w: team_id is required", ErrBadRequest)
	}

	var p ProjectEntity
	err := s.pool.QueryRow(ctx, `
		INSERT INTO dataqe.projects (name, team_id)
		VALUES (@name, @team_id)
		RETURNING id, name, team_id, created_at`,
		pgx.NamedArgs{"name": name, "team_id": req.TeamID},
	).Scan(&p.ID, &p.Name, &p.TeamID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: project %q already exists in team %d", ErrConflict, name, req.TeamID)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: team %d", ErrNotFound, req.TeamID)
		}
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &p, nil
}

// GetProject returns one project by id.
func (s *Service) GetProject(ctx context.Context, id int64) (*ProjectEntity, error) {
	var p ProjectEntity
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, team_id, created_at FROM dataqe.projects WHERE id = @id`,
		pgx.NamedArgs{"id": id},
	).Scan(&p.ID, &p.Name, &p.TeamID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: project %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

// ListProjects returns projects visible to the scope: all of them for
// admins, otherwise only the scope team's.
func (s *Service) ListProjects(ctx context.Context, scope Scope) ([]ProjectEntity, error) {
	query := `SELECT id, name, team_id, created_at FROM dataqe.projects`
	args := pgx.NamedArgs{}
	if !scope.IsAdmin {
		query += ` WHERE team_id = @team_id`
		args["team_id"] = scope.TeamID
	}
	query += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []ProjectEntity
	for rows.Next() {
		var p ProjectEntity
		if err := rows.Scan(&p.ID, &p.Name, &p.TeamID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject renames a project or moves it between teams.
func (s *Service) UpdateProject(ctx context.Context, id int64, req *ProjectRequest) (*ProjectEntity, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrBadRequest)
	}
	if req.TeamID <= 0 {
		return nil, fmt.Errorf("%w: team_id is required", ErrBadRequest)
	}

	var p ProjectEntity
	err := s.pool.QueryRow(ctx, `
		UPDATE dataqe.projects SET name = @name, team_id = @team_id WHERE id = @id
		RETURNING id, name, team_id, created_at`,
		pgx.NamedArgs{"id": id, "name": name, "team_id": req.TeamID},
	).Scan(&p.ID, &p.Name, &p.TeamID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: project %d", ErrNotFound, id)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: project %q already exists in team %d", ErrConflict, name, req.TeamID)
		}
		return nil, fmt.Errorf("update project: %w", err)
	}
	return &p, nil
}

// DeleteProject removes a project and, via cascades, its connections, test
// cases and execution history.
func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM dataqe.projects WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: project %d", ErrNotFound, id)
	}
	return nil
}

// authorizeProject verifies the scope may touch the given project.
func (s *Service) authorizeProject(ctx context.Context, scope Scope, projectID int64) (*ProjectEntity, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !scope.IsAdmin && p.TeamID != scope.TeamID {
		return nil, fmt.Errorf("%w: project %d belongs to another team", ErrForbidden, projectID)
	}
	return p, nil
}

// ListProjectMembers returns the users on the project's owning team. The
// synthetic system account is never listed.
func (s *Service) ListProjectMembers(ctx context.Context, projectID int64) ([]UserEntity, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, username, email, password_hash, is_admin, team_id, created_at
		FROM dataqe.users
		WHERE team_id = @team_id AND username <> @system
		ORDER BY username`,
		pgx.NamedArgs{"team_id": p.TeamID, "system": SystemUsername})
	if err != nil {
		return nil, fmt.Errorf("list project members: %w", err)
	}
	defer rows.Close()

	var users []UserEntity
	for rows.Next() {
		var u UserEntity
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.TeamID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project member: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// AddProjectMember assigns a user to the team owning the project. Membership
// is team membership; every project of the team becomes visible to the user.
func (s *Service) AddProjectMember(ctx context.Context, projectID, userID int64) (*UserEntity, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var u UserEntity
	err = s.pool.QueryRow(ctx, `
		UPDATE dataqe.users SET team_id = @team_id WHERE id = @id
		RETURNING id, username, email, password_hash, is_admin, team_id, created_at`,
		pgx.NamedArgs{"id": userID, "team_id": p.TeamID},
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.TeamID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("add project member: %w", err)
	}
	return &u, nil
}

// RemoveProjectMember detaches a user from the project's owning team. Fails
// with not found when the user is not on that team.
func (s *Service) RemoveProjectMember(ctx context.Context, projectID, userID int64) error {
	if err := s.checkClosed(); err != nil {
		return err
	}
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE dataqe.users SET team_id = NULL WHERE id = @id AND team_id = @team_id`,
		pgx.NamedArgs{"id": userID, "team_id": p.TeamID})
	if err != nil {
		return fmt.Errorf("remove project member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d is not a member of project %d", ErrNotFound, userID, projectID)
	}
	return nil
}

func projectResponse(p *ProjectEntity) ProjectResponse {
	return ProjectResponse{ID: p.ID, Name: p.Name, TeamID: p.TeamID, CreatedAt: p.CreatedAt}
}
