// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// randomPassword generates an unguessable throwaway password for synthetic
// accounts nobody logs in as.
func randomPassword() string {
	return uuid.NewString() + uuid.NewString()
}

// CreateUser inserts a user with a bcrypt password hash.
func (s *Service) CreateUser(ctx context.Context, req *UserRequest) (*UserEntity, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	if err := validateUser(req, true); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var u UserEntity
	err = s.pool.QueryRow(ctx, `
		INSERT INTO dataqe.users (username, email, password_hash, is_admin, team_id)
		VALUES (@username, @email, @password_hash, @is_admin, @team_id)
		RETURNING id, username, email, password_hash, is_admin, team_id, created_at`,
		pgx.NamedArgs{
			"username":      req.Username,
			"email":         req.Email,
			"password_hash": string(hash),
			"is_admin":      req.IsAdmin,
			"team_id":       req.TeamID,
		},
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.TeamID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: username or email already taken", ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: team %v", ErrNotFound, req.TeamID)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

// GetUser returns one user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (*UserEntity, error) {
	var u UserEntity
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, is_admin, team_id, created_at
		FROM dataqe.users WHERE id = @id`,
		pgx.NamedArgs{"id": id},
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.TeamID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetUserByUsername returns one user by username.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*UserEntity, error) {
	var u UserEntity
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, is_admin, team_id, created_at
		FROM dataqe.users WHERE username = @username`,
		pgx.NamedArgs{"username": username},
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.TeamID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %q", ErrNotFound, username)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// ListUsers returns all users ordered by username.
func (s *Service) ListUsers(ctx context.Context) ([]UserEntity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username, email, password_hash, is_admin, team_id, created_at
		FROM dataqe.users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []UserEntity
	for rows.Next() {
		var u UserEntity
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.TeamID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListTeamMemberEmails returns emails of team members, used for failure
// notifications.
func (s *Service) ListTeamMemberEmails(ctx context.Context, teamID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT email FROM dataqe.users WHERE team_id = @team_id AND username <> @system ORDER BY email`,
		pgx.NamedArgs{"team_id": teamID, "system": SystemUsername})
	if err != nil {
		return nil, fmt.Errorf("list team emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// UpdateUser updates profile fields; an empty password keeps the old hash.
func (s *Service) UpdateUser(ctx context.Context, id int64, req *UserRequest) (*UserEntity, error) {
	if err := validateUser(req, false); err != nil {
		return nil, err
	}

	args := pgx.NamedArgs{
		"id":       id,
		"username": req.Username,
		"email":    req.Email,
		"is_admin": req.IsAdmin,
		"team_id":  req.TeamID,
	}
	query := `
		UPDATE dataqe.users
		SET username = @username, email = @email, is_admin = @is_admin, team_id = @team_id`
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		query += `, password_hash = @password_hash`
		args["password_hash"] = string(hash)
	}
	query += `
		WHERE id = @id
		RETURNING id, username, email, password_hash, is_admin, team_id, created_at`

	var u UserEntity
	err := s.pool.QueryRow(ctx, query, args).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.TeamID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: username or email already taken", ErrConflict)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &u, nil
}

// DeleteUser removes a user. Users with execution history cannot be removed.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM dataqe.users WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: user %d has execution history", ErrConflict, id)
		}
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return nil
}

// Authenticate verifies credentials and returns the user on success.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*UserEntity, error) {
	u, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	return u, nil
}

// EnsureSystemUser creates the synthetic scheduler account if missing and
// returns it. The account has an unusable password.
func (s *Service) EnsureSystemUser(ctx context.Context) (*UserEntity, error) {
	u, err := s.GetUserByUsername(ctx, SystemUsername)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.CreateUser(ctx, &UserRequest{
		Username: SystemUsername,
		Email:    "system@dataqe.local",
		Password: randomPassword(),
		IsAdmin:  true,
	})
}

// EnsureAdminUser creates the bootstrap admin account if missing.
func (s *Service) EnsureAdminUser(ctx context.Context, username, email, password string) (*UserEntity, error) {
	u, err := s.GetUserByUsername(ctx, username)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.CreateUser(ctx, &UserRequest{
		Username: username,
		Email:    email,
		Password: password,
		IsAdmin:  true,
	})
}

func userResponse(u *UserEntity) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		IsAdmin:  u.IsAdmin,
		TeamID:   u.TeamID,
	}
}
