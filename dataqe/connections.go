// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/srm999/DataQEsuite/dataset"
)

// CreateConnection inserts a connection under a project.
func (s *Service) CreateConnection(ctx context.Context, req *ConnectionRequest) (*ConnectionEntity, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	if err := validateConnection(req); err != nil {
		return nil, err
	}

	var c ConnectionEntity
	err := s.pool.QueryRow(ctx, `
		INSERT INTO dataqe.connections
			(name, project_id, driver, server, database, username, password, warehouse, role, is_excel)
		VALUES
			(@name, @project_id, @driver, @server, @database, @username, @password, @warehouse, @role, @is_excel)
		RETURNING id, name, project_id, driver, server, database, username, password, warehouse, role, is_excel, created_at`,
		connectionArgs(req),
	).Scan(&c.ID, &c.Name, &c.ProjectID, &c.Driver, &c.Server, &c.Database,
		&c.Username, &c.Password, &c.Warehouse, &c.Role, &c.IsExcel, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: connection %q already exists in project %d", ErrConflict, req.Name, req.ProjectID)
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: project %d", ErrNotFound, req.ProjectID)
		}
		return nil, fmt.Errorf("create connection: %w", err)
	}
	return &c, nil
}

// GetConnection returns one connection by id.
func (s *Service) GetConnection(ctx context.Context, id int64) (*ConnectionEntity, error) {
	var c ConnectionEntity
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, project_id, driver, server, database, username, password, warehouse, role, is_excel, created_at
		FROM dataqe.connections WHERE id = @id`,
		pgx.NamedArgs{"id": id},
	).Scan(&c.ID, &c.Name, &c.ProjectID, &c.Driver, &c.Server, &c.Database,
		&c.Username, &c.Password, &c.Warehouse, &c.Role, &c.IsExcel, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: connection %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return &c, nil
}

// ListConnections returns the connections of one project.
func (s *Service) ListConnections(ctx context.Context, projectID int64) ([]ConnectionEntity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, project_id, driver, server, database, username, password, warehouse, role, is_excel, created_at
		FROM dataqe.connections WHERE project_id = @project_id ORDER BY name`,
		pgx.NamedArgs{"project_id": projectID})
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var conns []ConnectionEntity
	for rows.Next() {
		var c ConnectionEntity
		if err := rows.Scan(&c.ID, &c.Name, &c.ProjectID, &c.Driver, &c.Server, &c.Database,
			&c.Username, &c.Password, &c.Warehouse, &c.Role, &c.IsExcel, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// UpdateConnection replaces a connection's settings. An empty password in
// the request keeps the stored one.
func (s *Service) UpdateConnection(ctx context.Context, id int64, req *ConnectionRequest) (*ConnectionEntity, error) {
	if err := validateConnection(req); err != nil {
		return nil, err
	}

	args := connectionArgs(req)
	args["id"] = id
	query := `
		UPDATE dataqe.connections
		SET name = @name, project_id = @project_id, driver = @driver, server = @server,
			database = @database, username = @username, warehouse = @warehouse,
			role = @role, is_excel = @is_excel`
	if req.Password != "" {
		query += `, password = @password`
	}
	query += `
		WHERE id = @id
		RETURNING id, name, project_id, driver, server, database, username, password, warehouse, role, is_excel, created_at`

	var c ConnectionEntity
	err := s.pool.QueryRow(ctx, query, args).
		Scan(&c.ID, &c.Name, &c.ProjectID, &c.Driver, &c.Server, &c.Database,
			&c.Username, &c.Password, &c.Warehouse, &c.Role, &c.IsExcel, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: connection %d", ErrNotFound, id)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: connection %q already exists in project %d", ErrConflict, req.Name, req.ProjectID)
		}
		return nil, fmt.Errorf("update connection: %w", err)
	}
	return &c, nil
}

// DeleteConnection removes a connection not referenced by any test case.
func (s *Service) DeleteConnection(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM dataqe.connections WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: connection %d is used by test cases", ErrConflict, id)
		}
		return fmt.Errorf("delete connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: connection %d", ErrNotFound, id)
	}
	return nil
}

// DSN builds the driver connection string for a database connection.
// File connections have no DSN.
func (c *ConnectionEntity) DSN() (string, error) {
	if c.IsExcel {
		return "", fmt.Errorf("connection %q is file-based", c.Name)
	}
	switch c.Driver {
	case dataset.DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			Host:   c.Server,
			Path:   "/" + c.Database,
		}
		if c.Username != "" {
			u.User = url.UserPassword(c.Username, c.Password)
		}
		return u.String(), nil
	case dataset.DriverSQLite:
		return c.Database, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", c.Driver)
	}
}

func connectionArgs(req *ConnectionRequest) pgx.NamedArgs {
	return pgx.NamedArgs{
		"name":       req.Name,
		"project_id": req.ProjectID,
		"driver":     req.Driver,
		"server":     req.Server,
		"database":   req.Database,
		"username":   req.Username,
		"password":   req.Password,
		"warehouse":  req.Warehouse,
		"role":       req.Role,
		"is_excel":   req.IsExcel,
	}
}

func connectionResponse(c *ConnectionEntity) ConnectionResponse {
	return ConnectionResponse{
		ID:        c.ID,
		Name:      c.Name,
		ProjectID: c.ProjectID,
		Driver:    c.Driver,
		Server:    c.Server,
		Database:  c.Database,
		Username:  c.Username,
		Warehouse: c.Warehouse,
		Role:      c.Role,
		IsExcel:   c.IsExcel,
		CreatedAt: c.CreatedAt,
	}
}
