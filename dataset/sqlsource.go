// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Supported connection drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// OpenSQL opens a database/sql handle for one of the supported drivers.
// The caller owns the returned handle.
func OpenSQL(driver, dsn string) (*sql.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres, "postgresql", "pgx":
		return sql.Open("pgx", dsn)
	case DriverSQLite, "sqlite3":
		return sql.Open("sqlite3", dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// ReadSQLFile returns the query stored at path, stripped of comment-only
// leading lines and trailing semicolons.
func ReadSQLFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read sql file: %w", err)
	}
	q := strings.TrimSpace(string(b))
	q = strings.TrimSuffix(q, ";")
	if q == "" {
		return "", fmt.Errorf("sql file %s is empty", path)
	}
	return q, nil
}

// QueryFrame runs query against db and materializes the full result set.
func QueryFrame(ctx context.Context, db *sql.DB, query string) (*Frame, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	frame := &Frame{Columns: cols}
	scan := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range scan {
		ptrs[i] = &scan[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make([]any, len(cols))
		for i, v := range scan {
			row[i] = normalizeDBValue(v)
		}
		frame.Rows = append(frame.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return frame, nil
}

// normalizeDBValue flattens driver-specific scan types to the cell types
// the comparison engine understands.
func normalizeDBValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float32:
		return float64(t)
	case time.Time:
		return t
	default:
		return v
	}
}
