package auditlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteReader implements Reader for SQLite databases.
type SQLiteReader struct {
	db *sql.DB
}

// NewSQLiteReader creates a new SQLite audit log reader.
func NewSQLiteReader(db *sql.DB) (*SQLiteReader, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &SQLiteReader{db: db}, nil
}

// GetLogs returns a page of audit log entries, newest first.
func (r *SQLiteReader) GetLogs(ctx context.Context, params LogQueryParams) (*LogListResult, error) {
	limit, offset := clampLimitOffset(params.Limit, params.Offset)

	conditions, args := sqlConditions(params,
		func(int) string { return "?" },
		func(t time.Time) interface{} { return t.UTC().Format(time.RFC3339Nano) },
	)
	where := buildWhereClause(conditions)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count audit log entries: %w", err)
	}

	query := "SELECT " + selectColumns + " FROM audit_logs" + where + " ORDER BY timestamp DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	entries := make([]LogEntry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log row: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return &LogListResult{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}

// GetLogByID returns a single audit log entry, or nil when it does not exist.
func (r *SQLiteReader) GetLogByID(ctx context.Context, id string) (*LogEntry, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM audit_logs WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log by id: %w", err)
	}
	return e, nil
}
