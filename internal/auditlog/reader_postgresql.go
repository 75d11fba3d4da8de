package auditlog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLReader implements Reader for PostgreSQL databases.
type PostgreSQLReader struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLReader creates a new PostgreSQL audit log reader.
func NewPostgreSQLReader(pool *pgxpool.Pool) (*PostgreSQLReader, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}
	return &PostgreSQLReader{pool: pool}, nil
}

func pgPlaceholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// GetLogs returns a page of audit log entries, newest first.
func (r *PostgreSQLReader) GetLogs(ctx context.Context, params LogQueryParams) (*LogListResult, error) {
	limit, offset := clampLimitOffset(params.Limit, params.Offset)

	conditions, args := sqlConditions(params, pgPlaceholder, func(t time.Time) interface{} { return t.UTC() })
	where := buildWhereClause(conditions)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count audit log entries: %w", err)
	}

	query := fmt.Sprintf("SELECT id::text, timestamp, duration_ns, operation, status_code, request_id, "+
		"client_ip, method, path, error_type, tracking_id, data FROM audit_logs%s ORDER BY timestamp DESC LIMIT %s OFFSET %s",
		where, pgPlaceholder(len(args)+1), pgPlaceholder(len(args)+2))
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
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
func (r *PostgreSQLReader) GetLogByID(ctx context.Context, id string) (*LogEntry, error) {
	row := r.pool.QueryRow(ctx, "SELECT id::text, timestamp, duration_ns, operation, status_code, request_id, "+
		"client_ip, method, path, error_type, tracking_id, data FROM audit_logs WHERE id::text = $1", id)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log by id: %w", err)
	}
	return e, nil
}
