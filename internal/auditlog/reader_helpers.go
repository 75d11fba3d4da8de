package auditlog

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

func clampLimitOffset(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func buildWhereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

// sqlConditions turns params into WHERE conditions for both SQL dialects. placeholder
// returns the bind marker for the n-th argument (1-based). timeArg converts times to the
// column's storage representation.
func sqlConditions(params LogQueryParams, placeholder func(n int) string, timeArg func(time.Time) interface{}) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(column, op string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s %s %s", column, op, placeholder(len(args))))
	}

	if params.Operation != "" {
		add("operation", "=", params.Operation)
	}
	if params.ErrorType != "" {
		add("error_type", "=", params.ErrorType)
	}
	if params.RequestID != "" {
		add("request_id", "=", params.RequestID)
	}
	if params.TrackingID != "" {
		add("tracking_id", "=", params.TrackingID)
	}
	if params.StatusCode != nil {
		add("status_code", "=", *params.StatusCode)
	}
	if !params.Since.IsZero() {
		add("timestamp", ">=", timeArg(params.Since))
	}
	if !params.Until.IsZero() {
		add("timestamp", "<", timeArg(params.Until))
	}
	return conditions, args
}

const selectColumns = `id, timestamp, duration_ns, operation, status_code, request_id,
	client_ip, method, path, error_type, tracking_id, data`

// rowScanner is satisfied by *sql.Row(s) and pgx.Row(s).
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEntry reads one row selected with selectColumns. Nullable TEXT columns are scanned
// through *string so NULL becomes "".
func scanEntry(row rowScanner) (*LogEntry, error) {
	var (
		e                                   LogEntry
		rawTS                               interface{}
		operation, requestID, clientIP      *string
		method, path, errorType, trackingID *string
		data                                []byte
	)
	if err := row.Scan(&e.ID, &rawTS, &e.DurationNs, &operation, &e.StatusCode, &requestID,
		&clientIP, &method, &path, &errorType, &trackingID, &data); err != nil {
		return nil, err
	}

	e.Timestamp = timestampValue(rawTS, e.ID)
	e.Operation = deref(operation)
	e.RequestID = deref(requestID)
	e.ClientIP = deref(clientIP)
	e.Method = deref(method)
	e.Path = deref(path)
	e.ErrorType = deref(errorType)
	e.TrackingID = deref(trackingID)
	e.Data = unmarshalLogData(data, e.ID)
	return &e, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// timestampValue accepts the driver's representation of the timestamp column: time.Time
// (pgx, and modernc for parseable DATETIME text) or the stored text.
func timestampValue(raw interface{}, entryID string) time.Time {
	switch v := raw.(type) {
	case time.Time:
		return v
	case string:
		return parseSQLTimestamp(v, entryID)
	case []byte:
		return parseSQLTimestamp(string(v), entryID)
	default:
		slog.Warn("unexpected audit timestamp type", "id", entryID, "type", fmt.Sprintf("%T", raw))
		return time.Time{}
	}
}

func parseSQLTimestamp(ts string, entryID string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t
		}
	}
	slog.Warn("failed to parse audit timestamp", "id", entryID, "raw_timestamp", ts)
	return time.Time{}
}
