package auditlog

import (
	"context"
	"time"
)

// LogQueryParams filters and pages audit log queries. Zero values mean "no filter".
type LogQueryParams struct {
	Operation  string
	ErrorType  string
	RequestID  string
	TrackingID string
	StatusCode *int
	Since      time.Time
	Until      time.Time
	Limit      int
	Offset     int
}

// LogListResult holds a page of audit log entries, newest first.
type LogListResult struct {
	Entries []LogEntry `json:"entries"`
	Total   int        `json:"total"`
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
}

// Reader provides read access to the audit trail.
type Reader interface {
	GetLogs(ctx context.Context, params LogQueryParams) (*LogListResult, error)

	// GetLogByID returns (nil, nil) when no entry has the given ID.
	GetLogByID(ctx context.Context, id string) (*LogEntry, error)
}
