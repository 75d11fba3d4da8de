// Package auditlog records served shipping interactions (quotes and shipments) to a
// configurable storage backend. Writes are asynchronous and never block a request.
package auditlog

import (
	"context"
	"strings"
	"time"
)

// Operation names recorded for shipping endpoints.
const (
	OperationGetQuote  = "get_quote"
	OperationShipOrder = "ship_order"
)

// LogStore defines the interface for audit log storage backends.
// Implementations must be safe for concurrent use.
type LogStore interface {
	// WriteBatch writes multiple log entries to storage.
	WriteBatch(ctx context.Context, entries []*LogEntry) error

	// Flush forces any pending writes to complete.
	Flush(ctx context.Context) error

	// Close stops background work. The underlying connection is owned by the storage layer.
	Close() error
}

// LogEntry is one served request. Top-level fields are stored as indexed columns.
type LogEntry struct {
	ID         string    `json:"id" bson:"_id"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
	DurationNs int64     `json:"duration_ns" bson:"duration_ns"`

	Operation  string `json:"operation" bson:"operation"`
	StatusCode int    `json:"status_code" bson:"status_code"`
	RequestID  string `json:"request_id" bson:"request_id"`
	ClientIP   string `json:"client_ip" bson:"client_ip"`
	Method     string `json:"method" bson:"method"`
	Path       string `json:"path" bson:"path"`
	ErrorType  string `json:"error_type,omitempty" bson:"error_type,omitempty"`
	TrackingID string `json:"tracking_id,omitempty" bson:"tracking_id,omitempty"`

	Data *LogData `json:"data,omitempty" bson:"data,omitempty"`
}

// LogData holds the variable part of an entry. Empty fields are omitted.
type LogData struct {
	UserAgent  string `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	APIKeyHash string `json:"api_key_hash,omitempty" bson:"api_key_hash,omitempty"`

	Items        int    `json:"items,omitempty" bson:"items,omitempty"`
	Quote        string `json:"quote,omitempty" bson:"quote,omitempty"`
	ErrorMessage string `json:"error_message,omitempty" bson:"error_message,omitempty"`

	// Sensitive headers are redacted before storage.
	RequestHeaders  map[string]string `json:"request_headers,omitempty" bson:"request_headers,omitempty"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty" bson:"response_headers,omitempty"`

	// Bodies are kept as decoded JSON when possible so MongoDB stores native documents.
	RequestBody                interface{} `json:"request_body,omitempty" bson:"request_body,omitempty"`
	ResponseBody               interface{} `json:"response_body,omitempty" bson:"response_body,omitempty"`
	RequestBodyTooBigToHandle  bool        `json:"request_body_too_big_to_handle,omitempty" bson:"request_body_too_big_to_handle,omitempty"`
	ResponseBodyTooBigToHandle bool        `json:"response_body_too_big_to_handle,omitempty" bson:"response_body_too_big_to_handle,omitempty"`
}

// RedactedHeaders lists header names (lowercase) whose values are never stored.
var RedactedHeaders = []string{
	"authorization",
	"x-api-key",
	"cookie",
	"set-cookie",
	"x-auth-token",
	"x-access-token",
	"proxy-authorization",
}

// RedactHeaders returns a copy of headers with sensitive values replaced by "[REDACTED]".
func RedactHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}

	result := make(map[string]string, len(headers))
	for key, value := range headers {
		result[key] = value
		keyLower := strings.ToLower(key)
		for _, redactKey := range RedactedHeaders {
			if keyLower == redactKey {
				result[key] = "[REDACTED]"
				break
			}
		}
	}
	return result
}

// OperationForPath maps a request path to the shipping operation it serves.
// It returns "" for operational paths such as /health.
func OperationForPath(path string) string {
	switch strings.TrimRight(path, "/") {
	case "/get-quote":
		return OperationGetQuote
	case "/ship-order":
		return OperationShipOrder
	default:
		return ""
	}
}

// Config holds audit logging configuration
type Config struct {
	Enabled bool

	// LogBodies enables logging of full request/response bodies
	LogBodies bool

	// LogHeaders enables logging of request/response headers
	LogHeaders bool

	// BufferSize is the capacity of the in-memory queue; entries are dropped when it is full
	BufferSize int

	FlushInterval time.Duration

	// RetentionDays is how long to keep logs (0 = forever)
	RetentionDays int

	// OnlyShippingOperations limits logging to /get-quote and /ship-order
	OnlyShippingOperations bool
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Enabled:                false,
		BufferSize:             1000,
		FlushInterval:          5 * time.Second,
		RetentionDays:          30,
		OnlyShippingOperations: true,
	}
}
