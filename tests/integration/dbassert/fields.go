//go:build integration

package dbassert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ExpectedAuditLog contains expected values for audit log assertions.
// Zero values are not checked, allowing partial matching.
type ExpectedAuditLog struct {
	Operation  string
	StatusCode int
	Method     string
	Path       string
	ErrorType  string
	RequestID  string
	TrackingID string
}

// AssertAuditLogFieldCompleteness verifies that all required fields are populated.
func AssertAuditLogFieldCompleteness(t *testing.T, entry AuditLogEntry) {
	t.Helper()

	assert.NotEmpty(t, entry.ID, "audit log ID should not be empty")
	assert.False(t, entry.Timestamp.IsZero(), "audit log timestamp should not be zero")
	assert.NotZero(t, entry.StatusCode, "audit log status code should not be zero")
	assert.NotEmpty(t, entry.Method, "audit log method should not be empty")
	assert.NotEmpty(t, entry.Path, "audit log path should not be empty")
	assert.NotEmpty(t, entry.RequestID, "audit log request ID should not be empty")
}

// AssertAuditLogMatches verifies that the actual entry matches expected values.
// Only non-zero expected values are checked.
func AssertAuditLogMatches(t *testing.T, expected ExpectedAuditLog, actual AuditLogEntry) {
	t.Helper()

	if expected.Operation != "" {
		assert.Equal(t, expected.Operation, actual.Operation, "operation mismatch")
	}
	if expected.StatusCode != 0 {
		assert.Equal(t, expected.StatusCode, actual.StatusCode, "status code mismatch")
	}
	if expected.Method != "" {
		assert.Equal(t, expected.Method, actual.Method, "method mismatch")
	}
	if expected.Path != "" {
		assert.Equal(t, expected.Path, actual.Path, "path mismatch")
	}
	if expected.ErrorType != "" {
		assert.Equal(t, expected.ErrorType, actual.ErrorType, "error type mismatch")
	}
	if expected.RequestID != "" {
		assert.Equal(t, expected.RequestID, actual.RequestID, "request ID mismatch")
	}
	if expected.TrackingID != "" {
		assert.Equal(t, expected.TrackingID, actual.TrackingID, "tracking ID mismatch")
	}
}

// AssertAuditLogHasBody verifies that request and/or response bodies are logged.
func AssertAuditLogHasBody(t *testing.T, entry AuditLogEntry, expectRequest, expectResponse bool) {
	t.Helper()
	require.NotNil(t, entry.Data, "audit log data should not be nil")

	if expectRequest {
		assert.NotNil(t, entry.Data.RequestBody, "expected request body to be logged")
	}
	if expectResponse {
		assert.NotNil(t, entry.Data.ResponseBody, "expected response body to be logged")
	}
}

// AssertAuditLogHasHeaders verifies that headers are logged and secrets redacted.
func AssertAuditLogHasHeaders(t *testing.T, entry AuditLogEntry) {
	t.Helper()
	require.NotNil(t, entry.Data, "audit log data should not be nil")
	require.NotNil(t, entry.Data.RequestHeaders, "expected request headers to be logged")

	for name, value := range entry.Data.RequestHeaders {
		if name == "Authorization" || name == "authorization" {
			assert.Equal(t, "[REDACTED]", value, "authorization must be redacted")
		}
	}
}

// AssertNoErrorType verifies that the entry has no error type set.
func AssertNoErrorType(t *testing.T, entry AuditLogEntry) {
	t.Helper()
	assert.Empty(t, entry.ErrorType, "expected no error type, got: %s", entry.ErrorType)
}

// AssertAuditLogDurationPositive verifies that the duration is positive.
func AssertAuditLogDurationPositive(t *testing.T, entry AuditLogEntry) {
	t.Helper()
	assert.Greater(t, entry.DurationNs, int64(0), "duration should be positive")
}
