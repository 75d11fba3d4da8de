//go:build integration

// Package dbassert provides database assertion helpers for integration tests.
// It queries and validates audit log entries in PostgreSQL and MongoDB.
package dbassert

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"shipping/internal/auditlog"
)

// AuditLogEntry mirrors auditlog.LogEntry for test assertions.
// We use a separate type to avoid coupling tests to internal implementation details.
type AuditLogEntry struct {
	ID         string
	Timestamp  time.Time
	DurationNs int64
	Operation  string
	StatusCode int
	RequestID  string
	ClientIP   string
	Method     string
	Path       string
	ErrorType  string
	TrackingID string
	Data       *auditlog.LogData
}

// QueryAuditLogsByRequestID queries audit logs by request ID from PostgreSQL.
func QueryAuditLogsByRequestID(t *testing.T, pool *pgxpool.Pool, requestID string) []AuditLogEntry {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := `
		SELECT id::text, timestamp, duration_ns, COALESCE(operation, ''), status_code,
		       COALESCE(request_id, ''), COALESCE(client_ip, ''), COALESCE(method, ''),
		       COALESCE(path, ''), COALESCE(error_type, ''), COALESCE(tracking_id, ''), data
		FROM audit_logs
		WHERE request_id = $1
		ORDER BY timestamp ASC
	`

	rows, err := pool.Query(ctx, query, requestID)
	require.NoError(t, err, "failed to query audit logs")
	defer rows.Close()

	var entries []AuditLogEntry
	for rows.Next() {
		var entry AuditLogEntry
		var dataJSON []byte
		err := rows.Scan(
			&entry.ID, &entry.Timestamp, &entry.DurationNs,
			&entry.Operation, &entry.StatusCode,
			&entry.RequestID, &entry.ClientIP, &entry.Method,
			&entry.Path, &entry.ErrorType, &entry.TrackingID, &dataJSON,
		)
		require.NoError(t, err, "failed to scan audit log row")

		if dataJSON != nil {
			entry.Data = unmarshalLogData(t, dataJSON)
		}
		entries = append(entries, entry)
	}
	require.NoError(t, rows.Err(), "error iterating audit log rows")

	return entries
}

// QueryAuditLogsByRequestIDMongo queries audit logs by request ID from MongoDB.
func QueryAuditLogsByRequestIDMongo(t *testing.T, db *mongo.Database, requestID string) []AuditLogEntry {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := db.Collection(auditlog.CollectionName)
	cursor, err := collection.Find(ctx, bson.M{"request_id": requestID})
	require.NoError(t, err, "failed to query audit logs from MongoDB")
	defer func() { _ = cursor.Close(ctx) }()

	var entries []AuditLogEntry
	for cursor.Next(ctx) {
		var doc auditlog.LogEntry
		require.NoError(t, cursor.Decode(&doc), "failed to decode audit log document")
		entries = append(entries, fromLogEntry(doc))
	}
	require.NoError(t, cursor.Err(), "error iterating audit log cursor")

	return entries
}

// ClearAuditLogs deletes all audit log entries from PostgreSQL.
func ClearAuditLogs(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := pool.Exec(ctx, "DELETE FROM audit_logs")
	require.NoError(t, err, "failed to clear audit logs")
}

// ClearAuditLogsMongo deletes all audit log documents from MongoDB.
func ClearAuditLogsMongo(t *testing.T, db *mongo.Database) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := db.Collection(auditlog.CollectionName).DeleteMany(ctx, bson.M{})
	require.NoError(t, err, "failed to clear audit logs")
}

func fromLogEntry(e auditlog.LogEntry) AuditLogEntry {
	return AuditLogEntry{
		ID:         e.ID,
		Timestamp:  e.Timestamp,
		DurationNs: e.DurationNs,
		Operation:  e.Operation,
		StatusCode: e.StatusCode,
		RequestID:  e.RequestID,
		ClientIP:   e.ClientIP,
		Method:     e.Method,
		Path:       e.Path,
		ErrorType:  e.ErrorType,
		TrackingID: e.TrackingID,
		Data:       e.Data,
	}
}

func unmarshalLogData(t *testing.T, raw []byte) *auditlog.LogData {
	t.Helper()
	var data auditlog.LogData
	require.NoError(t, json.Unmarshal(raw, &data), "failed to unmarshal audit log data")
	return &data
}
