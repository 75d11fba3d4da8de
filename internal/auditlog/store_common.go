package auditlog

import (
	"encoding/json"
	"log/slog"
	"time"
)

// CleanupInterval is how often stores without native TTL delete expired entries.
const CleanupInterval = 1 * time.Hour

// RunCleanupLoop runs cleanupFn immediately and then every CleanupInterval until stop is closed.
func RunCleanupLoop(stop <-chan struct{}, cleanupFn func()) {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	cleanupFn()

	for {
		select {
		case <-ticker.C:
			cleanupFn()
		case <-stop:
			return
		}
	}
}

// marshalLogData encodes the data column. A nil LogData becomes SQL NULL.
func marshalLogData(data *LogData, id string) []byte {
	if data == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		slog.Warn("failed to marshal audit log data", "error", err, "id", id)
		return []byte("{}")
	}
	return b
}

// unmarshalLogData decodes the data column, tolerating NULL and corrupt values.
func unmarshalLogData(raw []byte, id string) *LogData {
	if len(raw) == 0 {
		return nil
	}
	var data LogData
	if err := json.Unmarshal(raw, &data); err != nil {
		slog.Warn("failed to unmarshal audit log data", "error", err, "id", id)
		return nil
	}
	return &data
}

// retentionCutoff returns the oldest timestamp kept for the given retention.
func retentionCutoff(retentionDays int) time.Time {
	return time.Now().AddDate(0, 0, -retentionDays).UTC()
}
