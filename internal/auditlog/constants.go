package auditlog

// Buffer and capture limits for audit logging.
const (
	// MaxBodyCapture is the maximum size of request/response bodies to capture (1MB).
	MaxBodyCapture = 1024 * 1024

	// BatchFlushThreshold is the number of queued entries that triggers an immediate write.
	BatchFlushThreshold = 100

	// APIKeyHashPrefixLength is the number of hex characters kept from the SHA256 of a bearer token.
	APIKeyHashPrefixLength = 16
)

type contextKey string

// LogEntryKey is the echo context key holding the in-flight *LogEntry.
const LogEntryKey contextKey = "auditlog_entry"
