package auditlog

import (
	"context"
	"errors"
	"fmt"

	"shipping/config"
	"shipping/internal/storage"
)

// Result holds the initialized audit logger and its dependencies.
// The caller is responsible for calling Close() to release resources.
type Result struct {
	Logger  LoggerInterface
	Reader  Reader
	Storage storage.Storage
}

// Close stops the logger (draining queued entries) before closing storage.
// Safe to call multiple times.
func (r *Result) Close() error {
	var errs []error
	if r.Logger != nil {
		if err := r.Logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("logger close: %w", err))
		}
	}
	if r.Storage != nil {
		if err := r.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

// New creates the audit logger, its store and a reader from configuration.
// If auditing is disabled, it returns a NoopLogger with nil storage and reader.
func New(ctx context.Context, cfg *config.Config) (*Result, error) {
	if !cfg.Audit.Enabled {
		return &Result{Logger: &NoopLogger{}}, nil
	}

	store, err := storage.New(ctx, buildStorageConfig(cfg.Storage))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	logStore, err := createLogStore(ctx, store, cfg.Audit.RetentionDays)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	reader, err := NewReader(store)
	if err != nil {
		_ = logStore.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to create audit log reader: %w", err)
	}

	return &Result{
		Logger:  NewLogger(logStore, buildLoggerConfig(cfg.Audit)),
		Reader:  reader,
		Storage: store,
	}, nil
}

func buildStorageConfig(cfg config.StorageConfig) storage.Config {
	storageCfg := storage.DefaultConfig()
	if cfg.Type != "" {
		storageCfg.Type = cfg.Type
	}
	if cfg.SQLite.Path != "" {
		storageCfg.SQLite.Path = cfg.SQLite.Path
	}
	storageCfg.PostgreSQL.URL = cfg.PostgreSQL.URL
	if cfg.PostgreSQL.MaxConns > 0 {
		storageCfg.PostgreSQL.MaxConns = cfg.PostgreSQL.MaxConns
	}
	storageCfg.MongoDB.URL = cfg.MongoDB.URL
	if cfg.MongoDB.Database != "" {
		storageCfg.MongoDB.Database = cfg.MongoDB.Database
	}
	return storageCfg
}

// createLogStore creates the LogStore matching the storage backend.
func createLogStore(ctx context.Context, store storage.Storage, retentionDays int) (LogStore, error) {
	switch store.Type() {
	case storage.TypeSQLite:
		return NewSQLiteStore(store.SQLiteDB(), retentionDays)
	case storage.TypePostgreSQL:
		return NewPostgreSQLStore(ctx, store.PostgreSQLPool(), retentionDays)
	case storage.TypeMongoDB:
		return NewMongoDBStore(ctx, store.MongoDatabase(), retentionDays)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", store.Type())
	}
}

func buildLoggerConfig(auditCfg config.AuditConfig) Config {
	cfg := DefaultConfig()
	cfg.Enabled = auditCfg.Enabled
	cfg.LogBodies = auditCfg.LogBodies
	cfg.LogHeaders = auditCfg.LogHeaders
	cfg.RetentionDays = auditCfg.RetentionDays
	cfg.OnlyShippingOperations = auditCfg.OnlyShippingOperations
	if auditCfg.BufferSize > 0 {
		cfg.BufferSize = auditCfg.BufferSize
	}
	if auditCfg.FlushInterval > 0 {
		cfg.FlushInterval = auditCfg.FlushInterval.Std()
	}
	return cfg
}
