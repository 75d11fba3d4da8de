package auditlog

import (
	"fmt"

	"shipping/internal/storage"
)

// NewReader creates an audit log Reader for the storage backend. Returns nil when store is nil.
func NewReader(store storage.Storage) (Reader, error) {
	if store == nil {
		return nil, nil
	}

	switch store.Type() {
	case storage.TypeSQLite:
		return NewSQLiteReader(store.SQLiteDB())
	case storage.TypePostgreSQL:
		return NewPostgreSQLReader(store.PostgreSQLPool())
	case storage.TypeMongoDB:
		return NewMongoDBReader(store.MongoDatabase())
	default:
		return nil, fmt.Errorf("unknown storage type: %s", store.Type())
	}
}
