package auditlog

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoDBReader implements Reader for MongoDB.
type MongoDBReader struct {
	collection *mongo.Collection
}

// NewMongoDBReader creates a new MongoDB audit log reader.
func NewMongoDBReader(database *mongo.Database) (*MongoDBReader, error) {
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &MongoDBReader{collection: database.Collection(CollectionName)}, nil
}

func mongoFilter(params LogQueryParams) bson.D {
	filter := bson.D{}
	if params.Operation != "" {
		filter = append(filter, bson.E{Key: "operation", Value: params.Operation})
	}
	if params.ErrorType != "" {
		filter = append(filter, bson.E{Key: "error_type", Value: params.ErrorType})
	}
	if params.RequestID != "" {
		filter = append(filter, bson.E{Key: "request_id", Value: params.RequestID})
	}
	if params.TrackingID != "" {
		filter = append(filter, bson.E{Key: "tracking_id", Value: params.TrackingID})
	}
	if params.StatusCode != nil {
		filter = append(filter, bson.E{Key: "status_code", Value: *params.StatusCode})
	}

	ts := bson.D{}
	if !params.Since.IsZero() {
		ts = append(ts, bson.E{Key: "$gte", Value: params.Since.UTC()})
	}
	if !params.Until.IsZero() {
		ts = append(ts, bson.E{Key: "$lt", Value: params.Until.UTC()})
	}
	if len(ts) > 0 {
		filter = append(filter, bson.E{Key: "timestamp", Value: ts})
	}
	return filter
}

// GetLogs returns a page of audit log entries, newest first.
func (r *MongoDBReader) GetLogs(ctx context.Context, params LogQueryParams) (*LogListResult, error) {
	limit, offset := clampLimitOffset(params.Limit, params.Offset)
	filter := mongoFilter(params)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit log entries: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]LogEntry, 0, limit)
	for cursor.Next(ctx) {
		var e LogEntry
		if err := cursor.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to decode audit log: %w", err)
		}
		e.Data = sanitizeLogData(e.Data)
		entries = append(entries, e)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}

	return &LogListResult{Entries: entries, Total: int(total), Limit: limit, Offset: offset}, nil
}

// GetLogByID returns a single audit log entry, or nil when it does not exist.
func (r *MongoDBReader) GetLogByID(ctx context.Context, id string) (*LogEntry, error) {
	var e LogEntry
	err := r.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log by id: %w", err)
	}
	e.Data = sanitizeLogData(e.Data)
	return &e, nil
}

// sanitizeLogData re-applies header redaction and converts BSON documents in captured
// bodies into plain maps and slices so they encode as ordinary JSON.
func sanitizeLogData(data *LogData) *LogData {
	if data == nil {
		return nil
	}
	clean := *data
	clean.RequestHeaders = RedactHeaders(data.RequestHeaders)
	clean.ResponseHeaders = RedactHeaders(data.ResponseHeaders)
	clean.RequestBody = plainBSON(data.RequestBody)
	clean.ResponseBody = plainBSON(data.ResponseBody)
	return &clean
}

func plainBSON(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.D:
		m := make(map[string]interface{}, len(t))
		for _, e := range t {
			m[e.Key] = plainBSON(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = plainBSON(val)
		}
		return m
	case bson.A:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = plainBSON(val)
		}
		return out
	default:
		return v
	}
}
