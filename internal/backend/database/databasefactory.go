package database

import (
	"fmt"
	"log/slog"
)

const (
	TypeJSON   = "json"
	TypeSQLite = "sqlite"
	TypeRedis  = "redis"
	TypeMemory = "memory"
)

// Options selects and parameterizes a MetadataStore backend.
type Options struct {
	Type             string
	Path             string // json
	ConnectionString string // sqlite DSN or redis URL
	Key              string // redis
}

func NewMetadataStore(opts Options) (store MetadataStore, err error) {
	if opts.Type == "" {
		opts.Type = TypeJSON
	}

	switch opts.Type {
	case TypeJSON:
		store, err = NewJSONFileStore(opts.Path)
	case TypeSQLite:
		store, err = NewSQLiteStore(opts.ConnectionString)
	case TypeRedis:
		store, err = NewRedisStore(opts.ConnectionString, opts.Key)
	case TypeMemory:
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported metadata store type: %s", opts.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s metadata store: %w", opts.Type, err)
	}

	// Touch the document once so a missing index is created at startup rather than on first request
	snapshot := store.Load()
	slog.Info("metadata store ready", "type", opts.Type, "status", snapshot.Status.String(), "records", len(snapshot.Records))
	if snapshot.Status == LoadUnreadable {
		slog.Warn("metadata document is unreadable, serving an empty gallery", "error", snapshot.Err)
	}

	return store, nil
}
