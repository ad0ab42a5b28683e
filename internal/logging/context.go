package logging

import (
	"log/slog"
)

// WithComponent creates a logger with component/subsystem context.
//
// Example:
//
//	log := logging.WithComponent("memstore")
//	log.Debug("table created", "table", name)
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithTable creates a logger with table context.
// Use this for catalog and table operations.
func WithTable(tableName string) *slog.Logger {
	return GetLogger().With("table", tableName)
}

// WithIndex creates a logger with index context.
func WithIndex(indexName string) *slog.Logger {
	return GetLogger().With("index", indexName)
}

// WithSession creates a logger carrying an engine session id, so statements
// from concurrently running engines can be told apart.
func WithSession(sessionID string) *slog.Logger {
	return GetLogger().With("session", sessionID)
}

// WithFile creates a logger with the context of a script being run.
func WithFile(path string) *slog.Logger {
	return GetLogger().With("file", path)
}

// WithError creates a logger with error context.
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}
