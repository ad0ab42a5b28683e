package engine

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"memDB/internal/logging"
	"memDB/internal/sql"
	"memDB/internal/storage"
)

// DefaultParseCacheSize is the number of parsed statements kept by default.
const DefaultParseCacheSize = 256

// DBEngine is the main database engine struct. It parses statements,
// executes them against a storage engine, and reports results.
type DBEngine struct {
	started bool
	store   storage.Engine
	opts    options

	session string
	log     *slog.Logger
	parsed  *lru.Cache[string, sql.Statement]
}

type options struct {
	divisionByZeroNull bool
	parseCacheSize     int
}

// Option configures a DBEngine.
type Option func(*options)

// WithDivisionByZeroNull makes x/0 and x%0 evaluate to NULL instead of
// failing the statement.
func WithDivisionByZeroNull() Option {
	return func(o *options) { o.divisionByZeroNull = true }
}

// WithParseCacheSize sets how many parsed statements are cached by text.
// Zero disables the cache.
func WithParseCacheSize(n int) Option {
	return func(o *options) { o.parseCacheSize = n }
}

// New creates a new DBEngine instance over store.
func New(store storage.Engine, opts ...Option) *DBEngine {
	o := options{parseCacheSize: DefaultParseCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	session := uuid.NewString()
	return &DBEngine{
		store:   store,
		opts:    o,
		session: session,
		log:     logging.WithSession(session),
	}
}

// Start runs initialization steps for the engine.
func (e *DBEngine) Start() error {
	if e.started {
		return fmt.Errorf("engine already started")
	}
	if e.opts.parseCacheSize > 0 {
		cache, err := lru.New[string, sql.Statement](e.opts.parseCacheSize)
		if err != nil {
			return fmt.Errorf("parse cache: %w", err)
		}
		e.parsed = cache
	}
	e.started = true
	e.log.Debug("engine started", "parse_cache", e.opts.parseCacheSize, "division_by_zero_null", e.opts.divisionByZeroNull)
	return nil
}

// Session returns the id that tags this engine's log records.
func (e *DBEngine) Session() string { return e.session }

// Parse parses text, reusing the cached AST when the same text was seen
// before. Cached statements are shared and must not be modified.
func (e *DBEngine) Parse(text string) (sql.Statement, error) {
	if e.parsed != nil {
		if stmt, ok := e.parsed.Get(text); ok {
			ParseCacheLookups.WithLabelValues("hit").Inc()
			return stmt, nil
		}
		ParseCacheLookups.WithLabelValues("miss").Inc()
	}
	stmt, err := sql.Parse(text)
	if err != nil {
		ParseErrors.Inc()
		return nil, err
	}
	if e.parsed != nil {
		e.parsed.Add(text, stmt)
	}
	return stmt, nil
}

// ExecuteSQL parses and executes one statement.
func (e *DBEngine) ExecuteSQL(text string) (*Result, error) {
	if !e.started {
		return nil, fmt.Errorf("engine not started")
	}
	stmt, err := e.Parse(text)
	if err != nil {
		e.log.Debug("parse failed", "sql", text, "error", err)
		return nil, err
	}
	return e.Execute(stmt)
}

// ListTables returns the names of all tables in the storage engine.
func (e *DBEngine) ListTables() ([]string, error) {
	if !e.started {
		return nil, fmt.Errorf("engine not started")
	}
	return e.store.ListTables(), nil
}

// TableSchema returns the schema of a table.
func (e *DBEngine) TableSchema(name string) (*sql.Schema, error) {
	if !e.started {
		return nil, fmt.Errorf("engine not started")
	}
	return e.store.TableSchema(name)
}
