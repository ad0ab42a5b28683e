package slt

import (
	dbsql "database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"memDB/internal/engine"
	"memDB/internal/protocol"
	"memDB/internal/sql"
	"memDB/internal/storage/memstore"
)

// Backend executes test SQL and returns result values as the protocol
// prints them, flattened row by row.
type Backend interface {
	Exec(sql string) ([]string, error)
	Close() error
}

// BackendFactory opens a fresh, empty database. Every test file gets its
// own.
type BackendFactory func() (Backend, error)

type memBackend struct {
	eng    *engine.DBEngine
	format protocol.Formatter
}

// MemDB returns a factory for in-process engines over memory storage.
func MemDB(f protocol.Formatter, opts ...engine.Option) BackendFactory {
	return func() (Backend, error) {
		eng := engine.New(memstore.New(), opts...)
		if err := eng.Start(); err != nil {
			return nil, err
		}
		return &memBackend{eng: eng, format: f}, nil
	}
}

func (b *memBackend) Exec(text string) ([]string, error) {
	// Frame the SQL exactly as the protocol does.
	stmt := protocol.Statement(strings.Split(text, "\n"))
	if stmt == "" {
		return nil, nil
	}
	res, err := b.eng.ExecuteSQL(stmt)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, row := range res.Rows {
		out = append(out, b.format.Values(row)...)
	}
	return out, nil
}

func (b *memBackend) Close() error { return nil }

type sqliteBackend struct {
	db     *dbsql.DB
	format protocol.Formatter
}

// SQLite returns a factory for in-memory SQLite databases, used to check
// test files against the reference engine.
func SQLite(f protocol.Formatter) BackendFactory {
	return func() (Backend, error) {
		db, err := dbsql.Open("sqlite", ":memory:")
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// Each connection would get its own :memory: database.
		db.SetMaxOpenConns(1)
		return &sqliteBackend{db: db, format: f}, nil
	}
}

func (b *sqliteBackend) Exec(text string) ([]string, error) {
	stmt := protocol.Statement(strings.Split(text, "\n"))
	if stmt == "" {
		return nil, nil
	}
	if !returnsRows(stmt) {
		_, err := b.db.Exec(stmt)
		return nil, err
	}

	rows, err := b.db.Query(stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []string
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for _, v := range vals {
			out = append(out, b.format.Value(driverValue(v)))
		}
	}
	return out, rows.Err()
}

func (b *sqliteBackend) Close() error { return b.db.Close() }

func returnsRows(stmt string) bool {
	word, _, _ := strings.Cut(strings.TrimLeft(stmt, " \t("), " ")
	switch strings.ToUpper(word) {
	case "SELECT", "VALUES", "WITH":
		return true
	}
	return false
}

func driverValue(v any) sql.Value {
	switch x := v.(type) {
	case int64:
		return sql.NewInteger(x)
	case float64:
		return sql.NewReal(x)
	case string:
		return sql.NewText(x)
	case []byte:
		return sql.NewText(string(x))
	case bool:
		return sql.NewBool(x)
	case nil:
		return sql.Null
	default:
		return sql.NewText(fmt.Sprint(x))
	}
}
