package storage

import (
	"iter"

	"memDB/internal/index"
	"memDB/internal/sql"
)

// Tx is a statement-scoped storage transaction. Writes are staged inside the
// transaction and become visible to other transactions only on Commit; reads
// through the same Tx see them immediately.
//
// Rows handed out by Scan and SeekEqual are shared with storage and must not
// be modified.
type Tx interface {
	// Insert validates every row (width, column affinity, NOT NULL,
	// uniqueness) before staging any of them, and returns the count.
	Insert(table string, rows []sql.Row) (int, error)

	// Scan returns the table's schema and a restartable iterator over its
	// rows in insertion order.
	Scan(table string) (*sql.Schema, iter.Seq[sql.Row], error)

	// SeekEqual returns the rows whose column equals v, in scan order. NULL
	// matches nothing.
	SeekEqual(table string, column int, v sql.Value) (iter.Seq[sql.Row], error)

	// Update calls fn for every row; fn returns the replacement row and
	// whether it changed. All replacements are validated before any is
	// staged. It returns the number of changed rows.
	Update(table string, fn func(sql.Row) (sql.Row, bool, error)) (int, error)

	// Delete removes every row for which pred returns true and returns the
	// count.
	Delete(table string, pred func(sql.Row) (bool, error)) (int, error)
}

// Engine is a storage engine that can create and manage transactions.
// Catalog operations (tables and indexes) take effect immediately.
type Engine interface {
	// Begin starts a new transaction.
	// readOnly = true means the transaction must not perform writes.
	Begin(readOnly bool) (Tx, error)

	// Commit publishes the transaction's staged writes atomically.
	Commit(tx Tx) error

	// Rollback aborts a transaction and discards its changes.
	Rollback(tx Tx) error

	// CreateTable creates a new empty table. Schema.Keys lists the column
	// sets that must be unique.
	CreateTable(schema *sql.Schema) error

	// DropTable removes a table and every index on it.
	DropTable(name string) error

	// CreateIndex declares a secondary index on existing columns.
	CreateIndex(meta index.Meta) error

	// DropIndex removes a declared index.
	DropIndex(name string) error

	// ListTables returns table names in sorted order.
	ListTables() []string

	// TableSchema returns a table's schema.
	TableSchema(name string) (*sql.Schema, error)
}
