// Package slt reads SQLLogicTest files and runs them against a database.
package slt

// SortMode says how query results are ordered before comparison.
type SortMode int

const (
	NoSort SortMode = iota
	RowSort
	ValueSort
)

func (m SortMode) String() string {
	switch m {
	case RowSort:
		return "rowsort"
	case ValueSort:
		return "valuesort"
	default:
		return "nosort"
	}
}

// Record is one parsed entry of a test file: a *Statement, a *Query or
// a *Halt.
type Record interface {
	Line() int
}

// Statement is SQL that must succeed, or fail when ExpectError is set.
type Statement struct {
	SQL         string
	ExpectError bool
	LineNo      int
}

// Query is SQL whose results are compared against Expected, or against
// a hash when HashCount is non-negative.
type Query struct {
	SQL         string
	ColumnTypes string // one of I, R, T per column
	Sort        SortMode
	Label       string
	Expected    []string
	HashCount   int // -1 when Expected holds literal values
	Hash        string
	LineNo      int
}

// Halt stops the file.
type Halt struct {
	LineNo int
}

func (s *Statement) Line() int { return s.LineNo }
func (q *Query) Line() int     { return q.LineNo }
func (h *Halt) Line() int      { return h.LineNo }

// Columns is the number of result columns the query declares.
func (q *Query) Columns() int {
	if q.ColumnTypes == "" {
		return 1
	}
	return len(q.ColumnTypes)
}
