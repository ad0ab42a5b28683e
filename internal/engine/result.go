package engine

import "memDB/internal/sql"

// Result is what one executed statement produces. Query results carry
// column names and rows; other statements report RowsAffected.
type Result struct {
	Columns      []string
	Rows         []sql.Row
	RowsAffected int
	Query        bool
}

func rowsAffected(n int) *Result {
	return &Result{RowsAffected: n}
}
