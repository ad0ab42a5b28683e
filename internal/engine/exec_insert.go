package engine

import (
	"memDB/internal/sql"
)

func (e *DBEngine) executeInsert(stmt *sql.InsertStmt) (*Result, error) {
	return e.inWriteTx(func(x *execCtx) (int, error) {
		return x.insert(stmt)
	})
}

// insert evaluates the VALUES tuples (or runs the SELECT), places each
// value at its column, fills unlisted columns with their DEFAULT, and hands
// the full rows to storage in one call.
func (x *execCtx) insert(stmt *sql.InsertStmt) (int, error) {
	schema, _, err := x.tx.Scan(stmt.TableName)
	if err != nil {
		return 0, err
	}

	targets, err := insertTargets(schema, stmt.Columns)
	if err != nil {
		return 0, err
	}

	var values []sql.Row
	if stmt.Select != nil {
		res, err := x.runSelect(stmt.Select, nil, nil, 0)
		if err != nil {
			return 0, err
		}
		values = res.Rows
		if len(res.Columns) != len(targets) {
			return 0, countMismatch(schema, stmt.Columns, len(targets), len(res.Columns))
		}
	} else {
		sc := newScope(nil, nil)
		values = make([]sql.Row, len(stmt.Rows))
		for i, exprs := range stmt.Rows {
			if len(exprs) != len(targets) {
				return 0, countMismatch(schema, stmt.Columns, len(targets), len(exprs))
			}
			row := make(sql.Row, len(exprs))
			for j, ex := range exprs {
				if row[j], err = x.eval(ex, sc); err != nil {
					return 0, err
				}
			}
			values[i] = row
		}
	}

	rows := make([]sql.Row, len(values))
	for i, v := range values {
		row := defaultRow(schema)
		for j, pos := range targets {
			row[pos] = v[j]
		}
		rows[i] = row
	}
	return x.tx.Insert(stmt.TableName, rows)
}

// insertTargets maps the INSERT column list to schema positions. An empty
// list means every column in declaration order.
func insertTargets(schema *sql.Schema, cols []string) ([]int, error) {
	if len(cols) == 0 {
		out := make([]int, len(schema.Columns))
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	out := make([]int, len(cols))
	seen := make([]bool, len(schema.Columns))
	for i, name := range cols {
		pos := schema.ColumnIndex(name)
		if pos < 0 {
			return nil, sql.Errorf(sql.ErrUnknownColumn, "table %s has no column named %s", schema.Table, name)
		}
		if seen[pos] {
			return nil, sql.Errorf(sql.ErrUnknownColumn, "duplicate column %s in INSERT column list", name)
		}
		seen[pos] = true
		out[i] = pos
	}
	return out, nil
}

func countMismatch(schema *sql.Schema, cols []string, want, got int) error {
	if len(cols) == 0 {
		return sql.Errorf(sql.ErrColumnCountMismatch, "table %s has %d columns but %d values were supplied",
			schema.Table, want, got)
	}
	return sql.Errorf(sql.ErrColumnCountMismatch, "%d values for %d columns", got, want)
}

// defaultRow returns a row holding each column's DEFAULT (or NULL).
func defaultRow(schema *sql.Schema) sql.Row {
	row := make(sql.Row, len(schema.Columns))
	for i, c := range schema.Columns {
		if c.Default != nil {
			row[i] = *c.Default
		}
	}
	return row
}
