package engine

import (
	"memDB/internal/sql"
)

// setClause is an UPDATE assignment resolved to a column position.
type setClause struct {
	pos   int
	value sql.Expr
}

// resolveAssignments maps SET targets to positions and checks the
// right-hand sides reference only known columns.
func resolveAssignments(schema *sql.Schema, assigns []sql.Assignment, sc *Scope) ([]setClause, error) {
	out := make([]setClause, len(assigns))
	for i, a := range assigns {
		pos := schema.ColumnIndex(a.Column)
		if pos < 0 {
			return nil, sql.Errorf(sql.ErrUnknownColumn, "no such column: %s", a.Column)
		}
		if err := noAggregates(a.Value, "SET clause"); err != nil {
			return nil, err
		}
		if err := checkColumns(a.Value, sc); err != nil {
			return nil, err
		}
		out[i] = setClause{pos: pos, value: a.Value}
	}
	return out, nil
}

// applySet computes the replacement for row. Every right-hand side sees the
// row as it was before the statement.
func (x *execCtx) applySet(row sql.Row, sets []setClause, sc *Scope) (sql.Row, error) {
	sc.row = row
	out := row.Clone()
	for _, s := range sets {
		v, err := x.eval(s.value, sc)
		if err != nil {
			return nil, err
		}
		out[s.pos] = v
	}
	return out, nil
}
