package engine

import (
	"memDB/internal/sql"
)

// splitConjuncts flattens a tree of ANDs into its terms. A nil expression
// has no terms.
func splitConjuncts(e sql.Expr) []sql.Expr {
	if e == nil {
		return nil
	}
	if b, ok := e.(*sql.BinaryExpr); ok && b.Op == sql.OpAnd {
		return append(splitConjuncts(b.Left), splitConjuncts(b.Right)...)
	}
	return []sql.Expr{e}
}

// tableScope returns a scope over the columns of a single table, as used by
// UPDATE and DELETE.
func tableScope(schema *sql.Schema) *Scope {
	b := make([]binding, len(schema.Columns))
	for i, c := range schema.Columns {
		b[i] = binding{qualifier: schema.Table, name: c.Name}
	}
	return newScope(nil, newLayout(b))
}

// checkColumns resolves every column reference in e against sc up front, so
// an unknown column fails even when the table is empty.
func checkColumns(e sql.Expr, sc *Scope) error {
	var err error
	sql.Walk(e, func(n sql.Expr) bool {
		if ref, ok := n.(*sql.ColumnRef); ok && err == nil {
			_, err = sc.resolveLocal(ref)
		}
		return err == nil
	})
	return err
}

// rowFilter builds the WHERE predicate of a single-table statement. A nil
// where matches every row.
func (x *execCtx) rowFilter(where sql.Expr, sc *Scope) (func(sql.Row) (bool, error), error) {
	if where == nil {
		return func(sql.Row) (bool, error) { return true, nil }, nil
	}
	if err := noAggregates(where, "WHERE clause"); err != nil {
		return nil, err
	}
	if err := checkColumns(where, sc); err != nil {
		return nil, err
	}
	return func(row sql.Row) (bool, error) {
		sc.row = row
		t, err := x.truth(where, sc)
		return t == sql.True, err
	}, nil
}
