package engine

import (
	"slices"
	"strings"

	"memDB/internal/sql"
)

// orderTerm is a resolved ORDER BY term: an output column (col >= 0) or an
// expression evaluated in the row's source scope.
type orderTerm struct {
	col  int
	expr sql.Expr
	desc bool
}

// resolveOrder binds ORDER BY terms to output columns by ordinal, alias or
// identical expression. items is nil for compound selects, whose terms must
// name an output column; otherwise unmatched terms stay expressions.
func resolveOrder(order []sql.OrderItem, columns []string, items []sql.SelectItem) ([]orderTerm, error) {
	terms := make([]orderTerm, 0, len(order))
	for _, o := range order {
		t := orderTerm{col: -1, expr: o.Expr, desc: o.Desc}

		switch e := o.Expr.(type) {
		case *sql.Literal:
			if e.Value.Type == sql.TypeInteger {
				if e.Value.I64 < 1 || e.Value.I64 > int64(len(columns)) {
					return nil, sql.Errorf(sql.ErrUnknownColumn,
						"ORDER BY term out of range - should be between 1 and %d", len(columns))
				}
				t.col = int(e.Value.I64 - 1)
			}
		case *sql.ColumnRef:
			if e.Table == "" {
				t.col = matchAlias(e.Column, columns, items)
			}
		}

		if t.col < 0 && items != nil {
			text := o.Expr.String()
			for i, it := range items {
				if !it.Star && it.Expr.String() == text && i < len(columns) && !hasStarBefore(items, i) {
					t.col = i
					break
				}
			}
		}

		if t.col < 0 && items == nil {
			if _, isLit := o.Expr.(*sql.Literal); !isLit {
				return nil, sql.Errorf(sql.ErrUnknownColumn,
					"ORDER BY term does not match any column in the result set")
			}
		}
		terms = append(terms, t)
	}
	return terms, nil
}

// matchAlias finds an output column named name. For a simple select only
// explicit aliases count; a compound select matches any output name.
func matchAlias(name string, columns []string, items []sql.SelectItem) int {
	if items == nil {
		for i, c := range columns {
			if strings.EqualFold(c, name) {
				return i
			}
		}
		return -1
	}
	if hasStarBefore(items, len(items)) {
		return -1
	}
	for i, it := range items {
		if it.Alias != "" && strings.EqualFold(it.Alias, name) {
			return i
		}
	}
	return -1
}

// hasStarBefore reports whether a * item precedes items[i], in which case
// item positions no longer equal output positions.
func hasStarBefore(items []sql.SelectItem, i int) bool {
	for _, it := range items[:i] {
		if it.Star {
			return true
		}
	}
	return false
}

// sortRows orders rows by terms, stably, with NULLs first in ascending
// order.
func (x *execCtx) sortRows(rows []outRow, terms []orderTerm) error {
	if len(terms) == 0 || len(rows) < 2 {
		return nil
	}
	type keyed struct {
		keys sql.Row
		row  outRow
	}
	ks := make([]keyed, len(rows))
	for i, r := range rows {
		keys := make(sql.Row, len(terms))
		for j, t := range terms {
			if t.col >= 0 {
				keys[j] = r.vals[t.col]
				continue
			}
			if r.scope == nil {
				v, err := x.eval(t.expr, newScope(nil, nil))
				if err != nil {
					return err
				}
				keys[j] = v
				continue
			}
			v, err := x.eval(t.expr, r.scope)
			if err != nil {
				return err
			}
			keys[j] = v
		}
		ks[i] = keyed{keys: keys, row: r}
	}

	slices.SortStableFunc(ks, func(a, b keyed) int {
		for j, t := range terms {
			c := sql.CompareForSort(a.keys[j], b.keys[j])
			if c == 0 {
				continue
			}
			if t.desc {
				return -c
			}
			return c
		}
		return 0
	})
	for i := range ks {
		rows[i] = ks[i].row
	}
	return nil
}

// sortAll orders rows ascending by every column.
func sortAll(rows []sql.Row) {
	slices.SortStableFunc(rows, compareRows)
}

func compareRows(a, b sql.Row) int {
	for i := range a {
		if c := sql.CompareForSort(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}
