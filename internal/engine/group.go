package engine

import (
	"slices"
	"strings"

	"memDB/internal/sql"
)

// groupExprs resolves GROUP BY terms. An integer literal names a select
// item by position, and a bare name that is not a source column may name an
// output alias.
func groupExprs(sel *sql.SelectStmt, sc *Scope) ([]sql.Expr, error) {
	out := make([]sql.Expr, 0, len(sel.GroupBy))
	for _, g := range sel.GroupBy {
		switch e := g.(type) {
		case *sql.Literal:
			if e.Value.Type == sql.TypeInteger {
				k := e.Value.I64
				if k < 1 || k > int64(len(sel.Items)) || sel.Items[k-1].Star {
					return nil, sql.Errorf(sql.ErrUnknownColumn,
						"GROUP BY term out of range - should be between 1 and %d", len(sel.Items))
				}
				g = sel.Items[k-1].Expr
			}
		case *sql.ColumnRef:
			if e.Table == "" {
				if _, err := sc.resolveLocal(e); err != nil {
					for _, it := range sel.Items {
						if it.Alias != "" && strings.EqualFold(it.Alias, e.Column) {
							g = it.Expr
							break
						}
					}
				}
			}
		}
		if err := noAggregates(g, "GROUP BY clause"); err != nil {
			return nil, err
		}
		if err := checkColumns(g, sc); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// groupedChecker rejects columns used outside aggregates that are not
// grouping terms.
type groupedChecker struct {
	sc   *Scope
	cols map[int]bool
	text map[string]bool
}

func newGroupedChecker(sc *Scope, keys []sql.Expr) (*groupedChecker, error) {
	c := &groupedChecker{sc: sc, cols: make(map[int]bool), text: make(map[string]bool)}
	for _, k := range keys {
		c.text[k.String()] = true
		if ref, ok := k.(*sql.ColumnRef); ok {
			pos, err := sc.resolveLocal(ref)
			if err != nil {
				return nil, err
			}
			if pos >= 0 {
				c.cols[pos] = true
			}
		}
	}
	return c, nil
}

func (c *groupedChecker) check(e sql.Expr) error {
	var err error
	sql.Walk(e, func(n sql.Expr) bool {
		if err != nil || c.text[n.String()] {
			return false
		}
		switch r := n.(type) {
		case *sql.FunctionCall:
			if isAggregateCall(r) {
				return false
			}
		case *sql.ColumnRef:
			pos, rerr := c.sc.resolveLocal(r)
			if rerr != nil {
				err = rerr
				return false
			}
			if pos >= 0 && !c.cols[pos] {
				err = bareColumn(refName(r))
				return false
			}
		}
		return true
	})
	return err
}

func (c *groupedChecker) checkPos(pos int) error {
	if !c.cols[pos] {
		return bareColumn(c.sc.layout.bindings[pos].name)
	}
	return nil
}

func bareColumn(name string) error {
	return sql.Errorf(sql.ErrAggregateMisuse,
		"column %s must appear in the GROUP BY clause or be used in an aggregate function", name)
}

// runGrouped runs an aggregate select: it buckets joined rows by the
// GROUP BY key, folds the aggregates, filters groups with HAVING and
// projects one row per group. Groups come out in ascending key order.
func (x *execCtx) runGrouped(sel *sql.SelectStmt, plan *joinPlan, sc *Scope, items []projItem, terms []orderTerm) ([]outRow, error) {
	keys, err := groupExprs(sel, sc)
	if err != nil {
		return nil, err
	}
	checker, err := newGroupedChecker(sc, keys)
	if err != nil {
		return nil, err
	}

	var aggs aggSet
	for _, it := range items {
		if it.expr == nil {
			if err := checker.checkPos(it.pos); err != nil {
				return nil, err
			}
			continue
		}
		if err := aggs.collect(it.expr); err != nil {
			return nil, err
		}
		if err := checker.check(it.expr); err != nil {
			return nil, err
		}
	}
	if sel.Having != nil {
		if err := checkColumns(sel.Having, sc); err != nil {
			return nil, err
		}
		if err := aggs.collect(sel.Having); err != nil {
			return nil, err
		}
		if err := checker.check(sel.Having); err != nil {
			return nil, err
		}
	}
	for _, t := range terms {
		if t.col >= 0 {
			continue
		}
		if err := aggs.collect(t.expr); err != nil {
			return nil, err
		}
		if err := checker.check(t.expr); err != nil {
			return nil, err
		}
	}

	buckets := make(map[string]*group)
	var groups []*group
	key := make(sql.Row, len(keys))
	err = x.runJoin(plan, sc, func(row sql.Row) error {
		for i, k := range keys {
			v, err := x.eval(k, sc)
			if err != nil {
				return err
			}
			key[i] = v
		}
		k := sql.RowKey(key)
		g, ok := buckets[k]
		if !ok {
			var err error
			if g, err = aggs.newGroup(key.Clone(), row.Clone()); err != nil {
				return err
			}
			buckets[k] = g
			groups = append(groups, g)
		}
		return aggs.add(x, g, sc)
	})
	if err != nil {
		return nil, err
	}

	if len(groups) == 0 && len(keys) == 0 {
		g, err := aggs.newGroup(nil, make(sql.Row, plan.width))
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	slices.SortStableFunc(groups, func(a, b *group) int { return compareRows(a.key, b.key) })

	out := make([]outRow, 0, len(groups))
	for _, g := range groups {
		gs := sc.child(g.row, aggs.results(g))
		if sel.Having != nil {
			t, err := x.truth(sel.Having, gs)
			if err != nil {
				return nil, err
			}
			if t != sql.True {
				continue
			}
		}
		vals, err := x.project(items, gs)
		if err != nil {
			return nil, err
		}
		out = append(out, outRow{vals: vals, scope: gs})
	}
	return out, nil
}
