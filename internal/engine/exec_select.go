package engine

import (
	"errors"
	"fmt"
	"strings"

	"memDB/internal/sql"
)

// errStop ends a join early once enough rows have been produced.
var errStop = errors.New("stop")

func (e *DBEngine) executeSelect(stmt *sql.SelectStmt) (*Result, error) {
	tx, err := e.store.Begin(true /* readOnly */)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	res, err := e.newExecCtx(tx).runSelect(stmt, nil, nil, 0)
	if err != nil {
		_ = e.store.Rollback(tx)
		return nil, err
	}

	if err := e.store.Commit(tx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

// limits holds evaluated LIMIT and OFFSET values; limit < 0 means none.
type limits struct {
	limit, offset int
}

var noLimit = limits{limit: -1}

func (l limits) apply(rows []outRow) []outRow {
	if l.offset >= len(rows) {
		return nil
	}
	rows = rows[l.offset:]
	if l.limit >= 0 && l.limit < len(rows) {
		rows = rows[:l.limit]
	}
	return rows
}

// limits evaluates LIMIT and OFFSET once per run. They cannot see columns of
// an enclosing query, so an outer reference is an unknown column.
func (x *execCtx) limits(sel *sql.SelectStmt) (limits, error) {
	lim := noLimit
	sc := newScope(nil, nil)
	if sel.Limit != nil {
		n, err := x.evalCount(sel.Limit, sc)
		if err != nil {
			return lim, err
		}
		lim.limit = n
	}
	if sel.Offset != nil {
		n, err := x.evalCount(sel.Offset, sc)
		if err != nil {
			return lim, err
		}
		lim.offset = max(n, 0)
	}
	return lim, nil
}

// evalCount evaluates a LIMIT or OFFSET operand, which must be an integer.
// Negative values mean "no limit".
func (x *execCtx) evalCount(e sql.Expr, sc *Scope) (int, error) {
	v, err := x.eval(e, sc)
	if err != nil {
		return 0, err
	}
	n := sql.ToNumeric(v)
	if v.Type == sql.TypeText {
		if c, cerr := sql.CoerceToColumn(v, sql.TypeInteger); cerr == nil {
			n = c
		} else {
			n = sql.Null
		}
	}
	switch {
	case n.Type == sql.TypeInteger:
		return int(max(n.I64, -1)), nil
	case n.Type == sql.TypeReal && n.F64 == float64(int64(n.F64)):
		return int(max(int64(n.F64), -1)), nil
	}
	return 0, sql.Errorf(sql.ErrTypeMismatch, "datatype mismatch")
}

// runSelect executes a full query, including compound parts, ORDER BY and
// LIMIT. parent is the enclosing scope for correlated references.
func (x *execCtx) runSelect(sel *sql.SelectStmt, parent *Scope, fr *frame, hint int) (*Result, error) {
	lim, err := x.limits(sel)
	if err != nil {
		return nil, err
	}
	if len(sel.Compounds) == 0 {
		return x.runCore(sel, parent, fr, sel.OrderBy, lim, hint)
	}

	res, err := x.runCore(sel, parent, fr, nil, noLimit, 0)
	if err != nil {
		return nil, err
	}
	rows := res.Rows
	for _, part := range sel.Compounds {
		rhs, err := x.runCore(part.Select, parent, fr, nil, noLimit, 0)
		if err != nil {
			return nil, err
		}
		if len(rhs.Columns) != len(res.Columns) {
			return nil, sql.Errorf(sql.ErrColumnCountMismatch,
				"SELECTs to the left and right of %s do not have the same number of result columns", part.Op)
		}
		rows = combine(part.Op, rows, rhs.Rows)
	}

	terms, err := resolveOrder(sel.OrderBy, res.Columns, nil)
	if err != nil {
		return nil, err
	}
	out := make([]outRow, len(rows))
	for i, r := range rows {
		out[i] = outRow{vals: r}
	}
	if err := x.sortRows(out, terms); err != nil {
		return nil, err
	}
	return finish(res.Columns, lim.apply(out)), nil
}

// combine applies one set operator. Every operator but UNION ALL removes
// duplicates and yields its rows in ascending order.
func combine(op sql.CompoundOp, left, right []sql.Row) []sql.Row {
	if op == sql.UnionAll {
		return append(left, right...)
	}

	var out []sql.Row
	switch op {
	case sql.Union:
		out = distinctRows(append(left, right...))
	default:
		inRight := make(map[string]bool, len(right))
		for _, r := range right {
			inRight[sql.RowKey(r)] = true
		}
		for _, r := range distinctRows(left) {
			if inRight[sql.RowKey(r)] == (op == sql.Intersect) {
				out = append(out, r)
			}
		}
	}
	sortAll(out)
	return out
}

func distinctRows(rows []sql.Row) []sql.Row {
	seen := make(map[string]struct{}, len(rows))
	out := make([]sql.Row, 0, len(rows))
	for _, r := range rows {
		k := sql.RowKey(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// projItem is one output column: an expression, or (for * expansions) a
// position in the combined row.
type projItem struct {
	expr sql.Expr
	pos  int
}

// outRow is a projected row plus, when ORDER BY needs it, the scope it was
// produced in.
type outRow struct {
	vals  sql.Row
	scope *Scope
}

// expandItems resolves the select list against the FROM layout, expanding
// * and t.* and naming every output column.
func expandItems(items []sql.SelectItem, l *layout) ([]projItem, []string, error) {
	var out []projItem
	var names []string
	for _, it := range items {
		if !it.Star {
			out = append(out, projItem{expr: it.Expr, pos: -1})
			names = append(names, columnName(it))
			continue
		}
		if len(l.bindings) == 0 {
			return nil, nil, sql.Errorf(sql.ErrUnknownTable, "no tables specified")
		}
		matched := false
		for i, b := range l.bindings {
			if it.StarTable != "" && !strings.EqualFold(b.qualifier, it.StarTable) {
				continue
			}
			out = append(out, projItem{pos: i})
			names = append(names, b.name)
			matched = true
		}
		if !matched {
			return nil, nil, sql.Errorf(sql.ErrUnknownTable, "no such table: %s", it.StarTable)
		}
	}
	return out, names, nil
}

func columnName(it sql.SelectItem) string {
	if it.Alias != "" {
		return it.Alias
	}
	if ref, ok := it.Expr.(*sql.ColumnRef); ok {
		return ref.Column
	}
	return it.Text
}

func (x *execCtx) project(items []projItem, sc *Scope) (sql.Row, error) {
	out := make(sql.Row, len(items))
	for i, it := range items {
		if it.expr == nil {
			out[i] = sc.row[it.pos]
			continue
		}
		v, err := x.eval(it.expr, sc)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// runCore executes one select core: join, filter, group, project, and the
// given ORDER BY and LIMIT.
func (x *execCtx) runCore(sel *sql.SelectStmt, parent *Scope, fr *frame, order []sql.OrderItem, lim limits, hint int) (*Result, error) {
	plan, err := x.planFrom(sel.From, parent, fr)
	if err != nil {
		return nil, err
	}
	sc := &Scope{parent: parent, layout: plan.layout, frame: fr}

	items, columns, err := expandItems(sel.Items, plan.layout)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := checkColumns(it.expr, sc); err != nil {
			return nil, err
		}
	}
	if sel.Where != nil {
		if err := noAggregates(sel.Where, "WHERE clause"); err != nil {
			return nil, err
		}
		if err := plan.pushWhere(sel.Where, sc); err != nil {
			return nil, err
		}
	}
	plan.planSeeks(sc)

	terms, err := resolveOrder(order, columns, sel.Items)
	if err != nil {
		return nil, err
	}
	keepScope := false
	for _, t := range terms {
		if t.col < 0 {
			keepScope = true
			if err := checkColumns(t.expr, sc); err != nil {
				return nil, err
			}
		}
	}

	aggregate := len(sel.GroupBy) > 0 || sel.Having != nil
	for _, it := range items {
		if it.expr != nil && findAggregate(it.expr) != nil {
			aggregate = true
		}
	}
	for _, t := range terms {
		if t.col < 0 && findAggregate(t.expr) != nil {
			aggregate = true
		}
	}

	var out []outRow
	if aggregate {
		out, err = x.runGrouped(sel, plan, sc, items, terms)
	} else {
		stopAt := -1
		if !sel.Distinct && len(terms) == 0 {
			if lim.limit >= 0 {
				stopAt = lim.offset + lim.limit
			}
			if hint > 0 && (stopAt < 0 || lim.offset+hint < stopAt) {
				stopAt = lim.offset + hint
			}
		}
		out, err = x.runPlain(plan, sc, items, keepScope, stopAt)
	}
	if err != nil {
		return nil, err
	}

	if sel.Distinct {
		seen := make(map[string]struct{}, len(out))
		kept := out[:0]
		for _, o := range out {
			k := sql.RowKey(o.vals)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			kept = append(kept, o)
		}
		out = kept
	}

	if err := x.sortRows(out, terms); err != nil {
		return nil, err
	}
	return finish(columns, lim.apply(out)), nil
}

// runPlain projects every joined row of a select without aggregates.
// stopAt >= 0 ends the join once that many rows exist.
func (x *execCtx) runPlain(plan *joinPlan, sc *Scope, items []projItem, keepScope bool, stopAt int) ([]outRow, error) {
	var out []outRow
	if stopAt == 0 {
		return nil, nil
	}
	err := x.runJoin(plan, sc, func(row sql.Row) error {
		vals, err := x.project(items, sc)
		if err != nil {
			return err
		}
		o := outRow{vals: vals}
		if keepScope {
			o.scope = sc.child(row.Clone(), nil)
		}
		out = append(out, o)
		if stopAt >= 0 && len(out) >= stopAt {
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return out, nil
}

func finish(columns []string, rows []outRow) *Result {
	res := &Result{Columns: columns, Rows: make([]sql.Row, len(rows)), Query: true}
	for i, o := range rows {
		res.Rows[i] = o.vals
	}
	return res
}
