package engine

import (
	"iter"

	"memDB/internal/sql"
)

// source is one FROM item: a base table, a derived table, or a
// parenthesized join, occupying [offset, offset+width) of the combined row.
type source struct {
	table    string // base table name; empty for derived sources
	bindings []binding
	rows     iter.Seq[sql.Row]
	offset   int
	width    int
}

// level is one step of the left-deep nested loop.
type level struct {
	src  *source
	kind sql.JoinKind

	// pre decides whether a candidate matches (ON plus pushed-down WHERE
	// terms for inner levels). post holds WHERE terms that must also see
	// the NULL-padded row of a LEFT join.
	pre  []sql.Expr
	post []sql.Expr

	// seekCol and seekExpr turn "col = expr" in pre into an index lookup.
	seekCol  int
	seekExpr sql.Expr
}

// joinPlan evaluates a FROM clause as nested loops, left to right.
type joinPlan struct {
	levels []*level
	layout *layout
	width  int
	// final holds WHERE terms that run on complete rows, which is where
	// terms containing subqueries go.
	final []sql.Expr
}

// planFrom builds the join plan for a FROM clause (nil means no FROM). The
// returned plan's layout covers every source in order.
func (x *execCtx) planFrom(from sql.TableRef, parent *Scope, fr *frame) (*joinPlan, error) {
	p := &joinPlan{}
	var ons []sql.Expr
	if from != nil {
		if err := x.flatten(p, &ons, from, sql.JoinCross, nil, parent, fr); err != nil {
			return nil, err
		}
	}

	var bindings []binding
	for _, lv := range p.levels {
		lv.src.offset = len(bindings)
		lv.src.width = len(lv.src.bindings)
		bindings = append(bindings, lv.src.bindings...)
	}
	p.layout = newLayout(bindings)
	p.width = len(bindings)

	sc := &Scope{parent: parent, layout: p.layout, frame: fr}
	for i, lv := range p.levels {
		on := ons[i]
		if on == nil {
			continue
		}
		if err := noAggregates(on, "ON clause"); err != nil {
			return nil, err
		}
		for _, term := range splitConjuncts(on) {
			at, hasSub, err := p.levelOf(term, sc)
			if err != nil {
				return nil, err
			}
			if at > i && !hasSub {
				if lv.kind == sql.JoinLeft {
					return nil, sql.Errorf(sql.ErrUnknownColumn, "ON clause references tables to its right")
				}
				// An inner join's ON term behaves like a WHERE term.
				p.place(term, at)
				continue
			}
			lv.pre = append(lv.pre, term)
		}
	}
	return p, nil
}

// flatten appends the sources of ref to p, inlining the leftmost join chain.
// ons receives each level's ON expression.
func (x *execCtx) flatten(p *joinPlan, ons *[]sql.Expr, ref sql.TableRef, kind sql.JoinKind, on sql.Expr, parent *Scope, fr *frame) error {
	if j, ok := ref.(*sql.JoinRef); ok && len(p.levels) == 0 {
		if err := x.flatten(p, ons, j.Left, kind, on, parent, fr); err != nil {
			return err
		}
		return x.flatten(p, ons, j.Right, j.Kind, j.On, parent, fr)
	}
	src, err := x.openSource(ref, parent, fr)
	if err != nil {
		return err
	}
	p.levels = append(p.levels, &level{src: src, kind: kind, seekCol: -1})
	*ons = append(*ons, on)
	return nil
}

// openSource resolves one FROM item to its bindings and rows.
func (x *execCtx) openSource(ref sql.TableRef, parent *Scope, fr *frame) (*source, error) {
	switch r := ref.(type) {
	case *sql.TableName:
		schema, rows, err := x.tx.Scan(r.Name)
		if err != nil {
			return nil, err
		}
		q := r.Alias
		if q == "" {
			q = r.Name
		}
		b := make([]binding, len(schema.Columns))
		for i, c := range schema.Columns {
			b[i] = binding{qualifier: q, name: c.Name}
		}
		return &source{table: schema.Table, bindings: b, rows: rows}, nil

	case *sql.DerivedTable:
		res, err := x.runSelect(r.Select, parent, fr, 0)
		if err != nil {
			return nil, err
		}
		b := make([]binding, len(res.Columns))
		for i, name := range res.Columns {
			b[i] = binding{qualifier: r.Alias, name: name}
		}
		return &source{bindings: b, rows: rowSeq(res.Rows)}, nil

	case *sql.JoinRef:
		// A parenthesized join on the right of another join is evaluated
		// on its own and joined as a whole.
		sub, err := x.planFrom(r, parent, fr)
		if err != nil {
			return nil, err
		}
		var rows []sql.Row
		sc := &Scope{parent: parent, layout: sub.layout, frame: fr}
		err = x.runJoin(sub, sc, func(row sql.Row) error {
			rows = append(rows, row.Clone())
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &source{bindings: sub.layout.bindings, rows: rowSeq(rows)}, nil

	default:
		return nil, sql.Errorf(sql.ErrInternal, "unsupported FROM item %T", ref)
	}
}

func rowSeq(rows []sql.Row) iter.Seq[sql.Row] {
	return func(yield func(sql.Row) bool) {
		for _, r := range rows {
			if !yield(r) {
				return
			}
		}
	}
}

// sourceAt returns the level index owning combined-row position pos.
func (p *joinPlan) sourceAt(pos int) int {
	for i, lv := range p.levels {
		if pos < lv.src.offset+lv.src.width {
			return i
		}
	}
	return len(p.levels) - 1
}

// levelOf returns the deepest level whose columns e reads, and whether e
// contains a subquery (whose references are not visible here).
func (p *joinPlan) levelOf(e sql.Expr, sc *Scope) (int, bool, error) {
	at, hasSub := 0, false
	var err error
	sql.Walk(e, func(n sql.Expr) bool {
		if err != nil {
			return false
		}
		switch r := n.(type) {
		case *sql.SubqueryExpr:
			hasSub = true
		case *sql.ColumnRef:
			var pos int
			if pos, err = sc.resolveLocal(r); err != nil {
				return false
			}
			if pos >= 0 {
				at = max(at, p.sourceAt(pos))
			}
		}
		return true
	})
	return at, hasSub, err
}

// pushWhere distributes the conjuncts of a WHERE clause to the first level
// where every column they read is bound.
func (p *joinPlan) pushWhere(where sql.Expr, sc *Scope) error {
	for _, term := range splitConjuncts(where) {
		at, hasSub, err := p.levelOf(term, sc)
		if err != nil {
			return err
		}
		if hasSub || len(p.levels) == 0 {
			p.final = append(p.final, term)
			continue
		}
		p.place(term, at)
	}
	return nil
}

func (p *joinPlan) place(term sql.Expr, at int) {
	lv := p.levels[at]
	if lv.kind == sql.JoinLeft {
		lv.post = append(lv.post, term)
	} else {
		lv.pre = append(lv.pre, term)
	}
}

// planSeeks picks, for each base-table level, an equality term between one
// of its columns and an expression over earlier levels, to be answered by
// an index lookup instead of a scan.
func (p *joinPlan) planSeeks(sc *Scope) {
	for i, lv := range p.levels {
		if lv.src.table == "" {
			continue
		}
		for _, term := range lv.pre {
			b, ok := term.(*sql.BinaryExpr)
			if !ok || b.Op != sql.OpEq {
				continue
			}
			if col, ok := p.columnOf(b.Left, i, sc); ok && p.boundBefore(b.Right, i, sc) {
				lv.seekCol, lv.seekExpr = col, b.Right
				break
			}
			if col, ok := p.columnOf(b.Right, i, sc); ok && p.boundBefore(b.Left, i, sc) {
				lv.seekCol, lv.seekExpr = col, b.Left
				break
			}
		}
	}
}

// columnOf reports whether e is a plain reference to a column of level i,
// returning its position within that level's source.
func (p *joinPlan) columnOf(e sql.Expr, i int, sc *Scope) (int, bool) {
	ref, ok := e.(*sql.ColumnRef)
	if !ok {
		return 0, false
	}
	pos, err := sc.resolveLocal(ref)
	if err != nil || pos < 0 || p.sourceAt(pos) != i {
		return 0, false
	}
	return pos - p.levels[i].src.offset, true
}

// boundBefore reports whether e can be evaluated before level i is bound.
func (p *joinPlan) boundBefore(e sql.Expr, i int, sc *Scope) bool {
	ok := true
	sql.Walk(e, func(n sql.Expr) bool {
		switch r := n.(type) {
		case *sql.SubqueryExpr:
			ok = false
		case *sql.FunctionCall:
			if isAggregateCall(r) {
				ok = false
			}
		case *sql.ColumnRef:
			pos, err := sc.resolveLocal(r)
			if err != nil || (pos >= 0 && p.sourceAt(pos) >= i) {
				ok = false
			}
		}
		return ok
	})
	return ok
}

// runJoin calls emit for every combined row that survives the join and its
// filters. The row passed to emit is reused; emit must copy it to keep it.
func (x *execCtx) runJoin(p *joinPlan, sc *Scope, emit func(sql.Row) error) error {
	sc.row = make(sql.Row, p.width)
	return x.joinLevel(p, sc, 0, emit)
}

func (x *execCtx) joinLevel(p *joinPlan, sc *Scope, i int, emit func(sql.Row) error) error {
	if i == len(p.levels) {
		ok, err := x.allTrue(p.final, sc)
		if err != nil || !ok {
			return err
		}
		return emit(sc.row)
	}

	lv := p.levels[i]
	rows := lv.src.rows
	if lv.seekCol >= 0 {
		v, err := x.eval(lv.seekExpr, sc)
		if err != nil {
			return err
		}
		if rows, err = x.tx.SeekEqual(lv.src.table, lv.seekCol, v); err != nil {
			return err
		}
	}

	seg := sc.row[lv.src.offset : lv.src.offset+lv.src.width]
	matched := false
	for r := range rows {
		copy(seg, r)
		ok, err := x.allTrue(lv.pre, sc)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		matched = true
		if ok, err = x.allTrue(lv.post, sc); err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := x.joinLevel(p, sc, i+1, emit); err != nil {
			return err
		}
	}

	if lv.kind == sql.JoinLeft && !matched {
		clear(seg)
		ok, err := x.allTrue(lv.post, sc)
		if err != nil || !ok {
			return err
		}
		return x.joinLevel(p, sc, i+1, emit)
	}
	return nil
}
