package engine

import (
	"memDB/internal/sql"
)

// subqueryResult is the outcome of one run of a nested select. Results of
// uncorrelated subqueries are kept for the rest of the statement.
type subqueryResult struct {
	res *Result

	// set and hasNull index a one-column result for IN probes.
	set     map[string]struct{}
	hasNull bool
}

// subquery runs sel with s as its enclosing scope. A run that never read
// an outer column is remembered and reused; hint bounds how many rows the
// caller needs.
func (x *execCtx) subquery(sel *sql.SelectStmt, s *Scope, hint int) (*subqueryResult, error) {
	if m, ok := x.memo[sel]; ok {
		return m, nil
	}
	fr := &frame{}
	res, err := x.runSelect(sel, s, fr, hint)
	if err != nil {
		return nil, err
	}
	m := &subqueryResult{res: res}
	if !fr.correlated {
		x.memo[sel] = m
	}
	return m, nil
}

// contains reports whether v equals some value of a one-column result;
// ok is false when the answer is UNKNOWN because the result holds a NULL.
func (m *subqueryResult) contains(v sql.Value) (found, ok bool) {
	if m.set == nil {
		m.set = make(map[string]struct{}, len(m.res.Rows))
		for _, r := range m.res.Rows {
			if r[0].IsNull() {
				m.hasNull = true
				continue
			}
			m.set[string(sql.AppendKey(nil, r[0]))] = struct{}{}
		}
	}
	if _, hit := m.set[string(sql.AppendKey(nil, v))]; hit {
		return true, true
	}
	return false, !m.hasNull
}

func (x *execCtx) evalSubquery(n *sql.SubqueryExpr, s *Scope) (sql.Value, error) {
	switch n.Kind {
	case sql.SubqueryExists:
		m, err := x.subquery(n.Select, s, 1)
		if err != nil {
			return sql.Null, err
		}
		return sql.NewBool((len(m.res.Rows) > 0) != n.Not), nil

	case sql.SubqueryIn:
		v, err := x.eval(n.Left, s)
		if err != nil {
			return sql.Null, err
		}
		m, err := x.subquery(n.Select, s, 0)
		if err != nil {
			return sql.Null, err
		}
		if err := oneColumn(m.res); err != nil {
			return sql.Null, err
		}
		if len(m.res.Rows) == 0 {
			return sql.NewBool(n.Not), nil
		}
		if v.IsNull() {
			return sql.Null, nil
		}
		found, ok := m.contains(v)
		switch {
		case found:
			return sql.NewBool(!n.Not), nil
		case !ok:
			return sql.Null, nil
		default:
			return sql.NewBool(n.Not), nil
		}

	default:
		m, err := x.subquery(n.Select, s, 2)
		if err != nil {
			return sql.Null, err
		}
		if err := oneColumn(m.res); err != nil {
			return sql.Null, err
		}
		switch len(m.res.Rows) {
		case 0:
			return sql.Null, nil
		case 1:
			return m.res.Rows[0][0], nil
		default:
			return sql.Null, sql.Errorf(sql.ErrSubqueryCardinality, "scalar subquery returned more than one row")
		}
	}
}

func oneColumn(res *Result) error {
	if len(res.Columns) != 1 {
		return sql.Errorf(sql.ErrSubqueryCardinality, "sub-select returns %d columns - expected 1", len(res.Columns))
	}
	return nil
}
