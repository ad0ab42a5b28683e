package engine

import (
	"math"
	"strings"

	"memDB/internal/sql"
)

// accumulator folds the argument values of one aggregate call over a group.
type accumulator interface {
	add(v sql.Value) error
	result() sql.Value
}

func newAccumulator(c *sql.FunctionCall) (accumulator, error) {
	var acc accumulator
	switch c.Name {
	case "COUNT":
		if c.Star {
			return &countAcc{star: true}, nil
		}
		if len(c.Args) != 1 {
			return nil, arityError(c)
		}
		acc = &countAcc{}
	case "SUM":
		acc = &sumAcc{}
	case "TOTAL":
		acc = &sumAcc{total: true}
	case "AVG":
		acc = &avgAcc{}
	case "MIN":
		acc = &extremeAcc{sign: -1}
	case "MAX":
		acc = &extremeAcc{sign: 1}
	case "GROUP_CONCAT":
		if len(c.Args) < 1 || len(c.Args) > 2 {
			return nil, arityError(c)
		}
		acc = &concatAcc{sep: ","}
	default:
		return nil, sql.Errorf(sql.ErrUnknownFunction, "no such function: %s", c.Name)
	}
	if c.Star {
		return nil, arityError(c)
	}
	if c.Name != "GROUP_CONCAT" && len(c.Args) != 1 {
		return nil, arityError(c)
	}
	if c.Distinct {
		acc = &distinctAcc{inner: acc, seen: make(map[string]struct{})}
	}
	return acc, nil
}

func arityError(c *sql.FunctionCall) error {
	return sql.Errorf(sql.ErrUnknownFunction, "wrong number of arguments to function %s() (%d given)", c.Name, len(c.Args))
}

type countAcc struct {
	star bool
	n    int64
}

func (a *countAcc) add(v sql.Value) error {
	if a.star || !v.IsNull() {
		a.n++
	}
	return nil
}

func (a *countAcc) result() sql.Value { return sql.NewInteger(a.n) }

// sumAcc implements SUM (integer while every input is an integer, NULL for
// no input) and TOTAL (always real, 0.0 for no input).
type sumAcc struct {
	total  bool
	seen   bool
	isReal bool
	i      int64
	f      float64
}

func (a *sumAcc) add(v sql.Value) error {
	if v.IsNull() {
		return nil
	}
	a.seen = true
	n := sql.ToNumeric(v)
	if n.Type == sql.TypeInteger && !a.isReal {
		s := a.i + n.I64
		if (s > a.i) != (n.I64 > 0) {
			if !a.total {
				return sql.Errorf(sql.ErrTypeMismatch, "integer overflow")
			}
			a.isReal = true
			a.f = float64(a.i) + float64(n.I64)
			return nil
		}
		a.i = s
		return nil
	}
	if !a.isReal {
		a.isReal = true
		a.f = float64(a.i)
	}
	f, _ := sql.ToReal(n)
	a.f += f
	return nil
}

func (a *sumAcc) result() sql.Value {
	switch {
	case a.total && a.isReal:
		return sql.NewReal(a.f)
	case a.total:
		return sql.NewReal(float64(a.i))
	case !a.seen:
		return sql.Null
	case a.isReal:
		return sql.NewReal(a.f)
	default:
		return sql.NewInteger(a.i)
	}
}

type avgAcc struct {
	n   int64
	sum float64
}

func (a *avgAcc) add(v sql.Value) error {
	if v.IsNull() {
		return nil
	}
	f, _ := sql.ToReal(v)
	a.sum += f
	a.n++
	return nil
}

func (a *avgAcc) result() sql.Value {
	if a.n == 0 {
		return sql.Null
	}
	avg := a.sum / float64(a.n)
	if math.IsNaN(avg) {
		return sql.Null
	}
	return sql.NewReal(avg)
}

type extremeAcc struct {
	sign int
	best sql.Value
}

func (a *extremeAcc) add(v sql.Value) error {
	if v.IsNull() {
		return nil
	}
	if a.best.IsNull() || sql.CompareForSort(v, a.best)*a.sign > 0 {
		a.best = v
	}
	return nil
}

func (a *extremeAcc) result() sql.Value { return a.best }

type concatAcc struct {
	sep  string
	seen bool
	sb   strings.Builder
}

func (a *concatAcc) add(v sql.Value) error {
	if v.IsNull() {
		return nil
	}
	if a.seen {
		a.sb.WriteString(a.sep)
	}
	a.seen = true
	a.sb.WriteString(sql.ToText(v).S)
	return nil
}

func (a *concatAcc) result() sql.Value {
	if !a.seen {
		return sql.Null
	}
	return sql.NewText(a.sb.String())
}

// distinctAcc forwards each distinct non-NULL value once.
type distinctAcc struct {
	inner accumulator
	seen  map[string]struct{}
}

func (a *distinctAcc) add(v sql.Value) error {
	if v.IsNull() {
		return nil
	}
	k := string(sql.AppendKey(nil, v))
	if _, dup := a.seen[k]; dup {
		return nil
	}
	a.seen[k] = struct{}{}
	return a.inner.add(v)
}

func (a *distinctAcc) result() sql.Value { return a.inner.result() }

// aggSet is the list of aggregate calls a grouped select computes.
type aggSet struct {
	calls []*sql.FunctionCall
}

// collect registers every aggregate call in e, outside nested subqueries.
// Aggregates nested inside another aggregate's arguments are rejected.
func (s *aggSet) collect(e sql.Expr) error {
	var err error
	sql.Walk(e, func(n sql.Expr) bool {
		if err != nil {
			return false
		}
		c, ok := n.(*sql.FunctionCall)
		if !ok || !isAggregateCall(c) {
			return true
		}
		for _, a := range c.Args {
			if inner := findAggregate(a); inner != nil {
				err = sql.Errorf(sql.ErrAggregateMisuse, "misuse of aggregate function %s()", inner.Name)
				return false
			}
		}
		for _, known := range s.calls {
			if known == c {
				return false
			}
		}
		s.calls = append(s.calls, c)
		return false
	})
	return err
}

// findAggregate returns the first aggregate call in e outside subqueries.
func findAggregate(e sql.Expr) *sql.FunctionCall {
	var found *sql.FunctionCall
	sql.Walk(e, func(n sql.Expr) bool {
		if found != nil {
			return false
		}
		if c, ok := n.(*sql.FunctionCall); ok && isAggregateCall(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// noAggregates fails when e contains an aggregate call; clause names the
// place for the error message.
func noAggregates(e sql.Expr, clause string) error {
	if c := findAggregate(e); c != nil {
		return sql.Errorf(sql.ErrAggregateMisuse, "misuse of aggregate function %s() in %s", c.Name, clause)
	}
	return nil
}

// group is one GROUP BY bucket: the first row that fell into it and the
// running state of every aggregate.
type group struct {
	key  sql.Row
	row  sql.Row
	accs []accumulator
}

func (s *aggSet) newGroup(key, row sql.Row) (*group, error) {
	g := &group{key: key, row: row, accs: make([]accumulator, len(s.calls))}
	for i, c := range s.calls {
		acc, err := newAccumulator(c)
		if err != nil {
			return nil, err
		}
		g.accs[i] = acc
	}
	return g, nil
}

// add feeds the row bound in sc to every aggregate of g.
func (s *aggSet) add(x *execCtx, g *group, sc *Scope) error {
	for i, c := range s.calls {
		if c.Star {
			if err := g.accs[i].add(sql.Null); err != nil {
				return err
			}
			continue
		}
		v, err := x.eval(c.Args[0], sc)
		if err != nil {
			return err
		}
		acc := g.accs[i]
		if d, ok := acc.(*distinctAcc); ok {
			acc = d.inner
		}
		if ca, ok := acc.(*concatAcc); ok && len(c.Args) == 2 && !ca.seen {
			sep, err := x.eval(c.Args[1], sc)
			if err != nil {
				return err
			}
			ca.sep = sql.ToText(sep).S
		}
		if err := g.accs[i].add(v); err != nil {
			return err
		}
	}
	return nil
}

func (s *aggSet) results(g *group) map[*sql.FunctionCall]sql.Value {
	out := make(map[*sql.FunctionCall]sql.Value, len(s.calls))
	for i, c := range s.calls {
		out[c] = g.accs[i].result()
	}
	return out
}
