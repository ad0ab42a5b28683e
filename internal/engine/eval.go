package engine

import (
	"math"
	"strings"
	"unicode/utf8"

	"memDB/internal/sql"
	"memDB/internal/storage"
)

// execCtx carries the state of one statement's execution: its storage
// transaction and the results of uncorrelated subqueries already run.
type execCtx struct {
	eng  *DBEngine
	tx   storage.Tx
	memo map[*sql.SelectStmt]*subqueryResult
}

func (e *DBEngine) newExecCtx(tx storage.Tx) *execCtx {
	return &execCtx{eng: e, tx: tx, memo: make(map[*sql.SelectStmt]*subqueryResult)}
}

// eval computes the value of e for the row bound in s.
func (x *execCtx) eval(e sql.Expr, s *Scope) (sql.Value, error) {
	switch n := e.(type) {
	case *sql.Literal:
		return n.Value, nil
	case *sql.ColumnRef:
		return s.column(n)
	case *sql.BinaryExpr:
		return x.evalBinary(n, s)
	case *sql.UnaryExpr:
		return x.evalUnary(n, s)
	case *sql.FunctionCall:
		return x.evalCall(n, s)
	case *sql.SubqueryExpr:
		return x.evalSubquery(n, s)
	case *sql.CaseExpr:
		return x.evalCase(n, s)
	case *sql.IsNullExpr:
		v, err := x.eval(n.Expr, s)
		if err != nil {
			return sql.Null, err
		}
		return sql.NewBool(v.IsNull() != n.Not), nil
	case *sql.InListExpr:
		return x.evalInList(n, s)
	case *sql.BetweenExpr:
		return x.evalBetween(n, s)
	case *sql.LikeExpr:
		return x.evalLike(n, s)
	case *sql.CastExpr:
		v, err := x.eval(n.Expr, s)
		if err != nil {
			return sql.Null, err
		}
		return castValue(v, n.Type), nil
	default:
		return sql.Null, sql.Errorf(sql.ErrInternal, "unsupported expression %T", e)
	}
}

// truth evaluates a predicate.
func (x *execCtx) truth(e sql.Expr, s *Scope) (sql.Truth, error) {
	v, err := x.eval(e, s)
	if err != nil {
		return sql.Unknown, err
	}
	return v.Truth(), nil
}

// allTrue reports whether every predicate in conds is TRUE for s.
func (x *execCtx) allTrue(conds []sql.Expr, s *Scope) (bool, error) {
	for _, c := range conds {
		t, err := x.truth(c, s)
		if err != nil || t != sql.True {
			return false, err
		}
	}
	return true, nil
}

func (x *execCtx) evalBinary(n *sql.BinaryExpr, s *Scope) (sql.Value, error) {
	switch n.Op {
	case sql.OpAnd, sql.OpOr:
		return x.evalLogic(n, s)
	}

	l, err := x.eval(n.Left, s)
	if err != nil {
		return sql.Null, err
	}
	r, err := x.eval(n.Right, s)
	if err != nil {
		return sql.Null, err
	}

	switch n.Op {
	case sql.OpIs, sql.OpIsNot:
		same := l.IsNull() && r.IsNull()
		if !l.IsNull() && !r.IsNull() {
			c, _ := sql.Compare(l, r)
			same = c == 0
		}
		return sql.NewBool(same == (n.Op == sql.OpIs)), nil
	case sql.OpEq, sql.OpNe, sql.OpLt, sql.OpLe, sql.OpGt, sql.OpGe:
		return compareOp(n.Op, l, r), nil
	case sql.OpConcat:
		if l.IsNull() || r.IsNull() {
			return sql.Null, nil
		}
		return sql.NewText(sql.ToText(l).S + sql.ToText(r).S), nil
	default:
		return x.arith(n.Op, l, r)
	}
}

func compareOp(op sql.BinaryOp, l, r sql.Value) sql.Value {
	c, ok := sql.Compare(l, r)
	if !ok {
		return sql.Null
	}
	var b bool
	switch op {
	case sql.OpEq:
		b = c == 0
	case sql.OpNe:
		b = c != 0
	case sql.OpLt:
		b = c < 0
	case sql.OpLe:
		b = c <= 0
	case sql.OpGt:
		b = c > 0
	default:
		b = c >= 0
	}
	return sql.NewBool(b)
}

// evalLogic applies AND/OR under three-valued logic, skipping the right
// operand when the left one already decides the result.
func (x *execCtx) evalLogic(n *sql.BinaryExpr, s *Scope) (sql.Value, error) {
	l, err := x.truth(n.Left, s)
	if err != nil {
		return sql.Null, err
	}
	if n.Op == sql.OpAnd && l == sql.False {
		return sql.NewBool(false), nil
	}
	if n.Op == sql.OpOr && l == sql.True {
		return sql.NewBool(true), nil
	}
	r, err := x.truth(n.Right, s)
	if err != nil {
		return sql.Null, err
	}
	if n.Op == sql.OpAnd {
		switch {
		case r == sql.False:
			return sql.NewBool(false), nil
		case l == sql.True && r == sql.True:
			return sql.NewBool(true), nil
		}
		return sql.Null, nil
	}
	switch {
	case r == sql.True:
		return sql.NewBool(true), nil
	case l == sql.False && r == sql.False:
		return sql.NewBool(false), nil
	}
	return sql.Null, nil
}

// arith applies + - * / % after numeric conversion of both operands.
func (x *execCtx) arith(op sql.BinaryOp, l, r sql.Value) (sql.Value, error) {
	if l.IsNull() || r.IsNull() {
		return sql.Null, nil
	}
	a, b := sql.ToNumeric(l), sql.ToNumeric(r)

	if op == sql.OpMod {
		ia, _ := sql.ToInteger(a)
		ib, _ := sql.ToInteger(b)
		if ib == 0 {
			return x.divisionByZero()
		}
		var m int64
		if ib != -1 {
			m = ia % ib
		}
		if a.Type == sql.TypeReal || b.Type == sql.TypeReal {
			return sql.NewReal(float64(m)), nil
		}
		return sql.NewInteger(m), nil
	}

	if a.Type == sql.TypeInteger && b.Type == sql.TypeInteger {
		if v, ok := intArith(op, a.I64, b.I64); ok {
			return v, nil
		}
		if op == sql.OpDiv && b.I64 == 0 {
			return x.divisionByZero()
		}
		// Overflow falls through to floating point.
	}

	fa, _ := sql.ToReal(a)
	fb, _ := sql.ToReal(b)
	var f float64
	switch op {
	case sql.OpAdd:
		f = fa + fb
	case sql.OpSub:
		f = fa - fb
	case sql.OpMul:
		f = fa * fb
	default:
		if fb == 0 {
			return x.divisionByZero()
		}
		f = fa / fb
	}
	if math.IsNaN(f) {
		return sql.Null, nil
	}
	return sql.NewReal(f), nil
}

// intArith computes op on two integers. ok is false on overflow and on
// division by zero.
func intArith(op sql.BinaryOp, a, b int64) (sql.Value, bool) {
	switch op {
	case sql.OpAdd:
		c := a + b
		if (c > a) != (b > 0) {
			return sql.Null, false
		}
		return sql.NewInteger(c), true
	case sql.OpSub:
		c := a - b
		if (c < a) != (b > 0) {
			return sql.Null, false
		}
		return sql.NewInteger(c), true
	case sql.OpMul:
		if a == 0 || b == 0 {
			return sql.NewInteger(0), true
		}
		c := a * b
		if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return sql.Null, false
		}
		return sql.NewInteger(c), true
	default:
		if b == 0 || (a == math.MinInt64 && b == -1) {
			return sql.Null, false
		}
		return sql.NewInteger(a / b), true
	}
}

func (x *execCtx) divisionByZero() (sql.Value, error) {
	if x.eng.opts.divisionByZeroNull {
		return sql.Null, nil
	}
	return sql.Null, sql.Errorf(sql.ErrDivisionByZero, "division by zero")
}

func (x *execCtx) evalUnary(n *sql.UnaryExpr, s *Scope) (sql.Value, error) {
	v, err := x.eval(n.Expr, s)
	if err != nil {
		return sql.Null, err
	}
	switch n.Op {
	case sql.OpNot:
		switch v.Truth() {
		case sql.True:
			return sql.NewBool(false), nil
		case sql.False:
			return sql.NewBool(true), nil
		default:
			return sql.Null, nil
		}
	case sql.OpNeg:
		num := sql.ToNumeric(v)
		switch num.Type {
		case sql.TypeInteger:
			if num.I64 == math.MinInt64 {
				return sql.NewReal(-float64(num.I64)), nil
			}
			return sql.NewInteger(-num.I64), nil
		case sql.TypeReal:
			return sql.NewReal(-num.F64), nil
		}
		return sql.Null, nil
	default:
		return v, nil
	}
}

func (x *execCtx) evalCase(n *sql.CaseExpr, s *Scope) (sql.Value, error) {
	var operand sql.Value
	if n.Operand != nil {
		v, err := x.eval(n.Operand, s)
		if err != nil {
			return sql.Null, err
		}
		operand = v
	}
	for _, w := range n.Whens {
		var hit bool
		if n.Operand != nil {
			v, err := x.eval(w.Cond, s)
			if err != nil {
				return sql.Null, err
			}
			c, ok := sql.Compare(operand, v)
			hit = ok && c == 0
		} else {
			t, err := x.truth(w.Cond, s)
			if err != nil {
				return sql.Null, err
			}
			hit = t == sql.True
		}
		if hit {
			return x.eval(w.Result, s)
		}
	}
	if n.Else != nil {
		return x.eval(n.Else, s)
	}
	return sql.Null, nil
}

// evalInList implements "x IN (a, b, ...)": TRUE on a match, otherwise
// UNKNOWN if x or any candidate is NULL, otherwise FALSE.
func (x *execCtx) evalInList(n *sql.InListExpr, s *Scope) (sql.Value, error) {
	if len(n.List) == 0 {
		return sql.NewBool(n.Not), nil
	}
	v, err := x.eval(n.Expr, s)
	if err != nil {
		return sql.Null, err
	}
	if v.IsNull() {
		return sql.Null, nil
	}
	sawNull := false
	for _, item := range n.List {
		c, err := x.eval(item, s)
		if err != nil {
			return sql.Null, err
		}
		if c.IsNull() {
			sawNull = true
			continue
		}
		if cmp, _ := sql.Compare(v, c); cmp == 0 {
			return sql.NewBool(!n.Not), nil
		}
	}
	if sawNull {
		return sql.Null, nil
	}
	return sql.NewBool(n.Not), nil
}

func (x *execCtx) evalBetween(n *sql.BetweenExpr, s *Scope) (sql.Value, error) {
	v, err := x.eval(n.Expr, s)
	if err != nil {
		return sql.Null, err
	}
	lo, err := x.eval(n.Low, s)
	if err != nil {
		return sql.Null, err
	}
	hi, err := x.eval(n.High, s)
	if err != nil {
		return sql.Null, err
	}
	ge := compareOp(sql.OpGe, v, lo).Truth()
	le := compareOp(sql.OpLe, v, hi).Truth()
	var t sql.Truth
	switch {
	case ge == sql.False || le == sql.False:
		t = sql.False
	case ge == sql.True && le == sql.True:
		t = sql.True
	default:
		t = sql.Unknown
	}
	if n.Not {
		switch t {
		case sql.True:
			t = sql.False
		case sql.False:
			t = sql.True
		}
	}
	return sql.TruthValue(t), nil
}

func (x *execCtx) evalLike(n *sql.LikeExpr, s *Scope) (sql.Value, error) {
	v, err := x.eval(n.Expr, s)
	if err != nil {
		return sql.Null, err
	}
	p, err := x.eval(n.Pattern, s)
	if err != nil {
		return sql.Null, err
	}
	esc := rune(-1)
	if n.Escape != nil {
		ev, err := x.eval(n.Escape, s)
		if err != nil {
			return sql.Null, err
		}
		if ev.IsNull() {
			return sql.Null, nil
		}
		text := sql.ToText(ev).S
		if utf8.RuneCountInString(text) != 1 {
			return sql.Null, sql.Errorf(sql.ErrTypeMismatch, "ESCAPE expression must be a single character")
		}
		esc, _ = utf8.DecodeRuneInString(text)
	}
	if v.IsNull() || p.IsNull() {
		return sql.Null, nil
	}
	m := likeMatch([]rune(sql.ToText(p).S), []rune(sql.ToText(v).S), esc)
	return sql.NewBool(m != n.Not), nil
}

// likeMatch matches s against a LIKE pattern: % is any run of characters,
// _ is one character, ASCII letters match case-insensitively.
func likeMatch(pat, s []rune, esc rune) bool {
	px, sx := 0, 0
	// Backtrack point for the most recent %.
	starP, starS := -1, 0
	for sx < len(s) {
		if px < len(pat) {
			c := pat[px]
			switch {
			case c == esc && px+1 < len(pat):
				if foldASCII(pat[px+1]) == foldASCII(s[sx]) {
					px += 2
					sx++
					continue
				}
			case c == '%':
				starP, starS = px, sx
				px++
				continue
			case c == '_':
				px++
				sx++
				continue
			case foldASCII(c) == foldASCII(s[sx]):
				px++
				sx++
				continue
			}
		}
		if starP < 0 {
			return false
		}
		px = starP + 1
		starS++
		sx = starS
	}
	for px < len(pat) && pat[px] == '%' {
		px++
	}
	return px == len(pat)
}

func foldASCII(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// castValue converts v the way CAST(v AS t) does. TypeNull stands for
// NUMERIC (and untyped) targets.
func castValue(v sql.Value, t sql.DataType) sql.Value {
	if v.IsNull() {
		return v
	}
	switch t {
	case sql.TypeInteger:
		i, _ := sql.ToInteger(v)
		return sql.NewInteger(i)
	case sql.TypeReal:
		f, _ := sql.ToReal(v)
		return sql.NewReal(f)
	case sql.TypeText:
		return sql.ToText(v)
	default:
		n := sql.ToNumeric(v)
		if n.Type == sql.TypeReal && n.F64 == math.Trunc(n.F64) && math.Abs(n.F64) < 1<<53 {
			return sql.NewInteger(int64(n.F64))
		}
		return n
	}
}

// isAggregateCall reports whether a call names an aggregate function.
// MIN and MAX are aggregates only with a single argument.
func isAggregateCall(c *sql.FunctionCall) bool {
	switch c.Name {
	case "COUNT", "SUM", "AVG", "TOTAL", "GROUP_CONCAT":
		return true
	case "MIN", "MAX":
		return len(c.Args) == 1
	}
	return false
}

func (x *execCtx) evalCall(n *sql.FunctionCall, s *Scope) (sql.Value, error) {
	if isAggregateCall(n) {
		for cur := s; cur != nil; cur = cur.parent {
			if v, ok := cur.aggs[n]; ok {
				return v, nil
			}
		}
		return sql.Null, sql.Errorf(sql.ErrAggregateMisuse, "misuse of aggregate function %s()", n.Name)
	}
	f, err := lookupFunction(n)
	if err != nil {
		return sql.Null, err
	}
	args := make([]sql.Value, len(n.Args))
	for i, a := range n.Args {
		if args[i], err = x.eval(a, s); err != nil {
			return sql.Null, err
		}
	}
	return f.fn(args)
}

// upperASCII and lowerASCII change only ASCII letters.
func upperASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r - ('a' - 'A')
		}
		return r
	}, s)
}

func lowerASCII(s string) string {
	return strings.Map(foldASCII, s)
}
