package engine

import (
	"math"
	"strings"
	"unicode/utf8"

	"memDB/internal/sql"
)

// scalarFunc is a built-in function of a fixed arity range. maxArgs < 0
// means variadic.
type scalarFunc struct {
	minArgs, maxArgs int
	fn               func(args []sql.Value) (sql.Value, error)
}

var scalarFuncs map[string]scalarFunc

func init() {
	scalarFuncs = map[string]scalarFunc{
		"ABS":       {1, 1, fnAbs},
		"COALESCE":  {2, -1, fnCoalesce},
		"IFNULL":    {2, 2, fnCoalesce},
		"NULLIF":    {2, 2, fnNullIf},
		"LENGTH":    {1, 1, fnLength},
		"UPPER":     {1, 1, textFunc(upperASCII)},
		"LOWER":     {1, 1, textFunc(lowerASCII)},
		"SUBSTR":    {2, 3, fnSubstr},
		"SUBSTRING": {2, 3, fnSubstr},
		"TRIM":      {1, 2, trimFunc(strings.Trim)},
		"LTRIM":     {1, 2, trimFunc(strings.TrimLeft)},
		"RTRIM":     {1, 2, trimFunc(strings.TrimRight)},
		"REPLACE":   {3, 3, fnReplace},
		"ROUND":     {1, 2, fnRound},
		"TYPEOF":    {1, 1, fnTypeof},
		"INSTR":     {2, 2, fnInstr},
		"MIN":       {2, -1, extremum(-1)},
		"MAX":       {2, -1, extremum(1)},
		"IIF":       {3, 3, fnIif},
	}
}

func lookupFunction(c *sql.FunctionCall) (scalarFunc, error) {
	f, ok := scalarFuncs[c.Name]
	if !ok {
		return scalarFunc{}, sql.Errorf(sql.ErrUnknownFunction, "no such function: %s", c.Name)
	}
	n := len(c.Args)
	if c.Star || c.Distinct || n < f.minArgs || (f.maxArgs >= 0 && n > f.maxArgs) {
		return scalarFunc{}, sql.Errorf(sql.ErrUnknownFunction, "wrong number of arguments to function %s() (%d given)", c.Name, n)
	}
	return f, nil
}

func fnAbs(args []sql.Value) (sql.Value, error) {
	v := sql.ToNumeric(args[0])
	switch v.Type {
	case sql.TypeInteger:
		if v.I64 == math.MinInt64 {
			return sql.Null, sql.Errorf(sql.ErrTypeMismatch, "integer overflow")
		}
		if v.I64 < 0 {
			return sql.NewInteger(-v.I64), nil
		}
		return v, nil
	case sql.TypeReal:
		return sql.NewReal(math.Abs(v.F64)), nil
	}
	return sql.Null, nil
}

func fnCoalesce(args []sql.Value) (sql.Value, error) {
	for _, a := range args {
		if !a.IsNull() {
			return a, nil
		}
	}
	return sql.Null, nil
}

func fnNullIf(args []sql.Value) (sql.Value, error) {
	if c, ok := sql.Compare(args[0], args[1]); ok && c == 0 {
		return sql.Null, nil
	}
	return args[0], nil
}

func fnIif(args []sql.Value) (sql.Value, error) {
	if args[0].Truth() == sql.True {
		return args[1], nil
	}
	return args[2], nil
}

func fnLength(args []sql.Value) (sql.Value, error) {
	if args[0].IsNull() {
		return sql.Null, nil
	}
	return sql.NewInteger(int64(utf8.RuneCountInString(sql.ToText(args[0]).S))), nil
}

func textFunc(f func(string) string) func([]sql.Value) (sql.Value, error) {
	return func(args []sql.Value) (sql.Value, error) {
		if args[0].IsNull() {
			return sql.Null, nil
		}
		return sql.NewText(f(sql.ToText(args[0]).S)), nil
	}
}

func trimFunc(f func(string, string) string) func([]sql.Value) (sql.Value, error) {
	return func(args []sql.Value) (sql.Value, error) {
		cutset := " "
		if len(args) == 2 {
			if args[1].IsNull() {
				return sql.Null, nil
			}
			cutset = sql.ToText(args[1]).S
		}
		if args[0].IsNull() {
			return sql.Null, nil
		}
		return sql.NewText(f(sql.ToText(args[0]).S, cutset)), nil
	}
}

// fnSubstr follows SQLite's substr: 1-based positions, a negative start
// counts from the end, and a negative length takes characters before start.
func fnSubstr(args []sql.Value) (sql.Value, error) {
	for _, a := range args {
		if a.IsNull() {
			return sql.Null, nil
		}
	}
	s := []rune(sql.ToText(args[0]).S)
	n := int64(len(s))
	p1, _ := sql.ToInteger(args[1])
	p2 := n
	negLen := false
	if len(args) == 3 {
		p2, _ = sql.ToInteger(args[2])
		if p2 < 0 {
			negLen = true
			p2 = -p2
		}
	}

	switch {
	case p1 < 0:
		p1 += n
		if p1 < 0 {
			p2 += p1
			if p2 < 0 {
				p2 = 0
			}
			p1 = 0
		}
	case p1 > 0:
		p1--
	case p2 > 0:
		p2--
	}
	if negLen {
		p1 -= p2
		if p1 < 0 {
			p2 += p1
			p1 = 0
		}
	}
	if p1 > n {
		p1 = n
	}
	if p1+p2 > n {
		p2 = n - p1
	}
	if p2 < 0 {
		p2 = 0
	}
	return sql.NewText(string(s[p1 : p1+p2])), nil
}

func fnReplace(args []sql.Value) (sql.Value, error) {
	for _, a := range args {
		if a.IsNull() {
			return sql.Null, nil
		}
	}
	s := sql.ToText(args[0]).S
	from := sql.ToText(args[1]).S
	if from == "" {
		return sql.NewText(s), nil
	}
	return sql.NewText(strings.ReplaceAll(s, from, sql.ToText(args[2]).S)), nil
}

// fnRound rounds half away from zero and always returns a real.
func fnRound(args []sql.Value) (sql.Value, error) {
	digits := int64(0)
	if len(args) == 2 {
		if args[1].IsNull() {
			return sql.Null, nil
		}
		digits, _ = sql.ToInteger(args[1])
		if digits < 0 {
			digits = 0
		}
	}
	f, ok := sql.ToReal(args[0])
	if !ok {
		return sql.Null, nil
	}
	if digits > 15 {
		return sql.NewReal(f), nil
	}
	p := math.Pow(10, float64(digits))
	r := math.Round(f*p) / p
	if math.IsInf(r, 0) || math.IsNaN(r) {
		r = f
	}
	return sql.NewReal(r), nil
}

func fnTypeof(args []sql.Value) (sql.Value, error) {
	return sql.NewText(strings.ToLower(args[0].Type.String())), nil
}

func fnInstr(args []sql.Value) (sql.Value, error) {
	if args[0].IsNull() || args[1].IsNull() {
		return sql.Null, nil
	}
	hay, needle := sql.ToText(args[0]).S, sql.ToText(args[1]).S
	i := strings.Index(hay, needle)
	if i < 0 {
		return sql.NewInteger(0), nil
	}
	return sql.NewInteger(int64(utf8.RuneCountInString(hay[:i]) + 1)), nil
}

// extremum builds the multi-argument MIN (sign -1) and MAX (sign 1). Any
// NULL argument makes the result NULL.
func extremum(sign int) func([]sql.Value) (sql.Value, error) {
	return func(args []sql.Value) (sql.Value, error) {
		best := args[0]
		for _, a := range args {
			if a.IsNull() {
				return sql.Null, nil
			}
			if sql.CompareForSort(a, best)*sign > 0 {
				best = a
			}
		}
		return best, nil
	}
}
