package sql

import (
	"strconv"
	"strings"
)

// columnAffinity maps a declared type name to a storage class using the
// usual substring rules, so INT, BIGINT and "UNSIGNED BIG INT" are all
// integers and VARCHAR(10) is text. Columns with no declared type, BLOB, or
// NUMERIC-like names keep whatever value they are given (TypeNull).
func columnAffinity(typeName string) DataType {
	t := strings.ToUpper(typeName)
	switch {
	case strings.Contains(t, "INT"):
		return TypeInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"),
		strings.Contains(t, "TEXT"), strings.Contains(t, "STRING"):
		return TypeText
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"),
		strings.Contains(t, "DOUB"):
		return TypeReal
	case strings.Contains(t, "BOOL"):
		return TypeInteger
	default:
		return TypeNull
	}
}

// parseNumber parses an INT or FLOAT token's text into a Value, applying a
// leading minus sign when neg is set. Integers that overflow int64 become
// reals, except for the one value (-9223372036854775808) that only fits once
// negated.
func parseNumber(lit string, neg bool) (Value, error) {
	text := lit
	if neg {
		text = "-" + lit
	}
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return NewInteger(i), nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return NewReal(f), nil
		}
		return Value{}, &ParseError{Msg: "malformed number " + strconv.Quote(lit)}
	}
	return NewReal(f), nil
}
