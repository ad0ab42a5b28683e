package protocol

import (
	"strconv"
	"strings"

	"memDB/internal/sql"
)

// Formatter renders values for the text protocol.
type Formatter struct {
	NullText  string
	EmptyText string
	// RealPrecision is the number of digits after the decimal point.
	// A negative precision keeps the shortest round-trip form.
	RealPrecision int
}

// DefaultFormatter renders the way SQLLogicTest expects: NULL as "NULL",
// the empty string as "(empty)", reals with three decimals.
func DefaultFormatter() Formatter {
	return Formatter{NullText: "NULL", EmptyText: "(empty)", RealPrecision: 3}
}

// Value renders a single value.
func (f Formatter) Value(v sql.Value) string {
	switch v.Type {
	case sql.TypeInteger:
		return strconv.FormatInt(v.I64, 10)
	case sql.TypeReal:
		if f.RealPrecision < 0 {
			return sql.FormatReal(v.F64)
		}
		return strconv.FormatFloat(v.F64, 'f', f.RealPrecision, 64)
	case sql.TypeText:
		if v.S == "" {
			return f.EmptyText
		}
		return v.S
	default:
		return f.NullText
	}
}

// Values renders every value of row.
func (f Formatter) Values(row sql.Row) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = f.Value(v)
	}
	return out
}

// Row renders a row as one tab-separated line, without the newline.
func (f Formatter) Row(row sql.Row) string {
	return strings.Join(f.Values(row), "\t")
}
