package sql

import (
	"fmt"
	"strings"
)

// DataType represents the storage class of a value, and the declared type of
// a column.
type DataType int

const (
	TypeNull DataType = iota
	TypeInteger
	TypeReal
	TypeText
)

func (t DataType) String() string {
	switch t {
	case TypeNull:
		return "NULL"
	case TypeInteger:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	case TypeText:
		return "TEXT"
	default:
		return fmt.Sprintf("DataType(%d)", int(t))
	}
}

// Value represents a single cell in a table (one column in one row), or the
// result of evaluating an expression.
// Only the field matching Type should be read; other fields remain at their
// zero values. The zero Value is NULL.
type Value struct {
	Type DataType

	I64 int64   // for TypeInteger
	F64 float64 // for TypeReal
	S   string  // for TypeText
}

// Null is the SQL NULL value.
var Null = Value{}

func NewInteger(i int64) Value { return Value{Type: TypeInteger, I64: i} }
func NewReal(f float64) Value   { return Value{Type: TypeReal, F64: f} }
func NewText(s string) Value    { return Value{Type: TypeText, S: s} }
func NewBool(b bool) Value {
	if b {
		return NewInteger(1)
	}
	return NewInteger(0)
}

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return v.Type == TypeNull }

// IsNumeric reports whether v is an Integer or a Real.
func (v Value) IsNumeric() bool { return v.Type == TypeInteger || v.Type == TypeReal }

// String renders v for debugging and error messages. Output rendering for the
// wire protocol lives in the protocol package.
func (v Value) String() string {
	switch v.Type {
	case TypeInteger:
		return fmt.Sprintf("%d", v.I64)
	case TypeReal:
		return fmt.Sprintf("%g", v.F64)
	case TypeText:
		return v.S
	default:
		return "NULL"
	}
}

// Row represents one record in a table: a slice of Values, one per column.
type Row []Value

// Clone returns a copy of r that shares no backing array with it.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Column describes metadata for a single column in a table.
type Column struct {
	Name       string
	Type       DataType
	NotNull    bool
	PrimaryKey bool
	Unique     bool
	Default    *Value // nil when the column has no DEFAULT clause
}

// Schema is the ordered column list of a table.
type Schema struct {
	Table   string
	Columns []Column
	// Keys lists column-position sets that must be unique (PRIMARY KEY and
	// UNIQUE constraints, column- or table-level).
	Keys [][]int
}

// Names returns the column names in declaration order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// ColumnIndex returns the position of the named column (case-insensitive)
// or -1.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// RowIDColumn returns the position of a single-column INTEGER PRIMARY KEY,
// or -1. Such a column is filled in automatically when inserted as NULL.
func (s *Schema) RowIDColumn() int {
	pos := -1
	for i, c := range s.Columns {
		if c.PrimaryKey {
			if pos >= 0 || c.Type != TypeInteger {
				return -1
			}
			pos = i
		}
	}
	return pos
}

// CoerceRow validates a full-width row against the schema and converts each
// value to the column's storage class. It never modifies row.
func (s *Schema) CoerceRow(row Row) (Row, error) {
	if len(row) != len(s.Columns) {
		return nil, Errorf(ErrColumnCountMismatch, "table %s has %d columns but %d values were supplied",
			s.Table, len(s.Columns), len(row))
	}
	out := make(Row, len(row))
	for i, col := range s.Columns {
		v, err := CoerceToColumn(row[i], col.Type)
		if err != nil {
			return nil, Errorf(ErrTypeMismatch, "datatype mismatch for column %s.%s: cannot store %s value %q as %s",
				s.Table, col.Name, row[i].Type, row[i].String(), col.Type)
		}
		if v.IsNull() && col.NotNull {
			return nil, Errorf(ErrConstraintViolation, "NOT NULL constraint failed: %s.%s", s.Table, col.Name)
		}
		out[i] = v
	}
	return out, nil
}
