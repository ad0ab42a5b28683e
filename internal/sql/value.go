package sql

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
)

// Truth is the result of evaluating a predicate under SQL three-valued logic.
type Truth int8

const (
	False Truth = iota
	True
	Unknown
)

// Truth interprets v as a predicate result. NULL is UNKNOWN, numbers are
// TRUE when non-zero, and text is converted to a number first.
func (v Value) Truth() Truth {
	switch v.Type {
	case TypeNull:
		return Unknown
	case TypeInteger:
		if v.I64 != 0 {
			return True
		}
		return False
	case TypeReal:
		if v.F64 != 0 {
			return True
		}
		return False
	default:
		return ToNumeric(v).Truth()
	}
}

// TruthValue converts a Truth back into a Value (1, 0 or NULL).
func TruthValue(t Truth) Value {
	switch t {
	case True:
		return NewInteger(1)
	case False:
		return NewInteger(0)
	default:
		return Null
	}
}

// Compare orders two non-NULL values. ok is false when either side is NULL,
// which callers must treat as UNKNOWN. Integer and Real compare numerically,
// Text compares bytewise, and any number sorts before any text.
func Compare(a, b Value) (cmp int, ok bool) {
	if a.IsNull() || b.IsNull() {
		return 0, false
	}
	return compareNonNull(a, b), true
}

// CompareForSort is a total order over values: NULL sorts first, then
// numbers, then text.
func CompareForSort(a, b Value) int {
	switch {
	case a.IsNull() && b.IsNull():
		return 0
	case a.IsNull():
		return -1
	case b.IsNull():
		return 1
	}
	return compareNonNull(a, b)
}

func compareNonNull(a, b Value) int {
	an, bn := a.IsNumeric(), b.IsNumeric()
	switch {
	case an && bn:
		if a.Type == TypeInteger && b.Type == TypeInteger {
			return cmpOrdered(a.I64, b.I64)
		}
		return cmpOrdered(a.asFloat(), b.asFloat())
	case an:
		return -1
	case bn:
		return 1
	default:
		return strings.Compare(a.S, b.S)
	}
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (v Value) asFloat() float64 {
	if v.Type == TypeInteger {
		return float64(v.I64)
	}
	return v.F64
}

// ToNumeric converts v to an Integer or Real. Text is parsed using its
// longest numeric prefix (an empty prefix is 0); NULL stays NULL.
func ToNumeric(v Value) Value {
	if v.Type != TypeText {
		return v
	}
	prefix, isInt := numericPrefix(v.S)
	if prefix == "" {
		return NewInteger(0)
	}
	if isInt {
		if i, err := strconv.ParseInt(prefix, 10, 64); err == nil {
			return NewInteger(i)
		}
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return NewInteger(0)
	}
	return NewReal(f)
}

// ToReal converts v to a float64. ok is false for NULL.
func ToReal(v Value) (float64, bool) {
	n := ToNumeric(v)
	switch n.Type {
	case TypeInteger:
		return float64(n.I64), true
	case TypeReal:
		return n.F64, true
	default:
		return 0, false
	}
}

// ToInteger converts v to an int64, truncating reals. ok is false for NULL.
func ToInteger(v Value) (int64, bool) {
	n := ToNumeric(v)
	switch n.Type {
	case TypeInteger:
		return n.I64, true
	case TypeReal:
		return realToInt(n.F64), true
	default:
		return 0, false
	}
}

func realToInt(f float64) int64 {
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}

// ToText renders v as text the way CAST(v AS TEXT) does.
func ToText(v Value) Value {
	switch v.Type {
	case TypeInteger:
		return NewText(strconv.FormatInt(v.I64, 10))
	case TypeReal:
		return NewText(FormatReal(v.F64))
	default:
		return v
	}
}

// FormatReal renders a float with up to 15 significant digits, always
// keeping a decimal point so the text still reads as a real.
func FormatReal(f float64) string {
	s := strconv.FormatFloat(f, 'g', 15, 64)
	if strings.ContainsAny(s, ".eEnN") {
		return s
	}
	return s + ".0"
}

// numericPrefix returns the longest prefix of s (after leading spaces) that
// reads as a number, and whether that prefix is an integer literal.
func numericPrefix(s string) (string, bool) {
	s = strings.TrimLeft(s, " \t\n\r")
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	isInt := true
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits+frac > 0 {
			i = j
			digits += frac
			isInt = false
		}
	}
	if digits == 0 {
		return "", false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
			isInt = false
		}
	}
	return s[:i], isInt
}

// isFullyNumeric reports whether s (ignoring surrounding spaces) is exactly a
// number.
func isFullyNumeric(s string) bool {
	t := strings.TrimSpace(s)
	p, _ := numericPrefix(t)
	return p != "" && len(p) == len(t)
}

// CoerceToColumn applies column affinity to a value being stored in a column
// of the given declared type.
func CoerceToColumn(v Value, t DataType) (Value, error) {
	if v.IsNull() {
		return v, nil
	}
	switch t {
	case TypeInteger:
		switch v.Type {
		case TypeInteger:
			return v, nil
		case TypeReal:
			if i, ok := integralReal(v.F64); ok {
				return NewInteger(i), nil
			}
		case TypeText:
			if isFullyNumeric(v.S) {
				n := ToNumeric(NewText(strings.TrimSpace(v.S)))
				if n.Type == TypeInteger {
					return n, nil
				}
				if i, ok := integralReal(n.F64); ok {
					return NewInteger(i), nil
				}
			}
		}
	case TypeReal:
		switch v.Type {
		case TypeInteger:
			return NewReal(float64(v.I64)), nil
		case TypeReal:
			return v, nil
		case TypeText:
			if isFullyNumeric(v.S) {
				f, _ := ToReal(NewText(strings.TrimSpace(v.S)))
				return NewReal(f), nil
			}
		}
	case TypeText:
		return ToText(v), nil
	default:
		return v, nil
	}
	return Value{}, Errorf(ErrTypeMismatch, "cannot store %s as %s", v.Type, t)
}

func integralReal(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// AppendKey appends a normalized encoding of v to dst. Two values encode
// identically exactly when they are equal for grouping purposes: NULLs are
// equal to each other, and 1 equals 1.0.
func AppendKey(dst []byte, v Value) []byte {
	switch v.Type {
	case TypeNull:
		return append(dst, 'N')
	case TypeInteger:
		dst = append(dst, 'I')
		return binary.BigEndian.AppendUint64(dst, uint64(v.I64))
	case TypeReal:
		if i, ok := integralReal(v.F64); ok {
			dst = append(dst, 'I')
			return binary.BigEndian.AppendUint64(dst, uint64(i))
		}
		dst = append(dst, 'R')
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(v.F64))
	default:
		dst = append(dst, 'T')
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(v.S)))
		return append(dst, v.S...)
	}
}

// RowKey encodes a whole tuple with AppendKey.
func RowKey(vals []Value) string {
	buf := make([]byte, 0, len(vals)*9)
	for _, v := range vals {
		buf = AppendKey(buf, v)
	}
	return string(buf)
}
