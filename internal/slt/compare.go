package slt

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Normalize maps a result value to its comparison form for a column of
// type typ (I, R or T). NULL and the empty field compare equal.
func Normalize(value string, typ byte) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "NULL") {
		return "NULL"
	}

	switch typ {
	case 'I':
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return value
		}
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return strconv.FormatFloat(math.Trunc(f), 'f', 0, 64)
	case 'R':
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return value
		}
		if f == math.Trunc(f) {
			return strconv.FormatFloat(f, 'f', 0, 64) + ".0"
		}
		s := strconv.FormatFloat(f, 'f', 3, 64)
		return strings.TrimRight(strings.TrimRight(s, "0"), ".")
	default:
		return value
	}
}

func normalizeAll(values []string, types string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		typ := byte('T')
		if types != "" {
			typ = types[i%len(types)]
		}
		out[i] = Normalize(v, typ)
	}
	return out
}

// sortValues applies the query's sort mode to flattened values.
func sortValues(values []string, ncols int, mode SortMode) []string {
	switch mode {
	case RowSort:
		rows := make([][]string, 0, len(values)/max(ncols, 1)+1)
		for i := 0; i < len(values); i += ncols {
			rows = append(rows, values[i:min(i+ncols, len(values))])
		}
		slices.SortStableFunc(rows, slices.Compare[[]string])
		out := make([]string, 0, len(values))
		for _, r := range rows {
			out = append(out, r...)
		}
		return out
	case ValueSort:
		out := slices.Clone(values)
		slices.Sort(out)
		return out
	default:
		return values
	}
}

// Hash is the MD5 of values, each followed by a newline.
func Hash(values []string) string {
	h := md5.New()
	for _, v := range values {
		h.Write([]byte(v))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Check compares actual output values with what q expects and returns a
// description of the first difference, or "" when they match.
func Check(q *Query, actual []string) string {
	ncols := q.Columns()

	// Hashes are taken over the values exactly as printed.
	if q.HashCount >= 0 {
		got := sortValues(actual, ncols, q.Sort)
		if len(got) != q.HashCount {
			return fmt.Sprintf("value count mismatch: got %d, expected %d", len(got), q.HashCount)
		}
		if h := Hash(got); h != q.Hash {
			return fmt.Sprintf("hash mismatch: got %s, expected %s", h, q.Hash)
		}
		return ""
	}

	got := sortValues(normalizeAll(actual, q.ColumnTypes), ncols, q.Sort)
	want := sortValues(normalizeAll(q.Expected, q.ColumnTypes), ncols, q.Sort)
	if len(got) != len(want) {
		return fmt.Sprintf("row count mismatch: got %d values, expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Sprintf("mismatch at row %d, col %d: got '%s', expected '%s'", i/ncols, i%ncols, got[i], want[i])
		}
	}
	return ""
}
