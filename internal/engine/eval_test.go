package engine

import (
	"testing"

	"memDB/internal/sql"
)

func TestLikeMatch(t *testing.T) {
	tests := []struct {
		pat, s string
		esc    rune
		want   bool
	}{
		{"abc", "abc", -1, true},
		{"ABC", "abc", -1, true},
		{"a%", "abcdef", -1, true},
		{"%def", "abcdef", -1, true},
		{"%c%", "abcdef", -1, true},
		{"a_c", "abc", -1, true},
		{"a_c", "ac", -1, false},
		{"%", "", -1, true},
		{"_", "", -1, false},
		{"a%b%c", "axxbyyc", -1, true},
		{"a%b%c", "axxbyy", -1, false},
		{"100!%", "100%", '!', true},
		{"100!%", "1000", '!', false},
		{"é%", "é!", -1, true},
		{"É", "é", -1, false},
	}

	for _, tt := range tests {
		if got := likeMatch([]rune(tt.pat), []rune(tt.s), tt.esc); got != tt.want {
			t.Fatalf("likeMatch(%q, %q): expected %v, got %v", tt.pat, tt.s, tt.want, got)
		}
	}
}

func TestCastValue(t *testing.T) {
	tests := []struct {
		in   sql.Value
		to   sql.DataType
		want sql.Value
	}{
		{sql.NewText("12abc"), sql.TypeInteger, sql.NewInteger(12)},
		{sql.NewText("abc"), sql.TypeInteger, sql.NewInteger(0)},
		{sql.NewReal(3.9), sql.TypeInteger, sql.NewInteger(3)},
		{sql.NewInteger(2), sql.TypeReal, sql.NewReal(2)},
		{sql.NewInteger(7), sql.TypeText, sql.NewText("7")},
		{sql.NewText("4.0"), sql.TypeNull, sql.NewInteger(4)},
		{sql.NewText("4.5"), sql.TypeNull, sql.NewReal(4.5)},
		{sql.Null, sql.TypeInteger, sql.Null},
	}

	for _, tt := range tests {
		got := castValue(tt.in, tt.to)
		if got != tt.want {
			t.Fatalf("castValue(%v, %v): expected %#v, got %#v", tt.in, tt.to, tt.want, got)
		}
	}
}

func TestArithmetic_OverflowAndNulls(t *testing.T) {
	eng := newTestEngine(t)

	tests := []struct {
		q    string
		want string
	}{
		{"SELECT 9223372036854775807 * 2", "1.8446744073709552e+19"},
		{"SELECT -9223372036854775808 - 1", "-9.223372036854776e+18"},
		{"SELECT 1 + NULL", "NULL"},
		{"SELECT '3abc' + 1", "4"},
		{"SELECT 'x' * 2", "0"},
		{"SELECT 7.5 % 2", "1"},
		{"SELECT typeof(7 / 2.0)", "real"},
		{"SELECT NULL || 'a'", "NULL"},
	}

	for _, tt := range tests {
		expectRows(t, eng, tt.q, tt.want)
	}
}
