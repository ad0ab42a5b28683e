package engine

import (
	"errors"
	"strings"
	"testing"

	"memDB/internal/sql"
	"memDB/internal/storage/memstore"
)

func newTestEngine(t *testing.T, opts ...Option) *DBEngine {
	t.Helper()
	eng := New(memstore.New(), opts...)
	if err := eng.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return eng
}

func mustExec(t *testing.T, eng *DBEngine, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		if _, err := eng.ExecuteSQL(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
}

// queryRows runs q and renders every cell with Value.String, joining each
// row with "|".
func queryRows(t *testing.T, eng *DBEngine, q string) []string {
	t.Helper()
	res, err := eng.ExecuteSQL(q)
	if err != nil {
		t.Fatalf("%s: %v", q, err)
	}
	if !res.Query {
		t.Fatalf("%s: expected a query result", q)
	}
	out := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		out = append(out, strings.Join(cells, "|"))
	}
	return out
}

func expectRows(t *testing.T, eng *DBEngine, q string, want ...string) {
	t.Helper()
	got := queryRows(t, eng, q)
	if len(got) != len(want) {
		t.Fatalf("%s: expected %d rows %v, got %d %v", q, len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: row %d: expected %q, got %q", q, i, want[i], got[i])
		}
	}
}

func expectKind(t *testing.T, eng *DBEngine, q string, kind sql.ErrorKind) {
	t.Helper()
	_, err := eng.ExecuteSQL(q)
	if err == nil {
		t.Fatalf("%s: expected %v error, got nil", q, kind)
	}
	if !errors.Is(err, &sql.Error{Kind: kind}) {
		t.Fatalf("%s: expected %v error, got %v (%v)", q, kind, sql.KindOf(err), err)
	}
}

func TestEngine_StartTwice(t *testing.T) {
	eng := newTestEngine(t)
	if err := eng.Start(); err == nil {
		t.Fatalf("expected error on second Start")
	}
	if eng.Session() == "" {
		t.Fatalf("expected a session id")
	}
}

func TestEngine_NotStarted(t *testing.T) {
	eng := New(memstore.New())
	if _, err := eng.ExecuteSQL("SELECT 1"); err == nil {
		t.Fatalf("expected error before Start")
	}
}

func TestEngine_Expressions(t *testing.T) {
	eng := newTestEngine(t)

	tests := []struct {
		q    string
		want string
	}{
		{"SELECT 1", "1"},
		{"SELECT 'hello'", "hello"},
		{"SELECT NULL", "NULL"},
		{"SELECT 1 + 2 * 3", "7"},
		{"SELECT (1 + 2) * 3", "9"},
		{"SELECT 7 / 2", "3"},
		{"SELECT -7 / 2", "-3"},
		{"SELECT 7.0 / 2", "3.5"},
		{"SELECT 7 % 3", "1"},
		{"SELECT 'a' || 1", "a1"},
		{"SELECT 9223372036854775807 + 1", "9.223372036854776e+18"},
		{"SELECT NULL = NULL", "NULL"},
		{"SELECT NULL IS NULL", "1"},
		{"SELECT 1 IS NOT NULL", "1"},
		{"SELECT 1 < 'a'", "1"},
		{"SELECT NULL OR 1", "1"},
		{"SELECT NULL AND 0", "0"},
		{"SELECT NOT NULL", "NULL"},
		{"SELECT CASE WHEN 1 > 2 THEN 'x' ELSE 'y' END", "y"},
		{"SELECT CASE 2 WHEN 1 THEN 'one' WHEN 2 THEN 'two' END", "two"},
		{"SELECT CASE WHEN 0 THEN 1 END", "NULL"},
		{"SELECT CAST('12abc' AS INTEGER)", "12"},
		{"SELECT CAST(3 AS TEXT) || 'x'", "3x"},
		{"SELECT 5 BETWEEN 1 AND 10", "1"},
		{"SELECT 5 NOT BETWEEN 1 AND 10", "0"},
		{"SELECT 'ABC' LIKE 'a%'", "1"},
		{"SELECT 'abc' LIKE 'a_d'", "0"},
		{"SELECT 2 IN (1, NULL)", "NULL"},
		{"SELECT 1 IN (1, NULL)", "1"},
		{"SELECT 3 NOT IN (1, 2)", "1"},
	}

	for _, tt := range tests {
		expectRows(t, eng, tt.q, tt.want)
	}
}

func TestEngine_ScalarFunctions(t *testing.T) {
	eng := newTestEngine(t)

	tests := []struct {
		q    string
		want string
	}{
		{"SELECT abs(-3)", "3"},
		{"SELECT coalesce(NULL, 2)", "2"},
		{"SELECT ifnull(NULL, 'x')", "x"},
		{"SELECT nullif(1, 1)", "NULL"},
		{"SELECT length('héllo')", "5"},
		{"SELECT upper('abc'), lower('ABC')", "ABC|abc"},
		{"SELECT substr('hello', 2, 3)", "ell"},
		{"SELECT substr('hello', -3)", "llo"},
		{"SELECT round(2.5)", "3"},
		{"SELECT round(-2.5)", "-3"},
		{"SELECT round(1.2345, 2)", "1.23"},
		{"SELECT typeof(1), typeof(1.5), typeof('a'), typeof(NULL)", "integer|real|text|null"},
		{"SELECT instr('hello', 'l')", "3"},
		{"SELECT trim('  x  ') || '|'", "x|"},
		{"SELECT replace('aaa', 'a', 'b')", "bbb"},
		{"SELECT max(1, 5, 3), min(4, 2)", "5|2"},
		{"SELECT iif(1 > 0, 'yes', 'no')", "yes"},
	}

	for _, tt := range tests {
		expectRows(t, eng, tt.q, tt.want)
	}

	expectKind(t, eng, "SELECT nosuchfn(1)", sql.ErrUnknownFunction)
	expectKind(t, eng, "SELECT abs(1, 2)", sql.ErrUnknownFunction)
}

func TestEngine_DivisionByZero(t *testing.T) {
	eng := newTestEngine(t)
	expectKind(t, eng, "SELECT 1 / 0", sql.ErrDivisionByZero)
	expectKind(t, eng, "SELECT 1 % 0", sql.ErrDivisionByZero)

	lenient := newTestEngine(t, WithDivisionByZeroNull())
	expectRows(t, lenient, "SELECT 1 / 0", "NULL")
	expectRows(t, lenient, "SELECT 5 % 0", "NULL")
}

func TestEngine_CreateInsertSelect(t *testing.T) {
	eng := newTestEngine(t)
	mustExec(t, eng,
		"CREATE TABLE users (id INTEGER, name TEXT, active INTEGER)",
		"INSERT INTO users VALUES (1, 'Alice', 1), (2, 'Bob', 0)",
	)

	res, err := eng.ExecuteSQL("SELECT * FROM users")
	if err != nil {
		t.Fatalf("SELECT failed: %v", err)
	}
	wantCols := []string{"id", "name", "active"}
	if len(res.Columns) != len(wantCols) {
		t.Fatalf("expected %d columns, got %d", len(wantCols), len(res.Columns))
	}
	for i, want := range wantCols {
		if res.Columns[i] != want {
			t.Fatalf("column %d: expected %q, got %q", i, want, res.Columns[i])
		}
	}
	expectRows(t, eng, "SELECT * FROM users", "1|Alice|1", "2|Bob|0")
	expectRows(t, eng, "SELECT name FROM users WHERE active = 1", "Alice")

	tables, err := eng.ListTables()
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if len(tables) != 1 || tables[0] != "users" {
		t.Fatalf("expected [users], got %v", tables)
	}
}

func TestEngine_ResultColumnNames(t *testing.T) {
	eng := newTestEngine(t)
	mustExec(t, eng, "CREATE TABLE t (a INTEGER, b INTEGER)")

	res, err := eng.ExecuteSQL("SELECT a, b AS bee, a + 1, t.b FROM t")
	if err != nil {
		t.Fatalf("SELECT failed: %v", err)
	}
	want := []string{"a", "bee", "a + 1", "b"}
	for i, w := range want {
		if res.Columns[i] != w {
			t.Fatalf("column %d: expected %q, got %q", i, w, res.Columns[i])
		}
	}
}

func TestEngine_WhereNullSemantics(t *testing.T) {
	eng := newTestEngine(t)
	mustExec(t, eng,
		"CREATE TABLE t (a INTEGER)",
		"INSERT INTO t VALUES (1), (NULL), (3)",
	)
	expectRows(t, eng, "SELECT a FROM t WHERE a > 1", "3")
	expectRows(t, eng, "SELECT a FROM t WHERE NOT (a > 1)", "1")
	expectRows(t, eng, "SELECT a FROM t WHERE a IS NULL", "NULL")
	expectRows(t, eng, "SELECT count(*) FROM t WHERE a = NULL", "0")
}

func TestEngine_InsertDefaultsAndRowIDs(t *testing.T) {
	eng := newTestEngine(t)
	mustExec(t, eng,
		"CREATE TABLE u (id INTEGER PRIMARY KEY, name TEXT NOT NULL, score REAL DEFAULT 1.5)",
		"INSERT INTO u (name) VALUES ('a'), ('b')",
		"INSERT INTO u VALUES (10, 'c', 3)",
	)
	expectRows(t, eng, "SELECT id, name, score FROM u", "1|a|1.5", "2|b|1.5", "10|c|3")
	expectRows(t, eng, "SELECT typeof(score) FROM u WHERE id = 10", "real")

	mustExec(t, eng, "INSERT INTO u (name) VALUES ('d')")
	expectRows(t, eng, "SELECT id FROM u WHERE name = 'd'", "11")
}

func TestEngine_InsertSelect(t *testing.T) {
	eng := newTestEngine(t)
	mustExec(t, eng,
		"CREATE TABLE src (a INTEGER)",
		"CREATE TABLE dst (a INTEGER, b INTEGER)",
		"INSERT INTO src VALUES (1), (2)",
	)
	res, err := eng.ExecuteSQL("INSERT INTO dst SELECT a, a * 10 FROM src")
	if err != nil {
		t.Fatalf("INSERT SELECT failed: %v", err)
	}
	if res.RowsAffected != 2 {
		t.Fatalf("expected 2 rows affected, got %d", res.RowsAffected)
	}
	expectRows(t, eng, "SELECT * FROM dst", "1|10", "2|20")
	expectKind(t, eng, "INSERT INTO dst SELECT a FROM src", sql.ErrColumnCountMismatch)
}

func TestEngine_InsertErrorsLeaveTableUnchanged(t *testing.T) {
	eng := newTestEngine(t)
	mustExec(t, eng,
		"CREATE TABLE u (id INTEGER PRIMARY KEY, name TEXT NOT NULL, score REAL)",
		"INSERT INTO u VALUES (1, 'a', 1.0)",
	)

	expectKind(t, eng, "INSERT INTO u VALUES (2, 'b', 2.0), (1, 'dup', 0)", sql.ErrConstraintViolation)
	expectKind(t, eng, "INSERT INTO u (id, name) VALUES (3, NULL)", sql.ErrConstraintViolation)
	expectKind(t, eng, "INSERT INTO u VALUES (4, 'x', 'abc')", sql.ErrTypeMismatch)
	expectKind(t, eng, "INSERT INTO u VALUES (5, 'x')", sql.ErrColumnCountMismatch)
	expectKind(t, eng, "INSERT INTO u (nope) VALUES (1)", sql.ErrUnknownColumn)
	expectKind(t, eng, "INSERT INTO missing VALUES (1)", sql.ErrUnknownTable)

	expectRows(t, eng, "SELECT count(*) FROM u", "1")
}

func TestEngine_UpdateDelete(t *testing.T) {
	eng := newTestEngine(t)
	mustExec(t, eng,
		"CREATE TABLE u (id INTEGER PRIMARY KEY, name TEXT, score REAL)",
		"INSERT INTO u VALUES (1, 'a', 1.5), (2, 'b', 1.5), (10, 'c', 3)",
	)

	res, err := eng.ExecuteSQL("UPDATE u SET score = score * 2 WHERE id > 1")
	if err != nil {
		t.Fatalf("UPDATE failed: %v", err)
	}
	if res.RowsAffected != 2 {
		t.Fatalf("expected 2 rows updated, got %d", res.RowsAffected)
	}

	res, err = eng.ExecuteSQL("DELETE FROM u WHERE name = 'a'")
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	if res.RowsAffected != 1 {
		t.Fatalf("expected 1 row deleted, got %d", res.RowsAffected)
	}
	expectRows(t, eng, "SELECT id, name, score FROM u", "2|b|3", "10|c|6")

	// Assignments read the old row.
	mustExec(t, eng, "CREATE TABLE p (x INTEGER, y INTEGER)", "INSERT INTO p VALUES (1, 2)")
	mustExec(t, eng, "UPDATE p SET x = y, y = x")
	expectRows(t, eng, "SELECT x, y FROM p", "2|1")

	expectKind(t, eng, "UPDATE u SET id = 10 WHERE id = 2", sql.ErrConstraintViolation)
	expectRows(t, eng, "SELECT id FROM u", "2", "10")

	res, err = eng.ExecuteSQL("DELETE FROM u")
	if err != nil {
		t.Fatalf("DELETE all failed: %v", err)
	}
	if res.RowsAffected != 2 {
		t.Fatalf("expected 2 rows deleted, got %d", res.RowsAffected)
	}
	expectRows(t, eng, "SELECT * FROM u")
}

func TestEngine_DDL(t *testing.T) {
	eng := newTestEngine(t)
	mustExec(t, eng, "CREATE TABLE t (a INTEGER)")

	expectKind(t, eng, "CREATE TABLE t (b INTEGER)", sql.ErrTableAlreadyExists)
	mustExec(t, eng, "CREATE TABLE IF NOT EXISTS t (b INTEGER)")
	expectRows(t, eng, "SELECT a FROM t")

	mustExec(t, eng, "CREATE INDEX t_a ON t (a)")
	expectKind(t, eng, "CREATE INDEX t_a ON t (a)", sql.ErrIndexAlreadyExists)
	expectKind(t, eng, "CREATE INDEX bad ON t (nope)", sql.ErrUnknownColumn)
	mustExec(t, eng, "DROP INDEX t_a")
	expectKind(t, eng, "DROP INDEX t_a", sql.ErrUnknownIndex)
	mustExec(t, eng, "DROP INDEX IF EXISTS t_a")

	mustExec(t, eng, "DROP TABLE t")
	expectKind(t, eng, "DROP TABLE t", sql.ErrUnknownTable)
	mustExec(t, eng, "DROP TABLE IF EXISTS t")
	expectKind(t, eng, "SELECT * FROM t", sql.ErrUnknownTable)
}

func TestEngine_UniqueIndex(t *testing.T) {
	eng := newTestEngine(t)
	mustExec(t, eng,
		"CREATE TABLE t (a INTEGER, b TEXT)",
		"INSERT INTO t VALUES (1, 'x'), (2, 'y')",
		"CREATE UNIQUE INDEX t_b ON t (b)",
	)
	expectKind(t, eng, "INSERT INTO t VALUES (3, 'x')", sql.ErrConstraintViolation)
	mustExec(t, eng, "INSERT INTO t VALUES (3, NULL)", "INSERT INTO t VALUES (4, NULL)")
	expectRows(t, eng, "SELECT a FROM t WHERE b = 'y'", "2")
	expectRows(t, eng, "SELECT count(*) FROM t", "4")
}

func TestEngine_ParseErrorLeavesStorageUnchanged(t *testing.T) {
	eng := newTestEngine(t)
	mustExec(t, eng, "CREATE TABLE t (a INTEGER)")

	_, err := eng.ExecuteSQL("INSERT INTO t VALUES (1")
	var perr *sql.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *sql.ParseError, got %T (%v)", err, err)
	}
	expectRows(t, eng, "SELECT count(*) FROM t", "0")
}

func TestEngine_UnknownAndAmbiguousColumns(t *testing.T) {
	eng := newTestEngine(t)
	mustExec(t, eng, "CREATE TABLE t (a INTEGER)")

	expectKind(t, eng, "SELECT nope FROM t", sql.ErrUnknownColumn)
	expectKind(t, eng, "SELECT t.nope FROM t", sql.ErrUnknownColumn)
	expectKind(t, eng, "SELECT a FROM t, t AS u", sql.ErrAmbiguousColumn)
	expectRows(t, eng, "SELECT t.a, u.a FROM t, t AS u")
	expectKind(t, eng, "SELECT * FROM nope", sql.ErrUnknownTable)
}
