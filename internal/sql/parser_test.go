package sql

import (
	"errors"
	"testing"
)

func TestParseCreateTable_Basic(t *testing.T) {
	query := "CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR(30) NOT NULL, score REAL DEFAULT 1.5, tag);"

	stmt, err := Parse(query)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	ct, ok := stmt.(*CreateTableStmt)
	if !ok {
		t.Fatalf("expected *CreateTableStmt, got %T", stmt)
	}

	if ct.TableName != "users" {
		t.Fatalf("expected table name %q, got %q", "users", ct.TableName)
	}

	if len(ct.Columns) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(ct.Columns))
	}

	assertCol := func(idx int, name string, dt DataType) {
		if ct.Columns[idx].Name != name {
			t.Fatalf("column %d: expected name %q, got %q", idx, name, ct.Columns[idx].Name)
		}
		if ct.Columns[idx].Type != dt {
			t.Fatalf("column %d: expected type %v, got %v", idx, dt, ct.Columns[idx].Type)
		}
	}

	assertCol(0, "id", TypeInteger)
	assertCol(1, "name", TypeText)
	assertCol(2, "score", TypeReal)
	assertCol(3, "tag", TypeNull)

	if !ct.Columns[0].PrimaryKey {
		t.Fatalf("expected id to be a primary key")
	}
	if !ct.Columns[1].NotNull {
		t.Fatalf("expected name to be NOT NULL")
	}
	if d := ct.Columns[2].Default; d == nil || d.Type != TypeReal || d.F64 != 1.5 {
		t.Fatalf("unexpected default for score: %+v", d)
	}
}

func TestParseCreateTable_CaseAndSpaces(t *testing.T) {
	query := "  create   table  if not exists  Accounts  (  balance   double precision ,  owner  text, UNIQUE (owner) );  "

	stmt, err := Parse(query)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	ct, ok := stmt.(*CreateTableStmt)
	if !ok {
		t.Fatalf("expected *CreateTableStmt, got %T", stmt)
	}

	if ct.TableName != "Accounts" || !ct.IfNotExists {
		t.Fatalf("unexpected header: %+v", ct)
	}

	if len(ct.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(ct.Columns))
	}

	if ct.Columns[0].Name != "balance" || ct.Columns[0].Type != TypeReal {
		t.Fatalf("unexpected first column: %+v", ct.Columns[0])
	}

	if ct.Columns[1].Name != "owner" || ct.Columns[1].Type != TypeText {
		t.Fatalf("unexpected second column: %+v", ct.Columns[1])
	}

	if len(ct.Keys) != 1 || ct.Keys[0].PrimaryKey || ct.Keys[0].Columns[0] != "owner" {
		t.Fatalf("unexpected keys: %+v", ct.Keys)
	}
}

func TestParseCreateTable_DuplicateColumn(t *testing.T) {
	_, err := Parse("CREATE TABLE t (a INTEGER, A TEXT)")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParseInsert_Basic(t *testing.T) {
	query := "INSERT INTO users VALUES (1, 'Alice', -2.5), (2, 'Bob''s', NULL);"

	stmt, err := Parse(query)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	ins, ok := stmt.(*InsertStmt)
	if !ok {
		t.Fatalf("expected *InsertStmt, got %T", stmt)
	}

	if ins.TableName != "users" {
		t.Fatalf("expected table name %q, got %q", "users", ins.TableName)
	}
	if len(ins.Rows) != 2 || len(ins.Rows[0]) != 3 {
		t.Fatalf("unexpected rows: %+v", ins.Rows)
	}

	lit, ok := ins.Rows[0][2].(*Literal)
	if !ok || lit.Value.Type != TypeReal || lit.Value.F64 != -2.5 {
		t.Fatalf("expected folded literal -2.5, got %#v", ins.Rows[0][2])
	}
	if s := ins.Rows[1][1].(*Literal).Value.S; s != "Bob's" {
		t.Fatalf("expected escaped quote, got %q", s)
	}
	if !ins.Rows[1][2].(*Literal).Value.IsNull() {
		t.Fatalf("expected NULL literal")
	}
}

func TestParseInsert_ColumnsAndSelect(t *testing.T) {
	stmt, err := Parse("INSERT INTO t2 (b, a) SELECT a, b FROM t1 WHERE a > 1")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	ins := stmt.(*InsertStmt)
	if len(ins.Columns) != 2 || ins.Columns[0] != "b" {
		t.Fatalf("unexpected columns: %v", ins.Columns)
	}
	if ins.Select == nil || ins.Rows != nil {
		t.Fatalf("expected INSERT ... SELECT, got %+v", ins)
	}
}

func TestParseInsert_RaggedValues(t *testing.T) {
	if _, err := Parse("INSERT INTO t VALUES (1, 2), (3)"); err == nil {
		t.Fatalf("expected error for rows of different widths")
	}
}

func TestParseSelect_Full(t *testing.T) {
	query := `SELECT DISTINCT a.x AS ax, count(*), b.*
	          FROM t1 AS a LEFT OUTER JOIN t2 b ON a.id = b.id, t3
	          WHERE a.x > 5 AND b.y IS NOT NULL
	          GROUP BY a.x HAVING count(*) > 1
	          ORDER BY 1 DESC, ax
	          LIMIT 10 OFFSET 2`

	stmt, err := Parse(query)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sel, ok := stmt.(*SelectStmt)
	if !ok {
		t.Fatalf("expected *SelectStmt, got %T", stmt)
	}

	if !sel.Distinct || len(sel.Items) != 3 {
		t.Fatalf("unexpected select list: %+v", sel.Items)
	}
	if sel.Items[0].Alias != "ax" || sel.Items[0].Expr.String() != "a.x" {
		t.Fatalf("unexpected first item: %+v", sel.Items[0])
	}
	if sel.Items[1].Text != "count(*)" {
		t.Fatalf("expected source text %q, got %q", "count(*)", sel.Items[1].Text)
	}
	if !sel.Items[2].Star || sel.Items[2].StarTable != "b" {
		t.Fatalf("expected b.*, got %+v", sel.Items[2])
	}

	outer, ok := sel.From.(*JoinRef)
	if !ok || outer.Kind != JoinCross {
		t.Fatalf("expected outer cross join, got %#v", sel.From)
	}
	inner, ok := outer.Left.(*JoinRef)
	if !ok || inner.Kind != JoinLeft || inner.On == nil {
		t.Fatalf("expected inner left join, got %#v", outer.Left)
	}
	if tn := inner.Right.(*TableName); tn.Name != "t2" || tn.Alias != "b" {
		t.Fatalf("unexpected right table: %+v", tn)
	}

	if got := sel.Where.String(); got != "((a.x>5) AND (b.y IS NOT NULL))" {
		t.Fatalf("unexpected WHERE: %s", got)
	}
	if len(sel.GroupBy) != 1 || sel.Having == nil {
		t.Fatalf("expected GROUP BY and HAVING")
	}
	if len(sel.OrderBy) != 2 || !sel.OrderBy[0].Desc || sel.OrderBy[1].Desc {
		t.Fatalf("unexpected ORDER BY: %+v", sel.OrderBy)
	}
	if sel.Limit.String() != "10" || sel.Offset.String() != "2" {
		t.Fatalf("unexpected LIMIT/OFFSET: %v %v", sel.Limit, sel.Offset)
	}
}

func TestParseSelect_LimitCommaForm(t *testing.T) {
	stmt, err := Parse("SELECT a FROM t LIMIT 3, 7")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sel := stmt.(*SelectStmt)
	if sel.Offset.String() != "3" || sel.Limit.String() != "7" {
		t.Fatalf("expected offset 3 limit 7, got %v %v", sel.Offset, sel.Limit)
	}
}

func TestParseSelect_Compound(t *testing.T) {
	stmt, err := Parse("SELECT a FROM t UNION ALL SELECT b FROM u EXCEPT SELECT 1 ORDER BY 1")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sel := stmt.(*SelectStmt)
	if len(sel.Compounds) != 2 {
		t.Fatalf("expected 2 compound parts, got %d", len(sel.Compounds))
	}
	if sel.Compounds[0].Op != UnionAll || sel.Compounds[1].Op != Except {
		t.Fatalf("unexpected operators: %v %v", sel.Compounds[0].Op, sel.Compounds[1].Op)
	}
	if len(sel.OrderBy) != 1 || sel.Compounds[1].Select.OrderBy != nil {
		t.Fatalf("ORDER BY should attach to the whole compound")
	}
}

func TestParseSelect_DerivedTableAndSubqueries(t *testing.T) {
	query := `SELECT x FROM (SELECT a AS x FROM t1) AS d
	          WHERE x IN (SELECT b FROM t2 WHERE t2.c = d.x)
	            AND NOT EXISTS (SELECT 1 FROM t3)
	            AND x > (SELECT avg(b) FROM t2)`

	stmt, err := Parse(query)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	sel := stmt.(*SelectStmt)
	if dt, ok := sel.From.(*DerivedTable); !ok || dt.Alias != "d" {
		t.Fatalf("expected derived table d, got %#v", sel.From)
	}

	var kinds []SubqueryKind
	var nots []bool
	Walk(sel.Where, func(e Expr) bool {
		if sq, ok := e.(*SubqueryExpr); ok {
			kinds = append(kinds, sq.Kind)
			nots = append(nots, sq.Not)
		}
		return true
	})
	want := []SubqueryKind{SubqueryIn, SubqueryExists, SubqueryScalar}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d subqueries, got %d", len(want), len(kinds))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("subquery %d: expected kind %v, got %v", i, want[i], kinds[i])
		}
	}
	if !nots[1] {
		t.Fatalf("expected NOT EXISTS to be negated")
	}
}

func TestParseExpr_Precedence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1 + 2 * 3", "(1+(2*3))"},
		{"(1 + 2) * 3", "((1+2)*3)"},
		{"a - b - c", "((a-b)-c)"},
		{"a OR b AND c", "(a OR (b AND c))"},
		{"NOT a = b", "(NOT (a=b))"},
		{"a < b = c < d", "((a<b)=(c<d))"},
		{"'a' || 'b' || 1 + 2", "((('a'||'b')||1)+2)"},
		{"-a * 2", "((-a)*2)"},
		{"- 5", "-5"},
		{"x BETWEEN 1 AND 2 AND y", "((x BETWEEN 1 AND 2) AND y)"},
		{"x NOT IN (1, 2)", "(x NOT IN (1, 2))"},
		{"x IS NOT y", "(x IS NOT y)"},
		{"x ISNULL", "(x IS NULL)"},
		{"x NOTNULL", "(x IS NOT NULL)"},
		{"x NOT NULL", "(x IS NOT NULL)"},
		{"name NOT LIKE 'a%' ESCAPE '!'", "(name NOT LIKE 'a%' ESCAPE '!')"},
		{"CASE WHEN a > 1 THEN 'x' ELSE 'y' END", "CASE WHEN (a>1) THEN 'x' ELSE 'y' END"},
		{"CASE a WHEN 1 THEN 2 END", "CASE a WHEN 1 THEN 2 END"},
		{"CAST(a AS VARCHAR(10))", "CAST(a AS TEXT)"},
		{"count(DISTINCT T1.B)", "COUNT(DISTINCT t1.b)"},
		{"coalesce(a, NULL, 3)", "COALESCE(a, NULL, 3)"},
	}
	for _, c := range cases {
		e, err := ParseExpr(c.in)
		if err != nil {
			t.Fatalf("ParseExpr(%q) failed: %v", c.in, err)
		}
		if got := e.String(); got != c.want {
			t.Fatalf("ParseExpr(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestParseExpr_MinInt64(t *testing.T) {
	e, err := ParseExpr("-9223372036854775808")
	if err != nil {
		t.Fatalf("ParseExpr failed: %v", err)
	}
	lit, ok := e.(*Literal)
	if !ok || lit.Value.Type != TypeInteger || lit.Value.I64 != -9223372036854775808 {
		t.Fatalf("expected min int64 literal, got %#v", e)
	}

	e, err = ParseExpr("9223372036854775808")
	if err != nil {
		t.Fatalf("ParseExpr failed: %v", err)
	}
	if lit := e.(*Literal); lit.Value.Type != TypeReal {
		t.Fatalf("expected overflowing literal to be real, got %v", lit.Value.Type)
	}
}

func TestParseUpdate_Basic(t *testing.T) {
	stmt, err := Parse("UPDATE users SET name = 'Bob', score = score + 1 WHERE id = 1;")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	up, ok := stmt.(*UpdateStmt)
	if !ok {
		t.Fatalf("expected *UpdateStmt, got %T", stmt)
	}
	if up.TableName != "users" || len(up.Assignments) != 2 {
		t.Fatalf("unexpected update: %+v", up)
	}
	if up.Assignments[1].Column != "score" || up.Assignments[1].Value.String() != "(score+1)" {
		t.Fatalf("unexpected assignment: %+v", up.Assignments[1])
	}
	if up.Where == nil {
		t.Fatalf("expected WHERE clause")
	}
}

func TestParseDelete_Basic(t *testing.T) {
	stmt, err := Parse("DELETE FROM users")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	del, ok := stmt.(*DeleteStmt)
	if !ok {
		t.Fatalf("expected *DeleteStmt, got %T", stmt)
	}
	if del.TableName != "users" || del.Where != nil {
		t.Fatalf("unexpected delete: %+v", del)
	}
}

func TestParseIndexStatements(t *testing.T) {
	stmt, err := Parse("CREATE UNIQUE INDEX IF NOT EXISTS idx_a ON t (a DESC, b)")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	ci := stmt.(*CreateIndexStmt)
	if ci.IndexName != "idx_a" || ci.TableName != "t" || !ci.Unique || !ci.IfNotExists || len(ci.Columns) != 2 {
		t.Fatalf("unexpected create index: %+v", ci)
	}

	stmt, err = Parse("DROP INDEX IF EXISTS idx_a")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if di := stmt.(*DropIndexStmt); di.IndexName != "idx_a" || !di.IfExists {
		t.Fatalf("unexpected drop index: %+v", di)
	}

	stmt, err = Parse("DROP TABLE t")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if dt := stmt.(*DropTableStmt); dt.TableName != "t" || dt.IfExists {
		t.Fatalf("unexpected drop table: %+v", dt)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		in  string
		pos int
	}{
		{"SELECT 'abc", 7},
		{"SELECT (1 + 2", 13},
		{"SELEKT 1", 0},
		{"BEGIN", 0},
		{"SELECT 1 FROM", 13},
		{"SELECT * FROM t WHERE", 21},
		{"INSERT INTO t VALUES (1,)", 24},
		{"SELECT a FROM t extra junk", 22},
		{"SELECT 1 ! 2", 9},
	}
	for _, c := range cases {
		_, err := Parse(c.in)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("Parse(%q): expected ParseError, got %v", c.in, err)
		}
		if pe.Pos != c.pos {
			t.Fatalf("Parse(%q): expected error at %d, got %d (%s)", c.in, c.pos, pe.Pos, pe.Msg)
		}
	}
}

func TestParse_EmptyStatement(t *testing.T) {
	if _, err := Parse("   ;"); err == nil {
		t.Fatalf("expected error for empty statement")
	}
}
