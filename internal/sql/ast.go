package sql

import (
	"strconv"
	"strings"
)

// Statement is the common interface for all SQL statements.
type Statement interface {
	stmtNode()
}

// CreateTableStmt represents a parsed CREATE TABLE statement.
type CreateTableStmt struct {
	TableName   string
	IfNotExists bool
	Columns     []Column
	// Keys holds table-level PRIMARY KEY / UNIQUE column lists.
	Keys []KeyConstraint
}

// KeyConstraint is a table-level PRIMARY KEY or UNIQUE clause.
type KeyConstraint struct {
	PrimaryKey bool
	Columns    []string
}

// DropTableStmt represents DROP TABLE.
type DropTableStmt struct {
	TableName string
	IfExists  bool
}

// CreateIndexStmt represents CREATE [UNIQUE] INDEX name ON table (cols).
type CreateIndexStmt struct {
	IndexName   string
	TableName   string
	Columns     []string
	Unique      bool
	IfNotExists bool
}

// DropIndexStmt represents DROP INDEX.
type DropIndexStmt struct {
	IndexName string
	IfExists  bool
}

// InsertStmt represents INSERT INTO ... VALUES (...), (...) or
// INSERT INTO ... SELECT. Exactly one of Rows and Select is set.
type InsertStmt struct {
	TableName string
	Columns   []string // optional column list; empty means schema order
	Rows      [][]Expr
	Select    *SelectStmt
}

// Assignment is one "column = expr" pair of an UPDATE.
type Assignment struct {
	Column string
	Value  Expr
}

// UpdateStmt represents UPDATE ... SET ... [WHERE ...].
type UpdateStmt struct {
	TableName   string
	Assignments []Assignment
	Where       Expr // nil means every row
}

// DeleteStmt represents DELETE FROM ... [WHERE ...].
type DeleteStmt struct {
	TableName string
	Where     Expr // nil means every row
}

// SelectStmt is a full query: one select core, optionally followed by
// compound parts, with ORDER BY and LIMIT applying to the whole result.
type SelectStmt struct {
	Distinct bool
	Items    []SelectItem
	From     TableRef // nil for SELECT without FROM
	Where    Expr
	GroupBy  []Expr
	Having   Expr

	Compounds []CompoundPart

	OrderBy []OrderItem
	Limit   Expr
	Offset  Expr
}

// CompoundOp is a set operator joining select cores.
type CompoundOp int

const (
	Union CompoundOp = iota
	UnionAll
	Intersect
	Except
)

func (op CompoundOp) String() string {
	switch op {
	case Union:
		return "UNION"
	case UnionAll:
		return "UNION ALL"
	case Intersect:
		return "INTERSECT"
	default:
		return "EXCEPT"
	}
}

// CompoundPart is "<op> <select core>". Select carries no ORDER BY/LIMIT.
type CompoundPart struct {
	Op     CompoundOp
	Select *SelectStmt
}

// SelectItem is one entry of the SELECT list.
type SelectItem struct {
	Star      bool   // "*" or "t.*"
	StarTable string // qualifier of "t.*"
	Expr      Expr
	Alias     string
	Text      string // source text of Expr, used as the default column name
}

// OrderItem is one ORDER BY term.
type OrderItem struct {
	Expr Expr
	Desc bool
}

func (*CreateTableStmt) stmtNode() {}
func (*DropTableStmt) stmtNode()   {}
func (*CreateIndexStmt) stmtNode() {}
func (*DropIndexStmt) stmtNode()   {}
func (*InsertStmt) stmtNode()      {}
func (*UpdateStmt) stmtNode()      {}
func (*DeleteStmt) stmtNode()      {}
func (*SelectStmt) stmtNode()      {}

// TableRef is a FROM-clause source.
type TableRef interface {
	tableRef()
}

// TableName is a base table reference with an optional alias.
type TableName struct {
	Name  string
	Alias string
}

// DerivedTable is a parenthesized subquery in FROM.
type DerivedTable struct {
	Select *SelectStmt
	Alias  string
}

// JoinKind distinguishes the supported join operators.
type JoinKind int

const (
	JoinCross JoinKind = iota
	JoinInner
	JoinLeft
)

// JoinRef joins Left with Right. Comma-separated FROM items parse as
// JoinCross; the tree is always left-deep.
type JoinRef struct {
	Left  TableRef
	Right TableRef
	Kind  JoinKind
	On    Expr // nil for cross joins
}

func (*TableName) tableRef()    {}
func (*DerivedTable) tableRef() {}
func (*JoinRef) tableRef()      {}

// Expr is an expression node. String returns a canonical rendering used to
// match equivalent expressions (for example a SELECT term against GROUP BY).
type Expr interface {
	exprNode()
	String() string
}

// Literal is a constant.
type Literal struct {
	Value Value
}

// ColumnRef references a column, optionally qualified by table or alias.
type ColumnRef struct {
	Table  string
	Column string
}

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpConcat
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpIs
	OpIsNot
	OpAnd
	OpOr
)

var binaryOpText = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%", OpConcat: "||",
	OpEq: "=", OpNe: "<>", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpIs: " IS ", OpIsNot: " IS NOT ", OpAnd: " AND ", OpOr: " OR ",
}

func (op BinaryOp) String() string { return strings.TrimSpace(binaryOpText[op]) }

// BinaryExpr is "Left Op Right".
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// UnaryOp enumerates prefix operators.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpPlus
	OpNot
)

// UnaryExpr is a prefix operator applied to Expr.
type UnaryExpr struct {
	Op   UnaryOp
	Expr Expr
}

// FunctionCall is name(args). Name is upper-cased. Star marks COUNT(*).
type FunctionCall struct {
	Name     string
	Args     []Expr
	Star     bool
	Distinct bool
}

// SubqueryKind says how a nested select is consumed.
type SubqueryKind int

const (
	SubqueryScalar SubqueryKind = iota
	SubqueryExists
	SubqueryIn
)

// SubqueryExpr is a nested SELECT used as a scalar, an EXISTS test, or the
// right-hand side of IN (with Left as the probe).
type SubqueryExpr struct {
	Kind   SubqueryKind
	Select *SelectStmt
	Left   Expr // SubqueryIn only
	Not    bool // NOT EXISTS / NOT IN
}

// WhenClause is one WHEN ... THEN ... arm of a CASE.
type WhenClause struct {
	Cond   Expr
	Result Expr
}

// CaseExpr covers both the simple (Operand set) and searched forms.
type CaseExpr struct {
	Operand Expr
	Whens   []WhenClause
	Else    Expr
}

// IsNullExpr is "Expr IS [NOT] NULL".
type IsNullExpr struct {
	Expr Expr
	Not  bool
}

// InListExpr is "Expr [NOT] IN (List...)".
type InListExpr struct {
	Expr Expr
	List []Expr
	Not  bool
}

// BetweenExpr is "Expr [NOT] BETWEEN Low AND High".
type BetweenExpr struct {
	Expr Expr
	Low  Expr
	High Expr
	Not  bool
}

// LikeExpr is "Expr [NOT] LIKE Pattern [ESCAPE Escape]".
type LikeExpr struct {
	Expr    Expr
	Pattern Expr
	Escape  Expr
	Not     bool
}

// CastExpr is CAST(Expr AS Type).
type CastExpr struct {
	Expr Expr
	Type DataType
}

func (*Literal) exprNode()      {}
func (*ColumnRef) exprNode()    {}
func (*BinaryExpr) exprNode()   {}
func (*UnaryExpr) exprNode()    {}
func (*FunctionCall) exprNode() {}
func (*SubqueryExpr) exprNode() {}
func (*CaseExpr) exprNode()     {}
func (*IsNullExpr) exprNode()   {}
func (*InListExpr) exprNode()   {}
func (*BetweenExpr) exprNode()  {}
func (*LikeExpr) exprNode()     {}
func (*CastExpr) exprNode()     {}

func (e *Literal) String() string {
	switch e.Value.Type {
	case TypeText:
		return "'" + strings.ReplaceAll(e.Value.S, "'", "''") + "'"
	case TypeReal:
		return strconv.FormatFloat(e.Value.F64, 'g', -1, 64)
	default:
		return e.Value.String()
	}
}

func (e *ColumnRef) String() string {
	if e.Table != "" {
		return strings.ToLower(e.Table) + "." + strings.ToLower(e.Column)
	}
	return strings.ToLower(e.Column)
}

func (e *BinaryExpr) String() string {
	return "(" + e.Left.String() + binaryOpText[e.Op] + e.Right.String() + ")"
}

func (e *UnaryExpr) String() string {
	switch e.Op {
	case OpNeg:
		return "(-" + e.Expr.String() + ")"
	case OpPlus:
		return "(+" + e.Expr.String() + ")"
	default:
		return "(NOT " + e.Expr.String() + ")"
	}
}

func (e *FunctionCall) String() string {
	var sb strings.Builder
	sb.WriteString(e.Name)
	sb.WriteByte('(')
	if e.Distinct {
		sb.WriteString("DISTINCT ")
	}
	if e.Star {
		sb.WriteByte('*')
	}
	sb.WriteString(joinExprs(e.Args))
	sb.WriteByte(')')
	return sb.String()
}

func (e *SubqueryExpr) String() string {
	not := ""
	if e.Not {
		not = "NOT "
	}
	switch e.Kind {
	case SubqueryExists:
		return not + "EXISTS(subquery)"
	case SubqueryIn:
		return "(" + e.Left.String() + " " + not + "IN (subquery))"
	default:
		return "(subquery)"
	}
}

func (e *CaseExpr) String() string {
	var sb strings.Builder
	sb.WriteString("CASE")
	if e.Operand != nil {
		sb.WriteString(" " + e.Operand.String())
	}
	for _, w := range e.Whens {
		sb.WriteString(" WHEN " + w.Cond.String() + " THEN " + w.Result.String())
	}
	if e.Else != nil {
		sb.WriteString(" ELSE " + e.Else.String())
	}
	sb.WriteString(" END")
	return sb.String()
}

func (e *IsNullExpr) String() string {
	if e.Not {
		return "(" + e.Expr.String() + " IS NOT NULL)"
	}
	return "(" + e.Expr.String() + " IS NULL)"
}

func (e *InListExpr) String() string {
	op := " IN ("
	if e.Not {
		op = " NOT IN ("
	}
	return "(" + e.Expr.String() + op + joinExprs(e.List) + "))"
}

func (e *BetweenExpr) String() string {
	op := " BETWEEN "
	if e.Not {
		op = " NOT BETWEEN "
	}
	return "(" + e.Expr.String() + op + e.Low.String() + " AND " + e.High.String() + ")"
}

func (e *LikeExpr) String() string {
	op := " LIKE "
	if e.Not {
		op = " NOT LIKE "
	}
	s := "(" + e.Expr.String() + op + e.Pattern.String()
	if e.Escape != nil {
		s += " ESCAPE " + e.Escape.String()
	}
	return s + ")"
}

func (e *CastExpr) String() string {
	return "CAST(" + e.Expr.String() + " AS " + e.Type.String() + ")"
}

func joinExprs(list []Expr) string {
	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// Walk calls fn for e and each of its descendants, depth first, stopping
// early when fn returns false for a node. It does not descend into nested
// SELECTs; fn sees the SubqueryExpr itself and decides what to do.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *BinaryExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *UnaryExpr:
		Walk(n.Expr, fn)
	case *FunctionCall:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *SubqueryExpr:
		Walk(n.Left, fn)
	case *CaseExpr:
		Walk(n.Operand, fn)
		for _, w := range n.Whens {
			Walk(w.Cond, fn)
			Walk(w.Result, fn)
		}
		Walk(n.Else, fn)
	case *IsNullExpr:
		Walk(n.Expr, fn)
	case *InListExpr:
		Walk(n.Expr, fn)
		for _, x := range n.List {
			Walk(x, fn)
		}
	case *BetweenExpr:
		Walk(n.Expr, fn)
		Walk(n.Low, fn)
		Walk(n.High, fn)
	case *LikeExpr:
		Walk(n.Expr, fn)
		Walk(n.Pattern, fn)
		Walk(n.Escape, fn)
	case *CastExpr:
		Walk(n.Expr, fn)
	}
}
