package sql

import "strings"

// Binding powers, lowest first.
const (
	precLowest = iota
	precOr
	precAnd
	precNot
	precEquality // = != IS IN LIKE BETWEEN ISNULL NOTNULL
	precCompare  // < <= > >=
	precSum      // + -
	precProduct  // * / %
	precConcat   // ||
	precPrefix   // unary - +
)

var binaryOps = map[TokenType]BinaryOp{
	OR:      OpOr,
	AND:     OpAnd,
	EQ:      OpEq,
	NEQ:     OpNe,
	LT:      OpLt,
	LTE:     OpLe,
	GT:      OpGt,
	GTE:     OpGe,
	PLUS:    OpAdd,
	MINUS:   OpSub,
	STAR:    OpMul,
	SLASH:   OpDiv,
	PERCENT: OpMod,
	CONCAT:  OpConcat,
}

// infixPrec returns the binding power of cur when it appears after an
// operand, or precLowest when it cannot continue an expression.
func (p *Parser) infixPrec() int {
	switch p.cur.Type {
	case OR:
		return precOr
	case AND:
		return precAnd
	case EQ, NEQ, IS, IN, LIKE, BETWEEN, ISNULL, NOTNULL:
		return precEquality
	case NOT:
		switch p.peek.Type {
		case IN, LIKE, BETWEEN, NULL:
			return precEquality
		}
		return precLowest
	case LT, LTE, GT, GTE:
		return precCompare
	case PLUS, MINUS:
		return precSum
	case STAR, SLASH, PERCENT:
		return precProduct
	case CONCAT:
		return precConcat
	default:
		return precLowest
	}
}

// parseExpr parses an expression whose operators all bind tighter than prec.
func (p *Parser) parseExpr(prec int) (Expr, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	return p.parseExprFrom(left, prec)
}

// parseExprFrom continues an expression whose leading operand has already
// been parsed.
func (p *Parser) parseExprFrom(left Expr, prec int) (Expr, error) {
	var err error
	for {
		next := p.infixPrec()
		if next <= prec {
			return left, nil
		}
		if left, err = p.parseInfix(left, next); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseExprList() ([]Expr, error) {
	var list []Expr
	for {
		e, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if !p.accept(COMMA) {
			return list, nil
		}
	}
}

func (p *Parser) parsePrefix() (Expr, error) {
	tok := p.cur
	switch tok.Type {
	case INT, FLOAT:
		p.next()
		v, err := parseNumber(tok.Literal, false)
		if err != nil {
			return nil, p.errorf(tok, "malformed number %q", tok.Literal)
		}
		return &Literal{Value: v}, nil
	case STRING:
		p.next()
		return &Literal{Value: NewText(tok.Literal)}, nil
	case NULL:
		p.next()
		return &Literal{Value: Null}, nil
	case MINUS, PLUS:
		p.next()
		// Fold signed numeric literals so -9223372036854775808 stays an
		// integer.
		if p.cur.Type == INT || p.cur.Type == FLOAT {
			num := p.cur
			p.next()
			v, err := parseNumber(num.Literal, tok.Type == MINUS)
			if err != nil {
				return nil, p.errorf(num, "malformed number %q", num.Literal)
			}
			return &Literal{Value: v}, nil
		}
		operand, err := p.parseExpr(precPrefix)
		if err != nil {
			return nil, err
		}
		op := OpNeg
		if tok.Type == PLUS {
			op = OpPlus
		}
		return &UnaryExpr{Op: op, Expr: operand}, nil
	case NOT:
		p.next()
		if p.cur.Type == EXISTS {
			e, err := p.parseExists()
			if err != nil {
				return nil, err
			}
			e.Not = true
			return e, nil
		}
		operand, err := p.parseExpr(precNot)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: OpNot, Expr: operand}, nil
	case EXISTS:
		return p.parseExists()
	case LPAREN:
		p.next()
		if p.cur.Type == SELECT {
			sel, err := p.parseSelectStmt()
			if err != nil {
				return nil, err
			}
			if err := p.expect(RPAREN); err != nil {
				return nil, err
			}
			return &SubqueryExpr{Kind: SubqueryScalar, Select: sel}, nil
		}
		e, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		if err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case CASE:
		return p.parseCase()
	case CAST:
		return p.parseCast()
	case IDENT:
		return p.parseIdentExpr()
	case ILLEGAL:
		return nil, p.lexErr()
	default:
		return nil, p.unexpected("expression")
	}
}

// parseIdentExpr parses a column reference, a qualified column reference, or
// a function call.
func (p *Parser) parseIdentExpr() (Expr, error) {
	name := p.cur.Literal
	p.next()

	switch p.cur.Type {
	case LPAREN:
		return p.parseCall(strings.ToUpper(name))
	case DOT:
		p.next()
		col, err := p.parseIdent("column name")
		if err != nil {
			return nil, err
		}
		return &ColumnRef{Table: name, Column: col}, nil
	default:
		return &ColumnRef{Column: name}, nil
	}
}

func (p *Parser) parseCall(name string) (Expr, error) {
	p.next() // (
	call := &FunctionCall{Name: name}
	switch {
	case p.cur.Type == STAR:
		p.next()
		call.Star = true
	case p.cur.Type == RPAREN:
	default:
		if p.accept(DISTINCT) {
			call.Distinct = true
		} else {
			p.accept(ALL)
		}
		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		call.Args = args
	}
	if err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) parseExists() (*SubqueryExpr, error) {
	p.next() // EXISTS
	sel, err := p.parseParenSelect()
	if err != nil {
		return nil, err
	}
	return &SubqueryExpr{Kind: SubqueryExists, Select: sel}, nil
}

// parseParenSelect parses "( SELECT ... )".
func (p *Parser) parseParenSelect() (*SelectStmt, error) {
	if err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	if p.cur.Type != SELECT {
		return nil, p.unexpected("SELECT")
	}
	sel, err := p.parseSelectStmt()
	if err != nil {
		return nil, err
	}
	if err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return sel, nil
}

func (p *Parser) parseCase() (Expr, error) {
	p.next() // CASE
	c := &CaseExpr{}
	var err error
	if p.cur.Type != WHEN {
		if c.Operand, err = p.parseExpr(precLowest); err != nil {
			return nil, err
		}
	}
	for p.accept(WHEN) {
		var w WhenClause
		if w.Cond, err = p.parseExpr(precLowest); err != nil {
			return nil, err
		}
		if err := p.expect(THEN); err != nil {
			return nil, err
		}
		if w.Result, err = p.parseExpr(precLowest); err != nil {
			return nil, err
		}
		c.Whens = append(c.Whens, w)
	}
	if len(c.Whens) == 0 {
		return nil, p.unexpected("WHEN")
	}
	if p.accept(ELSE) {
		if c.Else, err = p.parseExpr(precLowest); err != nil {
			return nil, err
		}
	}
	if err := p.expect(END); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Parser) parseCast() (Expr, error) {
	p.next() // CAST
	if err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	e, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if err := p.expect(AS); err != nil {
		return nil, err
	}
	var words []string
	for p.cur.Type == IDENT {
		words = append(words, p.cur.Literal)
		p.next()
	}
	if len(words) == 0 {
		return nil, p.unexpected("type name")
	}
	if p.accept(LPAREN) {
		for p.cur.Type == INT || p.cur.Type == COMMA {
			p.next()
		}
		if err := p.expect(RPAREN); err != nil {
			return nil, err
		}
	}
	if err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return &CastExpr{Expr: e, Type: columnAffinity(strings.Join(words, " "))}, nil
}

func (p *Parser) parseInfix(left Expr, prec int) (Expr, error) {
	tok := p.cur
	if op, ok := binaryOps[tok.Type]; ok {
		p.next()
		right, err := p.parseExpr(prec)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: op, Left: left, Right: right}, nil
	}

	switch tok.Type {
	case ISNULL:
		p.next()
		return &IsNullExpr{Expr: left}, nil
	case NOTNULL:
		p.next()
		return &IsNullExpr{Expr: left, Not: true}, nil
	case IS:
		p.next()
		not := p.accept(NOT)
		if p.accept(NULL) {
			return &IsNullExpr{Expr: left, Not: not}, nil
		}
		right, err := p.parseExpr(prec)
		if err != nil {
			return nil, err
		}
		op := OpIs
		if not {
			op = OpIsNot
		}
		return &BinaryExpr{Op: op, Left: left, Right: right}, nil
	}

	not := p.accept(NOT)
	switch p.cur.Type {
	case NULL:
		// "x NOT NULL"
		p.next()
		return &IsNullExpr{Expr: left, Not: true}, nil
	case IN:
		p.next()
		return p.parseIn(left, not)
	case LIKE:
		p.next()
		pattern, err := p.parseExpr(prec)
		if err != nil {
			return nil, err
		}
		e := &LikeExpr{Expr: left, Pattern: pattern, Not: not}
		if p.accept(ESCAPE) {
			if e.Escape, err = p.parseExpr(prec); err != nil {
				return nil, err
			}
		}
		return e, nil
	case BETWEEN:
		p.next()
		low, err := p.parseExpr(prec)
		if err != nil {
			return nil, err
		}
		if err := p.expect(AND); err != nil {
			return nil, err
		}
		high, err := p.parseExpr(prec)
		if err != nil {
			return nil, err
		}
		return &BetweenExpr{Expr: left, Low: low, High: high, Not: not}, nil
	default:
		return nil, p.unexpected("IN, LIKE, BETWEEN or NULL")
	}
}

func (p *Parser) parseIn(left Expr, not bool) (Expr, error) {
	if err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	if p.cur.Type == SELECT {
		sel, err := p.parseSelectStmt()
		if err != nil {
			return nil, err
		}
		if err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return &SubqueryExpr{Kind: SubqueryIn, Select: sel, Left: left, Not: not}, nil
	}
	e := &InListExpr{Expr: left, Not: not}
	if p.cur.Type != RPAREN {
		list, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		e.List = list
	}
	if err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return e, nil
}
