package sql

import (
	"fmt"
	"strings"
)

// Parse parses a single SQL statement string into an AST Statement.
// A trailing semicolon is allowed. Parsing has no side effects.
func Parse(query string) (Statement, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, &ParseError{Pos: 0, Msg: "empty statement"}
	}

	p := newParser(q)
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == SEMICOLON {
		p.next()
	}
	if p.cur.Type != EOF {
		return nil, p.unexpected("end of statement")
	}
	if err := p.lexErr(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// Parser is a recursive descent SQL parser. cur is the next unconsumed
// token; peek is the one after it.
type Parser struct {
	lexer   *Lexer
	input   string
	cur     Token
	peek    Token
	prevEnd int // end offset of the last consumed token
}

func newParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input), input: input}
	p.cur = p.lexer.NextToken()
	p.peek = p.lexer.NextToken()
	return p
}

func (p *Parser) next() {
	p.prevEnd = p.cur.End
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) parseStatement() (Statement, error) {
	switch p.cur.Type {
	case CREATE:
		switch {
		case p.peek.Type == TABLE:
			return p.parseCreateTable()
		case p.peek.Type == INDEX || p.peek.Type == UNIQUE:
			return p.parseCreateIndex()
		default:
			p.next()
			return nil, p.unexpected("TABLE or INDEX")
		}
	case DROP:
		switch p.peek.Type {
		case TABLE:
			return p.parseDropTable()
		case INDEX:
			return p.parseDropIndex()
		default:
			p.next()
			return nil, p.unexpected("TABLE or INDEX")
		}
	case INSERT:
		return p.parseInsert()
	case SELECT:
		return p.parseSelect()
	case UPDATE:
		return p.parseUpdate()
	case DELETE:
		return p.parseDelete()
	case ILLEGAL:
		return nil, p.lexErr()
	case EOF:
		return nil, &ParseError{Pos: 0, Msg: "empty statement"}
	default:
		return nil, p.errorf(p.cur, "unknown statement starting with %q", p.cur.Literal)
	}
}

// errorf builds a ParseError at tok. A pending lexical error wins, since it
// is the root cause of whatever the parser tripped over.
func (p *Parser) errorf(tok Token, format string, args ...any) error {
	if err := p.lexErr(); err != nil {
		return err
	}
	return &ParseError{Pos: tok.Pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) lexErr() error {
	if e := p.lexer.Err(); e != nil {
		return e
	}
	return nil
}

// unexpected reports that cur is not what the grammar wanted.
func (p *Parser) unexpected(want string) error {
	if p.cur.Type == EOF {
		return p.errorf(p.cur, "unexpected end of input, expected %s", want)
	}
	return p.errorf(p.cur, "unexpected %s %q, expected %s", describe(p.cur.Type), p.cur.Literal, want)
}

func describe(t TokenType) string {
	switch {
	case t.IsKeyword():
		return "keyword"
	case t == IDENT:
		return "identifier"
	case t == INT || t == FLOAT || t == STRING:
		return "literal"
	default:
		return "token"
	}
}

// expect consumes cur if it has type t.
func (p *Parser) expect(t TokenType) error {
	if p.cur.Type != t {
		return p.unexpected(fmt.Sprintf("%q", t.String()))
	}
	p.next()
	return nil
}

// accept consumes cur and returns true if it has type t.
func (p *Parser) accept(t TokenType) bool {
	if p.cur.Type == t {
		p.next()
		return true
	}
	return false
}

// parseIdent consumes an identifier and returns its name.
func (p *Parser) parseIdent(what string) (string, error) {
	if p.cur.Type != IDENT {
		return "", p.unexpected(what)
	}
	name := p.cur.Literal
	p.next()
	return name, nil
}

// parseIdentList parses "(a, b, c)".
func (p *Parser) parseIdentList(what string) ([]string, error) {
	if err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	var out []string
	for {
		name, err := p.parseIdent(what)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
		if !p.accept(COMMA) {
			break
		}
	}
	if err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return out, nil
}

// parseIfExists consumes an optional "IF EXISTS".
func (p *Parser) parseIfExists() (bool, error) {
	if !p.accept(IF) {
		return false, nil
	}
	if err := p.expect(EXISTS); err != nil {
		return false, err
	}
	return true, nil
}

// parseIfNotExists consumes an optional "IF NOT EXISTS".
func (p *Parser) parseIfNotExists() (bool, error) {
	if !p.accept(IF) {
		return false, nil
	}
	if err := p.expect(NOT); err != nil {
		return false, err
	}
	if err := p.expect(EXISTS); err != nil {
		return false, err
	}
	return true, nil
}

// ParseExpr parses a standalone expression. It is used by tests and by
// callers that store expression text.
func ParseExpr(text string) (Expr, error) {
	p := newParser(strings.TrimSpace(text))
	e, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if p.cur.Type != EOF {
		return nil, p.unexpected("end of expression")
	}
	return e, nil
}
