package sql

import (
	"strings"
)

// Lexer tokenizes SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char
	err     *ParseError
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// Err returns the first lexical error (unterminated literal, stray
// character), if any. Once set, NextToken only returns EOF.
func (l *Lexer) Err() *ParseError { return l.err }

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEnd() bool { return l.pos >= len(l.input) }

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	if l.err != nil {
		return Token{Type: EOF, Pos: len(l.input), End: len(l.input)}
	}
	l.skipWhitespaceAndComments()

	start := l.pos
	if l.atEnd() {
		return Token{Type: EOF, Pos: start, End: start}
	}

	var typ TokenType
	switch l.ch {
	case '+':
		typ = PLUS
	case '-':
		typ = MINUS
	case '*':
		typ = STAR
	case '/':
		typ = SLASH
	case '%':
		typ = PERCENT
	case ',':
		typ = COMMA
	case ';':
		typ = SEMICOLON
	case '(':
		typ = LPAREN
	case ')':
		typ = RPAREN
	case '=':
		typ = EQ
		if l.peekChar() == '=' {
			l.readChar()
		}
	case '!':
		if l.peekChar() != '=' {
			return l.fail(start, "unexpected character '!'")
		}
		l.readChar()
		typ = NEQ
	case '<':
		typ = LT
		switch l.peekChar() {
		case '=':
			l.readChar()
			typ = LTE
		case '>':
			l.readChar()
			typ = NEQ
		}
	case '>':
		typ = GT
		if l.peekChar() == '=' {
			l.readChar()
			typ = GTE
		}
	case '|':
		if l.peekChar() != '|' {
			return l.fail(start, "unexpected character '|'")
		}
		l.readChar()
		typ = CONCAT
	case '.':
		if isDigit(l.peekChar()) {
			return l.readNumber()
		}
		typ = DOT
	case '\'':
		s, ok := l.readQuoted('\'')
		if !ok {
			return l.fail(start, "unterminated string literal")
		}
		return Token{Type: STRING, Literal: s, Pos: start, End: l.pos}
	case '"', '`':
		s, ok := l.readQuoted(l.ch)
		if !ok {
			return l.fail(start, "unterminated quoted identifier")
		}
		return Token{Type: IDENT, Literal: s, Pos: start, End: l.pos}
	case '[':
		end := strings.IndexByte(l.input[l.readPos:], ']')
		if end < 0 {
			return l.fail(start, "unterminated quoted identifier")
		}
		lit := l.input[l.readPos : l.readPos+end]
		for l.ch != ']' {
			l.readChar()
		}
		l.readChar()
		return Token{Type: IDENT, Literal: lit, Pos: start, End: l.pos}
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			lit := l.readIdentifier()
			return Token{Type: LookupIdent(strings.ToUpper(lit)), Literal: lit, Pos: start, End: l.pos}
		case isDigit(l.ch):
			return l.readNumber()
		default:
			return l.fail(start, "unexpected character "+quoteChar(l.ch))
		}
	}

	l.readChar()
	return Token{Type: typ, Literal: l.input[start:l.pos], Pos: start, End: l.pos}
}

func (l *Lexer) fail(pos int, msg string) Token {
	l.err = &ParseError{Pos: pos, Msg: msg}
	return Token{Type: ILLEGAL, Literal: msg, Pos: pos, End: pos}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f':
			l.readChar()
		case l.ch == '-' && l.peekChar() == '-':
			for !l.atEnd() && l.ch != '\n' {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for !l.atEnd() && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if !l.atEnd() {
				l.readChar()
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads an integer, decimal or exponent literal.
func (l *Lexer) readNumber() Token {
	start := l.pos
	typ := INT
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		typ = FLOAT
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && l.readPos+1 < len(l.input) && isDigit(l.input[l.readPos+1])) {
			typ = FLOAT
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return Token{Type: typ, Literal: l.input[start:l.pos], Pos: start, End: l.pos}
}

// readQuoted reads a literal delimited by q, where a doubled q stands for
// one q character. It reports false when the input ends first.
func (l *Lexer) readQuoted(q byte) (string, bool) {
	var sb strings.Builder
	l.readChar() // opening quote
	for {
		if l.atEnd() {
			return "", false
		}
		if l.ch == q {
			if l.peekChar() == q {
				sb.WriteByte(q)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // closing quote
			return sb.String(), true
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
}

func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch >= 0x80
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func quoteChar(ch byte) string {
	return "'" + string(rune(ch)) + "'"
}
