package sql

// TokenType represents the type of a lexical token.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // column_name, table_name, "quoted"
	INT    // 123
	FLOAT  // 1.23, 1e5
	STRING // 'hello'

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	EQ      // = or ==
	NEQ     // != or <>
	LT      // <
	GT      // >
	LTE     // <=
	GTE     // >=
	CONCAT  // ||

	// Delimiters
	COMMA     // ,
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )
	DOT       // .

	keywordStart

	// Keywords
	ALL
	AND
	AS
	ASC
	BETWEEN
	BY
	CASE
	CAST
	CREATE
	CROSS
	DEFAULT
	DELETE
	DESC
	DISTINCT
	DROP
	ELSE
	END
	ESCAPE
	EXCEPT
	EXISTS
	FROM
	GROUP
	HAVING
	IF
	IN
	INDEX
	INNER
	INSERT
	INTERSECT
	INTO
	IS
	ISNULL
	JOIN
	KEY
	LEFT
	LIKE
	LIMIT
	NOT
	NOTNULL
	NULL
	OFFSET
	ON
	OR
	ORDER
	OUTER
	PRIMARY
	SELECT
	SET
	TABLE
	THEN
	UNION
	UNIQUE
	UPDATE
	VALUES
	WHEN
	WHERE

	keywordEnd
)

var keywords = map[string]TokenType{
	"ALL":       ALL,
	"AND":       AND,
	"AS":        AS,
	"ASC":       ASC,
	"BETWEEN":   BETWEEN,
	"BY":        BY,
	"CASE":      CASE,
	"CAST":      CAST,
	"CREATE":    CREATE,
	"CROSS":     CROSS,
	"DEFAULT":   DEFAULT,
	"DELETE":    DELETE,
	"DESC":      DESC,
	"DISTINCT":  DISTINCT,
	"DROP":      DROP,
	"ELSE":      ELSE,
	"END":       END,
	"ESCAPE":    ESCAPE,
	"EXCEPT":    EXCEPT,
	"EXISTS":    EXISTS,
	"FROM":      FROM,
	"GROUP":     GROUP,
	"HAVING":    HAVING,
	"IF":        IF,
	"IN":        IN,
	"INDEX":     INDEX,
	"INNER":     INNER,
	"INSERT":    INSERT,
	"INTERSECT": INTERSECT,
	"INTO":      INTO,
	"IS":        IS,
	"ISNULL":    ISNULL,
	"JOIN":      JOIN,
	"KEY":       KEY,
	"LEFT":      LEFT,
	"LIKE":      LIKE,
	"LIMIT":     LIMIT,
	"NOT":       NOT,
	"NOTNULL":   NOTNULL,
	"NULL":      NULL,
	"OFFSET":    OFFSET,
	"ON":        ON,
	"OR":        OR,
	"ORDER":     ORDER,
	"OUTER":     OUTER,
	"PRIMARY":   PRIMARY,
	"SELECT":    SELECT,
	"SET":       SET,
	"TABLE":     TABLE,
	"THEN":      THEN,
	"UNION":     UNION,
	"UNIQUE":    UNIQUE,
	"UPDATE":    UPDATE,
	"VALUES":    VALUES,
	"WHEN":      WHEN,
	"WHERE":     WHERE,
}

// LookupIdent returns the keyword token type for an upper-cased word, or
// IDENT.
func LookupIdent(upper string) TokenType {
	if t, ok := keywords[upper]; ok {
		return t
	}
	return IDENT
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool { return t > keywordStart && t < keywordEnd }

var tokenNames = map[TokenType]string{
	EOF:       "end of input",
	ILLEGAL:   "ILLEGAL",
	IDENT:     "identifier",
	INT:       "integer",
	FLOAT:     "number",
	STRING:    "string",
	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	EQ:        "=",
	NEQ:       "!=",
	LT:        "<",
	GT:        ">",
	LTE:       "<=",
	GTE:       ">=",
	CONCAT:    "||",
	COMMA:     ",",
	SEMICOLON: ";",
	LPAREN:    "(",
	RPAREN:    ")",
	DOT:       ".",
}

func (t TokenType) String() string {
	if n, ok := tokenNames[t]; ok {
		return n
	}
	for word, kw := range keywords {
		if kw == t {
			return word
		}
	}
	return "UNKNOWN"
}

// Token represents a lexical token. Literal holds the source text, except
// for strings and quoted identifiers where it holds the unescaped contents.
// Pos and End are byte offsets of the token in the input.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
	End     int
}
