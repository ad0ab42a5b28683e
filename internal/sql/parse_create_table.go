package sql

import "strings"

// parseCreateTable parses:
//
//	CREATE TABLE [IF NOT EXISTS] name (
//	    col [type] [NOT NULL | NULL | PRIMARY KEY | UNIQUE | DEFAULT lit]...,
//	    [PRIMARY KEY (cols)], [UNIQUE (cols)]
//	)
func (p *Parser) parseCreateTable() (Statement, error) {
	p.next() // CREATE
	p.next() // TABLE

	ifNotExists, err := p.parseIfNotExists()
	if err != nil {
		return nil, err
	}
	name, err := p.parseIdent("table name")
	if err != nil {
		return nil, err
	}
	if err := p.expect(LPAREN); err != nil {
		return nil, err
	}

	stmt := &CreateTableStmt{TableName: name, IfNotExists: ifNotExists}
	for {
		switch p.cur.Type {
		case PRIMARY, UNIQUE:
			key, err := p.parseKeyConstraint()
			if err != nil {
				return nil, err
			}
			stmt.Keys = append(stmt.Keys, key)
		default:
			col, err := p.parseColumnDef()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
		}
		if !p.accept(COMMA) {
			break
		}
	}
	if err := p.expect(RPAREN); err != nil {
		return nil, err
	}

	if len(stmt.Columns) == 0 {
		return nil, p.errorf(p.cur, "CREATE TABLE: no column definitions")
	}
	seen := make(map[string]bool, len(stmt.Columns))
	for _, c := range stmt.Columns {
		k := strings.ToLower(c.Name)
		if seen[k] {
			return nil, p.errorf(p.cur, "duplicate column name: %s", c.Name)
		}
		seen[k] = true
	}
	return stmt, nil
}

func (p *Parser) parseKeyConstraint() (KeyConstraint, error) {
	var key KeyConstraint
	if p.accept(PRIMARY) {
		if err := p.expect(KEY); err != nil {
			return key, err
		}
		key.PrimaryKey = true
	} else {
		p.next() // UNIQUE
	}
	cols, err := p.parseIdentList("column name")
	if err != nil {
		return key, err
	}
	key.Columns = cols
	return key, nil
}

func (p *Parser) parseColumnDef() (Column, error) {
	name, err := p.parseIdent("column name")
	if err != nil {
		return Column{}, err
	}
	col := Column{Name: name}

	// The type name is optional and may span several words
	// ("DOUBLE PRECISION") plus a size ("VARCHAR(10)", "DECIMAL(10,2)").
	var words []string
	for p.cur.Type == IDENT {
		words = append(words, strings.ToUpper(p.cur.Literal))
		p.next()
	}
	if len(words) > 0 && p.accept(LPAREN) {
		for p.cur.Type != RPAREN {
			if p.cur.Type != INT && p.cur.Type != COMMA && p.cur.Type != MINUS && p.cur.Type != PLUS {
				return Column{}, p.unexpected("type size")
			}
			p.next()
		}
		p.next()
	}
	col.Type = columnAffinity(strings.Join(words, " "))

	for {
		switch p.cur.Type {
		case NOT:
			p.next()
			if err := p.expect(NULL); err != nil {
				return Column{}, err
			}
			col.NotNull = true
		case NULL:
			p.next()
		case PRIMARY:
			p.next()
			if err := p.expect(KEY); err != nil {
				return Column{}, err
			}
			p.accept(ASC)
			p.accept(DESC)
			col.PrimaryKey = true
		case UNIQUE:
			p.next()
			col.Unique = true
		case DEFAULT:
			p.next()
			v, err := p.parseSignedLiteral()
			if err != nil {
				return Column{}, err
			}
			col.Default = &v
		default:
			return col, nil
		}
	}
}

// parseSignedLiteral parses a literal with an optional sign, as allowed in
// DEFAULT clauses.
func (p *Parser) parseSignedLiteral() (Value, error) {
	neg := false
	switch p.cur.Type {
	case MINUS:
		neg = true
		p.next()
	case PLUS:
		p.next()
	}
	tok := p.cur
	switch tok.Type {
	case INT, FLOAT:
		p.next()
		v, err := parseNumber(tok.Literal, neg)
		if err != nil {
			return Value{}, p.errorf(tok, "malformed number %q", tok.Literal)
		}
		return v, nil
	case STRING:
		if neg {
			return Value{}, p.unexpected("number")
		}
		p.next()
		return NewText(tok.Literal), nil
	case NULL:
		if neg {
			return Value{}, p.unexpected("number")
		}
		p.next()
		return Null, nil
	default:
		return Value{}, p.unexpected("literal")
	}
}

// parseDropTable parses DROP TABLE [IF EXISTS] name.
func (p *Parser) parseDropTable() (Statement, error) {
	p.next() // DROP
	p.next() // TABLE
	ifExists, err := p.parseIfExists()
	if err != nil {
		return nil, err
	}
	name, err := p.parseIdent("table name")
	if err != nil {
		return nil, err
	}
	return &DropTableStmt{TableName: name, IfExists: ifExists}, nil
}
