package sql

// parseCreateIndex parses:
//
//	CREATE [UNIQUE] INDEX [IF NOT EXISTS] name ON table (col [ASC|DESC], ...)
func (p *Parser) parseCreateIndex() (Statement, error) {
	p.next() // CREATE
	stmt := &CreateIndexStmt{}
	if p.accept(UNIQUE) {
		stmt.Unique = true
	}
	if err := p.expect(INDEX); err != nil {
		return nil, err
	}

	var err error
	if stmt.IfNotExists, err = p.parseIfNotExists(); err != nil {
		return nil, err
	}
	if stmt.IndexName, err = p.parseIdent("index name"); err != nil {
		return nil, err
	}
	if err := p.expect(ON); err != nil {
		return nil, err
	}
	if stmt.TableName, err = p.parseIdent("table name"); err != nil {
		return nil, err
	}
	if err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	for {
		col, err := p.parseIdent("column name")
		if err != nil {
			return nil, err
		}
		if !p.accept(ASC) {
			p.accept(DESC)
		}
		stmt.Columns = append(stmt.Columns, col)
		if !p.accept(COMMA) {
			break
		}
	}
	if err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseDropIndex parses DROP INDEX [IF EXISTS] name.
func (p *Parser) parseDropIndex() (Statement, error) {
	p.next() // DROP
	p.next() // INDEX
	ifExists, err := p.parseIfExists()
	if err != nil {
		return nil, err
	}
	name, err := p.parseIdent("index name")
	if err != nil {
		return nil, err
	}
	return &DropIndexStmt{IndexName: name, IfExists: ifExists}, nil
}
