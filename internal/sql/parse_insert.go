package sql

// parseInsert parses:
//
//	INSERT INTO name [(col, ...)] VALUES (expr, ...), (expr, ...)
//	INSERT INTO name [(col, ...)] SELECT ...
func (p *Parser) parseInsert() (Statement, error) {
	p.next() // INSERT
	if err := p.expect(INTO); err != nil {
		return nil, err
	}
	name, err := p.parseIdent("table name")
	if err != nil {
		return nil, err
	}
	stmt := &InsertStmt{TableName: name}

	if p.cur.Type == LPAREN {
		cols, err := p.parseIdentList("column name")
		if err != nil {
			return nil, err
		}
		stmt.Columns = cols
	}

	switch p.cur.Type {
	case SELECT:
		sel, err := p.parseSelectStmt()
		if err != nil {
			return nil, err
		}
		stmt.Select = sel
		return stmt, nil
	case VALUES:
		p.next()
	default:
		return nil, p.unexpected("VALUES or SELECT")
	}

	for {
		if err := p.expect(LPAREN); err != nil {
			return nil, err
		}
		row, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		if err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		if len(stmt.Rows) > 0 && len(row) != len(stmt.Rows[0]) {
			return nil, p.errorf(p.cur, "all VALUES must have the same number of terms")
		}
		stmt.Rows = append(stmt.Rows, row)
		if !p.accept(COMMA) {
			break
		}
	}
	return stmt, nil
}
