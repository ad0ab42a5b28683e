package sql

// parseUpdate parses:
//
//	UPDATE name SET col1 = expr1, col2 = expr2 [WHERE expr]
func (p *Parser) parseUpdate() (Statement, error) {
	p.next() // UPDATE
	name, err := p.parseIdent("table name")
	if err != nil {
		return nil, err
	}
	if err := p.expect(SET); err != nil {
		return nil, err
	}

	stmt := &UpdateStmt{TableName: name}
	for {
		col, err := p.parseIdent("column name")
		if err != nil {
			return nil, err
		}
		if err := p.expect(EQ); err != nil {
			return nil, err
		}
		val, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		stmt.Assignments = append(stmt.Assignments, Assignment{Column: col, Value: val})
		if !p.accept(COMMA) {
			break
		}
	}

	if p.accept(WHERE) {
		if stmt.Where, err = p.parseExpr(precLowest); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}
