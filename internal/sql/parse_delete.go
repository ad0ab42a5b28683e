package sql

// parseDelete parses:
//
//	DELETE FROM name [WHERE expr]
func (p *Parser) parseDelete() (Statement, error) {
	p.next() // DELETE
	if err := p.expect(FROM); err != nil {
		return nil, err
	}
	name, err := p.parseIdent("table name")
	if err != nil {
		return nil, err
	}
	stmt := &DeleteStmt{TableName: name}
	if p.accept(WHERE) {
		if stmt.Where, err = p.parseExpr(precLowest); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}
