package sql

func (p *Parser) parseSelect() (Statement, error) {
	sel, err := p.parseSelectStmt()
	if err != nil {
		return nil, err
	}
	return sel, nil
}

// parseSelectStmt parses:
//
//	core [UNION [ALL] | INTERSECT | EXCEPT core]...
//	[ORDER BY expr [ASC|DESC], ...]
//	[LIMIT n [OFFSET m] | LIMIT m, n]
func (p *Parser) parseSelectStmt() (*SelectStmt, error) {
	stmt, err := p.parseSelectCore()
	if err != nil {
		return nil, err
	}

compounds:
	for {
		var op CompoundOp
		switch p.cur.Type {
		case UNION:
			p.next()
			op = Union
			if p.accept(ALL) {
				op = UnionAll
			}
		case INTERSECT:
			p.next()
			op = Intersect
		case EXCEPT:
			p.next()
			op = Except
		default:
			break compounds
		}
		core, err := p.parseSelectCore()
		if err != nil {
			return nil, err
		}
		stmt.Compounds = append(stmt.Compounds, CompoundPart{Op: op, Select: core})
	}

	if p.accept(ORDER) {
		if err := p.expect(BY); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			item := OrderItem{Expr: e}
			if p.accept(DESC) {
				item.Desc = true
			} else {
				p.accept(ASC)
			}
			stmt.OrderBy = append(stmt.OrderBy, item)
			if !p.accept(COMMA) {
				break
			}
		}
	}

	if p.accept(LIMIT) {
		first, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		stmt.Limit = first
		switch {
		case p.accept(OFFSET):
			if stmt.Offset, err = p.parseExpr(precLowest); err != nil {
				return nil, err
			}
		case p.accept(COMMA):
			// LIMIT offset, count
			stmt.Offset = first
			if stmt.Limit, err = p.parseExpr(precLowest); err != nil {
				return nil, err
			}
		}
	}
	return stmt, nil
}

// parseSelectCore parses one SELECT ... [FROM] [WHERE] [GROUP BY] [HAVING]
// block without ORDER BY or LIMIT.
func (p *Parser) parseSelectCore() (*SelectStmt, error) {
	if err := p.expect(SELECT); err != nil {
		return nil, err
	}
	stmt := &SelectStmt{}
	if p.accept(DISTINCT) {
		stmt.Distinct = true
	} else {
		p.accept(ALL)
	}

	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		stmt.Items = append(stmt.Items, item)
		if !p.accept(COMMA) {
			break
		}
	}

	var err error
	if p.accept(FROM) {
		if stmt.From, err = p.parseFrom(); err != nil {
			return nil, err
		}
	}
	if p.accept(WHERE) {
		if stmt.Where, err = p.parseExpr(precLowest); err != nil {
			return nil, err
		}
	}
	if p.accept(GROUP) {
		if err := p.expect(BY); err != nil {
			return nil, err
		}
		if stmt.GroupBy, err = p.parseExprList(); err != nil {
			return nil, err
		}
	}
	if p.accept(HAVING) {
		if stmt.Having, err = p.parseExpr(precLowest); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseSelectItem() (SelectItem, error) {
	if p.accept(STAR) {
		return SelectItem{Star: true}, nil
	}
	start := p.cur.Pos
	var e Expr
	var err error
	if p.cur.Type == IDENT && p.peek.Type == DOT {
		table := p.cur.Literal
		p.next()
		p.next()
		if p.accept(STAR) {
			return SelectItem{Star: true, StarTable: table}, nil
		}
		var col string
		if col, err = p.parseIdent("column name"); err != nil {
			return SelectItem{}, err
		}
		e, err = p.parseExprFrom(&ColumnRef{Table: table, Column: col}, precLowest)
	} else {
		e, err = p.parseExpr(precLowest)
	}
	if err != nil {
		return SelectItem{}, err
	}
	item := SelectItem{Expr: e, Text: p.input[start:p.prevEnd]}

	switch {
	case p.accept(AS):
		if p.cur.Type != IDENT && p.cur.Type != STRING {
			return SelectItem{}, p.unexpected("alias")
		}
		item.Alias = p.cur.Literal
		p.next()
	case p.cur.Type == IDENT || p.cur.Type == STRING:
		item.Alias = p.cur.Literal
		p.next()
	}
	return item, nil
}

// parseFrom parses a left-deep chain of table references joined by commas
// or JOIN operators.
func (p *Parser) parseFrom() (TableRef, error) {
	left, err := p.parseTablePrimary()
	if err != nil {
		return nil, err
	}
	for {
		var kind JoinKind
		switch p.cur.Type {
		case COMMA:
			p.next()
			kind = JoinCross
		case CROSS:
			p.next()
			if err := p.expect(JOIN); err != nil {
				return nil, err
			}
			kind = JoinCross
		case JOIN:
			p.next()
			kind = JoinInner
		case INNER:
			p.next()
			if err := p.expect(JOIN); err != nil {
				return nil, err
			}
			kind = JoinInner
		case LEFT:
			p.next()
			p.accept(OUTER)
			if err := p.expect(JOIN); err != nil {
				return nil, err
			}
			kind = JoinLeft
		default:
			return left, nil
		}

		right, err := p.parseTablePrimary()
		if err != nil {
			return nil, err
		}
		join := &JoinRef{Left: left, Right: right, Kind: kind}
		if kind != JoinCross || p.cur.Type == ON {
			if p.accept(ON) {
				if join.On, err = p.parseExpr(precLowest); err != nil {
					return nil, err
				}
			} else if kind == JoinLeft {
				return nil, p.unexpected("ON")
			}
		}
		left = join
	}
}

func (p *Parser) parseTablePrimary() (TableRef, error) {
	if p.accept(LPAREN) {
		if p.cur.Type == SELECT {
			sel, err := p.parseSelectStmt()
			if err != nil {
				return nil, err
			}
			if err := p.expect(RPAREN); err != nil {
				return nil, err
			}
			alias, err := p.parseAlias()
			if err != nil {
				return nil, err
			}
			return &DerivedTable{Select: sel, Alias: alias}, nil
		}
		ref, err := p.parseFrom()
		if err != nil {
			return nil, err
		}
		if err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return ref, nil
	}

	name, err := p.parseIdent("table name")
	if err != nil {
		return nil, err
	}
	alias, err := p.parseAlias()
	if err != nil {
		return nil, err
	}
	return &TableName{Name: name, Alias: alias}, nil
}

// parseAlias consumes an optional "[AS] alias".
func (p *Parser) parseAlias() (string, error) {
	if p.accept(AS) {
		return p.parseIdent("alias")
	}
	if p.cur.Type == IDENT {
		name := p.cur.Literal
		p.next()
		return name, nil
	}
	return "", nil
}
