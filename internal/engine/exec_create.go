package engine

import (
	"errors"
	"slices"

	"memDB/internal/index"
	"memDB/internal/sql"
)

// isKind reports whether err is an *sql.Error of the given kind.
func isKind(err error, kind sql.ErrorKind) bool {
	return errors.Is(err, &sql.Error{Kind: kind})
}

// buildSchema turns a CREATE TABLE statement into a schema, collecting
// column- and table-level PRIMARY KEY and UNIQUE constraints into Keys.
func buildSchema(stmt *sql.CreateTableStmt) (*sql.Schema, error) {
	schema := &sql.Schema{Table: stmt.TableName, Columns: slices.Clone(stmt.Columns)}

	pk := 0
	for _, c := range schema.Columns {
		if c.PrimaryKey {
			pk++
		}
	}
	for _, k := range stmt.Keys {
		if k.PrimaryKey {
			pk++
		}
	}
	if pk > 1 {
		return nil, sql.Errorf(sql.ErrConstraintViolation, "table %s has more than one primary key", stmt.TableName)
	}

	addKey := func(cols []int) {
		for _, existing := range schema.Keys {
			if slices.Equal(existing, cols) {
				return
			}
		}
		schema.Keys = append(schema.Keys, cols)
	}
	for i, c := range schema.Columns {
		if c.PrimaryKey || c.Unique {
			addKey([]int{i})
		}
	}
	for _, k := range stmt.Keys {
		cols := make([]int, len(k.Columns))
		for i, name := range k.Columns {
			pos := schema.ColumnIndex(name)
			if pos < 0 {
				return nil, sql.Errorf(sql.ErrUnknownColumn, "no such column: %s", name)
			}
			cols[i] = pos
		}
		if k.PrimaryKey && len(cols) == 1 {
			schema.Columns[cols[0]].PrimaryKey = true
		}
		addKey(cols)
	}
	return schema, nil
}

func (e *DBEngine) executeCreateTable(stmt *sql.CreateTableStmt) (*Result, error) {
	schema, err := buildSchema(stmt)
	if err != nil {
		return nil, err
	}
	if err := e.store.CreateTable(schema); err != nil {
		if stmt.IfNotExists && isKind(err, sql.ErrTableAlreadyExists) {
			return rowsAffected(0), nil
		}
		return nil, err
	}
	return rowsAffected(0), nil
}

func (e *DBEngine) executeDropTable(stmt *sql.DropTableStmt) (*Result, error) {
	if err := e.store.DropTable(stmt.TableName); err != nil {
		if stmt.IfExists && isKind(err, sql.ErrUnknownTable) {
			return rowsAffected(0), nil
		}
		return nil, err
	}
	return rowsAffected(0), nil
}

func (e *DBEngine) executeCreateIndex(stmt *sql.CreateIndexStmt) (*Result, error) {
	meta := index.Meta{
		Name:    stmt.IndexName,
		Table:   stmt.TableName,
		Columns: stmt.Columns,
		Unique:  stmt.Unique,
	}
	if err := e.store.CreateIndex(meta); err != nil {
		if stmt.IfNotExists && isKind(err, sql.ErrIndexAlreadyExists) {
			return rowsAffected(0), nil
		}
		return nil, err
	}
	return rowsAffected(0), nil
}

func (e *DBEngine) executeDropIndex(stmt *sql.DropIndexStmt) (*Result, error) {
	if err := e.store.DropIndex(stmt.IndexName); err != nil {
		if stmt.IfExists && isKind(err, sql.ErrUnknownIndex) {
			return rowsAffected(0), nil
		}
		return nil, err
	}
	return rowsAffected(0), nil
}
