package engine

import (
	"memDB/internal/sql"
)

func (e *DBEngine) executeDelete(stmt *sql.DeleteStmt) (*Result, error) {
	return e.inWriteTx(func(x *execCtx) (int, error) {
		schema, _, err := x.tx.Scan(stmt.TableName)
		if err != nil {
			return 0, err
		}
		match, err := x.rowFilter(stmt.Where, tableScope(schema))
		if err != nil {
			return 0, err
		}
		return x.tx.Delete(stmt.TableName, match)
	})
}
