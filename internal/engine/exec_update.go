package engine

import (
	"memDB/internal/sql"
)

func (e *DBEngine) executeUpdate(stmt *sql.UpdateStmt) (*Result, error) {
	return e.inWriteTx(func(x *execCtx) (int, error) {
		schema, _, err := x.tx.Scan(stmt.TableName)
		if err != nil {
			return 0, err
		}
		sc := tableScope(schema)
		sets, err := resolveAssignments(schema, stmt.Assignments, sc)
		if err != nil {
			return 0, err
		}
		match, err := x.rowFilter(stmt.Where, sc)
		if err != nil {
			return 0, err
		}

		return x.tx.Update(stmt.TableName, func(row sql.Row) (sql.Row, bool, error) {
			ok, err := match(row)
			if err != nil || !ok {
				return nil, false, err
			}
			next, err := x.applySet(row, sets, sc)
			if err != nil {
				return nil, false, err
			}
			return next, true, nil
		})
	})
}
