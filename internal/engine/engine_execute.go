package engine

import (
	"fmt"
	"time"

	"memDB/internal/sql"
)

// Execute takes a parsed SQL Statement and executes it using the engine.
// Every statement runs in its own storage transaction; on error nothing it
// did is visible.
func (e *DBEngine) Execute(stmt sql.Statement) (*Result, error) {
	if !e.started {
		return nil, fmt.Errorf("engine not started")
	}

	kind := statementKind(stmt)
	start := time.Now()
	res, err := e.dispatch(stmt)
	StatementDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil {
		StatementsTotal.WithLabelValues(kind, "error").Inc()
		e.log.Debug("statement failed", "kind", kind, "error", err)
		return nil, err
	}
	StatementsTotal.WithLabelValues(kind, "ok").Inc()
	if res.Query {
		RowsReturned.Add(float64(len(res.Rows)))
	}
	e.log.Debug("statement executed", "kind", kind, "rows", len(res.Rows), "affected", res.RowsAffected)
	return res, nil
}

func (e *DBEngine) dispatch(stmt sql.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *sql.CreateTableStmt:
		return e.executeCreateTable(s)
	case *sql.DropTableStmt:
		return e.executeDropTable(s)
	case *sql.CreateIndexStmt:
		return e.executeCreateIndex(s)
	case *sql.DropIndexStmt:
		return e.executeDropIndex(s)
	case *sql.InsertStmt:
		return e.executeInsert(s)
	case *sql.SelectStmt:
		return e.executeSelect(s)
	case *sql.UpdateStmt:
		return e.executeUpdate(s)
	case *sql.DeleteStmt:
		return e.executeDelete(s)
	default:
		return nil, fmt.Errorf("unsupported statement type %T", stmt)
	}
}

func statementKind(stmt sql.Statement) string {
	switch stmt.(type) {
	case *sql.CreateTableStmt:
		return "create_table"
	case *sql.DropTableStmt:
		return "drop_table"
	case *sql.CreateIndexStmt:
		return "create_index"
	case *sql.DropIndexStmt:
		return "drop_index"
	case *sql.InsertStmt:
		return "insert"
	case *sql.SelectStmt:
		return "select"
	case *sql.UpdateStmt:
		return "update"
	case *sql.DeleteStmt:
		return "delete"
	default:
		return "other"
	}
}
