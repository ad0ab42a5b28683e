package engine

import "fmt"

// inWriteTx runs fn inside a statement-scoped read-write transaction. The
// transaction commits only when fn succeeds, so a failing statement leaves
// storage unchanged.
func (e *DBEngine) inWriteTx(fn func(x *execCtx) (int, error)) (*Result, error) {
	tx, err := e.store.Begin(false /* readOnly */)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	n, err := fn(e.newExecCtx(tx))
	if err != nil {
		_ = e.store.Rollback(tx)
		return nil, err
	}

	if err := e.store.Commit(tx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return rowsAffected(n), nil
}
