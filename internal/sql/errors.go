package sql

import (
	"errors"
	"fmt"
)

// ParseError is returned by Parse for malformed SQL. Pos is the byte offset
// of the offending token in the statement text.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

// ErrorKind classifies runtime (execution) errors.
type ErrorKind int

const (
	ErrInternal ErrorKind = iota
	ErrUnknownTable
	ErrTableAlreadyExists
	ErrColumnCountMismatch
	ErrTypeMismatch
	ErrUnknownColumn
	ErrAmbiguousColumn
	ErrUnknownFunction
	ErrDivisionByZero
	ErrSubqueryCardinality
	ErrAggregateMisuse
	ErrConstraintViolation
	ErrUnknownIndex
	ErrIndexAlreadyExists
)

var errorKindNames = map[ErrorKind]string{
	ErrInternal:            "internal",
	ErrUnknownTable:        "unknown table",
	ErrTableAlreadyExists:  "table already exists",
	ErrColumnCountMismatch: "column count mismatch",
	ErrTypeMismatch:        "type mismatch",
	ErrUnknownColumn:       "unknown column",
	ErrAmbiguousColumn:     "ambiguous column",
	ErrUnknownFunction:     "unknown function",
	ErrDivisionByZero:      "division by zero",
	ErrSubqueryCardinality: "subquery cardinality",
	ErrAggregateMisuse:     "aggregate misuse",
	ErrConstraintViolation: "constraint violation",
	ErrUnknownIndex:        "unknown index",
	ErrIndexAlreadyExists:  "index already exists",
}

func (k ErrorKind) String() string {
	if n, ok := errorKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is an execution error raised by storage or the executor. The
// statement that produced it left storage unchanged.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Is lets errors.Is match on kind: errors.Is(err, &sql.Error{Kind: k}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Errorf builds an *Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or ErrInternal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrInternal
}
