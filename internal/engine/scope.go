package engine

import (
	"strings"

	"memDB/internal/sql"
)

// binding names one position of a combined row: the qualifier is the table
// alias (or table name) the column came from.
type binding struct {
	qualifier string
	name      string
}

// layout describes the columns of a combined row. It is built once per
// executed select and shared by every row the select produces.
type layout struct {
	bindings []binding
	resolved map[*sql.ColumnRef]resolution
}

type resolution struct {
	pos int // -1 when the name is not bound here
	err error
}

func newLayout(bindings []binding) *layout {
	return &layout{bindings: bindings, resolved: make(map[*sql.ColumnRef]resolution)}
}

// lookup finds ref among the layout's bindings. It returns -1 when no
// binding matches and an AmbiguousColumn error when more than one does.
func (l *layout) lookup(ref *sql.ColumnRef) (int, error) {
	if r, ok := l.resolved[ref]; ok {
		return r.pos, r.err
	}
	pos := -1
	var err error
	for i, b := range l.bindings {
		if !strings.EqualFold(b.name, ref.Column) {
			continue
		}
		if ref.Table != "" && !strings.EqualFold(b.qualifier, ref.Table) {
			continue
		}
		if pos >= 0 {
			err = sql.Errorf(sql.ErrAmbiguousColumn, "ambiguous column name: %s", refName(ref))
			break
		}
		pos = i
	}
	l.resolved[ref] = resolution{pos: pos, err: err}
	return pos, err
}

// hasQualifier reports whether any binding carries the given table alias.
func (l *layout) hasQualifier(q string) bool {
	for _, b := range l.bindings {
		if strings.EqualFold(b.qualifier, q) {
			return true
		}
	}
	return false
}

func refName(ref *sql.ColumnRef) string {
	if ref.Table != "" {
		return ref.Table + "." + ref.Column
	}
	return ref.Column
}

// frame marks the outermost scope of one subquery evaluation. Lookups that
// leave the subquery through it flag the subquery as correlated.
type frame struct {
	correlated bool
}

// Scope binds column references to the values of the current row and chains
// to the enclosing query's scope, so correlated subqueries see outer rows.
type Scope struct {
	parent *Scope
	layout *layout
	row    sql.Row

	// aggs holds the finished aggregate values of the current group when
	// the scope evaluates a grouped select's output.
	aggs map[*sql.FunctionCall]sql.Value

	frame *frame
}

func newScope(parent *Scope, l *layout) *Scope {
	return &Scope{parent: parent, layout: l}
}

// child returns a scope that shares layout and parent with s but carries its
// own row, so it can be kept after s moves on.
func (s *Scope) child(row sql.Row, aggs map[*sql.FunctionCall]sql.Value) *Scope {
	return &Scope{parent: s.parent, layout: s.layout, row: row, aggs: aggs, frame: s.frame}
}

// column resolves ref, innermost scope first.
func (s *Scope) column(ref *sql.ColumnRef) (sql.Value, error) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.layout != nil {
			pos, err := cur.layout.lookup(ref)
			if err != nil {
				return sql.Null, err
			}
			if pos >= 0 {
				if cur.row == nil {
					return sql.Null, nil
				}
				return cur.row[pos], nil
			}
		}
		if cur.frame != nil {
			cur.frame.correlated = true
		}
	}
	return sql.Null, sql.Errorf(sql.ErrUnknownColumn, "no such column: %s", refName(ref))
}

// resolveLocal reports the position of ref in this scope only (-1 if it
// belongs to an enclosing scope). It fails when ref is bound nowhere.
func (s *Scope) resolveLocal(ref *sql.ColumnRef) (int, error) {
	if s.layout != nil {
		pos, err := s.layout.lookup(ref)
		if err != nil || pos >= 0 {
			return pos, err
		}
	}
	for cur := s.parent; cur != nil; cur = cur.parent {
		if cur.layout == nil {
			continue
		}
		pos, err := cur.layout.lookup(ref)
		if err != nil {
			return -1, err
		}
		if pos >= 0 {
			return -1, nil
		}
	}
	return -1, sql.Errorf(sql.ErrUnknownColumn, "no such column: %s", refName(ref))
}
