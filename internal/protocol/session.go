// Package protocol implements the line-oriented text protocol: statements
// arrive as lines terminated by a blank line, and every statement answers
// with its result rows (or an error line) followed by a blank line.
package protocol

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"

	"memDB/internal/engine"
	"memDB/internal/logging"
)

// maxLineSize bounds a single input line.
const maxLineSize = 16 << 20

// Executor runs one SQL statement.
type Executor interface {
	ExecuteSQL(text string) (*engine.Result, error)
}

// Session frames input into statements, runs them and writes responses.
// A Session is driven by one goroutine.
type Session struct {
	exec    Executor
	out     *bufio.Writer
	format  Formatter
	log     *slog.Logger
	pending []string

	statements int
	failures   int
}

// NewSession creates a session writing responses to w.
func NewSession(exec Executor, w io.Writer, f Formatter) *Session {
	return &Session{
		exec:   exec,
		out:    bufio.NewWriter(w),
		format: f,
		log:    logging.WithComponent("protocol"),
	}
}

// Statement turns accumulated lines into statement text: lines are joined
// with a space, trimmed, and one trailing semicolon is removed.
func Statement(lines []string) string {
	text := strings.TrimSpace(strings.Join(lines, " "))
	text = strings.TrimSuffix(text, ";")
	return strings.TrimSpace(text)
}

// Feed consumes one input line. A whitespace-only line ends the pending
// statement and runs it.
func (s *Session) Feed(line string) error {
	if strings.TrimSpace(line) == "" {
		if len(s.pending) == 0 {
			return nil
		}
		return s.Flush()
	}
	s.pending = append(s.pending, line)
	return nil
}

// Pending reports whether a statement is being accumulated.
func (s *Session) Pending() bool { return len(s.pending) > 0 }

// Discard drops the pending statement.
func (s *Session) Discard() { s.pending = s.pending[:0] }

// Flush runs the pending statement, if any, and writes its response.
func (s *Session) Flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	text := Statement(s.pending)
	s.pending = s.pending[:0]
	s.run(text)
	return s.out.Flush()
}

// Serve reads r to the end, answering each statement as soon as its
// terminating blank line arrives. A statement still pending at end of
// input is run too.
func (s *Session) Serve(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Feed(strings.TrimRight(sc.Text(), "\r")); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	err := s.Flush()
	s.log.Debug("input finished", "statements", s.statements, "failures", s.failures)
	return err
}

func (s *Session) run(text string) {
	s.statements++
	if text == "" {
		s.out.WriteByte('\n')
		return
	}

	res, err := s.exec.ExecuteSQL(text)
	if err != nil {
		s.failures++
		s.log.Debug("statement failed", "sql", text, "error", err)
		s.out.WriteString("Error: ")
		s.out.WriteString(oneLine(err.Error()))
		s.out.WriteString("\n\n")
		return
	}
	if res.Query {
		for _, row := range res.Rows {
			s.out.WriteString(s.format.Row(row))
			s.out.WriteByte('\n')
		}
	}
	s.out.WriteByte('\n')
}

// oneLine keeps an error message on a single protocol line.
func oneLine(msg string) string {
	return strings.Join(strings.Fields(msg), " ")
}
