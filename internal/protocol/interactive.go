package protocol

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/peterh/liner"
)

const (
	prompt         = "memdb> "
	continuePrompt = "   ...> "
)

// ServeInteractive reads statements from a terminal with line editing and
// history. Besides the blank-line terminator, a line ending in ';' runs the
// statement immediately. Ctrl-C drops the pending statement; Ctrl-D exits.
func (s *Session) ServeInteractive(ctx context.Context) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetMultiLineMode(true)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		p := prompt
		if s.Pending() {
			p = continuePrompt
		}
		line, err := ln.Prompt(p)
		if err == nil && strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		done, err := s.interact(line, err)
		if err != nil || done {
			return err
		}
	}
}

// interact applies one prompt result to the session and reports whether the
// session has ended. An aborted prompt drops the pending statement, end of
// input runs it, and a line ending in ';' runs it at once.
func (s *Session) interact(line string, promptErr error) (done bool, err error) {
	switch {
	case errors.Is(promptErr, liner.ErrPromptAborted):
		s.Discard()
		return false, nil
	case errors.Is(promptErr, io.EOF):
		return true, s.Flush()
	case promptErr != nil:
		return true, promptErr
	}

	if err := s.Feed(line); err != nil {
		return true, err
	}
	if strings.HasSuffix(strings.TrimSpace(line), ";") {
		return false, s.Flush()
	}
	return false, nil
}
