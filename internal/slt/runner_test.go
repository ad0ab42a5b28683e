package slt

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"memDB/internal/engine"
	"memDB/internal/protocol"
)

func newMemRunner(opts Options) *Runner {
	opts.Backend = MemDB(protocol.DefaultFormatter())
	return NewRunner(opts)
}

func TestRunner_TestdataPasses(t *testing.T) {
	r := newMemRunner(Options{Workers: 3})
	sum, err := r.Run(context.Background(), []string{"testdata"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(sum.Files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(sum.Files))
	}
	for _, f := range sum.Files {
		if !f.Passed {
			t.Fatalf("%s failed: %s", f.Path, f.detail())
		}
	}
	if !sum.Passed() {
		t.Fatalf("expected summary to pass")
	}
}

func TestRunner_HaltStopsFile(t *testing.T) {
	r := newMemRunner(Options{})
	res := r.RunFile(context.Background(), filepath.Join("testdata", "control.test"))
	if !res.Passed {
		t.Fatalf("control.test failed: %s", res.detail())
	}
	// CREATE, onlyif sqlite SELECT, INSERT, SELECT; the rest is skipped or halted.
	if res.Statements != 2 || res.Queries != 2 {
		t.Fatalf("expected 2 statements and 2 queries, got %d and %d", res.Statements, res.Queries)
	}
}

func writeTest(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

const failingTest = `statement ok
CREATE TABLE t(a INTEGER)

statement ok
INSERT INTO t VALUES(1)

query I nosort
SELECT a FROM t
----
2

statement ok
INSERT INTO missing VALUES(1)

statement error
INSERT INTO t VALUES(2)
`

func TestRunner_ReportsFirstFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeTest(t, dir, "fail.test", failingTest)

	res := newMemRunner(Options{}).RunFile(context.Background(), path)
	if res.Passed {
		t.Fatalf("expected failure")
	}
	if res.FailureLine != 7 {
		t.Fatalf("expected first failure on line 7, got %d (%s)", res.FailureLine, res.Failure)
	}
	if res.FailedQueries != 1 || res.FailedStatements != 2 {
		t.Fatalf("expected 1 failed query and 2 failed statements, got %d and %d", res.FailedQueries, res.FailedStatements)
	}
}

func TestRunner_FailFast(t *testing.T) {
	dir := t.TempDir()
	path := writeTest(t, dir, "fail.test", failingTest)

	res := newMemRunner(Options{FailFast: true}).RunFile(context.Background(), path)
	if res.Passed || res.Queries != 1 || res.Statements != 2 {
		t.Fatalf("expected to stop at the first failing query, got %+v", res)
	}
}

func TestRunner_FreshDatabasePerFile(t *testing.T) {
	dir := t.TempDir()
	body := "statement ok\nCREATE TABLE t(a INTEGER)\n"
	writeTest(t, dir, "a.test", body)
	writeTest(t, dir, "b.test", body)

	sum, err := newMemRunner(Options{Workers: 2}).Run(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !sum.Passed() {
		t.Fatalf("expected both files to pass with their own database")
	}
}

func TestRunner_DivisionByZeroOption(t *testing.T) {
	dir := t.TempDir()
	path := writeTest(t, dir, "div.test", "query I nosort\nSELECT 1 / 0\n----\nNULL\n")

	strict := newMemRunner(Options{}).RunFile(context.Background(), path)
	if strict.Passed {
		t.Fatalf("expected division by zero to fail by default")
	}

	lenient := NewRunner(Options{Backend: MemDB(protocol.DefaultFormatter(), engine.WithDivisionByZeroNull())})
	if res := lenient.RunFile(context.Background(), path); !res.Passed {
		t.Fatalf("expected NULL result, got %s", res.detail())
	}
}

func TestRunner_SQLiteBackend(t *testing.T) {
	r := NewRunner(Options{Backend: SQLite(protocol.DefaultFormatter())})
	for _, name := range []string{"basic.test", "hashing.test", "control.test"} {
		res := r.RunFile(context.Background(), filepath.Join("testdata", name))
		if !res.Passed {
			t.Fatalf("%s failed against sqlite: %s", name, res.detail())
		}
	}
}

func TestRunner_NoFiles(t *testing.T) {
	if _, err := newMemRunner(Options{}).Run(context.Background(), []string{t.TempDir()}); err == nil {
		t.Fatalf("expected error for an empty directory")
	}
}

func TestReport(t *testing.T) {
	sum := &Summary{Files: []FileResult{
		{Path: "a.test", Passed: true, Statements: 1200, Queries: 3, Bytes: 2048},
		{Path: "b.test", Statements: 1, FailedStatements: 1, FailureLine: 9, Failure: "expected error but got success"},
	}}
	var buf bytes.Buffer
	Report(&buf, sum, true)
	out := buf.String()

	for _, want := range []string{"a.test", "1,200 stmt", "b.test", "Line 9: expected error but got success", "First failure: b.test:9", "1/2 passed", "2.0 kB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}
