package slt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"memDB/internal/logging"
)

// DefaultTarget is the database name skipif and onlyif are matched against.
const DefaultTarget = "sqlite"

// Options configures a Runner.
type Options struct {
	Workers  int  // files run concurrently; <= 0 means one
	FailFast bool // stop a file at its first failure and start no new files
	Target   string
	Backend  BackendFactory
}

// FileResult is the outcome of one test file.
type FileResult struct {
	Path    string
	Passed  bool
	Skipped bool // not run because an earlier file failed under FailFast
	Err     error

	Statements       int
	Queries          int
	FailedStatements int
	FailedQueries    int

	// FailureLine and Failure describe the first failing record.
	FailureLine int
	Failure     string

	Bytes    int64
	Duration time.Duration
}

func (r *FileResult) fail(line int, msg string) {
	if r.Failure == "" {
		r.FailureLine = line
		r.Failure = msg
	}
}

// Summary aggregates a run.
type Summary struct {
	Files   []FileResult
	Elapsed time.Duration
}

// Passed reports whether every file ran and passed.
func (s *Summary) Passed() bool {
	for _, f := range s.Files {
		if !f.Passed {
			return false
		}
	}
	return len(s.Files) > 0
}

// Runner executes test files, each against a fresh database.
type Runner struct {
	opts Options
	log  *slog.Logger
}

// NewRunner creates a runner. A nil Backend runs files against nothing and
// is rejected by Run.
func NewRunner(opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Target == "" {
		opts.Target = DefaultTarget
	}
	return &Runner{opts: opts, log: logging.WithComponent("slt")}
}

// FindFiles expands paths into the sorted list of test files they name.
// Directories are walked for files ending in ".test".
func FindFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".test") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// Run executes every test file under paths on a bounded worker pool.
// Results keep the order of the file list.
func (r *Runner) Run(ctx context.Context, paths []string) (*Summary, error) {
	if r.opts.Backend == nil {
		return nil, errors.New("slt: no backend configured")
	}
	files, err := FindFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("slt: no test files found")
	}

	pool, err := ants.NewPool(r.opts.Workers, ants.WithPanicHandler(func(v any) {
		r.log.Error("test worker panic", "panic", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("slt: worker pool: %w", err)
	}
	defer pool.Release()

	start := time.Now()
	results := make([]FileResult, len(files))
	var (
		wg     sync.WaitGroup
		failed atomic.Bool
	)
	for i, path := range files {
		// Overwritten when the file finishes; left as is if the worker panics.
		results[i] = FileResult{Path: path, Err: errors.New("test worker panicked")}

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil || (r.opts.FailFast && failed.Load()) {
				results[i] = FileResult{Path: path, Skipped: true}
				return
			}
			res := r.RunFile(ctx, path)
			if !res.Passed {
				failed.Store(true)
			}
			results[i] = res
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("slt: submit %s: %w", path, err)
		}
	}
	wg.Wait()

	return &Summary{Files: results, Elapsed: time.Since(start)}, nil
}

// RunFile runs one test file against a fresh database.
func (r *Runner) RunFile(ctx context.Context, path string) (res FileResult) {
	start := time.Now()
	res.Path = path
	defer func() {
		res.Duration = time.Since(start)
		res.Passed = res.Err == nil && res.FailedStatements == 0 && res.FailedQueries == 0
	}()

	log := logging.WithFile(path)
	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Bytes = int64(len(data))

	records, err := Parse(bytes.NewReader(data), r.opts.Target)
	if err != nil {
		res.Err = fmt.Errorf("parse %s: %w", path, err)
		return res
	}

	db, err := r.opts.Backend()
	if err != nil {
		res.Err = fmt.Errorf("open database: %w", err)
		return res
	}
	defer db.Close()

records:
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}

		switch rec := rec.(type) {
		case *Halt:
			break records

		case *Statement:
			res.Statements++
			_, err := db.Exec(rec.SQL)
			switch {
			case rec.ExpectError && err == nil:
				res.fail(rec.LineNo, "expected error but got success")
			case !rec.ExpectError && err != nil:
				res.fail(rec.LineNo, "Error: "+err.Error())
			default:
				continue
			}
			res.FailedStatements++
			log.Debug("statement failed", "line", rec.LineNo, "sql", rec.SQL, "error", err)

		case *Query:
			res.Queries++
			vals, err := db.Exec(rec.SQL)
			var diff string
			if err != nil {
				diff = "Error: " + err.Error()
			} else {
				diff = Check(rec, vals)
			}
			if diff == "" {
				continue
			}
			res.FailedQueries++
			res.fail(rec.LineNo, diff)
			log.Debug("query failed", "line", rec.LineNo, "sql", rec.SQL, "diff", diff)
		}

		if r.opts.FailFast {
			break
		}
	}
	return res
}
