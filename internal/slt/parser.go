package slt

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// hashLine matches a hashed result such as "30 values hashing to 3c13...".
var hashLine = regexp.MustCompile(`^(\d+) values hashing to ([0-9a-fA-F]{32})$`)

// Parse reads a test file. target is the database name matched by skipif
// and onlyif; records guarded against it are left out. Parsing stops after
// a halt record.
func Parse(r io.Reader, target string) ([]Record, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	p := &fileParser{lines: lines, target: target}
	return p.parse()
}

func readLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read test file: %w", err)
	}
	return lines, nil
}

type fileParser struct {
	lines  []string
	i      int
	target string
	skip   bool
}

func (p *fileParser) parse() ([]Record, error) {
	var out []Record
	for p.i < len(p.lines) {
		line := p.lines[p.i]
		lineNo := p.i + 1

		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			p.i++
		case strings.HasPrefix(line, "skipif "):
			if strings.TrimSpace(line[len("skipif "):]) == p.target {
				p.skip = true
			}
			p.i++
		case strings.HasPrefix(line, "onlyif "):
			if strings.TrimSpace(line[len("onlyif "):]) != p.target {
				p.skip = true
			}
			p.i++
		case line == "halt":
			if p.skip {
				p.skip = false
				p.i++
				continue
			}
			return append(out, &Halt{LineNo: lineNo}), nil
		case strings.HasPrefix(line, "hash-threshold "):
			// Expected results already say whether they are hashed.
			p.i++
		case strings.HasPrefix(line, "statement "):
			if st := p.statement(line, lineNo); st != nil {
				out = append(out, st)
			}
		case strings.HasPrefix(line, "query "):
			q, err := p.query(line, lineNo)
			if err != nil {
				return nil, err
			}
			if q != nil {
				out = append(out, q)
			}
		default:
			p.i++
		}
	}
	return out, nil
}

// statement parses "statement ok|error" and the SQL lines below it.
func (p *fileParser) statement(header string, lineNo int) *Statement {
	p.i++
	sqlLines := p.sqlUntilBlank()
	if p.skip {
		p.skip = false
		return nil
	}
	if len(sqlLines) == 0 {
		return nil
	}
	return &Statement{
		SQL:         strings.Join(sqlLines, "\n"),
		ExpectError: strings.Contains(strings.ToLower(header), "error"),
		LineNo:      lineNo,
	}
}

func (p *fileParser) sqlUntilBlank() []string {
	var out []string
	for p.i < len(p.lines) {
		l := p.lines[p.i]
		if strings.TrimSpace(l) == "" || isDirective(l) {
			break
		}
		out = append(out, l)
		p.i++
	}
	return out
}

// query parses "query <types> [sort] [label]", the SQL up to "----" and
// the expected results up to the next blank line.
func (p *fileParser) query(header string, lineNo int) (*Query, error) {
	fields := strings.Fields(header[len("query "):])
	p.i++
	if len(fields) == 0 {
		return nil, nil
	}

	q := &Query{ColumnTypes: fields[0], HashCount: -1, LineNo: lineNo}
	for _, f := range fields[1:] {
		switch f {
		case "nosort":
			q.Sort = NoSort
		case "rowsort":
			q.Sort = RowSort
		case "valuesort":
			q.Sort = ValueSort
		default:
			q.Label = f
		}
	}

	var sqlLines []string
	for p.i < len(p.lines) && p.lines[p.i] != "----" {
		// A query without results ends at a blank line.
		if strings.TrimSpace(p.lines[p.i]) == "" && len(sqlLines) > 0 {
			break
		}
		if p.lines[p.i] != "" {
			sqlLines = append(sqlLines, p.lines[p.i])
		}
		p.i++
	}
	if p.i < len(p.lines) && p.lines[p.i] == "----" {
		p.i++
		for p.i < len(p.lines) {
			l := p.lines[p.i]
			if l == "" || isDirective(l) {
				break
			}
			q.Expected = append(q.Expected, splitResultLine(l)...)
			p.i++
		}
	}

	if p.skip {
		p.skip = false
		return nil, nil
	}
	if len(sqlLines) == 0 {
		return nil, nil
	}
	q.SQL = strings.Join(sqlLines, "\n")

	if len(q.Expected) == 1 {
		if m := hashLine.FindStringSubmatch(q.Expected[0]); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad value count %q: %w", lineNo, m[1], err)
			}
			q.HashCount = n
			q.Hash = strings.ToLower(m[2])
			q.Expected = nil
		}
	}
	return q, nil
}

// splitResultLine splits an expected result line the way the harness
// splits actual output: on tabs, else on '|', else the whole line.
func splitResultLine(l string) []string {
	switch {
	case strings.Contains(l, "\t"):
		return strings.Split(l, "\t")
	case strings.Contains(l, "|"):
		return strings.Split(l, "|")
	default:
		return []string{l}
	}
}

func isDirective(l string) bool {
	l = strings.TrimLeft(l, " \t")
	return strings.HasPrefix(l, "statement ") ||
		strings.HasPrefix(l, "query ") ||
		strings.HasPrefix(l, "hash-threshold ") ||
		strings.HasPrefix(l, "skipif ") ||
		strings.HasPrefix(l, "onlyif ") ||
		l == "halt"
}
