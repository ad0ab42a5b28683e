package slt

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#A6E3A1"}).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#F38BA8"}).Bold(true)
	skipStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#757575", Dark: "#6C7086"})
	detailStyle = lipgloss.NewStyle().PaddingLeft(8)
	labelStyle  = lipgloss.NewStyle().Bold(true).Width(12)
)

// Report writes per-file results followed by a summary. With verbose unset
// only failing files are listed.
func Report(w io.Writer, s *Summary, verbose bool) {
	var (
		passed, total          int
		stmts, stmtFail        int
		queries, queryFail     int
		bytesRead              int64
		firstPath, firstDetail string
		firstLine              int
	)

	for _, f := range s.Files {
		total++
		stmts += f.Statements
		stmtFail += f.FailedStatements
		queries += f.Queries
		queryFail += f.FailedQueries
		bytesRead += f.Bytes

		switch {
		case f.Skipped:
			if verbose {
				fmt.Fprintf(w, "  %s  %s\n", skipStyle.Render("SKIP"), f.Path)
			}
		case f.Passed:
			passed++
			if verbose {
				fmt.Fprintf(w, "  %s  %s (%s stmt, %s queries, %s)\n", passStyle.Render("PASS"), f.Path,
					humanize.Comma(int64(f.Statements)), humanize.Comma(int64(f.Queries)), f.Duration.Round(time.Millisecond))
			}
		default:
			detail := f.detail()
			fmt.Fprintf(w, "  %s  %s\n", failStyle.Render("FAIL"), f.Path)
			fmt.Fprintln(w, detailStyle.Render(detail))
			if firstPath == "" {
				firstPath, firstLine, firstDetail = f.Path, f.FailureLine, detail
			}
		}
	}

	pct := 0.0
	if total > 0 {
		pct = float64(passed) / float64(total) * 100
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	line := func(label, value string) {
		fmt.Fprintf(w, "%s%s\n", labelStyle.Render(label), value)
	}
	line("Files:", fmt.Sprintf("%s/%s passed (%.1f%%)", humanize.Comma(int64(passed)), humanize.Comma(int64(total)), pct))
	line("Statements:", fmt.Sprintf("%s/%s passed", humanize.Comma(int64(stmts-stmtFail)), humanize.Comma(int64(stmts))))
	line("Queries:", fmt.Sprintf("%s/%s passed", humanize.Comma(int64(queries-queryFail)), humanize.Comma(int64(queries))))
	line("Read:", humanize.Bytes(uint64(bytesRead)))
	line("Time:", s.Elapsed.Round(time.Millisecond).String())

	if firstPath != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "First failure: %s:%d\n", firstPath, firstLine)
		fmt.Fprintf(w, "  %s\n", firstDetail)
	}
}

func (f *FileResult) detail() string {
	if f.Err != nil {
		return f.Err.Error()
	}
	return fmt.Sprintf("Line %d: %s", f.FailureLine, f.Failure)
}
