/*
Package report renders test results and coverage and implements coverage
file commands.
*/
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nspcc-dev/neounit/pkg/coverage"
	"github.com/nspcc-dev/neounit/pkg/unittest"
)

// styles are bound to the output writer, colors are only used for terminals.
type styles struct {
	pass  lipgloss.Style
	fail  lipgloss.Style
	title lipgloss.Style
	dim   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		pass:  r.NewStyle().Foreground(lipgloss.Color("#90EE90")),
		fail:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
		title: r.NewStyle().Bold(true),
		dim:   r.NewStyle().Foreground(lipgloss.Color("#666666")),
	}
}

// List prints discovered tests one per line.
func List(w io.Writer, tests []unittest.TestCase) {
	for _, tc := range tests {
		fmt.Fprintln(w, tc)
	}
}

// Results prints every test result followed by failure details and the
// totals.
func Results(w io.Writer, r *unittest.Report) {
	s := newStyles(w)
	if r.NoTests() {
		fmt.Fprintf(w, "No tests found in %s\n", r.Package)
		return
	}
	fmt.Fprintln(w, s.title.Render("Running tests of "+r.Package))
	for _, res := range r.Results {
		status := s.pass.Render("PASS")
		if !res.Passed() {
			status = s.fail.Render("FAIL")
		}
		fmt.Fprintf(w, "[ %s ] %s %s\n", status, res.Test, s.dim.Render(fmt.Sprintf("(gas %d)", res.GasConsumed)))
	}

	failed := r.Failed()
	if len(failed) != 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, s.title.Render("Test failures:"))
		for _, res := range failed {
			fmt.Fprintf(w, "%s: %s\n", res.Test, s.fail.Render(res.Outcome.String()))
			for _, line := range res.Logs {
				fmt.Fprintf(w, "    log: %s\n", line)
			}
		}
	}

	fmt.Fprintln(w)
	result := s.pass.Render("OK")
	if len(failed) != 0 {
		result = s.fail.Render("FAILED")
	}
	fmt.Fprintf(w, "Test result: %s. Total tests: %d; passed: %d; failed: %d\n",
		result, len(r.Results), len(r.Results)-len(failed), len(failed))
}

// Coverage prints the coverage summary of every module and its functions.
// Only modules with names containing filter are printed if it's not empty.
func Coverage(w io.Writer, sum coverage.Summary, filter string) {
	s := newStyles(w)
	fmt.Fprintln(w, s.title.Render("Coverage:"))
	for _, ms := range sum.Modules {
		if filter != "" && !strings.Contains(ms.Module.String(), filter) {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", ms.Module, percent(s, ms.Ratio))
		for _, f := range ms.Functions {
			fmt.Fprintf(w, "    %s %s\n", f.Name, percent(s, f.Ratio))
		}
	}
	if filter == "" {
		fmt.Fprintf(w, "Total %s\n", percent(s, sum.Ratio))
	}
}

func percent(s styles, r coverage.Ratio) string {
	text := fmt.Sprintf("%.2f%% (%d/%d)", r.Percent(), r.Covered, r.Total)
	if r.Covered == r.Total {
		return s.pass.Render(text)
	}
	return text
}
