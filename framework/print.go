package framework

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// PrintResults writes a summary of a test run: counts, then each failed test with its errors.
func PrintResults(out io.Writer, results Results) {
	var ran, skipped int
	for _, r := range results.Tests {
		switch {
		case r.Filtered:
		case r.Skipped:
			skipped++
		default:
			ran++
		}
	}
	fmt.Fprintf(out, "Ran %d tests (%d skipped)\n", ran, skipped)

	if results.OK() {
		fmt.Fprintln(out, "All tests passed")
		return
	}
	fmt.Fprintf(out, "FAILED TESTS (%d):\n", len(results.Failures))
	for _, f := range results.Failures {
		fmt.Fprintf(out, "* %s\n", f.TestID)
		for _, e := range f.Errors {
			for _, line := range strings.Split(strings.TrimSpace(reformatError(e).Error()), "\n") {
				fmt.Fprintf(out, "    %s\n", line)
			}
		}
	}
}

// FailedTestPattern returns a regex that matches the failed tests, for use with -run. A failed
// group matches every test within it.
func FailedTestPattern(results Results) string {
	var alternatives []string
	for _, f := range results.Failures {
		quoted := "^" + regexp.QuoteMeta(f.TestID.String())
		if len(f.TestID.Path) == 1 {
			alternatives = append(alternatives, quoted+"/")
		} else {
			alternatives = append(alternatives, quoted+"$")
		}
	}
	return strings.Join(alternatives, "|")
}
