package framework

import (
	"errors"
	"strings"
)

type Results struct {
	Tests    []TestResult
	Failures []TestResult
}

type TestResult struct {
	TestID     TestID
	Errors     []error
	Failed     bool
	Skipped    bool
	SkipReason string

	// Filtered is true if the test was never started because of the filter parameters.
	Filtered bool
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// ErrorSummary joins the test's error messages into one line per error.
func (r TestResult) ErrorSummary() string {
	var lines []string
	for _, e := range r.Errors {
		lines = append(lines, strings.TrimSpace(e.Error()))
	}
	return strings.Join(lines, "; ")
}

type TestID struct {
	Path []string
}

// Plus returns a new TestID with an additional path element.
func (t TestID) Plus(name string) TestID {
	return TestID{Path: append(append([]string(nil), t.Path...), name)}
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

// reformatError removes the stack trace block that the assert package puts in front of its
// messages, since the test ID already says where the failure happened.
func reformatError(err error) error {
	s := err.Error()
	if !strings.Contains(s, "Error Trace:") {
		return err
	}
	var kept []string
	inTrace := false
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Error Trace:"):
			inTrace = true
			continue
		case strings.HasPrefix(trimmed, "Error:"), strings.HasPrefix(trimmed, "Messages:"),
			strings.HasPrefix(trimmed, "Test:"):
			inTrace = false
		}
		if !inTrace && trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return errors.New(strings.Join(kept, "\n"))
}
