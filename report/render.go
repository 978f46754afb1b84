package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

var (
	passColor           = color.New(color.FgGreen)
	failColor           = color.New(color.FgRed)
	notImplementedColor = color.New(color.FgYellow)
	headerColor         = color.New(color.Bold)
)

func symbol(s Status) (string, *color.Color) {
	switch s {
	case Pass:
		return "✓", passColor
	case Fail:
		return "✗", failColor
	case NotImplemented:
		return "-", notImplementedColor
	default:
		return "?", headerColor
	}
}

// WriteText renders the matrix as a console grid followed by the details of every failed
// cell. Columns are numbered; the legend maps numbers to implementation names.
func WriteText(out io.Writer, m Matrix) {
	headerColor.Fprintln(out, "Implementations:")
	for j, impl := range m.Implementations {
		fmt.Fprintf(out, "  [%d] %s\n", j+1, impl)
	}
	fmt.Fprintln(out)

	width := len(fmt.Sprint(len(m.Implementations))) + 1
	var header strings.Builder
	for j := range m.Implementations {
		fmt.Fprintf(&header, "%*d", width, j+1)
	}
	headerColor.Fprintln(out, header.String())

	for i, rule := range m.Rules {
		for _, c := range m.Cells[i] {
			sym, col := symbol(c.Status)
			fmt.Fprint(out, strings.Repeat(" ", width-1))
			col.Fprint(out, sym)
		}
		fmt.Fprintf(out, "  %s\n", rule)
	}

	summary := m.Summary()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s passed, %s failed, %s not implemented\n",
		passColor.Sprint(summary[Pass]), failColor.Sprint(summary[Fail]), notImplementedColor.Sprint(summary[NotImplemented]))

	var failures []string
	for i, rule := range m.Rules {
		for j, c := range m.Cells[i] {
			if c.Status == Fail {
				failures = append(failures, fmt.Sprintf("  %s / %s: %s", m.Implementations[j], rule, c.Detail))
			}
		}
	}
	if len(failures) > 0 {
		fmt.Fprintln(out)
		failColor.Fprintln(out, "Failures:")
		for _, f := range failures {
			fmt.Fprintln(out, f)
		}
	}
}

// WriteJSON writes the matrix as indented JSON.
func WriteJSON(out io.Writer, m Matrix) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling report")
	}
	_, err = out.Write(append(data, '\n'))
	return err
}

// WriteJSONFile writes the matrix to a file, replacing any existing content.
func WriteJSONFile(path string, m Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating report file: %s", path)
	}
	if err := WriteJSON(f, m); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
