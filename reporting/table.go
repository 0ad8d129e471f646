package reporting

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/qa-agent/qa-acceptor/types"
)

// TableFormatter formats a run summary as a console table
type TableFormatter struct {
	title string
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(title string) *TableFormatter {
	return &TableFormatter{title: title}
}

// Format renders one row per script plus a TOTAL footer
func (tf *TableFormatter) Format(summary *types.RunSummary, runDuration time.Duration) string {
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle(tf.title)

	t.AppendHeader(table.Row{
		"#", "Test ID", "Status", "Attempts", "Duration (s)", "Exit", "Details",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Test ID", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Attempts", Align: text.AlignRight},
		{Name: "Duration (s)", Align: text.AlignRight},
		{Name: "Exit", Align: text.AlignRight},
		{Name: "Details", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, r := range summary.Results {
		t.AppendRow(table.Row{
			i + 1,
			r.TestID,
			tf.getResultString(r),
			r.Attempts,
			fmt.Sprintf("%.2f", r.DurationSeconds()),
			exitCodeText(r.ExitCode),
			lastLine(stripansi.Strip(r.Stderr)),
		})
	}

	switch {
	case summary.HasFailures():
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case summary.Flaky > 0:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	overallStatus := "PASS"
	if summary.HasFailures() {
		overallStatus = "FAIL"
	}
	t.AppendFooter(table.Row{
		"TOTAL",
		summary.Total,
		overallStatus,
		fmt.Sprintf("P:%d F:%d E:%d", summary.Passed, summary.Failed, summary.Errors),
		fmt.Sprintf("%.2f", types.RoundSeconds(runDuration)),
		"",
		fmt.Sprintf("flaky: %d", summary.Flaky),
	})

	t.Render()
	return buf.String()
}

func (tf *TableFormatter) getResultString(r types.ExecutionResult) string {
	switch {
	case r.Flaky:
		return "⚠ flaky"
	case r.Status == types.TestStatusPassed:
		return "✓ pass"
	case r.Status == types.TestStatusFailed:
		return "✗ fail"
	default:
		return "! error"
	}
}

func exitCodeText(code *int) string {
	if code == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *code)
}

// lastLine returns the last non-empty stderr line, which is usually the assertion
func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
