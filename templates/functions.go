// Package templates holds the embedded report template and the functions it uses.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/qa-agent/qa-acceptor/types"
)

const ReportTemplateName = "report.html.tmpl"

//go:embed *.html.tmpl
var templateFS embed.FS

// GetTemplateFunc returns the template functions used across the application
func GetTemplateFunc() template.FuncMap {
	return template.FuncMap{
		"formatSeconds": func(d time.Duration) string {
			return fmt.Sprintf("%.2f", types.RoundSeconds(d))
		},
		"getRowClass": func(result types.ExecutionResult) string {
			return getRowClass(result)
		},
		"getStatusText": func(result types.ExecutionResult) string {
			if result.Flaky {
				return string(result.Status) + " (flaky)"
			}
			return string(result.Status)
		},
		"stripANSI": stripansi.Strip,
	}
}

// GetReportTemplate parses the embedded HTML report template
func GetReportTemplate() (*template.Template, error) {
	tmpl, err := template.New(ReportTemplateName).Funcs(GetTemplateFunc()).ParseFS(templateFS, ReportTemplateName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}
	return tmpl, nil
}

// getRowClass maps a result to its table row class. Flaky wins over pass.
func getRowClass(result types.ExecutionResult) string {
	switch {
	case result.Flaky:
		return "flaky"
	case result.Status == types.TestStatusPassed:
		return "pass"
	default:
		return "fail"
	}
}
