// Package reporting renders run summaries as an HTML report, a JSON document
// and a console table.
package reporting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/qa-agent/qa-acceptor/templates"
	"github.com/qa-agent/qa-acceptor/types"
)

// DefaultReportName is the report file written into the test folder
const DefaultReportName = "test_report.html"

// Renderer writes the HTML report and its JSON companion
type Renderer struct {
	tmpl *template.Template
	log  log.Logger
}

// NewRenderer parses the embedded report template
func NewRenderer(logger log.Logger) (*Renderer, error) {
	if logger == nil {
		logger = log.Root()
	}
	tmpl, err := templates.GetReportTemplate()
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl, log: logger.New("component", "report-renderer")}, nil
}

// JSONPath returns the machine-readable summary path that accompanies htmlPath
func JSONPath(htmlPath string) string {
	return strings.TrimSuffix(htmlPath, filepath.Ext(htmlPath)) + ".json"
}

// Render writes the HTML report to htmlPath and the JSON summary next to it,
// overwriting existing files. Output depends only on summary.
func (r *Renderer) Render(summary *types.RunSummary, htmlPath string) error {
	html, err := r.RenderHTML(summary)
	if err != nil {
		return err
	}
	if err := os.WriteFile(htmlPath, html, 0644); err != nil {
		return fmt.Errorf("failed to write HTML report %s: %w", htmlPath, err)
	}
	r.log.Info("HTML report written", "path", htmlPath)

	jsonPath := JSONPath(htmlPath)
	if err := WriteJSON(summary, jsonPath); err != nil {
		return err
	}
	r.log.Info("JSON summary written", "path", jsonPath)
	return nil
}

// RenderHTML returns the HTML document for summary
func (r *Renderer) RenderHTML(summary *types.RunSummary) ([]byte, error) {
	if summary == nil {
		return nil, fmt.Errorf("summary cannot be nil")
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, summary); err != nil {
		return nil, fmt.Errorf("failed to render HTML report: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteJSON writes summary as indented JSON to path
func WriteJSON(summary *types.RunSummary, path string) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON summary %s: %w", path, err)
	}
	return nil
}
