package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qa-agent/qa-acceptor/types"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(log.NewLogger(log.DiscardHandler()))
	require.NoError(t, err)
	return r
}

func sampleSummary() *types.RunSummary {
	return &types.RunSummary{
		RunID:  "run-1",
		Folder: "/tests",
		Total:  3,
		Passed: 2,
		Failed: 1,
		Flaky:  1,
		Results: []types.ExecutionResult{
			{TestID: "test_about", Status: types.TestStatusPassed, Duration: 1234 * time.Millisecond, ExitCode: types.IntPtr(0), Attempts: 1},
			{TestID: "test_cart", Status: types.TestStatusPassed, Flaky: true, Duration: 2 * time.Second, ExitCode: types.IntPtr(0), Attempts: 2,
				Stderr: "\n\n[FLAKY: FIRST ATTEMPT FAILED (exit code 1)]\nTimeout waiting for selector"},
			{TestID: "test_login", Status: types.TestStatusFailed, Duration: 3 * time.Second, ExitCode: types.IntPtr(1), Attempts: 2,
				Stderr: "\x1b[31mAssertionError: <script>alert('x')</script>\x1b[0m"},
		},
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := newTestRenderer(t).RenderHTML(sampleSummary())
	require.NoError(t, err)
	out := string(html)

	assert.Contains(t, out, "<title>QA Agent Test Report</title>")
	assert.Contains(t, out, "Total: 3 |")
	assert.Contains(t, out, "Flaky: 1")
	assert.Contains(t, out, `<tr class="pass">`)
	assert.Contains(t, out, `<tr class="flaky">`)
	assert.Contains(t, out, `<tr class="fail">`)
	assert.Contains(t, out, "passed (flaky)")
	assert.Contains(t, out, "<td>1.23</td>")
	assert.Contains(t, out, "<td>2.00</td>")

	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "\x1b[31m")

	// rows keep summary order
	about := strings.Index(out, "test_about")
	cart := strings.Index(out, "test_cart")
	login := strings.Index(out, "test_login")
	assert.True(t, about < cart && cart < login)
}

func TestRenderHTMLEmptySummary(t *testing.T) {
	html, err := newTestRenderer(t).RenderHTML(&types.RunSummary{Folder: "/tests", Results: []types.ExecutionResult{}})
	require.NoError(t, err)
	out := string(html)

	assert.Contains(t, out, "Total: 0 |")
	assert.Contains(t, out, "<th>Test ID</th>")
	assert.NotContains(t, out, "<tr class=")
}

func TestRenderHTMLNilSummary(t *testing.T) {
	_, err := newTestRenderer(t).RenderHTML(nil)
	assert.Error(t, err)
}

func TestRenderWritesHTMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, DefaultReportName)
	r := newTestRenderer(t)
	summary := sampleSummary()

	require.NoError(t, r.Render(summary, htmlPath))
	first, err := os.ReadFile(htmlPath)
	require.NoError(t, err)

	// idempotent for identical input
	require.NoError(t, r.Render(summary, htmlPath))
	second, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	data, err := os.ReadFile(filepath.Join(dir, "test_report.json"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.EqualValues(t, 3, decoded["total"])
	assert.EqualValues(t, 1, decoded["flaky"])
	results := decoded["results"].([]any)
	require.Len(t, results, 3)
	assert.EqualValues(t, 1.23, results[0].(map[string]any)["duration_sec"])
	assert.Equal(t, "test_cart", results[1].(map[string]any)["test_id"])
}

func TestRenderOverwritesExistingReport(t *testing.T) {
	htmlPath := filepath.Join(t.TempDir(), DefaultReportName)
	require.NoError(t, os.WriteFile(htmlPath, []byte("stale"), 0644))

	require.NoError(t, newTestRenderer(t).Render(sampleSummary(), htmlPath))
	data, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestRenderUnwritableLocation(t *testing.T) {
	htmlPath := filepath.Join(t.TempDir(), "missing", DefaultReportName)
	err := newTestRenderer(t).Render(sampleSummary(), htmlPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write HTML report")
}

func TestJSONPath(t *testing.T) {
	assert.Equal(t, "/a/test_report.json", JSONPath("/a/test_report.html"))
	assert.Equal(t, "/a/report.json", JSONPath("/a/report"))
}
