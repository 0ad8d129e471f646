package templates

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qa-agent/qa-acceptor/types"
)

func TestGetRowClass(t *testing.T) {
	tests := []struct {
		name   string
		result types.ExecutionResult
		want   string
	}{
		{"passed", types.ExecutionResult{Status: types.TestStatusPassed}, "pass"},
		{"flaky", types.ExecutionResult{Status: types.TestStatusPassed, Flaky: true}, "flaky"},
		{"failed", types.ExecutionResult{Status: types.TestStatusFailed}, "fail"},
		{"error", types.ExecutionResult{Status: types.TestStatusError}, "fail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getRowClass(tt.result))
		})
	}
}

func TestTemplateFunctions(t *testing.T) {
	funcs := GetTemplateFunc()

	formatSeconds := funcs["formatSeconds"].(func(time.Duration) string)
	assert.Equal(t, "1.23", formatSeconds(1234*time.Millisecond))
	assert.Equal(t, "0.00", formatSeconds(0))

	statusText := funcs["getStatusText"].(func(types.ExecutionResult) string)
	assert.Equal(t, "passed (flaky)", statusText(types.ExecutionResult{Status: types.TestStatusPassed, Flaky: true}))
	assert.Equal(t, "error", statusText(types.ExecutionResult{Status: types.TestStatusError}))
}

func TestGetReportTemplate(t *testing.T) {
	tmpl, err := GetReportTemplate()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, &types.RunSummary{Folder: "/tests", Results: []types.ExecutionResult{}}))
	assert.Contains(t, buf.String(), "QA Agent Test Report")
}
