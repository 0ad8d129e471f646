package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qa-agent/qa-acceptor/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil error", err: nil, want: "nil"},
		{name: "simple error", err: errors.New("test error"), want: "test_error"},
		{name: "error with special chars", err: errors.New("test@error#123"), want: "testerror"},
		{name: "error with multiple underscores", err: errors.New("test__error"), want: "testerror"},
	}

	validLabelRegex := regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			assert.Equal(t, tt.want, result)
			assert.Regexp(t, validLabelRegex, result)
		})
	}
}

func TestRecordError(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordError("test_error")
		RecordErrorDetails("label", errors.New("boom"))
		RecordErrorDetails("label", nil)
	})
}

// gatheredValue returns the summed value of a counter or gauge family matching the label pair
func gatheredValue(t *testing.T, name, label, value string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := label == ""
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					matched = true
				}
			}
			if !matched {
				continue
			}
			total += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
	}
	return total
}

func TestRecordScript(t *testing.T) {
	beforePassed := gatheredValue(t, "qa_acceptor_scripts_total", "status", "passed")
	beforeFlaky := gatheredValue(t, "qa_acceptor_flaky_total", "", "")

	RecordScript(&types.ExecutionResult{TestID: "a", Status: types.TestStatusPassed, Flaky: true, Duration: time.Second})
	RecordScript(&types.ExecutionResult{TestID: "b", Status: types.TestStatusPassed})
	RecordScript(&types.ExecutionResult{TestID: "c", Status: "bogus"})

	assert.Equal(t, beforePassed+2, gatheredValue(t, "qa_acceptor_scripts_total", "status", "passed"))
	assert.Equal(t, beforeFlaky+1, gatheredValue(t, "qa_acceptor_flaky_total", "", ""))
}

func TestRecordAttempt(t *testing.T) {
	before := gatheredValue(t, "qa_acceptor_attempts_total", "status", "failed")
	RecordAttempt(types.TestStatusFailed)
	RecordAttempt("bogus")
	assert.Equal(t, before+1, gatheredValue(t, "qa_acceptor_attempts_total", "status", "failed"))
}

func TestRecordRun(t *testing.T) {
	RecordRun(&types.RunSummary{Total: 3, Passed: 2, Failed: 1, Flaky: 1}, 5*time.Second)

	assert.Equal(t, 3.0, gatheredValue(t, "qa_acceptor_last_run_scripts", "status", "total"))
	assert.Equal(t, 1.0, gatheredValue(t, "qa_acceptor_last_run_scripts", "status", "flaky"))
	assert.Equal(t, 5.0, gatheredValue(t, "qa_acceptor_last_run_duration_seconds", "", ""))
}
