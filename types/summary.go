package types

import (
	"encoding/json"
	"fmt"
)

// RunSummary is the aggregate, ordered record of one orchestrator run
type RunSummary struct {
	RunID   string            `json:"run_id"`
	Folder  string            `json:"folder"`
	Total   int               `json:"total"`
	Passed  int               `json:"passed"`
	Failed  int               `json:"failed"`
	Errors  int               `json:"errors"`
	Flaky   int               `json:"flaky"`
	Results []ExecutionResult `json:"results"`
}

// Validate checks the counting invariants of the summary
func (s *RunSummary) Validate() error {
	if s.Total != s.Passed+s.Failed+s.Errors {
		return fmt.Errorf("total %d does not equal passed %d + failed %d + errors %d",
			s.Total, s.Passed, s.Failed, s.Errors)
	}
	if s.Flaky < 0 || s.Flaky > s.Passed {
		return fmt.Errorf("flaky count %d outside [0, passed=%d]", s.Flaky, s.Passed)
	}
	if len(s.Results) != s.Total {
		return fmt.Errorf("total %d does not match %d results", s.Total, len(s.Results))
	}
	return nil
}

// HasFailures reports whether any script ended as failed or error
func (s *RunSummary) HasFailures() bool {
	return s.Failed > 0 || s.Errors > 0
}

// String returns the one-line summary used in logs and reports
func (s *RunSummary) String() string {
	return fmt.Sprintf("Total: %d | Passed: %d | Failed: %d | Errors: %d | Flaky: %d",
		s.Total, s.Passed, s.Failed, s.Errors, s.Flaky)
}

// MarshalJSON adds the rounded duration_sec field
func (a Attempt) MarshalJSON() ([]byte, error) {
	type attempt Attempt
	return json.Marshal(struct {
		attempt
		DurationSec float64 `json:"duration_sec"`
	}{
		attempt:     attempt(a),
		DurationSec: RoundSeconds(a.Duration),
	})
}

// MarshalJSON adds the rounded duration_sec field
func (r ExecutionResult) MarshalJSON() ([]byte, error) {
	type result ExecutionResult
	return json.Marshal(struct {
		result
		DurationSec float64 `json:"duration_sec"`
	}{
		result:      result(r),
		DurationSec: r.DurationSeconds(),
	})
}
