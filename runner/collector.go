package runner

import (
	"github.com/qa-agent/qa-acceptor/types"
)

// Aggregate folds results into a RunSummary, preserving their order. Every
// result counts toward exactly one of passed, failed or errors.
func Aggregate(folder string, results []types.ExecutionResult) *types.RunSummary {
	summary := &types.RunSummary{
		Folder:  folder,
		Total:   len(results),
		Results: make([]types.ExecutionResult, len(results)),
	}
	copy(summary.Results, results)

	for _, r := range results {
		switch r.Status {
		case types.TestStatusPassed:
			summary.Passed++
			if r.Flaky {
				summary.Flaky++
			}
		case types.TestStatusFailed:
			summary.Failed++
		default:
			summary.Errors++
		}
	}
	return summary
}
