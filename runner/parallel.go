package runner

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/qa-agent/qa-acceptor/types"
)

// runParallel classifies scripts on a pool of at most r.concurrency
// goroutines. Each task writes to its own slot so results keep input order.
func (r *ScriptRunner) runParallel(ctx context.Context, scripts []types.ScriptFile, creds types.Credentials) []types.ExecutionResult {
	results := make([]types.ExecutionResult, len(scripts))

	p := pool.New().WithMaxGoroutines(r.concurrency)
	for i, script := range scripts {
		p.Go(func() {
			results[i] = *r.runScript(ctx, script, creds)
		})
	}
	p.Wait()

	return results
}
