package runner

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/qa-agent/qa-acceptor/types"
)

// ProgressIndicator interface for UI updates
type ProgressIndicator interface {
	StartRun(totalScripts int)
	StartScript(testID string)
	CompleteScript(testID string, status types.TestStatus, flaky bool)
	CompleteRun()
}

// noOpProgressIndicator provides a no-op implementation of ProgressIndicator
type noOpProgressIndicator struct{}

// NewNoOpProgressIndicator creates a progress indicator that does nothing
func NewNoOpProgressIndicator() ProgressIndicator {
	return &noOpProgressIndicator{}
}

func (n *noOpProgressIndicator) StartRun(totalScripts int)                                     {}
func (n *noOpProgressIndicator) StartScript(testID string)                                     {}
func (n *noOpProgressIndicator) CompleteScript(testID string, status types.TestStatus, _ bool) {}
func (n *noOpProgressIndicator) CompleteRun()                                                  {}

// consoleProgressIndicator periodically logs how far the run has got
type consoleProgressIndicator struct {
	logger   log.Logger
	interval time.Duration
	mu       sync.RWMutex

	completed int
	failed    int
	flaky     int
	total     int
	startTime time.Time

	// test ID -> start time
	running map[string]time.Time

	ticker *time.Ticker
	stopCh chan struct{}
}

// NewConsoleProgressIndicator creates a progress indicator that logs an update every interval
func NewConsoleProgressIndicator(logger log.Logger, interval time.Duration) ProgressIndicator {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &consoleProgressIndicator{
		logger:   logger,
		interval: interval,
		running:  make(map[string]time.Time),
	}
}

func (c *consoleProgressIndicator) StartRun(totalScripts int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total = totalScripts
	c.completed, c.failed, c.flaky = 0, 0, 0
	c.startTime = time.Now()
	c.running = make(map[string]time.Time)

	if c.stopCh == nil {
		c.ticker = time.NewTicker(c.interval)
		c.stopCh = make(chan struct{})
		go c.progressReporter(c.ticker, c.stopCh)
	}

	c.logger.Info("Starting run", "totalScripts", totalScripts)
}

func (c *consoleProgressIndicator) StartScript(testID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.running[testID] = time.Now()
	c.logger.Debug("Script started", "test", testID, "running", len(c.running))
}

func (c *consoleProgressIndicator) CompleteScript(testID string, status types.TestStatus, flaky bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.running, testID)
	c.completed++
	if status != types.TestStatusPassed {
		c.failed++
	}
	if flaky {
		c.flaky++
	}
	c.logger.Debug("Script completed", "test", testID, "status", status, "flaky", flaky,
		"completed", c.completed, "total", c.total)
}

func (c *consoleProgressIndicator) CompleteRun() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopCh != nil {
		c.ticker.Stop()
		close(c.stopCh)
		c.stopCh = nil
	}

	duration := time.Since(c.startTime).Truncate(time.Second)
	c.logger.Info("Completed run", "completed", c.completed, "total", c.total,
		"notPassed", c.failed, "flaky", c.flaky, "duration", duration)
}

func (c *consoleProgressIndicator) progressReporter(ticker *time.Ticker, stopCh chan struct{}) {
	for {
		select {
		case <-ticker.C:
			c.reportProgress()
		case <-stopCh:
			return
		}
	}
}

func (c *consoleProgressIndicator) reportProgress() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var percentComplete float64
	if c.total > 0 {
		percentComplete = float64(c.completed) * 100.0 / float64(c.total)
	}

	c.logger.Info("Progress update",
		"completed", c.completed,
		"total", c.total,
		"percent", fmt.Sprintf("%.1f%%", percentComplete),
		"notPassed", c.failed,
		"numRunning", len(c.running),
		"longestRunning", formatRunningScripts(c.running, 3),
	)
}

// formatRunningScripts lists the longest running scripts first, at most maxShow of them
func formatRunningScripts(running map[string]time.Time, maxShow int) string {
	if len(running) == 0 {
		return ""
	}

	type runningScript struct {
		name     string
		duration time.Duration
	}

	now := time.Now()
	scripts := make([]runningScript, 0, len(running))
	for name, startTime := range running {
		scripts = append(scripts, runningScript{name: name, duration: now.Sub(startTime)})
	}
	sort.Slice(scripts, func(i, j int) bool {
		if scripts[i].duration == scripts[j].duration {
			return scripts[i].name < scripts[j].name
		}
		return scripts[i].duration > scripts[j].duration
	})

	var parts []string
	for i, s := range scripts {
		if i >= maxShow {
			break
		}
		parts = append(parts, fmt.Sprintf("%s (%v)", s.name, s.duration.Truncate(time.Second)))
	}
	if len(scripts) > maxShow {
		parts = append(parts, fmt.Sprintf("+%d more", len(scripts)-maxShow))
	}
	return strings.Join(parts, ", ")
}
