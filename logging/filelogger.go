package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/qa-agent/qa-acceptor/types"
)

const (
	RunDirectoryPrefix = "testrun-"
	PassedDirName      = "passed"
	FailedDirName      = "failed"
	SummaryFileName    = "summary.log"
	AllLogsFileName    = "all.log"
)

// ResultSink is an interface for different ways of consuming script results
type ResultSink interface {
	// Consume processes a single result
	Consume(result *types.ExecutionResult, runID string) error
	// Complete is called when all results have been consumed
	Complete(runID string) error
}

// FileLogger writes script output to files under <baseDir>/testrun-<runID>
type FileLogger struct {
	baseDir      string
	logDir       string
	passedDir    string
	failedDir    string
	summaryFile  string
	allLogsFile  string
	mu           sync.Mutex
	sinks        []ResultSink
	asyncWriters map[string]*AsyncFile
	runID        string
}

// AsyncFile provides non-blocking file writing capabilities
type AsyncFile struct {
	file    *os.File
	queue   chan []byte
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewAsyncFile creates a new AsyncFile for non-blocking writes
func NewAsyncFile(path string) (*AsyncFile, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}

	af := &AsyncFile{
		file:  file,
		queue: make(chan []byte, 100),
	}

	af.wg.Add(1)
	go af.processQueue()

	return af, nil
}

// Write queues data to be written asynchronously
func (af *AsyncFile) Write(data []byte) error {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.stopped {
		return fmt.Errorf("async file is closed")
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	af.queue <- dataCopy
	return nil
}

func (af *AsyncFile) processQueue() {
	defer af.wg.Done()

	for data := range af.queue {
		if _, err := af.file.Write(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing to file: %v\n", err)
		}
	}
}

// Close stops the async writer and closes the file
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if !af.stopped {
		af.stopped = true
		close(af.queue)
	}
	af.mu.Unlock()

	af.wg.Wait()
	return af.file.Close()
}

// NewFileLogger creates the run directory layout and the default sinks
func NewFileLogger(baseDir string, runID string) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	logger := &FileLogger{
		baseDir:      baseDir,
		logDir:       logDir,
		passedDir:    filepath.Join(logDir, PassedDirName),
		failedDir:    filepath.Join(logDir, FailedDirName),
		summaryFile:  filepath.Join(logDir, SummaryFileName),
		allLogsFile:  filepath.Join(logDir, AllLogsFileName),
		asyncWriters: make(map[string]*AsyncFile),
		runID:        runID,
	}

	for _, dir := range []string{baseDir, logDir, logger.passedDir, logger.failedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	logger.sinks = []ResultSink{
		&AllLogsFileSink{logger: logger},
		&PerTestFileSink{logger: logger},
	}
	return logger, nil
}

// AddSink registers an additional result consumer
func (l *FileLogger) AddSink(sink ResultSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, sink)
}

func (l *FileLogger) getAsyncWriter(path string) (*AsyncFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if writer, exists := l.asyncWriters[path]; exists {
		return writer, nil
	}
	writer, err := NewAsyncFile(path)
	if err != nil {
		return nil, err
	}
	l.asyncWriters[path] = writer
	return writer, nil
}

func (l *FileLogger) closeAllWriters() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, writer := range l.asyncWriters {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.asyncWriters = make(map[string]*AsyncFile)
	return firstErr
}

// LogResult feeds a result to every sink
func (l *FileLogger) LogResult(result *types.ExecutionResult) error {
	l.mu.Lock()
	sinks := append([]ResultSink(nil), l.sinks...)
	l.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.Consume(result, l.runID); err != nil {
			return fmt.Errorf("error in sink: %w", err)
		}
	}
	return nil
}

// LogSummary writes the run summary text, replacing any previous summary
func (l *FileLogger) LogSummary(summary string) error {
	if err := os.WriteFile(l.summaryFile, []byte(summary), 0644); err != nil {
		return fmt.Errorf("failed to write summary file %s: %w", l.summaryFile, err)
	}
	return nil
}

// Complete finalizes all sinks and flushes buffered writes
func (l *FileLogger) Complete() error {
	for _, sink := range l.sinks {
		if err := sink.Complete(l.runID); err != nil {
			return fmt.Errorf("error completing sink: %w", err)
		}
	}
	return l.closeAllWriters()
}

func (l *FileLogger) GetRunID() string       { return l.runID }
func (l *FileLogger) GetBaseDir() string     { return l.baseDir }
func (l *FileLogger) GetLogDir() string      { return l.logDir }
func (l *FileLogger) GetPassedDir() string   { return l.passedDir }
func (l *FileLogger) GetFailedDir() string   { return l.failedDir }
func (l *FileLogger) GetSummaryFile() string { return l.summaryFile }
func (l *FileLogger) GetAllLogsFile() string { return l.allLogsFile }

// safeFilename converts a string to a safe filename by replacing problematic characters
func safeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	return replacer.Replace(s)
}

// AllLogsFileSink appends every result to a single all.log file
type AllLogsFileSink struct {
	logger *FileLogger
}

// Consume writes a result to all.log, without terminal escape codes
func (s *AllLogsFileSink) Consume(result *types.ExecutionResult, runID string) error {
	writer, err := s.logger.getAsyncWriter(s.logger.allLogsFile)
	if err != nil {
		return err
	}

	var content strings.Builder
	fmt.Fprintf(&content, "\n")
	fmt.Fprintf(&content, "┌─────────────────────────────────────────────────────────────────────┐\n")
	fmt.Fprintf(&content, "│ TEST: %-64s │\n", truncateString(result.TestID, 64))
	fmt.Fprintf(&content, "├─────────────────────────────────────────────────────────────────────┤\n")
	fmt.Fprintf(&content, "│ Status:   %-62s │\n", statusLabel(result))
	fmt.Fprintf(&content, "│ File:     %-62s │\n", truncateString(result.TestFile, 62))
	fmt.Fprintf(&content, "│ Attempts: %-62d │\n", result.Attempts)
	fmt.Fprintf(&content, "│ Duration: %-62s │\n", formatDuration(result.Duration))
	fmt.Fprintf(&content, "│ Time:     %-62s │\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&content, "└─────────────────────────────────────────────────────────────────────┘\n\n")

	writeStream(&content, "STDOUT", stripansi.Strip(result.Stdout))
	writeStream(&content, "STDERR", stripansi.Strip(result.Stderr))
	fmt.Fprintf(&content, "\n")

	return writer.Write([]byte(content.String()))
}

// Complete is a no-op for AllLogsFileSink
func (s *AllLogsFileSink) Complete(runID string) error {
	return nil
}

// PerTestFileSink writes one file per script into passed/ or failed/.
// A repeated test ID replaces the earlier file in either directory.
type PerTestFileSink struct {
	logger *FileLogger
	mu     sync.Mutex
}

// Consume writes the complete output of every attempt of a script
func (s *PerTestFileSink) Consume(result *types.ExecutionResult, runID string) error {
	targetDir, staleDir := s.logger.passedDir, s.logger.failedDir
	if result.Status != types.TestStatusPassed {
		targetDir, staleDir = staleDir, targetDir
	}
	name := safeFilename(result.TestID) + ".txt"
	path := filepath.Join(targetDir, name)

	var content strings.Builder
	fmt.Fprintf(&content, "Test:     %s\n", result.TestID)
	fmt.Fprintf(&content, "File:     %s\n", result.TestFile)
	fmt.Fprintf(&content, "Status:   %s\n", statusLabel(result))
	fmt.Fprintf(&content, "Exit:     %s\n", exitCodeLabel(result.ExitCode))
	fmt.Fprintf(&content, "Attempts: %d\n", result.Attempts)
	fmt.Fprintf(&content, "Duration: %s\n", formatDuration(result.Duration))

	if first := result.FirstAttempt; first != nil {
		fmt.Fprintf(&content, "\n%s\nFIRST ATTEMPT (%s, exit %s, %s)\n%s\n",
			strings.Repeat("=", 80), first.Status, exitCodeLabel(first.ExitCode),
			formatDuration(first.Duration), strings.Repeat("=", 80))
		writeStream(&content, "STDOUT", first.Stdout)
		writeStream(&content, "STDERR", first.Stderr)
		fmt.Fprintf(&content, "\n%s\nFINAL RESULT\n%s\n", strings.Repeat("=", 80), strings.Repeat("=", 80))
	}
	writeStream(&content, "STDOUT", result.Stdout)
	writeStream(&content, "STDERR", result.Stderr)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(path, []byte(content.String()), 0644); err != nil {
		return fmt.Errorf("failed to write test log file %s: %w", path, err)
	}
	stale := filepath.Join(staleDir, name)
	if err := os.Remove(stale); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale test log file %s: %w", stale, err)
	}
	return nil
}

// Complete is a no-op for PerTestFileSink
func (s *PerTestFileSink) Complete(runID string) error {
	return nil
}

func writeStream(b *strings.Builder, name, text string) {
	if text == "" {
		return
	}
	fmt.Fprintf(b, "\n%s:\n%s\n", name, strings.Repeat("~", len(name)+1))
	fmt.Fprintf(b, "%s\n", indentText(text, "  "))
}

func statusLabel(result *types.ExecutionResult) string {
	if result.Flaky {
		return string(result.Status) + " (flaky)"
	}
	return string(result.Status)
}

func exitCodeLabel(code *int) string {
	if code == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *code)
}

// indentText adds indentation to each non-empty line
func indentText(text, indent string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = indent + line
		}
	}
	return strings.Join(lines, "\n")
}

// truncateString truncates a string to maxLen, adding an ellipsis if needed
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}
