package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/qa-agent/qa-acceptor/types"
)

const (
	MetricsNamespace = "qa_acceptor"
)

var (
	Debug                bool
	nonAlphanumericRegex = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	scriptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "scripts_total",
		Help:      "Count of executed scripts by final status",
	}, []string{
		"status",
	})

	flakyTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "flaky_total",
		Help:      "Count of scripts that failed once and passed on retry",
	})

	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "attempts_total",
		Help:      "Count of script process invocations by attempt status",
	}, []string{
		"status",
	})

	scriptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "script_duration_seconds",
		Help:      "Duration of scripts including retries",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 240, 480},
	}, []string{
		"status",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of orchestrator runs by result",
	}, []string{
		"result",
	})

	lastRunScripts = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "last_run_scripts",
		Help:      "Script counts of the most recent run",
	}, []string{
		"status",
	})

	lastRunDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "last_run_duration_seconds",
		Help:      "Duration of the most recent run",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordAttempt counts one process invocation
func RecordAttempt(status types.TestStatus) {
	if !status.IsValid() {
		log.Error("RecordAttempt - invalid status", "status", status)
		return
	}
	attemptsTotal.WithLabelValues(string(status)).Inc()
}

// RecordScript records the final classification of one script
func RecordScript(result *types.ExecutionResult) {
	if !result.Status.IsValid() {
		log.Error("RecordScript - invalid status", "status", result.Status)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "scripts_total",
			"test", result.TestID,
			"status", result.Status,
			"flaky", result.Flaky)
	}
	scriptsTotal.WithLabelValues(string(result.Status)).Inc()
	scriptDuration.WithLabelValues(string(result.Status)).Observe(result.Duration.Seconds())
	if result.Flaky {
		flakyTotal.Inc()
	}
}

// RecordRun records the outcome of a completed run
func RecordRun(summary *types.RunSummary, duration time.Duration) {
	result := "pass"
	if summary.HasFailures() {
		result = "fail"
	}
	runsTotal.WithLabelValues(result).Inc()

	lastRunScripts.WithLabelValues("total").Set(float64(summary.Total))
	lastRunScripts.WithLabelValues(string(types.TestStatusPassed)).Set(float64(summary.Passed))
	lastRunScripts.WithLabelValues(string(types.TestStatusFailed)).Set(float64(summary.Failed))
	lastRunScripts.WithLabelValues(string(types.TestStatusError)).Set(float64(summary.Errors))
	lastRunScripts.WithLabelValues("flaky").Set(float64(summary.Flaky))
	lastRunDuration.Set(duration.Seconds())
}

// RecordRunFailure counts a run that aborted before producing a report
func RecordRunFailure(err error) {
	runsTotal.WithLabelValues("error").Inc()
	RecordErrorDetails("run", err)
}
