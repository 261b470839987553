package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-proctor/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "proctor"
)

var (
	Debug                bool = true
	validEvaluations          = []types.Evaluation{types.EvalNoResult, types.EvalPassed, types.EvalFailed}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	casesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "cases_total",
		Help:      "Count of executed test cases",
	}, []string{
		"suite",
		"run_id",
		"case",
		"status",
		"evaluation",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of suite runs",
	}, []string{
		"suite",
		"run_id",
		"result",
	})

	runCasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_cases_total",
		Help:      "Total number of cases in a run",
	}, []string{
		"suite",
		"run_id",
	})

	runCasesPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_cases_passed",
		Help:      "Number of passed cases in a run",
	}, []string{
		"suite",
		"run_id",
	})

	runCasesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_cases_failed",
		Help:      "Number of failed cases in a run",
	}, []string{
		"suite",
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration",
		Help:      "Duration of suite runs",
	}, []string{
		"suite",
		"run_id",
	})

	abandonedScopesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "abandoned_scopes_total",
		Help:      "Count of execution scopes abandoned with live goroutines",
	}, []string{
		"case",
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

func RecordCase(suite string, runID string, caseDesc string, status types.Status, eval types.Evaluation) {
	if !isValidEvaluation(eval) {
		log.Error("RecordCase - invalid evaluation", "evaluation", eval)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "cases_total",
			"suite", suite,
			"run_id", runID,
			"case", caseDesc,
			"status", status,
			"evaluation", eval)
	}
	casesTotal.WithLabelValues(suite, runID, caseDesc, string(status), string(eval)).Inc()
}

func RecordRun(
	suite string,
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	duration time.Duration,
) {
	runResults.WithLabelValues(suite, runID, result).Set(1)
	runCasesTotal.WithLabelValues(suite, runID).Add(float64(total))
	runCasesPassed.WithLabelValues(suite, runID).Add(float64(passed))
	runCasesFailed.WithLabelValues(suite, runID).Add(float64(failed))
	runDuration.WithLabelValues(suite, runID).Set(duration.Seconds())
}

func RecordAbandonedScope(caseDesc string) {
	if Debug {
		log.Debug("metric inc",
			"m", "abandoned_scopes_total",
			"case", caseDesc)
	}
	abandonedScopesTotal.WithLabelValues(caseDesc).Inc()
}

func isValidEvaluation(eval types.Evaluation) bool {
	return slices.Contains(validEvaluations, eval)
}
