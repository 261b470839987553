package types

import "strings"

// Status identifies where a case execution sits in its lifecycle. A result
// starts Enqueued and either advances through the three running phases to a
// terminal completion, or short-circuits to Skipped before launch or to
// TimedOut when its budget expires.
type Status string

const (
	StatusEnqueued          Status = "enqueued"
	StatusRunningSetup      Status = "running_setup"
	StatusRunningProcessing Status = "running_processing"
	StatusRunningTeardown   Status = "running_teardown"
	StatusCompleteNormal    Status = "complete_normal"
	StatusCompleteAbnormal  Status = "complete_abnormal"
	StatusTimedOut          Status = "timed_out"
	StatusSkipped           Status = "skipped"
)

// Running reports whether the case is between launch and a terminal state.
func (s Status) Running() bool {
	switch s {
	case StatusRunningSetup, StatusRunningProcessing, StatusRunningTeardown:
		return true
	}
	return false
}

// Terminal reports whether the status can never change again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleteNormal, StatusCompleteAbnormal, StatusTimedOut, StatusSkipped:
		return true
	}
	return false
}

// Complete reports whether the case ran to a completion state, normal or
// abnormal. TimedOut and Skipped are terminal but not complete.
func (s Status) Complete() bool {
	return s == StatusCompleteNormal || s == StatusCompleteAbnormal
}

// Display renders the status for reports: underscores become spaces and the
// first letter is capitalized, e.g. "running_setup" becomes "Running setup".
func (s Status) Display() string {
	return displayEnum(string(s))
}

// Evaluation is the framework's judgement of a terminal result against the
// case's declared expectation.
type Evaluation string

const (
	// EvalNoResult means no judgement applies: the case was skipped or has
	// not reached a completion state yet.
	EvalNoResult Evaluation = "no_result"
	EvalPassed   Evaluation = "passed"
	EvalFailed   Evaluation = "failed"
)

// Display renders the evaluation for reports, e.g. "no_result" becomes
// "No result".
func (e Evaluation) Display() string {
	return displayEnum(string(e))
}

func displayEnum(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}
