package proctor

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-proctor/runner"
	"github.com/ethereum-optimism/infra/op-proctor/types"
)

// RunOutcome is the rolled-up verdict of one suite run.
type RunOutcome string

const (
	RunOutcomePass RunOutcome = "pass"
	RunOutcomeFail RunOutcome = "fail"
	RunOutcomeSkip RunOutcome = "skip"
)

// RunSummary aggregates a finished run log into the counts the operator
// surfaces care about.
type RunSummary struct {
	RunID    string
	Suite    string
	Total    int
	Passed   int
	Failed   int
	NoResult int
	Duration time.Duration

	entries []*runner.Result
}

// Summarize rolls up the entries of rl. It works on open logs too, but the
// duration is only final once the log is sealed.
func Summarize(rl *runner.Log) *RunSummary {
	s := &RunSummary{
		RunID:    rl.RunID(),
		Suite:    rl.Name(),
		Duration: rl.Elapsed(),
		entries:  rl.Entries(),
	}
	for _, res := range s.entries {
		s.Total++
		eval, err := res.Evaluation()
		if err != nil {
			s.NoResult++
			continue
		}
		switch eval {
		case types.EvalPassed:
			s.Passed++
		case types.EvalFailed:
			s.Failed++
		default:
			s.NoResult++
		}
	}
	return s
}

// Outcome reduces the counts to a single verdict: any failure fails the run,
// and a run where nothing was evaluated is a skip.
func (s *RunSummary) Outcome() RunOutcome {
	if s.Failed > 0 {
		return RunOutcomeFail
	}
	if s.Passed == 0 {
		return RunOutcomeSkip
	}
	return RunOutcomePass
}

func (s *RunSummary) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Test Run Results (%s):\n", formatDuration(s.Duration)))
	b.WriteString(fmt.Sprintf("Total: %d, Passed: %d, Failed: %d, No result: %d\n",
		s.Total, s.Passed, s.Failed, s.NoResult))

	for _, res := range s.entries {
		evalStr := "-"
		if eval, err := res.Evaluation(); err == nil {
			evalStr = string(eval)
		}
		b.WriteString(fmt.Sprintf("├── Case: %s (%s) [status=%s, evaluation=%s]\n",
			res.Case().Description, formatRunTime(res), res.Status(), evalStr))
		if fault := res.Fault(); fault != nil {
			b.WriteString(fmt.Sprintf("│       └── Fault: %s\n", firstLine(fault.Error())))
		}
	}
	return b.String()
}

func formatRunTime(res *runner.Result) string {
	d, err := res.RunTime()
	if err != nil {
		return "-"
	}
	return formatDuration(d)
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx != -1 {
		return s[:idx]
	}
	return s
}
