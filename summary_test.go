package proctor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-proctor/runner"
	"github.com/ethereum-optimism/infra/op-proctor/types"
)

func mixedRunLog(t *testing.T) *runner.Log {
	t.Helper()

	suite := types.NewSuite("mixed")
	suite.MustAdd(types.CaseSpec{
		Description: "passes",
		ItemType:    "int",
		Expect:      types.ExpectReturn(14),
		Budget:      time.Second,
		Run: func(ex types.Exec) error {
			ex.StartingType("int")
			ex.Returned(14)
			return nil
		},
	})
	suite.MustAdd(types.CaseSpec{
		Description: "faults",
		ItemType:    "error",
		Expect:      types.ExpectCompletion(),
		Budget:      time.Second,
		Run: func(ex types.Exec) error {
			ex.StartingType("error")
			return errors.New("boom")
		},
	})
	suite.MustAdd(types.CaseSpec{
		Description: "skipped",
		ItemType:    "none",
		Expect:      types.ExpectCompletion(),
		Skip:        func() bool { return true },
		Run: func(ex types.Exec) error {
			ex.StartingType("none")
			ex.Returned(nil)
			return nil
		},
	})

	driver, err := runner.NewDriver(log.NewLogger(log.DiscardHandler()))
	require.NoError(t, err)
	rl := runner.NewLog(suite.Name(), runner.Hooks{})
	require.NoError(t, driver.RunAll(context.Background(), suite, rl))
	return rl
}

func TestSummarize(t *testing.T) {
	rl := mixedRunLog(t)
	s := Summarize(rl)

	assert.Equal(t, rl.RunID(), s.RunID)
	assert.Equal(t, "mixed", s.Suite)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.NoResult)
	assert.Equal(t, RunOutcomeFail, s.Outcome())
}

func TestSummaryString(t *testing.T) {
	s := Summarize(mixedRunLog(t))
	out := s.String()

	assert.Contains(t, out, "Test Run Results (")
	assert.Contains(t, out, "Total: 3, Passed: 1, Failed: 1, No result: 1")
	assert.Contains(t, out, "├── Case: passes (")
	assert.Contains(t, out, "[status=complete_abnormal, evaluation=failed]")
	assert.Contains(t, out, "│       └── Fault: boom")
	assert.Contains(t, out, "[status=skipped, evaluation=no_result]")
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name     string
		summary  RunSummary
		expected RunOutcome
	}{
		{"all passed", RunSummary{Total: 2, Passed: 2}, RunOutcomePass},
		{"one failure fails the run", RunSummary{Total: 3, Passed: 2, Failed: 1}, RunOutcomeFail},
		{"nothing evaluated", RunSummary{Total: 2, NoResult: 2}, RunOutcomeSkip},
		{"empty run", RunSummary{}, RunOutcomeSkip},
		{"passes beside skips", RunSummary{Total: 2, Passed: 1, NoResult: 1}, RunOutcomePass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.summary.Outcome())
		})
	}
}
