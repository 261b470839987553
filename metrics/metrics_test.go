package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/ethereum-optimism/infra/op-proctor/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name: "simple error",
			err:  errors.New("test error"),
		},
		{
			name: "error with special chars",
			err:  errors.New("test@error#123"),
		},
		{
			name: "error with multiple spaces",
			err:  errors.New("test   error"),
		},
		{
			name: "error with multiple underscores",
			err:  errors.New("test__error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
			if !validLabelRegex.MatchString(result) {
				t.Errorf("errLabel() = %v, is not a valid Prometheus label", result)
			}
		})
	}
}

func TestRecordError(t *testing.T) {
	// just test that it doesn't panic
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("RecordError panic'd")
		}
	}()

	RecordError("test_error")
}

func TestRecordErrorDetails(t *testing.T) {
	// Test with nil error
	RecordErrorDetails("test", nil)

	// Test with actual error
	RecordErrorDetails("test", errors.New("sample error"))
}

func TestRecordCase(t *testing.T) {
	// Test various case outcomes
	RecordCase("smoke", "run1", "Return an int", types.StatusCompleteNormal, types.EvalPassed)
	RecordCase("smoke", "run1", "Throw an expected fault", types.StatusCompleteAbnormal, types.EvalPassed)
	RecordCase("smoke", "run1", "Sleep past the budget", types.StatusTimedOut, types.EvalFailed)
	RecordCase("smoke", "run1", "Skipped case", types.StatusSkipped, types.EvalNoResult)

	// Invalid evaluations are dropped rather than recorded
	RecordCase("smoke", "run1", "Bogus", types.StatusCompleteNormal, types.Evaluation("bogus"))
}

func TestRecordRun(t *testing.T) {
	RecordRun("smoke", "run1", "pass", 3, 3, 0, time.Second)
	RecordRun("smoke", "run1", "fail", 3, 2, 1, time.Second)
}

func TestRecordAbandonedScope(t *testing.T) {
	RecordAbandonedScope("Hang forever")
}
