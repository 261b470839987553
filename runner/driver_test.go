package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-proctor/types"
)

func TestNewDriver_RequiresLogger(t *testing.T) {
	_, err := NewDriver(nil)
	require.Error(t, err)
}

func TestDriver_RunAll(t *testing.T) {
	d, err := NewDriver(log.NewLogger(log.DiscardHandler()))
	require.NoError(t, err)

	suite := types.NewSuite("mixed bag")
	suite.MustAdd(types.CaseSpec{
		Description: "passes",
		Expect:      types.ExpectReturn("ok"),
		Budget:      time.Second,
		Run: func(ex types.Exec) error {
			ex.Starting("item")
			ex.Returned("ok")
			return nil
		},
	})
	suite.MustAdd(types.CaseSpec{
		Description: "fails",
		Expect:      types.ExpectReturn("ok"),
		Budget:      time.Second,
		Run: func(ex types.Exec) error {
			ex.Starting("item")
			return errors.New("broken")
		},
	})
	suite.MustAdd(types.CaseSpec{
		Description: "skipped",
		Expect:      types.ExpectCompletion(),
		Skip:        func() bool { return true },
		Run:         func(ex types.Exec) error { return nil },
	})

	rl := NewLog(suite.Name(), Hooks{})
	require.NoError(t, d.RunAll(context.Background(), suite, rl))

	require.True(t, rl.Sealed(), "the log must be finalized after a run")
	entries := rl.Entries()
	require.Len(t, entries, 3)

	assert.Equal(t, types.StatusCompleteNormal, entries[0].Status())
	assert.Equal(t, types.StatusCompleteAbnormal, entries[1].Status())
	assert.Equal(t, types.StatusSkipped, entries[2].Status())

	evals := make([]types.Evaluation, len(entries))
	for i, e := range entries {
		ev, err := e.Evaluation()
		require.NoError(t, err)
		evals[i] = ev
	}
	assert.Equal(t, []types.Evaluation{types.EvalPassed, types.EvalFailed, types.EvalNoResult}, evals)
}

func TestDriver_RunAllStopsOnCancel(t *testing.T) {
	d, err := NewDriver(log.NewLogger(log.DiscardHandler()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	suite := types.NewSuite("interrupted")
	suite.MustAdd(types.CaseSpec{
		Description: "first",
		Expect:      types.ExpectReturn(1),
		Budget:      time.Second,
		Run: func(ex types.Exec) error {
			ex.Starting("item")
			ex.Returned(1)
			return nil
		},
	})
	suite.MustAdd(types.CaseSpec{
		Description: "second",
		Expect:      types.ExpectReturn(1),
		Skip: func() bool {
			cancel() // abort the run while this case is being skipped
			return true
		},
		Run: func(ex types.Exec) error {
			ex.Starting("item")
			ex.Returned(1)
			return nil
		},
	})
	suite.MustAdd(types.CaseSpec{
		Description: "never reached",
		Expect:      types.ExpectReturn(1),
		Budget:      time.Second,
		Run: func(ex types.Exec) error {
			ex.Starting("item")
			ex.Returned(1)
			return nil
		},
	})

	rl := NewLog(suite.Name(), Hooks{})
	err = d.RunAll(ctx, suite, rl)
	require.ErrorIs(t, err, context.Canceled)

	// the first two cases left entries, the third never started, and the
	// log is still finalized
	assert.True(t, rl.Sealed())
	require.Equal(t, 2, rl.Len())
	entries := rl.Entries()
	assert.Equal(t, types.StatusCompleteNormal, entries[0].Status())
	assert.Equal(t, types.StatusSkipped, entries[1].Status())
}

func TestDriver_RunAllEmptySuite(t *testing.T) {
	d, err := NewDriver(log.NewLogger(log.DiscardHandler()))
	require.NoError(t, err)

	rl := NewLog("empty", Hooks{})
	require.NoError(t, d.RunAll(context.Background(), types.NewSuite("empty"), rl))
	assert.True(t, rl.Sealed())
	assert.Zero(t, rl.Len())
}
