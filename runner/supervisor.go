package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-proctor/metrics"
	"github.com/ethereum-optimism/infra/op-proctor/types"
)

const (
	// DefaultPollInterval is how often the supervisor re-checks a scope for
	// quiescence while waiting out a budget.
	DefaultPollInterval = 10 * time.Millisecond

	// DefaultGracePeriod is how long a canceled execution gets to unwind
	// before the supervisor abandons it.
	DefaultGracePeriod = 120 * time.Millisecond
)

// Supervisor executes cases one at a time, each in a fresh scope, and
// guarantees the caller gets control back no matter how the procedure
// behaves. Faults are captured into the case's result entry; only run
// cancellation and framework defects surface as errors from Run.
type Supervisor struct {
	log   log.Logger
	poll  time.Duration
	grace time.Duration
}

// NewSupervisor creates a supervisor with the default poll interval and
// grace period.
func NewSupervisor(logger log.Logger) (*Supervisor, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Supervisor{
		log:   logger,
		poll:  DefaultPollInterval,
		grace: DefaultGracePeriod,
	}, nil
}

// Run executes one case and records its outcome as a new entry in rl.
//
// The entry is enqueued before anything can fail, so every attempt leaves a
// record. The procedure runs on its own tracked goroutine inside a fresh
// scope; the supervisor polls the scope until it goes quiet or the case's
// budget expires. Over-budget executions are marked timed out with a stack
// snapshot, asked to stop via their context, given a grace period, and then
// abandoned. Abandonment is reported to the operator but never fails the
// run.
//
// Run returns ctx.Err() when the run is aborted, or an error describing a
// framework defect. Procedure misbehavior never produces an error here.
func (s *Supervisor) Run(ctx context.Context, spec types.CaseSpec, rl *Log) error {
	res, err := rl.Append(spec)
	if err != nil {
		return fmt.Errorf("enqueueing case %q: %w", spec.Description, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if spec.Skip != nil && spec.Skip() {
		s.log.Info("Skipping case", "case", spec.Description)
		return res.skipped()
	}

	s.log.Debug("Launching case", "case", spec.Description, "budget", spec.Budget)
	sc := newScope(ctx)
	ex := &procExec{sc: sc, res: res}
	sc.spawn(true, func() {
		s.runProcedure(sc, ex, res, spec)
	})

	var deadline time.Time
	if spec.Budget > 0 {
		deadline = time.Now().Add(spec.Budget)
	}
	waitErr := s.waitQuiet(ctx, sc, deadline)
	s.reclaimScope(res, sc)
	if waitErr != nil {
		return waitErr
	}

	// A terminal entry other than a skip must carry an evaluation by now.
	if st := res.Status(); st.Terminal() && st != types.StatusSkipped && !res.evaluated() {
		return fmt.Errorf("case %q finished without an evaluation: status=%s", spec.Description, st)
	}
	return nil
}

// runProcedure is the primary goroutine's body: the framework-side setup
// transition, the procedure itself, and the settle logic that runs however
// the procedure leaves.
func (s *Supervisor) runProcedure(sc *scope, ex *procExec, res *Result, spec types.CaseSpec) {
	if sc.ctx.Err() != nil {
		// Aborted before setup; the entry stays enqueued.
		return
	}
	defer func() {
		if p := recover(); p != nil {
			res.caught(recoveredFault(p))
		}
		if err := res.complete(); err != nil {
			// The procedure returned mid-lifecycle without faulting. Record
			// the violation as the fault and settle on it.
			res.caught(err)
			if err := res.complete(); err != nil {
				s.log.Error("Entry cannot be settled", "case", spec.Description, "err", err)
			}
		}
	}()
	if err := res.settingUp(); err != nil {
		panic(err)
	}
	if err := spec.Run(ex); err != nil {
		res.caught(err)
	}
}

// waitQuiet polls the scope until it has no live goroutines, the deadline
// passes (zero deadline means no budget), or ctx is canceled.
func (s *Supervisor) waitQuiet(ctx context.Context, sc *scope, deadline time.Time) error {
	for sc.activeCount() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.poll):
		}
	}
	return nil
}

// reclaimScope shuts a live scope down and settles the entry. It runs on
// every exit path from Run, like a finally block: after a quiet finish it
// is a cheap no-op, after a budget overrun or an abort it performs the
// two-tier reclamation.
func (s *Supervisor) reclaimScope(res *Result, sc *scope) {
	if sc.activeCount() > 0 {
		// Snapshot before cancellation perturbs the stacks.
		stack := sc.primaryStack()
		if !res.Status().Terminal() {
			ts := &types.TimeoutStack{Budget: res.Case().Budget, Stack: stack}
			if err := res.timedOut(ts); err != nil {
				s.log.Debug("Entry already terminal at reclaim", "case", res.Case().Description, "err", err)
			}
		}
		sc.interrupt()
		s.waitGrace(sc)
		if sc.activeCount() > 0 {
			left := sc.abandon()
			s.log.Error("A test procedure execution has been abandoned and may disturb later executions",
				"case", res.Case().Description,
				"leftover_goroutines", left)
			if waiters := sc.lockWaiters(); waiters > 0 {
				s.log.Error("Abandoned execution has goroutines blocked in lock operations",
					"case", res.Case().Description,
					"lock_waiters", waiters)
			}
			metrics.RecordAbandonedScope(res.Case().Description)
			// Give the cancellation one more beat to propagate.
			time.Sleep(s.poll)
		}
	}

	// Settle the entry when its own goroutines no longer can.
	switch res.Status() {
	case types.StatusTimedOut, types.StatusCompleteAbnormal:
		if err := res.complete(); err != nil {
			s.log.Error("Entry cannot be settled", "case", res.Case().Description, "err", err)
		}
	}
}

// waitGrace gives a canceled scope up to the grace period to unwind.
func (s *Supervisor) waitGrace(sc *scope) {
	deadline := time.Now().Add(s.grace)
	for sc.activeCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(s.poll)
	}
}
