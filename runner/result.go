package runner

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-proctor/types"
)

// Result is one entry in a run log: the live record of a single case
// execution. The supervisor and the procedure's goroutines mutate it through
// transition methods; any goroutine may read it concurrently through the
// accessors. All state is guarded by one mutex, and notification hooks are
// invoked outside it so they may read the entry freely.
type Result struct {
	log  *Log
	spec types.CaseSpec

	mu          sync.Mutex
	status      types.Status
	eval        types.Evaluation
	itemType    string
	returned    any
	returnedSet bool
	fault       error
	procStart   time.Time
	procTime    time.Duration
}

func newResult(l *Log, spec types.CaseSpec) *Result {
	return &Result{
		log:    l,
		spec:   spec,
		status: types.StatusEnqueued,
		eval:   types.EvalNoResult,
	}
}

// Case returns the spec this result records an execution of.
func (r *Result) Case() types.CaseSpec {
	return r.spec
}

// Status returns the entry's current lifecycle status.
func (r *Result) Status() types.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Evaluation returns the pass/fail judgement. It is only available once the
// entry has reached a terminal status.
func (r *Result) Evaluation() (types.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.status.Terminal() {
		return types.EvalNoResult, fmt.Errorf("evaluation not available while status=%s", r.status)
	}
	return r.eval, nil
}

// ItemType returns the observed type of the unit under test, or the empty
// string if processing never started.
func (r *Result) ItemType() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.itemType
}

// Returned reports the value the procedure produced and whether one was
// recorded at all.
func (r *Result) Returned() (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.returned, r.returnedSet
}

// Fault returns the captured fault, nil if none was recorded. At most one
// fault is ever recorded per execution; later ones are discarded.
func (r *Result) Fault() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fault
}

// RunTime returns the wall-clock time processing took. It is only available
// for executions that completed normally.
func (r *Result) RunTime() (time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != types.StatusCompleteNormal {
		return 0, fmt.Errorf("run time not available while status=%s", r.status)
	}
	return r.procTime, nil
}

// settingUp moves a fresh entry onto its execution path.
func (r *Result) settingUp() error {
	r.mu.Lock()
	if r.status != types.StatusEnqueued {
		defer r.mu.Unlock()
		return &types.InvalidTransitionError{Op: "settingUp", Status: r.status}
	}
	r.status = types.StatusRunningSetup
	r.mu.Unlock()
	r.log.notifyEntryChanged(r)
	return nil
}

// processing records the observed item type and starts the processing clock.
func (r *Result) processing(itemType string) error {
	r.mu.Lock()
	if r.status != types.StatusRunningSetup {
		defer r.mu.Unlock()
		return &types.InvalidTransitionError{Op: "processing", Status: r.status}
	}
	r.itemType = itemType
	r.procStart = time.Now()
	r.status = types.StatusRunningProcessing
	r.mu.Unlock()
	r.log.notifyEntryChanged(r)
	return nil
}

// recordReturn stops the processing clock and records the produced value.
// The value is recorded even when the call is mis-ordered, so a violating
// execution still leaves evidence of what it did.
func (r *Result) recordReturn(value any) error {
	r.mu.Lock()
	r.procTime = time.Since(r.procStart)
	r.returned = value
	r.returnedSet = true
	if r.status != types.StatusRunningProcessing {
		defer r.mu.Unlock()
		return &types.InvalidTransitionError{Op: "returned", Status: r.status}
	}
	r.status = types.StatusRunningTeardown
	r.mu.Unlock()
	r.log.notifyEntryChanged(r)
	return nil
}

// caught records a fault. The first fault wins; anything arriving after it,
// or after the entry is already terminal, is silently discarded.
func (r *Result) caught(fault error) {
	r.mu.Lock()
	if r.fault != nil || r.status.Terminal() {
		r.mu.Unlock()
		return
	}
	r.fault = fault
	r.status = types.StatusCompleteAbnormal
	r.mu.Unlock()
	r.log.notifyEntryChanged(r)
}

// timedOut marks the entry as over budget and records the stack snapshot as
// its fault. It is a no-op error when the entry already reached a terminal
// state, which the supervisor tolerates.
func (r *Result) timedOut(stack *types.TimeoutStack) error {
	r.mu.Lock()
	if r.status.Terminal() {
		defer r.mu.Unlock()
		return &types.InvalidTransitionError{Op: "timedOut", Status: r.status}
	}
	r.status = types.StatusTimedOut
	if r.fault == nil {
		r.fault = stack
	}
	r.mu.Unlock()
	r.log.notifyEntryChanged(r)
	return nil
}

// skipped retires an enqueued entry without executing it.
func (r *Result) skipped() error {
	r.mu.Lock()
	if r.status != types.StatusEnqueued {
		defer r.mu.Unlock()
		return &types.InvalidTransitionError{Op: "skipped", Status: r.status}
	}
	r.status = types.StatusSkipped
	r.eval = types.EvalNoResult
	r.mu.Unlock()
	r.log.notifyEntryChanged(r)
	return nil
}

// complete settles the entry: it fixes the final status and computes the
// evaluation against the case's expectation, exactly once. Calling it again
// after the evaluation is set is a no-op, so the supervisor and an abandoned
// procedure goroutine may both attempt it safely.
func (r *Result) complete() error {
	r.mu.Lock()
	if r.eval != types.EvalNoResult {
		r.mu.Unlock()
		return nil
	}
	switch r.status {
	case types.StatusRunningTeardown, types.StatusCompleteAbnormal, types.StatusTimedOut:
	default:
		defer r.mu.Unlock()
		return &types.InvalidTransitionError{Op: "complete", Status: r.status}
	}

	if r.status == types.StatusTimedOut {
		r.eval = types.EvalFailed
	} else {
		if r.returnedSet {
			r.status = types.StatusCompleteNormal
			if r.spec.Expect.MatchesReturn(r.returned) {
				r.eval = types.EvalPassed
			} else {
				r.eval = types.EvalFailed
			}
		}
		// A fault outranks a recorded return: an execution that produced a
		// value and then faulted is abnormal.
		if r.fault != nil {
			r.status = types.StatusCompleteAbnormal
			if r.spec.Expect.MatchesFault(r.fault) {
				r.eval = types.EvalPassed
			} else {
				r.eval = types.EvalFailed
			}
		}
	}

	if r.eval == types.EvalNoResult {
		st := r.status
		r.mu.Unlock()
		return fmt.Errorf("entry completed without an evaluation: status=%s", st)
	}
	r.mu.Unlock()
	r.log.notifyEntryChanged(r)
	return nil
}

// evaluated reports whether complete has settled this entry.
func (r *Result) evaluated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eval != types.EvalNoResult
}

func (r *Result) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("Result[case=%q status=%s evaluation=%s itemType=%s returnedSet=%v fault=%v]",
		r.spec.Description, r.status, r.eval, r.itemType, r.returnedSet, r.fault)
}
