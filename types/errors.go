package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrLogSealed is returned when a run log is appended to or finalized after
// it has already been finalized.
var ErrLogSealed = errors.New("run log is sealed")

// NullItemError is the fault recorded when a procedure reports starting
// against a nil test item.
type NullItemError struct {
	Description string // description of the offending case
}

func (e *NullItemError) Error() string {
	return fmt.Sprintf("attempt to execute test on nil test item: %s", e.Description)
}

// InvalidTransitionError is the fault recorded when a result lifecycle call
// arrives out of order, for example Returned before Starting, or a procedure
// that returns without ever reporting a result.
type InvalidTransitionError struct {
	Op     string // attempted transition
	Status Status // status at the time of the call
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s called when status=%s", e.Op, e.Status)
}

// PanicError wraps a panic value recovered from a test procedure so it can
// travel as a fault. Panic values that already are errors are recorded
// directly and never wrapped.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// TimeoutStack is the fault recorded when a case exceeds its budget. Stack
// holds a best-effort snapshot of the procedure goroutine at the moment the
// budget expired and is empty when no snapshot could be taken.
type TimeoutStack struct {
	Budget time.Duration
	Stack  string
}

func (e *TimeoutStack) Error() string {
	return fmt.Sprintf("timed out > %d ms", e.Budget.Milliseconds())
}
