package types

import "context"

// Exec is the handle a test procedure uses to report its progress and to
// spawn tracked goroutines. The framework passes a fresh handle to every
// execution; procedures must not retain it past their return.
//
// A well-formed procedure does its setup, calls Starting (or StartingType)
// exactly once with the unit under test, performs the test, calls Returned
// exactly once with the produced value, tears down, and returns. Calls made
// out of order panic with *InvalidTransitionError; the framework records the
// violation as a fault against the case.
type Exec interface {
	// Context is canceled when the case's budget expires or the run is
	// aborted. Long-running procedures should watch it.
	Context() context.Context

	// Starting reports that setup is finished and processing of item
	// begins. It panics with *NullItemError when item is nil.
	Starting(item any)

	// StartingType is the variant of Starting for procedures that exercise
	// a type's static surface rather than an instance. typeName must be
	// non-empty.
	StartingType(typeName string)

	// Returned reports the value produced by the test and moves the case
	// into teardown.
	Returned(value any)

	// Go runs fn on a goroutine tracked by the execution's scope. Panics in
	// fn are recovered and recorded as faults against the case. Procedures
	// must use this instead of the go statement so the supervisor can
	// account for every goroutine the case owns.
	Go(fn func())
}

// Procedure is a test case body. A non-nil return is recorded as a fault
// against the case, exactly as a panic would be.
type Procedure func(ex Exec) error
