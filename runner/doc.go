// Package runner executes supervised test cases and records their outcomes.
//
// The main components are:
//   - Driver: Runs the cases of a suite in declaration order and appends one result per case
//   - Supervisor: Hosts a single execution, enforcing the time budget and catching panics
//   - scope: Tracks the goroutines an execution owns so quiescence can be detected
//   - Log: Collects the results of one run and seals them once the run is finalized
//   - Result: Carries one case through its status lifecycle to a settled evaluation
//
// These components work together so that a misbehaving procedure, whether it
// panics, overruns its budget, or leaks goroutines, is reported as a result
// rather than taking the harness down with it.
package runner
