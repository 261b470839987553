// Package exitcodes defines the standard exit codes used by op-proctor.
package exitcodes

// Exit code constants used by op-proctor
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when every executed case passes
// * TestFailure (1): Used when one or more cases fail their evaluation
// * RuntimeErr (2): Used for runtime errors such as panics, bad configuration or other failures
const (
	Success     = 0 // All cases pass
	TestFailure = 1 // Case failures
	RuntimeErr  = 2 // Runtime errors or bad configuration
)
