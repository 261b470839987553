package types

import (
	"fmt"
	"time"
)

// CaseSpec declares a single test case: what runs, against what, and the
// outcome that counts as a pass. Specs are immutable once added to a Suite.
type CaseSpec struct {
	// Description identifies the case in logs and reports. Required, and
	// unique within a suite.
	Description string

	// ItemType is the declared type of the unit under test, for reporting.
	// The actually observed type is recorded per execution.
	ItemType string

	// Expect declares the passing outcome. The zero value expects plain
	// completion.
	Expect Expectation

	// Budget is the wall-clock limit for one execution. Zero means the
	// execution is never timed out.
	Budget time.Duration

	// Run is the procedure body. Required.
	Run Procedure

	// Skip, when non-nil and true at run time, records the case as skipped
	// without executing Run.
	Skip func() bool
}

// Validate reports whether the spec is well-formed enough to enqueue.
func (c CaseSpec) Validate() error {
	if c.Description == "" {
		return fmt.Errorf("case has no description")
	}
	if c.Run == nil {
		return fmt.Errorf("case %q has no procedure", c.Description)
	}
	if c.Budget < 0 {
		return fmt.Errorf("case %q has negative budget %s", c.Description, c.Budget)
	}
	return nil
}

// Suite is a named, ordered collection of case specs. Cases run in the
// order they were added.
type Suite struct {
	name  string
	cases []CaseSpec
}

// NewSuite creates an empty suite with the given name.
func NewSuite(name string) *Suite {
	return &Suite{name: name}
}

// Add validates the spec and appends it to the suite. Descriptions must be
// unique within the suite.
func (s *Suite) Add(spec CaseSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	for _, existing := range s.cases {
		if existing.Description == spec.Description {
			return fmt.Errorf("duplicate case description %q", spec.Description)
		}
	}
	s.cases = append(s.cases, spec)
	return nil
}

// MustAdd is Add for statically declared suites; it panics on invalid specs.
func (s *Suite) MustAdd(spec CaseSpec) {
	if err := s.Add(spec); err != nil {
		panic(err)
	}
}

// Name returns the suite's name.
func (s *Suite) Name() string {
	return s.name
}

// Len returns the number of cases in the suite.
func (s *Suite) Len() int {
	return len(s.cases)
}

// Cases returns a copy of the suite's case specs in run order.
func (s *Suite) Cases() []CaseSpec {
	out := make([]CaseSpec, len(s.cases))
	copy(out, s.cases)
	return out
}
