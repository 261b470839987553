package types

import (
	"errors"
	"fmt"
	"reflect"
)

// ExpectKind discriminates the three declarable outcomes of a case.
type ExpectKind int

const (
	// ExpectKindCompletion accepts a normal return with no produced value.
	ExpectKindCompletion ExpectKind = iota
	// ExpectKindReturn requires a normal return equal to a declared value.
	ExpectKindReturn
	// ExpectKindFault requires the case to surface a matching fault.
	ExpectKindFault
)

// Expectation declares the outcome a case must produce to pass. Exactly one
// kind applies per case; the zero value expects plain completion.
type Expectation struct {
	kind   ExpectKind
	value  any
	target error
}

// ExpectCompletion declares that the procedure must return normally and
// report a nil result value.
func ExpectCompletion() Expectation {
	return Expectation{kind: ExpectKindCompletion}
}

// ExpectReturn declares that the procedure must return normally and report a
// result deeply equal to value.
func ExpectReturn(value any) Expectation {
	return Expectation{kind: ExpectKindReturn, value: value}
}

// ExpectFault declares that the procedure must surface a fault matching
// target. A fault matches when errors.Is relates it to target, or when it
// carries an error of target's concrete type anywhere in its chain.
func ExpectFault(target error) Expectation {
	return Expectation{kind: ExpectKindFault, target: target}
}

// Kind returns which of the three outcomes this expectation declares.
func (e Expectation) Kind() ExpectKind {
	return e.kind
}

// Value returns the declared return value for ExpectKindReturn expectations.
func (e Expectation) Value() any {
	return e.value
}

// Target returns the declared fault target for ExpectKindFault expectations.
func (e Expectation) Target() error {
	return e.target
}

// WantsFault reports whether the expectation declares a fault outcome.
func (e Expectation) WantsFault() bool {
	return e.kind == ExpectKindFault
}

// MatchesReturn reports whether a normally returned value satisfies the
// expectation. A fault expectation is never satisfied by a return.
func (e Expectation) MatchesReturn(value any) bool {
	switch e.kind {
	case ExpectKindCompletion:
		return value == nil
	case ExpectKindReturn:
		if e.value == nil {
			return value == nil
		}
		return reflect.DeepEqual(e.value, value)
	default:
		return false
	}
}

// MatchesFault reports whether a captured fault satisfies the expectation.
// Return-style expectations are never satisfied by a fault.
func (e Expectation) MatchesFault(fault error) bool {
	if e.kind != ExpectKindFault || fault == nil || e.target == nil {
		return false
	}
	if errors.Is(fault, e.target) {
		return true
	}
	// A typed target also matches any fault carrying its concrete type,
	// the errors.As relation.
	tv := reflect.ValueOf(e.target)
	if !tv.IsValid() {
		return false
	}
	probe := reflect.New(tv.Type())
	return errors.As(fault, probe.Interface())
}

func (e Expectation) String() string {
	switch e.kind {
	case ExpectKindReturn:
		return fmt.Sprintf("return %v", e.value)
	case ExpectKindFault:
		return fmt.Sprintf("fault %T", e.target)
	default:
		return "completion"
	}
}
