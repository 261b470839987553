package types

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectation_MatchesReturn(t *testing.T) {
	tests := []struct {
		name   string
		expect Expectation
		value  any
		want   bool
	}{
		{"completion accepts nil", ExpectCompletion(), nil, true},
		{"completion rejects value", ExpectCompletion(), 42, false},
		{"return matches equal int", ExpectReturn(14), 14, true},
		{"return rejects unequal int", ExpectReturn(14), 15, false},
		{"return matches deep equal slice", ExpectReturn([]string{"a", "b"}), []string{"a", "b"}, true},
		{"return rejects different type", ExpectReturn(14), "14", false},
		{"return nil accepts nil", ExpectReturn(nil), nil, true},
		{"return nil rejects value", ExpectReturn(nil), 0, false},
		{"fault never matches a return", ExpectFault(os.ErrNotExist), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.expect.MatchesReturn(tt.value))
		})
	}
}

func TestExpectation_MatchesFault(t *testing.T) {
	sentinel := errors.New("boom")

	tests := []struct {
		name   string
		expect Expectation
		fault  error
		want   bool
	}{
		{"sentinel matches itself", ExpectFault(sentinel), sentinel, true},
		{"sentinel matches wrapped", ExpectFault(sentinel), fmt.Errorf("outer: %w", sentinel), true},
		{"sentinel rejects unrelated", ExpectFault(sentinel), errors.New("other"), false},
		{"stdlib sentinel through PathError", ExpectFault(fs.ErrNotExist), &fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}, true},
		{"typed target matches same type", ExpectFault(&NullItemError{}), &NullItemError{Description: "d"}, true},
		{"typed target matches wrapped type", ExpectFault(&InvalidTransitionError{}), fmt.Errorf("wrap: %w", &InvalidTransitionError{Op: "returned", Status: StatusEnqueued}), true},
		{"typed target rejects other type", ExpectFault(&NullItemError{}), &PanicError{Value: "x"}, false},
		{"nil fault never matches", ExpectFault(sentinel), nil, false},
		{"return expectation never matches fault", ExpectReturn(1), sentinel, false},
		{"completion never matches fault", ExpectCompletion(), sentinel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.expect.MatchesFault(tt.fault))
		})
	}
}

func TestExpectation_Kinds(t *testing.T) {
	require.Equal(t, ExpectKindCompletion, ExpectCompletion().Kind())
	require.Equal(t, ExpectKindReturn, ExpectReturn(1).Kind())
	require.Equal(t, ExpectKindFault, ExpectFault(errors.New("x")).Kind())

	assert.False(t, ExpectReturn(1).WantsFault())
	assert.True(t, ExpectFault(errors.New("x")).WantsFault())

	// The zero value behaves as a completion expectation.
	var zero Expectation
	assert.Equal(t, ExpectKindCompletion, zero.Kind())
	assert.True(t, zero.MatchesReturn(nil))
}
