package proctor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeError(t *testing.T) {
	base := errors.New("bad plan")
	err := NewRuntimeError(base)

	assert.Equal(t, "runtime error: bad plan", err.Error())
	assert.True(t, IsRuntimeError(err))
	assert.True(t, IsRuntimeError(fmt.Errorf("outer: %w", err)))
	assert.ErrorIs(t, err, base)

	assert.False(t, IsRuntimeError(nil))
	assert.False(t, IsRuntimeError(base))
	assert.False(t, IsTestFailureError(err))
}

func TestTestFailureError(t *testing.T) {
	err := NewTestFailureError("2 cases failed")

	assert.Equal(t, "test failure: 2 cases failed", err.Error())
	assert.True(t, IsTestFailureError(err))
	assert.True(t, IsTestFailureError(fmt.Errorf("outer: %w", err)))

	assert.False(t, IsTestFailureError(nil))
	assert.False(t, IsRuntimeError(err))
}
