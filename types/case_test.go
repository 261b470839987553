package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopProcedure(ex Exec) error {
	ex.StartingType("noop")
	ex.Returned(nil)
	return nil
}

func TestCaseSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    CaseSpec
		wantErr string
	}{
		{
			name: "valid",
			spec: CaseSpec{Description: "ok", Run: noopProcedure, Budget: time.Second},
		},
		{
			name:    "missing description",
			spec:    CaseSpec{Run: noopProcedure},
			wantErr: "no description",
		},
		{
			name:    "missing procedure",
			spec:    CaseSpec{Description: "no body"},
			wantErr: "no procedure",
		},
		{
			name:    "negative budget",
			spec:    CaseSpec{Description: "neg", Run: noopProcedure, Budget: -time.Second},
			wantErr: "negative budget",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSuite_Add(t *testing.T) {
	s := NewSuite("unit")
	require.NoError(t, s.Add(CaseSpec{Description: "first", Run: noopProcedure}))
	require.NoError(t, s.Add(CaseSpec{Description: "second", Run: noopProcedure}))

	err := s.Add(CaseSpec{Description: "first", Run: noopProcedure})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate case description")

	err = s.Add(CaseSpec{Description: ""})
	require.Error(t, err)

	assert.Equal(t, "unit", s.Name())
	assert.Equal(t, 2, s.Len())
}

func TestSuite_CasesPreservesOrderAndCopies(t *testing.T) {
	s := NewSuite("ordered")
	for _, desc := range []string{"a", "b", "c"} {
		require.NoError(t, s.Add(CaseSpec{Description: desc, Run: noopProcedure}))
	}

	cases := s.Cases()
	require.Len(t, cases, 3)
	assert.Equal(t, "a", cases[0].Description)
	assert.Equal(t, "b", cases[1].Description)
	assert.Equal(t, "c", cases[2].Description)

	// Mutating the returned slice must not affect the suite.
	cases[0].Description = "mutated"
	assert.Equal(t, "a", s.Cases()[0].Description)
}

func TestSuite_MustAddPanicsOnInvalid(t *testing.T) {
	s := NewSuite("panics")
	assert.Panics(t, func() {
		s.MustAdd(CaseSpec{})
	})
}
