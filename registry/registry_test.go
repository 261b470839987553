package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-proctor/types"
)

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func sampleSuite(t *testing.T) *types.Suite {
	t.Helper()
	suite := types.NewSuite("sample")
	noop := func(ex types.Exec) error {
		ex.Starting("item")
		ex.Returned("item")
		return nil
	}
	require.NoError(t, suite.Add(types.CaseSpec{Description: "alpha", Expect: types.ExpectReturn("item"), Run: noop}))
	require.NoError(t, suite.Add(types.CaseSpec{Description: "beta", Expect: types.ExpectReturn("item"), Budget: 2 * time.Second, Run: noop}))
	require.NoError(t, suite.Add(types.CaseSpec{Description: "gamma", Expect: types.ExpectReturn("item"), Run: noop}))
	return suite
}

func TestNewRegistry(t *testing.T) {
	validPlan := `
suite: sample
default_budget: 1s
cases:
  - description: alpha
    budget: 250ms
  - description: gamma
    skip: true
    skip_reason: "flaky on shared hosts"
`

	tests := []struct {
		name     string
		plan     string
		planFile string
		wantErr  string
	}{
		{
			name: "valid plan",
			plan: validPlan,
		},
		{
			name: "no plan file",
		},
		{
			name:     "missing plan file",
			planFile: "nonexistent.yaml",
			wantErr:  "failed to load run plan",
		},
		{
			name:    "malformed yaml",
			plan:    "cases: [not closed",
			wantErr: "parsing plan file",
		},
		{
			name: "duplicate entry",
			plan: `
cases:
  - description: alpha
  - description: alpha
`,
			wantErr: "duplicate plan entry",
		},
		{
			name: "entry with no description",
			plan: `
cases:
  - skip: true
`,
			wantErr: "no description",
		},
		{
			name: "negative budget",
			plan: `
cases:
  - description: alpha
    budget: -5s
`,
			wantErr: "negative budget",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{}
			if tt.plan != "" {
				cfg.PlanFile = writePlan(t, tt.plan)
			} else if tt.planFile != "" {
				cfg.PlanFile = tt.planFile
			}

			r, err := NewRegistry(cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, r)
		})
	}
}

func TestLoadPlan(t *testing.T) {
	path := writePlan(t, `
suite: sample
default_budget: 1s
cases:
  - description: alpha
    budget: 750ms
  - description: gamma
    skip: true
    skip_reason: "broken dependency"
`)

	plan, err := loadPlan(path)
	require.NoError(t, err)
	require.Equal(t, "sample", plan.Suite)
	require.Equal(t, time.Second, plan.DefaultBudget)
	require.Len(t, plan.Cases, 2)

	require.NotNil(t, plan.Cases[0].Budget)
	assert.Equal(t, 750*time.Millisecond, *plan.Cases[0].Budget)
	assert.False(t, plan.Cases[0].Skip)

	assert.Nil(t, plan.Cases[1].Budget)
	assert.True(t, plan.Cases[1].Skip)
	assert.Equal(t, "broken dependency", plan.Cases[1].SkipReason)
}

func TestApply(t *testing.T) {
	path := writePlan(t, `
suite: sample
default_budget: 1s
cases:
  - description: alpha
    budget: 250ms
  - description: gamma
    skip: true
    skip_reason: "flaky on shared hosts"
`)

	r, err := NewRegistry(Config{PlanFile: path})
	require.NoError(t, err)

	out, err := r.Apply(sampleSuite(t))
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())

	cases := out.Cases()
	assert.Equal(t, "alpha", cases[0].Description)
	assert.Equal(t, 250*time.Millisecond, cases[0].Budget)
	assert.Nil(t, cases[0].Skip)

	// a budget declared on the spec survives the plan default
	assert.Equal(t, "beta", cases[1].Description)
	assert.Equal(t, 2*time.Second, cases[1].Budget)

	assert.Equal(t, "gamma", cases[2].Description)
	assert.Equal(t, time.Second, cases[2].Budget)
	require.NotNil(t, cases[2].Skip)
	assert.True(t, cases[2].Skip())
}

func TestApplyUnknownCase(t *testing.T) {
	path := writePlan(t, `
cases:
  - description: missing
`)

	r, err := NewRegistry(Config{PlanFile: path})
	require.NoError(t, err)

	_, err = r.Apply(sampleSuite(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown case "missing"`)
}

func TestApplySuiteMismatch(t *testing.T) {
	path := writePlan(t, `
suite: other
`)

	r, err := NewRegistry(Config{PlanFile: path})
	require.NoError(t, err)

	_, err = r.Apply(sampleSuite(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), `plan is for suite "other"`)
}

func TestApplyWithoutPlan(t *testing.T) {
	r, err := NewRegistry(Config{DefaultBudget: 3 * time.Second})
	require.NoError(t, err)

	out, err := r.Apply(sampleSuite(t))
	require.NoError(t, err)

	cases := out.Cases()
	assert.Equal(t, 3*time.Second, cases[0].Budget, "zero budget picks up the registry default")
	assert.Equal(t, 2*time.Second, cases[1].Budget, "declared budget stands")
	assert.Equal(t, 3*time.Second, cases[2].Budget)
}
