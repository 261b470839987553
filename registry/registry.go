package registry

import (
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-proctor/types"
)

// Plan is a run plan: operator-side adjustments applied to a declared suite
// before a run. Cases are addressed by their description.
type Plan struct {
	// Suite, when set, must match the name of the suite the plan is applied
	// to. Guards against pointing a run at the wrong plan file.
	Suite string `yaml:"suite,omitempty"`

	// DefaultBudget applies to cases that declare no budget of their own.
	DefaultBudget time.Duration `yaml:"default_budget,omitempty"`

	Cases []CasePlan `yaml:"cases,omitempty"`
}

// CasePlan adjusts a single case.
type CasePlan struct {
	Description string         `yaml:"description"`
	Budget      *time.Duration `yaml:"budget,omitempty"`
	Skip        bool           `yaml:"skip,omitempty"`
	SkipReason  string         `yaml:"skip_reason,omitempty"`
}

// Config contains registry configuration
type Config struct {
	Log log.Logger

	// PlanFile is the run-plan YAML path. Empty means no plan: suites pass
	// through with only DefaultBudget applied.
	PlanFile string

	// DefaultBudget applies to cases that end up with no budget from either
	// their spec or the plan.
	DefaultBudget time.Duration
}

// Registry holds a loaded run plan and applies it to suites.
type Registry struct {
	config Config
	plan   *Plan
	mu     sync.RWMutex
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	r := &Registry{
		config: cfg,
	}

	if cfg.PlanFile != "" {
		plan, err := loadPlan(cfg.PlanFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load run plan")
		}
		if err := validatePlan(plan); err != nil {
			return nil, errors.Wrap(err, "invalid run plan")
		}
		r.plan = plan
		cfg.Log.Debug("Run plan loaded", "path", cfg.PlanFile, "len(cases)", len(plan.Cases))
	}

	return r, nil
}

// loadPlan loads a run plan from a file
func loadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading plan file")
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, errors.Wrap(err, "parsing plan file")
	}

	return &plan, nil
}

func validatePlan(plan *Plan) error {
	if plan.DefaultBudget < 0 {
		return errors.Errorf("negative default budget %s", plan.DefaultBudget)
	}
	seen := make(map[string]bool, len(plan.Cases))
	for _, c := range plan.Cases {
		if c.Description == "" {
			return errors.New("plan case with no description")
		}
		if seen[c.Description] {
			return errors.Errorf("duplicate plan entry for case %q", c.Description)
		}
		seen[c.Description] = true
		if c.Budget != nil && *c.Budget < 0 {
			return errors.Errorf("negative budget for case %q", c.Description)
		}
	}
	return nil
}

// Plan returns the loaded run plan, nil when the registry was built without
// a plan file.
func (r *Registry) Plan() *Plan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.plan
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}

// Apply produces a new suite with the plan's adjustments merged in. Every
// plan entry must address a case the suite actually declares; a stale entry
// fails the whole apply rather than silently doing nothing.
//
// Budget precedence per case: plan override, then the spec's own budget,
// then the plan default, then the registry default.
func (r *Registry) Apply(suite *types.Suite) (*types.Suite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byDesc := make(map[string]CasePlan)
	var defaultBudget time.Duration
	if r.plan != nil {
		if r.plan.Suite != "" && r.plan.Suite != suite.Name() {
			return nil, errors.Errorf("plan is for suite %q, not %q", r.plan.Suite, suite.Name())
		}
		known := make(map[string]bool, suite.Len())
		for _, spec := range suite.Cases() {
			known[spec.Description] = true
		}
		for _, c := range r.plan.Cases {
			if !known[c.Description] {
				return nil, errors.Errorf("plan addresses unknown case %q", c.Description)
			}
			byDesc[c.Description] = c
		}
		defaultBudget = r.plan.DefaultBudget
	}
	if defaultBudget == 0 {
		defaultBudget = r.config.DefaultBudget
	}

	out := types.NewSuite(suite.Name())
	for _, spec := range suite.Cases() {
		if c, ok := byDesc[spec.Description]; ok {
			if c.Budget != nil {
				spec.Budget = *c.Budget
			}
			if c.Skip {
				reason := c.SkipReason
				if reason == "" {
					reason = "disabled by run plan"
				}
				r.config.Log.Info("Case disabled by run plan", "case", spec.Description, "reason", reason)
				spec.Skip = func() bool { return true }
			}
		}
		if spec.Budget == 0 {
			spec.Budget = defaultBudget
		}
		if err := out.Add(spec); err != nil {
			return nil, errors.Wrapf(err, "applying plan to case %q", spec.Description)
		}
	}
	return out, nil
}
