package proctor

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-proctor/flags"
	"github.com/ethereum/go-ethereum/log"
)

// Config holds the application configuration
type Config struct {
	RunPlan        string        // Path to the optional run plan file
	LogDir         string        // Directory to store run artifacts
	RunInterval    time.Duration // Interval between test runs
	RunOnce        bool          // Indicates if the service should exit after one test run
	DefaultBudget  time.Duration // Budget applied to cases that declare none
	IncludeHazards bool          // Include the misbehaving demonstration cases
	Log            log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	// Get log directory, default to "logs" if not specified
	logDir := ctx.String(flags.LogDir.Name)
	if logDir == "" {
		logDir = "logs"
	}
	logDir, err := filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
	}

	runPlan := ctx.String(flags.RunPlan.Name)
	if runPlan != "" {
		runPlan, err = filepath.Abs(runPlan)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for run plan '%s': %w", runPlan, err)
		}
	}

	return &Config{
		RunPlan:        runPlan,
		LogDir:         logDir,
		RunInterval:    runInterval,
		RunOnce:        runOnce,
		DefaultBudget:  ctx.Duration(flags.DefaultBudget.Name),
		IncludeHazards: ctx.Bool(flags.IncludeHazards.Name),
		Log:            log,
	}, nil
}
