package proctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/semaphore"

	"github.com/ethereum-optimism/infra/op-proctor/exitcodes"
	"github.com/ethereum-optimism/infra/op-proctor/logging"
	"github.com/ethereum-optimism/infra/op-proctor/metrics"
	"github.com/ethereum-optimism/infra/op-proctor/registry"
	"github.com/ethereum-optimism/infra/op-proctor/reporting"
	"github.com/ethereum-optimism/infra/op-proctor/runner"
	"github.com/ethereum-optimism/infra/op-proctor/types"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

// Proctor implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &Proctor{}

// Proctor supervises runs of a test-procedure suite: one run on startup,
// then periodic reruns unless run-once mode is configured.
type Proctor struct {
	ctx      context.Context
	config   *Config
	version  string
	registry *registry.Registry
	driver   *runner.Driver
	suite    *types.Suite
	summary  *RunSummary

	runGuard *semaphore.Weighted
	running  atomic.Bool
	done     chan struct{}
	wg       sync.WaitGroup

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, suite *types.Suite, shutdownCallback func(error)) (*Proctor, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if suite == nil {
		return nil, errors.New("suite is required")
	}

	config.Log.Debug("Creating proctor with config",
		"suite", suite.Name(),
		"runPlan", config.RunPlan,
		"logDir", config.LogDir,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce)

	reg, err := registry.NewRegistry(registry.Config{
		Log:           config.Log,
		PlanFile:      config.RunPlan,
		DefaultBudget: config.DefaultBudget,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	driver, err := runner.NewDriver(config.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}
	config.Log.Info("proctor.New: created registry and driver")

	return &Proctor{
		ctx:              ctx,
		config:           config,
		version:          version,
		registry:         reg,
		driver:           driver,
		suite:            suite,
		runGuard:         semaphore.NewWeighted(1),
		done:             make(chan struct{}),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the suite once, then periodically at the configured interval.
// Start implements the cliapp.Lifecycle interface.
func (p *Proctor) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			p.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	p.ctx = ctx
	p.done = make(chan struct{})
	p.running.Store(true)

	if p.config.RunOnce {
		p.config.Log.Info("Starting op-proctor in run-once mode")
	} else {
		p.config.Log.Info("Starting op-proctor in continuous mode", "interval", p.config.RunInterval)
	}

	// Run the suite immediately on startup
	err := p.runSuite(ctx)
	if err != nil {
		// For runtime errors (like a broken run plan), return exit code 2
		p.config.Log.Error("Runtime error running suite", "error", err)
		return cli.Exit(err.Error(), exitcodes.RuntimeErr)
	}

	// If in run-once mode, trigger shutdown and return
	if p.config.RunOnce {
		p.config.Log.Info("Run completed, exiting (run-once mode)")

		// Check if any cases failed and return appropriate exit code
		if p.summary != nil && p.summary.Outcome() == RunOutcomeFail {
			p.config.Log.Warn("Run-once run completed with failures, returning exit code 1")
			return NewTestFailureError(p.summary.String())
		}

		// Only need to call this when we're in run-once mode and all cases passed
		go func() {
			p.shutdownCallback(nil)
		}()
		return nil
	}

	// Start a goroutine for periodic suite execution
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.config.Log.Debug("Starting periodic runner goroutine", "interval", p.config.RunInterval)

		for {
			select {
			case <-time.After(p.config.RunInterval):
				// Check if we should still be running
				if !p.running.Load() {
					p.config.Log.Debug("Service stopped, exiting periodic runner")
					return
				}

				p.config.Log.Info("Running periodic suite")
				if err := p.runSuite(ctx); err != nil {
					p.config.Log.Error("Error running periodic suite", "error", err)
				}
				p.config.Log.Info("Run interval", "interval", p.config.RunInterval)

			case <-p.done:
				p.config.Log.Debug("Done signal received, stopping periodic runner")
				return

			case <-ctx.Done():
				p.config.Log.Debug("Context canceled, stopping periodic runner")
				p.running.Store(false)
				return
			}
		}
	}()
	p.config.Log.Debug("op-proctor started successfully")
	return nil
}

// runSuite executes one full run of the suite and processes the results.
// Runs never overlap: if a previous run is still in flight, this one is
// skipped.
func (p *Proctor) runSuite(ctx context.Context) error {
	if !p.runGuard.TryAcquire(1) {
		p.config.Log.Warn("Previous run still in progress, skipping this run")
		return nil
	}
	defer p.runGuard.Release(1)

	p.config.Log.Info("Running all cases...")

	suite, err := p.registry.Apply(p.suite)
	if err != nil {
		return NewRuntimeError(fmt.Errorf("applying run plan: %w", err))
	}

	progress := newProgressPrinter(p.config.Log)
	rl := runner.NewLog(suite.Name(), runner.Hooks{
		OnNewEntry:     progress.EntryAdded,
		OnEntryChanged: progress.EntryChanged,
	})

	fileLogger, err := logging.NewFileLogger(p.config.LogDir, rl.RunID())
	if err != nil {
		return NewRuntimeError(fmt.Errorf("creating file logger: %w", err))
	}

	if err := p.driver.RunAll(ctx, suite, rl); err != nil {
		return NewRuntimeError(err)
	}

	summary := Summarize(rl)
	p.summary = summary

	p.printResultsTable(rl, summary)
	fmt.Println(summary.String())

	if err := p.persistArtifacts(fileLogger, rl); err != nil {
		p.config.Log.Error("Failed to write run artifacts", "error", err)
	}

	p.recordMetrics(rl, summary)

	p.config.Log.Info("Run completed", "run_id", rl.RunID(), "outcome", summary.Outcome())
	return nil
}

// persistArtifacts pushes every entry through the file logger's sinks and
// writes the plaintext report as the run's summary artifact.
func (p *Proctor) persistArtifacts(fileLogger *logging.FileLogger, rl *runner.Log) error {
	for _, res := range rl.Entries() {
		if err := fileLogger.LogTestResult(res, rl.RunID()); err != nil {
			return fmt.Errorf("consuming result: %w", err)
		}
	}

	reporter, err := reporting.NewReporter(rl)
	if err != nil {
		return fmt.Errorf("creating reporter: %w", err)
	}
	var report strings.Builder
	if err := reporter.Report(&report, reporting.Options{}); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	if err := fileLogger.LogSummary(report.String(), rl.RunID()); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	if err := fileLogger.Complete(rl.RunID()); err != nil {
		return fmt.Errorf("completing file logger: %w", err)
	}
	dir, err := fileLogger.GetDirectoryForRunID(rl.RunID())
	if err == nil {
		p.config.Log.Info("Run artifacts written", "dir", dir)
	}
	return nil
}

func (p *Proctor) recordMetrics(rl *runner.Log, summary *RunSummary) {
	for _, res := range rl.Entries() {
		eval, err := res.Evaluation()
		if err != nil {
			continue
		}
		metrics.RecordCase(rl.Name(), rl.RunID(), res.Case().Description, res.Status(), eval)
	}
	metrics.RecordRun(rl.Name(), rl.RunID(), string(summary.Outcome()),
		summary.Total, summary.Passed, summary.Failed, summary.Duration)
}

// Stop stops the op-proctor service.
// Stop implements the cliapp.Lifecycle interface.
func (p *Proctor) Stop(ctx context.Context) error {
	p.config.Log.Info("Stopping op-proctor")

	// Check if we're already stopped
	if !p.running.Load() {
		p.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}

	// Update running state first to prevent new runs
	p.running.Store(false)

	// Signal goroutines to exit
	p.config.Log.Debug("Sending done signal to goroutines")
	close(p.done)

	p.config.Log.Info("op-proctor stopped successfully")
	return nil
}

// Stopped returns true if the op-proctor service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (p *Proctor) Stopped() bool {
	return !p.running.Load()
}

// printResultsTable prints the results of the run to the console.
func (p *Proctor) printResultsTable(rl *runner.Log, summary *RunSummary) {
	p.config.Log.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Proctored Run Results (%s)", formatDuration(summary.Duration)))

	// Configure columns
	t.AppendHeader(table.Row{
		"", "Case", "Item type", "Duration", "Status", "Result", "Fault",
	})

	// Set column configurations for better readability
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Case", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Fault", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, res := range rl.Entries() {
		eval := types.EvalNoResult
		if e, err := res.Evaluation(); err == nil {
			eval = e
		}

		faultMsg := ""
		if fault := res.Fault(); fault != nil {
			faultMsg = firstLine(fault.Error())
		}

		itemType := res.ItemType()
		if itemType == "" {
			itemType = res.Case().ItemType
		}

		t.AppendRow(table.Row{
			i + 1,
			res.Case().Description,
			itemType,
			formatRunTime(res),
			res.Status().Display(),
			getResultString(eval),
			faultMsg,
		})
	}

	// Update the table style setting based on the run outcome
	switch summary.Outcome() {
	case RunOutcomePass:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case RunOutcomeSkip:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	// Add summary footer
	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d cases", summary.Total),
		"",
		formatDuration(summary.Duration),
		"",
		getResultString(outcomeEvaluation(summary.Outcome())),
		fmt.Sprintf("%d passed, %d failed, %d no result", summary.Passed, summary.Failed, summary.NoResult),
	})

	t.Render()
}

// getResultString returns a short string representing a case evaluation
func getResultString(eval types.Evaluation) string {
	switch eval {
	case types.EvalPassed:
		return "✓ pass"
	case types.EvalNoResult:
		return "- skip"
	default:
		return "✗ fail"
	}
}

func outcomeEvaluation(outcome RunOutcome) types.Evaluation {
	switch outcome {
	case RunOutcomePass:
		return types.EvalPassed
	case RunOutcomeSkip:
		return types.EvalNoResult
	default:
		return types.EvalFailed
	}
}

// WaitForShutdown blocks until all goroutines have terminated.
// This is useful in tests to ensure complete cleanup before moving to the next test.
func (p *Proctor) WaitForShutdown(ctx context.Context) error {
	p.config.Log.Debug("Waiting for all goroutines to terminate")

	// Create a channel that will be closed when the WaitGroup is done
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	// Wait for either WaitGroup completion or context expiration
	select {
	case <-done:
		p.config.Log.Debug("All goroutines terminated successfully")
		return nil
	case <-ctx.Done():
		p.config.Log.Warn("Timed out waiting for goroutines to terminate", "error", ctx.Err())
		return ctx.Err()
	}
}
