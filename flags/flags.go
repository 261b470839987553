package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "OP_PROCTOR"

var (
	RunPlan = &cli.StringFlag{
		Name:    "run-plan",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_PLAN"),
		Usage:   "Path to a run plan file (eg. 'plan.yaml') that budgets and skips cases",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOGDIR"),
		Usage:   "Directory to write per-run artifacts to",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between test runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	DefaultBudget = &cli.DurationFlag{
		Name:    "default-budget",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DEFAULT_BUDGET"),
		Usage:   "Budget applied to cases that declare none (e.g. '5s'). Set to 0 or omit to leave them unenforced.",
	}
	IncludeHazards = &cli.BoolFlag{
		Name:    "include-hazards",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "INCLUDE_HAZARDS"),
		Usage:   "Include the misbehaving demonstration cases (timeout, hang) in the smoke suite",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	RunPlan,
	LogDir,
	RunInterval,
	DefaultBudget,
	IncludeHazards,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
