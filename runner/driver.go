package runner

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-proctor/types"
)

// Driver walks a suite through a supervisor, one case at a time, in
// declaration order. Whatever happens to the individual cases, the run log
// is finalized before the driver returns.
type Driver struct {
	log    log.Logger
	sup    *Supervisor
	tracer trace.Tracer
}

// NewDriver creates a driver with its own supervisor.
func NewDriver(logger log.Logger) (*Driver, error) {
	sup, err := NewSupervisor(logger)
	if err != nil {
		return nil, fmt.Errorf("creating supervisor: %w", err)
	}
	return &Driver{
		log:    logger,
		sup:    sup,
		tracer: otel.Tracer("op-proctor"),
	}, nil
}

// RunAll executes every case in the suite, recording one entry per case
// into rl. A canceled context stops the walk between cases; the log is
// finalized on every path out.
func (d *Driver) RunAll(ctx context.Context, suite *types.Suite, rl *Log) error {
	ctx, span := d.tracer.Start(ctx, fmt.Sprintf("run suite %s", suite.Name()),
		trace.WithAttributes(
			attribute.String("run_id", rl.RunID()),
			attribute.Int("cases", suite.Len()),
		))
	defer span.End()

	d.log.Info("Starting run", "suite", suite.Name(), "run_id", rl.RunID(), "cases", suite.Len())

	var runErr error
	for _, spec := range suite.Cases() {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		caseCtx, caseSpan := d.tracer.Start(ctx, fmt.Sprintf("case %s", spec.Description))
		err := d.sup.Run(caseCtx, spec, rl)
		caseSpan.End()
		if err != nil {
			runErr = err
			break
		}
	}

	if err := rl.Finalize(); err != nil && runErr == nil {
		runErr = fmt.Errorf("finalizing run log: %w", err)
	}
	d.log.Info("Run finished",
		"suite", suite.Name(),
		"run_id", rl.RunID(),
		"entries", rl.Len(),
		"elapsed", rl.Elapsed())
	return runErr
}
