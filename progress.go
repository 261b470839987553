package proctor

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/time/rate"

	"github.com/ethereum-optimism/infra/op-proctor/runner"
	"github.com/ethereum-optimism/infra/op-proctor/types"
)

// progressPrinter feeds a run log's hooks into the operator log. Terminal
// transitions always print; in-flight status changes are rate limited so a
// long run does not flood the output.
type progressPrinter struct {
	log     log.Logger
	limiter *rate.Limiter

	mu       sync.Mutex
	enqueued int
	finished int
}

func newProgressPrinter(logger log.Logger) *progressPrinter {
	return &progressPrinter{
		log:     logger,
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
	}
}

// EntryAdded is wired to runner.Hooks.OnNewEntry.
func (p *progressPrinter) EntryAdded(res *runner.Result) {
	p.mu.Lock()
	p.enqueued++
	n := p.enqueued
	p.mu.Unlock()
	p.log.Debug("Case enqueued", "case", res.Case().Description, "position", n)
}

// EntryChanged is wired to runner.Hooks.OnEntryChanged.
func (p *progressPrinter) EntryChanged(res *runner.Result) {
	status := res.Status()
	if !status.Terminal() {
		if p.limiter.Allow() {
			p.log.Debug("Case running", "case", res.Case().Description, "status", status)
		}
		return
	}

	// Fault and timeout entries notify once when the status turns terminal
	// and again when the evaluation settles; only the latter counts as
	// finished.
	eval, err := res.Evaluation()
	if err != nil || (eval == types.EvalNoResult && status != types.StatusSkipped) {
		return
	}

	p.mu.Lock()
	p.finished++
	finished, enqueued := p.finished, p.enqueued
	p.mu.Unlock()

	p.log.Info("Case finished",
		"case", res.Case().Description,
		"status", status,
		"evaluation", eval,
		"progress", fmt.Sprintf("%d/%d", finished, enqueued))
}
