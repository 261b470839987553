package runner

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/op-proctor/types"
)

// Hooks carries optional callbacks fired as a run log evolves. All fields
// may be nil. Callbacks run on whichever goroutine triggered the change and
// outside the log's and the entry's locks, so they may freely read both.
// They exist for live displays and sinks; no framework behavior depends on
// them.
type Hooks struct {
	// OnNewEntry fires when an execution is enqueued.
	OnNewEntry func(*Result)
	// OnEntryChanged fires when an entry's status or evaluation changes.
	OnEntryChanged func(*Result)
	// OnComplete fires once, when the log is finalized.
	OnComplete func(*Log)
}

// Log is the append-only record of one run: an ordered list of execution
// entries plus the run's identity, timing, and a description of the
// environment it ran in. A log accepts entries until it is finalized, after
// which any mutation reports ErrLogSealed.
type Log struct {
	name  string
	runID string
	hooks Hooks
	env   []string

	mu      sync.Mutex
	entries []*Result
	started time.Time
	ended   time.Time
	sealed  bool
}

// NewLog creates an open run log named after the suite it will record. The
// environment description is captured at construction; pieces that cannot
// be determined are left out.
func NewLog(name string, hooks Hooks) *Log {
	return &Log{
		name:    name,
		runID:   uuid.New().String(),
		hooks:   hooks,
		env:     describeEnvironment(),
		started: time.Now(),
	}
}

// Name returns the suite name this log records a run of.
func (l *Log) Name() string {
	return l.name
}

// RunID returns the unique id assigned to this run.
func (l *Log) RunID() string {
	return l.runID
}

// Environment returns the captured environment description, one line per
// fact.
func (l *Log) Environment() []string {
	out := make([]string, len(l.env))
	copy(out, l.env)
	return out
}

// StartTime returns when the log was opened.
func (l *Log) StartTime() time.Time {
	return l.started
}

// EndTime returns when the log was finalized, or the zero time while the
// run is still open.
func (l *Log) EndTime() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ended
}

// Elapsed returns the run's duration so far, or its final duration once the
// log is sealed.
func (l *Log) Elapsed() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sealed {
		return l.ended.Sub(l.started)
	}
	return time.Since(l.started)
}

// Sealed reports whether the log has been finalized.
func (l *Log) Sealed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sealed
}

// Len returns the number of entries appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a snapshot of the log's entries in submission order. The
// entries themselves are live and may still be mutating.
func (l *Log) Entries() []*Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Result, len(l.entries))
	copy(out, l.entries)
	return out
}

// Append enqueues a new execution entry for spec. It fails once the log is
// sealed.
func (l *Log) Append(spec types.CaseSpec) (*Result, error) {
	l.mu.Lock()
	if l.sealed {
		l.mu.Unlock()
		return nil, types.ErrLogSealed
	}
	r := newResult(l, spec)
	l.entries = append(l.entries, r)
	l.mu.Unlock()
	if l.hooks.OnNewEntry != nil {
		l.hooks.OnNewEntry(r)
	}
	return r, nil
}

// Finalize seals the log and stamps its end time. A log can be finalized
// exactly once.
func (l *Log) Finalize() error {
	l.mu.Lock()
	if l.sealed {
		l.mu.Unlock()
		return types.ErrLogSealed
	}
	l.sealed = true
	l.ended = time.Now()
	l.mu.Unlock()
	if l.hooks.OnComplete != nil {
		l.hooks.OnComplete(l)
	}
	return nil
}

func (l *Log) notifyEntryChanged(r *Result) {
	if l.hooks.OnEntryChanged != nil {
		l.hooks.OnEntryChanged(r)
	}
}

// describeEnvironment collects one-line facts about the host. Facts that
// cannot be read are omitted rather than failing the run.
func describeEnvironment() []string {
	env := []string{
		fmt.Sprintf("go version: %s", runtime.Version()),
		fmt.Sprintf("platform: %s/%s", runtime.GOOS, runtime.GOARCH),
		fmt.Sprintf("cpus: %d", runtime.NumCPU()),
		fmt.Sprintf("gomaxprocs: %d", runtime.GOMAXPROCS(0)),
	}
	if host, err := os.Hostname(); err == nil {
		env = append(env, fmt.Sprintf("hostname: %s", host))
	}
	if wd, err := os.Getwd(); err == nil {
		env = append(env, fmt.Sprintf("working directory: %s", wd))
	}
	return env
}
