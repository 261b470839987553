package runner

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// scope is the isolated context one case executes in. It tracks every
// goroutine the execution owns in an explicit registry: the primary
// goroutine running the procedure body, plus any children the procedure
// spawns through its handle. The supervisor polls the registry to learn
// when the execution has gone quiet, cancels the scope's context to request
// cooperative shutdown, and abandons the scope when requests go unanswered.
//
// Goroutines cannot be killed, so abandonment is the terminal measure:
// the scope stops being waited on and its leftovers run out their lives in
// the background with a canceled context.
type scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	active    int
	ids       map[uint64]struct{}
	primary   uint64
	abandoned bool
}

func newScope(parent context.Context) *scope {
	ctx, cancel := context.WithCancel(parent)
	return &scope{
		ctx:    ctx,
		cancel: cancel,
		ids:    map[uint64]struct{}{},
	}
}

// spawn registers a goroutine and starts fn on it. The count is raised
// before the goroutine is scheduled so the supervisor can never observe a
// quiet scope while a launch is in flight.
func (sc *scope) spawn(primary bool, fn func()) {
	sc.mu.Lock()
	sc.active++
	sc.mu.Unlock()
	go func() {
		id := currentGoroutineID()
		sc.mu.Lock()
		if id != 0 {
			sc.ids[id] = struct{}{}
			if primary {
				sc.primary = id
			}
		}
		sc.mu.Unlock()
		defer func() {
			sc.mu.Lock()
			sc.active--
			delete(sc.ids, id)
			sc.mu.Unlock()
		}()
		fn()
	}()
}

// activeCount returns the number of live goroutines in the scope.
func (sc *scope) activeCount() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.active
}

// interrupt requests cooperative shutdown of everything in the scope.
func (sc *scope) interrupt() {
	sc.cancel()
}

// abandon marks the scope as given up on and returns how many goroutines
// were left behind.
func (sc *scope) abandon() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.abandoned = true
	return sc.active
}

func (sc *scope) isAbandoned() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.abandoned
}

// primaryStack returns the primary goroutine's current stack from a full
// runtime dump, best effort. It returns "" when the goroutine has not been
// identified yet, already exited, or cannot be found in the dump.
func (sc *scope) primaryStack() string {
	sc.mu.Lock()
	id := sc.primary
	sc.mu.Unlock()
	if id == 0 {
		return ""
	}
	for _, g := range goroutineDump() {
		if goroutineDumpID(g) == id {
			return g
		}
	}
	return ""
}

// lockWaiters counts the scope's goroutines currently inside a sync lock
// acquisition, judged from a runtime dump. It is a heuristic for the
// operator warning emitted on abandonment: leftovers stuck on locks are the
// ones most likely to poison later executions.
func (sc *scope) lockWaiters() int {
	sc.mu.Lock()
	ids := make(map[uint64]struct{}, len(sc.ids))
	for id := range sc.ids {
		ids[id] = struct{}{}
	}
	sc.mu.Unlock()
	if len(ids) == 0 {
		return 0
	}

	count := 0
	for _, g := range goroutineDump() {
		if _, ok := ids[goroutineDumpID(g)]; !ok {
			continue
		}
		// Matches both the wait-reason header ("[sync.Mutex.Lock]") and the
		// acquisition frames, whichever the runtime shows.
		if strings.Contains(g, "sync.Mutex.Lock") ||
			strings.Contains(g, "sync.RWMutex.Lock") ||
			strings.Contains(g, "sync.RWMutex.RLock") ||
			strings.Contains(g, "sync.WaitGroup.Wait") ||
			strings.Contains(g, "sync.(*Mutex).Lock") ||
			strings.Contains(g, "sync.(*RWMutex).Lock") ||
			strings.Contains(g, "sync.(*RWMutex).RLock") ||
			strings.Contains(g, "sync.(*WaitGroup).Wait") {
			count++
		}
	}
	return count
}

// goroutineDump captures stacks of all goroutines and splits them into one
// string per goroutine.
func goroutineDump() []string {
	buf := make([]byte, 1<<20)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		if len(buf) >= 1<<26 {
			buf = buf[:n]
			break
		}
		buf = make([]byte, len(buf)*2)
	}
	return strings.Split(string(buf), "\n\n")
}

// goroutineDumpID extracts the goroutine id from one dump section, 0 if the
// header does not parse.
func goroutineDumpID(g string) uint64 {
	rest, ok := strings.CutPrefix(g, "goroutine ")
	if !ok {
		return 0
	}
	end := strings.IndexByte(rest, ' ')
	if end <= 0 {
		return 0
	}
	id, err := strconv.ParseUint(rest[:end], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// currentGoroutineID parses the calling goroutine's id from its own stack
// header, 0 if the header does not parse.
func currentGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return goroutineDumpID(string(buf[:n]))
}
