// Package smoke carries op-proctor's built-in demonstration suite: a small
// set of cases that exercise every outcome path the framework knows about.
// It is what the service runs when no other suite is wired in.
package smoke

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-proctor/types"
)

// SuiteName is the name the built-in suite runs under.
const SuiteName = "smoke"

// ErrSentinel is raised by the expected-panic case so reports have a stable
// fault to show.
var ErrSentinel = errors.New("smoke sentinel fault")

// NewSuite builds the demonstration suite. With hazards included the suite
// also carries deliberately misbehaving cases: one sleeps past its budget,
// one hangs until it is cancelled.
func NewSuite(includeHazards bool) *types.Suite {
	s := types.NewSuite(SuiteName)

	s.MustAdd(types.CaseSpec{
		Description: "string length is measured",
		ItemType:    "string",
		Expect:      types.ExpectReturn(14),
		Budget:      2 * time.Second,
		Run: func(ex types.Exec) error {
			item := "Test test test"
			ex.Starting(item)
			ex.Returned(len(item))
			return nil
		},
	})

	s.MustAdd(types.CaseSpec{
		Description: "upper-casing preserves content",
		ItemType:    "string",
		Expect:      types.ExpectReturn("TEST TEST TEST"),
		Budget:      2 * time.Second,
		Run: func(ex types.Exec) error {
			item := "Test test test"
			ex.Starting(item)
			ex.Returned(strings.ToUpper(item))
			return nil
		},
	})

	s.MustAdd(types.CaseSpec{
		Description: "opening a missing file reports not-exist",
		ItemType:    "*os.File",
		Expect:      types.ExpectFault(fs.ErrNotExist),
		Budget:      2 * time.Second,
		Run: func(ex types.Exec) error {
			ex.StartingType("*os.File")
			f, err := os.Open("/definitely/not/here")
			if err != nil {
				return err
			}
			ex.Returned(f.Name())
			return f.Close()
		},
	})

	s.MustAdd(types.CaseSpec{
		Description: "a panicking procedure is caught",
		ItemType:    "panic",
		Expect:      types.ExpectFault(ErrSentinel),
		Budget:      2 * time.Second,
		Run: func(ex types.Exec) error {
			ex.StartingType("panic")
			panic(ErrSentinel)
		},
	})

	s.MustAdd(types.CaseSpec{
		Description: "tracked goroutines sum their parts",
		ItemType:    "*sync.WaitGroup",
		Expect:      types.ExpectReturn(6),
		Budget:      2 * time.Second,
		Run: func(ex types.Exec) error {
			var wg sync.WaitGroup
			ex.Starting(&wg)

			var mu sync.Mutex
			total := 0
			for i := 1; i <= 3; i++ {
				wg.Add(1)
				n := i
				ex.Go(func() {
					defer wg.Done()
					mu.Lock()
					total += n
					mu.Unlock()
				})
			}
			wg.Wait()

			mu.Lock()
			sum := total
			mu.Unlock()
			ex.Returned(sum)
			return nil
		},
	})

	s.MustAdd(types.CaseSpec{
		Description: "held back by its skip predicate",
		ItemType:    "string",
		Expect:      types.ExpectCompletion(),
		Skip:        func() bool { return true },
		Run: func(ex types.Exec) error {
			ex.StartingType("string")
			ex.Returned(nil)
			return nil
		},
	})

	if includeHazards {
		s.MustAdd(types.CaseSpec{
			Description: "hazard: sleeps past its budget",
			ItemType:    "sleeper",
			Expect:      types.ExpectCompletion(),
			Budget:      250 * time.Millisecond,
			Run: func(ex types.Exec) error {
				ex.StartingType("sleeper")
				time.Sleep(5 * time.Second)
				ex.Returned(nil)
				return nil
			},
		})

		s.MustAdd(types.CaseSpec{
			Description: "hazard: hangs until cancelled",
			ItemType:    "hanger",
			Expect:      types.ExpectCompletion(),
			Budget:      250 * time.Millisecond,
			Run: func(ex types.Exec) error {
				ex.StartingType("hanger")
				<-ex.Context().Done()
				return ex.Context().Err()
			},
		})
	}

	return s
}
