package runner

import (
	"context"
	"fmt"

	"github.com/ethereum-optimism/infra/op-proctor/types"
)

// procExec is the handle handed to a procedure body. It binds the body's
// progress reports to the execution's result entry and its goroutines to
// the execution's scope.
type procExec struct {
	sc  *scope
	res *Result
}

var _ types.Exec = (*procExec)(nil)

func (e *procExec) Context() context.Context {
	return e.sc.ctx
}

func (e *procExec) Starting(item any) {
	if item == nil {
		panic(&types.NullItemError{Description: e.res.Case().Description})
	}
	if err := e.res.processing(fmt.Sprintf("%T", item)); err != nil {
		panic(err)
	}
}

func (e *procExec) StartingType(typeName string) {
	if typeName == "" {
		panic(&types.NullItemError{Description: e.res.Case().Description})
	}
	if err := e.res.processing(typeName); err != nil {
		panic(err)
	}
}

func (e *procExec) Returned(value any) {
	if err := e.res.recordReturn(value); err != nil {
		panic(err)
	}
}

func (e *procExec) Go(fn func()) {
	e.sc.spawn(false, func() {
		defer func() {
			if p := recover(); p != nil {
				e.res.caught(recoveredFault(p))
			}
		}()
		fn()
	})
}

// recoveredFault converts a recovered panic value into a fault. Errors pass
// through untouched so fault expectations can match them; anything else is
// wrapped.
func recoveredFault(p any) error {
	if err, ok := p.(error); ok {
		return err
	}
	return &types.PanicError{Value: p}
}
