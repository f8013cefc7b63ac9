package scripting

import (
	"context"
	"errors"
	"sync"

	"github.com/dop251/goja"
)

// GojaEvaluator runs expressions as JavaScript. Compiled programs are cached
// per expression; the runtime is not shared between evaluators.
type GojaEvaluator struct {
	mu       sync.Mutex
	vm       *goja.Runtime
	programs map[string]goja.Callable
}

func NewEvaluator() *GojaEvaluator {
	return &GojaEvaluator{vm: goja.New(), programs: make(map[string]goja.Callable)}
}

func (e *GojaEvaluator) Eval(ctx context.Context, expression string, scope map[string]any) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	fn, err := e.compile(expression)
	if err != nil {
		return nil, &EvalError{Expression: expression, Err: err}
	}

	done := make(chan struct{})
	defer close(done)
	defer e.vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	if scope == nil {
		scope = map[string]any{}
	}
	val, err := fn(e.vm.ToValue(scope))
	if err != nil {
		if interruptedErr, ok := err.(*goja.InterruptedError); ok {
			if cause := interruptedErr.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, &EvalError{Expression: expression, Err: err}
	}
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, nil
	}
	return val.Export(), nil
}

// compile wraps the expression in a sloppy-mode function whose body runs
// with(this), so scope keys resolve as bare identifiers.
func (e *GojaEvaluator) compile(expression string) (goja.Callable, error) {
	if fn, ok := e.programs[expression]; ok {
		return fn, nil
	}
	src := "(function () { with (this) { return (" + expression + "\n); } })"
	prog, err := goja.Compile("expression", src, false)
	if err != nil {
		return nil, err
	}
	v, err := e.vm.RunProgram(prog)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, errNotFunction
	}
	e.programs[expression] = fn
	return fn, nil
}

var errNotFunction = errors.New("compiled expression is not callable")
