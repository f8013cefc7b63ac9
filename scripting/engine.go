// Package scripting evaluates the expressions embedded in report templates.
package scripting

import (
	"context"
)

// Evaluator evaluates a single expression against a scope. Every key of the
// scope is visible to the expression as a free identifier.
type Evaluator interface {
	Eval(ctx context.Context, expression string, scope map[string]any) (any, error)
}

// EvalError reports an expression that failed to compile or run.
type EvalError struct {
	Expression string
	Err        error
}

func (e *EvalError) Error() string {
	return "expression " + quote(e.Expression) + ": " + e.Err.Error()
}

func (e *EvalError) Unwrap() error { return e.Err }

func quote(s string) string {
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return "\"" + s + "\""
}
