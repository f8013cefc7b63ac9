package scripting

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGojaEvaluator_Scope(t *testing.T) {
	ev := NewEvaluator()
	scope := map[string]any{
		"item":       map[string]any{"name": "Widget", "qty": 3},
		"pageNumber": 2,
		"totalPages": 5,
		"rows":       []any{1, 2, 3},
	}
	tests := []struct {
		expr string
		want any
	}{
		{"item.name", "Widget"},
		{"pageNumber + ' / ' + totalPages", "2 / 5"},
		{"item.qty > 2", true},
		{"rows.length", int64(3)},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := ev.Eval(context.Background(), tc.expr, scope)
			if err != nil {
				t.Fatalf("eval: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %#v (%T), want %#v", got, got, tc.want)
			}
		})
	}
}

func TestGojaEvaluator_UndefinedIsNil(t *testing.T) {
	got, err := NewEvaluator().Eval(context.Background(), "this.nothing", map[string]any{})
	if err != nil || got != nil {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestGojaEvaluator_Errors(t *testing.T) {
	ev := NewEvaluator()
	_, err := ev.Eval(context.Background(), "1 +", nil)
	var evalErr *EvalError
	if !errors.As(err, &evalErr) || evalErr.Expression != "1 +" {
		t.Fatalf("expected EvalError for syntax error, got %v", err)
	}
	if _, err := ev.Eval(context.Background(), "nope.field", nil); !errors.As(err, &evalErr) {
		t.Fatalf("expected EvalError for reference error, got %v", err)
	}
}

func TestGojaEvaluator_ContextCancellation(t *testing.T) {
	ev := NewEvaluator()

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	if _, err := ev.Eval(ctx, "(function(){ while (true) {} })()", nil); err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}

	if _, err := ev.Eval(context.Background(), "1 + 1", nil); err != nil {
		t.Fatalf("evaluator should recover after cancellation, got %v", err)
	}
}

func TestGojaEvaluator_ImmediateCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewEvaluator().Eval(ctx, "42", nil); err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled error, got %v", err)
	}
}
