// Package expr binds template strings to data. It wraps a
// scripting.Evaluator with {{ ... }} placeholder handling, recursive property
// resolution and boolean conditions, and builds the scopes expressions see.
package expr

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/wudi/reportkit/scripting"
)

// Reserved scope keys.
const (
	KeyData       = "data"
	KeyPageNumber = "pageNumber"
	KeyTotalPages = "totalPages"
	KeyItem       = "item"
	KeyIndex      = "index"
	KeyGroupKey   = "groupKey"
	KeyGroupItems = "groupItems"
)

// Scope is the open key/value object an expression is evaluated against.
// Scopes are never modified after construction; the With helpers copy.
type Scope map[string]any

// BaseScope exposes the root data both under "data" and, when it is an
// object, spread at the top level, plus the page counters.
func BaseScope(data any, pageNumber, totalPages int) Scope {
	s := Scope{}
	if m, ok := data.(map[string]any); ok {
		for k, v := range m {
			s[k] = v
		}
	}
	s[KeyData] = data
	s[KeyPageNumber] = pageNumber
	s[KeyTotalPages] = totalPages
	return s
}

// With returns a copy of s with the given key/value pairs added.
func (s Scope) With(kv ...any) Scope {
	out := make(Scope, len(s)+len(kv)/2)
	for k, v := range s {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}

// ItemScope binds one item of a detail band. The item is visible as "item"
// and under the band's item name when one is configured.
func (s Scope) ItemScope(item any, index int, itemName string) Scope {
	out := s.With(KeyItem, item, KeyIndex, index)
	if itemName != "" {
		out[itemName] = item
	}
	return out
}

// GroupScope binds a group for its header and footer bands.
func (s Scope) GroupScope(key any, items []any) Scope {
	return s.With(KeyGroupKey, key, KeyGroupItems, items)
}

// WithPage returns a copy with corrected page counters.
func (s Scope) WithPage(pageNumber, totalPages int) Scope {
	return s.With(KeyPageNumber, pageNumber, KeyTotalPages, totalPages)
}

// Adapter evaluates template strings through an Evaluator.
type Adapter struct {
	ev scripting.Evaluator
}

func NewAdapter(ev scripting.Evaluator) *Adapter { return &Adapter{ev: ev} }

// HasPlaceholder reports whether s contains a {{ ... }} expression.
func HasPlaceholder(s string) bool {
	i := strings.Index(s, "{{")
	return i >= 0 && strings.Contains(s[i+2:], "}}")
}

// pure returns the inner expression when s is exactly one placeholder.
func pure(s string) (string, bool) {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "{{") || !strings.HasSuffix(t, "}}") {
		return "", false
	}
	inner := t[2 : len(t)-2]
	if strings.Contains(inner, "{{") || strings.Contains(inner, "}}") {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

// Resolve substitutes every placeholder in tmpl with its stringified value.
func (a *Adapter) Resolve(ctx context.Context, tmpl string, scope Scope) (string, error) {
	if !HasPlaceholder(tmpl) {
		return tmpl, nil
	}
	var b strings.Builder
	rest := tmpl
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[open+2:], "}}")
		if end < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:open])
		code := strings.TrimSpace(rest[open+2 : open+2+end])
		v, err := a.ev.Eval(ctx, code, scope)
		if err != nil {
			return "", err
		}
		b.WriteString(Stringify(v))
		rest = rest[open+2+end+2:]
	}
	return b.String(), nil
}

// ResolveValue is Resolve, except that a string consisting of a single
// placeholder yields the raw value so arrays and objects reach plugins
// intact.
func (a *Adapter) ResolveValue(ctx context.Context, tmpl string, scope Scope) (any, error) {
	if code, ok := pure(tmpl); ok {
		return a.ev.Eval(ctx, code, scope)
	}
	return a.Resolve(ctx, tmpl, scope)
}

// ResolveProps resolves every string leaf of a property tree. Maps and
// slices are copied; the input is not modified.
func (a *Adapter) ResolveProps(ctx context.Context, props any, scope Scope) (any, error) {
	switch v := props.(type) {
	case string:
		return a.ResolveValue(ctx, v, scope)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			r, err := a.ResolveProps(ctx, item, scope)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			r, err := a.ResolveProps(ctx, item, scope)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	return props, nil
}

// Evaluate evaluates a condition. An empty condition is true. The
// condition may be a bare expression or wrapped in a placeholder.
func (a *Adapter) Evaluate(ctx context.Context, condition string, scope Scope) (bool, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return true, nil
	}
	if code, ok := pure(condition); ok {
		condition = code
	} else if HasPlaceholder(condition) {
		s, err := a.Resolve(ctx, condition, scope)
		if err != nil {
			return false, err
		}
		return Truthy(s), nil
	}
	v, err := a.ev.Eval(ctx, condition, scope)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Truthy applies JavaScript truthiness, treating the strings "false" and
// "0" as false as well.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "false" && t != "0"
	case float64:
		return t != 0 && !math.IsNaN(t)
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	}
	return true
}

// Stringify renders a value the way it appears in resolved text. Whole
// numbers print without a fractional part.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
