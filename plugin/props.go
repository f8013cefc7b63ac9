package plugin

import (
	"encoding/json"
	"fmt"

	"github.com/wudi/reportkit/errs"
)

// DecodeProps overlays raw onto defaults by a JSON round trip, so raw keys
// follow the json tags of T and absent keys keep their default.
func DecodeProps[T any](raw map[string]any, defaults T) (T, error) {
	out := defaults
	if len(raw) == 0 {
		return out, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return out, fmt.Errorf("%w: %v", errs.ErrInvalidProps, err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("%w: %v", errs.ErrInvalidProps, err)
	}
	return out, nil
}

// As asserts props to the concrete type a plugin produced in ResolveProps.
func As[T any](props any) (T, error) {
	switch v := props.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: unexpected props %T", errs.ErrInvalidProps, props)
}
