// Package errs defines the error taxonomy shared by the report engine.
//
// Configuration errors carry a structural path into the template
// (for example "sections[0].bands[2].dataSource"), content-fit errors name the
// band and element that could not be placed, and plugin failures are wrapped
// with the element path while keeping the plugin's own error reachable through
// errors.Is and errors.As.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel causes for configuration errors.
var (
	ErrMissingDataSource  = errors.New("detail band has no data source")
	ErrUnknownStyle       = errors.New("unknown named style")
	ErrUndeclaredFont     = errors.New("font is not declared")
	ErrUnknownElementType = errors.New("element type is not registered")
	ErrInvalidGradient    = errors.New("invalid gradient")
	ErrInvalidProps       = errors.New("invalid element properties")
	ErrNestingTooDeep     = errors.New("element nesting too deep")
	ErrInvalidTemplate    = errors.New("invalid template")
	ErrInvalidStyle       = errors.New("invalid style value")
)

// ConfigError reports a template that cannot be rendered as written.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("report: configuration: %v", e.Err)
	}
	return fmt.Sprintf("report: configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config builds a ConfigError. A formatted detail is appended to the sentinel
// when format is not empty.
func Config(path string, cause error, format string, args ...any) *ConfigError {
	err := cause
	if format != "" {
		err = fmt.Errorf("%w: %s", cause, fmt.Sprintf(format, args...))
	}
	return &ConfigError{Path: path, Err: err}
}

// ContentFitError reports content taller than an empty page or column.
type ContentFitError struct {
	Band      string
	Element   string
	Required  float64
	Available float64
}

func (e *ContentFitError) Error() string {
	if e.Element != "" {
		return fmt.Sprintf("report: content does not fit: band %s element %s needs %.2fpt, page offers %.2fpt",
			e.Band, e.Element, e.Required, e.Available)
	}
	return fmt.Sprintf("report: content does not fit: band %s needs %.2fpt, page offers %.2fpt",
		e.Band, e.Required, e.Available)
}

// ElementError wraps an error returned by an element plugin.
type ElementError struct {
	Path string
	Type string
	Op   string
	Err  error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("report: %s %s (%s): %v", e.Op, e.Path, e.Type, e.Err)
}

func (e *ElementError) Unwrap() error { return e.Err }

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsContentFit reports whether err is (or wraps) a ContentFitError.
func IsContentFit(err error) bool {
	var ce *ContentFitError
	return errors.As(err, &ce)
}
