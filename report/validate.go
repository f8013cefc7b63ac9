package report

import (
	"fmt"
	"strings"

	"github.com/wudi/reportkit/errs"
	"github.com/wudi/reportkit/expr"
	"github.com/wudi/reportkit/plugin"
	"github.com/wudi/reportkit/shading"
	"github.com/wudi/reportkit/style"
	"github.com/wudi/reportkit/template"
)

// Validate checks t before any layout work: detail bands have a data
// source, element types are registered, styles and gradients resolve, and
// element properties without placeholders pass their plugin's Validate.
// Properties that depend on data are checked when they are bound.
func Validate(t *template.Template, registry *plugin.Registry, maxDepth int) error {
	v := &validator{registry: registry, styles: style.NewResolver(t), maxDepth: maxDepth}
	for i := range t.Sections {
		for j := range t.Sections[i].Bands {
			b := &t.Sections[i].Bands[j]
			path := fmt.Sprintf("sections[%d].bands[%d]", i, j)
			if b.Role == template.RoleDetail && strings.TrimSpace(b.DataSource) == "" {
				return errs.Config(path+".dataSource", errs.ErrMissingDataSource, "")
			}
			if err := v.elements(b.Elements, path+".elements", 1); err != nil {
				return err
			}
		}
	}
	return nil
}

type validator struct {
	registry *plugin.Registry
	styles   *style.Resolver
	maxDepth int
}

func (v *validator) elements(list []template.Element, prefix string, depth int) error {
	for k := range list {
		el := &list[k]
		path := fmt.Sprintf("%s[%d]", prefix, k)
		if depth > v.maxDepth {
			return errs.Config(path, errs.ErrNestingTooDeep, "more than %d levels", v.maxDepth)
		}
		if err := v.element(el, path); err != nil {
			return err
		}
		if err := v.elements(el.Children, path+".children", depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) element(el *template.Element, path string) error {
	pl, err := v.registry.Resolve(el.Type, path)
	if err != nil {
		return err
	}
	merged, err := v.styles.Layers(el.Style, el.StyleOverrides, path)
	if err != nil {
		return err
	}
	if _, err := style.Compute(merged); err != nil {
		return errs.Config(path+".style", errs.ErrInvalidStyle, "%v", err)
	}
	if bg := merged.Background; bg != nil && bg.Gradient != nil {
		if err := shading.Validate(bg.Gradient); err != nil {
			return &errs.ConfigError{Path: path + ".style.background.gradient", Err: err}
		}
	}
	if dynamic(el.Properties) {
		return nil
	}
	props, _ := copyProps(el.Properties).(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	resolved, err := pl.ResolveProps(props)
	if err != nil {
		return errs.Config(path+".properties", errs.ErrInvalidProps, "%v", err)
	}
	if fes := pl.Validate(resolved); len(fes) > 0 {
		return errs.Config(path+".properties."+fes[0].Field, errs.ErrInvalidProps, "%s", fes[0].Message)
	}
	return nil
}

func dynamic(props map[string]any) bool {
	found := false
	walkStrings(props, func(s string) {
		if expr.HasPlaceholder(s) {
			found = true
		}
	})
	return found
}

// copyProps deep-copies the maps and slices of v so plugins may normalize
// their input without touching the template.
func copyProps(v any) any {
	switch v := v.(type) {
	case map[string]any:
		if v == nil {
			return v
		}
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = copyProps(e)
		}
		return out
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = copyProps(e)
		}
		return out
	}
	return v
}
