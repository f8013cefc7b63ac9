// Package bands expands the band definitions of a section against bound
// data into the ordered band instances the layout engine places.
package bands

import (
	"context"
	"fmt"
	"strings"

	"github.com/wudi/reportkit/errs"
	"github.com/wudi/reportkit/expr"
	"github.com/wudi/reportkit/template"
)

// Instance is one band bound to one scope.
type Instance struct {
	Band *template.Band
	// Path locates the band definition, e.g. "sections[0].bands[3]".
	Path  string
	Scope expr.Scope
	// Key identifies the instance within its section.
	Key string
}

// ID names the instance in errors and logs.
func (in Instance) ID() string {
	if in.Band.ID != "" {
		return in.Band.ID
	}
	return in.Path
}

// Expanded is a section after expansion. Content is in final document
// order; the structural lists are bound to the base scope and their
// conditions are evaluated per page during layout.
type Expanded struct {
	Content        []Instance
	PageHeader     []Instance
	PageFooter     []Instance
	LastPageFooter []Instance
	ColumnHeader   []Instance
	ColumnFooter   []Instance
	Background     []Instance
	// DetailItems counts the items bound by detail bands.
	DetailItems int
	// Base is the section scope with page counters seeded at zero.
	Base expr.Scope
}

type indexed struct {
	band  *template.Band
	index int
}

type expander struct {
	ctx     context.Context
	adapter *expr.Adapter
	section int
	data    any
	base    expr.Scope
}

// Expand instantiates the bands of section number sectionIndex. The content
// order is title, the detail and group expansion (or noData when no detail
// band bound any item), body, then summary. Each instance is kept only when
// its condition holds in its own scope.
func Expand(ctx context.Context, section *template.Section, sectionIndex int, data any, adapter *expr.Adapter, totalPages int) (*Expanded, error) {
	e := &expander{
		ctx:     ctx,
		adapter: adapter,
		section: sectionIndex,
		data:    data,
		base:    expr.BaseScope(data, 0, totalPages),
	}
	buckets := map[template.Role][]indexed{}
	for j := range section.Bands {
		b := &section.Bands[j]
		if b.Role == template.RoleDetail && strings.TrimSpace(b.DataSource) == "" {
			return nil, errs.Config(e.path(j)+".dataSource", errs.ErrMissingDataSource, "")
		}
		buckets[b.Role] = append(buckets[b.Role], indexed{band: b, index: j})
	}

	out := &Expanded{
		Base:           e.base,
		PageHeader:     e.structural(buckets[template.RolePageHeader]),
		PageFooter:     e.structural(buckets[template.RolePageFooter]),
		LastPageFooter: e.structural(buckets[template.RoleLastPageFooter]),
		ColumnHeader:   e.structural(buckets[template.RoleColumnHeader]),
		ColumnFooter:   e.structural(buckets[template.RoleColumnFooter]),
		Background:     e.structural(buckets[template.RoleBackground]),
	}

	add := func(ib indexed, scope expr.Scope, key string) error {
		ok, err := adapter.Evaluate(ctx, ib.band.Condition, scope)
		if err != nil {
			return errs.Config(e.path(ib.index)+".condition", err, "")
		}
		if ok {
			out.Content = append(out.Content, Instance{Band: ib.band, Path: e.path(ib.index), Scope: scope, Key: key})
		}
		return nil
	}

	for _, ib := range buckets[template.RoleTitle] {
		if err := add(ib, e.base, e.key(ib.index)); err != nil {
			return nil, err
		}
	}
	for _, ib := range buckets[template.RoleDetail] {
		items, err := e.items(ib)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			continue
		}
		out.DetailItems += len(items)
		if strings.TrimSpace(ib.band.GroupBy) == "" {
			for i, item := range items {
				scope := e.base.ItemScope(item, i, ib.band.ItemName)
				if err := add(ib, scope, fmt.Sprintf("%s#%d", e.key(ib.index), i)); err != nil {
					return nil, err
				}
			}
			continue
		}
		groups, err := e.group(ib, items)
		if err != nil {
			return nil, err
		}
		for g, grp := range groups {
			gkey := fmt.Sprintf("%s/g%d", e.key(ib.index), g)
			gscope := e.base.GroupScope(grp.key, grp.items)
			for _, h := range buckets[template.RoleGroupHeader] {
				if err := add(h, gscope, fmt.Sprintf("%s/%s", gkey, e.key(h.index))); err != nil {
					return nil, err
				}
			}
			for i, item := range grp.items {
				scope := gscope.ItemScope(item, i, ib.band.ItemName)
				if err := add(ib, scope, fmt.Sprintf("%s#%d", gkey, i)); err != nil {
					return nil, err
				}
			}
			for _, f := range buckets[template.RoleGroupFooter] {
				if err := add(f, gscope, fmt.Sprintf("%s/%s", gkey, e.key(f.index))); err != nil {
					return nil, err
				}
			}
		}
	}
	if out.DetailItems == 0 {
		for _, ib := range buckets[template.RoleNoData] {
			if err := add(ib, e.base, e.key(ib.index)); err != nil {
				return nil, err
			}
		}
	}
	for _, role := range []template.Role{template.RoleBody, template.RoleSummary} {
		for _, ib := range buckets[role] {
			if err := add(ib, e.base, e.key(ib.index)); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (e *expander) path(band int) string {
	return fmt.Sprintf("sections[%d].bands[%d]", e.section, band)
}

func (e *expander) key(band int) string { return fmt.Sprintf("b%d", band) }

func (e *expander) structural(list []indexed) []Instance {
	out := make([]Instance, 0, len(list))
	for _, ib := range list {
		out = append(out, Instance{Band: ib.band, Path: e.path(ib.index), Scope: e.base, Key: e.key(ib.index)})
	}
	return out
}

// items resolves a detail band's data source. Anything but a sequence
// yields no items.
func (e *expander) items(ib indexed) ([]any, error) {
	src := strings.TrimSpace(ib.band.DataSource)
	var v any
	if strings.HasPrefix(src, "{{") {
		r, err := e.adapter.ResolveValue(e.ctx, src, e.base)
		if err != nil {
			return nil, errs.Config(e.path(ib.index)+".dataSource", err, "")
		}
		v = r
	} else {
		v, _ = Lookup(e.data, src)
	}
	items, _ := Sequence(v)
	return items, nil
}

type group struct {
	key   any
	items []any
}

// group partitions items by the group-by path, keeping first-occurrence
// order of the keys and source order within each group.
func (e *expander) group(ib indexed, items []any) ([]*group, error) {
	by := strings.TrimSpace(ib.band.GroupBy)
	var groups []*group
	index := map[string]*group{}
	for i, item := range items {
		var k any
		if strings.HasPrefix(by, "{{") {
			r, err := e.adapter.ResolveValue(e.ctx, by, e.base.ItemScope(item, i, ib.band.ItemName))
			if err != nil {
				return nil, errs.Config(e.path(ib.index)+".groupBy", err, "")
			}
			k = r
		} else {
			k, _ = Lookup(item, strings.TrimPrefix(by, "item."))
		}
		id := fmt.Sprintf("%T:%s", k, expr.Stringify(k))
		g, ok := index[id]
		if !ok {
			g = &group{key: k}
			index[id] = g
			groups = append(groups, g)
		}
		g.items = append(g.items, item)
	}
	return groups, nil
}
