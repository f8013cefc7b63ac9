package bands

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wudi/reportkit/errs"
	"github.com/wudi/reportkit/expr"
	"github.com/wudi/reportkit/scripting"
	"github.com/wudi/reportkit/template"
)

func newAdapter() *expr.Adapter { return expr.NewAdapter(scripting.NewEvaluator()) }

// trace renders content instances as "id" or "id:label" where label comes
// from the item name or group key.
func trace(ex *Expanded) string {
	var parts []string
	for _, in := range ex.Content {
		s := in.Band.ID
		if item, ok := in.Scope[expr.KeyItem].(map[string]any); ok {
			s += ":" + expr.Stringify(item["name"])
		} else if k, ok := in.Scope[expr.KeyGroupKey]; ok {
			s += ":" + expr.Stringify(k)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

func TestExpandNoDataExclusive(t *testing.T) {
	section := &template.Section{Bands: []template.Band{
		{ID: "sum", Role: template.RoleSummary},
		{ID: "rows", Role: template.RoleDetail, DataSource: "rows"},
		{ID: "empty", Role: template.RoleNoData},
		{ID: "title", Role: template.RoleTitle},
		{ID: "body", Role: template.RoleBody},
	}}
	cases := []struct {
		name string
		data any
		want string
	}{
		{"empty sequence", map[string]any{"rows": []any{}}, "title empty body sum"},
		{"missing source", map[string]any{}, "title empty body sum"},
		{"not a sequence", map[string]any{"rows": "abc"}, "title empty body sum"},
		{"items", map[string]any{"rows": []any{map[string]any{"name": "a"}}}, "title rows:a body sum"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ex, err := Expand(context.Background(), section, 0, tc.data, newAdapter(), 0)
			if err != nil {
				t.Fatalf("expand: %v", err)
			}
			if got := trace(ex); got != tc.want {
				t.Fatalf("content = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExpandNoDataWithoutDetailBands(t *testing.T) {
	section := &template.Section{Bands: []template.Band{{ID: "nd", Role: template.RoleNoData}}}
	ex, err := Expand(context.Background(), section, 0, nil, newAdapter(), 0)
	if err != nil || trace(ex) != "nd" {
		t.Fatalf("content = %q, %v", trace(ex), err)
	}
}

func TestExpandGroupsInFirstOccurrenceOrder(t *testing.T) {
	row := func(name, region string) any { return map[string]any{"name": name, "region": region} }
	data := map[string]any{"sales": []any{
		row("a", "north"), row("b", "south"), row("c", "north"), row("d", "east"), row("e", "south"),
	}}
	section := &template.Section{Bands: []template.Band{
		{ID: "gf", Role: template.RoleGroupFooter},
		{ID: "d", Role: template.RoleDetail, DataSource: "sales", GroupBy: "region", ItemName: "sale"},
		{ID: "gh", Role: template.RoleGroupHeader},
	}}
	ex, err := Expand(context.Background(), section, 0, data, newAdapter(), 0)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := "gh:north d:a d:c gf:north gh:south d:b d:e gf:south gh:east d:d gf:east"
	if got := trace(ex); got != want {
		t.Fatalf("content = %q\nwant      %q", got, want)
	}
	if ex.DetailItems != 5 {
		t.Fatalf("detail items = %d", ex.DetailItems)
	}
	for _, in := range ex.Content {
		if in.Band.ID == "d" {
			if in.Scope["sale"] == nil || in.Scope[expr.KeyGroupKey] == nil {
				t.Fatalf("item scope misses item name or group key: %v", in.Scope)
			}
		}
	}
	if items := ex.Content[0].Scope[expr.KeyGroupItems].([]any); len(items) != 2 {
		t.Fatalf("group items = %v", items)
	}
}

func TestExpandConditionsUseOwnScope(t *testing.T) {
	data := map[string]any{"showTitle": false, "rows": []any{
		map[string]any{"name": "a", "qty": 1.0},
		map[string]any{"name": "b", "qty": 0.0},
		map[string]any{"name": "c", "qty": 5.0},
	}}
	section := &template.Section{Bands: []template.Band{
		{ID: "title", Role: template.RoleTitle, Condition: "{{ showTitle }}"},
		{ID: "row", Role: template.RoleDetail, DataSource: "rows", Condition: "item.qty > 0"},
		{ID: "sum", Role: template.RoleSummary, Condition: "rows.length === 3"},
	}}
	ex, err := Expand(context.Background(), section, 0, data, newAdapter(), 0)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got := trace(ex); got != "row:a row:c sum" {
		t.Fatalf("content = %q", got)
	}
	if ex.Content[1].Scope[expr.KeyIndex] != 2 {
		t.Fatalf("index must be the source position, got %v", ex.Content[1].Scope[expr.KeyIndex])
	}
}

func TestExpandMissingDataSourceIsFatal(t *testing.T) {
	section := &template.Section{Bands: []template.Band{
		{ID: "title", Role: template.RoleTitle},
		{ID: "row", Role: template.RoleDetail},
	}}
	_, err := Expand(context.Background(), section, 2, nil, newAdapter(), 0)
	var ce *errs.ConfigError
	if !errors.As(err, &ce) || !errors.Is(err, errs.ErrMissingDataSource) {
		t.Fatalf("expected missing data source, got %v", err)
	}
	if ce.Path != "sections[2].bands[1].dataSource" {
		t.Fatalf("path = %q", ce.Path)
	}
}

func TestExpandStructuralBands(t *testing.T) {
	section := &template.Section{Bands: []template.Band{
		{ID: "ph", Role: template.RolePageHeader, Condition: "pageNumber > 1"},
		{ID: "pf", Role: template.RolePageFooter},
		{ID: "lpf", Role: template.RoleLastPageFooter},
		{ID: "bg", Role: template.RoleBackground},
	}}
	ex, err := Expand(context.Background(), section, 0, map[string]any{}, newAdapter(), 4)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(ex.Content) != 0 {
		t.Fatalf("structural bands must not enter content")
	}
	if len(ex.PageHeader) != 1 || len(ex.PageFooter) != 1 || len(ex.LastPageFooter) != 1 || len(ex.Background) != 1 {
		t.Fatalf("structural buckets = %+v", ex)
	}
	if ex.PageHeader[0].Scope[expr.KeyTotalPages] != 4 {
		t.Fatalf("base scope must carry total pages")
	}
}

func TestExpandExpressionDataSource(t *testing.T) {
	data := map[string]any{"rows": []any{
		map[string]any{"name": "a", "ok": true},
		map[string]any{"name": "b", "ok": false},
	}}
	section := &template.Section{Bands: []template.Band{
		{ID: "row", Role: template.RoleDetail, DataSource: "{{ rows.filter(r => r.ok) }}"},
	}}
	ex, err := Expand(context.Background(), section, 0, data, newAdapter(), 0)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got := trace(ex); got != "row:a" {
		t.Fatalf("content = %q", got)
	}
}

func TestLookup(t *testing.T) {
	data := map[string]any{"orders": []any{
		map[string]any{"lines": []any{"x", "y"}},
	}}
	cases := []struct {
		path string
		want any
		ok   bool
	}{
		{"orders[0].lines[1]", "y", true},
		{"data.orders[0].lines[0]", "x", true},
		{"orders[3]", nil, false},
		{"orders.missing", nil, false},
	}
	for _, tc := range cases {
		got, ok := Lookup(data, tc.path)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("Lookup(%q) = %v, %v", tc.path, got, ok)
		}
	}
	if s, ok := Sequence([]string{"a", "b"}); !ok || len(s) != 2 {
		t.Fatalf("typed slices are sequences")
	}
}
