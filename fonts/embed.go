package fonts

import (
	"context"
	"strings"

	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/errs"
	"github.com/wudi/reportkit/resources"
	"github.com/wudi/reportkit/template"
)

// Map holds the faces embedded for one document.
type Map struct {
	doc      *builder.Document
	faces    map[string]*Face
	order    []*Face
	declared map[string]bool
}

// Embed embeds every spec exactly once. Each spec must match a declaration
// by case-insensitive family, weight class and style class; the standard
// families Helvetica, Times and Courier are declared implicitly.
func Embed(ctx context.Context, doc *builder.Document, specs []Spec, decls []template.FontDeclaration, loader resources.Loader) (*Map, error) {
	m := &Map{doc: doc, faces: map[string]*Face{}, declared: map[string]bool{}}
	for _, d := range decls {
		m.declared[strings.ToLower(strings.TrimSpace(d.Family))] = true
	}
	for _, s := range specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := m.faces[s.Key()]; ok {
			continue
		}
		decl, ok := match(decls, s)
		switch {
		case ok && decl.Src != "":
			if loader == nil {
				loader = &resources.SourceLoader{}
			}
			data, err := loader.Load(ctx, resources.CategoryFont, decl.Src)
			if err != nil {
				return nil, err
			}
			if err := m.addTrueType(s, data); err != nil {
				return nil, errs.Config(s.Source, errs.ErrUndeclaredFont, "%s: %v", s, err)
			}
		case IsStandard(s.Family):
			m.addStandard(s)
		case ok:
			return nil, errs.Config(s.Source, errs.ErrUndeclaredFont, "%s has no src and is not a standard family", s)
		default:
			return nil, errs.Config(s.Source, errs.ErrUndeclaredFont, "%s", s)
		}
	}
	return m, nil
}

func match(decls []template.FontDeclaration, s Spec) (template.FontDeclaration, bool) {
	for _, d := range decls {
		if !strings.EqualFold(strings.TrimSpace(d.Family), strings.TrimSpace(s.Family)) {
			continue
		}
		weight := d.Weight
		if weight == 0 {
			weight = template.WeightNormal
		}
		italic := strings.EqualFold(d.Style, "italic") || strings.EqualFold(d.Style, "oblique")
		if weight.IsBold() == s.Bold && italic == s.Italic {
			return d, true
		}
	}
	return template.FontDeclaration{}, false
}

func (m *Map) addStandard(s Spec) *Face {
	prog := &standardProgram{m: standardFor(s.Family, s.Bold, s.Italic)}
	f := &Face{
		Family: s.Family, Bold: s.Bold, Italic: s.Italic,
		name: m.doc.NextResourceName("F"),
		ref:  m.doc.AddObject(prog.dict()),
		prog: prog,
	}
	m.register(s, f)
	return f
}

func (m *Map) addTrueType(s Spec, data []byte) error {
	prog, sf, err := parseTrueType(s.Family, data)
	if err != nil {
		return err
	}
	ref, err := embedTrueType(m.doc, prog, sf, data)
	if err != nil {
		return err
	}
	m.register(s, &Face{
		Family: s.Family, Bold: s.Bold, Italic: s.Italic,
		name: m.doc.NextResourceName("F"),
		ref:  ref,
		prog: prog,
	})
	return nil
}

func (m *Map) register(s Spec, f *Face) {
	m.faces[s.Key()] = f
	m.order = append(m.order, f)
}

// Faces returns the embedded faces in embedding order.
func (m *Map) Faces() []*Face { return m.order }

// Lookup returns the face for a triple. When the exact triple was not
// embedded, undeclared standard families are embedded on demand and other
// families fall back to an embedded face of the same family, preferring the
// same weight class. A family that was never embedded is an error.
func (m *Map) Lookup(family string, bold, italic bool) (*Face, error) {
	if f, ok := m.faces[key(family, bold, italic)]; ok {
		return f, nil
	}
	if IsStandard(family) && !m.declared[strings.ToLower(strings.TrimSpace(family))] {
		return m.addStandard(Spec{Family: family, Bold: bold, Italic: italic}), nil
	}
	var best *Face
	for _, f := range m.order {
		if !strings.EqualFold(f.Family, family) {
			continue
		}
		if best == nil || (f.Bold == bold && best.Bold != bold) {
			best = f
		}
	}
	if best != nil {
		return best, nil
	}
	return nil, errs.Config("", errs.ErrUndeclaredFont, "%s", Spec{Family: family, Bold: bold, Italic: italic})
}
