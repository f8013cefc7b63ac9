// Package outline turns the flat, leveled bookmark list collected during
// layout into the document outline tree.
package outline

import (
	"fmt"
	"unicode/utf16"

	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/ir/raw"
)

// Entry is one bookmark in document order. Page is the zero-based page
// index and Y the destination height in PDF space. Level 0 is a section,
// level 1 a band.
type Entry struct {
	Title string
	Page  int
	Y     float64
	Level int
}

// Node is an entry with the children it owns.
type Node struct {
	Entry
	Children []*Node
}

// Descendants counts every node below n.
func (n *Node) Descendants() int {
	total := 0
	for _, c := range n.Children {
		total += 1 + c.Descendants()
	}
	return total
}

// Tree nests entries by level. Each entry becomes a child of the nearest
// preceding entry with a lower level, or a root when there is none.
func Tree(entries []Entry) []*Node {
	var roots []*Node
	var stack []*Node
	for _, e := range entries {
		n := &Node{Entry: e}
		for len(stack) > 0 && stack[len(stack)-1].Level >= e.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			top := stack[len(stack)-1]
			top.Children = append(top.Children, n)
		}
		stack = append(stack, n)
	}
	return roots
}

// Build writes the outline into doc and makes viewers open with it shown.
// An empty list leaves the document untouched.
func Build(doc *builder.Document, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	pages := doc.Pages()
	if len(pages) == 0 {
		return fmt.Errorf("outline: %d entries but no pages", len(entries))
	}
	roots := Tree(entries)
	rootRef := doc.Reserve()
	b := &linker{doc: doc, pages: pages}
	first, last, err := b.link(roots, rootRef)
	if err != nil {
		return err
	}
	doc.SetObject(rootRef, raw.DictOf(
		"Type", raw.Name("Outlines"),
		"First", raw.Ref(first),
		"Last", raw.Ref(last),
		"Count", raw.Int(int64(len(entries))),
	))
	doc.Catalog().Set("Outlines", raw.Ref(rootRef))
	doc.Catalog().Set("PageMode", raw.Name("UseOutlines"))
	return nil
}

// Destinations registers named destinations in the catalog /Dests
// dictionary so links and viewers can jump to anchors by name. Only Page
// and Y of each entry are used.
func Destinations(doc *builder.Document, named map[string]Entry) error {
	if len(named) == 0 {
		return nil
	}
	pages := doc.Pages()
	dests := raw.Dict()
	for name, e := range named {
		if e.Page < 0 || e.Page >= len(pages) {
			return fmt.Errorf("outline: destination %q targets page %d of %d", name, e.Page+1, len(pages))
		}
		dests.Set(name, raw.NewArray(raw.Ref(pages[e.Page].Ref()), raw.Name("XYZ"), raw.Int(0), raw.Real(e.Y), raw.Null()))
	}
	doc.Catalog().Set("Dests", raw.Ref(doc.AddObject(dests)))
	return nil
}

type linker struct {
	doc   *builder.Document
	pages []*builder.Page
}

func (b *linker) link(nodes []*Node, parent raw.ObjectRef) (first, last raw.ObjectRef, err error) {
	refs := make([]raw.ObjectRef, len(nodes))
	for i := range nodes {
		refs[i] = b.doc.Reserve()
	}
	for i, n := range nodes {
		if n.Page < 0 || n.Page >= len(b.pages) {
			return first, last, fmt.Errorf("outline: %q targets page %d of %d", n.Title, n.Page+1, len(b.pages))
		}
		d := raw.DictOf(
			"Title", TextString(n.Title),
			"Parent", raw.Ref(parent),
			"Dest", raw.NewArray(raw.Ref(b.pages[n.Page].Ref()), raw.Name("XYZ"), raw.Int(0), raw.Real(n.Y), raw.Null()),
		)
		if i > 0 {
			d.Set("Prev", raw.Ref(refs[i-1]))
		}
		if i < len(refs)-1 {
			d.Set("Next", raw.Ref(refs[i+1]))
		}
		if len(n.Children) > 0 {
			cf, cl, err := b.link(n.Children, refs[i])
			if err != nil {
				return first, last, err
			}
			d.Set("First", raw.Ref(cf))
			d.Set("Last", raw.Ref(cl))
			d.Set("Count", raw.Int(int64(n.Descendants())))
		}
		b.doc.SetObject(refs[i], d)
	}
	return refs[0], refs[len(refs)-1], nil
}

// TextString encodes s as a PDF text string: literal when it is printable
// ASCII, UTF-16BE with a byte order mark otherwise.
func TextString(s string) raw.StringObj {
	ascii := true
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			ascii = false
			break
		}
	}
	if ascii {
		return raw.Str(s)
	}
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, 2+2*len(units))
	out = append(out, 0xfe, 0xff)
	for _, u := range units {
		out = append(out, byte(u>>8), byte(u))
	}
	return raw.HexStr(out)
}
