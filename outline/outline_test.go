package outline

import (
	"testing"

	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/ir/raw"
)

func sample() []Entry {
	return []Entry{
		{Title: "A", Level: 0, Page: 0, Y: 800},
		{Title: "A.1", Level: 1, Page: 0, Y: 600},
		{Title: "A.2", Level: 1, Page: 1, Y: 700},
		{Title: "B", Level: 0, Page: 1, Y: 300},
	}
}

func TestTree(t *testing.T) {
	roots := Tree(sample())
	if len(roots) != 2 || roots[0].Title != "A" || roots[1].Title != "B" {
		t.Fatalf("roots = %+v", roots)
	}
	a := roots[0]
	if len(a.Children) != 2 || a.Children[0].Title != "A.1" || a.Children[1].Title != "A.2" {
		t.Fatalf("children of A = %+v", a.Children)
	}
	if a.Descendants() != 2 || roots[1].Descendants() != 0 {
		t.Fatalf("descendant counts wrong")
	}
}

func TestTreeSkippedLevels(t *testing.T) {
	roots := Tree([]Entry{{Title: "x", Level: 1}, {Title: "y", Level: 0}, {Title: "z", Level: 2}, {Title: "w", Level: 1}})
	if len(roots) != 2 || len(roots[1].Children) != 2 || roots[1].Children[1].Title != "w" {
		t.Fatalf("unexpected tree")
	}
}

func lookup(t *testing.T, doc *builder.Document, o raw.Object) *raw.DictObj {
	t.Helper()
	ref, ok := o.(raw.RefObj)
	if !ok {
		t.Fatalf("expected reference, got %T", o)
	}
	obj, ok := doc.Lookup(ref.R)
	if !ok {
		t.Fatalf("dangling reference %v", ref.R)
	}
	return obj.(*raw.DictObj)
}

func TestBuild(t *testing.T) {
	doc := builder.NewDocument()
	doc.NewPage(595, 842)
	doc.NewPage(595, 842)
	if err := Build(doc, sample()); err != nil {
		t.Fatalf("build: %v", err)
	}
	cat := doc.Catalog()
	if mode, _ := cat.Get("PageMode"); mode != raw.Name("UseOutlines") {
		t.Fatalf("PageMode = %v", mode)
	}
	o, _ := cat.Get("Outlines")
	root := lookup(t, doc, o)
	if root.KV["Count"].(raw.NumberObj).I != 4 {
		t.Fatalf("document count = %v", root.KV["Count"])
	}
	a := lookup(t, doc, root.KV["First"])
	b := lookup(t, doc, root.KV["Last"])
	if string(a.KV["Title"].(raw.StringObj).Bytes) != "A" || string(b.KV["Title"].(raw.StringObj).Bytes) != "B" {
		t.Fatalf("roots mislinked")
	}
	if next := lookup(t, doc, a.KV["Next"]); next != b {
		t.Fatalf("A.Next must be B")
	}
	if prev := lookup(t, doc, b.KV["Prev"]); prev != a {
		t.Fatalf("B.Prev must be A")
	}
	if _, ok := a.Get("Prev"); ok {
		t.Fatalf("first root has no Prev")
	}
	if a.KV["Count"].(raw.NumberObj).I != 2 {
		t.Fatalf("A count = %v", a.KV["Count"])
	}
	a1 := lookup(t, doc, a.KV["First"])
	a2 := lookup(t, doc, a.KV["Last"])
	if lookup(t, doc, a1.KV["Parent"]) != a || lookup(t, doc, a1.KV["Next"]) != a2 {
		t.Fatalf("A.1 mislinked")
	}
	dest := a2.KV["Dest"].(*raw.ArrayObj)
	if dest.Get(0).(raw.RefObj).R != doc.Pages()[1].Ref() || dest.Get(1) != raw.Name("XYZ") {
		t.Fatalf("A.2 dest = %s", raw.Serialize(dest))
	}
	if dest.Get(3).(raw.NumberObj).Float() != 700 || dest.Get(4) != raw.Null() {
		t.Fatalf("dest = %s", raw.Serialize(dest))
	}
}

func TestBuildEmptyIsNoop(t *testing.T) {
	doc := builder.NewDocument()
	if err := Build(doc, nil); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := doc.Catalog().Get("Outlines"); ok {
		t.Fatalf("empty outline must not touch the catalog")
	}
}

func TestBuildRejectsMissingPage(t *testing.T) {
	doc := builder.NewDocument()
	doc.NewPage(100, 100)
	if err := Build(doc, []Entry{{Title: "x", Page: 3}}); err == nil {
		t.Fatalf("expected error for out of range page")
	}
}

func TestTextString(t *testing.T) {
	if s := TextString("Plain"); s.Hex {
		t.Fatalf("ascii must stay literal")
	}
	s := TextString("Ü")
	if !s.Hex || len(s.Bytes) != 4 || s.Bytes[0] != 0xfe || s.Bytes[3] != 0xdc {
		t.Fatalf("utf16 = %x", s.Bytes)
	}
}

func TestDestinations(t *testing.T) {
	doc := builder.NewDocument()
	doc.NewPage(100, 100)
	p2 := doc.NewPage(100, 100)
	if err := Destinations(doc, map[string]Entry{"totals": {Page: 1, Y: 40}}); err != nil {
		t.Fatalf("destinations: %v", err)
	}
	ref, ok := doc.Catalog().Get("Dests")
	if !ok {
		t.Fatal("catalog has no /Dests")
	}
	dest, ok := lookup(t, doc, ref).Get("totals")
	if !ok {
		t.Fatal("named destination missing")
	}
	arr := dest.(*raw.ArrayObj)
	if arr.Get(0).(raw.RefObj).R != p2.Ref() || arr.Get(3).(raw.NumberObj).Float() != 40 {
		t.Fatalf("dest = %s", raw.Serialize(arr))
	}
	if err := Destinations(doc, map[string]Entry{"x": {Page: 5}}); err == nil {
		t.Fatal("expected error for out of range page")
	}
}
