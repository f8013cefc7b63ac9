package writer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wudi/reportkit/builder"
)

func sampleDoc() *builder.Document {
	doc := builder.NewDocument()
	doc.SetInfo("Title", "Quarterly")
	p := doc.NewPage(200, 300)
	p.DrawRectangle(10, 10, 50, 20, builder.RectOptions{Fill: true, FillColor: builder.Color{R: 1, A: 1}})
	doc.NewPage(200, 300)
	return doc
}

func TestWriteStructure(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(context.Background(), sampleDoc(), &buf, Config{Compress: false}); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"%PDF-1.7\n",
		"1 0 obj\n<</Pages 2 0 R/Type /Catalog>>\nendobj\n",
		"/Count 2/Kids [3 0 R 4 0 R]/Type /Pages",
		"/MediaBox [0 0 200 300]",
		"q\n1 0 0 rg\n10 10 50 20 re\nf\nQ\n",
		"/Title (Quarterly)",
		"/Info 7 0 R",
		"/Root 1 0 R",
		"%EOF\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q\n%s", want, out)
		}
	}
	if FileID(buf.Bytes()) == "" {
		t.Fatalf("file identifier missing")
	}
}

func TestWriteIsDeterministic(t *testing.T) {
	a, err := Bytes(context.Background(), sampleDoc())
	if err != nil {
		t.Fatalf("first write: %v", err)
	}
	b, err := Bytes(context.Background(), sampleDoc())
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("identical documents produced different bytes")
	}
}

func TestWriteTwiceLeavesDocumentReusable(t *testing.T) {
	doc := sampleDoc()
	a, _ := Bytes(context.Background(), doc)
	b, _ := Bytes(context.Background(), doc)
	if !bytes.Equal(a, b) {
		t.Fatalf("rewriting the same document changed the output")
	}
}

func TestWriteHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	err := Write(ctx, sampleDoc(), &buf, DefaultConfig)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("no bytes may be written after cancellation")
	}
}

func TestFinalizerErrorAborts(t *testing.T) {
	doc := sampleDoc()
	boom := errors.New("boom")
	doc.OnFinalize(func() error { return boom })
	if _, err := Bytes(context.Background(), doc); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}
