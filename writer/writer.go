// Package writer serializes a builder.Document into PDF bytes.
//
// Output is deterministic: objects are written in object-number order,
// dictionary keys are sorted, no timestamps are emitted and the file
// identifier is a BLAKE2b digest of the serialized body.
package writer

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"

	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/contentstream"
	"github.com/wudi/reportkit/ir/raw"
)

type PDFVersion string

const (
	PDF17 PDFVersion = "1.7"
)

type Config struct {
	Version PDFVersion
	// Compress Flate-encodes page content streams.
	Compress bool
}

// DefaultConfig is used by Bytes.
var DefaultConfig = Config{Version: PDF17, Compress: true}

// Write finalizes doc and writes it to out. The document's own object graph
// is left untouched, so a document may be written more than once.
func Write(ctx context.Context, doc *builder.Document, out io.Writer, cfg Config) error {
	if err := doc.Finalize(); err != nil {
		return fmt.Errorf("finalize document: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = PDF17
	}
	reg := doc.Registry().Clone()

	kids := raw.NewArray()
	for i, page := range doc.Pages() {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := contentStream(page, cfg)
		if err != nil {
			return fmt.Errorf("page %d content: %w", i+1, err)
		}
		contentRef := reg.Add(content)
		reg.Set(page.Ref(), raw.DictOf(
			"Type", raw.Name("Page"),
			"Parent", raw.Ref(doc.PagesRef()),
			"MediaBox", raw.Reals(0, 0, page.Width, page.Height),
			"Resources", page.Resources(),
			"Contents", raw.Ref(contentRef),
		))
		kids.Append(raw.Ref(page.Ref()))
	}
	reg.Set(doc.PagesRef(), raw.DictOf(
		"Type", raw.Name("Pages"),
		"Kids", kids,
		"Count", raw.Int(int64(len(doc.Pages()))),
	))
	var infoRef raw.ObjectRef
	if info := doc.Info(); info != nil {
		infoRef = reg.Add(info)
	}

	var body bytes.Buffer
	body.WriteString("%PDF-" + string(cfg.Version) + "\n%\xE2\xE3\xCF\xD3\n")
	offsets := make(map[int]int, reg.Len())
	for _, ref := range reg.Refs() {
		obj, _ := reg.Lookup(ref)
		offsets[ref.Num] = body.Len()
		fmt.Fprintf(&body, "%d %d obj\n", ref.Num, ref.Gen)
		raw.Append(&body, obj)
		body.WriteString("\nendobj\n")
	}

	sum := blake2b.Sum256(body.Bytes())
	id := raw.HexStr(sum[:16])

	xrefOffset := body.Len()
	size := reg.Size()
	fmt.Fprintf(&body, "xref\n0 %d\n", size)
	body.WriteString("0000000000 65535 f \n")
	for i := 1; i < size; i++ {
		if off, ok := offsets[i]; ok {
			fmt.Fprintf(&body, "%010d 00000 n \n", off)
		} else {
			body.WriteString("0000000000 65535 f \n")
		}
	}
	trailer := raw.DictOf(
		"Size", raw.Int(int64(size)),
		"Root", raw.Ref(doc.CatalogRef()),
		"ID", raw.NewArray(id, id),
	)
	if !infoRef.IsZero() {
		trailer.Set("Info", raw.Ref(infoRef))
	}
	body.WriteString("trailer\n")
	raw.Append(&body, trailer)
	fmt.Fprintf(&body, "\nstartxref\n%d\n%%EOF\n", xrefOffset)

	_, err := out.Write(body.Bytes())
	return err
}

// Bytes writes doc with DefaultConfig and returns the file contents.
func Bytes(ctx context.Context, doc *builder.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(ctx, doc, &buf, DefaultConfig); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func contentStream(page *builder.Page, cfg Config) (*raw.StreamObj, error) {
	data := contentstream.Encode(page.Operations())
	dict := raw.Dict()
	if cfg.Compress {
		compressed, err := builder.Deflate(data)
		if err != nil {
			return nil, err
		}
		data = compressed
		dict.Set("Filter", raw.Name("FlateDecode"))
	}
	return raw.NewStream(dict, data), nil
}

// FileID returns the hex file identifier of serialized PDF bytes, as written
// in the trailer.
func FileID(pdf []byte) string {
	i := bytes.LastIndex(pdf, []byte("/ID [<"))
	if i < 0 {
		return ""
	}
	rest := pdf[i+len("/ID [<"):]
	j := bytes.IndexByte(rest, '>')
	if j < 0 {
		return ""
	}
	if _, err := hex.DecodeString(string(rest[:j])); err != nil {
		return ""
	}
	return string(rest[:j])
}
