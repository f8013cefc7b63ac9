package fonts

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/ir/raw"
)

// ShapedGlyph is one shaped glyph, advances in 1/1000 em.
type ShapedGlyph struct {
	ID       int
	Cluster  int
	XAdvance float64
}

// trueTypeProgram embeds a TrueType font as a Type0/Identity-H composite
// font. Text is shaped with HarfBuzz so ligatures and marks map to the glyph
// IDs actually drawn; widths and ToUnicode entries are written for the used
// glyphs when the document is finalized.
type trueTypeProgram struct {
	face     *gofont.Face
	baseName string
	widths   map[int]int
	asc      float64
	desc     float64
	used     map[int][]rune
	shaped   map[string][]ShapedGlyph
}

func parseTrueType(name string, data []byte) (*trueTypeProgram, *sfnt.Font, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("truetype font data is empty")
	}
	font, err := sfnt.Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parse truetype: %w", err)
	}
	unitsPerEm := font.UnitsPerEm()
	if unitsPerEm == 0 {
		return nil, nil, fmt.Errorf("invalid unitsPerEm")
	}
	face, err := gofont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("parse truetype for shaping: %w", err)
	}
	buf := &sfnt.Buffer{}
	ppem := fixed.Int26_6(unitsPerEm << 6)

	baseName := strings.TrimSpace(name)
	if ps, _ := font.Name(buf, sfnt.NameIDPostScript); len(ps) > 0 {
		baseName = ps
	}
	baseName = strings.Map(func(r rune) rune {
		if r <= ' ' || r > '~' || strings.ContainsRune("()<>[]{}/%#", r) {
			return -1
		}
		return r
	}, baseName)
	if baseName == "" {
		baseName = "CustomTT"
	}

	metrics, _ := font.Metrics(buf, ppem, xfont.HintingNone)
	return &trueTypeProgram{
		face:     face,
		baseName: baseName,
		widths:   glyphWidths(font, buf, unitsPerEm, ppem),
		asc:      scaleFixed(metrics.Ascent, unitsPerEm),
		desc:     -scaleFixed(metrics.Descent, unitsPerEm),
		used:     make(map[int][]rune),
		shaped:   make(map[string][]ShapedGlyph),
	}, font, nil
}

func (p *trueTypeProgram) shape(text string) []ShapedGlyph {
	if g, ok := p.shaped[text]; ok {
		return g
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	script := detectScript(runes)
	out := (&shaping.HarfbuzzShaper{}).Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: scriptDirection(script),
		Face:      p.face,
		Size:      fixed.Int26_6(1000 * 64),
		Script:    script,
		Language:  language.DefaultLanguage(),
	})
	glyphs := make([]ShapedGlyph, 0, len(out.Glyphs))
	for _, g := range out.Glyphs {
		glyphs = append(glyphs, ShapedGlyph{
			ID:       int(g.GlyphID),
			Cluster:  g.ClusterIndex,
			XAdvance: float64(g.XAdvance) / 64.0,
		})
	}
	p.shaped[text] = glyphs
	return glyphs
}

func (p *trueTypeProgram) encode(text string) []byte {
	runes := []rune(text)
	glyphs := p.shape(text)
	out := make([]byte, 0, 2*len(glyphs))
	for i, g := range glyphs {
		out = append(out, byte(g.ID>>8), byte(g.ID))
		if _, ok := p.used[g.ID]; ok {
			continue
		}
		end := len(runes)
		for _, next := range glyphs[i+1:] {
			if next.Cluster > g.Cluster {
				end = next.Cluster
				break
			}
		}
		if g.Cluster < end {
			p.used[g.ID] = runes[g.Cluster:end]
		} else {
			p.used[g.ID] = nil
		}
	}
	return out
}

func (p *trueTypeProgram) advance(text string) float64 {
	total := 0.0
	for _, g := range p.shape(text) {
		total += g.XAdvance
	}
	return total
}

func (p *trueTypeProgram) ascent() float64  { return p.asc }
func (p *trueTypeProgram) descent() float64 { return p.desc }

// embedTrueType registers the font program, descriptor and Type0 dictionary.
// The descendant CIDFont and ToUnicode CMap are filled in at finalize time.
func embedTrueType(doc *builder.Document, prog *trueTypeProgram, font *sfnt.Font, data []byte) (raw.ObjectRef, error) {
	compressed, err := builder.Deflate(data)
	if err != nil {
		return raw.ObjectRef{}, err
	}
	fileRef := doc.AddObject(raw.NewStream(raw.DictOf(
		"Length1", raw.Int(int64(len(data))),
		"Filter", raw.Name("FlateDecode"),
	), compressed))

	buf := &sfnt.Buffer{}
	unitsPerEm := font.UnitsPerEm()
	ppem := fixed.Int26_6(unitsPerEm << 6)
	bounds, _ := font.Bounds(buf, ppem, xfont.HintingNone)
	italic := 0.0
	if post := font.PostTable(); post != nil {
		italic = post.ItalicAngle
	}
	descRef := doc.AddObject(raw.DictOf(
		"Type", raw.Name("FontDescriptor"),
		"FontName", raw.Name(prog.baseName),
		"Flags", raw.Int(32),
		"ItalicAngle", raw.Real(italic),
		"Ascent", raw.Real(prog.asc),
		"Descent", raw.Real(prog.desc),
		"CapHeight", raw.Real(prog.asc),
		"StemV", raw.Int(80),
		"FontBBox", raw.Reals(
			scaleFixed(bounds.Min.X, unitsPerEm),
			-scaleFixed(bounds.Max.Y, unitsPerEm),
			scaleFixed(bounds.Max.X, unitsPerEm),
			-scaleFixed(bounds.Min.Y, unitsPerEm),
		),
		"FontFile2", raw.Ref(fileRef),
	))
	cidRef := doc.Reserve()
	toUnicodeRef := doc.Reserve()
	fontRef := doc.AddObject(raw.DictOf(
		"Type", raw.Name("Font"),
		"Subtype", raw.Name("Type0"),
		"BaseFont", raw.Name(prog.baseName),
		"Encoding", raw.Name("Identity-H"),
		"DescendantFonts", raw.NewArray(raw.Ref(cidRef)),
		"ToUnicode", raw.Ref(toUnicodeRef),
	))

	doc.OnFinalize(func() error {
		dw := prog.widths[0]
		if dw == 0 {
			dw = 1000
		}
		doc.SetObject(cidRef, raw.DictOf(
			"Type", raw.Name("Font"),
			"Subtype", raw.Name("CIDFontType2"),
			"BaseFont", raw.Name(prog.baseName),
			"CIDSystemInfo", raw.DictOf(
				"Registry", raw.Str("Adobe"),
				"Ordering", raw.Str("Identity"),
				"Supplement", raw.Int(0),
			),
			"FontDescriptor", raw.Ref(descRef),
			"DW", raw.Int(int64(dw)),
			"W", prog.widthArray(),
			"CIDToGIDMap", raw.Name("Identity"),
		))
		doc.SetObject(toUnicodeRef, raw.NewStream(raw.Dict(), prog.toUnicode()))
		return nil
	})
	return fontRef, nil
}

func (p *trueTypeProgram) usedGlyphs() []int {
	ids := make([]int, 0, len(p.used))
	for id := range p.used {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// widthArray writes the W entry as runs of consecutive glyph IDs.
func (p *trueTypeProgram) widthArray() *raw.ArrayObj {
	arr := raw.NewArray()
	ids := p.usedGlyphs()
	for i := 0; i < len(ids); {
		j := i
		run := raw.NewArray()
		for j < len(ids) && ids[j] == ids[i]+(j-i) {
			run.Append(raw.Int(int64(p.widths[ids[j]])))
			j++
		}
		arr.Append(raw.Int(int64(ids[i])))
		arr.Append(run)
		i = j
	}
	return arr
}

func (p *trueTypeProgram) toUnicode() []byte {
	var entries []string
	for _, id := range p.usedGlyphs() {
		runes := p.used[id]
		if len(runes) == 0 {
			continue
		}
		var dst strings.Builder
		for _, u := range utf16.Encode(runes) {
			fmt.Fprintf(&dst, "%04X", u)
		}
		entries = append(entries, fmt.Sprintf("<%04X> <%s>", id, dst.String()))
	}
	var b bytes.Buffer
	b.WriteString("/CIDInit /ProcSet findresource begin\n12 dict begin\nbegincmap\n")
	b.WriteString("/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def\n")
	b.WriteString("/CMapName /Adobe-Identity-UCS def\n/CMapType 2 def\n")
	b.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")
	for start := 0; start < len(entries); start += 100 {
		end := start + 100
		if end > len(entries) {
			end = len(entries)
		}
		fmt.Fprintf(&b, "%d beginbfchar\n", end-start)
		for _, e := range entries[start:end] {
			b.WriteString(e + "\n")
		}
		b.WriteString("endbfchar\n")
	}
	b.WriteString("endcmap\nCMapName currentdict /CMap defineresource pop\nend\nend\n")
	return b.Bytes()
}

func glyphWidths(font *sfnt.Font, buf *sfnt.Buffer, unitsPerEm sfnt.Units, ppem fixed.Int26_6) map[int]int {
	glyphs := font.NumGlyphs()
	widths := make(map[int]int, glyphs)
	for i := 0; i < glyphs; i++ {
		adv, err := font.GlyphAdvance(buf, sfnt.GlyphIndex(i), ppem, xfont.HintingNone)
		if err != nil {
			continue
		}
		widths[i] = int(math.Round(scaleFixed(adv, unitsPerEm)))
	}
	return widths
}

func scaleFixed(val fixed.Int26_6, unitsPerEm sfnt.Units) float64 {
	return float64(val) * 1000.0 / (64.0 * float64(unitsPerEm))
}

func scriptDirection(script language.Script) di.Direction {
	switch script {
	case language.Arabic, language.Hebrew, language.Syriac, language.Thaana, language.Nko:
		return di.DirectionRTL
	default:
		return di.DirectionLTR
	}
}

func detectScript(runes []rune) language.Script {
	counts := make(map[language.Script]int)
	maxCount := 0
	bestScript := language.Latin
	for _, r := range runes {
		script := scriptFromRune(r)
		if script == language.Unknown {
			continue
		}
		counts[script]++
		if counts[script] > maxCount {
			maxCount = counts[script]
			bestScript = script
		}
	}
	return bestScript
}

func scriptFromRune(r rune) language.Script {
	switch {
	case unicode.Is(unicode.Arabic, r):
		return language.Arabic
	case unicode.Is(unicode.Hebrew, r):
		return language.Hebrew
	case unicode.Is(unicode.Latin, r):
		return language.Latin
	case unicode.Is(unicode.Cyrillic, r):
		return language.Cyrillic
	case unicode.Is(unicode.Greek, r):
		return language.Greek
	case unicode.Is(unicode.Thai, r):
		return language.Thai
	case unicode.Is(unicode.Devanagari, r):
		return language.Devanagari
	case unicode.Is(unicode.Han, r):
		return language.Han
	case unicode.Is(unicode.Hiragana, r):
		return language.Hiragana
	case unicode.Is(unicode.Katakana, r):
		return language.Katakana
	case unicode.Is(unicode.Hangul, r):
		return language.Hangul
	}
	return language.Unknown
}
