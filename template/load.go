package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/wudi/reportkit/errs"
)

// Named page sizes in points, portrait.
var pageSizes = map[string][2]float64{
	"a3":     {841.89, 1190.55},
	"a4":     {595.28, 841.89},
	"a5":     {419.53, 595.28},
	"letter": {612, 792},
	"legal":  {612, 1008},
}

// DefaultMargin applies when a template declares no margins.
const DefaultMargin = 36

// Load decodes a template from JSON and resolves page sizes.
func Load(r io.Reader) (*Template, error) {
	var t Template
	dec := json.NewDecoder(r)
	if err := dec.Decode(&t); err != nil {
		return nil, errs.Config("", errs.ErrInvalidTemplate, "decode: %v", err)
	}
	if err := t.normalize(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadFile reads and decodes the template at path.
func LoadFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return Load(bytes.NewReader(data))
}

func (t *Template) normalize() error {
	page, err := resolvePage(t.Page, PageSetup{Size: "A4"}, "page")
	if err != nil {
		return err
	}
	t.Page = page
	for i := range t.Sections {
		s := &t.Sections[i]
		if s.Page != nil {
			p, err := resolvePage(*s.Page, t.Page, fmt.Sprintf("sections[%d].page", i))
			if err != nil {
				return err
			}
			s.Page = &p
		}
		for j, b := range s.Bands {
			if !b.Role.IsContent() && !b.Role.IsStructural() {
				return errs.Config(fmt.Sprintf("sections[%d].bands[%d].role", i, j), errs.ErrInvalidTemplate, "unknown role %q", b.Role)
			}
		}
		switch s.ColumnFill {
		case "", ColumnFillFill, ColumnFillRoundRobin:
		default:
			return errs.Config(fmt.Sprintf("sections[%d].columnFill", i), errs.ErrInvalidTemplate, "unknown fill mode %q", s.ColumnFill)
		}
	}
	return nil
}

// resolvePage fills Width, Height and Margins from the named size,
// orientation and the fallback page.
func resolvePage(p, fallback PageSetup, path string) (PageSetup, error) {
	if p.Width == 0 || p.Height == 0 {
		switch {
		case p.Size != "":
			dims, ok := pageSizes[strings.ToLower(p.Size)]
			if !ok {
				return p, errs.Config(path+".size", errs.ErrInvalidTemplate, "unknown page size %q", p.Size)
			}
			p.Width, p.Height = dims[0], dims[1]
		case fallback.Width > 0:
			p.Width, p.Height = fallback.Width, fallback.Height
		default:
			dims := pageSizes[strings.ToLower(fallback.Size)]
			p.Width, p.Height = dims[0], dims[1]
		}
	}
	switch strings.ToLower(p.Orientation) {
	case "", "portrait":
		if p.Orientation != "" && p.Width > p.Height {
			p.Width, p.Height = p.Height, p.Width
		}
	case "landscape":
		if p.Height > p.Width {
			p.Width, p.Height = p.Height, p.Width
		}
	default:
		return p, errs.Config(path+".orientation", errs.ErrInvalidTemplate, "unknown orientation %q", p.Orientation)
	}
	if p.Margins == nil {
		if fallback.Margins != nil {
			m := *fallback.Margins
			p.Margins = &m
		} else {
			p.Margins = &Margins{Top: DefaultMargin, Right: DefaultMargin, Bottom: DefaultMargin, Left: DefaultMargin}
		}
	}
	return p, nil
}

// PageFor returns the effective page setup of a section.
func (t *Template) PageFor(s *Section) PageSetup {
	if s != nil && s.Page != nil {
		return *s.Page
	}
	return t.Page
}

// Resolve returns p with its size, orientation and margins filled in from
// fallback, and from A4 with default margins when fallback is empty too.
func (p PageSetup) Resolve(fallback PageSetup) (PageSetup, error) {
	if fallback.Width == 0 && fallback.Size == "" {
		fallback.Size = "A4"
	}
	return resolvePage(p, fallback, "page")
}

// UnmarshalJSON accepts a single number, a CSS-like array or an object.
func (m *Margins) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*m = Margins{Top: n, Right: n, Bottom: n, Left: n}
		return nil
	}
	var arr []float64
	if err := json.Unmarshal(data, &arr); err == nil {
		switch len(arr) {
		case 1:
			*m = Margins{arr[0], arr[0], arr[0], arr[0]}
		case 2:
			*m = Margins{arr[0], arr[1], arr[0], arr[1]}
		case 3:
			*m = Margins{arr[0], arr[1], arr[2], arr[1]}
		case 4:
			*m = Margins{arr[0], arr[1], arr[2], arr[3]}
		default:
			return fmt.Errorf("margins: expected 1 to 4 values, got %d", len(arr))
		}
		return nil
	}
	type plain Margins
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("margins: %w", err)
	}
	*m = Margins(p)
	return nil
}

// FontWeight is a numeric CSS weight. JSON may use a number, a numeric
// string, "normal" or "bold".
type FontWeight int

const (
	WeightNormal FontWeight = 400
	WeightBold   FontWeight = 700
)

// IsBold reports whether the weight falls in the bold class.
func (w FontWeight) IsBold() bool { return w > 500 }

func (w *FontWeight) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*w = FontWeight(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("fontWeight: %w", err)
	}
	parsed, err := ParseWeight(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// ParseWeight converts "bold", "normal" or a number string.
func ParseWeight(s string) (FontWeight, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "regular":
		return WeightNormal, nil
	case "bold":
		return WeightBold, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("fontWeight: unrecognized value %q", s)
	}
	return FontWeight(n), nil
}

// UnmarshalJSON accepts a color string or an object.
func (b *Background) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = Background{Color: s}
		return nil
	}
	type plain Background
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("background: %w", err)
	}
	*b = Background(p)
	return nil
}
