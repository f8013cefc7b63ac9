// Package template is the document model a report is rendered from.
//
// A Template is decoded once from JSON and then treated as read-only by every
// other package: expansion, layout and rendering never modify it.
//
// Example JSON:
//
//	{
//	  "page": {"size": "A4", "margins": 36},
//	  "defaultStyle": {"fontFamily": "Helvetica", "fontSize": 10},
//	  "sections": [{
//	    "bands": [
//	      {"role": "title", "height": 40, "elements": [
//	        {"type": "text", "x": 0, "y": 0, "width": 300, "height": 20,
//	         "properties": {"text": "Orders for {{customer.name}}"}}
//	      ]},
//	      {"role": "detail", "dataSource": "orders", "itemName": "order", "height": 16,
//	       "elements": [{"type": "text", "width": 200, "height": 14,
//	                     "properties": {"text": "{{order.id}}"}}]}
//	    ]
//	  }]
//	}
package template

// Template is a versioned document definition.
type Template struct {
	Version      string            `json:"version,omitempty"`
	Page         PageSetup         `json:"page"`
	DefaultStyle Style             `json:"defaultStyle"`
	Styles       map[string]Style  `json:"styles,omitempty"`
	Fonts        []FontDeclaration `json:"fonts,omitempty"`
	Sections     []Section         `json:"sections"`
	Info         DocumentInfo      `json:"info"`
}

// PageSetup is the page geometry in points. Size and Orientation are
// resolved into Width and Height when the template is loaded.
type PageSetup struct {
	Size        string   `json:"size,omitempty"`        // A3, A4, A5, Letter, Legal
	Orientation string   `json:"orientation,omitempty"` // portrait, landscape
	Width       float64  `json:"width,omitempty"`
	Height      float64  `json:"height,omitempty"`
	Margins     *Margins `json:"margins,omitempty"`
}

// Margins are page margins in points.
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// ColumnFill selects how content bands are distributed over columns.
type ColumnFill string

const (
	ColumnFillFill       ColumnFill = "fill"
	ColumnFillRoundRobin ColumnFill = "roundRobin"
)

// Section is a page-geometry scope with its own bands and columns.
type Section struct {
	ID           string     `json:"id,omitempty"`
	Page         *PageSetup `json:"page,omitempty"`
	Bands        []Band     `json:"bands"`
	Columns      int        `json:"columns,omitempty"`
	ColumnGap    float64    `json:"columnGap,omitempty"`
	ColumnRatios []float64  `json:"columnRatios,omitempty"`
	ColumnFill   ColumnFill `json:"columnFill,omitempty"`
	Bookmark     string     `json:"bookmark,omitempty"`
}

// Role is the semantic role of a band.
type Role string

const (
	RoleTitle          Role = "title"
	RolePageHeader     Role = "pageHeader"
	RolePageFooter     Role = "pageFooter"
	RoleLastPageFooter Role = "lastPageFooter"
	RoleColumnHeader   Role = "columnHeader"
	RoleDetail         Role = "detail"
	RoleColumnFooter   Role = "columnFooter"
	RoleSummary        Role = "summary"
	RoleBody           Role = "body"
	RoleBackground     Role = "background"
	RoleNoData         Role = "noData"
	RoleGroupHeader    Role = "groupHeader"
	RoleGroupFooter    Role = "groupFooter"
)

// IsStructural reports whether bands of this role are placed per page or
// column rather than in content order.
func (r Role) IsStructural() bool {
	switch r {
	case RolePageHeader, RolePageFooter, RoleLastPageFooter, RoleColumnHeader, RoleColumnFooter, RoleBackground:
		return true
	}
	return false
}

// IsContent reports whether bands of this role take part in content order.
func (r Role) IsContent() bool {
	switch r {
	case RoleTitle, RoleDetail, RoleGroupHeader, RoleGroupFooter, RoleNoData, RoleBody, RoleSummary:
		return true
	}
	return false
}

// Band is a horizontal strip of elements.
type Band struct {
	ID         string    `json:"id,omitempty"`
	Role       Role      `json:"role"`
	Height     float64   `json:"height"`
	AutoHeight bool      `json:"autoHeight,omitempty"`
	Condition  string    `json:"condition,omitempty"`
	DataSource string    `json:"dataSource,omitempty"`
	ItemName   string    `json:"itemName,omitempty"`
	GroupBy    string    `json:"groupBy,omitempty"`
	Bookmark   string    `json:"bookmark,omitempty"`
	Elements   []Element `json:"elements,omitempty"`
}

// Element is a positioned node rendered by the plugin registered for Type.
// X and Y are relative to the band (or to the parent container).
type Element struct {
	ID             string         `json:"id,omitempty"`
	Type           string         `json:"type"`
	X              float64        `json:"x"`
	Y              float64        `json:"y"`
	Width          float64        `json:"width"`
	Height         float64        `json:"height"`
	AutoHeight     bool           `json:"autoHeight,omitempty"`
	Properties     map[string]any `json:"properties,omitempty"`
	Style          string         `json:"style,omitempty"`
	StyleOverrides *Style         `json:"styleOverrides,omitempty"`
	Condition      string         `json:"condition,omitempty"`
	Children       []Element      `json:"children,omitempty"`
	Anchor         string         `json:"anchor,omitempty"`
}

// Style is a sparse set of visual attributes. A nil field is unset and
// inherits from the layer below it.
type Style struct {
	FontFamily    *string     `json:"fontFamily,omitempty"`
	FontSize      *float64    `json:"fontSize,omitempty"`
	FontWeight    *FontWeight `json:"fontWeight,omitempty"`
	FontStyle     *string     `json:"fontStyle,omitempty"` // normal, italic
	Color         *string     `json:"color,omitempty"`
	Align         *string     `json:"align,omitempty"`         // left, center, right, justify
	VerticalAlign *string     `json:"verticalAlign,omitempty"` // top, middle, bottom
	LineHeight    *float64    `json:"lineHeight,omitempty"`
	BorderColor   *string     `json:"borderColor,omitempty"`
	BorderWidth   *float64    `json:"borderWidth,omitempty"`
	Padding       any         `json:"padding,omitempty"`
	Opacity       *float64    `json:"opacity,omitempty"`
	Widows        *int        `json:"widows,omitempty"`
	Orphans       *int        `json:"orphans,omitempty"`
	Background    *Background `json:"background,omitempty"`
}

// Background is a solid color or a gradient. In JSON a plain string is a
// color.
type Background struct {
	Color    string    `json:"color,omitempty"`
	Gradient *Gradient `json:"gradient,omitempty"`
}

// Gradient describes a linear or radial color ramp. CX, CY and Radius are
// fractions of the element box and default to 0.5.
type Gradient struct {
	Type   string         `json:"type"` // linear, radial
	Angle  float64        `json:"angle,omitempty"`
	Stops  []GradientStop `json:"stops"`
	CX     *float64       `json:"cx,omitempty"`
	CY     *float64       `json:"cy,omitempty"`
	Radius *float64       `json:"radius,omitempty"`
}

type GradientStop struct {
	Offset float64 `json:"offset"`
	Color  string  `json:"color"`
}

// FontDeclaration binds a (family, weight, style) triple to font bytes. Src
// is a file path, a data: URI or an http(s) URL; it may be empty only for
// the standard families Helvetica, Times and Courier.
type FontDeclaration struct {
	Family string     `json:"family"`
	Weight FontWeight `json:"weight,omitempty"`
	Style  string     `json:"style,omitempty"`
	Src    string     `json:"src,omitempty"`
}

// DocumentInfo fills the PDF information dictionary.
type DocumentInfo struct {
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Keywords string `json:"keywords,omitempty"`
	Creator  string `json:"creator,omitempty"`
}

// Ptr returns a pointer to v, for building sparse styles in code.
func Ptr[T any](v T) *T { return &v }
