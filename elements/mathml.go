package elements

import (
	"math"
	"strings"

	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/fonts"
	"golang.org/x/net/html"
)

// mathBox is a laid-out MathML node. x and y place the box origin (its
// baseline start) relative to the parent's, with y growing upwards.
type mathBox struct {
	width    float64
	height   float64
	ascent   float64
	descent  float64
	children []*mathBox
	tag      string
	x, y     float64
	text     string
	face     *fonts.Face
	fontSize float64
}

const (
	mathScript = 0.7
	mathRule   = 0.5
)

// layoutMath measures a MathML subtree.
func layoutMath(n *html.Node, face *fonts.Face, size float64) *mathBox {
	box := &mathBox{tag: n.Data, face: face, fontSize: size}

	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text == "" {
			return nil
		}
		box.tag = ""
		box.text = text
		box.width = face.Measure(text, size)
		box.ascent = face.Ascent(size)
		box.descent = math.Abs(face.Descent(size))
		box.height = box.ascent + box.descent
		return box
	}
	if n.Type != html.ElementNode || n.Data == "annotation" || n.Data == "annotation-xml" {
		return nil
	}

	var children []*mathBox
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		fs := size
		if scripted(n.Data) && len(children) > 0 {
			fs = size * mathScript
		}
		if cb := layoutMath(c, face, fs); cb != nil {
			children = append(children, cb)
		}
	}
	box.children = children

	switch n.Data {
	case "mi", "mn", "mo", "mtext":
		if len(children) > 0 {
			row(box)
		}

	case "mfrac":
		if len(children) < 2 {
			row(box)
			break
		}
		num, den := children[0], children[1]
		box.width = max(num.width, den.width) + 4
		num.x = (box.width - num.width) / 2
		den.x = (box.width - den.width) / 2
		axis := size * 0.25
		num.y = axis + num.descent + mathRule + 2
		den.y = axis - (den.ascent + mathRule + 2)
		box.ascent = num.y + num.ascent
		box.descent = max(-den.y+den.descent, 0)
		box.height = box.ascent + box.descent

	case "msup":
		if len(children) < 2 {
			row(box)
			break
		}
		base, sup := children[0], children[1]
		box.width = base.width + sup.width
		sup.x = base.width
		sup.y = base.ascent * 0.5
		box.ascent = max(base.ascent, sup.y+sup.ascent)
		box.descent = base.descent
		box.height = box.ascent + box.descent

	case "msub":
		if len(children) < 2 {
			row(box)
			break
		}
		base, sub := children[0], children[1]
		box.width = base.width + sub.width
		sub.x = base.width
		sub.y = -base.descent*0.5 - sub.ascent*0.3
		box.ascent = base.ascent
		box.descent = max(base.descent, -sub.y+sub.descent)
		box.height = box.ascent + box.descent

	case "msubsup":
		if len(children) < 3 {
			row(box)
			break
		}
		base, sub, sup := children[0], children[1], children[2]
		box.width = base.width + max(sub.width, sup.width)
		sub.x, sup.x = base.width, base.width
		sub.y = -base.descent*0.5 - sub.ascent*0.3
		sup.y = base.ascent * 0.5
		box.ascent = max(base.ascent, sup.y+sup.ascent)
		box.descent = max(base.descent, -sub.y+sub.descent)
		box.height = box.ascent + box.descent

	case "msqrt":
		row(box)
		for _, c := range children {
			c.x += 5
		}
		box.width += 5
		box.ascent += 2
		box.height = box.ascent + box.descent

	default:
		row(box)
	}
	return box
}

func scripted(tag string) bool {
	return tag == "msup" || tag == "msub" || tag == "msubsup"
}

// row lays children out left to right on a shared baseline.
func row(box *mathBox) {
	var w, asc, desc float64
	for _, c := range box.children {
		c.x = w
		c.y = 0
		w += c.width
		asc = max(asc, c.ascent)
		desc = max(desc, c.descent)
	}
	box.width = w
	box.ascent = asc
	box.descent = desc
	box.height = asc + desc
}

// drawMath paints box with its baseline start at (x, y) in PDF space.
func drawMath(page *builder.Page, box *mathBox, x, y float64, color builder.Color) {
	if box == nil {
		return
	}
	if box.text != "" {
		page.DrawText(box.text, x, y, builder.TextOptions{Font: box.face, Size: box.fontSize, Color: color})
	}
	rule := builder.LineOptions{LineWidth: mathRule, StrokeColor: color}
	switch box.tag {
	case "mfrac":
		if len(box.children) >= 2 {
			lineY := y + box.fontSize*0.25
			page.DrawLine(x+1, lineY, x+box.width-1, lineY, rule)
		}
	case "msqrt":
		top := y + box.ascent - 1
		page.DrawLine(x+2, top, x+box.width, top, rule)
		page.DrawLine(x, y+box.ascent/2, x+2, y-box.descent, rule)
		page.DrawLine(x+2, y-box.descent, x+5, top, rule)
	}
	for _, c := range box.children {
		drawMath(page, c, x+c.x, y+c.y, color)
	}
}
