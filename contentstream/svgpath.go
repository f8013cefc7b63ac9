package contentstream

import (
	"fmt"
	"strconv"
)

// ParseSVGPath parses SVG path data (M, L, H, V, C, S, Q, T and Z in both
// absolute and relative forms) into a Path. Coordinates are kept in the
// path's own space; quadratic segments are raised to cubics.
func ParseSVGPath(d string) (*Path, error) {
	toks, err := tokenizeSVG(d)
	if err != nil {
		return nil, err
	}
	p := &Path{}
	var (
		cx, cy, sx, sy       float64
		lastCtrlX, lastCtrlY float64
		lastCmd, cmd         byte
		i                    int
	)
	num := func() (float64, error) {
		if i >= len(toks) || toks[i].cmd != 0 {
			return 0, fmt.Errorf("svg path: command %q expects more numbers", cmd)
		}
		v := toks[i].num
		i++
		return v, nil
	}
	nums := func(n int) ([]float64, error) {
		out := make([]float64, n)
		for k := range out {
			v, err := num()
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}
	for i < len(toks) {
		if toks[i].cmd != 0 {
			cmd = toks[i].cmd
			i++
		} else if cmd == 0 {
			return nil, fmt.Errorf("svg path: data must start with a command")
		}
		rel := cmd >= 'a' && cmd <= 'z'
		ox, oy := 0.0, 0.0
		if rel {
			ox, oy = cx, cy
		}
		switch cmd {
		case 'M', 'm':
			v, err := nums(2)
			if err != nil {
				return nil, err
			}
			cx, cy = ox+v[0], oy+v[1]
			sx, sy = cx, cy
			p.MoveTo(cx, cy)
			// Further coordinate pairs are implicit line-tos.
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
			lastCmd = 'M'
			continue
		case 'L', 'l':
			v, err := nums(2)
			if err != nil {
				return nil, err
			}
			cx, cy = ox+v[0], oy+v[1]
			p.LineTo(cx, cy)
		case 'H', 'h':
			v, err := num()
			if err != nil {
				return nil, err
			}
			cx = ox + v
			p.LineTo(cx, cy)
		case 'V', 'v':
			v, err := num()
			if err != nil {
				return nil, err
			}
			cy = oy + v
			p.LineTo(cx, cy)
		case 'C', 'c':
			v, err := nums(6)
			if err != nil {
				return nil, err
			}
			p.CurveTo(ox+v[0], oy+v[1], ox+v[2], oy+v[3], ox+v[4], oy+v[5])
			lastCtrlX, lastCtrlY = ox+v[2], oy+v[3]
			cx, cy = ox+v[4], oy+v[5]
		case 'S', 's':
			v, err := nums(4)
			if err != nil {
				return nil, err
			}
			c1x, c1y := cx, cy
			if lastCmd == 'C' || lastCmd == 'S' {
				c1x, c1y = 2*cx-lastCtrlX, 2*cy-lastCtrlY
			}
			p.CurveTo(c1x, c1y, ox+v[0], oy+v[1], ox+v[2], oy+v[3])
			lastCtrlX, lastCtrlY = ox+v[0], oy+v[1]
			cx, cy = ox+v[2], oy+v[3]
		case 'Q', 'q':
			v, err := nums(4)
			if err != nil {
				return nil, err
			}
			qx, qy := ox+v[0], oy+v[1]
			ex, ey := ox+v[2], oy+v[3]
			quadTo(p, cx, cy, qx, qy, ex, ey)
			lastCtrlX, lastCtrlY = qx, qy
			cx, cy = ex, ey
		case 'T', 't':
			v, err := nums(2)
			if err != nil {
				return nil, err
			}
			qx, qy := cx, cy
			if lastCmd == 'Q' || lastCmd == 'T' {
				qx, qy = 2*cx-lastCtrlX, 2*cy-lastCtrlY
			}
			ex, ey := ox+v[0], oy+v[1]
			quadTo(p, cx, cy, qx, qy, ex, ey)
			lastCtrlX, lastCtrlY = qx, qy
			cx, cy = ex, ey
		case 'Z', 'z':
			p.Close()
			cx, cy = sx, sy
			lastCmd = 'Z'
			cmd = 0
			continue
		default:
			return nil, fmt.Errorf("svg path: unsupported command %q", cmd)
		}
		lastCmd = upper(cmd)
	}
	return p, nil
}

func quadTo(p *Path, x0, y0, qx, qy, x, y float64) {
	p.CurveTo(
		x0+2.0/3.0*(qx-x0), y0+2.0/3.0*(qy-y0),
		x+2.0/3.0*(qx-x), y+2.0/3.0*(qy-y),
		x, y,
	)
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

type svgToken struct {
	cmd byte
	num float64
}

func tokenizeSVG(d string) ([]svgToken, error) {
	var toks []svgToken
	for i := 0; i < len(d); {
		c := d[i]
		switch {
		case c == ' ' || c == ',' || c == '\t' || c == '\n' || c == '\r':
			i++
		case (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z'):
			if c == 'e' || c == 'E' {
				return nil, fmt.Errorf("svg path: unexpected exponent at offset %d", i)
			}
			toks = append(toks, svgToken{cmd: c})
			i++
		default:
			j := scanNumber(d, i)
			if j == i {
				return nil, fmt.Errorf("svg path: unexpected %q at offset %d", c, i)
			}
			v, err := strconv.ParseFloat(d[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("svg path: bad number %q: %w", d[i:j], err)
			}
			toks = append(toks, svgToken{num: v})
			i = j
		}
	}
	return toks, nil
}

// scanNumber returns the end offset of the number starting at i. SVG allows
// "10-5" and "1.5.5" as two numbers each.
func scanNumber(d string, i int) int {
	j := i
	if j < len(d) && (d[j] == '+' || d[j] == '-') {
		j++
	}
	digits, dot := false, false
	for j < len(d) {
		c := d[j]
		if c >= '0' && c <= '9' {
			digits = true
			j++
			continue
		}
		if c == '.' && !dot {
			dot = true
			j++
			continue
		}
		break
	}
	if !digits {
		return i
	}
	if j < len(d) && (d[j] == 'e' || d[j] == 'E') {
		k := j + 1
		if k < len(d) && (d[k] == '+' || d[k] == '-') {
			k++
		}
		if k < len(d) && d[k] >= '0' && d[k] <= '9' {
			for k < len(d) && d[k] >= '0' && d[k] <= '9' {
				k++
			}
			j = k
		}
	}
	return j
}
