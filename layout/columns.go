package layout

import "fmt"

// ColumnLayout is the horizontal geometry of the columns of one page.
// Offsets are relative to the left edge of the content area.
type ColumnLayout struct {
	Widths  []float64
	Offsets []float64
	Gap     float64
}

// Count is the number of columns.
func (c ColumnLayout) Count() int { return len(c.Widths) }

// ComputeColumnLayout divides contentWidth into columns separated by gap.
// Without ratios the columns are equal; with ratios (one positive weight
// per column) the width left after the gaps is shared proportionally. A
// ratio count that differs from the column count is an error.
func ComputeColumnLayout(contentWidth float64, columns int, gap float64, ratios []float64) (ColumnLayout, error) {
	if columns < 1 {
		columns = 1
	}
	if gap < 0 {
		gap = 0
	}
	if len(ratios) > 0 && len(ratios) != columns {
		return ColumnLayout{}, fmt.Errorf("layout: %d column ratios for %d columns", len(ratios), columns)
	}
	usable := contentWidth - gap*float64(columns-1)
	if usable <= 0 {
		return ColumnLayout{}, fmt.Errorf("layout: %d columns with gap %.2f leave no room in %.2fpt", columns, gap, contentWidth)
	}
	weights := make([]float64, columns)
	total := 0.0
	for i := range weights {
		weights[i] = 1
		if ratios != nil {
			if ratios[i] <= 0 {
				return ColumnLayout{}, fmt.Errorf("layout: column ratio %d must be positive, got %v", i, ratios[i])
			}
			weights[i] = ratios[i]
		}
		total += weights[i]
	}
	out := ColumnLayout{Widths: make([]float64, columns), Offsets: make([]float64, columns), Gap: gap}
	x := 0.0
	for i, w := range weights {
		out.Widths[i] = usable * w / total
		out.Offsets[i] = x
		x += out.Widths[i] + gap
	}
	return out, nil
}
