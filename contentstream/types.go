package contentstream

import "github.com/wudi/reportkit/ir/raw"

// Operation is one content-stream operator with its operands.
type Operation struct {
	Operator string
	Operands []raw.Object
}

// Op builds an operation from numeric operands.
func Op(operator string, nums ...float64) Operation {
	ops := make([]raw.Object, 0, len(nums))
	for _, n := range nums {
		ops = append(ops, raw.Real(n))
	}
	return Operation{Operator: operator, Operands: ops}
}

// NameOp builds an operation whose only operand is a name, such as "/GS1 gs".
func NameOp(operator, name string) Operation {
	return Operation{Operator: operator, Operands: []raw.Object{raw.Name(name)}}
}

// LineCap represents the line cap style (J operator).
type LineCap int

const (
	LineCapButt LineCap = iota
	LineCapRound
	LineCapSquare
)

// LineJoin represents the line join style (j operator).
type LineJoin int

const (
	LineJoinMiter LineJoin = iota
	LineJoinRound
	LineJoinBevel
)

// Path describes a graphics path made of subpaths.
type Path struct {
	Subpaths []Subpath
}

// Subpath describes a portion of a path.
type Subpath struct {
	Points []PathPoint
	Closed bool
}

// PathPoint identifies a path segment and its coordinates.
type PathPoint struct {
	X, Y                 float64
	Type                 PathPointType
	Control1X, Control1Y float64
	Control2X, Control2Y float64
}

// PathPointType enumerates path segment types.
type PathPointType int

const (
	PathMoveTo PathPointType = iota
	PathLineTo
	PathCurveTo
)
