package visual

// Type tags a directive with the template that renders it.
type Type string

const (
	TypeAngle         Type = "angle"
	TypeTriangle      Type = "triangle"
	TypeTriangleSides Type = "triangle-sides"
	TypeFraction      Type = "fraction"
	TypeNumberLine    Type = "numberline"
	TypeGrid          Type = "grid"
	TypeClock         Type = "clock"
	TypeShape         Type = "shape"
	TypeGraph         Type = "graph"
)

// Types lists every supported directive type.
func Types() []Type {
	return []Type{
		TypeAngle, TypeTriangle, TypeTriangleSides, TypeFraction, TypeNumberLine,
		TypeGrid, TypeClock, TypeShape, TypeGraph,
	}
}

// Known reports whether t has a template.
func (t Type) Known() bool {
	for _, k := range Types() {
		if k == t {
			return true
		}
	}
	return false
}

// Render draws d. The boolean is false when the type is unknown.
func Render(d Directive) (Diagram, bool) {
	var dg Diagram
	switch d.Type {
	case TypeAngle:
		dg = renderAngle(d)
	case TypeTriangle:
		dg = renderTriangle(d)
	case TypeTriangleSides:
		dg = renderTriangleSides(d)
	case TypeFraction:
		dg = renderFraction(d)
	case TypeNumberLine:
		dg = renderNumberLine(d)
	case TypeGrid:
		dg = renderGrid(d)
	case TypeClock:
		dg = renderClock(d)
	case TypeShape:
		dg = renderShape(d)
	case TypeGraph:
		dg = renderGraph(d)
	default:
		return Diagram{}, false
	}
	dg.Type = d.Type
	return dg, true
}

// RenderBody parses and renders a token body such as "clock:3:30".
func RenderBody(body string) (Diagram, bool) {
	return Render(ParseDirective(body))
}
