package visual

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// angle:degrees:size
func renderAngle(d Directive) Diagram {
	deg := d.intParam(0, 45)
	length := float64(clamp(d.intParam(1, 100), 40, 300))

	origin := Point{}
	ref := Point{X: length}
	rad := toRad(float64(deg))
	ray := Point{X: length * math.Cos(rad), Y: -length * math.Sin(rad)}

	shapes := []Shape{
		line(origin, ref, stroke(colorInk, 3), "ray-reference"),
		line(origin, ray, stroke(colorInk, 3), "ray"),
	}
	var b bounds
	b.add(origin, ref, ray)

	if deg > 0 && deg < 360 {
		r := length * 0.3
		end := Point{X: r * math.Cos(rad), Y: -r * math.Sin(rad)}
		large := 0
		if deg > 180 {
			large = 1
		}
		// sweep 0 runs counter-clockwise on screen, the mathematical positive direction.
		arc := fmt.Sprintf("M %s %s A %s %s 0 %d 0 %s %s", num(r), "0", num(r), num(r), large, num(end.X), num(end.Y))
		shapes = append(shapes, path(arc, stroke(colorAccent, 2), "arc"))

		half := rad / 2
		lr := r + 18
		at := Point{X: lr * math.Cos(half), Y: -lr*math.Sin(half) + 5}
		shapes = append(shapes, label(at, strconv.Itoa(deg)+"°", 14, "middle", "degrees"))
		b.add(at)
	}
	shapes = append(shapes, circle(origin, 3, Style{Fill: colorInk}, "vertex"))

	return Diagram{ViewBox: b.box(24), Shapes: shapes}
}

type triangleAngle struct {
	value int
	known bool
}

func parseTriangleAngle(s string) triangleAngle {
	s = strings.TrimSpace(s)
	if s == "" || s == "?" || strings.EqualFold(s, "x") {
		return triangleAngle{}
	}
	v, ok := leadingInt(s)
	if !ok {
		return triangleAngle{}
	}
	return triangleAngle{value: v, known: true}
}

// resolveTriangle returns the angles used for drawing. A single unknown is
// computed from the two knowns. Otherwise A and B fall back to 60 when unknown
// and C is always derived from them. Degenerate results draw an equilateral
// triangle.
func resolveTriangle(in [3]triangleAngle) [3]float64 {
	unknown := -1
	missing := 0
	for i, a := range in {
		if !a.known {
			missing++
			unknown = i
		}
	}
	if missing == 1 {
		sum := 0
		for i, a := range in {
			if i != unknown {
				sum += a.value
			}
		}
		in[unknown] = triangleAngle{value: 180 - sum, known: true}
	}

	a, b := 60.0, 60.0
	if in[0].known {
		a = float64(in[0].value)
	}
	if in[1].known {
		b = float64(in[1].value)
	}
	c := 180 - a - b
	if a <= 0 || b <= 0 || c <= 0 {
		return [3]float64{60, 60, 60}
	}
	return [3]float64{a, b, c}
}

// triangle:angleA:angleB:angleC
func renderTriangle(d Directive) Diagram {
	var given [3]triangleAngle
	for i := range given {
		given[i] = parseTriangleAngle(d.param(i))
	}
	angles := resolveTriangle(given)

	const base = 200.0
	A := Point{}
	B := Point{X: base}
	side := base * math.Sin(toRad(angles[1])) / math.Sin(toRad(angles[2]))
	C := Point{X: side * math.Cos(toRad(angles[0])), Y: -side * math.Sin(toRad(angles[0]))}
	vertices := []Point{A, B, C}

	shapes := []Shape{polygon(vertices, filled(colorPale), "triangle")}
	var bb bounds
	bb.add(vertices...)

	g := Point{X: (A.X + B.X + C.X) / 3, Y: (A.Y + B.Y + C.Y) / 3}
	for i, v := range vertices {
		dx, dy := v.X-g.X, v.Y-g.Y
		n := math.Hypot(dx, dy)
		if n == 0 {
			n = 1
		}
		at := Point{X: v.X + dx/n*22, Y: v.Y + dy/n*22 + 5}
		text := "?"
		if given[i].known {
			text = strconv.Itoa(given[i].value) + "°"
		}
		shapes = append(shapes, label(at, text, 14, "middle", "angle-label"))
		bb.add(at)
	}

	return Diagram{ViewBox: bb.box(18), Shapes: shapes}
}

// triangle-sides:a:b:c:kind
func renderTriangleSides(d Directive) Diagram {
	sides := [3]string{"3", "4", "5"}
	for i := range sides {
		if p := d.param(i); p != "" {
			sides[i] = p
		}
	}
	kind := strings.ToLower(d.param(3))
	if kind == "" {
		kind = "right"
	}

	bl := Point{X: 30, Y: 170}
	br := Point{X: 190, Y: 170}
	top := Point{X: 110, Y: 30}
	shapes := []Shape{
		polygon([]Point{bl, br, top}, filled(colorPale), "triangle"),
		label(Point{X: 56, Y: 104}, sides[0], 14, "end", "side-label"),
		label(Point{X: 110, Y: 192}, sides[1], 14, "middle", "side-label"),
		label(Point{X: 164, Y: 104}, sides[2], 14, "start", "side-label"),
	}
	if kind == "right" {
		shapes = append(shapes, rect(Point{X: bl.X, Y: bl.Y - 10}, 10, 10, stroke(colorInk, 1.5), "right-angle"))
	}
	return Diagram{ViewBox: Box{Width: 220, Height: 200}, Shapes: shapes}
}

// shape:kind
func renderShape(d Directive) Diagram {
	c := Point{X: 100, Y: 100}
	st := filled(colorPale)
	var s Shape
	switch strings.ToLower(d.param(0)) {
	case "rectangle":
		s = rect(Point{X: 20, Y: 55}, 160, 90, st, "outline")
	case "circle":
		s = circle(c, 70, st, "outline")
	case "pentagon":
		s = polygon(regular(c, 75, 5, -90), st, "outline")
	case "hexagon":
		s = polygon(regular(c, 75, 6, 0), st, "outline")
	default:
		s = rect(Point{X: 40, Y: 40}, 120, 120, st, "outline")
	}
	return Diagram{ViewBox: Box{Width: 200, Height: 200}, Shapes: []Shape{s}}
}

// regular returns the n vertices of a regular polygon spaced evenly from
// startDeg.
func regular(c Point, r float64, n int, startDeg float64) []Point {
	pts := make([]Point, n)
	step := 360 / float64(n)
	for i := range pts {
		pts[i] = polar(c, r, startDeg+float64(i)*step)
	}
	return pts
}
