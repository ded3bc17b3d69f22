package visual

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	maxDenominator = 12
	maxGridSide    = 5
	maxTicks       = 21
	maxBars        = 5
)

// fraction:numerator:denominator:filled
func renderFraction(d Directive) Diagram {
	numerator := d.intParam(0, 1)
	den := clamp(d.intParam(1, 4), 1, maxDenominator)
	shaded := clamp(d.intParam(2, 1), 0, den)

	c := Point{X: 100, Y: 100}
	const r = 80.0
	var shapes []Shape

	if den == 1 {
		role, fill := "slice-empty", colorEmpty
		if shaded == 1 {
			role, fill = "slice-filled", colorFill
		}
		shapes = append(shapes, circle(c, r, filled(fill), role))
	} else {
		step := 360 / float64(den)
		for i := 0; i < den; i++ {
			start := -90 + float64(i)*step
			p1 := polar(c, r, start)
			p2 := polar(c, r, start+step)
			large := 0
			if step > 180 {
				large = 1
			}
			slice := fmt.Sprintf("M %s %s L %s %s A %s %s 0 %d 1 %s %s Z",
				num(c.X), num(c.Y), num(p1.X), num(p1.Y), num(r), num(r), large, num(p2.X), num(p2.Y))
			role, fill := "slice-empty", colorEmpty
			if i < shaded {
				role, fill = "slice-filled", colorFill
			}
			shapes = append(shapes, path(slice, filled(fill), role))
		}
	}

	shapes = append(shapes,
		circle(c, 22, Style{Fill: colorEmpty, Stroke: colorInk, StrokeWidth: 1}, "label-background"),
		label(Point{X: c.X, Y: c.Y + 6}, strconv.Itoa(numerator)+"/"+strconv.Itoa(den), 16, "middle", "label"),
	)
	return Diagram{ViewBox: Box{Width: 200, Height: 200}, Shapes: shapes}
}

// numberline:min:max:marks
func renderNumberLine(d Directive) Diagram {
	// lo+maxTicks must not overflow.
	lo := min(d.intParam(0, 0), math.MaxInt-maxTicks)
	hi := d.intParam(1, 10)
	if hi <= lo {
		hi = lo + 10
	}
	if hi > lo+maxTicks-1 {
		hi = lo + maxTicks - 1
	}

	const (
		y     = 40.0
		left  = 30.0
		right = 470.0
	)
	ticks := hi - lo + 1
	spacing := (right - left) / float64(ticks-1)
	xOf := func(v int) float64 { return left + float64(v-lo)*spacing }

	axis := stroke(colorInk, 2)
	shapes := []Shape{
		line(Point{X: 10, Y: y}, Point{X: 490, Y: y}, axis, "axis"),
		polygon([]Point{{X: 4, Y: y}, {X: 16, Y: y - 6}, {X: 16, Y: y + 6}}, Style{Fill: colorInk}, "arrow"),
		polygon([]Point{{X: 496, Y: y}, {X: 484, Y: y - 6}, {X: 484, Y: y + 6}}, Style{Fill: colorInk}, "arrow"),
	}
	for i := range ticks {
		v := lo + i
		x := xOf(v)
		shapes = append(shapes,
			line(Point{X: x, Y: y - 8}, Point{X: x, Y: y + 8}, axis, "tick"),
			label(Point{X: x, Y: y + 26}, strconv.Itoa(v), 12, "middle", "tick-label"),
		)
	}
	for _, v := range parseMarks(d.param(2)) {
		if v < lo || v > hi {
			continue
		}
		shapes = append(shapes, circle(Point{X: xOf(v), Y: y}, 6, Style{Fill: colorMark}, "mark"))
	}
	return Diagram{ViewBox: Box{Width: 500, Height: 80}, Shapes: shapes}
}

func parseMarks(s string) []int {
	if s == "" {
		return nil
	}
	var out []int
	for _, f := range strings.Split(s, ",") {
		if v, ok := leadingInt(f); ok {
			out = append(out, v)
		}
	}
	return out
}

// grid:rows:cols:filled
func renderGrid(d Directive) Diagram {
	rows := clamp(d.intParam(0, 3), 1, maxGridSide)
	cols := clamp(d.intParam(1, 4), 1, maxGridSide)
	shaded := clamp(d.intParam(2, 0), 0, rows*cols)

	const (
		cell = 40.0
		pad  = 10.0
	)
	shapes := make([]Shape, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			role, fill := "cell-empty", colorEmpty
			if r*cols+c < shaded {
				role, fill = "cell-filled", colorFill
			}
			origin := Point{X: pad + float64(c)*cell, Y: pad + float64(r)*cell}
			shapes = append(shapes, rect(origin, cell, cell, filled(fill), role))
		}
	}
	return Diagram{
		ViewBox: Box{Width: float64(cols)*cell + 2*pad, Height: float64(rows)*cell + 2*pad},
		Shapes:  shapes,
	}
}

// graph:v1,v2,...
func renderGraph(d Directive) Diagram {
	values := []int{3, 5, 2}
	if raw := d.param(0); raw != "" {
		values = nil
		for _, f := range strings.Split(raw, ",") {
			if len(values) == maxBars {
				break
			}
			v, ok := leadingInt(f)
			if !ok || v < 0 {
				v = 0
			}
			values = append(values, v)
		}
	}

	scale := 1
	for _, v := range values {
		if v > scale {
			scale = v
		}
	}

	const (
		chartH  = 150.0
		barW    = 30.0
		gap     = 15.0
		originX = 40.0
		baseY   = 170.0
	)
	width := originX + float64(len(values))*(barW+gap) + gap

	axis := stroke(colorInk, 2)
	shapes := []Shape{
		line(Point{X: originX, Y: baseY - chartH - 10}, Point{X: originX, Y: baseY}, axis, "axis"),
		line(Point{X: originX, Y: baseY}, Point{X: width - 5, Y: baseY}, axis, "axis"),
		label(Point{X: originX - 6, Y: baseY + 4}, "0", 12, "end", "axis-label"),
		label(Point{X: originX - 6, Y: baseY - chartH + 4}, strconv.Itoa(scale), 12, "end", "axis-label"),
	}
	for i, v := range values {
		x := originX + gap + float64(i)*(barW+gap)
		h := float64(v) / float64(scale) * chartH
		shapes = append(shapes,
			rect(Point{X: x, Y: baseY - h}, barW, h, filled(barColors[i%len(barColors)]), "bar"),
			label(Point{X: x + barW/2, Y: baseY + 16}, strconv.Itoa(v), 12, "middle", "bar-label"),
		)
	}
	return Diagram{ViewBox: Box{Width: width, Height: 190}, Shapes: shapes}
}
