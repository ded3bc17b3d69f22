package visual

import (
	"math"
	"strconv"
)

// HandAngles returns the hour and minute hand angles in degrees, measured
// clockwise from 12 o'clock. The hour hand advances with the minutes.
func HandAngles(hour, minute int) (hourDeg, minuteDeg float64) {
	h := ((hour % 12) + 12) % 12
	return float64(h)*30 + float64(minute)/60*30, float64(minute) * 6
}

// dial returns the point at r from c, deg measured clockwise from 12 o'clock.
func dial(c Point, r, deg float64) Point {
	rad := toRad(deg)
	return Point{X: c.X + r*math.Sin(rad), Y: c.Y - r*math.Cos(rad)}
}

// clock:hour:minute
func renderClock(d Directive) Diagram {
	hour := d.intParam(0, 3)
	minute := clamp(d.intParam(1, 15), 0, 59)
	hourDeg, minuteDeg := HandAngles(hour, minute)

	c := Point{X: 100, Y: 100}
	shapes := []Shape{circle(c, 90, Style{Fill: colorEmpty, Stroke: colorInk, StrokeWidth: 3}, "face")}
	for i := 0; i < 12; i++ {
		deg := float64(i) * 30
		shapes = append(shapes, line(dial(c, 80, deg), dial(c, 90, deg), stroke(colorInk, 2), "hour-tick"))
		n := i
		if n == 0 {
			n = 12
		}
		at := dial(c, 66, deg)
		at.Y += 5
		shapes = append(shapes, label(at, strconv.Itoa(n), 14, "middle", "numeral"))
	}
	shapes = append(shapes,
		line(c, dial(c, 45, hourDeg), stroke(colorInk, 5), "hour-hand"),
		line(c, dial(c, 70, minuteDeg), stroke(colorFill, 3), "minute-hand"),
		circle(c, 4, Style{Fill: colorInk}, "pivot"),
	)
	return Diagram{ViewBox: Box{Width: 200, Height: 200}, Shapes: shapes}
}
