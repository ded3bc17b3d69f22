// Package transform holds the placement arithmetic of draggable card
// illustrations: drag, proportional resize and rotation gestures.
package transform

import (
	"fmt"
	"math"

	"cartes/model"
)

const (
	// ElementSize is the nominal edge of a draggable element, used to keep it
	// inside its container.
	ElementSize = 100.0

	MinScale = 0.3
	MaxScale = 3.0
)

// Identity is the untouched placement.
func Identity() model.Transform {
	return model.Transform{Scale: 1}
}

// Point is a pointer position in container coordinates.
type Point struct {
	X, Y float64
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Drag moves t by the pointer delta between start and current, keeping the
// element inside a w×h container.
func Drag(t model.Transform, start, current Point, w, h float64) model.Transform {
	t.X = clamp(t.X+current.X-start.X, 0, w-ElementSize)
	t.Y = clamp(t.Y+current.Y-start.Y, 0, h-ElementSize)
	return t
}

// Resize scales t proportionally to the diagonal pointer delta. Moving the
// corner handle one element-diagonal outward doubles the scale.
func Resize(t model.Transform, start, current Point) model.Transform {
	dx := current.X - start.X
	dy := current.Y - start.Y
	diagonal := (dx + dy) / math.Sqrt2
	t.Scale = clamp(t.Scale*(1+diagonal/(ElementSize*math.Sqrt2)), MinScale, MaxScale)
	return t
}

// Rotate turns t by the change in pointer angle around center between start
// and current. The result is normalized to [0, 360).
func Rotate(t model.Transform, center, start, current Point) model.Transform {
	from := math.Atan2(start.Y-center.Y, start.X-center.X)
	to := math.Atan2(current.Y-center.Y, current.X-center.X)
	t.Rotation = normalize(t.Rotation + (to-from)*180/math.Pi)
	return t
}

func normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Center returns the center of an element placed at t.
func Center(t model.Transform) Point {
	half := ElementSize * t.Scale / 2
	return Point{X: t.X + half, Y: t.Y + half}
}

// Clamp brings a stored transform back into a w×h container with a valid
// scale. A zero scale is treated as unset.
func Clamp(t model.Transform, w, h float64) model.Transform {
	if t.Scale == 0 || math.IsNaN(t.Scale) {
		t.Scale = 1
	}
	t.Scale = clamp(t.Scale, MinScale, MaxScale)
	t.X = clamp(finite(t.X), 0, w-ElementSize)
	t.Y = clamp(finite(t.Y), 0, h-ElementSize)
	t.Rotation = normalize(finite(t.Rotation))
	return t
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// CSS renders t as a CSS declaration list for an absolutely positioned
// element.
func CSS(t model.Transform) string {
	return fmt.Sprintf("left:%.1fpx;top:%.1fpx;transform:scale(%.2f) rotate(%.1fdeg)",
		t.X, t.Y, t.Scale, t.Rotation)
}
