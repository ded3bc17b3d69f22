package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"cartes/model"
)

func TestDragClampsToContainer(t *testing.T) {
	start := Identity()

	got := Drag(start, Point{10, 10}, Point{60, 40}, 400, 300)
	assert.Equal(t, 50.0, got.X)
	assert.Equal(t, 30.0, got.Y)

	got = Drag(start, Point{0, 0}, Point{-50, 1000}, 400, 300)
	assert.Equal(t, 0.0, got.X)
	assert.Equal(t, 200.0, got.Y)

	got = Drag(model.Transform{X: 250, Y: 10, Scale: 1}, Point{0, 0}, Point{500, 0}, 400, 300)
	assert.Equal(t, 300.0, got.X)
}

func TestDragInSmallContainer(t *testing.T) {
	got := Drag(Identity(), Point{}, Point{30, 30}, 80, 80)
	assert.Equal(t, 0.0, got.X)
	assert.Equal(t, 0.0, got.Y)
}

func TestResizeProportionalAndClamped(t *testing.T) {
	got := Resize(Identity(), Point{0, 0}, Point{100, 100})
	assert.InDelta(t, 2.0, got.Scale, 1e-9)

	got = Resize(Identity(), Point{0, 0}, Point{0, 0})
	assert.Equal(t, 1.0, got.Scale)

	got = Resize(Identity(), Point{0, 0}, Point{1000, 1000})
	assert.Equal(t, MaxScale, got.Scale)

	got = Resize(Identity(), Point{0, 0}, Point{-1000, -1000})
	assert.Equal(t, MinScale, got.Scale)
}

func TestRotateRelativeToStartAngle(t *testing.T) {
	center := Point{50, 50}

	got := Rotate(Identity(), center, Point{100, 50}, Point{50, 100})
	assert.InDelta(t, 90.0, got.Rotation, 1e-9)

	got = Rotate(model.Transform{Scale: 1, Rotation: 30}, center, Point{50, 100}, Point{100, 50})
	assert.InDelta(t, 300.0, got.Rotation, 1e-9)

	got = Rotate(model.Transform{Scale: 1, Rotation: 350}, center, Point{100, 50}, Point{50, 100})
	assert.InDelta(t, 80.0, got.Rotation, 1e-9)
}

func TestClamp(t *testing.T) {
	got := Clamp(model.Transform{X: -5, Y: 900, Scale: 0, Rotation: -90}, 400, 300)
	assert.Equal(t, model.Transform{X: 0, Y: 200, Scale: 1, Rotation: 270}, got)

	got = Clamp(model.Transform{X: math.NaN(), Y: math.Inf(1), Scale: 10}, 400, 300)
	assert.Equal(t, model.Transform{X: 0, Y: 0, Scale: MaxScale}, got)
}

func TestCenter(t *testing.T) {
	assert.Equal(t, Point{X: 110, Y: 70}, Center(model.Transform{X: 10, Y: -30, Scale: 2}))
}

func TestCSS(t *testing.T) {
	assert.Equal(t, "left:12.0px;top:4.5px;transform:scale(1.25) rotate(90.0deg)",
		CSS(model.Transform{X: 12, Y: 4.5, Scale: 1.25, Rotation: 90}))
}
