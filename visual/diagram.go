package visual

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	colorInk    = "#2D3748"
	colorFill   = "#4A90D9"
	colorEmpty  = "#FFFFFF"
	colorMark   = "#E53935"
	colorAccent = "#F6AD55"
	colorPale   = "#E3F2FD"
)

var barColors = []string{"#4A90D9", "#F6AD55", "#68D391", "#FC8181", "#B794F4"}

// Point is a coordinate in diagram space (y grows downwards).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is a viewport in diagram space.
type Box struct {
	MinX   float64 `json:"min_x"`
	MinY   float64 `json:"min_y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MinX+b.Width && p.Y >= b.MinY && p.Y <= b.MinY+b.Height
}

type bounds struct {
	minX, minY, maxX, maxY float64
	ok                     bool
}

func (b *bounds) add(pts ...Point) {
	for _, p := range pts {
		if !b.ok {
			b.minX, b.maxX = p.X, p.X
			b.minY, b.maxY = p.Y, p.Y
			b.ok = true
			continue
		}
		b.minX = math.Min(b.minX, p.X)
		b.maxX = math.Max(b.maxX, p.X)
		b.minY = math.Min(b.minY, p.Y)
		b.maxY = math.Max(b.maxY, p.Y)
	}
}

func (b bounds) box(pad float64) Box {
	return Box{
		MinX:   b.minX - pad,
		MinY:   b.minY - pad,
		Width:  b.maxX - b.minX + 2*pad,
		Height: b.maxY - b.minY + 2*pad,
	}
}

// Kind identifies a drawing primitive.
type Kind int

const (
	KindLine Kind = iota
	KindPath
	KindPolygon
	KindCircle
	KindRect
	KindText
)

// Style holds presentation attributes of a shape.
type Style struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
}

// Shape is a single primitive. Which fields are meaningful depends on Kind:
// lines and polygons use Points, circles use Points[0] and Radius, rects use
// Points[0] and Size, text uses Points[0], Text and Anchor, paths use Path.
type Shape struct {
	Kind     Kind
	Role     string
	Points   []Point
	Radius   float64
	Size     Point
	Path     string
	Text     string
	FontSize float64
	Anchor   string
	Style    Style
}

// Diagram is a rendered directive: a viewport and an ordered list of shapes.
type Diagram struct {
	Type    Type
	ViewBox Box
	Shapes  []Shape
}

// Find returns the shapes tagged with role, in drawing order.
func (d Diagram) Find(role string) []Shape {
	var out []Shape
	for _, s := range d.Shapes {
		if s.Role == role {
			out = append(out, s)
		}
	}
	return out
}

// Count returns how many shapes carry role.
func (d Diagram) Count(role string) int {
	n := 0
	for _, s := range d.Shapes {
		if s.Role == role {
			n++
		}
	}
	return n
}

func line(a, b Point, st Style, role string) Shape {
	return Shape{Kind: KindLine, Role: role, Points: []Point{a, b}, Style: st}
}

func polygon(pts []Point, st Style, role string) Shape {
	return Shape{Kind: KindPolygon, Role: role, Points: pts, Style: st}
}

func circle(c Point, r float64, st Style, role string) Shape {
	return Shape{Kind: KindCircle, Role: role, Points: []Point{c}, Radius: r, Style: st}
}

func rect(origin Point, w, h float64, st Style, role string) Shape {
	return Shape{Kind: KindRect, Role: role, Points: []Point{origin}, Size: Point{X: w, Y: h}, Style: st}
}

func path(d string, st Style, role string) Shape {
	return Shape{Kind: KindPath, Role: role, Path: d, Style: st}
}

func label(p Point, s string, size float64, anchor string, role string) Shape {
	return Shape{
		Kind:     KindText,
		Role:     role,
		Points:   []Point{p},
		Text:     s,
		FontSize: size,
		Anchor:   anchor,
		Style:    Style{Fill: colorInk},
	}
}

func stroke(color string, width float64) Style {
	return Style{Fill: "none", Stroke: color, StrokeWidth: width}
}

func filled(fill string) Style {
	return Style{Fill: fill, Stroke: colorInk, StrokeWidth: 2}
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// polar returns the point at r from c, deg measured clockwise from +x in
// screen space.
func polar(c Point, r, deg float64) Point {
	rad := toRad(deg)
	return Point{X: c.X + r*math.Cos(rad), Y: c.Y + r*math.Sin(rad)}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// num formats a coordinate with at most two decimals.
func num(v float64) string {
	s := strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
	if s == "-0" {
		return "0"
	}
	return s
}

// SVG serializes the diagram as a standalone SVG document. The document has a
// viewBox but no pixel size so the caller can scale it to its container.
func (d Diagram) SVG() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s %s %s %s" class="visual visual-%s" preserveAspectRatio="xMidYMid meet">`,
		num(d.ViewBox.MinX), num(d.ViewBox.MinY), num(d.ViewBox.Width), num(d.ViewBox.Height), d.Type)
	for _, s := range d.Shapes {
		writeShape(&b, s)
	}
	b.WriteString(`</svg>`)
	return b.String()
}

func writeShape(b *strings.Builder, s Shape) {
	switch s.Kind {
	case KindLine:
		fmt.Fprintf(b, `<line x1="%s" y1="%s" x2="%s" y2="%s"`, num(s.Points[0].X), num(s.Points[0].Y), num(s.Points[1].X), num(s.Points[1].Y))
	case KindPath:
		fmt.Fprintf(b, `<path d="%s"`, s.Path)
	case KindPolygon:
		pts := make([]string, len(s.Points))
		for i, p := range s.Points {
			pts[i] = num(p.X) + "," + num(p.Y)
		}
		fmt.Fprintf(b, `<polygon points="%s"`, strings.Join(pts, " "))
	case KindCircle:
		fmt.Fprintf(b, `<circle cx="%s" cy="%s" r="%s"`, num(s.Points[0].X), num(s.Points[0].Y), num(s.Radius))
	case KindRect:
		fmt.Fprintf(b, `<rect x="%s" y="%s" width="%s" height="%s"`, num(s.Points[0].X), num(s.Points[0].Y), num(s.Size.X), num(s.Size.Y))
	case KindText:
		anchor := s.Anchor
		if anchor == "" {
			anchor = "middle"
		}
		fmt.Fprintf(b, `<text x="%s" y="%s" font-size="%s" text-anchor="%s" font-family="Arial, sans-serif"`,
			num(s.Points[0].X), num(s.Points[0].Y), num(s.FontSize), anchor)
		writeStyle(b, s.Style)
		b.WriteString(`>`)
		_ = xml.EscapeText(b, []byte(s.Text))
		b.WriteString(`</text>`)
		return
	default:
		return
	}
	writeStyle(b, s.Style)
	b.WriteString(`/>`)
}

func writeStyle(b *strings.Builder, st Style) {
	fill := st.Fill
	if fill == "" {
		fill = "none"
	}
	fmt.Fprintf(b, ` fill="%s"`, fill)
	if st.Stroke != "" {
		fmt.Fprintf(b, ` stroke="%s"`, st.Stroke)
	}
	if st.StrokeWidth > 0 {
		fmt.Fprintf(b, ` stroke-width="%s"`, num(st.StrokeWidth))
	}
	if st.Stroke != "" {
		b.WriteString(` stroke-linecap="round"`)
	}
}
