// Package path builds vector outlines and fills them into RGBA tiles.
package path

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// Point is a position in page space.
type Point struct {
	X, Y float64
}

// Op is a path construction operator.
type Op uint8

const (
	OpMoveTo Op = iota
	OpLineTo
	OpCubeTo
	OpClose
)

// Segment is one operator and its points: one for MoveTo and LineTo, three
// for CubeTo, none for Close.
type Segment struct {
	Op     Op
	Points []Point
}

// Path is a sequence of subpaths in page space.
type Path struct {
	Segments []Segment
	current  Point
	start    Point
}

// IsEmpty reports whether the path has no segments.
func (p *Path) IsEmpty() bool {
	return len(p.Segments) == 0
}

// CurrentPoint returns the end of the last segment.
func (p *Path) CurrentPoint() Point {
	return p.current
}

func (p *Path) moveTo(x, y float64) {
	p.current = Point{x, y}
	p.start = p.current
	p.Segments = append(p.Segments, Segment{Op: OpMoveTo, Points: []Point{p.current}})
}

func (p *Path) lineTo(x, y float64) {
	p.current = Point{x, y}
	p.Segments = append(p.Segments, Segment{Op: OpLineTo, Points: []Point{p.current}})
}

func (p *Path) cubeTo(x1, y1, x2, y2, x, y float64) {
	p.current = Point{x, y}
	p.Segments = append(p.Segments, Segment{Op: OpCubeTo, Points: []Point{{x1, y1}, {x2, y2}, p.current}})
}

func (p *Path) close() {
	p.current = p.start
	p.Segments = append(p.Segments, Segment{Op: OpClose})
}

// Transform maps page space to device space: scale, then translate.
type Transform struct {
	Scale  float64
	Dx, Dy float64
}

// Identity leaves coordinates unchanged.
var Identity = Transform{Scale: 1}

// Apply maps pt to device space.
func (t Transform) Apply(pt Point) (float32, float32) {
	return float32(pt.X*t.Scale + t.Dx), float32(pt.Y*t.Scale + t.Dy)
}

// ToVector feeds p through t into rasterizer.
func ToVector(p *Path, t Transform, rasterizer *vector.Rasterizer) {
	for _, seg := range p.Segments {
		switch seg.Op {
		case OpMoveTo:
			rasterizer.MoveTo(t.Apply(seg.Points[0]))
		case OpLineTo:
			rasterizer.LineTo(t.Apply(seg.Points[0]))
		case OpCubeTo:
			x1, y1 := t.Apply(seg.Points[0])
			x2, y2 := t.Apply(seg.Points[1])
			x, y := t.Apply(seg.Points[2])
			rasterizer.CubeTo(x1, y1, x2, y2, x, y)
		case OpClose:
			rasterizer.ClosePath()
		}
	}
}

// Bounds returns the smallest rectangle holding every point of p. Curve
// control points are included, so the box may be larger than the curve.
func (p *Path) Bounds() (lo, hi Point, ok bool) {
	for _, seg := range p.Segments {
		for _, pt := range seg.Points {
			if !ok {
				lo, hi, ok = pt, pt, true
				continue
			}
			lo = Point{min(lo.X, pt.X), min(lo.Y, pt.Y)}
			hi = Point{max(hi.X, pt.X), max(hi.Y, pt.Y)}
		}
	}
	return lo, hi, ok
}

// DeviceBounds returns the pixels p can touch under t, rounded outward.
func DeviceBounds(p *Path, t Transform) image.Rectangle {
	lo, hi, ok := p.Bounds()
	if !ok {
		return image.Rectangle{}
	}
	x0, y0 := t.Apply(lo)
	x1, y1 := t.Apply(hi)
	return image.Rect(
		int(math.Floor(float64(min(x0, x1)))), int(math.Floor(float64(min(y0, y1)))),
		int(math.Ceil(float64(max(x0, x1)))), int(math.Ceil(float64(max(y0, y1)))),
	)
}

// Fill paints p in col over dst using the non-zero winding rule. Only the
// part of dst under the path's bounds is rasterized; a path entirely
// outside dst costs nothing.
func Fill(dst *image.RGBA, p *Path, t Transform, col color.Color) {
	if p.IsEmpty() {
		return
	}
	b := DeviceBounds(p, t).Intersect(dst.Bounds())
	if b.Empty() {
		return
	}
	var r vector.Rasterizer
	r.Reset(b.Dx(), b.Dy())
	r.DrawOp = draw.Over
	ToVector(p, Transform{Scale: t.Scale, Dx: t.Dx - float64(b.Min.X), Dy: t.Dy - float64(b.Min.Y)}, &r)
	r.Draw(dst, b, image.NewUniform(col), image.Point{})
}
