package path

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498307936

// Builder provides a fluent interface for building paths.
type Builder struct {
	path *Path
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{path: &Path{}}
}

// MoveTo starts a new subpath.
func (b *Builder) MoveTo(x, y float64) *Builder {
	b.path.moveTo(x, y)
	return b
}

// LineTo draws a line to the given point.
func (b *Builder) LineTo(x, y float64) *Builder {
	b.path.lineTo(x, y)
	return b
}

// CubeTo draws a cubic Bezier curve.
func (b *Builder) CubeTo(cp1x, cp1y, cp2x, cp2y, x, y float64) *Builder {
	b.path.cubeTo(cp1x, cp1y, cp2x, cp2y, x, y)
	return b
}

// QuadTo draws a quadratic Bezier curve, stored as its cubic equivalent.
func (b *Builder) QuadTo(cpx, cpy, x, y float64) *Builder {
	cur := b.path.CurrentPoint()
	return b.CubeTo(
		cur.X+2.0/3.0*(cpx-cur.X), cur.Y+2.0/3.0*(cpy-cur.Y),
		x+2.0/3.0*(cpx-x), y+2.0/3.0*(cpy-y),
		x, y)
}

// Close closes the current subpath.
func (b *Builder) Close() *Builder {
	b.path.close()
	return b
}

// Rect adds a clockwise rectangle.
func (b *Builder) Rect(x, y, w, h float64) *Builder {
	return b.MoveTo(x, y).LineTo(x+w, y).LineTo(x+w, y+h).LineTo(x, y+h).Close()
}

// Frame adds a rectangular ring of the given thickness inside the rectangle.
// The inner edge runs counter-clockwise so the non-zero rule leaves a hole.
func (b *Builder) Frame(x, y, w, h, thickness float64) *Builder {
	b.Rect(x, y, w, h)
	t := min(thickness, w/2, h/2)
	ix, iy, iw, ih := x+t, y+t, w-2*t, h-2*t
	if iw <= 0 || ih <= 0 {
		return b
	}
	return b.MoveTo(ix, iy).LineTo(ix, iy+ih).LineTo(ix+iw, iy+ih).LineTo(ix+iw, iy).Close()
}

// RoundRect adds a rounded rectangle.
func (b *Builder) RoundRect(x, y, w, h, rx, ry float64) *Builder {
	rx = min(rx, w/2)
	ry = min(ry, h/2)

	b.MoveTo(x+rx, y)
	b.LineTo(x+w-rx, y)
	b.CubeTo(x+w-rx+rx*kappa, y, x+w, y+ry-ry*kappa, x+w, y+ry)
	b.LineTo(x+w, y+h-ry)
	b.CubeTo(x+w, y+h-ry+ry*kappa, x+w-rx+rx*kappa, y+h, x+w-rx, y+h)
	b.LineTo(x+rx, y+h)
	b.CubeTo(x+rx-rx*kappa, y+h, x, y+h-ry+ry*kappa, x, y+h-ry)
	b.LineTo(x, y+ry)
	b.CubeTo(x, y+ry-ry*kappa, x+rx-rx*kappa, y, x+rx, y)
	return b.Close()
}

// Circle adds a circle.
func (b *Builder) Circle(cx, cy, r float64) *Builder {
	return b.Ellipse(cx, cy, r, r)
}

// Ellipse adds an axis-aligned ellipse.
func (b *Builder) Ellipse(cx, cy, rx, ry float64) *Builder {
	b.MoveTo(cx+rx, cy)
	b.CubeTo(cx+rx, cy+ry*kappa, cx+rx*kappa, cy+ry, cx, cy+ry)
	b.CubeTo(cx-rx*kappa, cy+ry, cx-rx, cy+ry*kappa, cx-rx, cy)
	b.CubeTo(cx-rx, cy-ry*kappa, cx-rx*kappa, cy-ry, cx, cy-ry)
	b.CubeTo(cx+rx*kappa, cy-ry, cx+rx, cy-ry*kappa, cx+rx, cy)
	return b.Close()
}

// Build returns the constructed path.
func (b *Builder) Build() *Path {
	return b.path
}

// Reset clears the builder for reuse.
func (b *Builder) Reset() *Builder {
	b.path = &Path{}
	return b
}
