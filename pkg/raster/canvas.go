package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"tilescope/pkg/layout"
	"tilescope/pkg/path"
)

// Proof page geometry in unscaled page pixels.
const (
	frameWidth   = 2
	ruleSpacing  = 24
	ruleInset    = 24
	marginX      = 40
	markerRadius = 12
	labelSize    = 14
	tabRadius    = 4
	curlSize     = 36
)

// canvas draws page-space shapes into a device-space tile window.
type canvas struct {
	dst *image.RGBA
	tr  path.Transform
	b   *path.Builder
}

// newCanvas returns a transparent canvas for req. Page point (0, 0) lands
// at device (OriginCol, OriginRow) of the window.
func newCanvas(req Request) *canvas {
	return &canvas{
		dst: image.NewRGBA(image.Rect(0, 0, req.TileWidth, req.TileHeight)),
		tr: path.Transform{
			Scale: req.Zoom,
			Dx:    float64(req.OriginCol),
			Dy:    float64(req.OriginRow),
		},
		b: path.NewBuilder(),
	}
}

func (c *canvas) fill(p *path.Path, col color.Color) {
	path.Fill(c.dst, p, c.tr, col)
}

func (c *canvas) rect(x, y, w, h float64, col color.Color) {
	c.fill(c.b.Reset().Rect(x, y, w, h).Build(), col)
}

// text draws s with its baseline starting at page point (x, y).
func (c *canvas) text(x, y float64, s string, face font.Face, col color.Color) {
	d := &font.Drawer{
		Dst:  c.dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(int(x*c.tr.Scale+c.tr.Dx), int(y*c.tr.Scale+c.tr.Dy)),
	}
	d.DrawString(s)
}

// visible reports whether the page rectangle touches the window at all.
func (c *canvas) visible(size layout.PageSize) bool {
	minX, minY := c.tr.Apply(path.Point{})
	maxX, maxY := c.tr.Apply(path.Point{X: size.Width, Y: size.Height})
	b := c.dst.Bounds()
	return float64(maxX) > 0 && float64(maxY) > 0 &&
		float64(minX) < float64(b.Dx()) && float64(minY) < float64(b.Dy())
}

// spanY returns the page-space rows [top, bottom) inside the window.
func (c *canvas) spanY() (top, bottom float64) {
	top = -c.tr.Dy / c.tr.Scale
	return top, top + float64(c.dst.Bounds().Dy())/c.tr.Scale
}

// drawPage paints the proof sheet of page: white paper, a frame, ruled
// lines, a margin line, a coloured corner marker, a label tab and a curled
// bottom corner.
func (c *canvas) drawPage(page int, size layout.PageSize, face font.Face) {
	w, h := size.Width, size.Height
	if !c.visible(size) {
		return
	}

	c.rect(0, 0, w, h, paperColor)
	c.rules(w, h)
	if w > marginX*2 {
		c.rect(marginX, 0, 1, h, marginColor)
	}
	c.fill(c.b.Reset().Frame(0, 0, w, h, frameWidth).Build(), frameColor)

	if w > 4*markerRadius && h > 4*markerRadius {
		c.fill(c.b.Reset().Circle(w-2.5*markerRadius, 2.5*markerRadius, markerRadius).Build(), MarkerColor(page))
	}
	if w > 2*curlSize && h > 2*curlSize {
		// Quarter-curl: the fold edge bows toward the page corner.
		curl := c.b.Reset().
			MoveTo(w-curlSize, h).
			QuadTo(w-curlSize*0.4, h-curlSize*0.4, w, h-curlSize).
			LineTo(w-curlSize, h-curlSize).
			Close().
			Build()
		c.fill(curl, curlColor)
	}

	label := fmt.Sprintf("Page %d", page+1)
	tabW := float64(font.MeasureString(face, label).Ceil())/c.tr.Scale + 8
	c.fill(c.b.Reset().RoundRect(marginX+4, ruleInset+2, tabW, ruleInset-6, tabRadius, tabRadius).Build(), tabColor)
	c.text(marginX+8, 2*ruleInset-6, label, face, labelColor)
}

// rules draws the ruled lines crossing the window, starting at the first
// one that can touch it.
func (c *canvas) rules(w, h float64) {
	first := float64(ruleInset * 2)
	top, bottom := c.spanY()
	if top > first {
		first += math.Floor((top-first)/ruleSpacing) * ruleSpacing
	}
	end := min(h-ruleInset, bottom+1)
	for y := first; y < end; y += ruleSpacing {
		c.rect(ruleInset, y, w-2*ruleInset, 1, ruleColor)
	}
}

var parseRegular = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// labelFace returns a label face sized for zoom, falling back to the fixed
// 7x13 bitmap face when the vector font is unavailable. Faces hold glyph
// buffers, so each fetch gets its own.
func labelFace(zoom float64) font.Face {
	f, err := parseRegular()
	if err != nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    labelSize * zoom,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}
