// Package layout models the vertical stacking of document pages in canvas
// space. A Layout is immutable once built.
package layout

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInconsistent reports page metadata that cannot be laid out: empty
// documents, non-positive page sizes, or cumulative heights that do not
// strictly increase.
var ErrInconsistent = errors.New("layout: inconsistent page metadata")

// cumulativeTolerance absorbs float noise in provider-supplied running sums.
const cumulativeTolerance = 1e-6

// PageSize is the size of one page in unscaled canvas pixels.
type PageSize struct {
	Width  float64
	Height float64
}

// Metrics is one entry of the document metadata provider. CumulativeHeight
// is the running sum of page heights up to and including this page, without
// gaps.
type Metrics struct {
	Width            float64
	Height           float64
	CumulativeHeight float64
}

// Provider supplies page metadata for a document.
type Provider interface {
	PageCount() int
	PageDimensions() ([]Metrics, error)
}

// PageDimension is the placement of one page on the canvas.
type PageDimension struct {
	Width                 float64
	Height                float64
	CumulativeHeightAfter float64 // canvas y of the page's bottom edge
}

// Top returns the canvas y of the page's top edge.
func (d PageDimension) Top() float64 {
	return d.CumulativeHeightAfter - d.Height
}

// Layout holds every page's placement and the document extent.
type Layout struct {
	pages    []PageDimension
	gap      float64
	maxWidth float64
}

// New stacks pages top to bottom separated by gap.
func New(sizes []PageSize, gap float64) (*Layout, error) {
	if len(sizes) == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrInconsistent)
	}
	if gap < 0 || math.IsNaN(gap) {
		return nil, fmt.Errorf("%w: negative page gap %v", ErrInconsistent, gap)
	}

	l := &Layout{
		pages: make([]PageDimension, len(sizes)),
		gap:   gap,
	}
	var bottom float64
	for i, s := range sizes {
		if !(s.Width > 0) || !(s.Height > 0) {
			return nil, fmt.Errorf("%w: page %d has size %vx%v", ErrInconsistent, i, s.Width, s.Height)
		}
		if i > 0 {
			bottom += gap
		}
		bottom += s.Height
		l.pages[i] = PageDimension{
			Width:                 s.Width,
			Height:                s.Height,
			CumulativeHeightAfter: bottom,
		}
		l.maxWidth = max(l.maxWidth, s.Width)
	}
	return l, nil
}

// Load reads page metadata from p, validates it and builds the layout.
func Load(p Provider, gap float64) (*Layout, error) {
	metrics, err := p.PageDimensions()
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	if n := p.PageCount(); n != len(metrics) {
		return nil, fmt.Errorf("%w: page count %d but %d dimension entries", ErrInconsistent, n, len(metrics))
	}

	sizes := make([]PageSize, len(metrics))
	var prev float64
	for i, m := range metrics {
		if !(m.CumulativeHeight > prev) {
			return nil, fmt.Errorf("%w: cumulative height %v of page %d does not increase past %v",
				ErrInconsistent, m.CumulativeHeight, i, prev)
		}
		if math.Abs(m.CumulativeHeight-prev-m.Height) > cumulativeTolerance {
			return nil, fmt.Errorf("%w: cumulative height %v of page %d disagrees with page height %v",
				ErrInconsistent, m.CumulativeHeight, i, m.Height)
		}
		prev = m.CumulativeHeight
		sizes[i] = PageSize{Width: m.Width, Height: m.Height}
	}
	return New(sizes, gap)
}

// PageCount returns the number of pages.
func (l *Layout) PageCount() int {
	return len(l.pages)
}

// Gap returns the vertical gap between pages.
func (l *Layout) Gap() float64 {
	return l.gap
}

// Dimensions returns the placement of page. An out-of-range page is a
// programming error and panics.
func (l *Layout) Dimensions(page int) PageDimension {
	if page < 0 || page >= len(l.pages) {
		panic(fmt.Sprintf("layout: page %d out of range [0, %d)", page, len(l.pages)))
	}
	return l.pages[page]
}

// TotalHeight returns the canvas y of the last page's bottom edge.
func (l *Layout) TotalHeight() float64 {
	return l.pages[len(l.pages)-1].CumulativeHeightAfter
}

// MaxWidth returns the width of the widest page.
func (l *Layout) MaxWidth() float64 {
	return l.maxWidth
}

// PageAt returns the page covering canvas y. It reports false inside gaps
// and outside the document.
func (l *Layout) PageAt(y float64) (int, bool) {
	i := sort.Search(len(l.pages), func(i int) bool {
		return l.pages[i].CumulativeHeightAfter > y
	})
	if i == len(l.pages) || y < l.pages[i].Top() {
		return -1, false
	}
	return i, true
}

// PagesInRange returns, in order, the pages whose vertical span intersects
// [top, bottom).
func (l *Layout) PagesInRange(top, bottom float64) []int {
	if bottom <= top {
		return nil
	}
	first := sort.Search(len(l.pages), func(i int) bool {
		return l.pages[i].CumulativeHeightAfter > top
	})
	var pages []int
	for i := first; i < len(l.pages) && l.pages[i].Top() < bottom; i++ {
		pages = append(pages, i)
	}
	return pages
}
