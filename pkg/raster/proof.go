package raster

import (
	"context"
	"fmt"
	"sync/atomic"

	"tilescope/pkg/layout"
	"tilescope/pkg/tile"
)

// Proof is a deterministic rasterizer that draws every page as a ruled
// proof sheet. It doubles as the document's metadata provider, so a viewer
// can run end to end without a native PDF engine.
type Proof struct {
	pages   []layout.PageSize
	fetches atomic.Int64
}

// NewProof returns a rasterizer for pages of the given unscaled sizes.
func NewProof(pages []layout.PageSize) *Proof {
	return &Proof{pages: append([]layout.PageSize(nil), pages...)}
}

// PageCount returns the number of pages.
func (p *Proof) PageCount() int {
	return len(p.pages)
}

// PageDimensions returns each page's size and the running sum of page
// heights.
func (p *Proof) PageDimensions() ([]layout.Metrics, error) {
	out := make([]layout.Metrics, len(p.pages))
	var cum float64
	for i, s := range p.pages {
		cum += s.Height
		out[i] = layout.Metrics{Width: s.Width, Height: s.Height, CumulativeHeight: cum}
	}
	return out, nil
}

// Fetches returns how many tiles have been rasterized.
func (p *Proof) Fetches() int64 {
	return p.fetches.Load()
}

// FetchTile rasterizes one window of a page. Window pixels outside the
// page are transparent.
func (p *Proof) FetchTile(ctx context.Context, req Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if req.Page >= len(p.pages) {
		return nil, fmt.Errorf("%w: page %d out of range [0, %d)", ErrFetch, req.Page, len(p.pages))
	}
	p.fetches.Add(1)

	face := labelFace(req.Zoom)
	defer face.Close()

	c := newCanvas(req)
	c.drawPage(req.Page, p.pages[req.Page], face)

	data, err := tile.Encode(c.dst, req.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return data, nil
}
