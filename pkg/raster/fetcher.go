// Package raster defines the boundary to the page rasterizer and ships a
// deterministic built-in one.
package raster

import (
	"context"
	"errors"
	"fmt"

	"tilescope/pkg/tile"
)

// ErrFetch reports that a rasterizer could not produce a tile.
var ErrFetch = errors.New("raster: fetch failed")

// Request asks for one page-local tile window.
//
// OriginRow and OriginCol are the negated device-pixel position of the
// window inside the page: the page content is shifted by that many pixels
// before the window is cut, so a window starting 512px down the page has
// OriginRow -512. DisplayWidth is the width of the whole page at Zoom.
type Request struct {
	Page         int
	OriginRow    int64
	OriginCol    int64
	DisplayWidth int
	TileWidth    int
	TileHeight   int
	Zoom         float64
	Format       tile.Format
}

// Len returns the byte length of a well-formed response.
func (r Request) Len() int {
	return r.TileWidth * r.TileHeight * r.Format.BytesPerPixel()
}

// Validate checks that r describes a drawable window.
func (r Request) Validate() error {
	switch {
	case r.Page < 0:
		return fmt.Errorf("raster: negative page %d", r.Page)
	case r.TileWidth <= 0 || r.TileHeight <= 0:
		return fmt.Errorf("raster: invalid tile size %dx%d", r.TileWidth, r.TileHeight)
	case !(r.Zoom > 0):
		return fmt.Errorf("raster: invalid zoom %v", r.Zoom)
	case !r.Format.IsValid():
		return fmt.Errorf("raster: unknown format %v", r.Format)
	}
	return nil
}

// Fetcher produces raw tile pixels: TileWidth*TileHeight pixels of
// Format, row-major from the top left. Identical requests must yield
// identical bytes. Implementations may block.
type Fetcher interface {
	FetchTile(ctx context.Context, req Request) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req Request) ([]byte, error)

// FetchTile calls f.
func (f FetcherFunc) FetchTile(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}
