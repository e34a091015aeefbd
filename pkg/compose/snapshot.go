package compose

import (
	"context"
	"fmt"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"tilescope/pkg/raster"
	"tilescope/pkg/tile"
)

// ThumbnailZoom returns the device pixels per canvas pixel of stand-ins.
func (c *Compositor) ThumbnailZoom() float64 {
	return c.cfg.ThumbnailZoom
}

// Thumbnail returns the low-zoom composite of (row, col) from the bounded
// thumbnail tier, building it on a miss. Thumbnails are fetched
// synchronously, skip the raw tier and never enter the grid tier.
func (c *Compositor) Thumbnail(ctx context.Context, row, col int) (*tile.Image, error) {
	key := tile.GridKey{Scale: 0, Row: row, Col: col}
	if img, ok := c.store.Thumbs.Get(key); ok {
		return img, nil
	}
	img, err := c.compose(ctx, row, col, c.cfg.ThumbnailZoom, c.directRaw)
	if err != nil {
		return nil, err
	}
	c.store.Thumbs.Set(key, img)
	return img, nil
}

// StandIn returns the thumbnail of (row, col) scaled up to the device size
// of a class 1 tile. The result is a private copy: the caller owns it and
// must dispose it, and later thumbnail evictions cannot reach it.
func (c *Compositor) StandIn(ctx context.Context, row, col int) (*tile.Image, error) {
	thumb, err := c.Thumbnail(ctx, row, col)
	if err != nil {
		return nil, err
	}
	src := thumb.RGBA()
	if src == nil {
		return nil, fmt.Errorf("%w: thumbnail %d,%d was disposed", ErrMissing, row, col)
	}
	size := c.TilePixels(c.PixelZoom(1))
	out := tile.NewImage(size, size, c.pool)
	dst := out.RGBA()
	xdraw.ApproxBiLinear.Scale(dst, dst.Rect, src, src.Rect, draw.Src, nil)
	return out, nil
}

// Snapshot returns the whole-page bitmap of page at class from the
// snapshot tier, rasterizing it on a miss.
func (c *Compositor) Snapshot(ctx context.Context, page int, class tile.ScaleClass) (*tile.Image, error) {
	key := tile.PageKey{Page: page, Scale: class}
	if img, ok := c.store.Snapshots.Get(key); ok {
		return img, nil
	}
	raw := tile.RawKey{Page: page, Scale: class, Row: -1, Col: -1}
	if err, ok := c.failed[raw]; ok {
		return nil, err
	}

	dim := c.layout.Dimensions(page)
	zoom := c.PixelZoom(class)
	w := int(math.Ceil(dim.Width * zoom))
	h := int(math.Ceil(dim.Height * zoom))
	req := raster.Request{
		Page:         page,
		DisplayWidth: w,
		TileWidth:    w,
		TileHeight:   h,
		Zoom:         zoom,
		Format:       c.cfg.Format,
	}

	img, err := c.fetch(ctx, req)
	if err != nil {
		err = fmt.Errorf("%w: %v: %w", ErrMissing, key, err)
		c.failed[raw] = err
		c.log().Warn("snapshot fetch failed", "key", key, "err", err)
		return nil, err
	}
	c.store.Snapshots.Set(key, img)
	return img, nil
}
