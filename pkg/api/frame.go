package api

import (
	"context"
	"errors"
	"image"

	"tilescope/pkg/compose"
	"tilescope/pkg/cull"
)

// FrameTile is one image to draw this frame. Image is borrowed: it stays
// valid until the next RenderFrame or Close.
type FrameTile struct {
	Image *image.RGBA
	// Row and Col locate a canvas tile. Both are -1 for page snapshots.
	Row, Col int
	// Page is the page of a snapshot, -1 for canvas tiles.
	Page int
	// Dest is where Image goes on screen; it is stretched to fit.
	Dest cull.Rect
	// Fallback marks a low-resolution stand-in for a tile not ready yet.
	Fallback bool
}

// RenderFrame returns the images covering the screen for the current
// viewport and purges cache entries that moved out of reach. If ctx is
// cancelled mid-frame the tiles built so far are returned with ctx's
// error.
func (v *Viewer) RenderFrame(ctx context.Context) ([]FrameTile, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	d := v.doc
	if d == nil {
		return nil, ErrNotOpen
	}

	v.releaseArena()
	if v.classChanged {
		n := d.store.EvictScale(v.class)
		v.log().Debug("scale eviction", "class", v.class, "evicted", n)
		v.classChanged = false
	}
	d.comp.BeginFrame(v.class)
	v.frames++

	var tiles []FrameTile
	if v.opts.LayoutMode == LayoutPaged {
		tiles = v.pagedFrame(ctx, d)
	} else {
		tiles = v.tiledFrame(ctx, d)
	}
	v.evict(d)

	v.lastTiles = len(tiles)
	v.fallbacks = 0
	for _, t := range tiles {
		if t.Fallback {
			v.fallbacks++
		}
	}
	return tiles, ctx.Err()
}

func (v *Viewer) tiledFrame(ctx context.Context, d *document) []FrameTile {
	slots := v.grid.Visible(v.grid.RingOffset(v.offsetY), v.offsetX, v.scale)
	width := d.layout.MaxWidth()
	T := float64(v.opts.TileSize)

	tiles := make([]FrameTile, 0, len(slots))
	for _, s := range slots {
		if ctx.Err() != nil {
			break
		}
		if s.Row >= d.cov.Rows() || float64(s.Col)*T >= width {
			continue
		}

		ft := FrameTile{Row: s.Row, Col: s.Col, Page: -1, Dest: s.Dest}
		img, err := d.comp.Composite(ctx, s.Row, s.Col, v.class)
		if err == nil {
			ft.Image = img.RGBA()
			tiles = append(tiles, ft)
			continue
		}
		if !errors.Is(err, compose.ErrPending) {
			v.log().Debug("tile unavailable", "row", s.Row, "col", s.Col, "err", err)
		}

		stand, err := d.comp.StandIn(ctx, s.Row, s.Col)
		if err != nil {
			v.log().Debug("tile skipped", "row", s.Row, "col", s.Col, "err", err)
			continue
		}
		v.arena = append(v.arena, stand)
		ft.Image, ft.Fallback = stand.RGBA(), true
		tiles = append(tiles, ft)
	}
	return tiles
}

func (v *Viewer) pagedFrame(ctx context.Context, d *document) []FrameTile {
	top, bottom := v.grid.WindowY(v.offsetY, v.scale)

	var tiles []FrameTile
	for _, page := range d.layout.PagesInRange(top, bottom) {
		if ctx.Err() != nil {
			break
		}
		img, err := d.comp.Snapshot(ctx, page, v.class)
		if err != nil {
			v.log().Debug("page skipped", "page", page, "err", err)
			continue
		}
		dim := d.layout.Dimensions(page)
		tiles = append(tiles, FrameTile{
			Image: img.RGBA(),
			Row:   -1,
			Col:   -1,
			Page:  page,
			Dest: cull.Rect{
				X: v.scale * v.offsetX,
				Y: v.scale * (dim.Top() + v.offsetY),
				W: v.scale * dim.Width,
				H: v.scale * dim.Height,
			},
		})
	}
	return tiles
}

// evict drops composited tiles far from the viewport and page rasters
// outside the page margin.
func (v *Viewer) evict(d *document) {
	first, _ := v.grid.RowRange(v.offsetY, v.scale)
	rows := d.store.EvictDistantRows(first, v.grid.VerticalTiles*v.opts.DistanceFactor)

	top, bottom := v.grid.WindowY(v.offsetY, v.scale)
	margin := v.opts.PageMargin * v.opts.ScreenHeight / v.scale
	pages := d.store.EvictPagesOutside(d.layout.PagesInRange(top-margin, bottom+margin))

	if rows+pages > 0 {
		v.log().Debug("evicted", "tiles", rows, "rasters", pages, "row", first)
	}
}

func (v *Viewer) releaseArena() {
	for _, img := range v.arena {
		img.Dispose()
	}
	clear(v.arena)
	v.arena = v.arena[:0]
}
