// Package compose assembles canvas tiles from page rasters.
//
// A canvas tile is an unscaled T x T square of the stacked document. Its
// coverage entry names up to three page rows; the compositor fetches each
// one through the raw tier, draws it at its translation and clips it to the
// page content the row holds. Tiles are rendered at PixelZoom * class
// device pixels per canvas pixel.
package compose

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"math"

	"tilescope/internal/logging"
	"tilescope/internal/workpool"
	"tilescope/pkg/cache"
	"tilescope/pkg/coverage"
	"tilescope/pkg/layout"
	"tilescope/pkg/raster"
	"tilescope/pkg/tile"
)

var (
	// ErrMissing reports that a raster needed by a tile could not be
	// produced. No partial tile is returned; the caller retries next frame.
	ErrMissing = errors.New("compose: raster missing")

	// ErrPending reports that a raster is still being fetched in the
	// background.
	ErrPending = errors.New("compose: raster pending")
)

// Config tunes a Compositor.
type Config struct {
	// PixelZoom is the device pixels per canvas pixel at scale class 1.
	PixelZoom float64
	// ThumbnailZoom is the device pixels per canvas pixel of stand-ins.
	ThumbnailZoom float64
	// Format is the session pixel format requested from the fetcher.
	Format tile.Format
	// Workers enables background fetching when positive.
	Workers int
	// Logger overrides the shared logger.
	Logger *slog.Logger
}

// Compositor builds composited, thumbnail and snapshot images and stores
// them in the tiers of one document. All methods except Close must be
// called from the render goroutine.
type Compositor struct {
	cov     *coverage.Map
	layout  *layout.Layout
	fetcher raster.Fetcher
	store   *cache.Store
	pool    *tile.Pool
	cfg     Config

	// failed memoizes raw keys that failed this frame.
	failed map[tile.RawKey]error
	class  tile.ScaleClass

	async *asyncFetcher
}

// New returns a compositor drawing from fetcher into store.
func New(cov *coverage.Map, fetcher raster.Fetcher, store *cache.Store, cfg Config) *Compositor {
	if !(cfg.PixelZoom > 0) {
		cfg.PixelZoom = 2
	}
	if !(cfg.ThumbnailZoom > 0) {
		cfg.ThumbnailZoom = 0.5
	}
	c := &Compositor{
		cov:     cov,
		layout:  cov.Layout(),
		fetcher: fetcher,
		store:   store,
		pool:    tile.NewPool(16),
		cfg:     cfg,
		failed:  make(map[tile.RawKey]error),
		class:   1,
	}
	if cfg.Workers > 0 {
		c.async = newAsyncFetcher(workpool.New(cfg.Workers), fetcher, c.pool)
	}
	return c
}

func (c *Compositor) log() *slog.Logger {
	return logging.Or(c.cfg.Logger)
}

// PixelZoom returns the device pixels per canvas pixel for class.
func (c *Compositor) PixelZoom(class tile.ScaleClass) float64 {
	return c.cfg.PixelZoom * float64(max(class, 1))
}

// TilePixels returns the device edge length of a tile rendered at zoom.
func (c *Compositor) TilePixels(zoom float64) int {
	return int(math.Ceil(float64(c.cov.TileSize()) * zoom))
}

// BeginFrame starts a render frame for class. It forgets last frame's
// failures and moves finished background fetches into the raw tier.
func (c *Compositor) BeginFrame(class tile.ScaleClass) {
	clear(c.failed)
	c.class = class
	c.Drain()
}

// Composite returns the composited tile at (row, col) for class, from the
// grid tier or freshly built. The returned image is borrowed from the tier.
func (c *Compositor) Composite(ctx context.Context, row, col int, class tile.ScaleClass) (*tile.Image, error) {
	key := tile.GridKey{Scale: class, Row: row, Col: col}
	if img, ok := c.store.Grid.Get(key); ok {
		return img, nil
	}

	img, err := c.compose(ctx, row, col, c.PixelZoom(class), c.cachedRaw(class))
	if err != nil {
		return nil, err
	}
	c.store.Grid.Set(key, img)
	return img, nil
}

// rawFunc returns the raster of one contribution. A nil image with a nil
// error means the column lies past the page's right edge. The bool reports
// whether the caller owns the image and must dispose it after drawing.
type rawFunc func(ctx context.Context, page, pageRow, col int, zoom float64) (*tile.Image, bool, error)

// compose draws every contribution of canvas row into a fresh tile.
func (c *Compositor) compose(ctx context.Context, row, col int, zoom float64, raw rawFunc) (*tile.Image, error) {
	size := c.TilePixels(zoom)
	out := tile.NewImage(size, size, c.pool)
	dst := out.RGBA()

	// A pending raster does not stop the loop, so every missing raster of
	// the tile is queued in the same frame.
	var pending error
	for _, contrib := range c.cov.Entry(row).Contributions() {
		src, owned, err := raw(ctx, contrib.Page, contrib.PageRow, col, zoom)
		if errors.Is(err, ErrPending) {
			pending = cmp.Or(pending, err)
			continue
		}
		if err != nil {
			out.Dispose()
			return nil, err
		}
		if src == nil {
			continue
		}
		pix := src.RGBA()
		if pix == nil {
			out.Dispose()
			return nil, fmt.Errorf("%w: page %d row %d raster was disposed", ErrMissing, contrib.Page, contrib.PageRow)
		}

		offsetY, height := c.cov.Placement(contrib)
		top := int(math.Round(offsetY * zoom))
		bottom := int(math.Round((offsetY + height) * zoom))
		clip := image.Rect(0, top, pix.Rect.Dx(), bottom).Intersect(dst.Rect)
		if !clip.Empty() {
			draw.Draw(dst, clip, pix, image.Pt(0, clip.Min.Y-top), draw.Over)
		}
		if owned {
			src.Dispose()
		}
	}
	if pending != nil {
		out.Dispose()
		return nil, pending
	}
	return out, nil
}

// window returns the fetch request for one page tile at zoom, or false
// when col lies entirely past the page's right edge.
func (c *Compositor) window(page, pageRow, col int, zoom float64) (raster.Request, bool) {
	dim := c.layout.Dimensions(page)
	T := float64(c.cov.TileSize())
	size := c.TilePixels(zoom)

	pageWidth := dim.Width * zoom
	tileStart := float64(col) * T * zoom
	if col < 0 || tileStart >= pageWidth {
		return raster.Request{}, false
	}
	width := min(size, int(math.Ceil(pageWidth-tileStart)))

	return raster.Request{
		Page:         page,
		OriginRow:    -int64(math.Round(float64(pageRow) * T * zoom)),
		OriginCol:    -int64(math.Round(tileStart)),
		DisplayWidth: int(math.Ceil(pageWidth)),
		TileWidth:    width,
		TileHeight:   size,
		Zoom:         zoom,
		Format:       c.cfg.Format,
	}, true
}

// fetch runs req synchronously and decodes the result.
func (c *Compositor) fetch(ctx context.Context, req raster.Request) (*tile.Image, error) {
	data, err := c.fetcher.FetchTile(ctx, req)
	if err != nil {
		return nil, err
	}
	return tile.Decode(data, req.TileWidth, req.TileHeight, req.Format, c.pool)
}

// cachedRaw resolves rasters through the raw tier at class.
func (c *Compositor) cachedRaw(class tile.ScaleClass) rawFunc {
	return func(ctx context.Context, page, pageRow, col int, zoom float64) (*tile.Image, bool, error) {
		req, ok := c.window(page, pageRow, col, zoom)
		if !ok {
			return nil, false, nil
		}
		key := tile.RawKey{Page: page, Scale: class, Row: pageRow, Col: col}
		if img, ok := c.store.Raw.Get(key); ok {
			return img, false, nil
		}
		if err, ok := c.failed[key]; ok {
			return nil, false, err
		}

		if c.async != nil {
			if c.async.request(key, req) {
				c.log().Debug("raster queued", "key", key)
			}
			return nil, false, fmt.Errorf("%w: %v", ErrPending, key)
		}

		img, err := c.fetch(ctx, req)
		if err != nil {
			err = fmt.Errorf("%w: %v: %w", ErrMissing, key, err)
			c.failed[key] = err
			c.log().Warn("raster fetch failed", "key", key, "err", err)
			return nil, false, err
		}
		c.store.Raw.Set(key, img)
		return img, false, nil
	}
}

// directRaw fetches rasters without touching the raw tier. The caller
// owns and disposes each image.
func (c *Compositor) directRaw(ctx context.Context, page, pageRow, col int, zoom float64) (*tile.Image, bool, error) {
	req, ok := c.window(page, pageRow, col, zoom)
	if !ok {
		return nil, false, nil
	}
	key := tile.RawKey{Page: page, Scale: 0, Row: pageRow, Col: col}
	if err, ok := c.failed[key]; ok {
		return nil, false, err
	}
	img, err := c.fetch(ctx, req)
	if err != nil {
		err = fmt.Errorf("%w: %v: %w", ErrMissing, key, err)
		c.failed[key] = err
		c.log().Warn("thumbnail fetch failed", "key", key, "err", err)
		return nil, false, err
	}
	return img, true, nil
}

// Close stops background fetching and disposes results still in flight.
// The tiers belong to the caller and are left untouched.
func (c *Compositor) Close() {
	if c.async != nil {
		c.async.close()
	}
}
