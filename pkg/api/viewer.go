// Package api is the entry point for embedding the viewer.
//
// A Viewer shows one document at a time. It owns the document's layout,
// coverage map, cache tiers and compositor; nothing is shared between
// viewers. Feed it scroll and zoom changes with SetViewport and the pinch
// calls, and call RenderFrame once per display frame from a single render
// goroutine.
package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"tilescope/internal/logging"
	"tilescope/pkg/cache"
	"tilescope/pkg/compose"
	"tilescope/pkg/coverage"
	"tilescope/pkg/cull"
	"tilescope/pkg/layout"
	"tilescope/pkg/tile"
)

// document is everything built for one open source.
type document struct {
	src    Source
	layout *layout.Layout
	cov    *coverage.Map
	store  *cache.Store
	comp   *compose.Compositor
}

// Viewer displays a document through a tiled, cached pipeline.
type Viewer struct {
	opts ViewerOptions
	grid cull.Grid

	mu  sync.Mutex
	doc *document

	offsetX, offsetY float64
	scale            float64
	class            tile.ScaleClass
	pinching         bool
	// classChanged defers scale eviction to the next frame so images handed
	// out by the previous frame stay valid until then.
	classChanged bool

	// arena holds stand-ins owned by the last frame.
	arena []*tile.Image

	frames    uint64
	lastTiles int
	fallbacks int
}

// NewViewer creates a viewer with no document open.
func NewViewer(opts ...Option) *Viewer {
	o := NewViewerOptions(opts...)
	def := DefaultViewerOptions()
	if o.TileSize <= 0 {
		o.TileSize = def.TileSize
	}
	if o.DistanceFactor < 1 {
		o.DistanceFactor = 1
	}
	if !(o.ScreenWidth > 0) || !(o.ScreenHeight > 0) {
		o.ScreenWidth, o.ScreenHeight = def.ScreenWidth, def.ScreenHeight
	}
	if !(o.MinScale > 0) || o.MaxScale < o.MinScale {
		o.MinScale, o.MaxScale = def.MinScale, def.MaxScale
	}
	if !o.Format.IsValid() {
		o.Format = def.Format
	}

	v := &Viewer{
		opts: o,
		grid: cull.NewGrid(o.ScreenWidth, o.ScreenHeight, o.TileSize, o.MinScale),
	}
	v.scale = o.ClampScale(1)
	v.class = o.ClassOf(v.scale)
	return v
}

func (v *Viewer) log() *slog.Logger {
	return logging.Or(v.opts.Logger)
}

// Options returns the viewer's effective options.
func (v *Viewer) Options() ViewerOptions {
	return v.opts
}

// Grid returns the culling ring sized for the viewer's screen.
func (v *Viewer) Grid() cull.Grid {
	return v.grid
}

// Open lays out src and makes it the current document, closing any
// previous one. The viewport returns to the document top.
func (v *Viewer) Open(src Source) error {
	if src == nil {
		return &DocError{Op: "open", Err: errors.New("nil source")}
	}
	l, err := layout.Load(src, v.opts.PageGap)
	if err != nil {
		return &DocError{Op: "load layout", Err: err}
	}
	cov, err := coverage.Build(l, v.opts.TileSize)
	if err != nil {
		return &DocError{Op: "build coverage", Err: err}
	}

	store := cache.NewStore(v.opts.ThumbnailCapacity, v.opts.ThumbnailPolicy)
	comp := compose.New(cov, src, store, compose.Config{
		PixelZoom:     v.opts.PixelZoom,
		ThumbnailZoom: v.opts.ThumbnailZoom,
		Format:        v.opts.Format,
		Workers:       v.opts.Workers,
		Logger:        v.opts.Logger,
	})

	v.mu.Lock()
	defer v.mu.Unlock()

	v.closeLocked()
	v.doc = &document{src: src, layout: l, cov: cov, store: store, comp: comp}
	v.offsetX, v.offsetY = 0, 0
	v.pinching = false
	v.classChanged = false
	v.class = v.opts.ClassOf(v.scale)
	v.frames, v.lastTiles, v.fallbacks = 0, 0, 0

	v.log().Info("document opened",
		"pages", l.PageCount(),
		"rows", cov.Rows(),
		"height", l.TotalHeight(),
		"width", l.MaxWidth(),
		"mode", v.opts.LayoutMode,
	)
	return nil
}

// Close releases the current document and every cached image. Closing a
// viewer with nothing open is a no-op.
func (v *Viewer) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closeLocked()
	return nil
}

func (v *Viewer) closeLocked() {
	if v.doc == nil {
		return
	}
	v.releaseArena()
	v.doc.comp.Close()
	v.doc.store.Close()
	v.doc = nil
	v.log().Info("document closed", "frames", v.frames)
}

// SetViewport moves the view. offsetX and offsetY are the document offsets
// in canvas pixels, 0 at the top-left and negative as the document scrolls
// down or right. scale is clamped to the configured range. Outside a pinch
// a change of scale class takes effect on the next frame.
func (v *Viewer) SetViewport(offsetX, offsetY, scale float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.offsetX, v.offsetY = offsetX, offsetY
	v.scale = v.opts.ClampScale(scale)
	if !v.pinching {
		v.updateClass()
	}
}

// Viewport returns the current offsets and clamped scale.
func (v *Viewer) Viewport() (offsetX, offsetY, scale float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.offsetX, v.offsetY, v.scale
}

// Class returns the scale class frames are rasterized at.
func (v *Viewer) Class() tile.ScaleClass {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.class
}

// BeginPinch freezes the scale class. Until EndPinch the display stretches
// existing tiles instead of re-rasterizing.
func (v *Viewer) BeginPinch() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pinching = true
}

// EndPinch releases the scale class and adopts the class of the final
// scale.
func (v *Viewer) EndPinch() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pinching = false
	v.updateClass()
}

func (v *Viewer) updateClass() {
	class := v.opts.ClassOf(v.scale)
	if class == v.class {
		return
	}
	v.log().Info("scale class changed", "from", v.class, "to", class, "scale", v.scale)
	v.class = class
	v.classChanged = true
}

// Settle blocks until background fetches queued by earlier frames have
// landed in the cache, so the next frame needs no stand-ins for them.
func (v *Viewer) Settle(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.doc == nil {
		return ErrNotOpen
	}
	return v.doc.comp.Wait(ctx)
}

// Layout returns the open document's layout, or nil.
func (v *Viewer) Layout() *layout.Layout {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.doc == nil {
		return nil
	}
	return v.doc.layout
}

// Coverage returns the open document's coverage map, or nil.
func (v *Viewer) Coverage() *coverage.Map {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.doc == nil {
		return nil
	}
	return v.doc.cov
}

// Stats reports the viewer's cache and frame counters.
type Stats struct {
	Cache     cache.StoreStats
	Frames    uint64
	Tiles     int // tiles in the last frame
	Fallbacks int // stand-ins in the last frame
	Pending   int // background fetches in flight
	Class     tile.ScaleClass
}

// Stats returns current counters. It fails with ErrNotOpen when no
// document is open.
func (v *Viewer) Stats() (Stats, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.doc == nil {
		return Stats{}, ErrNotOpen
	}
	return Stats{
		Cache:     v.doc.store.Stats(),
		Frames:    v.frames,
		Tiles:     v.lastTiles,
		Fallbacks: v.fallbacks,
		Pending:   v.doc.comp.Pending(),
		Class:     v.class,
	}, nil
}
