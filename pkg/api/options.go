package api

import (
	"log/slog"

	"tilescope/pkg/cache"
	"tilescope/pkg/tile"
)

// ZoomMode selects how raster resolution follows the viewport scale.
type ZoomMode int

const (
	// ZoomLive re-rasterizes at the ceiling of the scale once a gesture
	// ends.
	ZoomLive ZoomMode = iota
	// ZoomFixed always rasterizes at scale class 1 and lets the display
	// stretch tiles. It trades sharpness for fewer fetches.
	ZoomFixed
)

func (m ZoomMode) String() string {
	if m == ZoomFixed {
		return "fixed"
	}
	return "live"
}

// LayoutMode selects what a frame is made of.
type LayoutMode int

const (
	// LayoutTiled draws composited canvas tiles.
	LayoutTiled LayoutMode = iota
	// LayoutPaged draws each visible page as one whole-page snapshot.
	LayoutPaged
)

func (m LayoutMode) String() string {
	if m == LayoutPaged {
		return "paged"
	}
	return "tiled"
}

// ViewerOptions configures a Viewer.
type ViewerOptions struct {
	// TileSize is the canvas tile edge in unscaled pixels.
	// Default: 256
	TileSize int

	// PageGap is the vertical space between pages in unscaled pixels.
	// Default: 10
	PageGap float64

	// PixelZoom is the oversampling of rasters at scale class 1.
	// Default: 2
	PixelZoom float64

	// MinScale and MaxScale bound the viewport scale.
	// Default: 0.51 and 3.5
	MinScale float64
	MaxScale float64

	// ScreenWidth and ScreenHeight are the viewport size in screen pixels.
	// Default: 1080x1920
	ScreenWidth  float64
	ScreenHeight float64

	// DistanceFactor scales the composited-tile retention window, in
	// multiples of the ring's row count.
	// Default: 2
	DistanceFactor int

	// PageMargin widens the page retention window by this many screen
	// heights above and below the viewport.
	// Default: 1
	PageMargin float64

	// Format is the pixel format requested from the rasterizer.
	// Default: RGBA8888
	Format tile.Format

	// ZoomMode selects live or fixed raster resolution.
	// Default: ZoomLive
	ZoomMode ZoomMode

	// Workers enables background fetching when positive.
	// Default: 0 (fetch on the render goroutine)
	Workers int

	// ThumbnailZoom is the resolution of stand-in tiles.
	// Default: 0.5
	ThumbnailZoom float64

	// ThumbnailCapacity bounds the thumbnail tier.
	// Default: 100
	ThumbnailCapacity int

	// ThumbnailPolicy picks the thumbnail evicted when the tier is full.
	// Default: cache.ThumbLRU
	ThumbnailPolicy cache.ThumbPolicy

	// LayoutMode selects tiled or paged frames.
	// Default: LayoutTiled
	LayoutMode LayoutMode

	// Logger overrides the shared logger for this viewer.
	// Default: nil (shared logger)
	Logger *slog.Logger
}

// DefaultViewerOptions returns viewer options with sensible defaults.
func DefaultViewerOptions() ViewerOptions {
	return ViewerOptions{
		TileSize:          256,
		PageGap:           10,
		PixelZoom:         2,
		MinScale:          0.51,
		MaxScale:          3.5,
		ScreenWidth:       1080,
		ScreenHeight:      1920,
		DistanceFactor:    2,
		PageMargin:        1,
		Format:            tile.FormatRGBA8888,
		ZoomMode:          ZoomLive,
		ThumbnailZoom:     0.5,
		ThumbnailCapacity: 100,
		ThumbnailPolicy:   cache.ThumbLRU,
		LayoutMode:        LayoutTiled,
	}
}

// Option is a functional option for configuring ViewerOptions.
type Option func(*ViewerOptions)

// WithTileSize sets the canvas tile edge.
func WithTileSize(size int) Option {
	return func(o *ViewerOptions) {
		o.TileSize = size
	}
}

// WithPageGap sets the space between pages.
func WithPageGap(gap float64) Option {
	return func(o *ViewerOptions) {
		o.PageGap = gap
	}
}

// WithPixelZoom sets the raster oversampling at scale class 1.
func WithPixelZoom(zoom float64) Option {
	return func(o *ViewerOptions) {
		o.PixelZoom = zoom
	}
}

// WithScaleRange bounds the viewport scale.
func WithScaleRange(minScale, maxScale float64) Option {
	return func(o *ViewerOptions) {
		o.MinScale = minScale
		o.MaxScale = maxScale
	}
}

// WithScreen sets the viewport size in screen pixels.
func WithScreen(width, height float64) Option {
	return func(o *ViewerOptions) {
		o.ScreenWidth = width
		o.ScreenHeight = height
	}
}

// WithDistanceFactor sets the composited-tile retention window.
func WithDistanceFactor(k int) Option {
	return func(o *ViewerOptions) {
		o.DistanceFactor = k
	}
}

// WithPageMargin sets the page retention margin in screen heights.
func WithPageMargin(screens float64) Option {
	return func(o *ViewerOptions) {
		o.PageMargin = screens
	}
}

// WithFormat sets the session pixel format.
func WithFormat(f tile.Format) Option {
	return func(o *ViewerOptions) {
		o.Format = f
	}
}

// WithZoomMode selects live or fixed raster resolution.
func WithZoomMode(m ZoomMode) Option {
	return func(o *ViewerOptions) {
		o.ZoomMode = m
	}
}

// WithWorkers fetches rasters on n background goroutines.
func WithWorkers(n int) Option {
	return func(o *ViewerOptions) {
		o.Workers = n
	}
}

// WithThumbnails configures the stand-in tier.
func WithThumbnails(zoom float64, capacity int, policy cache.ThumbPolicy) Option {
	return func(o *ViewerOptions) {
		o.ThumbnailZoom = zoom
		o.ThumbnailCapacity = capacity
		o.ThumbnailPolicy = policy
	}
}

// WithLayoutMode selects tiled or paged frames.
func WithLayoutMode(m LayoutMode) Option {
	return func(o *ViewerOptions) {
		o.LayoutMode = m
	}
}

// WithLogger sets a logger for this viewer only.
func WithLogger(l *slog.Logger) Option {
	return func(o *ViewerOptions) {
		o.Logger = l
	}
}

// NewViewerOptions creates options from functional options.
func NewViewerOptions(opts ...Option) ViewerOptions {
	o := DefaultViewerOptions()
	o.Apply(opts...)
	return o
}

// Apply applies functional options to existing options.
func (o *ViewerOptions) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(o)
	}
}

// ClampScale limits scale to [MinScale, MaxScale].
func (o *ViewerOptions) ClampScale(scale float64) float64 {
	return min(max(scale, o.MinScale), o.MaxScale)
}

// ClassOf returns the scale class rasters use at scale.
func (o *ViewerOptions) ClassOf(scale float64) tile.ScaleClass {
	if o.ZoomMode == ZoomFixed {
		return 1
	}
	return tile.ClassOf(scale)
}
