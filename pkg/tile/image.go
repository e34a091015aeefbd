package tile

import (
	"image"
	"sync/atomic"
)

// Image is an owned handle to decoded pixels. The cache tier holding an
// Image is its sole owner; everyone else borrows it until the tier removes
// it. After Dispose the pixels are gone and RGBA returns nil, so a stale
// borrower draws nothing instead of reading recycled memory.
type Image struct {
	pix    atomic.Pointer[image.RGBA]
	pool   *Pool
	width  int
	height int
}

// NewImage returns a cleared width x height image. Its buffer comes from
// pool when pool is non-nil and returns there on Dispose.
func NewImage(width, height int, pool *Pool) *Image {
	var rgba *image.RGBA
	if pool != nil {
		rgba = pool.Get(width, height)
	} else {
		rgba = image.NewRGBA(image.Rect(0, 0, width, height))
	}
	return wrap(rgba, pool)
}

// Wrap takes ownership of rgba. Disposing the image drops the buffer.
func Wrap(rgba *image.RGBA) *Image {
	return wrap(rgba, nil)
}

func wrap(rgba *image.RGBA, pool *Pool) *Image {
	img := &Image{
		pool:   pool,
		width:  rgba.Rect.Dx(),
		height: rgba.Rect.Dy(),
	}
	img.pix.Store(rgba)
	return img
}

// RGBA returns the pixels, or nil once the image has been disposed.
func (img *Image) RGBA() *image.RGBA {
	if img == nil {
		return nil
	}
	return img.pix.Load()
}

// Width returns the width the image was created with.
func (img *Image) Width() int { return img.width }

// Height returns the height the image was created with.
func (img *Image) Height() int { return img.height }

// Disposed reports whether Dispose has been called.
func (img *Image) Disposed() bool {
	return img.pix.Load() == nil
}

// Dispose releases the pixels. It is safe to call more than once.
func (img *Image) Dispose() {
	if img == nil {
		return
	}
	rgba := img.pix.Swap(nil)
	if rgba != nil && img.pool != nil {
		img.pool.Put(rgba)
	}
}
