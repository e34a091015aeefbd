package tile

import (
	"image"
	"sync"
)

// Pool recycles RGBA buffers grouped by size. Tiles come in a handful of
// sizes (full tiles, right-edge tiles, thumbnails), so a disposed tile's
// buffer is usually reused by the next fetch.
//
// Pool is safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	buckets map[poolKey][]*image.RGBA
	maxSize int
}

type poolKey struct {
	width  int
	height int
}

// NewPool creates a pool retaining at most maxPerBucket buffers per size.
// A maxPerBucket of 0 means unlimited.
func NewPool(maxPerBucket int) *Pool {
	return &Pool{
		buckets: make(map[poolKey][]*image.RGBA),
		maxSize: maxPerBucket,
	}
}

// Get returns a cleared width x height buffer.
func (p *Pool) Get(width, height int) *image.RGBA {
	key := poolKey{width: width, height: height}

	p.mu.Lock()
	bucket := p.buckets[key]
	if n := len(bucket); n > 0 {
		buf := bucket[n-1]
		p.buckets[key] = bucket[:n-1]
		p.mu.Unlock()
		clear(buf.Pix)
		return buf
	}
	p.mu.Unlock()

	return image.NewRGBA(image.Rect(0, 0, width, height))
}

// Put hands buf back for reuse. Buffers beyond the bucket limit are dropped.
func (p *Pool) Put(buf *image.RGBA) {
	if buf == nil {
		return
	}
	key := poolKey{width: buf.Rect.Dx(), height: buf.Rect.Dy()}

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[key]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.buckets[key] = append(bucket, buf)
}

// Len returns the number of idle buffers held.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, b := range p.buckets {
		n += len(b)
	}
	return n
}
