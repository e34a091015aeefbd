package compose

import (
	"context"
	"fmt"
	"sync"

	"tilescope/internal/workpool"
	"tilescope/pkg/raster"
	"tilescope/pkg/tile"
)

// result is one finished background fetch.
type result struct {
	key tile.RawKey
	img *tile.Image
	err error
}

// asyncFetcher runs raw fetches on a worker pool. The pending set and the
// tiers are touched only by the render goroutine; workers hand results
// back over a channel.
type asyncFetcher struct {
	workers *workpool.Pool
	fetcher raster.Fetcher
	pool    *tile.Pool

	pending map[tile.RawKey]struct{}
	results chan result

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newAsyncFetcher(workers *workpool.Pool, fetcher raster.Fetcher, pool *tile.Pool) *asyncFetcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &asyncFetcher{
		workers: workers,
		fetcher: fetcher,
		pool:    pool,
		pending: make(map[tile.RawKey]struct{}),
		results: make(chan result, 256),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// request queues a fetch for key unless one is outstanding. It reports
// whether a new fetch was queued. Fetches outlive the frame that asked for
// them and run under the fetcher's own context.
func (a *asyncFetcher) request(key tile.RawKey, req raster.Request) bool {
	if _, ok := a.pending[key]; ok {
		return false
	}
	queued := a.workers.Submit(func() {
		r := result{key: key}
		data, err := a.fetcher.FetchTile(a.ctx, req)
		if err == nil {
			r.img, err = tile.Decode(data, req.TileWidth, req.TileHeight, req.Format, a.pool)
		}
		r.err = err

		select {
		case a.results <- r:
		case <-a.ctx.Done():
			r.img.Dispose()
		}
	})
	if queued {
		a.pending[key] = struct{}{}
	}
	return queued
}

// Pending returns the number of outstanding background fetches.
func (c *Compositor) Pending() int {
	if c.async == nil {
		return 0
	}
	return len(c.async.pending)
}

// Drain moves finished background fetches into the raw tier and returns
// how many were inserted. Results for a scale class other than the current
// one are disposed on arrival. Failures are remembered for the rest of the
// frame.
func (c *Compositor) Drain() int {
	if c.async == nil {
		return 0
	}
	n := 0
	for {
		select {
		case r := <-c.async.results:
			if c.accept(r) {
				n++
			}
		default:
			return n
		}
	}
}

// accept files one background result and reports whether it was inserted.
func (c *Compositor) accept(r result) bool {
	delete(c.async.pending, r.key)
	switch {
	case r.err != nil:
		c.failed[r.key] = fmt.Errorf("%w: %v: %w", ErrMissing, r.key, r.err)
		c.log().Warn("raster fetch failed", "key", r.key, "err", r.err)
		return false
	case r.key.Scale != c.class:
		r.img.Dispose()
		c.log().Debug("stale raster discarded", "key", r.key, "class", c.class)
		return false
	}
	c.store.Raw.Set(r.key, r.img)
	return true
}

// Wait blocks until every outstanding fetch has been accepted or ctx is
// done. Batch renderers use it to finish a frame without a display loop.
func (c *Compositor) Wait(ctx context.Context) error {
	if c.async == nil {
		return nil
	}
	for len(c.async.pending) > 0 {
		select {
		case r := <-c.async.results:
			c.accept(r)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (a *asyncFetcher) close() {
	a.once.Do(func() {
		a.cancel()
		a.workers.Close()
		for {
			select {
			case r := <-a.results:
				r.img.Dispose()
			default:
				return
			}
		}
	})
}
