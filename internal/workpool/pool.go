// Package workpool runs raster fetches on a fixed set of goroutines so the
// render loop never blocks on a slow rasterizer.
package workpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a fixed set of worker goroutines with per-worker queues. An idle
// worker steals from the other queues before blocking on its own.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	workers int
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// New starts a pool of workers goroutines. If workers is 0 or negative,
// GOMAXPROCS is used.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := max(workers*4, 8)

	p := &Pool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case fn := <-own:
			run(fn)
		default:
			if fn := p.steal(id); fn != nil {
				run(fn)
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case fn := <-own:
				run(fn)
			}
		}
	}
}

func run(fn func()) {
	if fn != nil {
		fn()
	}
}

// drain executes whatever is left in queue.
func (p *Pool) drain(queue chan func()) {
	for {
		select {
		case fn := <-queue:
			run(fn)
		default:
			return
		}
	}
}

func (p *Pool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case fn := <-p.queues[i]:
			return fn
		default:
		}
	}
	return nil
}

// Submit queues fn on the shortest queue. It reports false if the pool is
// closed and fn was not queued. Submit blocks while every queue is full.
func (p *Pool) Submit(fn func()) bool {
	if fn == nil || !p.running.Load() {
		return false
	}

	idx, shortest := 0, len(p.queues[0])
	for i := 1; i < p.workers; i++ {
		if n := len(p.queues[i]); n < shortest {
			idx, shortest = i, n
		}
	}

	select {
	case p.queues[idx] <- fn:
		return true
	case <-p.done:
		return false
	}
}

// Close stops accepting work, runs what is already queued and waits for
// the workers to exit. Close is safe to call multiple times.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// Running reports whether the pool accepts work.
func (p *Pool) Running() bool {
	return p.running.Load()
}

// Queued returns an approximate count of queued work items.
func (p *Pool) Queued() int {
	total := 0
	for _, q := range p.queues {
		total += len(q)
	}
	return total
}
