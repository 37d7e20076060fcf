package eventbus

import (
	"context"
	"sync"
)

// Poster marshals work onto a single foreground goroutine.
//
// Post is safe from any goroutine and never blocks or drops; the queued
// functions run in order on whichever goroutine calls Run or Drain.
type Poster struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
}

func NewPoster() *Poster {
	return &Poster{wake: make(chan struct{}, 1)}
}

// Post queues fn. It reports false once the poster is closed.
func (p *Poster) Post(fn func()) bool {
	if fn == nil {
		return true
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.queue = append(p.queue, fn)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return true
}

// Drain runs everything queued so far and returns how many functions ran.
func (p *Poster) Drain() int {
	p.mu.Lock()
	q := p.queue
	p.queue = nil
	p.mu.Unlock()

	for _, fn := range q {
		fn()
	}
	return len(q)
}

// Run drains the queue until ctx is done, then closes the poster and runs
// whatever is still pending.
func (p *Poster) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.Close()
			p.Drain()
			return ctx.Err()
		case <-p.wake:
			p.Drain()
		}
	}
}

// Close rejects further posts. Pending functions stay queued for Drain.
func (p *Poster) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}
