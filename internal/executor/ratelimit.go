package executor

import (
	"context"
	"time"
)

// RateLimiter bounds calls to a fixed quota per rolling window using a
// counting semaphore. When the quota is exhausted, Acquire blocks until the
// next window refill; blocked callers are woken in FIFO order by the
// runtime, so nobody starves. Waits are cancellable through the caller's
// context so a stuck wait cannot hang an operation past its deadline.
type RateLimiter struct {
	slots  chan struct{}
	window time.Duration
	done   chan struct{}
}

// NewRateLimiter creates a limiter allowing requestsPerWindow acquisitions
// per window. A non-positive quota falls back to 10 per second, the usual
// exchange REST allowance.
func NewRateLimiter(requestsPerWindow int, window time.Duration) *RateLimiter {
	if requestsPerWindow <= 0 {
		requestsPerWindow = 10
	}
	if window <= 0 {
		window = time.Second
	}

	rl := &RateLimiter{
		slots:  make(chan struct{}, requestsPerWindow),
		window: window,
		done:   make(chan struct{}),
	}
	for i := 0; i < requestsPerWindow; i++ {
		rl.slots <- struct{}{}
	}
	go rl.refillLoop()
	return rl
}

// Acquire takes one slot, blocking until one is available or ctx is done.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	select {
	case <-rl.slots:
		return nil
	case <-ctx.Done():
		return ErrRateLimitWait.WithDetails(ctx.Err().Error())
	case <-rl.done:
		return ErrRateLimitWait.WithDetails("rate limiter stopped")
	}
}

// TryAcquire takes a slot without blocking.
func (rl *RateLimiter) TryAcquire() bool {
	select {
	case <-rl.slots:
		return true
	default:
		return false
	}
}

// Stop terminates the refill loop. Pending Acquire calls return an error.
func (rl *RateLimiter) Stop() {
	select {
	case <-rl.done:
	default:
		close(rl.done)
	}
}

func (rl *RateLimiter) refillLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.refill()
		case <-rl.done:
			return
		}
	}
}

// refill tops the semaphore back up to capacity.
func (rl *RateLimiter) refill() {
	for {
		select {
		case rl.slots <- struct{}{}:
		default:
			return
		}
	}
}
