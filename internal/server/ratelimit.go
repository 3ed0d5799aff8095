package server

import (
	"sync"
	"time"
)

// RateLimiter throttles stream starts per client IP over a sliding window.
// The key is the IP only, not IP:sessionID, so a client cannot bypass
// throttling by rotating session IDs.
type RateLimiter struct {
	mu      sync.Mutex
	starts  map[string][]time.Time
	limit   int
	window  time.Duration
	stopped chan struct{}
}

// NewRateLimiter creates a rate limiter allowing limit starts per window
// and starts the background eviction goroutine.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		starts:  make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		stopped: make(chan struct{}),
	}
	go rl.evictLoop()
	return rl
}

// Allow reports whether the client identified by key may start another
// stream now, recording the start when it may.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	recent := pruneBefore(r.starts[key], now.Add(-r.window))
	if len(recent) >= r.limit {
		r.starts[key] = recent
		return false
	}
	r.starts[key] = append(recent, now)
	return true
}

// Stop terminates the eviction goroutine.
func (r *RateLimiter) Stop() {
	close(r.stopped)
}

// evictLoop periodically drops idle keys so the map cannot grow without
// bound across many distinct clients.
func (r *RateLimiter) evictLoop() {
	ticker := time.NewTicker(r.window)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopped:
			return
		case <-ticker.C:
		}

		r.mu.Lock()
		cutoff := time.Now().Add(-r.window)
		for key, times := range r.starts {
			fresh := pruneBefore(times, cutoff)
			if len(fresh) == 0 {
				delete(r.starts, key)
			} else {
				r.starts[key] = fresh
			}
		}
		r.mu.Unlock()
	}
}

func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	var fresh []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	return fresh
}
