package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Memory is a per-key token-bucket limiter held in process memory. Each
// key gets its own bucket; idle buckets are swept periodically so the
// map does not grow with every client ever seen.
type Memory struct {
	rps   int
	burst int

	mu      sync.RWMutex
	clients map[string]*rate.Limiter
	stop    chan struct{}
}

// NewMemory creates a memory limiter allowing rps sustained requests per
// second with the given burst per key.
func NewMemory(rps, burst int) *Memory {
	m := &Memory{
		rps:     rps,
		burst:   burst,
		clients: make(map[string]*rate.Limiter),
		stop:    make(chan struct{}),
	}
	go m.cleanup()
	return m
}

// Allow reports whether the key may proceed. It never fails.
func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	if m.limiterFor(key).Allow() {
		return true, 0, nil
	}
	return false, time.Second, nil
}

// Close stops the sweep goroutine. The limiter stays usable.
func (m *Memory) Close() {
	close(m.stop)
}

func (m *Memory) limiterFor(key string) *rate.Limiter {
	m.mu.RLock()
	limiter, exists := m.clients[key]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		if limiter, exists = m.clients[key]; !exists {
			limiter = rate.NewLimiter(rate.Limit(m.rps), m.burst)
			m.clients[key] = limiter
		}
		m.mu.Unlock()
	}
	return limiter
}

func (m *Memory) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

// sweep drops every bucket that has refilled completely, meaning the key
// has been idle at least burst/rps seconds.
func (m *Memory) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, limiter := range m.clients {
		if limiter.TokensAt(now) >= float64(m.burst) {
			delete(m.clients, key)
		}
	}
}
