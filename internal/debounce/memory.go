package debounce

import (
	"context"
	"sync"
	"time"
)

// MemoryGate is a single-process Gate.
type MemoryGate struct {
	mu       sync.Mutex
	lastHit  map[string]time.Time
	now      func() time.Time
	interval time.Duration
}

// NewMemoryGate returns a gate with the given interval. A nil clock uses time.Now.
func NewMemoryGate(interval time.Duration, now func() time.Time) *MemoryGate {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &MemoryGate{
		lastHit:  make(map[string]time.Time),
		now:      now,
		interval: interval,
	}
}

func (g *MemoryGate) Allow(_ context.Context, userID, field string) (bool, time.Duration, error) {
	if g == nil {
		return true, 0, nil
	}
	k := key(userID, field)
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	if last, ok := g.lastHit[k]; ok {
		if elapsed := now.Sub(last); elapsed < g.interval {
			return false, g.interval - elapsed, nil
		}
	}
	g.lastHit[k] = now
	g.evictLocked(now)
	return true, 0, nil
}

func (g *MemoryGate) Release(_ context.Context, userID, field string) error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	delete(g.lastHit, key(userID, field))
	g.mu.Unlock()
	return nil
}

// evictLocked drops stale entries once the map grows so it stays bounded by
// the number of keys active within one interval.
func (g *MemoryGate) evictLocked(now time.Time) {
	if len(g.lastHit) < 1024 {
		return
	}
	for k, t := range g.lastHit {
		if now.Sub(t) >= g.interval {
			delete(g.lastHit, k)
		}
	}
}
