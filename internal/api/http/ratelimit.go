package apihttp

import (
	"sync"
	"time"
)

// fixedWindow is a shared-counter fixed-window rate limiter. All callers
// draw from one counter; the counter resets when the window rolls over.
type fixedWindow struct {
	mu       sync.Mutex
	points   int
	window   time.Duration
	count    int
	windowAt time.Time
	now      func() time.Time
}

func newFixedWindow(points int, window time.Duration) *fixedWindow {
	return &fixedWindow{
		points: points,
		window: window,
		now:    time.Now,
	}
}

// Allow consumes one point. Returns false when the current window is spent.
func (l *fixedWindow) Allow() bool {
	if l == nil || l.points <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.windowAt.IsZero() || now.Sub(l.windowAt) >= l.window {
		l.windowAt = now
		l.count = 0
	}
	if l.count >= l.points {
		return false
	}
	l.count++
	return true
}

// RetryAfter reports how long until the current window resets.
func (l *fixedWindow) RetryAfter() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.windowAt.IsZero() {
		return 0
	}
	remaining := l.window - l.now().Sub(l.windowAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// keyedWindow keeps an independent fixed window per key (client address).
// Expired entries are pruned opportunistically once the map grows.
type keyedWindow struct {
	mu      sync.Mutex
	points  int
	window  time.Duration
	entries map[string]*windowEntry
	now     func() time.Time
}

type windowEntry struct {
	count    int
	windowAt time.Time
}

const keyedWindowPruneSize = 1024

func newKeyedWindow(points int, window time.Duration) *keyedWindow {
	return &keyedWindow{
		points:  points,
		window:  window,
		entries: make(map[string]*windowEntry),
		now:     time.Now,
	}
}

// Allow consumes one point from the window belonging to key.
func (l *keyedWindow) Allow(key string) bool {
	if l == nil || l.points <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.entries) > keyedWindowPruneSize {
		l.pruneLocked(now)
	}

	entry, ok := l.entries[key]
	if !ok || now.Sub(entry.windowAt) >= l.window {
		l.entries[key] = &windowEntry{count: 1, windowAt: now}
		return true
	}
	if entry.count >= l.points {
		return false
	}
	entry.count++
	return true
}

// RetryAfter reports how long until the window belonging to key resets.
func (l *keyedWindow) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		return 0
	}
	remaining := l.window - l.now().Sub(entry.windowAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (l *keyedWindow) pruneLocked(now time.Time) {
	for key, entry := range l.entries {
		if now.Sub(entry.windowAt) >= l.window {
			delete(l.entries, key)
		}
	}
}
