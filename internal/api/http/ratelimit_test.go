package apihttp

import (
	"fmt"
	"testing"
	"time"
)

func TestFixedWindow_ExhaustsPoints(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	limiter := newFixedWindow(3, time.Minute)
	limiter.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow() {
		t.Fatal("fourth request should be rejected")
	}
}

func TestFixedWindow_ResetsAfterWindow(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	limiter := newFixedWindow(2, time.Minute)
	limiter.now = func() time.Time { return clock }

	limiter.Allow()
	limiter.Allow()
	if limiter.Allow() {
		t.Fatal("window should be spent")
	}

	clock = clock.Add(time.Minute)
	if !limiter.Allow() {
		t.Fatal("new window should allow again")
	}
}

func TestFixedWindow_SharedAcrossCallers(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	limiter := newFixedWindow(1, time.Minute)
	limiter.now = func() time.Time { return clock }

	if !limiter.Allow() {
		t.Fatal("first caller should pass")
	}
	// A different caller draws from the same counter.
	if limiter.Allow() {
		t.Fatal("second caller should be rejected")
	}
}

func TestFixedWindow_ZeroPointsDisabled(t *testing.T) {
	limiter := newFixedWindow(0, time.Minute)
	for i := 0; i < 100; i++ {
		if !limiter.Allow() {
			t.Fatal("disabled limiter must always allow")
		}
	}
}

func TestFixedWindow_RetryAfter(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	limiter := newFixedWindow(1, time.Minute)
	limiter.now = func() time.Time { return clock }

	if got := limiter.RetryAfter(); got != 0 {
		t.Fatalf("RetryAfter before first request = %v, want 0", got)
	}

	limiter.Allow()
	clock = clock.Add(10 * time.Second)
	if got := limiter.RetryAfter(); got != 50*time.Second {
		t.Fatalf("RetryAfter = %v, want 50s", got)
	}

	clock = clock.Add(2 * time.Minute)
	if got := limiter.RetryAfter(); got != 0 {
		t.Fatalf("RetryAfter past window = %v, want 0", got)
	}
}

func TestKeyedWindow_IndependentKeys(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	limiter := newKeyedWindow(2, 10*time.Second)
	limiter.now = func() time.Time { return clock }

	limiter.Allow("10.0.0.1")
	limiter.Allow("10.0.0.1")
	if limiter.Allow("10.0.0.1") {
		t.Fatal("10.0.0.1 window should be spent")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("10.0.0.2 must have its own window")
	}
}

func TestKeyedWindow_ResetsAfterWindow(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	limiter := newKeyedWindow(1, 10*time.Second)
	limiter.now = func() time.Time { return clock }

	limiter.Allow("10.0.0.1")
	if limiter.Allow("10.0.0.1") {
		t.Fatal("window should be spent")
	}

	clock = clock.Add(10 * time.Second)
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("new window should allow again")
	}
}

func TestKeyedWindow_RetryAfter(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	limiter := newKeyedWindow(1, 10*time.Second)
	limiter.now = func() time.Time { return clock }

	if got := limiter.RetryAfter("10.0.0.1"); got != 0 {
		t.Fatalf("RetryAfter for unseen key = %v, want 0", got)
	}

	limiter.Allow("10.0.0.1")
	clock = clock.Add(4 * time.Second)
	if got := limiter.RetryAfter("10.0.0.1"); got != 6*time.Second {
		t.Fatalf("RetryAfter = %v, want 6s", got)
	}
	if got := limiter.RetryAfter("10.0.0.2"); got != 0 {
		t.Fatalf("RetryAfter for other key = %v, want 0", got)
	}
}

func TestKeyedWindow_PrunesExpiredEntries(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	limiter := newKeyedWindow(1, 10*time.Second)
	limiter.now = func() time.Time { return clock }

	for i := 0; i < keyedWindowPruneSize+10; i++ {
		limiter.Allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	clock = clock.Add(time.Minute)
	limiter.Allow("fresh-key")

	limiter.mu.Lock()
	size := len(limiter.entries)
	limiter.mu.Unlock()
	if size > 2 {
		t.Fatalf("expired entries not pruned, map size %d", size)
	}
}

func TestKeyedWindow_ZeroPointsDisabled(t *testing.T) {
	limiter := newKeyedWindow(0, time.Second)
	for i := 0; i < 50; i++ {
		if !limiter.Allow("same") {
			t.Fatal("disabled limiter must always allow")
		}
	}
}
