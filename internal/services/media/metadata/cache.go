package metadata

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"mediagate/internal/domain/ports"
	"mediagate/internal/metrics"
)

const (
	defaultCacheTTL        = 15 * time.Minute
	defaultStaleTTL        = time.Hour
	defaultMaxEntries      = 500
	maxBackgroundRefreshes = 4
	refreshTimeout         = 10 * time.Second
)

type cachedInfo struct {
	info        ports.ContentInfo
	updatedAt   time.Time
	expiresAt   time.Time
	staleUntil  time.Time
	refreshOnce sync.Once // one background refresh per stale period
}

// CacheOption configures the lookup cache.
type CacheOption func(*CachedLookup)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CachedLookup) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithStaleTTL(ttl time.Duration) CacheOption {
	return func(c *CachedLookup) {
		if ttl > 0 {
			c.staleTTL = ttl
		}
	}
}

func WithMaxEntries(n int) CacheOption {
	return func(c *CachedLookup) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

func WithRedis(backend *RedisCacheBackend) CacheOption {
	return func(c *CachedLookup) {
		c.redis = backend
	}
}

// CachedLookup decorates a MetadataAPI with a stale-while-revalidate cache.
// Fresh entries answer directly; stale entries answer immediately and kick
// off one bounded background refresh; entries past the stale window fall
// through to the upstream.
type CachedLookup struct {
	upstream   ports.MetadataAPI
	redis      *RedisCacheBackend
	ttl        time.Duration
	staleTTL   time.Duration
	maxEntries int
	refreshSem *semaphore.Weighted

	mu      sync.Mutex
	entries map[string]*cachedInfo
}

func NewCache(upstream ports.MetadataAPI, opts ...CacheOption) *CachedLookup {
	cache := &CachedLookup{
		upstream:   upstream,
		ttl:        defaultCacheTTL,
		staleTTL:   defaultStaleTTL,
		maxEntries: defaultMaxEntries,
		refreshSem: semaphore.NewWeighted(maxBackgroundRefreshes),
		entries:    make(map[string]*cachedInfo),
	}
	for _, opt := range opts {
		opt(cache)
	}
	if cache.staleTTL <= cache.ttl {
		cache.staleTTL = cache.ttl * 3
	}
	return cache
}

func (c *CachedLookup) Lookup(ctx context.Context, contentID string) (ports.ContentInfo, error) {
	now := time.Now()
	info, found, needsRefresh := c.lookup(ctx, contentID, now)
	if found {
		if needsRefresh {
			metrics.MetadataCacheHits.WithLabelValues("stale").Inc()
			go c.refresh(contentID)
		} else {
			metrics.MetadataCacheHits.WithLabelValues("hit").Inc()
		}
		return info, nil
	}
	metrics.MetadataCacheHits.WithLabelValues("miss").Inc()

	info, err := c.upstream.Lookup(ctx, contentID)
	if err != nil {
		return ports.ContentInfo{}, err
	}
	c.store(ctx, contentID, info, now)
	return info, nil
}

// lookup reports (info, found, needsRefresh). Redis answers count as fresh
// and are copied into memory so staleness tracking works without
// re-querying the backend.
func (c *CachedLookup) lookup(ctx context.Context, key string, now time.Time) (ports.ContentInfo, bool, bool) {
	if c.redis != nil {
		info, found, err := c.redis.Get(ctx, key)
		if err == nil && found {
			c.storeMemoryOnly(key, info, now)
			return info, true, false
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return ports.ContentInfo{}, false, false
	}
	if now.Before(entry.expiresAt) {
		return entry.info, true, false
	}
	if now.Before(entry.staleUntil) {
		needsRefresh := false
		entry.refreshOnce.Do(func() {
			needsRefresh = true
		})
		return entry.info, true, needsRefresh
	}
	delete(c.entries, key)
	return ports.ContentInfo{}, false, false
}

func (c *CachedLookup) store(ctx context.Context, key string, info ports.ContentInfo, now time.Time) {
	if c.redis != nil {
		if err := c.redis.Set(ctx, key, info, c.ttl); err != nil {
			slog.Debug("metadata redis store failed", slog.Any("error", err))
		}
	}
	c.storeMemoryOnly(key, info, now)
}

func (c *CachedLookup) storeMemoryOnly(key string, info ports.ContentInfo, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cachedInfo{
		info:       info,
		updatedAt:  now,
		expiresAt:  now.Add(c.ttl),
		staleUntil: now.Add(c.staleTTL),
	}
	c.trimLocked(now)
}

func (c *CachedLookup) trimLocked(now time.Time) {
	for key, entry := range c.entries {
		if now.After(entry.staleUntil) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) <= c.maxEntries {
		return
	}

	type pair struct {
		key   string
		entry *cachedInfo
	}
	items := make([]pair, 0, len(c.entries))
	for key, entry := range c.entries {
		items = append(items, pair{key: key, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.updatedAt.Before(items[j].entry.updatedAt)
	})
	for i := 0; i < len(items)-c.maxEntries; i++ {
		delete(c.entries, items[i].key)
	}
}

func (c *CachedLookup) refresh(contentID string) {
	ctx := context.Background()
	if err := c.refreshSem.Acquire(ctx, 1); err != nil {
		return
	}
	defer c.refreshSem.Release(1)

	refreshCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	info, err := c.upstream.Lookup(refreshCtx, contentID)
	if err != nil {
		slog.Debug("metadata refresh failed",
			slog.String("contentId", contentID),
			slog.Any("error", err),
		)
		return
	}
	c.store(refreshCtx, contentID, info, time.Now())
}
