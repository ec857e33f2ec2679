// Package catalog - cache.go holds the process-wide catalog state.
//
// DESIGN: Cache is constructed once at startup and passed by reference.
// Entries older than the refresh interval are stale. Lookup never refreshes
// (resolution is on the request hot path); Get and List refresh stale or
// forced entries by asking the provider which model ids it currently
// serves. Concurrent refreshes of one key are idempotent and the last
// write wins.
package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/gaia-chat/gaia-gateway/internal/config"
)

// RefreshFunc lists the model ids a provider currently serves.
type RefreshFunc func(ctx context.Context, provider string) ([]string, error)

// Cache is a mutex-guarded catalog with time-based invalidation.
type Cache struct {
	mu          sync.RWMutex
	entries     map[string]Entry
	now         func() time.Time
	refresh     RefreshFunc
	interval    time.Duration
	maxVersions int
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// WithRefresh sets the remote listing function. Without one, entries are static.
func WithRefresh(fn RefreshFunc) Option { return func(c *Cache) { c.refresh = fn } }

// WithInterval sets how long an entry stays fresh.
func WithInterval(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMaxVersions caps versions returned per key by List.
func WithMaxVersions(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxVersions = n
		}
	}
}

// NewCache creates a cache seeded with entries.
func NewCache(entries map[string]Entry, opts ...Option) *Cache {
	c := &Cache{
		entries:     make(map[string]Entry, len(entries)),
		now:         time.Now,
		interval:    config.DefaultCatalogRefreshInterval,
		maxVersions: config.DefaultCatalogMaxVersions,
	}
	for k, e := range entries {
		c.entries[NormalizeKey(k)] = e.clone()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the cached entry for key without refreshing.
func (c *Cache) Lookup(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[NormalizeKey(key)]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Keys returns every logical key, sorted.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stale reports whether e needs a refresh at the current time.
func (c *Cache) Stale(e Entry) bool {
	if e.RefreshedAt.IsZero() {
		return true
	}
	return c.now().Sub(e.RefreshedAt) >= c.interval
}

// Get returns the entry for key, refreshing it first when stale or forced.
// A failed refresh keeps the previous entry.
func (c *Cache) Get(ctx context.Context, key string, force bool) (Entry, bool) {
	e, ok := c.Lookup(key)
	if !ok {
		return Entry{}, false
	}
	if c.refresh == nil || (!force && !c.Stale(e)) {
		return e, true
	}

	ids, err := c.refresh(ctx, e.Provider)
	if err != nil {
		log.Warn().Err(err).Str("key", e.Key).Str("provider", e.Provider).Msg("catalog: refresh failed, keeping cached entry")
		return e, true
	}

	e = markAvailable(e, ids)
	e.RefreshedAt = c.now()

	c.mu.Lock()
	c.entries[NormalizeKey(key)] = e.clone()
	c.mu.Unlock()

	log.Debug().Str("key", e.Key).Int("listed", len(ids)).Msg("catalog: refreshed")
	return e, true
}

// List returns entries for keys in listing form: versions de-duplicated by
// id and capped. Unknown keys map to an empty entry. An empty keys slice
// lists every key.
func (c *Cache) List(ctx context.Context, keys []string, force bool) map[string]Entry {
	if len(keys) == 0 {
		keys = c.Keys()
	}
	out := make(map[string]Entry, len(keys))
	for _, raw := range keys {
		key := NormalizeKey(raw)
		if key == "" {
			continue
		}
		e, ok := c.Get(ctx, key, force)
		if !ok {
			out[key] = Entry{Key: key, DefaultTier: TierBest, Versions: []Version{}}
			continue
		}
		out[key] = c.listing(e)
	}
	return out
}

// Warm refreshes every stale entry.
func (c *Cache) Warm(ctx context.Context) {
	for _, k := range c.Keys() {
		c.Get(ctx, k, false)
	}
}

// StartWarmer schedules Warm on a cron expression. The caller stops the
// returned scheduler on shutdown.
func (c *Cache) StartWarmer(ctx context.Context, schedule string) (*cron.Cron, error) {
	sched := cron.New()
	if _, err := sched.AddFunc(schedule, func() { c.Warm(ctx) }); err != nil {
		return nil, err
	}
	sched.Start()
	log.Info().Str("schedule", schedule).Msg("catalog: warm-up scheduled")
	return sched, nil
}

func (c *Cache) listing(e Entry) Entry {
	seen := make(map[string]bool, len(e.Versions))
	versions := make([]Version, 0, len(e.Versions))
	for _, v := range e.Versions {
		if v.ID == "" || seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		if v.Label == "" {
			v.Label = AutoLabel(v.ID)
		}
		versions = append(versions, v)
		if len(versions) == c.maxVersions {
			break
		}
	}
	e.Versions = versions
	return e
}

// markAvailable flags each version by whether the provider listed it. An
// empty listing carries no information and leaves flags untouched.
func markAvailable(e Entry, ids []string) Entry {
	if len(ids) == 0 {
		return e
	}
	listed := make(map[string]bool, len(ids))
	for _, id := range ids {
		listed[strings.TrimPrefix(strings.TrimSpace(id), "models/")] = true
	}
	for i := range e.Versions {
		e.Versions[i].Available = listed[e.Versions[i].ID]
	}
	return e
}
