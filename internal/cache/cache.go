package cache

import (
	"context"
	"sync"
	"time"

	"StockPulse/internal/model"
)

// DefaultTTL bounds how often one symbol hits the upstream source.
const DefaultTTL = 60 * time.Second

// FetchFunc loads a fresh quote. A false result means the fetch failed.
type FetchFunc func(ctx context.Context, symbol string) (model.Quote, bool)

// Result classifies a lookup for instrumentation.
type Result string

const (
	Hit     Result = "hit"
	Miss    Result = "miss"    // fetched and stored
	Failure Result = "failure" // fetch returned nothing
)

// entry pairs a quote with the instant it was fetched.
type entry struct {
	quote     model.Quote
	fetchedAt time.Time
}

// slot serializes lookups for one symbol.
type slot struct {
	mu    sync.Mutex
	entry *entry
}

// QuoteCache memoizes quotes per symbol for a fixed TTL.
// Expired entries are not purged; the next lookup refetches and overwrites.
type QuoteCache struct {
	ttl      time.Duration
	now      func() time.Time
	onLookup func(symbol string, r Result)

	mu    sync.Mutex
	slots map[string]*slot
}

// Option configures a QuoteCache.
type Option func(*QuoteCache)

// WithClock overrides the time source used for TTL checks.
func WithClock(now func() time.Time) Option {
	return func(c *QuoteCache) { c.now = now }
}

// WithLookupHook registers a callback invoked after every lookup.
func WithLookupHook(fn func(symbol string, r Result)) Option {
	return func(c *QuoteCache) { c.onLookup = fn }
}

// New creates a cache. A non-positive ttl falls back to DefaultTTL.
func New(ttl time.Duration, opts ...Option) *QuoteCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &QuoteCache{
		ttl:   ttl,
		now:   time.Now,
		slots: make(map[string]*slot),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *QuoteCache) TTL() time.Duration { return c.ttl }

func (c *QuoteCache) slotFor(symbol string) *slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[symbol]
	if !ok {
		s = &slot{}
		c.slots[symbol] = s
	}
	return s
}

// Get returns the cached quote for symbol if it is younger than the TTL,
// otherwise it calls fetch. Failed fetches are not cached and leave any
// previous entry untouched.
func (c *QuoteCache) Get(ctx context.Context, symbol string, fetch FetchFunc) (model.Quote, bool) {
	symbol = model.NormalizeSymbol(symbol)
	s := c.slotFor(symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.entry; e != nil && c.now().Sub(e.fetchedAt) < c.ttl {
		c.report(symbol, Hit)
		return e.quote, true
	}

	q, ok := fetch(ctx, symbol)
	if !ok {
		c.report(symbol, Failure)
		return model.Quote{}, false
	}
	s.entry = &entry{quote: q, fetchedAt: c.now()}
	c.report(symbol, Miss)
	return q, true
}

// Clear drops every entry.
func (c *QuoteCache) Clear() {
	c.mu.Lock()
	c.slots = make(map[string]*slot)
	c.mu.Unlock()
}

// Len returns the number of symbols that have been looked up since the last Clear.
func (c *QuoteCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

func (c *QuoteCache) report(symbol string, r Result) {
	if c.onLookup != nil {
		c.onLookup(symbol, r)
	}
}

// Provider binds a cache to one upstream fetch function.
type Provider struct {
	Cache *QuoteCache
	Fetch FetchFunc
}

// Quote looks symbol up through the cache.
func (p *Provider) Quote(ctx context.Context, symbol string) (model.Quote, bool) {
	return p.Cache.Get(ctx, symbol, p.Fetch)
}
