package fetcher

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"bibentry/src/internal/schema"
)

// Cached remembers successful lookups of f in c, keyed by fetcher name and
// trimmed identifier. Absent results and failures are never cached.
func Cached(f Fetcher, c *cache.Cache) Fetcher {
	if c == nil {
		return f
	}
	return &cachedFetcher{next: f, cache: c}
}

// NewCache returns the cache Cached expects, expiring entries after ttl. A
// non-positive ttl disables caching and returns nil.
func NewCache(ttl time.Duration) *cache.Cache {
	if ttl <= 0 {
		return nil
	}
	return cache.New(ttl, 2*ttl)
}

type cachedFetcher struct {
	next  Fetcher
	cache *cache.Cache
}

func (c *cachedFetcher) Name() string { return c.next.Name() }

func (c *cachedFetcher) Recognizes(id string) bool { return recognizes(c.next, id) }

func (c *cachedFetcher) SearchByID(ctx context.Context, id string) (*schema.Entry, error) {
	key := c.next.Name() + "|" + strings.TrimSpace(id)
	if v, ok := c.cache.Get(key); ok {
		e := v.(schema.Entry).Clone()
		return &e, nil
	}
	e, err := c.next.SearchByID(ctx, id)
	if err != nil || e == nil {
		return e, err
	}
	c.cache.SetDefault(key, e.Clone())
	return e, nil
}

// WithTimeout bounds every search of f by d. The session itself never times
// a lookup out; registry owners opt in here.
func WithTimeout(f Fetcher, d time.Duration) Fetcher {
	if d <= 0 {
		return f
	}
	return &timeoutFetcher{next: f, timeout: d}
}

type timeoutFetcher struct {
	next    Fetcher
	timeout time.Duration
}

func (t *timeoutFetcher) Name() string { return t.next.Name() }

func (t *timeoutFetcher) Recognizes(id string) bool { return recognizes(t.next, id) }

func (t *timeoutFetcher) SearchByID(ctx context.Context, id string) (*schema.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.SearchByID(ctx, id)
}

func recognizes(f Fetcher, id string) bool {
	rc, ok := f.(Recognizer)
	return ok && rc.Recognizes(id)
}
