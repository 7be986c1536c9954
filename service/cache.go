package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cached wraps a Fetcher with an in-memory LRU+TTL cache keyed by query, so a
// batch retried after a partial failure does not search the same theater twice.
// Responses carrying an error field are not cached.
//
// maxEntries is the LRU size; ttl is how long entries stay valid (zero = no expiration).
func Cached(inner Fetcher, maxEntries int, ttl time.Duration) Fetcher {
	if inner == nil {
		return nil
	}
	if maxEntries <= 0 {
		maxEntries = 64
	}
	return &cachingFetcher{
		inner: inner,
		cache: expirable.NewLRU[string, RawPayload](maxEntries, nil, ttl),
	}
}

type cachingFetcher struct {
	inner Fetcher
	cache *expirable.LRU[string, RawPayload]
}

func cacheKey(q Query) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", q.Date, q.Theater, q.Location, q.HL, q.GL)
}

func (c *cachingFetcher) FetchShowtimes(ctx context.Context, apiKey string, q Query) (RawPayload, error) {
	key := cacheKey(q)
	if payload, ok := c.cache.Get(key); ok {
		return payload, nil
	}
	payload, err := c.inner.FetchShowtimes(ctx, apiKey, q)
	if err != nil {
		return nil, err
	}
	if _, failed := reportedError(payload); !failed {
		c.cache.Add(key, payload)
	}
	return payload, nil
}
