package directory

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	// DefaultExpiration is how long a resolved person stays cached.
	DefaultExpiration = 10 * time.Minute
	// DefaultCleanupInterval is how often expired entries are purged.
	DefaultCleanupInterval = 30 * time.Minute
)

// CachedClient decorates a directory client with an in-memory cache, since
// the same small set of people is resolved on nearly every render.
type CachedClient struct {
	inner  Client
	cache  *gocache.Cache
	logger *zap.Logger
}

// NewCachedClient wraps inner with a cache. A zero ttl uses the default.
func NewCachedClient(inner Client, ttl time.Duration, logger *zap.Logger) *CachedClient {
	if ttl <= 0 {
		ttl = DefaultExpiration
	}
	return &CachedClient{
		inner:  inner,
		cache:  gocache.New(ttl, DefaultCleanupInterval),
		logger: logger,
	}
}

// GetPerson resolves one id, from cache when possible.
func (c *CachedClient) GetPerson(ctx context.Context, id string) (Person, bool, error) {
	if cached, found := c.cache.Get(id); found {
		person, ok := cached.(Person)
		if ok {
			return person, true, nil
		}
		c.logger.Warn("Evicting directory cache entry with wrong type", zap.String("id", id))
		c.cache.Delete(id)
	}

	person, ok, err := c.inner.GetPerson(ctx, id)
	if err != nil {
		return Person{}, false, fmt.Errorf("failed to resolve person %s: %w", id, err)
	}
	if ok {
		c.cache.SetDefault(id, person)
	}
	return person, ok, nil
}

// GetPeople resolves ids in bulk, only querying the directory for cache
// misses. Unresolved ids stay absent from the result; they are not negative-
// cached, so a person added to the directory resolves on the next call.
func (c *CachedClient) GetPeople(ctx context.Context, ids []string) (map[string]Person, error) {
	resolved := make(map[string]Person, len(ids))
	var misses []string
	for _, id := range ids {
		if cached, found := c.cache.Get(id); found {
			if person, ok := cached.(Person); ok {
				resolved[id] = person
				continue
			}
			c.cache.Delete(id)
		}
		misses = append(misses, id)
	}

	if len(misses) == 0 {
		return resolved, nil
	}

	fetched, err := c.inner.GetPeople(ctx, misses)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %d people: %w", len(misses), err)
	}
	for id, person := range fetched {
		c.cache.SetDefault(id, person)
		resolved[id] = person
	}
	c.logger.Debug("Directory lookup",
		zap.Int("requested", len(ids)),
		zap.Int("cache_hits", len(ids)-len(misses)),
		zap.Int("fetched", len(fetched)))
	return resolved, nil
}
