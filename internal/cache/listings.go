package cache

import (
	"context"
	"fmt"
	"time"

	"promptmart/internal/observability"

	"github.com/redis/go-redis/v9"
)

const listingGenerationKey = "listings:public:gen"

// ListingPages caches anonymous public listing pages. Invalidation bumps a
// generation number so every cached page key becomes unreachable at once.
type ListingPages struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewListingPages returns a page cache. A nil client disables caching.
func NewListingPages(rdb redis.Cmdable, ttl time.Duration) *ListingPages {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ListingPages{rdb: rdb, ttl: ttl}
}

func (p *ListingPages) enabled() bool {
	return p != nil && p.rdb != nil
}

func (p *ListingPages) generation(ctx context.Context) (int64, error) {
	gen, err := p.rdb.Get(ctx, listingGenerationKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// PageKey is the cache key of one page under generation gen.
func PageKey(gen int64, category, sort string, page, limit int) string {
	return fmt.Sprintf("listings:public:v%d:%s:%s:%d:%d", gen, category, sort, page, limit)
}

// Fetch returns the cached page or calls load and caches its result.
func (p *ListingPages) Fetch(ctx context.Context, category, sort string, page, limit int, dest any, load func() error) error {
	if !p.enabled() {
		return load()
	}

	ctx, span := observability.TraceRedisOperation(ctx, "listing_pages.fetch")
	defer span.End()

	gen, err := p.generation(ctx)
	if err != nil {
		observability.ListingCacheLookups.WithLabelValues("error").Inc()
		return load()
	}

	hit, err := Aside(ctx, p.rdb, PageKey(gen, category, sort, page, limit), dest, p.ttl, load)
	if err != nil {
		return err
	}
	if hit {
		observability.ListingCacheLookups.WithLabelValues("hit").Inc()
	} else {
		observability.ListingCacheLookups.WithLabelValues("miss").Inc()
	}
	return nil
}

// Invalidate makes every cached page stale. Old keys expire on their own TTL.
func (p *ListingPages) Invalidate(ctx context.Context) {
	if !p.enabled() {
		return
	}
	if err := p.rdb.Incr(ctx, listingGenerationKey).Err(); err != nil {
		observability.LogAsyncOperationError(ctx, "listing_pages.invalidate", err, nil)
	}
}
