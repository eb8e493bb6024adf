package pricing

import (
	"context"
	"fmt"

	"github.com/openthesis/oracle/internal/contracts"
	"github.com/openthesis/oracle/pkg/logger"
	"github.com/openthesis/oracle/pkg/redis"
)

// FallbackSource tries each underlying source in order and returns the
// first successful quote.
type FallbackSource struct {
	sources []contracts.QuoteSource
	logger  *logger.Logger
}

// NewFallbackSource creates a fallback chain of quote sources
func NewFallbackSource(log *logger.Logger, sources ...contracts.QuoteSource) *FallbackSource {
	return &FallbackSource{sources: sources, logger: log}
}

// Price tries each source in order.
func (f *FallbackSource) Price(ctx context.Context, ticker string) (float64, error) {
	var lastErr error

	for i, src := range f.sources {
		price, err := src.Price(ctx, ticker)
		if err == nil {
			return price, nil
		}

		lastErr = err
		if i < len(f.sources)-1 {
			f.logger.WithFields(map[string]interface{}{
				"ticker": ticker,
				"source": i,
				"error":  err.Error(),
			}).Warn("Quote source failed, trying next")
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no quote sources configured")
	}
	return 0, lastErr
}

// CachedSource decorates a QuoteSource with a short-lived Redis cache.
// One cached price per ticker keeps a run self-consistent: every post
// on the same ticker is scored against the same price.
type CachedSource struct {
	next  contracts.QuoteSource
	cache *redis.Cache
}

// NewCachedSource wraps a quote source with caching
func NewCachedSource(next contracts.QuoteSource, cache *redis.Cache) *CachedSource {
	return &CachedSource{next: next, cache: cache}
}

// Price returns the cached quote when fresh, otherwise fetches and caches.
func (c *CachedSource) Price(ctx context.Context, ticker string) (float64, error) {
	key := redis.QuoteKey(ticker)

	var cached float64
	if found, err := c.cache.Get(ctx, key, &cached); err == nil && found {
		return cached, nil
	}

	price, err := c.next.Price(ctx, ticker)
	if err != nil {
		return 0, err
	}

	// Cache failures are not fatal; the quote is still usable.
	_ = c.cache.Set(ctx, key, price, redis.TTLShort)

	return price, nil
}
