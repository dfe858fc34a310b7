package audio

import (
	"context"
	"os"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/kyrshv/go-telegram-musicbot/internal/config"
)

// CachingResolver memoizes resolved tracks per normalized query so repeated
// requests for the same song skip the download. Entries whose file has been
// evicted from disk are treated as misses.
type CachingResolver struct {
	logger *zap.Logger
	inner  Resolver
	cache  *lru.Cache[string, *Track]
}

// NewCachingResolver wraps the given resolver with an LRU track cache.
func NewCachingResolver(logger *zap.Logger, cfg *config.Config, inner Resolver) (*CachingResolver, error) {
	cache, err := lru.New[string, *Track](cfg.Audio.CacheSize)
	if err != nil {
		return nil, err
	}

	return &CachingResolver{
		logger: logger.Named("audio_cache"),
		inner:  inner,
		cache:  cache,
	}, nil
}

// Resolve returns a cached track when its file still exists, otherwise
// resolves through the inner resolver and caches the result.
func (c *CachingResolver) Resolve(ctx context.Context, query string) (*Track, error) {
	k := cacheKey(query)

	if track, ok := c.cache.Get(k); ok {
		if _, err := os.Stat(track.Path); err == nil {
			c.logger.Debug("Track cache hit", zap.String("query", k))

			return track, nil
		}
		c.cache.Remove(k)
	}

	track, err := c.inner.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}

	c.cache.Add(k, track)

	return track, nil
}

func cacheKey(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}
