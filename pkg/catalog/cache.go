package catalog

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/umuterturk/mcp-proto/pkg/observability"
)

const (
	defaultCacheEntries = 512
	defaultCacheTTL     = 5 * time.Minute

	cacheType = "resolution"
)

// resolutionCache memoizes fully built definition responses, since type
// resolution walks the message graph on every call. It is purely an
// optimization: any index mutation purges it wholesale, so a hit is always
// equivalent to recomputing.
type resolutionCache struct {
	entries *lru.LRU[string, map[string]interface{}]
	metrics *observability.Metrics
}

func newResolutionCache(maxEntries int, ttl time.Duration, metrics *observability.Metrics) *resolutionCache {
	return &resolutionCache{
		entries: lru.NewLRU[string, map[string]interface{}](maxEntries, nil, ttl),
		metrics: metrics,
	}
}

func cacheKey(kind, name string, resolveTypes bool, maxDepth int) string {
	return fmt.Sprintf("%s|%s|%t|%d", kind, name, resolveTypes, maxDepth)
}

func (rc *resolutionCache) Get(key string) (map[string]interface{}, bool) {
	value, ok := rc.entries.Get(key)
	if rc.metrics != nil {
		if ok {
			rc.metrics.CacheHitsTotal.WithLabelValues(cacheType).Inc()
		} else {
			rc.metrics.CacheMissesTotal.WithLabelValues(cacheType).Inc()
		}
	}
	return value, ok
}

func (rc *resolutionCache) Add(key string, value map[string]interface{}) {
	rc.entries.Add(key, value)
}

func (rc *resolutionCache) Purge() {
	rc.entries.Purge()
	if rc.metrics != nil {
		rc.metrics.CacheInvalidations.Inc()
	}
}
