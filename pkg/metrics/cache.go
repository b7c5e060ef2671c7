package metrics

import (
	"sync/atomic"

	"github.com/goccy/go-json"
)

// CacheMetric counts hits and misses of a cache.
type CacheMetric struct {
	name   string
	hits   atomic.Int64
	misses atomic.Int64
}

func newCacheMetric(name string) *CacheMetric {
	return &CacheMetric{name: name}
}

// Hit records a cache hit.
func (c *CacheMetric) Hit() {
	if Enabled() {
		c.hits.Add(1)
	}
}

// Miss records a cache miss.
func (c *CacheMetric) Miss() {
	if Enabled() {
		c.misses.Add(1)
	}
}

// Stats returns the counters and the hit rate.
func (c *CacheMetric) Stats() CacheStats {
	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return CacheStats{Name: c.name, Hits: hits, Misses: misses, HitRate: rate}
}

// Reset zeroes the counters.
func (c *CacheMetric) Reset() {
	c.hits.Store(0)
	c.misses.Store(0)
}

// CacheStats is a snapshot of a CacheMetric.
type CacheStats struct {
	Name    string  `json:"name"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// AssetCache counts lookups in the sqlite cache of remote assets.
var AssetCache = newCacheMetric("asset_cache")

// AllCacheMetrics returns all registered cache metrics.
func AllCacheMetrics() []*CacheMetric {
	return []*CacheMetric{AssetCache}
}

// Snapshot is every metric with data, ready for JSON output.
type Snapshot struct {
	Timings []TimingStats `json:"timings"`
	Caches  []CacheStats  `json:"caches"`
}

// Collect gathers the current metrics.
func Collect() Snapshot {
	s := Snapshot{Timings: AllTimingStats()}
	for _, c := range AllCacheMetrics() {
		if st := c.Stats(); st.Hits+st.Misses > 0 {
			s.Caches = append(s.Caches, st)
		}
	}
	return s
}

// JSON renders the current metrics as indented JSON.
func JSON() ([]byte, error) {
	return json.MarshalIndent(Collect(), "", "  ")
}
