package cache

import (
	"sync"

	"github.com/sc2helper/predictor/internal/combat"
)

// Key identifies a reproducible engagement. Hash is combat.CacheKey of the
// resolved request and the seed fixes the shuffles.
type Key struct {
	Hash uint64
	Seed int64
}

// PredictionCache caches engagement results so repeated requests skip the
// simulation. Once full, the oldest entry is evicted first.
type PredictionCache struct {
	m          sync.Mutex
	entries    map[Key]combat.Result
	order      []Key
	maxEntries int

	hits   SafeCounter
	misses SafeCounter
}

// NewPredictionCache creates a cache holding at most maxEntries results. A
// maxEntries of zero or less disables the limit.
func NewPredictionCache(maxEntries int) *PredictionCache {
	return &PredictionCache{
		entries:    make(map[Key]combat.Result),
		maxEntries: maxEntries,
	}
}

func (c *PredictionCache) Get(k Key) (combat.Result, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if r, ok := c.entries[k]; ok {
		c.hits.Inc()
		return r, true
	}
	c.misses.Inc()
	return combat.Result{}, false
}

func (c *PredictionCache) Add(k Key, r combat.Result) {
	c.m.Lock()
	defer c.m.Unlock()
	if _, ok := c.entries[k]; !ok {
		c.order = append(c.order, k)
	}
	c.entries[k] = r

	for c.maxEntries > 0 && len(c.order) > c.maxEntries {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
}

func (c *PredictionCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.entries)
}

func (c *PredictionCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.entries = make(map[Key]combat.Result)
	c.order = nil
	c.hits.Set(0)
	c.misses.Set(0)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

func (c *PredictionCache) Stats() Stats {
	c.m.Lock()
	defer c.m.Unlock()
	return Stats{
		Entries: len(c.entries),
		Hits:    c.hits.Value(),
		Misses:  c.misses.Value(),
	}
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
