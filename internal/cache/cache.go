package cache

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"riskcalc/internal/risk"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultTTL  = time.Hour
	DefaultSize = 1024
)

// Entry is a cached assessment. The input is represented only by its key, so
// nothing the caller holds is shared with the cache.
type Entry struct {
	Model    risk.ModelID
	Result   risk.RiskResult
	StoredAt time.Time
}

// Stats are cumulative lookup counters.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// ResultCache memoizes assessment results by canonical input hash.
// Entries older than ttl are dropped when they are next looked up; there
// is no background sweep. The size bound evicts least recently used entries.
// ResultCache is safe for concurrent use.
type ResultCache struct {
	entries *lru.Cache[string, Entry]
	ttl     time.Duration
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewResultCache creates a cache holding at most size entries for ttl each.
func NewResultCache(size int, ttl time.Duration) (*ResultCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	entries, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	return &ResultCache{entries: entries, ttl: ttl, now: time.Now}, nil
}

// SetClock replaces the time source used for expiry.
func (c *ResultCache) SetClock(now func() time.Time) {
	c.now = now
}

// Get returns the live result stored for model and in.
func (c *ResultCache) Get(model risk.ModelID, in *risk.RiskInput) (risk.RiskResult, bool) {
	key, err := Key(model, in)
	if err != nil {
		slog.Warn("Result cache key", "error", err, "model", model)
		c.misses.Add(1)
		return risk.RiskResult{}, false
	}
	return c.GetByKey(key)
}

// GetByKey is Get for a key already computed with Key.
func (c *ResultCache) GetByKey(key string) (risk.RiskResult, bool) {
	entry, found := c.entries.Get(key)
	if !found {
		c.misses.Add(1)
		return risk.RiskResult{}, false
	}
	if c.now().Sub(entry.StoredAt) > c.ttl {
		c.entries.Remove(key)
		c.misses.Add(1)
		return risk.RiskResult{}, false
	}
	c.hits.Add(1)
	return entry.Result.Clone(), true
}

// Put stores res for model and in, replacing any previous entry.
func (c *ResultCache) Put(model risk.ModelID, in *risk.RiskInput, res risk.RiskResult) {
	key, err := Key(model, in)
	if err != nil {
		slog.Warn("Result cache key", "error", err, "model", model)
		return
	}
	c.PutByKey(key, model, res)
}

// PutByKey is Put for a key already computed with Key.
func (c *ResultCache) PutByKey(key string, model risk.ModelID, res risk.RiskResult) {
	c.entries.Add(key, Entry{
		Model:    model,
		Result:   res.Clone(),
		StoredAt: c.now(),
	})
}

// Clear drops every entry. Counters are kept.
func (c *ResultCache) Clear() {
	c.entries.Purge()
}

func (c *ResultCache) Len() int {
	return c.entries.Len()
}

func (c *ResultCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.entries.Len(),
	}
}
