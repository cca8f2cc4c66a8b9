package feature

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// CachedSource 在内存中缓存特征源的结果，过期或超出容量时淘汰最久未访问的条目。
// 用于减少对远程特征服务的访问。
type CachedSource struct {
	source  Source
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	features   map[string]float64
	expireTime time.Time
	accessTime time.Time
}

// NewCachedSource 创建缓存特征源。maxSize <= 0 时不限制条目数。
func NewCachedSource(source Source, ttl time.Duration, maxSize int) *CachedSource {
	return &CachedSource{
		source:  source,
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
	}
}

func (c *CachedSource) Name() string { return c.source.Name() }

// Fetch 命中缓存时直接返回副本；未命中时访问下游并缓存结果，下游出错不缓存。
func (c *CachedSource) Fetch(ctx context.Context, entity map[string]any, names []string) (map[string]float64, error) {
	key := cacheKey(entity, names)
	now := c.now()

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		if now.Before(entry.expireTime) {
			entry.accessTime = now
			out := maps.Clone(entry.features)
			c.mu.Unlock()
			return out, nil
		}
		delete(c.entries, key)
	}
	c.mu.Unlock()

	fetched, err := c.source.Fetch(ctx, entity, names)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evict(now)
	}
	c.entries[key] = &cacheEntry{
		features:   maps.Clone(fetched),
		expireTime: now.Add(c.ttl),
		accessTime: now,
	}
	return fetched, nil
}

// Len 返回当前缓存条目数（含未清理的过期条目）。
func (c *CachedSource) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evict 先清理过期条目，仍然满时删除最久未访问的一条。调用方需持有锁。
func (c *CachedSource) evict(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expireTime) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}

	var oldestKey string
	var oldestTime time.Time
	first := true
	for k, e := range c.entries {
		if first || e.accessTime.Before(oldestTime) {
			oldestKey, oldestTime, first = k, e.accessTime, false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// cacheKey 由实体键与特征名生成，与 map 遍历顺序无关
func cacheKey(entity map[string]any, names []string) string {
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(entity)) {
		fmt.Fprintf(&b, "%s=%v;", k, entity[k])
	}
	b.WriteByte('|')
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	b.WriteString(strings.Join(sorted, ","))
	return b.String()
}
