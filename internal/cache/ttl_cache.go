package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Entry 缓存项：值 + 写入时间
type Entry[T any] struct {
	Value    T
	StoredAt time.Time
}

// TTLCache 按 key 缓存，TTL 对整个实例生效（不支持单 key TTL）。
// now - StoredAt > ttl 的条目视为过期，在读取时被淘汰。
type TTLCache[T any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   clockwork.Clock
	entries map[string]Entry[T]
}

func NewTTLCache[T any](ttl time.Duration, clock clockwork.Clock) *TTLCache[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TTLCache[T]{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]Entry[T]),
	}
}

func (c *TTLCache[T]) TTL() time.Duration {
	return c.ttl
}

// Get 命中且未过期时返回 (value, true)；过期条目会被删除
func (c *TTLCache[T]) Get(key string) (T, bool) {
	now := c.clock.Now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	var zero T
	if !ok {
		return zero, false
	}
	if now.Sub(entry.StoredAt) > c.ttl {
		c.mu.Lock()
		// 期间可能已被重新写入，仅删除同一条目
		if cur, still := c.entries[key]; still && cur.StoredAt.Equal(entry.StoredAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return entry.Value, true
}

func (c *TTLCache[T]) Set(key string, value T) {
	c.mu.Lock()
	c.entries[key] = Entry[T]{Value: value, StoredAt: c.clock.Now()}
	c.mu.Unlock()
}

func (c *TTLCache[T]) Delete(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
}

// DeleteSuffix 删除所有以 suffix 结尾的 key（例如 ":{address}"）
func (c *TTLCache[T]) DeleteSuffix(suffix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if strings.HasSuffix(k, suffix) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *TTLCache[T]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry[T])
	c.mu.Unlock()
}

// Len 包含尚未被淘汰的过期条目
func (c *TTLCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge 主动清理所有过期条目，返回清理数量
func (c *TTLCache[T]) Purge() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if now.Sub(e.StoredAt) > c.ttl {
			delete(c.entries, k)
			n++
		}
	}
	return n
}
