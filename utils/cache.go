package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	gocache "github.com/patrickmn/go-cache"
)

// TTLCache is a typed wrapper over go-cache, used for detail/home responses
// that are expensive to assemble but fine to serve a few minutes stale.
type TTLCache[T any] struct {
	c *gocache.Cache
}

func NewTTLCache[T any](defaultTTL, cleanupInterval time.Duration) *TTLCache[T] {
	return &TTLCache[T]{c: gocache.New(defaultTTL, cleanupInterval)}
}

func (t *TTLCache[T]) Get(key string) (T, bool) {
	var zero T
	v, ok := t.c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

func (t *TTLCache[T]) Set(key string, value T) {
	t.c.SetDefault(key, value)
}

func (t *TTLCache[T]) Delete(key string) {
	t.c.Delete(key)
}

func (t *TTLCache[T]) Clear() {
	t.c.Flush()
}

// SearchCache is a bounded LRU with a per-entry TTL, sized for search
// results where the key space is unbounded user input.
type SearchCache[T any] struct {
	storage *lru.Cache[string, searchItem[T]]
	ttl     time.Duration
}

type searchItem[T any] struct {
	value     T
	expiredAt time.Time
}

func NewSearchCache[T any](size int, ttl time.Duration) *SearchCache[T] {
	c, _ := lru.New[string, searchItem[T]](size)
	return &SearchCache[T]{storage: c, ttl: ttl}
}

func (c *SearchCache[T]) Set(key string, value T) {
	c.storage.Add(key, searchItem[T]{value: value, expiredAt: time.Now().Add(c.ttl)})
}

func (c *SearchCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}
	if time.Now().After(item.expiredAt) {
		c.storage.Remove(key)
		return zero, false
	}
	return item.value, true
}

func (c *SearchCache[T]) Clear() {
	c.storage.Purge()
}

func (c *SearchCache[T]) Len() int {
	return c.storage.Len()
}
