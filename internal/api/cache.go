package api

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache keeps recent successful predictions keyed by their encoded query.
// A nil *Cache is valid and never hits.
type Cache struct {
	lru *expirable.LRU[string, *Prediction]
}

// NewCache returns nil when size is not positive.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		return nil
	}
	return &Cache{lru: expirable.NewLRU[string, *Prediction](size, nil, ttl)}
}

func (c *Cache) Get(key string) (*Prediction, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *Cache) Add(key string, p *Prediction) {
	if c == nil {
		return
	}
	c.lru.Add(key, p)
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}
