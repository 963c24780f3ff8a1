package price

import (
	"context"
	"strings"
	"sync"
)

type cacheItem struct {
	quote Quote
	err   error
}

// SweepCache memoises quotes, failures included, for the lifetime of one pass over alerts or
// holdings. Create a new one per pass; it never outlives the pass.
type SweepCache struct {
	next  Provider
	mu    sync.Mutex
	items map[string]cacheItem
}

func NewSweepCache(next Provider) *SweepCache {
	return &SweepCache{next: next, items: make(map[string]cacheItem)}
}

func (c *SweepCache) GetPrice(ctx context.Context, symbol string) (Quote, error) {
	key := strings.ToUpper(symbol)

	c.mu.Lock()
	defer c.mu.Unlock()

	if item, found := c.items[key]; found {
		return item.quote, item.err
	}
	q, err := c.next.GetPrice(ctx, key)
	c.items[key] = cacheItem{quote: q, err: err}
	return q, err
}
