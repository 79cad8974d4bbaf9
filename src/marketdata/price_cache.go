package marketdata

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type cachedPrice struct {
	price decimal.Decimal
	at    time.Time
}

// PriceCache is the freshness gate in front of the quote provider: a quote
// younger than maxAge is served from memory. Construct one at process start
// and inject it wherever prices are read; there is no package-level instance.
// Concurrent fills of the same symbol are harmless, writes are idempotent.
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]cachedPrice
	maxAge time.Duration
	now    func() time.Time
}

func NewPriceCache(maxAge time.Duration) *PriceCache {
	return &PriceCache{
		prices: make(map[string]cachedPrice),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Get returns the cached price if it is still fresh.
func (c *PriceCache) Get(symbol string) (decimal.Decimal, bool) {
	c.mu.RLock()
	entry, ok := c.prices[symbol]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.at) > c.maxAge {
		return decimal.Zero, false
	}
	return entry.price, true
}

func (c *PriceCache) Set(symbol string, price decimal.Decimal) {
	c.mu.Lock()
	c.prices[symbol] = cachedPrice{price: price, at: c.now()}
	c.mu.Unlock()
}
