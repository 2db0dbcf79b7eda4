package inmemory

import (
	"sync"
	"time"

	tariffsdomain "lab-catalog-go/internal/domain/tariffs"
)

// InMemoryTariffCache is a TTL-bounded cache for tariff lookups shared by
// the resolvers. Entries expire lazily on read.
type InMemoryTariffCache struct {
	mu    sync.RWMutex
	items map[string]tariffItem
}

type tariffItem struct {
	value     tariffsdomain.Tariff
	expiresAt time.Time
}

func NewInMemoryTariffCache() *InMemoryTariffCache {
	return &InMemoryTariffCache{
		items: make(map[string]tariffItem),
	}
}

func (c *InMemoryTariffCache) Get(tariffID string) (tariffsdomain.Tariff, bool) {
	now := time.Now()

	c.mu.RLock()
	item, ok := c.items[tariffID]
	c.mu.RUnlock()
	if !ok {
		return tariffsdomain.Tariff{}, false
	}

	if !item.expiresAt.After(now) {
		c.mu.Lock()
		item, ok = c.items[tariffID]
		if ok && !item.expiresAt.After(now) {
			delete(c.items, tariffID)
		}
		c.mu.Unlock()
		return tariffsdomain.Tariff{}, false
	}

	return item.value, true
}

func (c *InMemoryTariffCache) Set(tariffID string, tariff tariffsdomain.Tariff, ttl time.Duration) {
	if ttl <= 0 {
		c.Delete(tariffID)
		return
	}

	c.mu.Lock()
	c.items[tariffID] = tariffItem{
		value:     tariff,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
}

func (c *InMemoryTariffCache) Delete(tariffID string) {
	c.mu.Lock()
	delete(c.items, tariffID)
	c.mu.Unlock()
}
