package api

import (
	"context"
	"sync"

	"github.com/jellydator/ttlcache/v3"
	"github.com/nervoshalving/countdown-service/entities"
	"github.com/pkg/errors"
)

const displayKey = "display"

type DisplayProvider interface {
	Display(ctx context.Context) (entities.Display, error)
}

// DisplayCache keeps the last display for the cache ttl so that request bursts do not queue on the scheduler.
type DisplayCache struct {
	provider     DisplayProvider
	displayCache *ttlcache.Cache[string, entities.Display]
	displayLock  sync.Mutex
}

func NewDisplayCache(provider DisplayProvider, displayCache *ttlcache.Cache[string, entities.Display]) *DisplayCache {
	return &DisplayCache{
		provider:     provider,
		displayCache: displayCache,
	}
}

func (c *DisplayCache) Display(ctx context.Context) (entities.Display, error) {
	c.displayLock.Lock() // lock so that we do not get multiple threads inside the `if`
	defer c.displayLock.Unlock()

	item := c.displayCache.Get(displayKey)
	if item != nil {
		return item.Value(), nil
	}

	display, err := c.provider.Display(ctx)
	if err != nil {
		return entities.Display{}, errors.Wrap(err, "getting display")
	}
	c.displayCache.Set(displayKey, display, ttlcache.DefaultTTL)
	return display, nil
}
