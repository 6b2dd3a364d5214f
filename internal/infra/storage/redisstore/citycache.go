package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	apphostels "hlopg/internal/app/handlers/hostels"
	domainhostels "hlopg/internal/domain/hostels"
)

const cityKeyPrefix = "hlopg:city:"

// CityCache stores the unfiltered hostel list of each city.
type CityCache struct {
	kv  KV
	ttl time.Duration
}

func NewCityCache(kv KV, ttl time.Duration) *CityCache {
	return &CityCache{kv: kv, ttl: ttl}
}

func (c *CityCache) Get(ctx context.Context, city string) ([]*domainhostels.Hostel, bool, error) {
	raw, err := c.kv.Get(ctx, cityKeyPrefix+city).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var items []*domainhostels.Hostel
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, fmt.Errorf("redis: decode city %s: %w", city, err)
	}
	return items, true, nil
}

func (c *CityCache) Set(ctx context.Context, city string, items []*domainhostels.Hostel) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("redis: encode city %s: %w", city, err)
	}
	return c.kv.Set(ctx, cityKeyPrefix+city, payload, c.ttl).Err()
}

// Invalidate drops a city after a hostel in it changes.
func (c *CityCache) Invalidate(ctx context.Context, city string) error {
	return c.kv.Del(ctx, cityKeyPrefix+city).Err()
}

var _ apphostels.CityCache = (*CityCache)(nil)
