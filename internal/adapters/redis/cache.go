package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// VendorRatings is the cached projection of a vendor's derived rating.
type VendorRatings struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

func (c *Cache) GetVendorRatings(ctx context.Context, vendorID string) (*VendorRatings, error) {
	val, err := c.client.Get(ctx, "ratings:"+vendorID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r VendorRatings
	if err := json.Unmarshal(val, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Cache) SetVendorRatings(ctx context.Context, vendorID string, r VendorRatings, ttl time.Duration) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "ratings:"+vendorID, data, ttl).Err()
}

// InvalidateVendorRatings drops the cached projection after a recompute.
func (c *Cache) InvalidateVendorRatings(ctx context.Context, vendorID string) error {
	return c.client.Del(ctx, "ratings:"+vendorID).Err()
}
