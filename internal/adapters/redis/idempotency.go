package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Idempotency stores serialized HTTP responses keyed by the caller's
// Idempotency-Key, so retried booking and order creations replay the first
// outcome instead of writing twice.
type Idempotency struct {
	client *redis.Client
}

func NewIdempotency(client *redis.Client) *Idempotency {
	return &Idempotency{client: client}
}

// IdempResponse is the replayed status/body pair.
type IdempResponse struct {
	Status int    `json:"status"`
	Result []byte `json:"result"`
}

func idempKey(key string) string {
	return "idemp:" + key
}

// Get returns the stored response for key, or nil when the key was never
// seen (a miss is not an error).
func (i *Idempotency) Get(ctx context.Context, key string) (*IdempResponse, error) {
	val, err := i.client.Get(ctx, idempKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp IdempResponse
	err = json.Unmarshal(val, &resp)
	return &resp, err
}

func (i *Idempotency) Set(ctx context.Context, key string, resp IdempResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return i.client.Set(ctx, idempKey(key), data, ttl).Err()
}
