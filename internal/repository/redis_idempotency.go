package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/asterdex/astergate/internal/middleware"
	"github.com/redis/go-redis/v9"
)

// RedisIdempotencyStore shares idempotency records between gateway replicas.
type RedisIdempotencyStore struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewRedisIdempotencyStore(client redis.Cmdable, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotencyStore{
		client: client,
		ttl:    ttl,
		prefix: "astergate:idem:",
	}
}

func (s *RedisIdempotencyStore) GetOrLock(key string) (*middleware.IdempotencyRecord, bool) {
	ctx := context.Background()
	pending, _ := json.Marshal(middleware.IdempotencyRecord{
		CreatedAt:  time.Now().UTC(),
		Processing: true,
	})
	locked, err := s.client.SetNX(ctx, s.prefix+key, pending, s.ttl).Result()
	if err == nil && locked {
		return nil, false
	}
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		// Redis unavailable: let the request through rather than block it.
		return nil, false
	}
	var rec middleware.IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

func (s *RedisIdempotencyStore) Save(key string, status int, body []byte) {
	payload, err := json.Marshal(middleware.IdempotencyRecord{
		Status:    status,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	_ = s.client.Set(context.Background(), s.prefix+key, payload, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Unlock(key string) {
	_ = s.client.Del(context.Background(), s.prefix+key).Err()
}
