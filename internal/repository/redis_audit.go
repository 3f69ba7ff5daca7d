package repository

import (
	"context"
	"encoding/json"

	"github.com/asterdex/astergate/internal/model"
	"github.com/asterdex/astergate/internal/service"
	"github.com/redis/go-redis/v9"
)

// RedisAuditRepo keeps the newest listMax records in a single Redis list.
type RedisAuditRepo struct {
	client  redis.Cmdable
	listKey string
	listMax int
}

func NewRedisAuditRepo(client redis.Cmdable, listKey string, listMax int) *RedisAuditRepo {
	if listKey == "" {
		listKey = "astergate:audit"
	}
	if listMax <= 0 {
		listMax = 10000
	}
	return &RedisAuditRepo{
		client:  client,
		listKey: listKey,
		listMax: listMax,
	}
}

func (r *RedisAuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.listKey, payload)
	pipe.LTrim(ctx, r.listKey, 0, int64(r.listMax-1))
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisAuditRepo) List(ctx context.Context, filter service.AuditFilter) ([]*model.AuditLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	// Filters run client side, so read ahead of the limit.
	fetch := limit * 5
	if fetch < 100 {
		fetch = 100
	}
	if fetch > r.listMax {
		fetch = r.listMax
	}
	items, err := r.client.LRange(ctx, r.listKey, 0, int64(fetch-1)).Result()
	if err != nil {
		return nil, err
	}
	results := make([]*model.AuditLog, 0, limit)
	for _, item := range items {
		var entry model.AuditLog
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		if !filter.Matches(&entry) {
			continue
		}
		results = append(results, &entry)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}
