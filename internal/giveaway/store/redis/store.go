// Package redis implements the giveaway store on a single Redis document key,
// preserving the full-rewrite contract of the file backend.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	apperrors "giveaway-engine/internal/common/errors"
	"giveaway-engine/internal/giveaway/models"
	"giveaway-engine/internal/giveaway/store"
)

const keyGiveaways = "giveaways:records"

type redisStore struct {
	client *redis.Client
}

type Config struct {
	RedisClient *redis.Client
}

func NewStore(cfg *Config) (store.Store, error) {
	if cfg == nil || cfg.RedisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &redisStore{client: cfg.RedisClient}, nil
}

func (s *redisStore) LoadAll(ctx context.Context) ([]*models.Giveaway, error) {
	data, err := s.client.Get(ctx, keyGiveaways).Bytes()
	if err == redis.Nil {
		if err := s.client.Set(ctx, keyGiveaways, "[]", 0).Err(); err != nil {
			return nil, apperrors.NewPersistenceError("create", err)
		}
		return []*models.Giveaway{}, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("read", err)
	}

	var giveaways []*models.Giveaway
	if err := json.Unmarshal(data, &giveaways); err != nil {
		return nil, apperrors.NewPersistenceError("decode", err).WithDetail("key", keyGiveaways)
	}
	if giveaways == nil {
		giveaways = []*models.Giveaway{}
	}
	return giveaways, nil
}

func (s *redisStore) SaveAll(ctx context.Context, giveaways []*models.Giveaway) error {
	data, err := json.Marshal(giveaways)
	if err != nil {
		return apperrors.NewPersistenceError("encode", err)
	}
	if err := s.client.Set(ctx, keyGiveaways, data, 0).Err(); err != nil {
		return apperrors.NewPersistenceError("write", err)
	}
	return nil
}
