package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"AstraMind/internal/domain/models"
	domrepo "AstraMind/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// RedisSentinelStore stores sentinel snapshots as JSON with a TTL.
type RedisSentinelStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisSentinelStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisSentinelStore {
	return &RedisSentinelStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisSentinelStore) key(symbol string) string {
	return s.prefix + "sentinel:" + symbol
}

func (s *RedisSentinelStore) Save(ctx context.Context, snap models.SentinelSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(snap.Symbol), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisSentinelStore) Load(ctx context.Context, symbol string) (models.SentinelSnapshot, error) {
	var snap models.SentinelSnapshot
	b, err := s.rdb.Get(ctx, s.key(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return snap, domrepo.ErrNotFound
	}
	if err != nil {
		return snap, fmt.Errorf("redis get: %w", err)
	}
	if err := json.Unmarshal(b, &snap); err != nil {
		return snap, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

func (s *RedisSentinelStore) Delete(ctx context.Context, symbol string) error {
	return s.rdb.Del(ctx, s.key(symbol)).Err()
}
