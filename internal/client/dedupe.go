// Redis 기반 idempotency key 저장소
//
// 프로듀서가 idempotency key를 보내고 Redis가 설정돼 있을 때만 동작함.
// SETNX + TTL이라 키 보관은 DedupeTTL 동안만 유지됨

package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mqtt-guard/backend/internal/config"
)

const dedupeKeyPrefix = "webhook:dedupe:"

type DedupeStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupeStore - Redis 연결 및 핑 확인
func NewDedupeStore(cfg config.RedisConfig, ttl time.Duration) (*DedupeStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &DedupeStore{client: client, ttl: ttl}, nil
}

// FirstSeen - 키를 처음 보는지 기록과 동시에 판별
// nil 리시버는 dedupe 비활성 상태를 의미하며 항상 true를 반환함
func (s *DedupeStore) FirstSeen(ctx context.Context, key string) (bool, error) {
	if s == nil || key == "" {
		return true, nil
	}
	ok, err := s.client.SetNX(ctx, dedupeKeyPrefix+key, 1, s.ttl).Result()
	if err != nil {
		return true, fmt.Errorf("dedupe check failed: %w", err)
	}
	return ok, nil
}

// Forget - 기록한 키를 다시 해제함
// 주 저장이 실패했을 때 호출해서 프로듀서 재전송이 중복으로 버려지지 않게 함
func (s *DedupeStore) Forget(ctx context.Context, key string) error {
	if s == nil || key == "" {
		return nil
	}
	if err := s.client.Del(ctx, dedupeKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("dedupe release failed: %w", err)
	}
	return nil
}
