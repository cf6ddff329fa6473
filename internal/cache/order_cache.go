package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ecommerce-platform/order-service/internal/domain"
)

// OrderCache 주문 조회 캐시 인터페이스
type OrderCache interface {
	Get(ctx context.Context, orderID int64) (*domain.Order, error)
	Set(ctx context.Context, order *domain.Order) error
	Invalidate(ctx context.Context, orderID int64) error
}

// RedisOrderCache Redis 기반 주문 캐시
// 캐시 실패는 조회 경로를 막지 않는다 (호출자가 miss로 처리).
type RedisOrderCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisOrderCache Redis 주문 캐시 생성
func NewRedisOrderCache(client *redis.Client, prefix string, ttl time.Duration) *RedisOrderCache {
	return &RedisOrderCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get 캐시에서 주문 조회 (miss면 nil, nil 반환)
func (c *RedisOrderCache) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	raw, err := c.client.Get(ctx, c.key(orderID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached order: %w", err)
	}

	var order domain.Order
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, fmt.Errorf("failed to decode cached order: %w", err)
	}
	return &order, nil
}

// Set 주문을 캐시에 저장
func (c *RedisOrderCache) Set(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order for cache: %w", err)
	}
	if err := c.client.Set(ctx, c.key(order.ID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache order: %w", err)
	}
	return nil
}

// Invalidate 주문 캐시 무효화 (모든 상태 변경 시 호출)
func (c *RedisOrderCache) Invalidate(ctx context.Context, orderID int64) error {
	if err := c.client.Del(ctx, c.key(orderID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached order: %w", err)
	}
	return nil
}

func (c *RedisOrderCache) key(orderID int64) string {
	return fmt.Sprintf("%s:order:%d", c.prefix, orderID)
}
