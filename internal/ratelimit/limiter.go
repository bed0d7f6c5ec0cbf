package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore 是限流器依赖的最小键值接口，便于测试时注入内存实现。
type CounterStore interface {
	Get(ctx context.Context, key string) (int64, error)
	Set(ctx context.Context, key string, value int64, ttl time.Duration) error
}

// Limiter 实现按 key 的固定窗口计数限流。
// 语义与线上行为保持一致：达到上限时不再写入，未达上限时写回 count+1
// 并把过期时间重置为一个完整窗口（滑动续期）。并发下允许 at-least-once
// 计数，但过期重置不会被跳过——每次成功写入都自带新的 TTL。
type Limiter struct {
	store CounterStore
}

// NewLimiter 构造 Limiter。
func NewLimiter(store CounterStore) *Limiter {
	return &Limiter{store: store}
}

// Allow 读取当前计数并判定是否放行。
// 返回 false 时不改动任何状态；返回 true 时已完成计数与 TTL 续期。
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}

	count, err := l.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read rate counter %q: %w", key, err)
	}
	if count >= int64(limit) {
		return false, nil
	}

	if err := l.store.Set(ctx, key, count+1, window); err != nil {
		return false, fmt.Errorf("write rate counter %q: %w", key, err)
	}
	return true, nil
}

// RedisCounterStore 将计数存入 Redis。
type RedisCounterStore struct {
	client redis.UniversalClient
}

// NewRedisCounterStore 构造 Redis 实现。
func NewRedisCounterStore(client redis.UniversalClient) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

// Get 返回 key 当前计数，缺失视为 0。
func (s *RedisCounterStore) Get(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse counter value %q: %w", val, err)
	}
	return count, nil
}

// Set 写入计数并重置过期时间。
func (s *RedisCounterStore) Set(ctx context.Context, key string, value int64, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}
