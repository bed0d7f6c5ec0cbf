package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingIntentKeyPrefix = "payment:intent:"
	paidFlagKeyPrefix      = "payment:paid:"
)

// Store 是会话状态依赖的最小键值接口，测试时可注入内存实现。
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// PendingIntent 记录一次等待支付的高级模板下载请求。
type PendingIntent struct {
	ResumeID uint   `json:"resume_id"`
	Template string `json:"template"`
}

// Sessions 管理每个用户会话内的待支付意图与一次性已支付标记。
// 两类键都有 TTL，随会话自然过期。
type Sessions struct {
	store Store
	ttl   time.Duration
}

// NewSessions 构造 Sessions。ttl<=0 时使用 24 小时。
func NewSessions(store Store, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{store: store, ttl: ttl}
}

// SetPendingIntent 覆盖写入待支付意图。
func (s *Sessions) SetPendingIntent(ctx context.Context, userKey string, intent PendingIntent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("marshal pending intent: %w", err)
	}
	if err := s.store.Set(ctx, pendingIntentKeyPrefix+userKey, string(data), s.ttl); err != nil {
		return fmt.Errorf("store pending intent: %w", err)
	}
	return nil
}

// TakePendingIntent 读取并清除待支付意图；不存在时返回 nil。
// 意图只会被消费一次：支付成功回跳或完成一次付费下载。
func (s *Sessions) TakePendingIntent(ctx context.Context, userKey string) (*PendingIntent, error) {
	key := pendingIntentKeyPrefix + userKey
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read pending intent: %w", err)
	}
	if !ok {
		return nil, nil
	}
	if err := s.store.Del(ctx, key); err != nil {
		return nil, fmt.Errorf("clear pending intent: %w", err)
	}

	var intent PendingIntent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		return nil, fmt.Errorf("decode pending intent: %w", err)
	}
	return &intent, nil
}

// MarkPaid 设置一次性已支付标记。
func (s *Sessions) MarkPaid(ctx context.Context, userKey string) error {
	if err := s.store.Set(ctx, paidFlagKeyPrefix+userKey, "1", s.ttl); err != nil {
		return fmt.Errorf("store paid flag: %w", err)
	}
	return nil
}

// ConsumePaid 读取并清除已支付标记。一次成功支付只解锁一次付费渲染。
func (s *Sessions) ConsumePaid(ctx context.Context, userKey string) (bool, error) {
	key := paidFlagKeyPrefix + userKey
	_, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read paid flag: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := s.store.Del(ctx, key); err != nil {
		return false, fmt.Errorf("clear paid flag: %w", err)
	}
	return true, nil
}

// RedisStore 将会话状态存入 Redis。
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore 构造 Redis 实现。
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Get 读取键值，缺失时返回 ok=false。
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set 写入键值并设置过期时间。
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Del 删除键，键不存在视为成功。
func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
