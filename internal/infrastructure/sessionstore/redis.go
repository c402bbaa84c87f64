package sessionstore

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
)

// RedisProvider 以 Redis 實作跨分頁持久儲存；同一使用者的
// 各個 client session 共用相同命名空間。
type RedisProvider struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisProvider 建立 Redis 儲存並驗證連線，失敗時以指數退避重試。
func NewRedisProvider(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	op := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &RedisProvider{client: client, ttl: ttl}, nil
}

// Namespace 回傳指定命名空間的 Store 視圖。
func (p *RedisProvider) Namespace(id string) Store {
	return &redisStore{client: p.client, ns: id, ttl: p.ttl}
}

// Close 關閉底層連線。
func (p *RedisProvider) Close() error {
	return p.client.Close()
}

type redisStore struct {
	client *redis.Client
	ns     string
	ttl    time.Duration
}

func (s *redisStore) key(k string) string {
	return fmt.Sprintf("storefront:session:%s:%s", s.ns, k)
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return v, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context) error {
	keys := []string{s.key(KeyUser), s.key(KeyToken), s.key(KeyLastActivity)}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
