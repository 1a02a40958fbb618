package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"docrewriter/pkg/logger"
)

const redisKeyPrefix = "rewrite_cache:"

// RedisStore 服务端模式下的共享缓存，多个 worker 进程复用同一份重写结果。
type RedisStore struct {
	client *redis.Client
	logger logger.Logger
}

func NewRedisStore(addr string, db int, log logger.Logger) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		logger: log.Named("cache"),
	}
}

func (s *RedisStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		s.logger.Warn("cache read failed", logger.String("key", key), logger.Error(err))
		return "", false, nil
	}
	return val, true, nil
}

func (s *RedisStore) Store(ctx context.Context, key, text string) error {
	// 无过期时间，条目保留到手动清理
	if err := s.client.Set(ctx, redisKeyPrefix+key, text, 0).Err(); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("remove cache entry: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache entries: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
