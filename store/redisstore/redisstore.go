package redisstore

import (
	"context"
	"errors"

	"github.com/jrsteele09/vendoriq-client/store"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "vendoriq:session:"

var _ store.Store = (*RedisStore)(nil)

// RedisStore implements store.Store with one Redis string per key, all under
// a common prefix. MSET and DEL are atomic, which gives SetMany and Delete
// their all-or-nothing behaviour.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	pairs := make([]any, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, s.prefix+k, v)
	}
	return s.client.MSet(ctx, pairs...).Err()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.prefix + k
	}
	return s.client.Del(ctx, prefixed...).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
