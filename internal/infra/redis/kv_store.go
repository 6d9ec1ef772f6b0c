package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"pyquiz-service/internal/domain"
)

// KVStore persists player records as plain Redis strings under quiz:record:{key}.
type KVStore struct {
	client *redis.Client
}

func NewKVStore(client *redis.Client) *KVStore {
	return &KVStore{client: client}
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRecordNotFound
	}
	return data, err
}

func (s *KVStore) Put(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

func (s *KVStore) key(key string) string {
	return "quiz:record:" + key
}
