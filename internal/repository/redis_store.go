package repository

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisLocalStore keeps the fallback key space in Redis under a namespace
// prefix.  Useful when the terminal runs next to a Redis sidecar instead of
// writing a SQLite file.
type RedisLocalStore struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisLocalStore returns a store writing keys as "{namespace}:{key}".
func NewRedisLocalStore(rdb *redis.Client, namespace string) *RedisLocalStore {
	if namespace == "" {
		namespace = "pos"
	}
	return &RedisLocalStore{rdb: rdb, namespace: namespace}
}

func (s *RedisLocalStore) full(key string) string { return s.namespace + ":" + key }

// Get returns the raw value of key or ErrNotFound.
func (s *RedisLocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, s.full(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

// Set stores value under key without expiry.
func (s *RedisLocalStore) Set(ctx context.Context, key string, value []byte) error {
	return s.rdb.Set(ctx, s.full(key), value, 0).Err()
}

// Remove deletes key.
func (s *RedisLocalStore) Remove(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.full(key)).Err()
}

// Keys scans for keys starting with prefix and returns them sorted.
func (s *RedisLocalStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, globEscape(s.full(prefix))+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.namespace+":"))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// globEscape quotes the characters Redis MATCH patterns treat specially.
func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
