package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// SessionStore is the server-side replacement for the browser's local
// key/value storage: string values grouped by session id.
type SessionStore interface {
	Get(ctx context.Context, sessionID, key string) (string, bool, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID string, keys ...string) error
}

// LocalStore is a SessionStore bound to one session.
type LocalStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, keys ...string) error
}

type scopedStore struct {
	store     SessionStore
	sessionID string
}

func Scope(store SessionStore, sessionID string) LocalStore {
	return &scopedStore{store: store, sessionID: sessionID}
}

func (s *scopedStore) Get(ctx context.Context, key string) (string, bool, error) {
	return s.store.Get(ctx, s.sessionID, key)
}

func (s *scopedStore) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.sessionID, key, value)
}

func (s *scopedStore) Remove(ctx context.Context, keys ...string) error {
	return s.store.Delete(ctx, s.sessionID, keys...)
}

type MemorySessionStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{data: make(map[string]map[string]string)}
}

func (s *MemorySessionStore) Get(_ context.Context, sessionID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[sessionID][key]
	return v, ok, nil
}

func (s *MemorySessionStore) Set(_ context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.data[sessionID]
	if !ok {
		m = make(map[string]string)
		s.data[sessionID] = m
	}
	m[key] = value
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.data[sessionID]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(m, k)
	}
	if len(m) == 0 {
		delete(s.data, sessionID)
	}
	return nil
}

// RedisSessionStore keeps each value under session:{sid}:{key}; every write
// refreshes the TTL of that key.
type RedisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func redisKey(sessionID, key string) string {
	return fmt.Sprintf("session:%s:%s", sessionID, key)
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, redisKey(sessionID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisSessionStore) Set(ctx context.Context, sessionID, key, value string) error {
	return s.rdb.Set(ctx, redisKey(sessionID, key), value, s.ttl).Err()
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = redisKey(sessionID, k)
	}
	return s.rdb.Del(ctx, full...).Err()
}
