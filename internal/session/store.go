package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound сессия не найдена или истекла
var ErrNotFound = errors.New("session: not found")

// Store хранилище записей сессий
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// RedisStore хранит сессии в Redis под ключами session:<id> с TTL до ExpiresAt
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

func redisKey(id string) string {
	return "session:" + id
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return ErrNotFound
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("сериализация сессии: %w", err)
	}
	return s.rdb.Set(ctx, redisKey(sess.ID), data, ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := s.rdb.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("чтение сессии: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("разбор сессии: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, redisKey(id)).Err()
}

// MemoryStore хранит сессии в памяти процесса
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte), now: time.Now}
}

// Сессии хранятся сериализованными, как в Redis: восстановление всегда идёт через разбор

func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("сериализация сессии: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = data
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	data, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("разбор сессии: %w", err)
	}
	if !sess.ExpiresAt.After(s.now()) {
		_ = s.Delete(context.Background(), id)
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
