package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore 进程内实现 TokenStore 和 JobLock，未配置redis时及测试中使用
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) set(key, value string, ttl time.Duration) {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
}

func (s *MemoryStore) Save(ctx context.Context, jti, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(refreshTokenPrefix+jti, userID, ttl)
	return nil
}

func (s *MemoryStore) Consume(ctx context.Context, jti string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := refreshTokenPrefix + jti
	e, ok := s.entries[key]
	delete(s.entries, key)
	if !ok || e.expired(s.now()) {
		return "", ErrTokenNotFound
	}
	return e.value, nil
}

func (s *MemoryStore) Revoke(ctx context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, refreshTokenPrefix+jti)
	return nil
}

func (s *MemoryStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := jobLockPrefix + key
	if e, ok := s.entries[k]; ok && !e.expired(s.now()) {
		return false, nil
	}
	s.set(k, s.now().Format(time.RFC3339), ttl)
	return true, nil
}

func (s *MemoryStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, jobLockPrefix+key)
	return nil
}
