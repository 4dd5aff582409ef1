package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreTokens(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Save(ctx, "jti-1", "user-1", time.Hour); err != nil {
		t.Fatalf("Save: %v", err)
	}
	userID, err := s.Consume(ctx, "jti-1")
	if err != nil || userID != "user-1" {
		t.Fatalf("Consume = (%q, %v)", userID, err)
	}
	// 刷新令牌只能用一次
	if _, err := s.Consume(ctx, "jti-1"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("second Consume err = %v, want ErrTokenNotFound", err)
	}

	s.Save(ctx, "jti-2", "user-1", time.Hour)
	s.Revoke(ctx, "jti-2")
	if _, err := s.Consume(ctx, "jti-2"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("revoked token still valid: %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	s.Save(ctx, "jti", "user", time.Minute)
	now = now.Add(2 * time.Minute)
	if _, err := s.Consume(ctx, "jti"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expired token consumed: %v", err)
	}
}

func TestMemoryStoreJobLock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	ok, _ := s.Acquire(ctx, "etd:2026-01-01", time.Hour)
	if !ok {
		t.Fatalf("first Acquire should succeed")
	}
	if ok, _ := s.Acquire(ctx, "etd:2026-01-01", time.Hour); ok {
		t.Fatalf("second Acquire should fail while held")
	}

	now = now.Add(2 * time.Hour)
	if ok, _ := s.Acquire(ctx, "etd:2026-01-01", time.Hour); !ok {
		t.Fatalf("Acquire after expiry should succeed")
	}
	s.Release(ctx, "etd:2026-01-01")
	if ok, _ := s.Acquire(ctx, "etd:2026-01-01", time.Hour); !ok {
		t.Fatalf("Acquire after Release should succeed")
	}
}
