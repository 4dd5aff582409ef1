package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	refreshTokenPrefix = "token:refresh:"
	jobLockPrefix      = "job:lock:"
)

// ErrTokenNotFound refresh token 不存在或已使用
var ErrTokenNotFound = errors.New("refresh token expired or invalid")

// NewClient 创建redis客户端并检查连通性
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// TokenStore refresh token 存储（轮换 + 吊销）
type TokenStore struct {
	rdb *redis.Client
}

func NewTokenStore(rdb *redis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

// Save 记录 jti -> userID
func (s *TokenStore) Save(ctx context.Context, jti, userID string, ttl time.Duration) error {
	return s.rdb.Set(ctx, refreshTokenPrefix+jti, userID, ttl).Err()
}

// Consume 读取并删除，单次有效
func (s *TokenStore) Consume(ctx context.Context, jti string) (string, error) {
	userID, err := s.rdb.GetDel(ctx, refreshTokenPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

// Revoke 吊销
func (s *TokenStore) Revoke(ctx context.Context, jti string) error {
	return s.rdb.Del(ctx, refreshTokenPrefix+jti).Err()
}

// JobLock 跨进程任务锁
type JobLock struct {
	rdb *redis.Client
}

func NewJobLock(rdb *redis.Client) *JobLock {
	return &JobLock{rdb: rdb}
}

// Acquire 抢占锁，已被占用返回 false
func (l *JobLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, jobLockPrefix+key, time.Now().Format(time.RFC3339), ttl).Result()
}

// Release 释放锁
func (l *JobLock) Release(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, jobLockPrefix+key).Err()
}
