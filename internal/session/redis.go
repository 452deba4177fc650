package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "perfeval:revoked:"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisRevoker shares revocations between processes. Keys expire with the
// token they revoke.
type RedisRevoker struct {
	rdb *redis.Client
}

func NewRedisRevoker(cfg RedisConfig) *RedisRevoker {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &RedisRevoker{rdb: rdb}
}

func revokedKey(jti string) string {
	return redisKeyPrefix + jti
}

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedKey(jti), 1, ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.rdb.Get(ctx, revokedKey(jti)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}

// Ping checks redis connectivity.
func (r *RedisRevoker) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisRevoker) Close() error {
	return r.rdb.Close()
}
