// Package session tracks revoked access tokens so logout takes effect before
// the token expires.
package session

import (
	"context"
	"time"

	"github.com/geocoder89/perfeval/internal/cache"
)

// Revoker records token ids that must be rejected until they expire.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Close() error
}

// MemoryRevoker keeps revocations in process. Each web process has its own
// list, so use RedisRevoker when several processes serve the same users.
type MemoryRevoker struct {
	c *cache.Cache[struct{}]
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{c: cache.New[struct{}](time.Hour)}
}

func (r *MemoryRevoker) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	r.c.Sweep()
	r.c.SetUntil(jti, struct{}{}, expiresAt)
	return nil
}

func (r *MemoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := r.c.Get(jti)
	return ok, nil
}

func (r *MemoryRevoker) Close() error { return nil }
