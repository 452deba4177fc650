package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRevoker()
	defer r.Close()

	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, _ = r.IsRevoked(ctx, "jti-1")
	assert.True(t, revoked)

	require.NoError(t, r.Revoke(ctx, "jti-2", time.Now().Add(-time.Second)))
	revoked, _ = r.IsRevoked(ctx, "jti-2")
	assert.False(t, revoked, "an already expired token needs no entry")
}

func TestRedisRevoker_KeyLayout(t *testing.T) {
	assert.Equal(t, "perfeval:revoked:abc", revokedKey("abc"))
}

func TestRedisRevoker_ExpiredTokenSkipsRedis(t *testing.T) {
	r := NewRedisRevoker(RedisConfig{Addr: "127.0.0.1:1"})
	defer r.Close()

	assert.NoError(t, r.Revoke(context.Background(), "old", time.Now().Add(-time.Minute)))
}

var (
	_ Revoker = (*MemoryRevoker)(nil)
	_ Revoker = (*RedisRevoker)(nil)
)
