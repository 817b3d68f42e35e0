package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRedisDBConnectsAndSelectsDB(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := NewRedisDB("redis://"+mr.Addr(), "", 3, time.Second, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	require.NoError(t, r.Client.Set(context.Background(), "k", "v", 0).Err())
	mr.Select(3)
	assert.True(t, mr.Exists("k"))
	assert.NoError(t, r.Ping(context.Background()))
}

func TestNewRedisDBPasswordOverridesURL(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("secret")

	_, err := NewRedisDB("redis://:wrong@"+mr.Addr(), "", 0, time.Second, zap.NewNop())
	assert.Error(t, err)

	r, err := NewRedisDB("redis://:wrong@"+mr.Addr(), "secret", 0, time.Second, zap.NewNop())
	require.NoError(t, err)
	r.Close()
}

func TestNewRedisDBRejectsBadURL(t *testing.T) {
	_, err := NewRedisDB("localhost:6379", "", 0, time.Second, zap.NewNop())
	assert.ErrorContains(t, err, "invalid REDIS_URL")
}

func TestRedisDBPingFailsOnceServerStops(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := NewRedisDB("redis://"+mr.Addr(), "", 0, 200*time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	mr.Close()
	assert.Error(t, r.Ping(context.Background()))
}
