package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/videotube-api/internal/config"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T, max int) (AttemptLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewAttemptLimiter(rdb, &config.Config{OTPMaxAttempts: max, OTPWindow: time.Minute}, zap.NewNop()), mr
}

func TestAllow_BlocksAfterMax(t *testing.T) {
	l, _ := newTestLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "a@b.com")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "a@b.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "other@b.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllow_WindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t, 1)
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "a@b.com")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "a@b.com")
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err := l.Allow(ctx, "a@b.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReset(t *testing.T) {
	l, _ := newTestLimiter(t, 1)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "a@b.com")
	require.NoError(t, l.Reset(ctx, "a@b.com"))

	ok, err := l.Allow(ctx, "a@b.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewAttemptLimiter_NilClientAllows(t *testing.T) {
	l := NewAttemptLimiter(nil, &config.Config{}, zap.NewNop())
	ok, err := l.Allow(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, ok)
}
