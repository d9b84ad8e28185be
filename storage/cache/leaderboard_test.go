package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/gamification"
	logsvc "github.com/trezcool/elimu/services/logger"
)

type sourceStub struct {
	calls   int
	entries []gamification.LeaderboardEntry
	err     error
}

func (s *sourceStub) Leaderboard(_ context.Context, limit int) ([]gamification.LeaderboardEntry, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.entries) > limit {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

func setup(t *testing.T) (*Leaderboard, *sourceStub, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	conf := core.NewTestConfig()
	conf.Redis.Address = mr.Addr()
	conf.Redis.LeaderboardTTL = time.Minute

	rdb, err := NewRedisClient(context.Background(), conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	src := &sourceStub{entries: []gamification.LeaderboardEntry{
		{UserID: "u2", Username: "bob", TotalXP: 300, Level: 3},
		{UserID: "u1", Username: "alice", TotalXP: 100, Level: 2},
	}}
	return NewLeaderboard(rdb, src, conf, logsvc.NewNopLogger()), src, mr
}

func TestLeaderboard_caches(t *testing.T) {
	lb, src, mr := setup(t)
	ctx := context.Background()

	entries, err := lb.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, src.calls)
	assert.True(t, mr.Exists("elimu:leaderboard:10"))
	assert.Equal(t, time.Minute, mr.TTL("elimu:leaderboard:10"))

	cached, err := lb.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, entries, cached)
	assert.Equal(t, 1, src.calls)

	// limits are cached separately
	top, err := lb.Leaderboard(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
	assert.Equal(t, 2, src.calls)

	mr.FastForward(2 * time.Minute)
	_, err = lb.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls)
}

func TestLeaderboard_Invalidate(t *testing.T) {
	lb, src, mr := setup(t)
	ctx := context.Background()

	for _, limit := range []int{1, 10} {
		_, err := lb.Leaderboard(ctx, limit)
		require.NoError(t, err)
	}
	require.NoError(t, lb.Invalidate(ctx))
	assert.False(t, mr.Exists("elimu:leaderboard:1"))
	assert.False(t, mr.Exists("elimu:leaderboard:10"))

	_, err := lb.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls)
}

func TestLeaderboard_sourceError(t *testing.T) {
	lb, src, mr := setup(t)
	src.err = errors.New("down")

	_, err := lb.Leaderboard(context.Background(), 10)
	assert.Equal(t, src.err, err)
	assert.False(t, mr.Exists("elimu:leaderboard:10"))
}

func TestLeaderboard_redisDown(t *testing.T) {
	lb, src, mr := setup(t)
	mr.Close()

	entries, err := lb.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 1, src.calls)
}

func TestNewRedisClient_unreachable(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Redis.Address = "127.0.0.1:1"
	_, err := NewRedisClient(context.Background(), conf)
	assert.Error(t, err)
}
