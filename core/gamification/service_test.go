package gamification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/gamification"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/storage/database/dummy"
)

type failingBoard struct{}

func (failingBoard) Leaderboard(context.Context, int) ([]gamification.LeaderboardEntry, error) {
	return nil, errors.New("postgrest down")
}

func setup(t *testing.T) (*gamification.Service, gamification.Repository, user.Repository) {
	t.Helper()
	now := time.Date(2021, 3, 10, 9, 0, 0, 0, time.UTC)
	gamification.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { gamification.NowFunc = time.Now })

	db := dummydb.Open()
	repo := dummydb.NewGamificationRepository(db)
	return gamification.NewService(dummydb.TxRunner{}, repo, nil), repo, dummydb.NewUserRepository(db)
}

func TestService_Award(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	res, err := svc.Award(ctx, "u1", gamification.Event{Kind: gamification.EventVideoCompleted})
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Points)
	assert.Equal(t, int64(10), res.XP.TotalXP)
	assert.Equal(t, 1, res.XP.Level)
	assert.Equal(t, 1, res.XP.CurrentStreak)
	assert.False(t, res.LeveledUp)
	require.Len(t, res.NewBadges, 1)
	assert.Equal(t, "first_steps", res.NewBadges[0].Code)

	res, err = svc.Award(ctx, "u1", gamification.Event{Kind: gamification.EventCourseCompleted})
	require.NoError(t, err)
	assert.Equal(t, int64(110), res.XP.TotalXP)
	assert.Equal(t, 2, res.XP.Level)
	assert.True(t, res.LeveledUp)
	require.Len(t, res.NewBadges, 1)
	assert.Equal(t, "graduate", res.NewBadges[0].Code)

	res, err = svc.Award(ctx, "u1", gamification.Event{Kind: gamification.EventVideoCompleted})
	require.NoError(t, err)
	assert.Empty(t, res.NewBadges)
	assert.Equal(t, 2, res.XP.VideosCompleted)
}

func TestService_GetProfile(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	p, err := svc.GetProfile(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, int64(100), p.Progress.NextLevelXP)
	assert.Empty(t, p.Badges)

	_, err = svc.Award(ctx, "u1", gamification.Event{Kind: gamification.EventQuizPassed})
	require.NoError(t, err)
	p, err = svc.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), p.TotalXP)
	assert.Equal(t, 50, p.Progress.PercentToLevel)
	require.Len(t, p.Badges, 1)
	assert.Equal(t, "quiz_taker", p.Badges[0].Code)
}

func TestService_Leaderboard(t *testing.T) {
	svc, repo, usrRepo := setup(t)
	ctx := context.Background()

	for _, u := range []user.User{
		{ID: "u1", Username: "amani", IsActive: true},
		{ID: "u2", Username: "baraka", IsActive: true},
		{ID: "u3", Username: "chausiku", IsActive: false},
	} {
		_, err := usrRepo.CreateUser(ctx, u)
		require.NoError(t, err)
	}
	for userID, events := range map[string]int{"u1": 1, "u2": 3, "u3": 5} {
		for i := 0; i < events; i++ {
			_, err := svc.Award(ctx, userID, gamification.Event{Kind: gamification.EventCourseCompleted})
			require.NoError(t, err)
		}
	}

	entries, err := svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, gamification.LeaderboardEntry{Rank: 1, UserID: "u2", Username: "baraka", TotalXP: 300, Level: 3}, entries[0])
	assert.Equal(t, gamification.LeaderboardEntry{Rank: 2, UserID: "u1", Username: "amani", TotalXP: 100, Level: 2}, entries[1])

	entries, err = svc.Leaderboard(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	t.Run("repository board", func(t *testing.T) {
		boardSvc := gamification.NewService(dummydb.TxRunner{}, repo, gamification.RepositoryBoard{Repo: repo})
		got, err := boardSvc.Leaderboard(ctx, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, entries[0].UserID, got[0].UserID)
	})
}

func TestService_Leaderboard_sourceFailure(t *testing.T) {
	_, repo, _ := setup(t)
	svc := gamification.NewService(dummydb.TxRunner{}, repo, failingBoard{})

	_, err := svc.Leaderboard(context.Background(), 10)
	assert.True(t, core.IsDataUnavailable(err))
}

func TestService_RecalculateLevels(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Award(ctx, "u1", gamification.Event{Kind: gamification.EventCourseCompleted})
	require.NoError(t, err)
	_, err = svc.Award(ctx, "u2", gamification.Event{Kind: gamification.EventTextCompleted})
	require.NoError(t, err)

	xp, err := repo.GetUserXP(ctx, "u1")
	require.NoError(t, err)
	xp.Level = 7
	_, err = repo.UpdateUserXP(ctx, xp)
	require.NoError(t, err)

	changed, err := svc.RecalculateLevels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	xp, err = repo.GetUserXP(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, xp.Level)
}

type cachedBoard struct {
	gamification.RepositoryBoard
	invalidations int
}

func (b *cachedBoard) Invalidate(context.Context) error {
	b.invalidations++
	return nil
}

func TestService_RecalculateLevels_invalidatesLeaderboard(t *testing.T) {
	_, repo, _ := setup(t)
	ctx := context.Background()
	board := &cachedBoard{RepositoryBoard: gamification.RepositoryBoard{Repo: repo}}
	svc := gamification.NewService(dummydb.TxRunner{}, repo, board)

	_, err := svc.Award(ctx, "u1", gamification.Event{Kind: gamification.EventCourseCompleted})
	require.NoError(t, err)

	changed, err := svc.RecalculateLevels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
	assert.Equal(t, 0, board.invalidations, "nothing changed")

	xp, err := repo.GetUserXP(ctx, "u1")
	require.NoError(t, err)
	xp.Level = 5
	_, err = repo.UpdateUserXP(ctx, xp)
	require.NoError(t, err)

	changed, err = svc.RecalculateLevels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Equal(t, 1, board.invalidations)
}
