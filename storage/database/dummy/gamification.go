package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/gamification"
)

type gamificationRepository struct {
	db *DB
}

var _ gamification.Repository = (*gamificationRepository)(nil) // interface compliance check

func NewGamificationRepository(db *DB) *gamificationRepository {
	return &gamificationRepository{db: db}
}

func (repo *gamificationRepository) GetUserXP(_ context.Context, userID string, _ ...core.DBExecutor) (gamification.UserXP, error) {
	repo.db.gamification.RLock()
	defer repo.db.gamification.RUnlock()

	if xp, ok := repo.db.gamification.xp[userID]; ok {
		return *xp, nil
	}
	return gamification.UserXP{}, gamification.ErrNotFound
}

func (repo *gamificationRepository) GetOrCreateUserXP(_ context.Context, userID string, now time.Time, _ ...core.DBExecutor) (gamification.UserXP, error) {
	repo.db.gamification.Lock()
	defer repo.db.gamification.Unlock()

	xp, ok := repo.db.gamification.xp[userID]
	if !ok {
		rec := gamification.NewUserXP(userID, now)
		xp = &rec
		repo.db.gamification.xp[userID] = xp
	}
	return *xp, nil
}

func (repo *gamificationRepository) UpdateUserXP(_ context.Context, xp gamification.UserXP, _ ...core.DBExecutor) (gamification.UserXP, error) {
	repo.db.gamification.Lock()
	defer repo.db.gamification.Unlock()

	if _, ok := repo.db.gamification.xp[xp.UserID]; !ok {
		return gamification.UserXP{}, gamification.ErrNotFound
	}
	repo.db.gamification.xp[xp.UserID] = &xp
	return xp, nil
}

func (repo *gamificationRepository) QueryUserXP(_ context.Context, _ ...core.DBExecutor) ([]gamification.UserXP, error) {
	repo.db.gamification.RLock()
	defer repo.db.gamification.RUnlock()

	records := make([]gamification.UserXP, 0, len(repo.db.gamification.xp))
	for _, xp := range repo.db.gamification.xp {
		records = append(records, *xp)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UserID < records[j].UserID })
	return records, nil
}

func (repo *gamificationRepository) QueryUserBadges(_ context.Context, userID string, _ ...core.DBExecutor) ([]gamification.UserBadge, error) {
	repo.db.gamification.RLock()
	defer repo.db.gamification.RUnlock()

	return append([]gamification.UserBadge{}, repo.db.gamification.badges[userID]...), nil
}

func (repo *gamificationRepository) AwardBadge(_ context.Context, ub gamification.UserBadge, _ ...core.DBExecutor) (bool, error) {
	repo.db.gamification.Lock()
	defer repo.db.gamification.Unlock()

	for _, held := range repo.db.gamification.badges[ub.UserID] {
		if held.BadgeCode == ub.BadgeCode {
			return false, nil
		}
	}
	repo.db.gamification.badges[ub.UserID] = append(repo.db.gamification.badges[ub.UserID], ub)
	return true, nil
}

// Leaderboard ranks the active users, like the SQL leaderboard view.
func (repo *gamificationRepository) Leaderboard(_ context.Context, limit int, _ ...core.DBExecutor) ([]gamification.LeaderboardEntry, error) {
	repo.db.gamification.RLock()
	records := make([]gamification.UserXP, 0, len(repo.db.gamification.xp))
	for _, xp := range repo.db.gamification.xp {
		records = append(records, *xp)
	}
	repo.db.gamification.RUnlock()

	repo.db.user.RLock()
	entries := make([]gamification.LeaderboardEntry, 0, len(records))
	for _, xp := range records {
		usr, ok := repo.db.user.table[xp.UserID]
		if !ok || !usr.IsActive {
			continue
		}
		entries = append(entries, gamification.LeaderboardEntry{
			UserID:   xp.UserID,
			Username: usr.Username,
			TotalXP:  xp.TotalXP,
			Level:    xp.Level,
		})
	}
	repo.db.user.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalXP != entries[j].TotalXP {
			return entries[i].TotalXP > entries[j].TotalXP
		}
		return entries[i].Username < entries[j].Username
	})
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
