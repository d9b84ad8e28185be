package gamification

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = core.NewNotFoundError("xp record not found")

	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type (
	Repository interface {
		GetUserXP(ctx context.Context, userID string, exec ...core.DBExecutor) (UserXP, error)
		// GetOrCreateUserXP returns the user's record, creating an empty one first.
		// SQL stores lock the row until the end of the transaction.
		GetOrCreateUserXP(ctx context.Context, userID string, now time.Time, exec ...core.DBExecutor) (UserXP, error)
		UpdateUserXP(ctx context.Context, xp UserXP, exec ...core.DBExecutor) (UserXP, error)
		QueryUserXP(ctx context.Context, exec ...core.DBExecutor) ([]UserXP, error)
		QueryUserBadges(ctx context.Context, userID string, exec ...core.DBExecutor) ([]UserBadge, error)
		// AwardBadge stores ub unless the user already holds it; reports whether it was stored.
		AwardBadge(ctx context.Context, ub UserBadge, exec ...core.DBExecutor) (bool, error)
		// Leaderboard returns the top users by total XP.
		Leaderboard(ctx context.Context, limit int, exec ...core.DBExecutor) ([]LeaderboardEntry, error)
	}

	// LeaderboardSource serves the leaderboard from a read path (PostgREST, cache).
	LeaderboardSource interface {
		Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	}

	// LeaderboardInvalidator is implemented by sources that keep entries around (cache).
	LeaderboardInvalidator interface {
		Invalidate(ctx context.Context) error
	}

	Service struct {
		tx    core.TxRunner
		repo  Repository
		board LeaderboardSource
	}
)

// RepositoryBoard reads the leaderboard straight from a Repository.
type RepositoryBoard struct {
	Repo Repository
}

func (b RepositoryBoard) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	return b.Repo.Leaderboard(ctx, limit)
}

// NewService returns the gamification service; a nil board reads the leaderboard from repo.
func NewService(tx core.TxRunner, repo Repository, board LeaderboardSource) *Service {
	return &Service{tx: tx, repo: repo, board: board}
}

// Award adds the event's XP to the user. It joins the caller's transaction when exec is provided.
func (svc *Service) Award(ctx context.Context, userID string, event Event, exec ...core.DBExecutor) (AwardResult, error) {
	var res AwardResult
	now := NowFunc().UTC()

	award := func(exe core.DBExecutor) error {
		xp, err := svc.repo.GetOrCreateUserXP(ctx, userID, now, exe)
		if err != nil {
			return errors.Wrap(err, "getting user xp")
		}
		before := xp.Level

		res.Points = ApplyEvent(&xp, event, now)
		if xp, err = svc.repo.UpdateUserXP(ctx, xp, exe); err != nil {
			return errors.Wrap(err, "updating user xp")
		}
		res.XP = xp
		res.LeveledUp = xp.Level > before

		res.NewBadges, err = svc.syncBadges(ctx, xp, now, exe)
		return err
	}

	var err error
	if len(exec) > 0 && exec[0] != nil {
		err = award(exec[0])
	} else {
		err = svc.tx.RunInTx(ctx, award)
	}
	if err != nil {
		return AwardResult{}, err
	}
	return res, nil
}

// syncBadges awards the badges xp qualifies for and the user does not hold yet.
func (svc *Service) syncBadges(ctx context.Context, xp UserXP, now time.Time, exe core.DBExecutor) ([]Badge, error) {
	earned := EarnedBadges(xp)
	if len(earned) == 0 {
		return nil, nil
	}

	owned, err := svc.repo.QueryUserBadges(ctx, xp.UserID, exe)
	if err != nil {
		return nil, errors.Wrap(err, "querying user badges")
	}
	held := make(map[string]bool, len(owned))
	for _, ub := range owned {
		held[ub.BadgeCode] = true
	}

	var added []Badge
	for _, b := range earned {
		if held[b.Code] {
			continue
		}
		created, err := svc.repo.AwardBadge(ctx, UserBadge{UserID: xp.UserID, BadgeCode: b.Code, AwardedAt: now}, exe)
		if err != nil {
			return nil, errors.Wrap(err, "awarding badge")
		}
		if created {
			added = append(added, b)
		}
	}
	return added, nil
}

// GetProfile returns the user's XP, level progress and badges. Users without activity get a level 1 profile.
func (svc *Service) GetProfile(ctx context.Context, userID string) (Profile, error) {
	xp, err := svc.repo.GetUserXP(ctx, userID)
	if err != nil {
		if err != ErrNotFound {
			return Profile{}, core.NewDataUnavailableError(err, "gamification.GetProfile")
		}
		xp = NewUserXP(userID, NowFunc())
	}

	owned, err := svc.repo.QueryUserBadges(ctx, userID)
	if err != nil {
		return Profile{}, core.NewDataUnavailableError(err, "gamification.GetProfile")
	}

	p := Profile{
		UserXP:   xp,
		Progress: ProgressToNextLevel(xp.TotalXP),
		Badges:   make([]EarnedBadge, 0, len(owned)),
	}
	for _, ub := range owned {
		if b, ok := GetBadge(ub.BadgeCode); ok {
			p.Badges = append(p.Badges, EarnedBadge{Badge: b, AwardedAt: ub.AwardedAt})
		}
	}
	return p, nil
}

// Leaderboard returns the top `limit` users by XP (default 10, max 100), ranked from 1.
func (svc *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	} else if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	var (
		entries []LeaderboardEntry
		err     error
	)
	if svc.board != nil {
		entries, err = svc.board.Leaderboard(ctx, limit)
	} else {
		entries, err = svc.repo.Leaderboard(ctx, limit)
	}
	if err != nil {
		return nil, core.NewDataUnavailableError(err, "gamification.Leaderboard")
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// RecalculateLevels re-derives every stored level from its total XP and awards missing badges.
// It returns the number of records whose level changed.
func (svc *Service) RecalculateLevels(ctx context.Context) (int, error) {
	records, err := svc.repo.QueryUserXP(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "querying user xp")
	}

	var changed int
	now := NowFunc().UTC()
	for _, xp := range records {
		xp := xp
		err = svc.tx.RunInTx(ctx, func(exe core.DBExecutor) error {
			if lvl := LevelForXP(xp.TotalXP); lvl != xp.Level {
				xp.Level = lvl
				xp.UpdatedAt = now
				if _, err := svc.repo.UpdateUserXP(ctx, xp, exe); err != nil {
					return errors.Wrap(err, "updating user xp")
				}
				changed++
			}
			_, err := svc.syncBadges(ctx, xp, now, exe)
			return err
		})
		if err != nil {
			return changed, err
		}
	}

	if inv, ok := svc.board.(LeaderboardInvalidator); ok && changed > 0 {
		if err := inv.Invalidate(ctx); err != nil {
			return changed, errors.Wrap(err, "invalidating leaderboard")
		}
	}
	return changed, nil
}
