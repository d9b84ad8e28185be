package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/gamification"
)

const userXPColumns = `user_id, total_xp, level, current_streak, longest_streak, last_activity_date,
	videos_completed, quizzes_passed, courses_completed, updated_at`

type userXPRow struct {
	UserID           string    `db:"user_id"`
	TotalXP          int64     `db:"total_xp"`
	Level            int       `db:"level"`
	CurrentStreak    int       `db:"current_streak"`
	LongestStreak    int       `db:"longest_streak"`
	LastActivityDate null.Time `db:"last_activity_date"`
	VideosCompleted  int       `db:"videos_completed"`
	QuizzesPassed    int       `db:"quizzes_passed"`
	CoursesCompleted int       `db:"courses_completed"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func toUserXPRow(xp gamification.UserXP) userXPRow {
	return userXPRow{
		UserID:           xp.UserID,
		TotalXP:          xp.TotalXP,
		Level:            xp.Level,
		CurrentStreak:    xp.CurrentStreak,
		LongestStreak:    xp.LongestStreak,
		LastActivityDate: xp.LastActivityDate,
		VideosCompleted:  xp.VideosCompleted,
		QuizzesPassed:    xp.QuizzesPassed,
		CoursesCompleted: xp.CoursesCompleted,
		UpdatedAt:        xp.UpdatedAt.UTC(),
	}
}

func (r userXPRow) toUserXP() gamification.UserXP {
	xp := gamification.UserXP{
		UserID:           r.UserID,
		TotalXP:          r.TotalXP,
		Level:            r.Level,
		CurrentStreak:    r.CurrentStreak,
		LongestStreak:    r.LongestStreak,
		LastActivityDate: r.LastActivityDate,
		VideosCompleted:  r.VideosCompleted,
		QuizzesPassed:    r.QuizzesPassed,
		CoursesCompleted: r.CoursesCompleted,
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
	if xp.LastActivityDate.Valid {
		xp.LastActivityDate.Time = core.TruncateDay(xp.LastActivityDate.Time)
	}
	return xp
}

type gamificationRepository struct {
	exec core.DBExecutor
}

var _ gamification.Repository = (*gamificationRepository)(nil) // interface compliance check

func NewGamificationRepository(exec core.DBExecutor) *gamificationRepository {
	return &gamificationRepository{exec: exec}
}

func (repo gamificationRepository) GetUserXP(ctx context.Context, userID string, exec ...core.DBExecutor) (gamification.UserXP, error) {
	if !validID(userID) {
		return gamification.UserXP{}, gamification.ErrNotFound
	}
	var row userXPRow
	q := `SELECT ` + userXPColumns + ` FROM user_xp WHERE user_id = $1`
	if err := core.GetExec(repo.exec, exec).GetContext(ctx, &row, q, userID); err != nil {
		if err == sql.ErrNoRows {
			return gamification.UserXP{}, gamification.ErrNotFound
		}
		return gamification.UserXP{}, errors.Wrap(err, "finding user xp")
	}
	return row.toUserXP(), nil
}

func (repo gamificationRepository) GetOrCreateUserXP(ctx context.Context, userID string, now time.Time, exec ...core.DBExecutor) (gamification.UserXP, error) {
	exe := core.GetExec(repo.exec, exec)

	q := `INSERT INTO user_xp (user_id, level, updated_at) VALUES ($1, 1, $2) ON CONFLICT (user_id) DO NOTHING`
	if _, err := exe.ExecContext(ctx, q, userID, now.UTC()); err != nil {
		return gamification.UserXP{}, errors.Wrap(err, "creating user xp")
	}

	var row userXPRow
	q = `SELECT ` + userXPColumns + ` FROM user_xp WHERE user_id = $1 FOR UPDATE`
	if err := exe.GetContext(ctx, &row, q, userID); err != nil {
		return gamification.UserXP{}, errors.Wrap(err, "locking user xp")
	}
	return row.toUserXP(), nil
}

func (repo gamificationRepository) UpdateUserXP(ctx context.Context, xp gamification.UserXP, exec ...core.DBExecutor) (gamification.UserXP, error) {
	q := `UPDATE user_xp SET total_xp = :total_xp, level = :level, current_streak = :current_streak,
		longest_streak = :longest_streak, last_activity_date = :last_activity_date,
		videos_completed = :videos_completed, quizzes_passed = :quizzes_passed,
		courses_completed = :courses_completed, updated_at = :updated_at
		WHERE user_id = :user_id`
	res, err := core.GetExec(repo.exec, exec).NamedExecContext(ctx, q, toUserXPRow(xp))
	if err != nil {
		return gamification.UserXP{}, errors.Wrap(err, "updating user xp")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return gamification.UserXP{}, gamification.ErrNotFound
	}
	return xp, nil
}

func (repo gamificationRepository) QueryUserXP(ctx context.Context, exec ...core.DBExecutor) ([]gamification.UserXP, error) {
	var rows []userXPRow
	q := `SELECT ` + userXPColumns + ` FROM user_xp ORDER BY user_id`
	if err := core.GetExec(repo.exec, exec).SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying user xp")
	}

	records := make([]gamification.UserXP, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toUserXP())
	}
	return records, nil
}

func (repo gamificationRepository) QueryUserBadges(ctx context.Context, userID string, exec ...core.DBExecutor) ([]gamification.UserBadge, error) {
	badges := make([]gamification.UserBadge, 0)
	if !validID(userID) {
		return badges, nil
	}

	var rows []struct {
		UserID    string    `db:"user_id"`
		BadgeCode string    `db:"badge_code"`
		AwardedAt time.Time `db:"awarded_at"`
	}
	q := `SELECT user_id, badge_code, awarded_at FROM user_badge WHERE user_id = $1 ORDER BY awarded_at, badge_code`
	if err := core.GetExec(repo.exec, exec).SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying user badges")
	}
	for _, row := range rows {
		badges = append(badges, gamification.UserBadge{UserID: row.UserID, BadgeCode: row.BadgeCode, AwardedAt: row.AwardedAt.UTC()})
	}
	return badges, nil
}

func (repo gamificationRepository) AwardBadge(ctx context.Context, ub gamification.UserBadge, exec ...core.DBExecutor) (bool, error) {
	q := `INSERT INTO user_badge (user_id, badge_code, awarded_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, badge_code) DO NOTHING`
	res, err := core.GetExec(repo.exec, exec).ExecContext(ctx, q, ub.UserID, ub.BadgeCode, ub.AwardedAt.UTC())
	if err != nil {
		return false, errors.Wrap(err, "awarding badge")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "awarding badge")
	}
	return n > 0, nil
}

func (repo gamificationRepository) Leaderboard(ctx context.Context, limit int, exec ...core.DBExecutor) ([]gamification.LeaderboardEntry, error) {
	var rows []struct {
		UserID   string      `db:"user_id"`
		Username null.String `db:"username"`
		TotalXP  int64       `db:"total_xp"`
		Level    int         `db:"level"`
	}
	q := `SELECT user_id, username, total_xp, level FROM leaderboard ORDER BY total_xp DESC, username LIMIT $1`
	if err := core.GetExec(repo.exec, exec).SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, errors.Wrap(err, "querying leaderboard")
	}

	entries := make([]gamification.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, gamification.LeaderboardEntry{
			UserID:   row.UserID,
			Username: row.Username.String,
			TotalXP:  row.TotalXP,
			Level:    row.Level,
		})
	}
	return entries, nil
}
