package gamification

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
)

type EventKind string

// XP earning events
const (
	EventVideoCompleted  EventKind = "video_completed"
	EventTextCompleted   EventKind = "text_completed"
	EventQuizPassed      EventKind = "quiz_passed"
	EventCourseCompleted EventKind = "course_completed"
)

var defaultEventXP = map[EventKind]int64{
	EventVideoCompleted:  10,
	EventTextCompleted:   5,
	EventQuizPassed:      50,
	EventCourseCompleted: 100,
}

// Event is an XP earning activity.
type Event struct {
	Kind   EventKind
	Reward null.Int64 // overrides the kind's default XP (quiz rewards)
}

// Points returns the XP the event is worth.
func (e Event) Points() int64 {
	if e.Reward.Valid {
		if e.Reward.Int64 < 0 {
			return 0
		}
		return e.Reward.Int64
	}
	return defaultEventXP[e.Kind]
}

type UserXP struct {
	UserID           string    `json:"user_id"`
	TotalXP          int64     `json:"total_xp"`
	Level            int       `json:"level"`
	CurrentStreak    int       `json:"current_streak"`
	LongestStreak    int       `json:"longest_streak"`
	LastActivityDate null.Time `json:"last_activity_date"` // UTC midnight
	VideosCompleted  int       `json:"videos_completed"`
	QuizzesPassed    int       `json:"quizzes_passed"`
	CoursesCompleted int       `json:"courses_completed"`
	UpdatedAt        time.Time `json:"updated_at"` // UTC
}

// NewUserXP returns the initial state of a user's XP record.
func NewUserXP(userID string, now time.Time) UserXP {
	return UserXP{UserID: userID, Level: 1, UpdatedAt: now.UTC()}
}

// ApplyActivity updates the streak counters for an activity on day:
// same day leaves them unchanged, the next day extends the streak and any gap restarts it at 1.
// Activities older than the last recorded one are ignored.
func ApplyActivity(xp *UserXP, day time.Time) {
	day = core.TruncateDay(day)

	if !xp.LastActivityDate.Valid {
		xp.CurrentStreak = 1
	} else {
		last := core.TruncateDay(xp.LastActivityDate.Time)
		switch diff := int(day.Sub(last).Hours() / 24); {
		case diff < 0:
			return
		case diff == 0:
			if xp.CurrentStreak == 0 {
				xp.CurrentStreak = 1
			}
		case diff == 1:
			xp.CurrentStreak++
		default:
			xp.CurrentStreak = 1
		}
	}

	xp.LastActivityDate = null.TimeFrom(day)
	if xp.CurrentStreak > xp.LongestStreak {
		xp.LongestStreak = xp.CurrentStreak
	}
}

// ApplyEvent adds the event to xp (points, counters, streak, level) and returns the points earned.
func ApplyEvent(xp *UserXP, e Event, at time.Time) int64 {
	pts := e.Points()
	xp.TotalXP += pts

	switch e.Kind {
	case EventVideoCompleted:
		xp.VideosCompleted++
	case EventQuizPassed:
		xp.QuizzesPassed++
	case EventCourseCompleted:
		xp.CoursesCompleted++
	}

	ApplyActivity(xp, at)
	xp.Level = LevelForXP(xp.TotalXP)
	xp.UpdatedAt = at.UTC()
	return pts
}

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	TotalXP  int64  `json:"total_xp"`
	Level    int    `json:"level"`
}

// AwardResult is what a single Award call changed.
type AwardResult struct {
	XP        UserXP  `json:"xp"`
	Points    int64   `json:"points"`
	LeveledUp bool    `json:"leveled_up"`
	NewBadges []Badge `json:"new_badges"`
}

type EarnedBadge struct {
	Badge
	AwardedAt time.Time `json:"awarded_at"`
}

type Profile struct {
	UserXP
	Progress LevelProgress `json:"progress"`
	Badges   []EarnedBadge `json:"badges"`
}
