package gamification

import "time"

type Criterion string

const (
	CriterionVideosCompleted  Criterion = "videos_completed"
	CriterionQuizzesPassed    Criterion = "quizzes_passed"
	CriterionCoursesCompleted Criterion = "courses_completed"
	CriterionLongestStreak    Criterion = "longest_streak"
	CriterionLevel            Criterion = "level"
	CriterionTotalXP          Criterion = "total_xp"
)

type Badge struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Criterion   Criterion `json:"criterion"`
	Threshold   int64     `json:"threshold"`
}

type UserBadge struct {
	UserID    string    `json:"user_id"`
	BadgeCode string    `json:"badge_code"`
	AwardedAt time.Time `json:"awarded_at"`
}

var Badges = []Badge{
	{Code: "first_steps", Name: "First Steps", Description: "Complete your first video", Criterion: CriterionVideosCompleted, Threshold: 1},
	{Code: "binge_watcher", Name: "Binge Watcher", Description: "Complete 25 videos", Criterion: CriterionVideosCompleted, Threshold: 25},
	{Code: "quiz_taker", Name: "Quiz Taker", Description: "Pass your first quiz", Criterion: CriterionQuizzesPassed, Threshold: 1},
	{Code: "quiz_master", Name: "Quiz Master", Description: "Pass 10 quizzes", Criterion: CriterionQuizzesPassed, Threshold: 10},
	{Code: "graduate", Name: "Graduate", Description: "Complete a course", Criterion: CriterionCoursesCompleted, Threshold: 1},
	{Code: "scholar", Name: "Scholar", Description: "Complete 5 courses", Criterion: CriterionCoursesCompleted, Threshold: 5},
	{Code: "on_fire", Name: "On Fire", Description: "Learn 7 days in a row", Criterion: CriterionLongestStreak, Threshold: 7},
	{Code: "level_5", Name: "Rising Star", Description: "Reach level 5", Criterion: CriterionLevel, Threshold: 5},
	{Code: "xp_10k", Name: "Veteran", Description: "Earn 10000 XP", Criterion: CriterionTotalXP, Threshold: 10000},
}

var badgesByCode = func() map[string]Badge {
	m := make(map[string]Badge, len(Badges))
	for _, b := range Badges {
		m[b.Code] = b
	}
	return m
}()

func GetBadge(code string) (Badge, bool) {
	b, ok := badgesByCode[code]
	return b, ok
}

func (b Badge) EarnedBy(xp UserXP) bool {
	var val int64
	switch b.Criterion {
	case CriterionVideosCompleted:
		val = int64(xp.VideosCompleted)
	case CriterionQuizzesPassed:
		val = int64(xp.QuizzesPassed)
	case CriterionCoursesCompleted:
		val = int64(xp.CoursesCompleted)
	case CriterionLongestStreak:
		val = int64(xp.LongestStreak)
	case CriterionLevel:
		val = int64(xp.Level)
	case CriterionTotalXP:
		val = xp.TotalXP
	default:
		return false
	}
	return val >= b.Threshold
}

// EarnedBadges returns the catalog badges xp qualifies for.
func EarnedBadges(xp UserXP) []Badge {
	var earned []Badge
	for _, b := range Badges {
		if b.EarnedBy(xp) {
			earned = append(earned, b)
		}
	}
	return earned
}
