package gamification

import "math"

// xpStep is the extra XP each level costs over the previous one.
const xpStep = 100

// ThresholdForLevel returns the total XP needed to reach level:
// threshold(1) = 0 and threshold(L) = threshold(L-1) + (L-1)*100, i.e. 50*(L-1)*L.
// Levels whose threshold does not fit in an int64 saturate at math.MaxInt64.
func ThresholdForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	l := int64(level)
	if l-1 > math.MaxInt64/(xpStep/2)/l {
		return math.MaxInt64
	}
	return (xpStep / 2) * (l - 1) * l
}

// LevelForXP returns the largest level L such that ThresholdForLevel(L) <= totalXP (1 for totalXP <= 0).
// The closed-form inverse is corrected for floating point error, so the result is exact.
func LevelForXP(totalXP int64) int {
	if totalXP <= 0 {
		return 1
	}

	// 50*L*(L-1) <= xp  <=>  L <= (1 + sqrt(1 + xp/12.5)) / 2
	level := int((1 + math.Sqrt(1+float64(totalXP)/12.5)) / 2)
	if level < 1 {
		level = 1
	}
	reached := func(l int) bool {
		t := ThresholdForLevel(l)
		return t != math.MaxInt64 && t <= totalXP
	}
	for level > 1 && !reached(level) {
		level--
	}
	for reached(level + 1) {
		level++
	}
	return level
}

// LevelProgress describes where a total XP sits between two levels.
type LevelProgress struct {
	Level          int   `json:"level"`
	TotalXP        int64 `json:"total_xp"`
	LevelXP        int64 `json:"level_xp"`      // threshold of the current level
	NextLevelXP    int64 `json:"next_level_xp"` // threshold of the next level
	XPToNextLevel  int64 `json:"xp_to_next_level"`
	PercentToLevel int   `json:"percent_to_next_level"`
}

func ProgressToNextLevel(totalXP int64) LevelProgress {
	if totalXP < 0 {
		totalXP = 0
	}
	level := LevelForXP(totalXP)
	cur, next := ThresholdForLevel(level), ThresholdForLevel(level+1)

	p := LevelProgress{
		Level:         level,
		TotalXP:       totalXP,
		LevelXP:       cur,
		NextLevelXP:   next,
		XPToNextLevel: next - totalXP,
	}
	if span := next - cur; span > 0 {
		p.PercentToLevel = int(math.Round(100 * float64(totalXP-cur) / float64(span)))
	}
	return p
}
