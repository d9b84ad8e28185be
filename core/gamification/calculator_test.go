package gamification

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int64
	}{
		{level: -3, want: 0},
		{level: 0, want: 0},
		{level: 1, want: 0},
		{level: 2, want: 100},
		{level: 3, want: 300},
		{level: 4, want: 600},
		{level: 5, want: 1000},
		{level: 10, want: 4500},
		{level: 1000, want: 49950000},
		{level: math.MaxInt32, want: math.MaxInt64},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ThresholdForLevel(tt.level), "ThresholdForLevel(%d)", tt.level)
	}
}

func TestThresholdForLevel_Recurrence(t *testing.T) {
	for l := 2; l <= 500; l++ {
		assert.Equal(t, int64(l-1)*xpStep+ThresholdForLevel(l-1), ThresholdForLevel(l), "level %d", l)
	}
}

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp   int64
		want int
	}{
		{xp: -50, want: 1},
		{xp: 0, want: 1},
		{xp: 99, want: 1},
		{xp: 100, want: 2},
		{xp: 299, want: 2},
		{xp: 300, want: 3},
		{xp: 599, want: 3},
		{xp: 600, want: 4},
		{xp: 4499, want: 9},
		{xp: 4500, want: 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForXP(tt.xp), "LevelForXP(%d)", tt.xp)
	}
}

func TestLevelForXP_Properties(t *testing.T) {
	// round trip on exact thresholds, including large levels
	for _, l := range []int{1, 2, 3, 17, 1000, 123456, 400000000} {
		assert.Equal(t, l, LevelForXP(ThresholdForLevel(l)), "round trip level %d", l)
		assert.Equal(t, l, LevelForXP(ThresholdForLevel(l+1)-1), "just below level %d", l+1)
	}

	// bracketing & monotony
	prev := 1
	for xp := int64(0); xp <= 20000; xp += 7 {
		l := LevelForXP(xp)
		assert.True(t, ThresholdForLevel(l) <= xp && xp < ThresholdForLevel(l+1), "xp %d -> level %d", xp, l)
		assert.GreaterOrEqual(t, l, prev)
		prev = l
	}

	// huge values terminate and stay consistent
	l := LevelForXP(math.MaxInt64)
	assert.True(t, ThresholdForLevel(l) <= math.MaxInt64)
	assert.Greater(t, l, 400000000)
}

func TestProgressToNextLevel(t *testing.T) {
	assert.Equal(t, LevelProgress{
		Level: 2, TotalXP: 200, LevelXP: 100, NextLevelXP: 300, XPToNextLevel: 100, PercentToLevel: 50,
	}, ProgressToNextLevel(200))
	assert.Equal(t, LevelProgress{
		Level: 1, TotalXP: 0, LevelXP: 0, NextLevelXP: 100, XPToNextLevel: 100,
	}, ProgressToNextLevel(-10))
}
