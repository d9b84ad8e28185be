package enrollment

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
)

type counterStub struct {
	units, completed       int
	unitsErr, completedErr error
	completedCalls         int
}

func (c *counterStub) CountContentUnits(context.Context, string, ...core.DBExecutor) (int, error) {
	return c.units, c.unitsErr
}

func (c *counterStub) CountCompletedUnits(context.Context, string, string, ...core.DBExecutor) (int, error) {
	c.completedCalls++
	return c.completed, c.completedErr
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 4, 0},
		{1, 4, 25},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{5, 5, 100},
		{7, 5, 100},
		{-1, 5, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percentage(tt.completed, tt.total), "Percentage(%d, %d)", tt.completed, tt.total)
	}
}

func TestPercentage_Bounds(t *testing.T) {
	for total := 1; total <= 60; total++ {
		prev := 0
		for completed := 0; completed <= total; completed++ {
			got := Percentage(completed, total)
			assert.True(t, got >= 0 && got <= 100)
			assert.GreaterOrEqual(t, got, prev)
			prev = got
		}
		assert.Equal(t, 100, prev)
	}
}

func TestComputeProgress(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")

	t.Run("no units", func(t *testing.T) {
		stub := &counterStub{units: 0, completed: 3}
		got, err := ComputeProgress(ctx, stub, stub, "u1", "c1")
		require.NoError(t, err)
		assert.Equal(t, 0, got)
		assert.Zero(t, stub.completedCalls)
	})

	t.Run("partial", func(t *testing.T) {
		stub := &counterStub{units: 4, completed: 3}
		got, err := ComputeProgress(ctx, stub, stub, "u1", "c1")
		require.NoError(t, err)
		assert.Equal(t, 75, got)
	})

	t.Run("complete", func(t *testing.T) {
		stub := &counterStub{units: 6, completed: 6}
		got, err := ComputeProgress(ctx, stub, stub, "u1", "c1")
		require.NoError(t, err)
		assert.Equal(t, 100, got)
	})

	t.Run("units unavailable", func(t *testing.T) {
		stub := &counterStub{unitsErr: boom}
		_, err := ComputeProgress(ctx, stub, stub, "u1", "c1")
		require.Error(t, err)
		assert.True(t, core.IsDataUnavailable(err))
		assert.Equal(t, boom, errors.Cause(err).(*core.DataUnavailableError).Err)
	})

	t.Run("completions unavailable", func(t *testing.T) {
		stub := &counterStub{units: 2, completedErr: boom}
		_, err := ComputeProgress(ctx, stub, stub, "u1", "c1")
		require.Error(t, err)
		assert.True(t, core.IsDataUnavailable(err))
	})
}
