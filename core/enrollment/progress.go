package enrollment

import (
	"context"

	"github.com/trezcool/elimu/core"
)

type (
	// UnitCounter counts the videos and text lectures of a course.
	UnitCounter interface {
		CountContentUnits(ctx context.Context, courseID string, exec ...core.DBExecutor) (int, error)
	}

	// CompletionCounter counts the course units a user completed.
	CompletionCounter interface {
		CountCompletedUnits(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (int, error)
	}
)

// Percentage returns the completion percentage of a course, in [0, 100].
func Percentage(completed, total int) int {
	return core.Percentage(completed, total)
}

// ComputeProgress returns the user's completion percentage of the course.
// A course without units is at 0. Failed counts yield a core.DataUnavailableError.
func ComputeProgress(ctx context.Context, units UnitCounter, completions CompletionCounter, userID, courseID string, exec ...core.DBExecutor) (int, error) {
	total, err := units.CountContentUnits(ctx, courseID, exec...)
	if err != nil {
		return 0, core.NewDataUnavailableError(err, "enrollment.ComputeProgress: counting units")
	}
	if total == 0 {
		return 0, nil
	}

	completed, err := completions.CountCompletedUnits(ctx, userID, courseID, exec...)
	if err != nil {
		return 0, core.NewDataUnavailableError(err, "enrollment.ComputeProgress: counting completions")
	}
	return Percentage(completed, total), nil
}
