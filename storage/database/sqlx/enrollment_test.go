package sqlxrepos

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/enrollment"
)

func TestEnrollmentRepository_CreateCompletion(t *testing.T) {
	rec := enrollment.CompletionRecord{
		UserID:      userID,
		UnitID:      unitID,
		CourseID:    courseID,
		Kind:        "video",
		Completed:   true,
		CompletedAt: time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "first completion", affected: 1, want: true},
		{name: "already completed", affected: 0, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (user_id, unit_id) DO NOTHING`)).
				WithArgs(userID, unitID, courseID, "video", true, rec.CompletedAt).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := NewEnrollmentRepository(db).CreateCompletion(context.Background(), rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEnrollmentRepository_CreateEnrollment_duplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO enrollment (`)).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	_, err := NewEnrollmentRepository(db).CreateEnrollment(context.Background(), enrollment.Enrollment{
		ID:       unitID,
		UserID:   userID,
		CourseID: courseID,
	})
	assert.Equal(t, enrollment.ErrAlreadyEnrolled, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepository_GetEnrollment(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM enrollment WHERE user_id = $1 AND course_id = $2`)).
			WithArgs(userID, courseID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := NewEnrollmentRepository(db).GetEnrollment(context.Background(), userID, courseID)
		assert.Equal(t, enrollment.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("found", func(t *testing.T) {
		db, mock := newMock(t)
		now := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows([]string{
			"id", "user_id", "course_id", "progress", "completed_lessons", "price_paid", "coupon_code", "enrolled_at", "completed_at",
		}).AddRow(unitID, userID, courseID, int64(50), []byte(`{"a","b"}`), "19.99", "SAVE10", now, nil)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM enrollment WHERE user_id = $1 AND course_id = $2`)).
			WithArgs(userID, courseID).
			WillReturnRows(rows)

		e, err := NewEnrollmentRepository(db).GetEnrollment(context.Background(), userID, courseID)
		require.NoError(t, err)
		assert.Equal(t, 50, e.Progress)
		assert.Equal(t, []string{"a", "b"}, e.CompletedLessons)
		assert.Equal(t, "19.99", e.PricePaid.String())
		assert.Equal(t, "SAVE10", e.CouponCode.String)
		assert.False(t, e.CompletedAt.Valid)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEnrollmentRepository_CountCompletedUnits(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM content_completion`)).
		WithArgs(userID, courseID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(4)))

	n, err := NewEnrollmentRepository(db).CountCompletedUnits(context.Background(), userID, courseID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
