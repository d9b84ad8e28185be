package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/enrollment"
)

const enrollmentColumns = `id, user_id, course_id, progress, completed_lessons, price_paid, coupon_code, enrolled_at, completed_at`

type enrollmentRow struct {
	ID               string          `db:"id"`
	UserID           string          `db:"user_id"`
	CourseID         string          `db:"course_id"`
	Progress         int             `db:"progress"`
	CompletedLessons pq.StringArray  `db:"completed_lessons"`
	PricePaid        decimal.Decimal `db:"price_paid"`
	CouponCode       null.String     `db:"coupon_code"`
	EnrolledAt       time.Time       `db:"enrolled_at"`
	CompletedAt      null.Time       `db:"completed_at"`
}

func toEnrollmentRow(e enrollment.Enrollment) enrollmentRow {
	lessons := e.CompletedLessons
	if lessons == nil {
		lessons = []string{}
	}
	return enrollmentRow{
		ID:               e.ID,
		UserID:           e.UserID,
		CourseID:         e.CourseID,
		Progress:         e.Progress,
		CompletedLessons: pq.StringArray(lessons),
		PricePaid:        e.PricePaid,
		CouponCode:       e.CouponCode,
		EnrolledAt:       e.EnrolledAt.UTC(),
		CompletedAt:      e.CompletedAt,
	}
}

func (r enrollmentRow) toEnrollment() enrollment.Enrollment {
	lessons := []string(r.CompletedLessons)
	if lessons == nil {
		lessons = []string{}
	}
	return enrollment.Enrollment{
		ID:               r.ID,
		UserID:           r.UserID,
		CourseID:         r.CourseID,
		Progress:         r.Progress,
		CompletedLessons: lessons,
		PricePaid:        r.PricePaid,
		CouponCode:       r.CouponCode,
		EnrolledAt:       r.EnrolledAt.UTC(),
		CompletedAt:      r.CompletedAt,
	}
}

type enrollmentRepository struct {
	exec core.DBExecutor
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(exec core.DBExecutor) *enrollmentRepository {
	return &enrollmentRepository{exec: exec}
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	q := `INSERT INTO enrollment (` + enrollmentColumns + `)
		VALUES (:id, :user_id, :course_id, :progress, :completed_lessons, :price_paid, :coupon_code, :enrolled_at, :completed_at)`
	if _, err := core.GetExec(repo.exec, exec).NamedExecContext(ctx, q, toEnrollmentRow(e)); err != nil {
		if isUniqueViolation(err) {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	if !validID(userID) || !validID(courseID) {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	var row enrollmentRow
	q := `SELECT ` + enrollmentColumns + ` FROM enrollment WHERE user_id = $1 AND course_id = $2`
	if err := core.GetExec(repo.exec, exec).GetContext(ctx, &row, q, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "finding enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo enrollmentRepository) UpdateEnrollment(ctx context.Context, e enrollment.Enrollment, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	q := `UPDATE enrollment SET progress = :progress, completed_lessons = :completed_lessons,
		completed_at = COALESCE(completed_at, :completed_at) WHERE id = :id`
	res, err := core.GetExec(repo.exec, exec).NamedExecContext(ctx, q, toEnrollmentRow(e))
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return e, nil
}

func (repo enrollmentRepository) QueryEnrollments(ctx context.Context, filter enrollment.QueryFilter, exec ...core.DBExecutor) ([]enrollment.Enrollment, error) {
	exe := core.GetExec(repo.exec, exec)

	w := new(where)
	if filter.UserID != "" {
		w.add("user_id::text = ?", filter.UserID)
	}
	if filter.CourseID != "" {
		w.add("course_id::text = ?", filter.CourseID)
	}

	var rows []enrollmentRow
	q := exe.Rebind(`SELECT ` + enrollmentColumns + ` FROM enrollment` + w.String() + ` ORDER BY enrolled_at DESC`)
	if err := exe.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	enrollments := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.toEnrollment())
	}
	return enrollments, nil
}

func (repo enrollmentRepository) QueryEnrolledUserIDs(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]string, error) {
	ids := make([]string, 0)
	if !validID(courseID) {
		return ids, nil
	}
	q := `SELECT e.user_id FROM enrollment e JOIN "user" u ON u.id = e.user_id
		WHERE e.course_id = $1 AND u.is_active ORDER BY e.enrolled_at`
	if err := core.GetExec(repo.exec, exec).SelectContext(ctx, &ids, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying enrolled users")
	}
	return ids, nil
}

func (repo enrollmentRepository) CreateCompletion(ctx context.Context, rec enrollment.CompletionRecord, exec ...core.DBExecutor) (bool, error) {
	q := `INSERT INTO content_completion (user_id, unit_id, course_id, kind, completed, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (user_id, unit_id) DO NOTHING`
	res, err := core.GetExec(repo.exec, exec).ExecContext(ctx, q,
		rec.UserID, rec.UnitID, rec.CourseID, rec.Kind, rec.Completed, rec.CompletedAt.UTC())
	if err != nil {
		return false, errors.Wrap(err, "inserting completion")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "inserting completion")
	}
	return n > 0, nil
}

// CountCompletedUnits only counts completions of units still part of the course.
func (repo enrollmentRepository) CountCompletedUnits(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (int, error) {
	if !validID(userID) || !validID(courseID) {
		return 0, nil
	}
	var n int
	q := `SELECT COUNT(*) FROM content_completion cc JOIN content_unit u ON u.id = cc.unit_id
		WHERE cc.user_id = $1 AND u.course_id = $2 AND cc.completed AND u.kind IN ('video', 'text')`
	if err := core.GetExec(repo.exec, exec).GetContext(ctx, &n, q, userID, courseID); err != nil {
		return 0, errors.Wrap(err, "counting completions")
	}
	return n, nil
}

func (repo enrollmentRepository) QueryCompletedUnitIDs(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) ([]string, error) {
	ids := make([]string, 0)
	if !validID(userID) || !validID(courseID) {
		return ids, nil
	}
	q := `SELECT cc.unit_id FROM content_completion cc JOIN content_unit u ON u.id = cc.unit_id
		WHERE cc.user_id = $1 AND u.course_id = $2 AND cc.completed ORDER BY cc.completed_at`
	if err := core.GetExec(repo.exec, exec).SelectContext(ctx, &ids, q, userID, courseID); err != nil {
		return nil, errors.Wrap(err, "querying completions")
	}
	return ids, nil
}

func (repo enrollmentRepository) CreateQuizAttempt(ctx context.Context, a enrollment.QuizAttempt, exec ...core.DBExecutor) (enrollment.QuizAttempt, error) {
	q := `INSERT INTO quiz_attempt (id, user_id, quiz_id, score, passed, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := core.GetExec(repo.exec, exec).ExecContext(ctx, q, a.ID, a.UserID, a.QuizID, a.Score, a.Passed, a.CreatedAt.UTC()); err != nil {
		return enrollment.QuizAttempt{}, errors.Wrap(err, "inserting quiz attempt")
	}
	return a, nil
}

func (repo enrollmentRepository) HasPassedQuiz(ctx context.Context, userID, quizID string, exec ...core.DBExecutor) (bool, error) {
	if !validID(userID) || !validID(quizID) {
		return false, nil
	}
	var passed bool
	q := `SELECT EXISTS (SELECT 1 FROM quiz_attempt WHERE user_id = $1 AND quiz_id = $2 AND passed)`
	if err := core.GetExec(repo.exec, exec).GetContext(ctx, &passed, q, userID, quizID); err != nil {
		return false, errors.Wrap(err, "checking quiz attempts")
	}
	return passed, nil
}
