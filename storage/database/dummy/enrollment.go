package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func completionKey(userID, unitID string) string { return userID + "/" + unitID }

func (repo *enrollmentRepository) find(userID, courseID string) *enrollment.Enrollment {
	for _, e := range repo.db.enrollment.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return e
		}
	}
	return nil
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, e enrollment.Enrollment, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	if repo.find(e.UserID, e.CourseID) != nil {
		return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
	}
	e.CompletedLessons = append([]string{}, e.CompletedLessons...)
	repo.db.enrollment.enrollments[e.ID] = &e
	return e, nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, userID, courseID string, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	if e := repo.find(userID, courseID); e != nil {
		return copyEnrollment(*e), nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

// UpdateEnrollment keeps the first CompletedAt, like the SQL COALESCE.
func (repo *enrollmentRepository) UpdateEnrollment(_ context.Context, e enrollment.Enrollment, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	orig, ok := repo.db.enrollment.enrollments[e.ID]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	orig.Progress = e.Progress
	orig.CompletedLessons = append([]string{}, e.CompletedLessons...)
	if !orig.CompletedAt.Valid {
		orig.CompletedAt = e.CompletedAt
	}
	return copyEnrollment(*orig), nil
}

func (repo *enrollmentRepository) QueryEnrollments(_ context.Context, filter enrollment.QueryFilter, _ ...core.DBExecutor) ([]enrollment.Enrollment, error) {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	enrollments := make([]enrollment.Enrollment, 0)
	for _, e := range repo.db.enrollment.enrollments {
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.CourseID != "" && e.CourseID != filter.CourseID {
			continue
		}
		enrollments = append(enrollments, copyEnrollment(*e))
	}
	sort.SliceStable(enrollments, func(i, j int) bool {
		return enrollments[i].EnrolledAt.After(enrollments[j].EnrolledAt)
	})
	return enrollments, nil
}

func (repo *enrollmentRepository) QueryEnrolledUserIDs(_ context.Context, courseID string, _ ...core.DBExecutor) ([]string, error) {
	repo.db.enrollment.RLock()
	enrolled := make([]enrollment.Enrollment, 0)
	for _, e := range repo.db.enrollment.enrollments {
		if e.CourseID == courseID {
			enrolled = append(enrolled, *e)
		}
	}
	repo.db.enrollment.RUnlock()
	sort.SliceStable(enrolled, func(i, j int) bool { return enrolled[i].EnrolledAt.Before(enrolled[j].EnrolledAt) })

	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	ids := make([]string, 0, len(enrolled))
	for _, e := range enrolled {
		if usr, ok := repo.db.user.table[e.UserID]; ok && usr.IsActive {
			ids = append(ids, e.UserID)
		}
	}
	return ids, nil
}

func (repo *enrollmentRepository) CreateCompletion(_ context.Context, rec enrollment.CompletionRecord, _ ...core.DBExecutor) (bool, error) {
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	key := completionKey(rec.UserID, rec.UnitID)
	if _, ok := repo.db.enrollment.completions[key]; ok {
		return false, nil
	}
	repo.db.enrollment.completions[key] = &rec
	return true, nil
}

// courseUnits returns the IDs of the course videos and text lectures.
func (repo *enrollmentRepository) courseUnits(courseID string) map[string]bool {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	units := make(map[string]bool)
	for _, u := range repo.db.course.units {
		if u.CourseID == courseID && (u.Kind == course.KindVideo || u.Kind == course.KindText) {
			units[u.ID] = true
		}
	}
	return units
}

func (repo *enrollmentRepository) completed(userID, courseID string) []enrollment.CompletionRecord {
	units := repo.courseUnits(courseID)

	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	records := make([]enrollment.CompletionRecord, 0)
	for _, rec := range repo.db.enrollment.completions {
		if rec.UserID == userID && rec.Completed && units[rec.UnitID] {
			records = append(records, *rec)
		}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].CompletedAt.Before(records[j].CompletedAt) })
	return records
}

func (repo *enrollmentRepository) CountCompletedUnits(_ context.Context, userID, courseID string, _ ...core.DBExecutor) (int, error) {
	return len(repo.completed(userID, courseID)), nil
}

func (repo *enrollmentRepository) QueryCompletedUnitIDs(_ context.Context, userID, courseID string, _ ...core.DBExecutor) ([]string, error) {
	records := repo.completed(userID, courseID)
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.UnitID)
	}
	return ids, nil
}

func (repo *enrollmentRepository) CreateQuizAttempt(_ context.Context, a enrollment.QuizAttempt, _ ...core.DBExecutor) (enrollment.QuizAttempt, error) {
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	repo.db.enrollment.attempts = append(repo.db.enrollment.attempts, a)
	return a, nil
}

func (repo *enrollmentRepository) HasPassedQuiz(_ context.Context, userID, quizID string, _ ...core.DBExecutor) (bool, error) {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	for _, a := range repo.db.enrollment.attempts {
		if a.UserID == userID && a.QuizID == quizID && a.Passed {
			return true, nil
		}
	}
	return false, nil
}

func copyEnrollment(e enrollment.Enrollment) enrollment.Enrollment {
	e.CompletedLessons = append([]string{}, e.CompletedLessons...)
	return e
}
