package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	repo.db.course.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	if _, ok := repo.db.course.courses[c.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.course.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if c, ok := repo.db.course.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.course.courses))
	for _, c := range repo.db.course.courses {
		if filter != nil {
			if filter.Search != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(filter.Search)) {
				continue
			}
			if filter.InstructorID != "" && c.InstructorID != filter.InstructorID {
				continue
			}
			if filter.IsPublished != nil && c.IsPublished != *filter.IsPublished {
				continue
			}
		}
		courses = append(courses, *c)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(courses, func(i, j int) bool {
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case "title":
				cmp = strings.Compare(courses[i].Title, courses[j].Title)
			case "price":
				cmp = courses[i].Price.Cmp(courses[j].Price)
			case "created_at":
				cmp = compareTimes(courses[i].CreatedAt, courses[j].CreatedAt)
			}
			if cmp != 0 {
				if ord.Ascending {
					return cmp < 0
				}
				return cmp > 0
			}
		}
		return false
	})
	return courses, nil
}

// DeleteCourse cascades to the course content, like the SQL foreign keys.
func (repo *courseRepository) DeleteCourse(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	if _, ok := repo.db.course.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.course.courses, id)
	for chID, ch := range repo.db.course.chapters {
		if ch.CourseID == id {
			delete(repo.db.course.chapters, chID)
		}
	}
	for uID, u := range repo.db.course.units {
		if u.CourseID == id {
			delete(repo.db.course.units, uID)
		}
	}
	for qID, q := range repo.db.course.quizzes {
		if q.CourseID == id {
			delete(repo.db.course.quizzes, qID)
		}
	}
	return nil
}

func (repo *courseRepository) CreateChapter(_ context.Context, ch course.Chapter, _ ...core.DBExecutor) (course.Chapter, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	if _, ok := repo.db.course.courses[ch.CourseID]; !ok {
		return course.Chapter{}, course.ErrNotFound
	}
	repo.db.course.chapters[ch.ID] = &ch
	return ch, nil
}

func (repo *courseRepository) GetChapter(_ context.Context, id string, _ ...core.DBExecutor) (course.Chapter, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if ch, ok := repo.db.course.chapters[id]; ok {
		return *ch, nil
	}
	return course.Chapter{}, course.ErrChapterNotFound
}

func (repo *courseRepository) QueryChapters(_ context.Context, courseID string, _ ...core.DBExecutor) ([]course.Chapter, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	chapters := make([]course.Chapter, 0)
	for _, ch := range repo.db.course.chapters {
		if ch.CourseID == courseID {
			chapters = append(chapters, *ch)
		}
	}
	sort.Slice(chapters, func(i, j int) bool {
		if chapters[i].Position != chapters[j].Position {
			return chapters[i].Position < chapters[j].Position
		}
		return chapters[i].Title < chapters[j].Title
	})
	return chapters, nil
}

func (repo *courseRepository) CreateContentUnit(_ context.Context, u course.ContentUnit, _ ...core.DBExecutor) (course.ContentUnit, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	if _, ok := repo.db.course.chapters[u.ChapterID]; !ok {
		return course.ContentUnit{}, course.ErrChapterNotFound
	}
	repo.db.course.units[u.ID] = &u
	return u, nil
}

func (repo *courseRepository) GetContentUnit(_ context.Context, id string, _ ...core.DBExecutor) (course.ContentUnit, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if u, ok := repo.db.course.units[id]; ok {
		return *u, nil
	}
	return course.ContentUnit{}, course.ErrUnitNotFound
}

func (repo *courseRepository) QueryContentUnits(_ context.Context, courseID string, _ ...core.DBExecutor) ([]course.ContentUnit, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	units := make([]course.ContentUnit, 0)
	for _, u := range repo.db.course.units {
		if u.CourseID == courseID {
			units = append(units, *u)
		}
	}
	chapterPos := func(u course.ContentUnit) int {
		if ch, ok := repo.db.course.chapters[u.ChapterID]; ok {
			return ch.Position
		}
		return 0
	}
	sort.Slice(units, func(i, j int) bool {
		if pi, pj := chapterPos(units[i]), chapterPos(units[j]); pi != pj {
			return pi < pj
		}
		if units[i].Position != units[j].Position {
			return units[i].Position < units[j].Position
		}
		return units[i].Title < units[j].Title
	})
	return units, nil
}

func (repo *courseRepository) CountContentUnits(_ context.Context, courseID string, _ ...core.DBExecutor) (int, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	var n int
	for _, u := range repo.db.course.units {
		if u.CourseID == courseID && (u.Kind == course.KindVideo || u.Kind == course.KindText) {
			n++
		}
	}
	return n, nil
}

func (repo *courseRepository) CreateQuiz(_ context.Context, q course.Quiz, _ ...core.DBExecutor) (course.Quiz, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	if _, ok := repo.db.course.courses[q.CourseID]; !ok {
		return course.Quiz{}, course.ErrNotFound
	}
	repo.db.course.quizzes[q.ID] = &q
	return q, nil
}

func (repo *courseRepository) GetQuiz(_ context.Context, id string, _ ...core.DBExecutor) (course.Quiz, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if q, ok := repo.db.course.quizzes[id]; ok {
		return *q, nil
	}
	return course.Quiz{}, course.ErrQuizNotFound
}

func (repo *courseRepository) QueryQuizzes(_ context.Context, courseID string, _ ...core.DBExecutor) ([]course.Quiz, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	quizzes := make([]course.Quiz, 0)
	for _, q := range repo.db.course.quizzes {
		if q.CourseID == courseID {
			quizzes = append(quizzes, *q)
		}
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].Title < quizzes[j].Title })
	return quizzes, nil
}

func (repo *courseRepository) GetStats(_ context.Context, instructorID string, _ ...core.DBExecutor) (course.Stats, error) {
	var stats course.Stats
	courseIDs := make(map[string]bool)

	repo.db.course.RLock()
	for _, c := range repo.db.course.courses {
		if c.InstructorID == instructorID {
			stats.CoursesCount++
			courseIDs[c.ID] = true
		}
	}
	repo.db.course.RUnlock()

	students := make(map[string]bool)
	repo.db.enrollment.RLock()
	for _, e := range repo.db.enrollment.enrollments {
		if courseIDs[e.CourseID] {
			students[e.UserID] = true
		}
	}
	repo.db.enrollment.RUnlock()

	stats.StudentsCount = len(students)
	return stats, nil
}
