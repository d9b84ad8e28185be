package course

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("course not found")
	ErrChapterNotFound = core.NewNotFoundError("chapter not found")
	ErrUnitNotFound    = core.NewNotFoundError("content unit not found")
	ErrQuizNotFound    = core.NewNotFoundError("quiz not found")
	ErrForbidden       = core.NewPermissionError("only the course instructor or an admin may modify this course")

	errNegativePrice      = errors.New("price cannot be negative")
	errCorrectOptionRange = errors.New("correct option is out of range")
	errChapterMismatch    = errors.New("chapter does not belong to this course")
)

// Repository stores courses and their content.
type Repository interface {
	CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
	UpdateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
	GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
	QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error)
	DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error

	CreateChapter(ctx context.Context, ch Chapter, exec ...core.DBExecutor) (Chapter, error)
	GetChapter(ctx context.Context, id string, exec ...core.DBExecutor) (Chapter, error)
	// QueryChapters returns the course chapters ordered by position.
	QueryChapters(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Chapter, error)

	CreateContentUnit(ctx context.Context, u ContentUnit, exec ...core.DBExecutor) (ContentUnit, error)
	GetContentUnit(ctx context.Context, id string, exec ...core.DBExecutor) (ContentUnit, error)
	// QueryContentUnits returns the course units ordered by chapter position, then unit position.
	QueryContentUnits(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]ContentUnit, error)
	// CountContentUnits counts the videos and text lectures of a course.
	CountContentUnits(ctx context.Context, courseID string, exec ...core.DBExecutor) (int, error)

	CreateQuiz(ctx context.Context, q Quiz, exec ...core.DBExecutor) (Quiz, error)
	GetQuiz(ctx context.Context, id string, exec ...core.DBExecutor) (Quiz, error)
	QueryQuizzes(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Quiz, error)

	// GetStats counts the instructor's courses and the distinct students enrolled in them.
	GetStats(ctx context.Context, instructorID string, exec ...core.DBExecutor) (Stats, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateCourse(ctx context.Context, instructor user.User, nc NewCourse) (Course, error) {
	if !(instructor.IsInstructor() || instructor.IsAdmin()) {
		return Course{}, ErrForbidden
	}
	now := time.Now().UTC()
	c := Course{
		ID:           uuid.New().String(),
		InstructorID: instructor.ID,
		Title:        nc.Title,
		Description:  nc.Description,
		Price:        nc.Price.Round(2),
		IsPublished:  nc.IsPublished,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateCourse(ctx, c)
}

func (svc *Service) UpdateCourse(ctx context.Context, actor user.User, id string, uc UpdateCourse) (Course, error) {
	c, err := svc.getModifiable(ctx, actor, id)
	if err != nil {
		return Course{}, err
	}
	if uc.Title != "" {
		c.Title = uc.Title
	}
	if uc.Description != nil {
		c.Description = core.CleanString(*uc.Description)
	}
	if uc.Price != nil {
		c.Price = uc.Price.Round(2)
	}
	if uc.IsPublished != nil {
		c.IsPublished = *uc.IsPublished
	}
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, c)
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

func (svc *Service) DeleteCourse(ctx context.Context, actor user.User, id string) error {
	if _, err := svc.getModifiable(ctx, actor, id); err != nil {
		return err
	}
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *Service) AddChapter(ctx context.Context, actor user.User, courseID string, nc NewChapter) (Chapter, error) {
	if _, err := svc.getModifiable(ctx, actor, courseID); err != nil {
		return Chapter{}, err
	}
	return svc.repo.CreateChapter(ctx, Chapter{
		ID:       uuid.New().String(),
		CourseID: courseID,
		Title:    nc.Title,
		Position: nc.Position,
	})
}

func (svc *Service) QueryChapters(ctx context.Context, courseID string) ([]Chapter, error) {
	return svc.repo.QueryChapters(ctx, courseID)
}

func (svc *Service) AddContentUnit(ctx context.Context, actor user.User, courseID string, nu NewContentUnit) (ContentUnit, error) {
	if _, err := svc.getModifiable(ctx, actor, courseID); err != nil {
		return ContentUnit{}, err
	}
	if err := svc.checkChapter(ctx, courseID, nu.ChapterID); err != nil {
		return ContentUnit{}, err
	}

	unit := ContentUnit{
		ID:        uuid.New().String(),
		ChapterID: nu.ChapterID,
		CourseID:  courseID,
		Kind:      nu.Kind,
		Title:     nu.Title,
		Position:  nu.Position,
	}
	switch nu.Kind {
	case KindVideo:
		unit.VideoURL = nu.VideoURL
		unit.DurationSeconds = nu.DurationSeconds
	case KindText:
		unit.Body = nu.Body
	}
	return svc.repo.CreateContentUnit(ctx, unit)
}

func (svc *Service) GetContentUnit(ctx context.Context, id string) (ContentUnit, error) {
	return svc.repo.GetContentUnit(ctx, id)
}

func (svc *Service) QueryContentUnits(ctx context.Context, courseID string) ([]ContentUnit, error) {
	return svc.repo.QueryContentUnits(ctx, courseID)
}

func (svc *Service) CreateQuiz(ctx context.Context, actor user.User, courseID string, nq NewQuiz) (Quiz, error) {
	if _, err := svc.getModifiable(ctx, actor, courseID); err != nil {
		return Quiz{}, err
	}

	q := Quiz{
		ID:           uuid.New().String(),
		CourseID:     courseID,
		Title:        nq.Title,
		PassingScore: defaultPassingScore,
		XPReward:     defaultQuizXPReward,
		Questions:    make([]Question, 0, len(nq.Questions)),
	}
	if nq.ChapterID != "" {
		if err := svc.checkChapter(ctx, courseID, nq.ChapterID); err != nil {
			return Quiz{}, err
		}
		q.ChapterID = null.StringFrom(nq.ChapterID)
	}
	if nq.PassingScore != nil {
		q.PassingScore = *nq.PassingScore
	}
	if nq.XPReward != nil {
		q.XPReward = *nq.XPReward
	}
	for _, qn := range nq.Questions {
		qn.ID = uuid.New().String()
		qn.Prompt = core.CleanString(qn.Prompt)
		q.Questions = append(q.Questions, qn)
	}
	return svc.repo.CreateQuiz(ctx, q)
}

func (svc *Service) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	return svc.repo.GetQuiz(ctx, id)
}

func (svc *Service) QueryQuizzes(ctx context.Context, courseID string) ([]Quiz, error) {
	return svc.repo.QueryQuizzes(ctx, courseID)
}

// Stats returns the instructor's course and student counts.
func (svc *Service) Stats(ctx context.Context, instructorID string) (Stats, error) {
	stats, err := svc.repo.GetStats(ctx, instructorID)
	if err != nil {
		return Stats{}, core.NewDataUnavailableError(err, "course.Stats")
	}
	return stats, nil
}

func (svc *Service) getModifiable(ctx context.Context, actor user.User, id string) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if !c.CanBeModifiedBy(actor) {
		return Course{}, ErrForbidden
	}
	return c, nil
}

func (svc *Service) checkChapter(ctx context.Context, courseID, chapterID string) error {
	ch, err := svc.repo.GetChapter(ctx, chapterID)
	if err != nil {
		if err == ErrChapterNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "chapter_id", Error: err.Error()})
		}
		return errors.Wrap(err, "finding chapter")
	}
	if ch.CourseID != courseID {
		return core.NewValidationError(errChapterMismatch, core.FieldError{Field: "chapter_id", Error: errChapterMismatch.Error()})
	}
	return nil
}

// GradeQuiz scores answers ({question ID: option index}) against the quiz.
// Unanswered questions count as wrong; the score is rounded like course progress.
func GradeQuiz(q Quiz, answers map[string]int) QuizResult {
	res := QuizResult{Total: len(q.Questions)}
	for _, qn := range q.Questions {
		if ans, ok := answers[qn.ID]; ok && ans == qn.CorrectOption {
			res.Correct++
		}
	}
	res.Score = core.Percentage(res.Correct, res.Total)
	res.Passed = res.Total > 0 && res.Score >= q.PassingScore
	return res
}
