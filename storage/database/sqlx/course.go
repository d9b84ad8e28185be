package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

const (
	courseColumns  = `id, instructor_id, title, description, price, is_published, created_at, updated_at`
	chapterColumns = `id, course_id, title, position`
	unitColumns    = `id, chapter_id, course_id, kind, title, position, video_url, duration_seconds, body`
	quizColumns    = `id, course_id, chapter_id, title, passing_score, xp_reward, questions`
)

var courseOrderings = map[string]string{
	"title":      "title",
	"price":      "price",
	"created_at": "created_at",
}

type courseRow struct {
	ID           string          `db:"id"`
	InstructorID string          `db:"instructor_id"`
	Title        string          `db:"title"`
	Description  string          `db:"description"`
	Price        decimal.Decimal `db:"price"`
	IsPublished  bool            `db:"is_published"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func toCourseRow(c course.Course) courseRow {
	return courseRow{
		ID:           c.ID,
		InstructorID: c.InstructorID,
		Title:        c.Title,
		Description:  c.Description,
		Price:        c.Price,
		IsPublished:  c.IsPublished,
		CreatedAt:    c.CreatedAt.UTC(),
		UpdatedAt:    c.UpdatedAt.UTC(),
	}
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:           r.ID,
		InstructorID: r.InstructorID,
		Title:        r.Title,
		Description:  r.Description,
		Price:        r.Price,
		IsPublished:  r.IsPublished,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type chapterRow struct {
	ID       string `db:"id"`
	CourseID string `db:"course_id"`
	Title    string `db:"title"`
	Position int    `db:"position"`
}

func (r chapterRow) toChapter() course.Chapter {
	return course.Chapter{ID: r.ID, CourseID: r.CourseID, Title: r.Title, Position: r.Position}
}

type unitRow struct {
	ID              string      `db:"id"`
	ChapterID       string      `db:"chapter_id"`
	CourseID        string      `db:"course_id"`
	Kind            string      `db:"kind"`
	Title           string      `db:"title"`
	Position        int         `db:"position"`
	VideoURL        null.String `db:"video_url"`
	DurationSeconds int         `db:"duration_seconds"`
	Body            null.String `db:"body"`
}

func toUnitRow(u course.ContentUnit) unitRow {
	return unitRow{
		ID:              u.ID,
		ChapterID:       u.ChapterID,
		CourseID:        u.CourseID,
		Kind:            u.Kind,
		Title:           u.Title,
		Position:        u.Position,
		VideoURL:        null.NewString(u.VideoURL, u.VideoURL != ""),
		DurationSeconds: u.DurationSeconds,
		Body:            null.NewString(u.Body, u.Body != ""),
	}
}

func (r unitRow) toUnit() course.ContentUnit {
	return course.ContentUnit{
		ID:              r.ID,
		ChapterID:       r.ChapterID,
		CourseID:        r.CourseID,
		Kind:            r.Kind,
		Title:           r.Title,
		Position:        r.Position,
		VideoURL:        r.VideoURL.String,
		DurationSeconds: r.DurationSeconds,
		Body:            r.Body.String,
	}
}

type quizRow struct {
	ID           string         `db:"id"`
	CourseID     string         `db:"course_id"`
	ChapterID    null.String    `db:"chapter_id"`
	Title        string         `db:"title"`
	PassingScore int            `db:"passing_score"`
	XPReward     int            `db:"xp_reward"`
	Questions    types.JSONText `db:"questions"`
}

func toQuizRow(q course.Quiz) (quizRow, error) {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return quizRow{}, err
	}
	return quizRow{
		ID:           q.ID,
		CourseID:     q.CourseID,
		ChapterID:    q.ChapterID,
		Title:        q.Title,
		PassingScore: q.PassingScore,
		XPReward:     q.XPReward,
		Questions:    questions,
	}, nil
}

func (r quizRow) toQuiz() (course.Quiz, error) {
	q := course.Quiz{
		ID:           r.ID,
		CourseID:     r.CourseID,
		ChapterID:    r.ChapterID,
		Title:        r.Title,
		PassingScore: r.PassingScore,
		XPReward:     r.XPReward,
	}
	if err := r.Questions.Unmarshal(&q.Questions); err != nil {
		return course.Quiz{}, errors.Wrap(err, "decoding quiz questions")
	}
	return q, nil
}

type courseRepository struct {
	exec core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{exec: exec}
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	q := `INSERT INTO course (` + courseColumns + `)
		VALUES (:id, :instructor_id, :title, :description, :price, :is_published, :created_at, :updated_at)`
	if _, err := core.GetExec(repo.exec, exec).NamedExecContext(ctx, q, toCourseRow(c)); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	q := `UPDATE course SET title = :title, description = :description, price = :price,
		is_published = :is_published, updated_at = :updated_at WHERE id = :id`
	res, err := core.GetExec(repo.exec, exec).NamedExecContext(ctx, q, toCourseRow(c))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	if !validID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	q := `SELECT ` + courseColumns + ` FROM course WHERE id = $1`
	if err := core.GetExec(repo.exec, exec).GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "finding course")
	}
	return row.toCourse(), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	exe := core.GetExec(repo.exec, exec)

	w := new(where)
	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(title ILIKE ? OR description ILIKE ?)", val, val)
		}
		if filter.InstructorID != "" {
			w.add("instructor_id::text = ?", filter.InstructorID)
		}
		if filter.IsPublished != nil {
			w.add("is_published = ?", *filter.IsPublished)
		}
	}

	var rows []courseRow
	q := exe.Rebind(`SELECT ` + courseColumns + ` FROM course` + w.String() + orderBy(ordering, courseOrderings, "created_at DESC"))
	if err := exe.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toCourse())
	}
	return courses, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return course.ErrNotFound
	}
	res, err := core.GetExec(repo.exec, exec).ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo courseRepository) CreateChapter(ctx context.Context, ch course.Chapter, exec ...core.DBExecutor) (course.Chapter, error) {
	q := `INSERT INTO chapter (` + chapterColumns + `) VALUES (:id, :course_id, :title, :position)`
	row := chapterRow{ID: ch.ID, CourseID: ch.CourseID, Title: ch.Title, Position: ch.Position}
	if _, err := core.GetExec(repo.exec, exec).NamedExecContext(ctx, q, row); err != nil {
		return course.Chapter{}, errors.Wrap(err, "inserting chapter")
	}
	return ch, nil
}

func (repo courseRepository) GetChapter(ctx context.Context, id string, exec ...core.DBExecutor) (course.Chapter, error) {
	if !validID(id) {
		return course.Chapter{}, course.ErrChapterNotFound
	}
	var row chapterRow
	q := `SELECT ` + chapterColumns + ` FROM chapter WHERE id = $1`
	if err := core.GetExec(repo.exec, exec).GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Chapter{}, course.ErrChapterNotFound
		}
		return course.Chapter{}, errors.Wrap(err, "finding chapter")
	}
	return row.toChapter(), nil
}

func (repo courseRepository) QueryChapters(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Chapter, error) {
	chapters := make([]course.Chapter, 0)
	if !validID(courseID) {
		return chapters, nil
	}
	var rows []chapterRow
	q := `SELECT ` + chapterColumns + ` FROM chapter WHERE course_id = $1 ORDER BY position, title`
	if err := core.GetExec(repo.exec, exec).SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying chapters")
	}
	for _, row := range rows {
		chapters = append(chapters, row.toChapter())
	}
	return chapters, nil
}

func (repo courseRepository) CreateContentUnit(ctx context.Context, u course.ContentUnit, exec ...core.DBExecutor) (course.ContentUnit, error) {
	q := `INSERT INTO content_unit (` + unitColumns + `)
		VALUES (:id, :chapter_id, :course_id, :kind, :title, :position, :video_url, :duration_seconds, :body)`
	if _, err := core.GetExec(repo.exec, exec).NamedExecContext(ctx, q, toUnitRow(u)); err != nil {
		return course.ContentUnit{}, errors.Wrap(err, "inserting content unit")
	}
	return u, nil
}

func (repo courseRepository) GetContentUnit(ctx context.Context, id string, exec ...core.DBExecutor) (course.ContentUnit, error) {
	if !validID(id) {
		return course.ContentUnit{}, course.ErrUnitNotFound
	}
	var row unitRow
	q := `SELECT ` + unitColumns + ` FROM content_unit WHERE id = $1`
	if err := core.GetExec(repo.exec, exec).GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return course.ContentUnit{}, course.ErrUnitNotFound
		}
		return course.ContentUnit{}, errors.Wrap(err, "finding content unit")
	}
	return row.toUnit(), nil
}

func (repo courseRepository) QueryContentUnits(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.ContentUnit, error) {
	units := make([]course.ContentUnit, 0)
	if !validID(courseID) {
		return units, nil
	}

	var rows []unitRow
	q := `SELECT u.id, u.chapter_id, u.course_id, u.kind, u.title, u.position, u.video_url, u.duration_seconds, u.body
		FROM content_unit u JOIN chapter ch ON ch.id = u.chapter_id
		WHERE u.course_id = $1
		ORDER BY ch.position, u.position, u.title`
	if err := core.GetExec(repo.exec, exec).SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying content units")
	}
	for _, row := range rows {
		units = append(units, row.toUnit())
	}
	return units, nil
}

func (repo courseRepository) CountContentUnits(ctx context.Context, courseID string, exec ...core.DBExecutor) (int, error) {
	if !validID(courseID) {
		return 0, nil
	}
	var n int
	q := `SELECT COUNT(*) FROM content_unit WHERE course_id = $1 AND kind IN ('video', 'text')`
	if err := core.GetExec(repo.exec, exec).GetContext(ctx, &n, q, courseID); err != nil {
		return 0, errors.Wrap(err, "counting content units")
	}
	return n, nil
}

func (repo courseRepository) CreateQuiz(ctx context.Context, qz course.Quiz, exec ...core.DBExecutor) (course.Quiz, error) {
	row, err := toQuizRow(qz)
	if err != nil {
		return course.Quiz{}, errors.Wrap(err, "encoding quiz questions")
	}
	q := `INSERT INTO quiz (` + quizColumns + `)
		VALUES (:id, :course_id, :chapter_id, :title, :passing_score, :xp_reward, :questions)`
	if _, err = core.GetExec(repo.exec, exec).NamedExecContext(ctx, q, row); err != nil {
		return course.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return qz, nil
}

func (repo courseRepository) GetQuiz(ctx context.Context, id string, exec ...core.DBExecutor) (course.Quiz, error) {
	if !validID(id) {
		return course.Quiz{}, course.ErrQuizNotFound
	}
	var row quizRow
	q := `SELECT ` + quizColumns + ` FROM quiz WHERE id = $1`
	if err := core.GetExec(repo.exec, exec).GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Quiz{}, course.ErrQuizNotFound
		}
		return course.Quiz{}, errors.Wrap(err, "finding quiz")
	}
	return row.toQuiz()
}

func (repo courseRepository) QueryQuizzes(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Quiz, error) {
	quizzes := make([]course.Quiz, 0)
	if !validID(courseID) {
		return quizzes, nil
	}

	var rows []quizRow
	q := `SELECT ` + quizColumns + ` FROM quiz WHERE course_id = $1 ORDER BY title`
	if err := core.GetExec(repo.exec, exec).SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	for _, row := range rows {
		qz, err := row.toQuiz()
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, qz)
	}
	return quizzes, nil
}

func (repo courseRepository) GetStats(ctx context.Context, instructorID string, exec ...core.DBExecutor) (course.Stats, error) {
	if !validID(instructorID) {
		return course.Stats{}, nil
	}
	var stats struct {
		CoursesCount  int `db:"courses_count"`
		StudentsCount int `db:"students_count"`
	}
	q := `SELECT
		(SELECT COUNT(*) FROM course WHERE instructor_id = $1) AS courses_count,
		(SELECT COUNT(DISTINCT e.user_id) FROM enrollment e JOIN course c ON c.id = e.course_id
			WHERE c.instructor_id = $1) AS students_count`
	if err := core.GetExec(repo.exec, exec).GetContext(ctx, &stats, q, instructorID); err != nil {
		return course.Stats{}, errors.Wrap(err, "counting instructor stats")
	}
	return course.Stats{CoursesCount: stats.CoursesCount, StudentsCount: stats.StudentsCount}, nil
}
