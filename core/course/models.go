package course

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

// Content unit kinds
const (
	KindVideo = "video"
	KindText  = "text"
)

var (
	UnitKinds = []string{KindVideo, KindText}

	defaultPassingScore = 70
	defaultQuizXPReward = 50
)

type Course struct {
	ID           string          `json:"id"`
	InstructorID string          `json:"instructor_id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	IsPublished  bool            `json:"is_published"`
	CreatedAt    time.Time       `json:"created_at"` // UTC
	UpdatedAt    time.Time       `json:"updated_at"` // UTC
}

// CanBeModifiedBy reports whether usr owns the course or is an admin.
func (c Course) CanBeModifiedBy(usr user.User) bool {
	return usr.IsAdmin() || (usr.ID != "" && usr.ID == c.InstructorID)
}

type Chapter struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// ContentUnit is a video or a text lecture.
type ContentUnit struct {
	ID              string `json:"id"`
	ChapterID       string `json:"chapter_id"`
	CourseID        string `json:"course_id"`
	Kind            string `json:"kind"`
	Title           string `json:"title"`
	Position        int    `json:"position"`
	VideoURL        string `json:"video_url,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Body            string `json:"body,omitempty"`
}

type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt" validate:"required,notblank"`
	Options       []string `json:"options" validate:"min=2,dive,required"`
	CorrectOption int      `json:"correct_option" validate:"min=0"`
}

type Quiz struct {
	ID           string      `json:"id"`
	CourseID     string      `json:"course_id"`
	ChapterID    null.String `json:"chapter_id"`
	Title        string      `json:"title"`
	PassingScore int         `json:"passing_score"`
	XPReward     int         `json:"xp_reward"`
	Questions    []Question  `json:"questions"`
}

type (
	PublicQuestion struct {
		ID      string   `json:"id"`
		Prompt  string   `json:"prompt"`
		Options []string `json:"options"`
	}

	// PublicQuiz is a Quiz without its answers.
	PublicQuiz struct {
		ID           string           `json:"id"`
		CourseID     string           `json:"course_id"`
		ChapterID    null.String      `json:"chapter_id"`
		Title        string           `json:"title"`
		PassingScore int              `json:"passing_score"`
		XPReward     int              `json:"xp_reward"`
		Questions    []PublicQuestion `json:"questions"`
	}
)

func (q Quiz) Public() PublicQuiz {
	questions := make([]PublicQuestion, 0, len(q.Questions))
	for _, qn := range q.Questions {
		questions = append(questions, PublicQuestion{ID: qn.ID, Prompt: qn.Prompt, Options: qn.Options})
	}
	return PublicQuiz{
		ID:           q.ID,
		CourseID:     q.CourseID,
		ChapterID:    q.ChapterID,
		Title:        q.Title,
		PassingScore: q.PassingScore,
		XPReward:     q.XPReward,
		Questions:    questions,
	}
}

// QuizResult is the outcome of grading a set of answers.
type QuizResult struct {
	Correct int  `json:"correct"`
	Total   int  `json:"total"`
	Score   int  `json:"score"` // 0 - 100
	Passed  bool `json:"passed"`
}

// Stats are an instructor's aggregate counts.
type Stats struct {
	CoursesCount  int `json:"courses_count"`
	StudentsCount int `json:"students_count"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string          `json:"title" validate:"required,notblank,max=200"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsPublished bool            `json:"is_published"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	if err := validate.Struct(nc); err != nil {
		return err
	}
	return validatePrice(nc.Price)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title       string           `json:"title" validate:"omitempty,max=200"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	IsPublished *bool            `json:"is_published"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	if err := validate.Struct(uc); err != nil {
		return err
	}
	if uc.Price != nil {
		return validatePrice(*uc.Price)
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return core.NewValidationError(errNegativePrice, core.FieldError{Field: "price", Error: errNegativePrice.Error()})
	}
	return nil
}

type NewChapter struct {
	Title    string `json:"title" validate:"required,notblank"`
	Position int    `json:"position" validate:"min=0"`
}

func (nc *NewChapter) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	return validate.Struct(nc)
}

type NewContentUnit struct {
	ChapterID       string `json:"chapter_id" validate:"required"`
	Kind            string `json:"kind" validate:"required,unitkind"`
	Title           string `json:"title" validate:"required,notblank"`
	Position        int    `json:"position" validate:"min=0"`
	VideoURL        string `json:"video_url" validate:"required_if=Kind video,omitempty,url"`
	DurationSeconds int    `json:"duration_seconds" validate:"min=0"`
	Body            string `json:"body" validate:"required_if=Kind text"`
}

func (nu *NewContentUnit) Validate(validate *validator.Validate) error {
	nu.Title = core.CleanString(nu.Title)
	nu.Kind = core.CleanString(nu.Kind, true /* lower */)
	nu.VideoURL = core.CleanString(nu.VideoURL)
	return validate.Struct(nu)
}

type NewQuiz struct {
	ChapterID    string     `json:"chapter_id"`
	Title        string     `json:"title" validate:"required,notblank"`
	PassingScore *int       `json:"passing_score" validate:"omitempty,min=0,max=100"`
	XPReward     *int       `json:"xp_reward" validate:"omitempty,min=0"`
	Questions    []Question `json:"questions" validate:"required,min=1,dive"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Title = core.CleanString(nq.Title)
	if err := validate.Struct(nq); err != nil {
		return err
	}
	for i, qn := range nq.Questions {
		if qn.CorrectOption >= len(qn.Options) {
			return core.NewValidationError(errCorrectOptionRange, core.FieldError{
				Field: "questions",
				Error: errCorrectOptionRange.Error() + " (question " + strconv.Itoa(i+1) + ")",
			})
		}
	}
	return nil
}

type QueryFilter struct {
	Search       string `query:"search"`
	InstructorID string `query:"instructor_id"`
	IsPublished  *bool  `query:"is_published"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.InstructorID = core.CleanString(qf.InstructorID)
}
