package enrollment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

type Enrollment struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	CourseID         string          `json:"course_id"`
	Progress         int             `json:"progress"` // 0 - 100
	CompletedLessons []string        `json:"completed_lessons"`
	PricePaid        decimal.Decimal `json:"price_paid"`
	CouponCode       null.String     `json:"coupon_code"`
	EnrolledAt       time.Time       `json:"enrolled_at"`  // UTC
	CompletedAt      null.Time       `json:"completed_at"` // UTC; set once, when progress reaches 100
}

// CompletionRecord marks a video or text lecture as done by a user.
type CompletionRecord struct {
	UserID      string    `json:"user_id"`
	UnitID      string    `json:"unit_id"`
	CourseID    string    `json:"course_id"`
	Kind        string    `json:"kind"`
	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completed_at"`
}

type QuizAttempt struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	QuizID    string    `json:"quiz_id"`
	Score     int       `json:"score"`
	Passed    bool      `json:"passed"`
	CreatedAt time.Time `json:"created_at"`
}

type EnrollRequest struct {
	CouponCode string `json:"coupon_code"`
}

func (er *EnrollRequest) Clean() {
	er.CouponCode = core.CleanString(er.CouponCode)
}

type QuizAnswers struct {
	Answers map[string]int `json:"answers" validate:"required"`
}

func (qa QuizAnswers) Validate(validate *validator.Validate) error { return validate.Struct(qa) }

// QuizSubmission is the graded outcome of a quiz attempt.
type QuizSubmission struct {
	course.QuizResult
	AttemptID string `json:"attempt_id"`
	FirstPass bool   `json:"first_pass"`
	XPAwarded int64  `json:"xp_awarded"`
}

type QueryFilter struct {
	UserID   string
	CourseID string
}
