package message

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
)

type Message struct {
	ID          string      `json:"id"`
	SenderID    string      `json:"sender_id"`
	RecipientID string      `json:"recipient_id"`
	CourseID    null.String `json:"course_id"` // set on course broadcasts
	Subject     string      `json:"subject"`
	Body        string      `json:"body"`
	ReadAt      null.Time   `json:"read_at"`
	CreatedAt   time.Time   `json:"created_at"` // UTC
}

// NewMessage is an admin message to a single user.
type NewMessage struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Subject     string `json:"subject" validate:"required,notblank,max=200"`
	Body        string `json:"body" validate:"required,notblank"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.RecipientID = core.CleanString(nm.RecipientID)
	nm.Subject = core.CleanString(nm.Subject)
	nm.Body = core.CleanString(nm.Body)
	return validate.Struct(nm)
}

// NewBroadcast is an admin message to every student of a course.
type NewBroadcast struct {
	Subject string `json:"subject" validate:"required,notblank,max=200"`
	Body    string `json:"body" validate:"required,notblank"`
}

func (nb *NewBroadcast) Validate(validate *validator.Validate) error {
	nb.Subject = core.CleanString(nb.Subject)
	nb.Body = core.CleanString(nb.Body)
	return validate.Struct(nb)
}

type QueryFilter struct {
	RecipientID string
	UnreadOnly  bool
}
