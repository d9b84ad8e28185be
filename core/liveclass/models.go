package liveclass

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

type LiveClass struct {
	ID                string    `json:"id"`
	CourseID          string    `json:"course_id"`
	InstructorID      string    `json:"instructor_id"`
	Title             string    `json:"title"`
	StartsAt          time.Time `json:"starts_at"` // UTC
	DurationMinutes   int       `json:"duration_minutes"`
	ProviderMeetingID string    `json:"provider_meeting_id"`
	JoinURL           string    `json:"join_url"`
	ReminderSent      bool      `json:"reminder_sent"`
	CreatedAt         time.Time `json:"created_at"` // UTC
}

// EndsAt returns the scheduled end of the class.
func (lc LiveClass) EndsAt() time.Time {
	return lc.StartsAt.Add(time.Duration(lc.DurationMinutes) * time.Minute)
}

type NewLiveClass struct {
	Title           string    `json:"title" validate:"required,notblank,max=200"`
	StartsAt        time.Time `json:"starts_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,min=1,max=600"`
}

func (nl *NewLiveClass) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	return validate.Struct(nl)
}

type (
	// MeetingRequest asks the provider for a meeting room.
	MeetingRequest struct {
		Topic           string    `json:"topic"`
		StartsAt        time.Time `json:"start_time"`
		DurationMinutes int       `json:"duration"`
	}

	Meeting struct {
		ID      string `json:"id"`
		JoinURL string `json:"join_url"`
	}
)

type QueryFilter struct {
	CourseID     string
	StartsFrom   time.Time
	StartsTo     time.Time
	ReminderSent *bool
}
