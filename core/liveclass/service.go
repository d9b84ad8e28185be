package liveclass

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound  = core.NewNotFoundError("live class not found")
	ErrForbidden = core.NewPermissionError("only the course instructor or an admin may manage its live classes")

	errStartsInPast = errors.New("live class must start in the future")
)

type (
	// Provider is the external meeting service hosting live classes.
	Provider interface {
		CreateMeeting(ctx context.Context, req MeetingRequest) (Meeting, error)
		CancelMeeting(ctx context.Context, meetingID string) error
	}

	Repository interface {
		CreateLiveClass(ctx context.Context, lc LiveClass, exec ...core.DBExecutor) (LiveClass, error)
		GetLiveClass(ctx context.Context, id string, exec ...core.DBExecutor) (LiveClass, error)
		// QueryLiveClasses returns the matching classes ordered by start time.
		QueryLiveClasses(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]LiveClass, error)
		DeleteLiveClass(ctx context.Context, id string, exec ...core.DBExecutor) error
		MarkReminderSent(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	RecipientFinder interface {
		QueryEnrolledUserIDs(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]string, error)
	}

	UserQuerier interface {
		Query(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error)
	}

	CourseGetter interface {
		GetCourse(ctx context.Context, id string) (course.Course, error)
	}

	Service struct {
		repo       Repository
		provider   Provider
		courses    CourseGetter
		recipients RecipientFinder
		users      UserQuerier
		mailSvc    core.EmailService
		logger     core.Logger
		conf       *core.Config
	}
)

func NewService(
	repo Repository,
	provider Provider,
	courses CourseGetter,
	recipients RecipientFinder,
	users UserQuerier,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:       repo,
		provider:   provider,
		courses:    courses,
		recipients: recipients,
		users:      users,
		mailSvc:    mailSvc,
		logger:     logger,
		conf:       conf,
	}
}

// Schedule books a meeting with the provider and stores the live class.
func (svc *Service) Schedule(ctx context.Context, actor user.User, courseID string, nl NewLiveClass) (LiveClass, error) {
	crs, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return LiveClass{}, err
	}
	if !crs.CanBeModifiedBy(actor) {
		return LiveClass{}, ErrForbidden
	}

	now := NowFunc().UTC()
	startsAt := nl.StartsAt.UTC()
	if !startsAt.After(now) {
		return LiveClass{}, core.NewValidationError(errStartsInPast, core.FieldError{Field: "starts_at", Error: errStartsInPast.Error()})
	}

	meeting, err := svc.provider.CreateMeeting(ctx, MeetingRequest{
		Topic:           fmt.Sprintf("%s: %s", crs.Title, nl.Title),
		StartsAt:        startsAt,
		DurationMinutes: nl.DurationMinutes,
	})
	if err != nil {
		return LiveClass{}, errors.Wrap(err, "creating meeting")
	}

	lc, err := svc.repo.CreateLiveClass(ctx, LiveClass{
		ID:                uuid.New().String(),
		CourseID:          crs.ID,
		InstructorID:      crs.InstructorID,
		Title:             nl.Title,
		StartsAt:          startsAt,
		DurationMinutes:   nl.DurationMinutes,
		ProviderMeetingID: meeting.ID,
		JoinURL:           meeting.JoinURL,
		CreatedAt:         now,
	})
	if err != nil {
		if cerr := svc.provider.CancelMeeting(ctx, meeting.ID); cerr != nil {
			svc.logger.Error(fmt.Sprintf("liveclass.Schedule: cancelling orphan meeting %s: %v", meeting.ID, cerr), cerr)
		}
		return LiveClass{}, errors.Wrap(err, "storing live class")
	}
	return lc, nil
}

// Cancel cancels the provider meeting and deletes the live class.
func (svc *Service) Cancel(ctx context.Context, actor user.User, id string) error {
	lc, err := svc.repo.GetLiveClass(ctx, id)
	if err != nil {
		return err
	}
	crs, err := svc.courses.GetCourse(ctx, lc.CourseID)
	if err != nil {
		return err
	}
	if !crs.CanBeModifiedBy(actor) {
		return ErrForbidden
	}

	if err := svc.provider.CancelMeeting(ctx, lc.ProviderMeetingID); err != nil {
		return errors.Wrap(err, "cancelling meeting")
	}
	return svc.repo.DeleteLiveClass(ctx, lc.ID)
}

// QueryUpcoming returns the course classes that have not ended yet.
func (svc *Service) QueryUpcoming(ctx context.Context, courseID string) ([]LiveClass, error) {
	if _, err := svc.courses.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	classes, err := svc.repo.QueryLiveClasses(ctx, QueryFilter{CourseID: courseID})
	if err != nil {
		return nil, err
	}

	now := NowFunc().UTC()
	upcoming := make([]LiveClass, 0, len(classes))
	for _, lc := range classes {
		if lc.EndsAt().After(now) {
			upcoming = append(upcoming, lc)
		}
	}
	return upcoming, nil
}

// SendReminders emails the enrolled students of every class starting within the reminder lead
// and marks those classes as reminded. It returns the number of classes reminded.
func (svc *Service) SendReminders(ctx context.Context, now time.Time) (int, error) {
	notSent := false
	classes, err := svc.repo.QueryLiveClasses(ctx, QueryFilter{
		StartsFrom:   now.UTC(),
		StartsTo:     now.UTC().Add(svc.conf.LiveClass.ReminderLead),
		ReminderSent: &notSent,
	})
	if err != nil {
		return 0, errors.Wrap(err, "querying live classes")
	}

	var reminded int
	for _, lc := range classes {
		ids, err := svc.recipients.QueryEnrolledUserIDs(ctx, lc.CourseID)
		if err != nil {
			return reminded, errors.Wrap(err, "querying enrolled users")
		}
		if len(ids) > 0 {
			usrs, err := svc.users.Query(ctx, &user.QueryFilter{IDs: ids}, nil)
			if err != nil {
				return reminded, errors.Wrap(err, "querying recipients")
			}
			svc.remind(usrs, lc)
		}

		if err := svc.repo.MarkReminderSent(ctx, lc.ID); err != nil {
			return reminded, errors.Wrap(err, "marking reminder sent")
		}
		reminded++
	}
	return reminded, nil
}

func (svc *Service) remind(usrs []user.User, lc LiveClass) {
	emails := make([]*core.EmailMessage, 0, len(usrs))
	for _, usr := range usrs {
		if usr.Email == "" {
			continue
		}
		emails = append(emails, &core.EmailMessage{
			To:           []mail.Address{usr.EmailAddress()},
			Subject:      fmt.Sprintf("Reminder: %s starts soon", lc.Title),
			TemplateName: "live_class_reminder",
			TemplateData: map[string]interface{}{
				"Name":            usr.Name,
				"Title":           lc.Title,
				"StartsAt":        lc.StartsAt.Format(time.RFC1123),
				"DurationMinutes": lc.DurationMinutes,
				"JoinURL":         lc.JoinURL,
			},
		})
	}
	if len(emails) > 0 {
		svc.mailSvc.SendMessages(emails...)
	}
}
