package message

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound  = core.NewNotFoundError("message not found")
	ErrForbidden = core.NewPermissionError("only admins may send messages")
)

type (
	Repository interface {
		CreateMessages(ctx context.Context, msgs []Message, exec ...core.DBExecutor) error
		GetMessage(ctx context.Context, id string, exec ...core.DBExecutor) (Message, error)
		// QueryMessages returns the newest messages first.
		QueryMessages(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Message, error)
		MarkRead(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) (Message, error)
	}

	// RecipientFinder lists the users enrolled in a course.
	RecipientFinder interface {
		QueryEnrolledUserIDs(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]string, error)
	}

	UserQuerier interface {
		GetByID(ctx context.Context, id string) (user.User, error)
		Query(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error)
	}

	CourseGetter interface {
		GetCourse(ctx context.Context, id string) (course.Course, error)
	}

	Service struct {
		tx         core.TxRunner
		repo       Repository
		recipients RecipientFinder
		users      UserQuerier
		courses    CourseGetter
		mailSvc    core.EmailService
	}
)

func NewService(
	tx core.TxRunner,
	repo Repository,
	recipients RecipientFinder,
	users UserQuerier,
	courses CourseGetter,
	mailSvc core.EmailService,
) *Service {
	return &Service{
		tx:         tx,
		repo:       repo,
		recipients: recipients,
		users:      users,
		courses:    courses,
		mailSvc:    mailSvc,
	}
}

// Send stores an admin message to one user and emails them.
func (svc *Service) Send(ctx context.Context, sender user.User, nm NewMessage) (Message, error) {
	if !sender.IsAdmin() {
		return Message{}, ErrForbidden
	}
	rcpt, err := svc.users.GetByID(ctx, nm.RecipientID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Message{}, core.NewValidationError(err, core.FieldError{Field: "recipient_id", Error: err.Error()})
		}
		return Message{}, errors.Wrap(err, "finding recipient")
	}

	msg := Message{
		ID:          uuid.New().String(),
		SenderID:    sender.ID,
		RecipientID: rcpt.ID,
		Subject:     nm.Subject,
		Body:        nm.Body,
		CreatedAt:   NowFunc().UTC(),
	}
	if err := svc.repo.CreateMessages(ctx, []Message{msg}); err != nil {
		return Message{}, errors.Wrap(err, "storing message")
	}

	svc.notify([]user.User{rcpt}, msg)
	return msg, nil
}

// Broadcast sends one message per active user enrolled in the course.
// All messages are stored in a single transaction; it returns how many were sent.
func (svc *Service) Broadcast(ctx context.Context, sender user.User, courseID string, nb NewBroadcast) (int, error) {
	if !sender.IsAdmin() {
		return 0, ErrForbidden
	}
	crs, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return 0, err
	}

	var (
		rcpts []user.User
		sent  int
	)
	now := NowFunc().UTC()
	err = svc.tx.RunInTx(ctx, func(exe core.DBExecutor) error {
		ids, err := svc.recipients.QueryEnrolledUserIDs(ctx, crs.ID, exe)
		if err != nil {
			return errors.Wrap(err, "querying enrolled users")
		}
		if len(ids) == 0 {
			return nil
		}

		msgs := make([]Message, 0, len(ids))
		for _, id := range ids {
			msgs = append(msgs, Message{
				ID:          uuid.New().String(),
				SenderID:    sender.ID,
				RecipientID: id,
				CourseID:    null.StringFrom(crs.ID),
				Subject:     nb.Subject,
				Body:        nb.Body,
				CreatedAt:   now,
			})
		}
		if err := svc.repo.CreateMessages(ctx, msgs, exe); err != nil {
			return errors.Wrap(err, "storing messages")
		}
		sent = len(msgs)

		rcpts, err = svc.users.Query(ctx, &user.QueryFilter{IDs: ids}, nil)
		return errors.Wrap(err, "querying recipients")
	})
	if err != nil {
		return 0, err
	}

	svc.notify(rcpts, Message{Subject: nb.Subject, Body: nb.Body})
	return sent, nil
}

// Inbox returns the user's messages, newest first.
func (svc *Service) Inbox(ctx context.Context, userID string, unreadOnly bool) ([]Message, error) {
	return svc.repo.QueryMessages(ctx, QueryFilter{RecipientID: userID, UnreadOnly: unreadOnly})
}

// MarkRead marks one of the user's messages as read. Other users' messages are not found.
func (svc *Service) MarkRead(ctx context.Context, userID, messageID string) (Message, error) {
	msg, err := svc.repo.GetMessage(ctx, messageID)
	if err != nil {
		return Message{}, err
	}
	if msg.RecipientID != userID {
		return Message{}, ErrNotFound
	}
	if msg.ReadAt.Valid {
		return msg, nil
	}
	return svc.repo.MarkRead(ctx, msg.ID, NowFunc().UTC())
}

func (svc *Service) notify(rcpts []user.User, msg Message) {
	emails := make([]*core.EmailMessage, 0, len(rcpts))
	for _, rcpt := range rcpts {
		if rcpt.Email == "" {
			continue
		}
		emails = append(emails, &core.EmailMessage{
			To:           []mail.Address{rcpt.EmailAddress()},
			Subject:      fmt.Sprintf("New message: %s", msg.Subject),
			TemplateName: "admin_message",
			TemplateData: map[string]string{
				"Name":    rcpt.Name,
				"Subject": msg.Subject,
				"Body":    msg.Body,
			},
		})
	}
	if len(emails) > 0 {
		svc.mailSvc.SendMessages(emails...)
	}
}
