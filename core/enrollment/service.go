package enrollment

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/coupon"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/gamification"
	"github.com/trezcool/elimu/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound        = core.NewNotFoundError("enrollment not found")
	ErrAlreadyEnrolled = core.NewConflictError("already enrolled in this course")
	ErrNotEnrolled     = core.NewPermissionError("you are not enrolled in this course")
	ErrCourseNotOpen   = core.NewConflictError("this course is not open for enrollment")

	errUnitCourseMismatch = errors.New("content unit does not belong to this course")
)

type (
	Repository interface {
		CompletionCounter

		// CreateEnrollment returns ErrAlreadyEnrolled when the user is already enrolled.
		CreateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		GetEnrollment(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (Enrollment, error)
		UpdateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Enrollment, error)
		// QueryEnrolledUserIDs returns the IDs of the active users enrolled in the course.
		QueryEnrolledUserIDs(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]string, error)

		// CreateCompletion stores rec unless the unit is already completed; reports whether it was stored.
		CreateCompletion(ctx context.Context, rec CompletionRecord, exec ...core.DBExecutor) (bool, error)
		// QueryCompletedUnitIDs returns the units of the course the user completed.
		QueryCompletedUnitIDs(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) ([]string, error)

		CreateQuizAttempt(ctx context.Context, a QuizAttempt, exec ...core.DBExecutor) (QuizAttempt, error)
		HasPassedQuiz(ctx context.Context, userID, quizID string, exec ...core.DBExecutor) (bool, error)
	}

	// CourseReader is the read side of the course store.
	CourseReader interface {
		UnitCounter
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error)
		GetContentUnit(ctx context.Context, id string, exec ...core.DBExecutor) (course.ContentUnit, error)
		GetQuiz(ctx context.Context, id string, exec ...core.DBExecutor) (course.Quiz, error)
	}

	CouponRedeemer interface {
		GetByCode(ctx context.Context, code string, exec ...core.DBExecutor) (coupon.Coupon, error)
		Redeem(ctx context.Context, c coupon.Coupon, userID, courseID string, price decimal.Decimal, exec ...core.DBExecutor) (coupon.Usage, error)
	}

	XPAwarder interface {
		Award(ctx context.Context, userID string, event gamification.Event, exec ...core.DBExecutor) (gamification.AwardResult, error)
	}

	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		tx      core.TxRunner
		repo    Repository
		courses CourseReader
		coupons CouponRedeemer
		xp      XPAwarder
		users   UserGetter
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(
	tx core.TxRunner,
	repo Repository,
	courses CourseReader,
	coupons CouponRedeemer,
	xp XPAwarder,
	users UserGetter,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		tx:      tx,
		repo:    repo,
		courses: courses,
		coupons: coupons,
		xp:      xp,
		users:   users,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Enroll enrolls the user in a published course, redeeming couponCode when given.
// The redemption and the enrollment are stored in the same transaction.
func (svc *Service) Enroll(ctx context.Context, userID, courseID, couponCode string) (Enrollment, error) {
	crs, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if !crs.IsPublished {
		return Enrollment{}, ErrCourseNotOpen
	}

	enr := Enrollment{
		ID:               uuid.New().String(),
		UserID:           userID,
		CourseID:         crs.ID,
		CompletedLessons: []string{},
		PricePaid:        crs.Price,
		EnrolledAt:       NowFunc().UTC(),
	}

	err = svc.tx.RunInTx(ctx, func(exe core.DBExecutor) error {
		if _, err := svc.repo.GetEnrollment(ctx, userID, crs.ID, exe); err == nil {
			return ErrAlreadyEnrolled
		} else if errors.Cause(err) != ErrNotFound {
			return errors.Wrap(err, "checking enrollment")
		}

		if couponCode != "" {
			c, err := svc.coupons.GetByCode(ctx, couponCode, exe)
			if err != nil {
				if errors.Cause(err) == coupon.ErrNotFound {
					return core.NewValidationError(err, core.FieldError{Field: "coupon_code", Error: err.Error()})
				}
				return errors.Wrap(err, "finding coupon")
			}
			usage, err := svc.coupons.Redeem(ctx, c, userID, crs.ID, crs.Price, exe)
			if err != nil {
				return err
			}
			enr.PricePaid = usage.FinalPrice
			enr.CouponCode = null.StringFrom(c.Code)
		}

		var err error
		enr, err = svc.repo.CreateEnrollment(ctx, enr, exe)
		return err
	})
	if err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

func (svc *Service) Get(ctx context.Context, userID, courseID string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, userID, courseID)
}

func (svc *Service) QueryByUser(ctx context.Context, userID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, QueryFilter{UserID: userID})
}

// Progress computes the user's current progress in a course they are enrolled in.
func (svc *Service) Progress(ctx context.Context, userID, courseID string) (int, error) {
	if _, err := svc.getEnrollment(ctx, userID, courseID); err != nil {
		return 0, err
	}
	return ComputeProgress(ctx, svc.courses, svc.repo, userID, courseID)
}

// CompleteUnit marks a course unit as completed by the user, then updates the enrollment
// progress and awards XP. Completing a unit twice changes nothing.
func (svc *Service) CompleteUnit(ctx context.Context, userID, courseID, unitID string) (Enrollment, error) {
	var (
		enr       Enrollment
		graduated bool
		award     gamification.AwardResult
	)
	now := NowFunc().UTC()

	err := svc.tx.RunInTx(ctx, func(exe core.DBExecutor) error {
		var err error
		if enr, err = svc.getEnrollment(ctx, userID, courseID, exe); err != nil {
			return err
		}

		unit, err := svc.courses.GetContentUnit(ctx, unitID, exe)
		if err != nil {
			return err
		}
		if unit.CourseID != courseID {
			return core.NewValidationError(errUnitCourseMismatch, core.FieldError{Field: "unit_id", Error: errUnitCourseMismatch.Error()})
		}

		created, err := svc.repo.CreateCompletion(ctx, CompletionRecord{
			UserID:      userID,
			UnitID:      unit.ID,
			CourseID:    courseID,
			Kind:        unit.Kind,
			Completed:   true,
			CompletedAt: now,
		}, exe)
		if err != nil {
			return errors.Wrap(err, "recording completion")
		}
		if !created {
			return nil
		}

		if graduated, err = svc.refreshProgress(ctx, &enr, now, exe); err != nil {
			return err
		}
		if enr, err = svc.repo.UpdateEnrollment(ctx, enr, exe); err != nil {
			return errors.Wrap(err, "updating enrollment")
		}

		event := gamification.Event{Kind: gamification.EventTextCompleted}
		if unit.Kind == course.KindVideo {
			event.Kind = gamification.EventVideoCompleted
		}
		if award, err = svc.xp.Award(ctx, userID, event, exe); err != nil {
			return errors.Wrap(err, "awarding unit xp")
		}
		if graduated {
			award, err = svc.xp.Award(ctx, userID, gamification.Event{Kind: gamification.EventCourseCompleted}, exe)
			return errors.Wrap(err, "awarding course xp")
		}
		return nil
	})
	if err != nil {
		return Enrollment{}, err
	}

	if graduated {
		svc.notifyCompletion(ctx, userID, courseID, award)
	}
	return enr, nil
}

// SubmitQuiz grades the answers of an enrolled user. The first passing attempt earns the quiz XP.
func (svc *Service) SubmitQuiz(ctx context.Context, userID, quizID string, answers map[string]int) (QuizSubmission, error) {
	quiz, err := svc.courses.GetQuiz(ctx, quizID)
	if err != nil {
		return QuizSubmission{}, err
	}

	var sub QuizSubmission
	err = svc.tx.RunInTx(ctx, func(exe core.DBExecutor) error {
		if _, err := svc.getEnrollment(ctx, userID, quiz.CourseID, exe); err != nil {
			return err
		}

		passedBefore, err := svc.repo.HasPassedQuiz(ctx, userID, quiz.ID, exe)
		if err != nil {
			return errors.Wrap(err, "checking quiz attempts")
		}

		sub.QuizResult = course.GradeQuiz(quiz, answers)
		attempt, err := svc.repo.CreateQuizAttempt(ctx, QuizAttempt{
			ID:        uuid.New().String(),
			UserID:    userID,
			QuizID:    quiz.ID,
			Score:     sub.Score,
			Passed:    sub.Passed,
			CreatedAt: NowFunc().UTC(),
		}, exe)
		if err != nil {
			return errors.Wrap(err, "recording quiz attempt")
		}
		sub.AttemptID = attempt.ID

		if sub.Passed && !passedBefore {
			sub.FirstPass = true
			res, err := svc.xp.Award(ctx, userID, gamification.Event{
				Kind:   gamification.EventQuizPassed,
				Reward: null.Int64From(int64(quiz.XPReward)),
			}, exe)
			if err != nil {
				return errors.Wrap(err, "awarding quiz xp")
			}
			sub.XPAwarded = res.Points
		}
		return nil
	})
	if err != nil {
		return QuizSubmission{}, err
	}
	return sub, nil
}

// RecalculateCourse re-derives the progress of every enrollment of the course.
// It returns the number of enrollments that changed.
func (svc *Service) RecalculateCourse(ctx context.Context, courseID string) (int, error) {
	if _, err := svc.courses.GetCourse(ctx, courseID); err != nil {
		return 0, err
	}
	enrollments, err := svc.repo.QueryEnrollments(ctx, QueryFilter{CourseID: courseID})
	if err != nil {
		return 0, errors.Wrap(err, "querying enrollments")
	}

	var changed int
	now := NowFunc().UTC()
	for _, enr := range enrollments {
		enr := enr
		err = svc.tx.RunInTx(ctx, func(exe core.DBExecutor) error {
			before := enr.Progress
			hadCompleted := enr.CompletedAt.Valid
			if _, err := svc.refreshProgress(ctx, &enr, now, exe); err != nil {
				return err
			}
			if enr.Progress == before && enr.CompletedAt.Valid == hadCompleted {
				return nil
			}
			if _, err := svc.repo.UpdateEnrollment(ctx, enr, exe); err != nil {
				return errors.Wrap(err, "updating enrollment")
			}
			changed++
			return nil
		})
		if err != nil {
			return changed, err
		}
	}
	return changed, nil
}

// refreshProgress recomputes enr's progress and completed units.
// It reports whether the course got completed by this refresh.
func (svc *Service) refreshProgress(ctx context.Context, enr *Enrollment, now time.Time, exe core.DBExecutor) (bool, error) {
	progress, err := ComputeProgress(ctx, svc.courses, svc.repo, enr.UserID, enr.CourseID, exe)
	if err != nil {
		return false, err
	}
	ids, err := svc.repo.QueryCompletedUnitIDs(ctx, enr.UserID, enr.CourseID, exe)
	if err != nil {
		return false, core.NewDataUnavailableError(err, "enrollment.refreshProgress")
	}

	enr.Progress = progress
	enr.CompletedLessons = ids
	if progress == 100 && !enr.CompletedAt.Valid {
		enr.CompletedAt = null.TimeFrom(now)
		return true, nil
	}
	return false, nil
}

func (svc *Service) getEnrollment(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(ctx, userID, courseID, exec...)
	if err == ErrNotFound {
		return Enrollment{}, ErrNotEnrolled
	}
	return enr, err
}

func (svc *Service) notifyCompletion(ctx context.Context, userID, courseID string, award gamification.AwardResult) {
	usr, err := svc.users.GetByID(ctx, userID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("enrollment.notifyCompletion: %v", err), err)
		return
	}
	crs, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("enrollment.notifyCompletion: %v", err), err)
		return
	}
	if usr.Email == "" {
		return
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{usr.EmailAddress()},
		Subject:      fmt.Sprintf("You completed %s!", crs.Title),
		TemplateName: "course_completed",
		TemplateData: map[string]interface{}{
			"Name":        usr.Name,
			"CourseTitle": crs.Title,
			"XP":          award.Points,
			"Level":       award.XP.Level,
		},
	})
}
