package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/coupon"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/gamification"
	"github.com/trezcool/elimu/core/liveclass"
	"github.com/trezcool/elimu/core/message"
	"github.com/trezcool/elimu/core/user"
	emailsvc "github.com/trezcool/elimu/services/email"
	liveclasssvc "github.com/trezcool/elimu/services/liveclass"
	logsvc "github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database/dummy"
)

// Services is the whole application wired on the in-memory database.
type Services struct {
	Conf       *core.Config
	Logger     *logsvc.RollbarLogger
	DB         *dummydb.DB
	Mail       *emailsvc.ConsoleServiceMock
	Validate   *validator.Validate
	Translator ut.Translator

	UserRepo   user.Repository
	CourseRepo course.Repository

	Users       *user.Service
	Courses     *course.Service
	Enrollments *enrollment.Service
	XP          *gamification.Service
	Coupons     *coupon.Service
	Messages    *message.Service
	LiveClasses *liveclass.Service
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	coupon.InitValidators(validate, translator)
	return validate, translator
}

func NewServices() *Services {
	conf := core.NewTestConfig()
	logger := logsvc.NewNopLogger()
	core.ParseEmailTemplates(logger)
	user.LoadCommonPasswords(logger)
	validate, translator := NewValidator()

	db := dummydb.Open()
	tx := dummydb.TxRunner{}
	mail := emailsvc.NewConsoleServiceMock(conf)

	userRepo := dummydb.NewUserRepository(db)
	courseRepo := dummydb.NewCourseRepository(db)
	enrollmentRepo := dummydb.NewEnrollmentRepository(db)

	users := user.NewService(userRepo, mail, conf)
	courses := course.NewService(courseRepo)
	coupons := coupon.NewService(tx, dummydb.NewCouponRepository(db), courses)
	xp := gamification.NewService(tx, dummydb.NewGamificationRepository(db), nil)

	return &Services{
		Conf:       conf,
		Logger:     logger,
		DB:         db,
		Mail:       mail,
		Validate:   validate,
		Translator: translator,

		UserRepo:   userRepo,
		CourseRepo: courseRepo,

		Users:       users,
		Courses:     courses,
		Enrollments: enrollment.NewService(tx, enrollmentRepo, courseRepo, coupons, xp, users, mail, logger),
		XP:          xp,
		Coupons:     coupons,
		Messages:    message.NewService(tx, dummydb.NewMessageRepository(db), enrollmentRepo, users, courses, mail),
		LiveClasses: liveclass.NewService(
			dummydb.NewLiveClassRepository(db),
			liveclasssvc.NewLocalProvider(conf),
			courses, enrollmentRepo, users, mail, logger, conf,
		),
	}
}

// Reset empties the database and the sent mails.
func (s *Services) Reset() {
	s.DB.Reset()
	s.Mail.Reset()
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
