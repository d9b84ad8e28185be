package dig_container

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/elimu/apps/api/echo"
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
	"github.com/trezcool/elimu/services/scheduler"
	"github.com/trezcool/elimu/storage/cache"
	"github.com/trezcool/elimu/storage/database"
	sqlxrepos "github.com/trezcool/elimu/storage/database/sqlx"
	"github.com/trezcool/elimu/storage/postgrest"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	Repositories struct {
		dig.Out
		User       user.Repository
		Course     course.Repository
		Enrollment enrollment.Repository
		XP         gamification.Repository
		Coupon     coupon.Repository
		Message    message.Repository
		LiveClass  liveclass.Repository
	}

	ServerParams struct {
		dig.In
		Conf        *core.Config
		Logger      core.Logger
		Validate    *validator.Validate
		Translator  ut.Translator
		Users       user.ServiceInterface
		Courses     *course.Service
		Enrollments *enrollment.Service
		XP          *gamification.Service
		Coupons     *coupon.Service
		Messages    *message.Service
		LiveClasses *liveclass.Service
	}
)

func newZapLogger(conf *core.Config) *zap.Logger {
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	return zl
}

func newLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("db"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newTxRunner(db core.DB) core.TxRunner {
	return database.NewTxRunner(db)
}

func newRepositories(db core.DB) Repositories {
	return Repositories{
		User:       sqlxrepos.NewUserRepository(db),
		Course:     sqlxrepos.NewCourseRepository(db),
		Enrollment: sqlxrepos.NewEnrollmentRepository(db),
		XP:         sqlxrepos.NewGamificationRepository(db),
		Coupon:     sqlxrepos.NewCouponRepository(db),
		Message:    sqlxrepos.NewMessageRepository(db),
		LiveClass:  sqlxrepos.NewLiveClassRepository(db),
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newRedisClient returns nil when no redis server is configured or reachable.
func newRedisClient(conf *core.Config, logger core.Logger) *redis.Client {
	if conf.Redis.Address == "" {
		return nil
	}
	rdb, err := cache.NewRedisClient(context.Background(), conf)
	if err != nil {
		logger.Warn(fmt.Sprintf("leaderboard cache disabled: %v", err), err)
		return nil
	}
	return rdb
}

// newLeaderboardSource reads from PostgREST when configured, caching in redis when available.
// A nil source makes the service read from its repository.
func newLeaderboardSource(conf *core.Config, logger core.Logger, rdb *redis.Client, repo gamification.Repository) gamification.LeaderboardSource {
	var source gamification.LeaderboardSource
	if conf.PostgREST.URL != "" {
		source = postgrest.NewClient(conf)
	}
	if rdb == nil {
		return source
	}
	if source == nil {
		source = gamification.RepositoryBoard{Repo: repo}
	}
	return cache.NewLeaderboard(rdb, source, conf, logger)
}

func newUserServiceInterface(svc *user.Service) user.ServiceInterface { return svc }

func newCouponService(tx core.TxRunner, repo coupon.Repository, courses *course.Service) *coupon.Service {
	return coupon.NewService(tx, repo, courses)
}

func newEnrollmentService(
	tx core.TxRunner,
	repo enrollment.Repository,
	courseRepo course.Repository,
	coupons *coupon.Service,
	xp *gamification.Service,
	users *user.Service,
	mailSvc core.EmailService,
	logger core.Logger,
) *enrollment.Service {
	return enrollment.NewService(tx, repo, courseRepo, coupons, xp, users, mailSvc, logger)
}

func newMessageService(
	tx core.TxRunner,
	repo message.Repository,
	enrollments enrollment.Repository,
	users *user.Service,
	courses *course.Service,
	mailSvc core.EmailService,
) *message.Service {
	return message.NewService(tx, repo, enrollments, users, courses, mailSvc)
}

func newLiveClassService(
	repo liveclass.Repository,
	provider liveclass.Provider,
	courses *course.Service,
	enrollments enrollment.Repository,
	users *user.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *liveclass.Service {
	return liveclass.NewService(repo, provider, courses, enrollments, users, mailSvc, logger, conf)
}

func newScheduler(conf *core.Config, coupons *coupon.Service, classes *liveclass.Service, logger core.Logger) (*scheduler.Scheduler, error) {
	return scheduler.New(conf, coupons, classes, logger)
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		Validate:        p.Validate,
		Translator:      p.Translator,
		UserSvc:         p.Users,
		CourseSvc:       p.Courses,
		EnrollmentSvc:   p.Enrollments,
		GamificationSvc: p.XP,
		CouponSvc:       p.Coupons,
		MessageSvc:      p.Messages,
		LiveClassSvc:    p.LiveClasses,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newZapLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newTxRunner))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(newRedisClient))
	must(c.Provide(newLeaderboardSource))
	must(c.Provide(liveclasssvc.NewProvider))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))

	must(c.Provide(user.NewService))
	must(c.Provide(newUserServiceInterface))
	must(c.Provide(course.NewService))
	must(c.Provide(newCouponService))
	must(c.Provide(gamification.NewService))
	must(c.Provide(newEnrollmentService))
	must(c.Provide(newMessageService))
	must(c.Provide(newLiveClassService))
	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
