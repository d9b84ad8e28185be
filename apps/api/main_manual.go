package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

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

func startManual() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(zl.Named("db"), conf)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()
	tx := database.NewTxRunner(db)

	// set up repositories
	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	enrollmentRepo := sqlxrepos.NewEnrollmentRepository(db)
	xpRepo := sqlxrepos.NewGamificationRepository(db)

	// set up the leaderboard read path
	var board gamification.LeaderboardSource
	if conf.PostgREST.URL != "" {
		board = postgrest.NewClient(conf)
	}
	if conf.Redis.Address != "" {
		rdb, err := cache.NewRedisClient(context.Background(), conf)
		if err != nil {
			logger.Warn(fmt.Sprintf("leaderboard cache disabled: %v", err), err)
		} else {
			defer func() { _ = rdb.Close() }()
			if board == nil {
				board = gamification.RepositoryBoard{Repo: xpRepo}
			}
			board = cache.NewLeaderboard(rdb, board, conf, logger)
		}
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	courseSvc := course.NewService(courseRepo)
	couponSvc := coupon.NewService(tx, sqlxrepos.NewCouponRepository(db), courseSvc)
	xpSvc := gamification.NewService(tx, xpRepo, board)
	enrollmentSvc := enrollment.NewService(tx, enrollmentRepo, courseRepo, couponSvc, xpSvc, usrSvc, mailSvc, logger)
	messageSvc := message.NewService(tx, sqlxrepos.NewMessageRepository(db), enrollmentRepo, usrSvc, courseSvc, mailSvc)
	liveClassSvc := liveclass.NewService(
		sqlxrepos.NewLiveClassRepository(db),
		liveclasssvc.NewProvider(conf),
		courseSvc, enrollmentRepo, usrSvc, mailSvc, logger, conf,
	)

	sched, err := scheduler.New(conf, couponSvc, liveClassSvc, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up scheduler: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	coupon.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger)

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Scheduler & API Service

	if conf.Scheduler.Enabled {
		sched.Start()
	}

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			Validate:        validate,
			Translator:      translator,
			UserSvc:         usrSvc,
			CourseSvc:       courseSvc,
			EnrollmentSvc:   enrollmentSvc,
			GamificationSvc: xpSvc,
			CouponSvc:       couponSvc,
			MessageSvc:      messageSvc,
			LiveClassSvc:    liveClassSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		sched.Stop(ctx)

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
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
