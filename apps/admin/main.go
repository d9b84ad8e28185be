package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/coupon"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/gamification"
	"github.com/trezcool/elimu/core/user"
	emailsvc "github.com/trezcool/elimu/services/email"
	logsvc "github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/cache"
	"github.com/trezcool/elimu/storage/database"
	sqlxrepos "github.com/trezcool/elimu/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = db.Close() }()

	// set up services
	tx := database.NewTxRunner(db)
	mailSvc := emailsvc.NewConsoleService(conf, logger)
	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	courses := course.NewService(courseRepo)
	xpRepo := sqlxrepos.NewGamificationRepository(db)

	// recalclevels drops the cached leaderboard when redis is configured
	var board gamification.LeaderboardSource
	if conf.Redis.Address != "" {
		if rdb, err := cache.NewRedisClient(context.Background(), conf); err != nil {
			logger.Warn(fmt.Sprintf("leaderboard cache unavailable: %v", err), err)
		} else {
			defer func() { _ = rdb.Close() }()
			board = cache.NewLeaderboard(rdb, gamification.RepositoryBoard{Repo: xpRepo}, conf, logger)
		}
	}
	xp := gamification.NewService(tx, xpRepo, board)
	enrollments := enrollment.NewService(
		tx,
		sqlxrepos.NewEnrollmentRepository(db),
		courseRepo,
		coupon.NewService(tx, sqlxrepos.NewCouponRepository(db), courses),
		xp,
		user.NewService(usrRepo, mailSvc, conf),
		mailSvc,
		logger,
	)

	// start CLI
	cli := commandLine{
		db:          db,
		usrRepo:     usrRepo,
		enrollments: enrollments,
		xp:          xp,
		out:         os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("admin %v: %v", os.Args[1:], err), err)
		}
		_ = zl.Sync()
		os.Exit(1)
	}
}
