package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/coupon"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/gamification"
	"github.com/trezcool/elimu/core/liveclass"
	"github.com/trezcool/elimu/core/message"
	"github.com/trezcool/elimu/core/user"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc         user.ServiceInterface
		CourseSvc       *course.Service
		EnrollmentSvc   *enrollment.Service
		GamificationSvc *gamification.Service
		CouponSvc       *coupon.Service
		MessageSvc      *message.Service
		LiveClassSvc    *liveclass.Service

		DisableReqLogs bool
	}

	Server struct {
		app      *echo.Echo
		deps     ServerDeps
		auth     *jwtAuth
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		app:      echo.New(),
		deps:     deps,
		auth:     newJWTAuth(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.auth, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := s.auth.middleware()

	registerUserAPI(v1, jwt, s.auth, s.deps.UserSvc, s.deps.Validate)
	registerCourseAPI(v1, jwt, s.auth, s.deps.CourseSvc, s.deps.UserSvc, s.deps.Validate)
	registerEnrollmentAPI(v1, jwt, s.auth, s.deps.EnrollmentSvc, s.deps.Validate)
	registerGamificationAPI(v1, jwt, s.auth, s.deps.GamificationSvc)
	registerCouponAPI(v1, jwt, s.auth, s.deps.CouponSvc, s.deps.UserSvc, s.deps.Validate)
	registerMessageAPI(v1, jwt, s.auth, s.deps.MessageSvc, s.deps.UserSvc, s.deps.Validate)
	registerLiveClassAPI(v1, jwt, s.auth, s.deps.LiveClassSvc, s.deps.UserSvc, s.deps.Validate)
}

// Start listens until the server is shut down; startup failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the application to shut down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error { return s.app.Close() }

// Token signs a fresh access token for usr.
func (s *Server) Token(usr user.User) (string, error) {
	return s.auth.generateToken(s.auth.userClaims(usr))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
