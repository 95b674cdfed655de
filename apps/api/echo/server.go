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

	"github.com/trezcool/educator/core"
	"github.com/trezcool/educator/core/exam"
	"github.com/trezcool/educator/core/media"
	"github.com/trezcool/educator/core/mentorship"
	"github.com/trezcool/educator/core/notification"
	"github.com/trezcool/educator/core/user"
)

type (
	// Deps are the services the API exposes.
	Deps struct {
		Users         *user.Service
		Exams         *exam.Service
		Notifications *notification.Service
		Mentorships   *mentorship.Service
		Media         *media.Service
	}

	Server struct {
		conf       *core.Config
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
		deps       Deps

		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	deps Deps,
) *Server {
	s := &Server{
		conf:       conf,
		logger:     logger,
		validate:   validate,
		translator: translator,
		deps:       deps,
		app:        echo.New(),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !s.conf.Debug {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORS())

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(s.conf))

	registerUserAPI(v1, jwt, s.conf, s.deps.Users, s.validate)
	registerExamAPI(v1, jwt, s.deps.Exams, s.validate)
	registerSubmissionAPI(v1, jwt, s.deps.Exams, s.validate)
	registerNotificationAPI(v1, jwt, s.deps.Notifications, s.validate)
	registerMentorshipAPI(v1, jwt, s.deps.Mentorships, s.validate)
	registerVideoAPI(v1, jwt, s.deps.Media)
}

// Start blocks serving requests; startup and serve failures are sent to Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.logger.Info("API listening on " + s.conf.Server.Host)
	if err := s.app.Start(s.conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) Shutdown(ctx context.Context) error { return s.app.Shutdown(ctx) }

func (s *Server) Close() error { return s.app.Close() }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
