package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/auth"
	"github.com/sistemanotas/notas/core/course"
	"github.com/sistemanotas/notas/core/dashboard"
	"github.com/sistemanotas/notas/core/enrollment"
	"github.com/sistemanotas/notas/core/grade"
	"github.com/sistemanotas/notas/core/user"
)

type (
	Deps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Tokens     *auth.TokenService

		UserSvc       *user.Service
		CourseSvc     *course.Service
		EnrollmentSvc *enrollment.Service
		GradeSvc      *grade.Service
		DashboardSvc  *dashboard.Service
	}

	Server struct {
		app      *echo.Echo
		address  string
		deps     *Deps
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(deps *Deps) *Server {
	core.MustNotBeNil(map[string]interface{}{
		"conf":          deps.Conf,
		"logger":        deps.Logger,
		"validate":      deps.Validate,
		"translator":    deps.Translator,
		"tokens":        deps.Tokens,
		"userSvc":       deps.UserSvc,
		"courseSvc":     deps.CourseSvc,
		"enrollmentSvc": deps.EnrollmentSvc,
		"gradeSvc":      deps.GradeSvc,
		"dashboardSvc":  deps.DashboardSvc,
	})

	s := &Server{
		app:      echo.New(),
		address:  deps.Conf.Server.Address,
		deps:     deps,
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     conf.Server.CORSOrigins,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)

	s.app.GET("/", s.home)

	api := s.app.Group("/api")
	authn := bearerAuth(s.deps.Tokens)

	registerAuthAPI(api, authn, s.deps)
	registerUserAPI(api, authn, s.deps)
	registerCourseAPI(api, authn, s.deps)
	registerEnrollmentAPI(api, authn, s.deps)
	registerGradeAPI(api, authn, s.deps)
	registerStudentAPI(api, authn, s.deps)
	registerTeacherAPI(api, authn, s.deps)
	registerDashboardAPI(api, authn, s.deps)
}

// Start listens on the configured address. Listener errors are reported on Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the owner of the server to shut it down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"message": "API de " + s.deps.Conf.AppName})
}
