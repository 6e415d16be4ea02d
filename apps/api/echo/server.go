package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/calendar"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/services/metrics"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		Files          core.FileStorage
		SignalShutdown func()

		UserSvc       user.Service
		CourseSvc     course.Service
		AssignmentSvc assignment.Service
		ProgressSvc   progress.Service
		CalendarSvc   calendar.Service
		ChatSvc       chat.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metrics.Middleware())
	s.app.Use(middleware.BodyLimit(bodyLimit))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	auth := newAuthenticator(conf, s.opts.UserSvc)
	v1 := s.app.Group("/v1", auth.sessionMiddleware)
	authed := requireLogin

	registerUserAPI(v1, authed, auth, s.opts)
	registerCourseAPI(v1, authed, s.opts)
	registerAssignmentAPI(v1, authed, s.opts)
	registerProgressAPI(v1, authed, s.opts)
	registerCalendarAPI(v1, authed, s.opts)
	registerChatAPI(v1, authed, s.opts)
	registerDashboardAPI(v1, authed, s.opts)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Address())
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Darasa API!")
}
