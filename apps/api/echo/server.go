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
	"golang.org/x/time/rate"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

type Server struct {
	conf         *core.Config
	app          *echo.Echo
	shutdown     chan os.Signal
	errors       chan error
	stopLimiters context.CancelFunc
}

func NewServer(
	conf *core.Config,
	logger core.Logger,
	usrSvc *user.Service,
	revoker TokenRevoker,
	validate *validator.Validate,
	translator ut.Translator,
) *Server {
	s := &Server{
		conf:     conf,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(logger, translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.GET("/", s.home)
	s.app.GET("/healthz", healthz)

	var limitersCtx context.Context
	limitersCtx, s.stopLimiters = context.WithCancel(context.Background())
	limiter := newRateLimiter(limitersCtx, rate.Limit(conf.Server.LoginRateLimit), conf.Server.LoginRateBurst)

	tokens := NewTokenManager(conf)
	v1 := s.app.Group("/v1")
	registerUserAPI(v1, jwtMiddleware(tokens, revoker), limiter.middleware(), &userApi{
		svc:      usrSvc,
		tokens:   tokens,
		revoker:  revoker,
		validate: validate,
	})
	return s
}

// Start blocks until the server stops. Listening errors are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.stopLimiters()
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	s.stopLimiters()
	return s.app.Close()
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}

func healthz(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "ok")
}
