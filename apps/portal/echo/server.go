package echoportal

import (
	"context"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/assets"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
)

type Server struct {
	conf     *core.Config
	app      *echo.Echo
	shutdown chan os.Signal
	errors   chan error
}

// NewServer builds the portal named by conf.Portal.App. /api/* is proxied to conf.Portal.APIBaseURL.
func NewServer(conf *core.Config, logger core.Logger, auth Authenticator) (*Server, error) {
	variant, err := VariantByName(conf.Portal.App)
	if err != nil {
		return nil, err
	}
	gate := session.New(variant.Gate)
	variant.Gate = gate.Options()

	apiURL, err := url.Parse(conf.Portal.APIBaseURL)
	if err != nil || apiURL.Host == "" {
		return nil, errors.Errorf("invalid API base URL %q", conf.Portal.APIBaseURL)
	}

	renderer, err := newTemplateRenderer(assets.FS, assets.PortalTemplatesDir)
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(assets.FS, assets.StaticDir)
	if err != nil {
		return nil, errors.Wrap(err, "opening static files")
	}

	p := &portal{
		appName:       conf.AppName,
		variant:       variant,
		auth:          auth,
		secureCookies: conf.Portal.SecureCookies,
	}

	s := &Server{
		conf:     conf,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Renderer = renderer
	s.app.HTTPErrorHandler = newPortalHTTPErrorHandler(logger, func() page { return p.page(variant.Title) })

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	secure := middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "same-origin",
	}
	if conf.Portal.SecureCookies {
		secure.HSTSMaxAge = 31536000
	}
	s.app.Use(middleware.SecureWithConfig(secure))
	s.app.Use(GateWithConfig(GateConfig{Gate: gate}))

	s.app.GET("/healthz", healthz)
	s.app.GET("/favicon.ico", favicon)
	s.app.StaticFS("/static", static)
	s.app.Group("/api", middleware.ProxyWithConfig(middleware.ProxyConfig{
		Balancer: middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{{URL: apiURL}}),
		Rewrite:  map[string]string{"/api/*": "/$1"},
	}))

	s.app.GET(variant.Gate.LoginPath, p.loginForm)
	s.app.POST(variant.Gate.LoginPath, p.login)
	s.app.POST("/logout", p.logout)
	s.app.GET("/", p.dashboard)
	s.app.GET("/profile", p.profile)
	if variant.UserPages {
		s.app.GET("/users", p.users)
	}
	return s, nil
}

// Start blocks until the server stops. Listening errors are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Portal.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
