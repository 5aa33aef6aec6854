package echoportal

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trezcool/academia/core/session"
)

const contextTokenKey = "sessionToken"

type GateConfig struct {
	// Skipper defines the paths the gate does not apply to. Defaults to DefaultGateSkipper.
	Skipper middleware.Skipper
	Gate    *session.Gate
}

// DefaultGateSkipper exempts static files, API routes, the health check and the favicon.
func DefaultGateSkipper(ctx echo.Context) bool {
	path := ctx.Request().URL.Path
	switch {
	case strings.HasPrefix(path, "/static/"), strings.HasPrefix(path, "/api/"):
		return true
	case path == "/healthz", path == "/favicon.ico":
		return true
	}
	return false
}

// GateWithConfig redirects requests the session.Gate does not allow through.
// Allowed requests carrying a token get it stored in the context.
// Only GET and HEAD requests are carried as the login callback since the login
// form sends the user back with a GET.
func GateWithConfig(config GateConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = DefaultGateSkipper
	}
	if config.Gate == nil {
		config.Gate = session.New(session.Options{})
	}
	opts := config.Gate.Options()
	opts.CallbackParam = ""
	noCallback := session.New(opts)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if config.Skipper(ctx) {
				return next(ctx)
			}

			gate := config.Gate
			if m := ctx.Request().Method; m != http.MethodGet && m != http.MethodHead {
				gate = noCallback
			}

			req := session.FromHTTP(ctx.Request())
			if decision := gate.Evaluate(req); decision.IsRedirect() {
				return ctx.Redirect(http.StatusTemporaryRedirect, decision.Location)
			}
			if token, ok := config.Gate.Token(req, req); ok {
				ctx.Set(contextTokenKey, token)
			}
			return next(ctx)
		}
	}
}

func contextToken(ctx echo.Context) string {
	token, _ := ctx.Get(contextTokenKey).(string)
	return token
}
