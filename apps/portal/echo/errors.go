package echoportal

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// newPortalHTTPErrorHandler renders errors as HTML pages. 5xx are logged.
func newPortalHTTPErrorHandler(logger core.Logger, base func() page) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code := http.StatusInternalServerError
		message := http.StatusText(code)

		if herr, ok := errors.Cause(err).(*echo.HTTPError); ok {
			code = herr.Code
			if msg, ok := herr.Message.(string); ok {
				message = msg
			}
		}
		if code >= http.StatusInternalServerError {
			logger.Error(message, errors.Wrap(err, message))
			if ctx.Echo().Debug {
				message = err.Error()
			}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			p := base()
			p.Title = http.StatusText(code)
			p.Code = code
			p.Message = message
			err = ctx.Render(code, "error", p)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
