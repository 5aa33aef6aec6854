package echoportal

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/services/authclient"
)

const adminRolePrefix = "admin:"

var errPermissionDenied = echo.NewHTTPError(http.StatusForbidden, "permission denied")

// Authenticator is the part of the users API the portal relies on.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (authclient.Token, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (authclient.User, error)
	Users(ctx context.Context, token, search string) ([]authclient.User, error)
}

type portal struct {
	appName       string
	variant       Variant
	auth          Authenticator
	secureCookies bool
}

func (p *portal) page(title string) page {
	return page{AppName: p.appName, Title: title, ShowUsers: p.variant.UserPages}
}

func (p *portal) loginForm(ctx echo.Context) error {
	pg := p.page(p.variant.Title)
	if param := p.variant.Gate.CallbackParam; param != "" {
		pg.CallbackParam = param
		pg.Callback = ctx.QueryParam(param)
	}
	return ctx.Render(http.StatusOK, "login", pg)
}

func (p *portal) login(ctx echo.Context) error {
	username := strings.TrimSpace(ctx.FormValue("username"))
	password := ctx.FormValue("password")

	var callback string
	if param := p.variant.Gate.CallbackParam; param != "" {
		callback = ctx.FormValue(param)
	}

	tok, err := p.auth.Login(ctx.Request().Context(), username, password)
	if err != nil {
		apiErr, ok := errors.Cause(err).(*authclient.APIError)
		if !ok || apiErr.Status >= http.StatusInternalServerError {
			return errors.Wrap(err, "logging in")
		}
		pg := p.page(p.variant.Title)
		pg.Username = username
		pg.Error = apiErr.Message
		pg.CallbackParam = p.variant.Gate.CallbackParam
		pg.Callback = callback
		return ctx.Render(http.StatusBadRequest, "login", pg)
	}

	ctx.SetCookie(&http.Cookie{
		Name:     p.variant.Gate.CookieName,
		Value:    tok.Token,
		Path:     "/",
		MaxAge:   int(tok.ExpiresIn),
		Expires:  time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
		HttpOnly: true,
		Secure:   p.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return ctx.Redirect(http.StatusSeeOther, localPath(callback, p.variant.Gate.HomePath))
}

func (p *portal) logout(ctx echo.Context) error {
	if token := contextToken(ctx); token != "" {
		if err := p.auth.Logout(ctx.Request().Context(), token); err != nil {
			ctx.Logger().Warnf("logout: %v", err)
		}
	}
	p.clearCookie(ctx)
	return ctx.Redirect(http.StatusSeeOther, p.variant.Gate.LoginPath)
}

func (p *portal) dashboard(ctx echo.Context) error {
	usr, err := p.auth.Me(ctx.Request().Context(), contextToken(ctx))
	if err != nil {
		return p.apiError(ctx, errors.Wrap(err, "getting current user"))
	}
	pg := p.page(p.variant.Title)
	pg.User = usr
	pg.CanManageUsers = p.variant.UserPages && usr.HasRolePrefix(adminRolePrefix)
	return ctx.Render(http.StatusOK, "dashboard", pg)
}

func (p *portal) profile(ctx echo.Context) error {
	usr, err := p.auth.Me(ctx.Request().Context(), contextToken(ctx))
	if err != nil {
		return p.apiError(ctx, errors.Wrap(err, "getting current user"))
	}
	pg := p.page("Profile")
	pg.User = usr
	return ctx.Render(http.StatusOK, "profile", pg)
}

func (p *portal) users(ctx echo.Context) error {
	token := contextToken(ctx)
	usr, err := p.auth.Me(ctx.Request().Context(), token)
	if err != nil {
		return p.apiError(ctx, errors.Wrap(err, "getting current user"))
	}

	search := strings.TrimSpace(ctx.QueryParam("search"))
	users, err := p.auth.Users(ctx.Request().Context(), token, search)
	if err != nil {
		return p.apiError(ctx, errors.Wrap(err, "listing users"))
	}
	pg := p.page("Users")
	pg.User = usr
	pg.Search = search
	pg.Users = users
	return ctx.Render(http.StatusOK, "users", pg)
}

// apiError sends the user back to the login page when the API rejects their token.
func (p *portal) apiError(ctx echo.Context, err error) error {
	switch {
	case authclient.IsStatus(err, http.StatusUnauthorized):
		p.clearCookie(ctx)
		return ctx.Redirect(http.StatusSeeOther, p.variant.Gate.LoginPath)
	case authclient.IsStatus(err, http.StatusForbidden):
		return errPermissionDenied
	}
	return err
}

func (p *portal) clearCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     p.variant.Gate.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   p.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// localPath returns target when it is an absolute path on this host, else fallback.
func localPath(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return u.RequestURI()
}

func healthz(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "ok")
}

func favicon(ctx echo.Context) error {
	return ctx.NoContent(http.StatusNoContent)
}
