// Package session decides, for every page request hitting a portal, whether it may go
// through or must be redirected, based only on the presence of a session credential.
//
// The credential is never validated here (no signature or expiry check): the API
// validates it on every call and the portals react to its 401s.
package session

import (
	"net/url"
	"strings"
)

const (
	DefaultCookieName = "token"
	DefaultLoginPath  = "/login"
	DefaultHomePath   = "/"

	bearerPrefix = "Bearer "
)

// Action is what the caller should do with a request.
type Action int

const (
	Allow Action = iota
	Redirect
)

func (a Action) String() string {
	if a == Redirect {
		return "redirect"
	}
	return "allow"
}

// Decision is the outcome of a Gate evaluation. Location is only set for Redirect.
type Decision struct {
	Action   Action
	Location string
}

func (d Decision) IsRedirect() bool { return d.Action == Redirect }

func allow() Decision { return Decision{Action: Allow} }

func redirectTo(location string) Decision { return Decision{Action: Redirect, Location: location} }

type Options struct {
	// CookieName holds the session token. Defaults to "token".
	CookieName string
	// BearerHeader enables reading the token from "Authorization: Bearer <token>"
	// when the cookie is absent.
	BearerHeader bool
	LoginPath    string
	HomePath     string
	// CallbackParam, when set, is the query parameter used to carry the originally
	// requested path on the login redirect.
	CallbackParam string
}

// Gate is safe for concurrent use: it holds no mutable state.
type Gate struct {
	opts Options
}

func New(opts Options) *Gate {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.LoginPath == "" {
		opts.LoginPath = DefaultLoginPath
	}
	if opts.HomePath == "" {
		opts.HomePath = DefaultHomePath
	}
	return &Gate{opts: opts}
}

func (g *Gate) Options() Options { return g.opts }

// Token returns the session token, preferring the cookie over the Authorization header.
// headers may be nil.
func (g *Gate) Token(cookies CookieStore, headers HeaderReader) (string, bool) {
	if cookies != nil {
		if tok, ok := cookies.Cookie(g.opts.CookieName); ok && tok != "" {
			return tok, true
		}
	}
	if g.opts.BearerHeader && headers != nil {
		if tok, ok := BearerToken(headers.Header("Authorization")); ok {
			return tok, true
		}
	}
	return "", false
}

// Decide applies the gate's decision table to a request for path.
func (g *Gate) Decide(path string, cookies CookieStore, headers HeaderReader) Decision {
	_, hasCredential := g.Token(cookies, headers)
	isLoginPath := path == g.opts.LoginPath

	switch {
	case !hasCredential && !isLoginPath:
		return redirectTo(g.loginLocation(path))
	case hasCredential && isLoginPath:
		return redirectTo(g.opts.HomePath)
	default:
		return allow()
	}
}

func (g *Gate) Evaluate(req Request) Decision {
	return g.Decide(req.Path(), req, req)
}

func (g *Gate) loginLocation(from string) string {
	if g.opts.CallbackParam == "" || from == "" {
		return g.opts.LoginPath
	}
	q := url.Values{}
	q.Set(g.opts.CallbackParam, from)
	return g.opts.LoginPath + "?" + q.Encode()
}

// BearerToken strips the literal "Bearer " prefix from an Authorization header value.
// Any other scheme, casing, or an empty token counts as no token.
func BearerToken(value string) (string, bool) {
	tok, found := strings.CutPrefix(value, bearerPrefix)
	if !found || tok == "" {
		return "", false
	}
	return tok, true
}
