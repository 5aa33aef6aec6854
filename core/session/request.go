package session

import (
	"net/http"
	"net/textproto"
)

type (
	// CookieStore gives read access to the cookies of a request.
	CookieStore interface {
		Cookie(name string) (string, bool)
	}

	// HeaderReader gives read access to the headers of a request.
	HeaderReader interface {
		Header(name string) string
	}
)

// Request is an immutable snapshot of the parts of an incoming request the Gate looks at.
type Request struct {
	path    string
	cookies map[string]string
	headers map[string]string
}

var (
	_ CookieStore  = Request{}
	_ HeaderReader = Request{}
)

// NewRequest copies cookies and headers so later changes to the maps do not leak in.
func NewRequest(path string, cookies, headers map[string]string) Request {
	req := Request{
		path:    path,
		cookies: make(map[string]string, len(cookies)),
		headers: make(map[string]string, len(headers)),
	}
	for name, val := range cookies {
		req.cookies[name] = val
	}
	for name, val := range headers {
		req.headers[textproto.CanonicalMIMEHeaderKey(name)] = val
	}
	return req
}

// FromHTTP builds a Request from r, keeping the first value of every cookie and header.
func FromHTTP(r *http.Request) Request {
	cookies := make(map[string]string)
	for _, c := range r.Cookies() {
		if _, seen := cookies[c.Name]; !seen {
			cookies[c.Name] = c.Value
		}
	}
	headers := make(map[string]string, len(r.Header))
	for name, vals := range r.Header {
		if len(vals) > 0 {
			headers[name] = vals[0]
		}
	}
	return NewRequest(r.URL.Path, cookies, headers)
}

func (r Request) Path() string { return r.path }

func (r Request) Cookie(name string) (string, bool) {
	val, ok := r.cookies[name]
	return val, ok
}

// Header lookups are case-insensitive.
func (r Request) Header(name string) string {
	return r.headers[textproto.CanonicalMIMEHeaderKey(name)]
}
