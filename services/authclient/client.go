// Package authclient talks to the users API on behalf of the portals.
package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
)

const defaultTimeout = 10 * time.Second

// APIError is returned for every non-2xx answer of the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	apiErr, ok := errors.Cause(err).(*APIError)
	return ok && apiErr.Status == status
}

type (
	Token struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"` // seconds
	}

	User struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Username  string    `json:"username"`
		Email     string    `json:"email"`
		IsActive  bool      `json:"is_active"`
		Roles     []string  `json:"roles"`
		CreatedAt time.Time `json:"created_at"`
		LastLogin time.Time `json:"last_login"`
	}
)

func (u User) HasRolePrefix(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

type Client struct {
	baseURL string
	rest    *rest.Client
}

// New returns a Client for the API living at baseURL (e.g. "http://localhost:8000").
// httpClient may be nil.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		rest:    &rest.Client{HTTPClient: httpClient},
	}
}

func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return Token{}, errors.Wrap(err, "marshalling credentials")
	}

	var tok Token
	if err = c.do(ctx, rest.Post, "/v1/users/login", "", nil, body, &tok); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// Logout revokes token on the API.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, rest.Post, "/v1/users/logout", token, nil, nil, nil)
}

func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var usr User
	if err := c.do(ctx, rest.Get, "/v1/users/me", token, nil, nil, &usr); err != nil {
		return User{}, err
	}
	return usr, nil
}

// Users lists the users matching search. Admins only.
func (c *Client) Users(ctx context.Context, token, search string) ([]User, error) {
	var params map[string]string
	if search = strings.TrimSpace(search); search != "" {
		params = map[string]string{"search": search}
	}

	var users []User
	if err := c.do(ctx, rest.Get, "/v1/users", token, params, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) do(
	ctx context.Context,
	method rest.Method,
	path, token string,
	params map[string]string,
	body []byte,
	out interface{},
) error {
	req := rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + path,
		Headers:     map[string]string{"Accept": "application/json"},
		QueryParams: params,
		Body:        body,
	}
	if body != nil {
		req.Headers["Content-Type"] = "application/json"
	}
	if token != "" {
		req.Headers["Authorization"] = "Bearer " + token
	}

	resp, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}
	if out == nil || resp.Body == "" {
		return nil
	}
	return errors.Wrapf(json.Unmarshal([]byte(resp.Body), out), "decoding %s %s", method, path)
}

func newAPIError(resp *rest.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		return apiErr
	}

	// validation errors come back as {field: message}
	var fields map[string]string
	if err := json.Unmarshal([]byte(resp.Body), &fields); err == nil && len(fields) > 0 {
		msgs := make([]string, 0, len(fields))
		for field, msg := range fields {
			msgs = append(msgs, field+": "+msg)
		}
		sort.Strings(msgs)
		apiErr.Message = strings.Join(msgs, "; ")
	}
	return apiErr
}
