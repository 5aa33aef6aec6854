package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

const testPwd = "LolC@t123"

func Test_home(t *testing.T) {
	env := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Academia API!", rec.Body.String())

	req, rec = newRequest(http.MethodGet, "/healthz")
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, "ok", rec.Body.String())

	req, rec = newRequest(http.MethodGet, "/v1/unknown")
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_userApi_login(t *testing.T) {
	env := setup(t)

	testutil.CreateUser(t, env.usrRepo, "N Dog", "ndog", "ndog@test.cd", testPwd, []string{user.RoleStudent}, false)
	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", testPwd, []string{user.RoleStudent}, true)

	authFailed := marchallObj(t, httpErr{Error: "authentication failed"})
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, LoginRequest{Username: "this field is required", Password: "this field is required"}),
		},
		{name: "unknown user", body: marchallObj(t, LoginRequest{Username: "lol", Password: testPwd}), wantCode: http.StatusBadRequest, wantData: authFailed},
		{name: "wrong password", body: marchallObj(t, LoginRequest{Username: "hero", Password: "lol"}), wantCode: http.StatusBadRequest, wantData: authFailed},
		{
			name: "inactive user", body: marchallObj(t, LoginRequest{Username: "ndog", Password: testPwd}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "malformed body", body: []byte(`{"username":`), wantCode: http.StatusBadRequest},
		{name: "with username", body: marchallObj(t, LoginRequest{Username: " HERO ", Password: testPwd}), wantCode: http.StatusOK},
		{name: "with email", body: marchallObj(t, LoginRequest{Username: "Hero@Test.cd", Password: testPwd}), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			env.app.ServeHTTP(rec, req)

			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}
			require.Equal(t, http.StatusOK, rec.Code)
			var resp LoginResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, int64(env.conf.Server.JWTExpirationDelta.Seconds()), resp.ExpiresIn)

			claims, err := env.tokens.ParseToken(resp.Token)
			require.NoError(t, err)
			assert.Equal(t, student.ID, claims.Subject)
			assert.Equal(t, "hero", claims.Username)
			assert.True(t, claims.IsStudent)
			assert.False(t, claims.IsAdmin)
			assert.Equal(t, jwt.ClaimStrings{"Academia"}, claims.Audience)
			assert.NotEmpty(t, claims.ID)

			usr, err := env.usrSvc.GetByID(context.Background(), student.ID)
			require.NoError(t, err)
			assert.False(t, usr.LastLogin.IsZero())
		})
	}
}

func Test_userApi_loginRateLimit(t *testing.T) {
	env := setup(t, func(conf *core.Config) {
		conf.Server.LoginRateLimit = 0.01
		conf.Server.LoginRateBurst = 2
	})

	body := marchallObj(t, LoginRequest{Username: "lol", Password: "lol"})
	for i := 0; i < 2; i++ {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "100", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())

	// other clients are not affected
	req, rec = newRequest(http.MethodPost, "/v1/users/login", body)
	req.RemoteAddr = "203.0.113.9:4321"
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_jwtMiddleware(t *testing.T) {
	env := setup(t)

	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	ghost := testutil.CreateUser(t, env.usrRepo, "Ghost", "ghost", "", "", nil, true)
	ghostToken := env.getToken(t, ghost)
	require.NoError(t, env.usrRepo.DeleteUsers(context.Background(), ghost.ID))

	expired := env.tokens.UserClaims(student)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	expiredToken, err := env.tokens.GenerateToken(expired)
	require.NoError(t, err)

	otherConf := core.NewTestConfig()
	otherConf.SecretKey = "other"
	otherTokens := NewTokenManager(otherConf)
	forgedToken, err := otherTokens.GenerateToken(otherTokens.UserClaims(student))
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, env.tokens.UserClaims(student)).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantData []byte
	}{
		{name: "no header", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "basic auth", header: "Basic aGVybzpsb2w=", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "empty bearer", header: "Bearer ", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "garbage", header: "Bearer lol", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{name: "expired", header: "Bearer " + expiredToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{name: "forged", header: "Bearer " + forgedToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{name: "alg none", header: "Bearer " + noneToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{name: "deleted user", header: "Bearer " + ghostToken, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)},
		{name: "valid", header: "Bearer " + env.getToken(t, student), wantCode: http.StatusOK, wantData: marchallObj(t, student)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, "/v1/users/me")
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: tt.wantData}, rec)
		})
	}
}

func Test_userApi_logout(t *testing.T) {
	env := setup(t)

	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	token := env.getToken(t, student)
	otherToken := env.getToken(t, student)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/logout", token)
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// the token is dead...
	req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", token)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errInvalidToken)}, rec)

	// ...other sessions are not
	req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", otherToken)
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// the revocation expires with the token
	env.redis.FastForward(env.conf.Server.JWTExpirationDelta + time.Minute)
	assert.Empty(t, env.redis.Keys())
}

func Test_userApi_refreshToken(t *testing.T) {
	env := setup(t)

	naughty := testutil.CreateUser(t, env.usrRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleStudent}, false)
	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)

	// older than threshold
	unrefreshable := env.tokens.UserClaims(student, time.Now().Add(-2*env.conf.Server.JWTRefreshExpirationDelta).Unix())
	unrefreshableToken, err := env.tokens.GenerateToken(unrefreshable)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: env.getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: env.getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)

			// cannot guess new token.. just check that it carries the original issue time
			if tt.wantCode == http.StatusOK {
				require.Equal(t, tt.wantCode, rec.Code)
				var resp LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				oldClaims, err := env.tokens.ParseToken(tt.token)
				require.NoError(t, err)
				newClaims, err := env.tokens.ParseToken(resp.Token)
				require.NoError(t, err)
				assert.Equal(t, oldClaims.OrigIssuedAt, newClaims.OrigIssuedAt)
				assert.NotEqual(t, oldClaims.ID, newClaims.ID)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_query(t *testing.T) {
	env := setup(t)

	path := func(search, ordering, isActive string, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != "" {
			v.Add("is_active", isActive)
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}

	now := time.Now().UTC()
	usr1 := testutil.CreateUser(t, env.usrRepo, "User", "awe", "awe@test.cd", "", nil, true, now.Add(-7*time.Hour))
	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleStudent}, true, now.Add(-6*time.Hour))
	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true, now.Add(-5*time.Hour))
	principal := testutil.CreateUser(t, env.usrRepo, "Principal", "princip", "princip@test.cd", "", []string{user.RoleAdminPrincipal}, true, now.Add(-4*time.Hour))
	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true, now.Add(-3*time.Hour))
	naughty := testutil.CreateUser(t, env.usrRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleStudent}, false, now.Add(-2*time.Hour))

	adminToken := env.getToken(t, admin)
	empty := marchallList(t)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: env.getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Get all", path: "/v1/users", token: adminToken,
			wantData: marchallList(t, naughty, teacher, principal, admin, student, usr1),
		},
		{
			name: "trailing slash", path: "/v1/users/", token: adminToken,
			wantData: marchallList(t, naughty, teacher, principal, admin, student, usr1),
		},
		// filtering
		{name: "search (unknown)", path: path("lol", "", ""), token: adminToken, wantData: empty},
		{name: "search=USE", path: path("USE", "", ""), token: adminToken, wantData: marchallList(t, student, usr1)},
		{name: "role (unknown)", path: path("", "", "", "lol"), token: adminToken, wantData: empty},
		{name: "role=admin:", path: path("", "", "", user.RoleAdmin), token: adminToken, wantData: marchallList(t, principal, admin)},
		{
			name: "role=teacher:,student:", path: path("", "", "", user.RoleTeacher, user.RoleStudent),
			token: adminToken, wantData: marchallList(t, naughty, teacher, student),
		},
		{name: "is_active=false", path: path("", "", "false"), token: adminToken, wantData: marchallList(t, naughty)},
		{
			name: "is_active=lol", path: path("", "", "lol"), token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"is_active": "invalid boolean"}),
		},
		{name: "all combo (found)", path: path("tea", "", "true", user.RoleTeacher), token: adminToken, wantData: marchallList(t, teacher)},
		// ordering
		{
			name: "order by created_at", path: path("", "created_at", ""), token: adminToken,
			wantData: marchallList(t, usr1, student, admin, principal, teacher, naughty),
		},
		{
			name: "order by -is_active,name", path: path("", "-is_active,name", ""), token: adminToken,
			wantData: marchallList(t, admin, student, principal, teacher, usr1, naughty),
		},
		{
			name: "unknown ordering fields are ignored", path: path("", "password_hash,name;DROP TABLE users", ""), token: adminToken,
			wantData: marchallList(t, naughty, teacher, principal, admin, student, usr1),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_queryRoles(t *testing.T) {
	env := setup(t)
	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	req, rec := newAuthRequest(http.MethodGet, "/v1/users/roles", env.getToken(t, admin))
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)}, rec)
}

func Test_userApi_create(t *testing.T) {
	env := setup(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	adminToken := env.getToken(t, admin)

	newUser := func(uname, email string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name: "New Kid", Username: uname, Email: email,
			Password: testPwd, PasswordConfirm: testPwd, Roles: roles,
		})
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admin required", token: env.getToken(t, teacher), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{
			name: "required fields", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":             "this field is required",
				"username":         "one of username or email is required",
				"email":            "one of username or email is required",
				"password":         "password must contain at least 8 characters",
				"password_confirm": "this field is required",
			}),
		},
		{
			name: "username taken", token: adminToken, body: newUser("Teacher", "new@test.cd"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name: "email taken", token: adminToken, body: newUser("newkid", "TEACHER@test.cd"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name: "role above own", token: adminToken, body: newUser("newkid", "", user.RoleAdminOwner), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{name: "created", token: adminToken, body: newUser("newkid", "new@test.cd", user.RoleStudent), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)

			if tt.wantCode != http.StatusCreated {
				checkCodeAndData(t, tt, rec)
				return
			}
			require.Equal(t, tt.wantCode, rec.Code)
			var created user.User
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
			assert.NotContains(t, rec.Body.String(), "password")

			usr, err := env.usrSvc.GetByUsernameOrEmail(context.Background(), "new@test.cd")
			require.NoError(t, err)
			assert.Equal(t, created.ID, usr.ID)
			assert.Equal(t, "newkid", usr.Username)
			assert.True(t, usr.IsActive)
			assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
			assert.NoError(t, usr.CheckPassword(testPwd))
		})
	}
}

func Test_userApi_retrieve(t *testing.T) {
	env := setup(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	notFound := marchallObj(t, httpErr{Error: "not found"})
	tests := []httpTest{
		{name: "Auth required", path: "/v1/users/" + student.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "self", path: "/v1/users/" + student.ID, token: env.getToken(t, student), wantCode: http.StatusOK, wantData: marchallObj(t, student)},
		{name: "someone else", path: "/v1/users/" + teacher.ID, token: env.getToken(t, student), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "admin", path: "/v1/users/" + teacher.ID, token: env.getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, teacher)},
		{name: "unknown", path: "/v1/users/lol", token: env.getToken(t, admin), wantCode: http.StatusNotFound, wantData: notFound},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_destroy(t *testing.T) {
	env := setup(t)

	owner := testutil.CreateUser(t, env.usrRepo, "Owner", "owner", "owner@test.cd", "", []string{user.RoleAdminOwner}, true)
	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	adminToken := env.getToken(t, admin)

	forbidden := marchallObj(t, httpErr{Error: "permission denied"})
	tests := []httpTest{
		{name: "Admin required", path: "/v1/users/" + student.ID, token: env.getToken(t, student), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "not self", path: "/v1/users/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "not a higher role", path: "/v1/users/" + owner.ID, token: adminToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "deleted", path: "/v1/users/" + student.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "already deleted", path: "/v1/users/" + student.ID, token: adminToken, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_resetPassword(t *testing.T) {
	env := setup(t)

	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, env.usrRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleStudent}, false)
	successData := marchallObj(t, SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	pathRegex := regexp.MustCompile("/password-reset/.+/.+")

	type extraTest struct {
		emailSent bool
		to        mail.Address
	}
	tests := []httpTest{
		{name: "required fields", wantCode: http.StatusBadRequest, wantData: marchallObj(t, PasswordResetRequest{Email: "this field is required"})},
		{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marchallObj(t, PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, PasswordResetRequest{Email: "email must be a valid email address"}),
		},
		{
			name: "unknown email", wantCode: http.StatusOK, body: marchallObj(t, PasswordResetRequest{Email: "lol@test.com"}),
			wantData: successData, extra: extraTest{emailSent: false},
		},
		{
			name: "inactive user", wantCode: http.StatusOK, body: marchallObj(t, PasswordResetRequest{Email: "ndog@test.cd"}),
			wantData: successData, extra: extraTest{emailSent: false},
		},
		{
			name: "known email", wantCode: http.StatusOK, body: marchallObj(t, PasswordResetRequest{Email: strings.ToUpper(student.Email)}),
			wantData: successData, extra: extraTest{emailSent: true, to: mail.Address{Name: student.Name, Address: student.Email}},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset"

		t.Run(tt.name, func(t *testing.T) {
			sentBefore := len(env.mailSvc.SentMessages())

			req, rec := newRequest(tt.method, tt.path, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			extra, ok := tt.extra.(extraTest)
			if !ok {
				return
			}
			sent := env.mailSvc.SentMessages()[sentBefore:]
			if !extra.emailSent {
				assert.Empty(t, sent)
				return
			}
			require.Len(t, sent, 1)
			msg := sent[0]
			assert.Equal(t, extra.to, msg.To[0])
			assert.Contains(t, msg.TextContent, extra.to.Name)
			assert.Contains(t, msg.HTMLContent, extra.to.Name)
			assert.Regexp(t, pathRegex, msg.TextContent)
			assert.Regexp(t, pathRegex, msg.HTMLContent)
		})
	}
}

func Test_userApi_confirmPasswordReset(t *testing.T) {
	env := setup(t)

	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "user3@test.cd", "lol", []string{user.RoleStudent}, true)
	validUID, validToken, err := env.usrSvc.PasswordResetToken(student)
	require.NoError(t, err)

	reqMsg := "this field is required"
	invalidLink := marchallObj(t, map[string]string{"token": "invalid password reset link"})
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, user.ResetUserPassword{Token: reqMsg, UID: reqMsg, Password: "password must contain at least 8 characters", PasswordConfirm: reqMsg}),
		},
		{
			name: "invalid pwd: complexity", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "lol12345", PasswordConfirm: "lol12345"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"}),
		},
		{
			name: "invalid pwd: too common", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "P@$$w0rd", PasswordConfirm: "P@$$w0rd"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password is too common"}),
		},
		{
			name: "PasswordConfirm must = Password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: testPwd, PasswordConfirm: "lol"}),
			wantData: marchallObj(t, user.ResetUserPassword{PasswordConfirm: "password_confirm must be equal to Password"}),
		},
		{
			name: "invalid uid", wantCode: http.StatusBadRequest, wantData: invalidLink,
			body: marchallObj(t, user.ResetUserPassword{Token: validToken, UID: "bG9s", Password: testPwd, PasswordConfirm: testPwd}),
		},
		{
			name: "invalid token", wantCode: http.StatusBadRequest, wantData: invalidLink,
			body: marchallObj(t, user.ResetUserPassword{Token: "HE4TS-sigsig-sig", UID: validUID, Password: testPwd, PasswordConfirm: testPwd}),
		},
		{
			name: "valid token", wantCode: http.StatusOK,
			body:     marchallObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: testPwd, PasswordConfirm: testPwd}),
			wantData: marchallObj(t, SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{
			name: "token is single use", wantCode: http.StatusBadRequest, wantData: invalidLink,
			body: marchallObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: "N3w!Secret", PasswordConfirm: "N3w!Secret"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset-confirm"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				refreshed, err := env.usrRepo.GetUser(context.Background(), user.GetFilter{ID: student.ID})
				require.NoError(t, err)
				assert.False(t, bytes.Equal(refreshed.PasswordHash, student.PasswordHash), "password not updated")
				assert.NoError(t, refreshed.CheckPassword(testPwd))
			}
		})
	}
}
