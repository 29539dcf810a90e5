package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/auth"
	apperrors "authgate/internal/errors"
	"authgate/internal/model"
	"authgate/internal/service"
	"authgate/internal/validation"
)

type stubRegistration struct {
	user   *model.User
	err    error
	called bool
	form   map[string]string
}

func (s *stubRegistration) Register(ctx context.Context, form map[string]string) (*model.User, error) {
	s.called = true
	s.form = form
	return s.user, s.err
}

type stubAuth struct {
	result    *service.LoginResult
	err       error
	logoutErr error
}

func (s *stubAuth) Authenticate(ctx context.Context, form map[string]string) (*service.LoginResult, error) {
	return s.result, s.err
}

func (s *stubAuth) Logout(ctx context.Context, token string) error {
	return s.logoutErr
}

type stubUsers struct {
	user *model.User
	err  error
}

func (s *stubUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.user, s.err
}

type echoValidator struct {
	v *validation.Validator
}

func (ev echoValidator) Validate(i interface{}) error {
	return ev.v.Struct(i)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = echoValidator{v: validation.New()}
	return e
}

func postForm(e *echo.Echo, path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegister_Success_Redirects(t *testing.T) {
	reg := &stubRegistration{user: &model.User{ID: uuid.New()}}
	h := NewAuthHandler(reg, &stubAuth{}, "/auth/login", true)
	e := newEcho()
	e.POST("/api/auth/register", h.Register)

	rec := postForm(e, "/api/auth/register", url.Values{
		"name":     {"Ana"},
		"email":    {"ana@example.com"},
		"password": {"password123"},
	})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, map[string]string{"name": "Ana", "email": "ana@example.com", "password": "password123"}, reg.form)
}

func TestRegister_JSONBody(t *testing.T) {
	reg := &stubRegistration{user: &model.User{ID: uuid.New()}}
	h := NewAuthHandler(reg, &stubAuth{}, "", true)
	e := newEcho()
	e.POST("/api/auth/register", h.Register)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"name":"Ana","email":"ana@example.com","password":"password123"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, "Ana", reg.form["name"])
}

func TestRegister_MalformedJSON(t *testing.T) {
	reg := &stubRegistration{}
	h := NewAuthHandler(reg, &stubAuth{}, "", true)
	e := newEcho()
	e.POST("/api/auth/register", h.Register)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{"name":["Ana"]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, reg.called)
}

func TestRegister_Failures(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
		wantCode    string
	}{
		{
			name: "field errors",
			err: &validation.FieldErrors{Fields: map[string][]string{
				"name": {"Name must contain at least 3 characters"},
			}},
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "Fill in all fields",
		},
		{
			name:        "duplicate email",
			err:         apperrors.ErrDuplicateEmail,
			wantStatus:  http.StatusConflict,
			wantMessage: "Email is already registered",
			wantCode:    "EMAIL_TAKEN",
		},
		{
			name:        "storage failure",
			err:         fmt.Errorf("%w: Error 1045: Access denied for user 'app'", apperrors.ErrStorage),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Failed to insert user into the database",
			wantCode:    "REGISTRATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&stubRegistration{err: tt.err}, &stubAuth{}, "/auth/login", true)
			e := newEcho()
			e.POST("/api/auth/register", h.Register)

			rec := postForm(e, "/api/auth/register", url.Values{"name": {"Al"}})

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Empty(t, rec.Header().Get(echo.HeaderLocation))
			assert.NotContains(t, rec.Body.String(), "Access denied")
			out := decode(t, rec)
			assert.Equal(t, tt.wantMessage, out["message"])
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, out["code"])
			}
		})
	}
}

func TestLogin_Success_SetsCookie(t *testing.T) {
	userID := uuid.New()
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	result := &service.LoginResult{Session: &auth.Session{
		ID:        "sess-1",
		Token:     "signed.jwt.token",
		ExpiresAt: expires,
		User:      auth.Identity{ID: userID, Name: "Ana", Email: "ana@example.com", Role: model.RoleUser},
	}}
	h := NewAuthHandler(&stubRegistration{}, &stubAuth{result: result}, "", true)
	e := newEcho()
	e.POST("/api/auth/login", h.Login)

	rec := postForm(e, "/api/auth/login", url.Values{"email": {"ana@example.com"}, "password": {"password123"}})

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, "signed.jwt.token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)

	out := decode(t, rec)
	assert.Equal(t, "signed.jwt.token", out["access_token"])
	user := out["user"].(map[string]any)
	assert.Equal(t, userID.String(), user["id"])
	assert.Equal(t, "user", user["role"])
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name       string
		stub       *stubAuth
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid credentials",
			stub:       &stubAuth{result: &service.LoginResult{ErrorCode: auth.CodeCredentialsSignin}},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "CredentialsSignin",
		},
		{
			name:       "unexpected failure",
			stub:       &stubAuth{err: errors.New("provider misconfigured")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "LOGIN_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&stubRegistration{}, tt.stub, "", true)
			e := newEcho()
			e.POST("/api/auth/login", h.Login)

			rec := postForm(e, "/api/auth/login", url.Values{"email": {"ana@example.com"}, "password": {"nope"}})

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Empty(t, rec.Result().Cookies())
			out := decode(t, rec)
			assert.Equal(t, tt.wantCode, out["code"])
			assert.NotContains(t, rec.Body.String(), "misconfigured")
		})
	}
}

func TestLookup(t *testing.T) {
	found := &model.User{ID: uuid.New(), Name: "Ana", Email: "ana@example.com", PasswordHash: "$2a$10$secret", Role: model.RoleUser}

	tests := []struct {
		name       string
		query      string
		stub       *stubUsers
		wantStatus int
		wantCode   string
	}{
		{name: "found", query: "ana@example.com", stub: &stubUsers{user: found}, wantStatus: http.StatusOK},
		{name: "not found", query: "ghost@example.com", stub: &stubUsers{err: apperrors.ErrUserNotFound}, wantStatus: http.StatusNotFound, wantCode: "USER_NOT_FOUND"},
		{name: "storage down", query: "ana@example.com", stub: &stubUsers{err: apperrors.ErrStorage}, wantStatus: http.StatusServiceUnavailable, wantCode: "STORAGE_UNAVAILABLE"},
		{name: "invalid email", query: "bad", stub: &stubUsers{}, wantStatus: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho()
			e.GET("/api/users/lookup", NewUserHandler(tt.stub).Lookup)

			req := httptest.NewRequest(http.MethodGet, "/api/users/lookup?email="+url.QueryEscape(tt.query), nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotContains(t, rec.Body.String(), "secret")
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decode(t, rec)["code"])
			}
		})
	}
}
