package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stockreport/internal/apperror"
	"stockreport/internal/middleware"
	"stockreport/internal/model"
	"stockreport/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	stubParser
	loginErr error
}

func (s stubAuth) Register(context.Context, service.RegisterRequest) (*service.AuthResponse, error) {
	return &service.AuthResponse{Token: "official", User: service.UserResponse{Username: "alice", Role: model.RoleOfficial}}, nil
}

func (s stubAuth) Login(context.Context, service.LoginRequest) (*service.AuthResponse, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &service.AuthResponse{Token: "official", User: service.UserResponse{Username: "alice", Role: model.RoleOfficial}}, nil
}

func (s stubAuth) Me(_ context.Context, id model.Identity) (*service.UserResponse, error) {
	return &service.UserResponse{ID: id.ID.String(), Username: id.Username, Role: id.Role}, nil
}

func (s stubAuth) ForgotPassword(context.Context, service.ForgotPasswordRequest) error { return nil }

func (s stubAuth) ResetPassword(context.Context, service.ResetPasswordRequest) error {
	return apperror.Validation("Invalid or expired OTP")
}

func newAuthRouter(svc stubAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewAuthHandler(svc, middleware.RequireAuth(svc), time.Hour, false).RegisterRoutes(r.Group("/api"))
	return r
}

func TestLogin_SetsCookie(t *testing.T) {
	r := newAuthRouter(stubAuth{stubParser: tokens})

	w, res := call(r, http.MethodPost, "/api/auth/login", "", `{"email":"alice@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "success", res.Status)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.AccessTokenCookie, cookies[0].Name)
	assert.Equal(t, "official", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLogin_Failures(t *testing.T) {
	r := newAuthRouter(stubAuth{stubParser: tokens, loginErr: apperror.Auth("Invalid email or password")})

	w, res := call(r, http.MethodPost, "/api/auth/login", "", `{"email":"alice@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "auth", res.Kind)
	assert.Empty(t, w.Result().Cookies())

	w, res = call(r, http.MethodPost, "/api/auth/login", "", `{"email":"not-an-email","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, res.Error, "Email (email)")
}

func TestMe(t *testing.T) {
	r := newAuthRouter(stubAuth{stubParser: tokens})

	w, _ := call(r, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = call(r, http.MethodGet, "/api/auth/me", "general", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"gina"`)
}

func TestResetPassword_BadCode(t *testing.T) {
	r := newAuthRouter(stubAuth{stubParser: tokens})

	w, res := call(r, http.MethodPost, "/api/auth/reset-password", "",
		`{"email":"alice@example.com","otp":"123456","password":"newsecret"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid or expired OTP", res.Error)
}

func TestLogout_ClearsCookie(t *testing.T) {
	r := newAuthRouter(stubAuth{stubParser: tokens})

	w, _ := call(r, http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>home</html>"), 0o644))

	r := gin.New()
	ph := NewPageHandler(dir)
	ph.RegisterRoutes(&r.RouterGroup)
	r.NoRoute(ph.NotFound)

	w, res := call(r, http.MethodGet, "/api/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", res.Kind)

	w, _ = call(r, http.MethodGet, "/somewhere", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "home")

	w, _ = call(r, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
