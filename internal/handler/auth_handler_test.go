package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crams-api/internal/models"
	appErrors "github.com/noah-isme/crams-api/pkg/errors"
)

type authServiceStub struct {
	login      models.LoginRequest
	passwordOf string
	profile    models.UpdateProfileRequest
	err        error
}

func (s *authServiceStub) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.AuthResponse{AccessToken: "token", User: models.UserInfo{Email: req.Email, Role: req.Role}}, nil
}

func (s *authServiceStub) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	s.login = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.AuthResponse{AccessToken: "token", ExpiresIn: 3600}, nil
}

func (s *authServiceStub) Me(ctx context.Context, userID string) (*models.User, error) {
	return &models.User{ID: userID, Email: "ana@student.edu", PasswordHash: "hash"}, nil
}

func (s *authServiceStub) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	s.passwordOf = userID
	return s.err
}

func (s *authServiceStub) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	s.profile = req
	if s.err != nil {
		return nil, s.err
	}
	user := &models.User{ID: userID, Email: "ana@student.edu", PasswordHash: "hash", Department: req.Department, YearLevel: req.YearLevel}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	return user, nil
}

func TestAuthHandlerLogin(t *testing.T) {
	svc := &authServiceStub{}
	r := newTestRouter(nil)
	r.POST("/auth/login", NewAuthHandler(svc).Login)

	rec := perform(r, http.MethodPost, "/auth/login", map[string]string{"email": "ana@student.edu", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana@student.edu", svc.login.Email)
	assert.Contains(t, rec.Body.String(), `"access_token":"token"`)

	svc.err = appErrors.ErrInvalidCredentials
	rec = perform(r, http.MethodPost, "/auth/login", map[string]string{"email": "ana@student.edu", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, rec))
}

func TestAuthHandlerRegister(t *testing.T) {
	svc := &authServiceStub{}
	r := newTestRouter(nil)
	r.POST("/auth/register", NewAuthHandler(svc).Register)

	rec := perform(r, http.MethodPost, "/auth/register", map[string]string{"email": "new@student.edu", "password": "secret1", "role": "STUDENT"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	svc.err = appErrors.Clone(appErrors.ErrConflict, "email already registered")
	rec = perform(r, http.MethodPost, "/auth/register", map[string]string{"email": "new@student.edu", "password": "secret1", "role": "STUDENT"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthHandlerMeHidesPasswordHash(t *testing.T) {
	r := newTestRouter(studentClaims)
	r.GET("/auth/me", NewAuthHandler(&authServiceStub{}).Me)

	rec := perform(r, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"stu-1"`)
	assert.NotContains(t, rec.Body.String(), "hash")
}

func TestAuthHandlerChangePassword(t *testing.T) {
	svc := &authServiceStub{}
	r := newTestRouter(studentClaims)
	r.PUT("/auth/password", NewAuthHandler(svc).ChangePassword)

	rec := perform(r, http.MethodPut, "/auth/password", map[string]string{"old_password": "secret1", "new_password": "secret2"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "stu-1", svc.passwordOf)
}

func TestAuthHandlerUpdateProfile(t *testing.T) {
	svc := &authServiceStub{}
	r := newTestRouter(studentClaims)
	r.PUT("/auth/profile", NewAuthHandler(svc).UpdateProfile)

	rec := perform(r, http.MethodPut, "/auth/profile", map[string]interface{}{"first_name": "Anna", "year_level": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.profile.YearLevel)
	assert.Equal(t, 2, *svc.profile.YearLevel)
	assert.Nil(t, svc.profile.LastName)
	assert.Contains(t, rec.Body.String(), `"first_name":"Anna"`)
	assert.NotContains(t, rec.Body.String(), "hash")

	rec = perform(r, http.MethodPut, "/auth/profile", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.err = appErrors.Clone(appErrors.ErrNotFound, "user not found")
	rec = perform(r, http.MethodPut, "/auth/profile", map[string]interface{}{"first_name": "Anna"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
