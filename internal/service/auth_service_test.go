package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/crams-api/internal/models"
	appErrors "github.com/noah-isme/crams-api/pkg/errors"
)

type mockAuthRepo struct {
	users     map[string]*models.User
	createErr error
	updates   int
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	m := &mockAuthRepo{users: map[string]*models.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "user-new"
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.users[id].PasswordHash = passwordHash
	return nil
}

func (m *mockAuthRepo) Update(ctx context.Context, user *models.User) error {
	m.updates++
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func hashed(t *testing.T, password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newAuthFixture(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		Issuer:             "crams-api",
		EnforceRoleDomains: true,
	})
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Email: "ana@student.com", PasswordHash: hashed(t, "password123"), FirstName: "Ana", Role: models.RoleStudent})
	svc := newAuthFixture(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "Ana@Student.com ", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestAuthServiceLoginInvalidPassword(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Email: "ana@student.com", PasswordHash: hashed(t, "password123"), Role: models.RoleStudent})
	svc := newAuthFixture(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@student.com", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@student.com", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceRegisterEnforcesRoleDomain(t *testing.T) {
	svc := newAuthFixture(newMockAuthRepo())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "mallory@student.com", Password: "secret1", FirstName: "Mal", LastName: "Lory", Role: "admin",
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "bo@advisor.com", Password: "secret1", FirstName: "Bo", LastName: "Chen", Role: "advisor",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdvisor, resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestAuthServiceRegisterDuplicate(t *testing.T) {
	repo := newMockAuthRepo()
	repo.createErr = &pq.Error{Code: "23505", Constraint: "users_student_number_key"}
	svc := newAuthFixture(repo)

	number := "S-1"
	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "ana@student.com", Password: "secret1", FirstName: "Ana", LastName: "Lim", Role: "STUDENT", StudentNumber: &number,
	})
	require.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, "student number already registered", appErrors.FromError(err).Message)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Email: "ana@student.com", PasswordHash: hashed(t, "oldpass"), Role: models.RoleStudent})
	svc := newAuthFixture(repo)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "bad", NewPassword: "newpass"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	require.NoError(t, svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "oldpass", NewPassword: "newpass"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["u1"].PasswordHash), []byte("newpass")))
}

func TestAuthServiceUpdateProfile(t *testing.T) {
	dept := "Mathematics"
	repo := newMockAuthRepo(&models.User{ID: "u1", Email: "ana@student.com", FirstName: "Ana", LastName: "Lim", Role: models.RoleStudent, Department: &dept})
	svc := newAuthFixture(repo)

	first := " Anna "
	year := 3
	user, err := svc.UpdateProfile(context.Background(), "u1", models.UpdateProfileRequest{FirstName: &first, YearLevel: &year})
	require.NoError(t, err)
	assert.Equal(t, "Anna", user.FirstName)
	assert.Equal(t, "Lim", user.LastName)
	require.NotNil(t, user.YearLevel)
	assert.Equal(t, 3, *user.YearLevel)
	assert.Equal(t, "Mathematics", *repo.users["u1"].Department)
	assert.Equal(t, models.RoleStudent, repo.users["u1"].Role)
	assert.Equal(t, 1, repo.updates)
}

func TestAuthServiceUpdateProfileRejectsInvalidPayload(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Email: "ana@student.com", FirstName: "Ana", Role: models.RoleStudent})
	svc := newAuthFixture(repo)

	year := 12
	_, err := svc.UpdateProfile(context.Background(), "u1", models.UpdateProfileRequest{YearLevel: &year})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Zero(t, repo.updates)
}

func TestAuthServiceUpdateProfileMissingUser(t *testing.T) {
	svc := newAuthFixture(newMockAuthRepo())

	first := "Ghost"
	_, err := svc.UpdateProfile(context.Background(), "u404", models.UpdateProfileRequest{FirstName: &first})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	repo := newMockAuthRepo(&models.User{ID: "u1", Email: "ana@student.com", PasswordHash: hashed(t, "password123"), Role: models.RoleStudent})
	issuer := NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "other", Issuer: "crams-api"})
	resp, err := issuer.Login(context.Background(), models.LoginRequest{Email: "ana@student.com", Password: "password123"})
	require.NoError(t, err)

	_, err = newAuthFixture(repo).ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
