package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-ops-api/internal/models"
	appErrors "github.com/noah-isme/campus-ops-api/pkg/errors"
)

type mockAuthRepo struct {
	users         map[string]models.User
	refreshTokens map[string]models.RefreshToken
	revokedUsers  []string
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:         map[string]models.User{},
		refreshTokens: map[string]models.RefreshToken{},
	}
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	m.users[id] = u
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedUsers = append(m.revokedUsers, userID)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = *token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.refreshTokens[token]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for key, t := range m.refreshTokens {
		if t.ID == id {
			t.Revoked = true
			m.refreshTokens[key] = t
		}
	}
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := newMockAuthRepo()
	repo.users["u1"] = models.User{
		ID:           "u1",
		Email:        "admin@example.com",
		FullName:     "Admin User",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Active:       true,
	}

	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "campus-ops-api",
	})
	return svc, repo
}

func TestAuthLoginIssuesTokenPair(t *testing.T) {
	svc, repo := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Len(t, repo.refreshTokens, 1)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "wrong",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthLoginRejectsInactiveAccount(t *testing.T) {
	svc, repo := newAuthFixture(t)
	u := repo.users["u1"]
	u.Active = false
	repo.users["u1"] = u

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "correct-horse",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	svc, repo := newAuthFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, login.RefreshToken, resp.RefreshToken)

	old, err := repo.FindRefreshToken(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.True(t, old.Revoked)
}

func TestAuthValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.ValidateToken("not-a-jwt")
	require.Error(t, err)
}
