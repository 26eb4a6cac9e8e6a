package services_test

import (
	"testing"
	"time"

	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/repositories"
	"task-tracker/backend/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		BCryptCost:      bcrypt.MinCost,
	}
}

func setupAuthDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	return db
}

func TestRegisterAndLogin(t *testing.T) {
	db := setupAuthDB(t)
	cfg := testAuthConfig()
	register := services.NewRegisterService(cfg.BCryptCost, nil)
	auth := services.NewAuthService(cfg, nil)

	user, err := register.RegisterUser(db, services.RegistrationRequest{
		Name:     "Alice",
		Email:    "Alice@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, user.Role)
	require.Equal(t, "alice@example.com", user.Email)
	require.NotEqual(t, "correct horse", user.Password)

	loggedIn, err := auth.LoginUser(db, "alice@example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, user.ID, loggedIn.ID)

	_, err = auth.LoginUser(db, "alice@example.com", "wrong")
	require.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = auth.LoginUser(db, "nobody@example.com", "whatever")
	require.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	db := setupAuthDB(t)
	register := services.NewRegisterService(bcrypt.MinCost, nil)

	req := services.RegistrationRequest{Name: "Alice", Email: "a@example.com", Password: "password1"}
	_, err := register.RegisterUser(db, req)
	require.NoError(t, err)

	_, err = register.RegisterUser(db, req)
	require.ErrorIs(t, err, services.ErrDuplicateEmail)
}

func TestGenerateTokenClaims(t *testing.T) {
	db := setupAuthDB(t)
	cfg := testAuthConfig()
	auth := services.NewAuthService(cfg, nil)

	register := services.NewRegisterService(cfg.BCryptCost, nil)
	user, err := register.RegisterUser(db, services.RegistrationRequest{
		Name: "Bob", Email: "bob@example.com", Password: "password1",
	})
	require.NoError(t, err)

	accessToken, refreshToken, err := auth.GenerateToken(db, user)
	require.NoError(t, err)
	require.NotEmpty(t, refreshToken)

	parsed, err := jwt.Parse(accessToken, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims := parsed.Claims.(jwt.MapClaims)
	require.Equal(t, user.ID.String(), claims["user_id"])
	require.Equal(t, models.RoleUser, claims["role"])
	require.Equal(t, "Bob", claims["name"])
	require.Equal(t, services.TokenIssuer, claims["iss"])

	var stored models.Token
	require.NoError(t, db.First(&stored, "user_id = ?", user.ID).Error)
	require.Equal(t, refreshToken, stored.RefreshToken.String())
}

func TestRefreshTokenRotates(t *testing.T) {
	db := setupAuthDB(t)
	cfg := testAuthConfig()
	auth := services.NewAuthService(cfg, nil)
	register := services.NewRegisterService(cfg.BCryptCost, nil)

	user, err := register.RegisterUser(db, services.RegistrationRequest{
		Name: "Carol", Email: "carol@example.com", Password: "password1",
	})
	require.NoError(t, err)

	_, refreshToken, err := auth.GenerateToken(db, user)
	require.NoError(t, err)

	accessToken, newRefreshToken, expiresIn, err := auth.RefreshToken(db, refreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)
	require.NotEqual(t, refreshToken, newRefreshToken)
	require.Equal(t, int64(cfg.AccessTokenTTL.Seconds()), expiresIn)

	// The original token is single-use.
	_, _, _, err = auth.RefreshToken(db, refreshToken)
	require.Error(t, err)
}

func TestRevokeToken(t *testing.T) {
	db := setupAuthDB(t)
	cfg := testAuthConfig()
	auth := services.NewAuthService(cfg, nil)
	register := services.NewRegisterService(cfg.BCryptCost, nil)

	user, err := register.RegisterUser(db, services.RegistrationRequest{
		Name: "Dave", Email: "dave@example.com", Password: "password1",
	})
	require.NoError(t, err)

	_, refreshToken, err := auth.GenerateToken(db, user)
	require.NoError(t, err)

	require.NoError(t, auth.RevokeToken(db, refreshToken))

	_, _, _, err = auth.RefreshToken(db, refreshToken)
	require.Error(t, err)
}

func TestDeleteExpiredTokens(t *testing.T) {
	db := setupAuthDB(t)
	cfg := testAuthConfig()
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	auth := services.NewAuthService(cfg, fixedClock{now: now.Add(-48 * time.Hour)})
	register := services.NewRegisterService(cfg.BCryptCost, nil)

	user, err := register.RegisterUser(db, services.RegistrationRequest{
		Name: "Eve", Email: "eve@example.com", Password: "password1",
	})
	require.NoError(t, err)

	_, _, err = auth.GenerateToken(db, user)
	require.NoError(t, err)

	removed, err := services.DeleteExpiredTokens(db, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
}
