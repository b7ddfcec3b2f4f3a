package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wsms/warehouse-backend/internal/auth/jwt"
	"github.com/wsms/warehouse-backend/pkg/config"
	"github.com/wsms/warehouse-backend/pkg/errors"
)

func newTestManager(accessExpiry time.Duration) *jwt.Manager {
	return jwt.NewManager(&config.JWTConfig{
		Secret:        "test-secret",
		AccessExpiry:  accessExpiry,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "wsms",
	})
}

func testUser() *jwt.UserInfo {
	return &jwt.UserInfo{
		ID:       "user-1",
		Username: "rtorres",
		Name:     "Rae Torres",
		Role:     "Supervisor",
	}
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	manager := newTestManager(15 * time.Minute)

	pair, err := manager.GenerateTokenPair(testUser())
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)

	claims, err := manager.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "rtorres", claims.Username)
	assert.Equal(t, "Supervisor", claims.Role)
	assert.Equal(t, "wsms", claims.Issuer)

	refreshClaims, err := manager.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refreshClaims.UserID)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	manager := newTestManager(-1 * time.Minute)

	pair, err := manager.GenerateTokenPair(testUser())
	require.NoError(t, err)

	_, err = manager.ValidateAccessToken(pair.AccessToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenExpired))
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	manager := newTestManager(15 * time.Minute)
	other := jwt.NewManager(&config.JWTConfig{
		Secret:        "different-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "wsms",
	})

	pair, err := manager.GenerateTokenPair(testUser())
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(pair.AccessToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	manager := newTestManager(15 * time.Minute)

	_, err := manager.ValidateAccessToken("not-a-token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}

func TestAccessTokenIsNotARefreshToken(t *testing.T) {
	manager := newTestManager(15 * time.Minute)

	pair, err := manager.GenerateTokenPair(testUser())
	require.NoError(t, err)

	// A refresh token parses as access claims but carries no username;
	// handler code must use the right validator for each flow.
	claims, err := manager.ValidateAccessToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, claims.Username)
}
