package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reccalc/config"
	"reccalc/internal/types"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		SecretKey:       "test-access-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		Issuer:          "test-issuer",
		Audience:        "test-audience",
	}
}

func testUser() *types.UserAuth {
	return &types.UserAuth{
		ID:       uuid.New(),
		Username: "testuser",
		Email:    "test@example.com",
		Role:     types.RoleUser,
	}
}

func TestNewTokenService(t *testing.T) {
	t.Run("EmptySecretRejected", func(t *testing.T) {
		cfg := testJWTConfig()
		cfg.SecretKey = ""
		_, err := NewTokenService(cfg)
		assert.Error(t, err)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	tokens, err := NewTokenService(testJWTConfig())
	require.NoError(t, err)
	user := testUser()

	signed, err := tokens.Issue(user, tokens.AccessTokenTTL())
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := tokens.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, user.Username, claims.Username)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, types.RoleUser, claims.Role)
	assert.Equal(t, "test-issuer", claims.Issuer)
}

func TestTokenValidationFailures(t *testing.T) {
	tokens, err := NewTokenService(testJWTConfig())
	require.NoError(t, err)
	user := testUser()

	t.Run("Expired", func(t *testing.T) {
		signed, err := tokens.Issue(user, -time.Minute)
		require.NoError(t, err)

		_, err = tokens.Validate(signed)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := tokens.Validate("not-a-token")
		assert.ErrorIs(t, err, jwt.ErrTokenMalformed)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		otherCfg := testJWTConfig()
		otherCfg.SecretKey = "a-different-secret"
		other, err := NewTokenService(otherCfg)
		require.NoError(t, err)

		signed, err := other.Issue(user, time.Minute)
		require.NoError(t, err)

		_, err = tokens.Validate(signed)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		otherCfg := testJWTConfig()
		otherCfg.Issuer = "someone-else"
		other, err := NewTokenService(otherCfg)
		require.NoError(t, err)

		signed, err := other.Issue(user, time.Minute)
		require.NoError(t, err)

		_, err = tokens.Validate(signed)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
	})

	t.Run("WrongAudience", func(t *testing.T) {
		otherCfg := testJWTConfig()
		otherCfg.Audience = "another-audience"
		other, err := NewTokenService(otherCfg)
		require.NoError(t, err)

		signed, err := other.Issue(user, time.Minute)
		require.NoError(t, err)

		_, err = tokens.Validate(signed)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidAudience)
	})
}
