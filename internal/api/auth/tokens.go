package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"reccalc/config"
	"reccalc/internal/api"
	"reccalc/internal/types"
)

// TokenService issues and validates signed access tokens. It is constructed
// once from the loaded JWT configuration and never mutated afterwards, so it
// is safe for concurrent use by every request worker.
type TokenService struct {
	cfg    config.JWTConfig
	secret []byte
}

func NewTokenService(cfg config.JWTConfig) (*TokenService, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("token service: secret key must not be empty")
	}
	return &TokenService{cfg: cfg, secret: []byte(cfg.SecretKey)}, nil
}

// AccessTokenTTL exposes the configured access token lifetime.
func (t *TokenService) AccessTokenTTL() time.Duration {
	return t.cfg.AccessTokenTTL
}

// RefreshTokenTTL exposes the configured refresh token lifetime.
func (t *TokenService) RefreshTokenTTL() time.Duration {
	return t.cfg.RefreshTokenTTL
}

// Issue creates a signed access token for the user with the given lifetime.
func (t *TokenService) Issue(user *types.UserAuth, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &types.Claims{
		UserID:   user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    t.cfg.Issuer,
			Audience:  jwt.ClaimStrings{t.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature and expiry of a token string and returns
// its claims. Failures keep their jwt error kind (jwt.ErrTokenExpired,
// jwt.ErrTokenMalformed, jwt.ErrTokenSignatureInvalid) so callers can log
// them distinctly; the API boundary collapses all of them to 401.
func (t *TokenService) Validate(tokenString string) (*types.Claims, error) {
	claims := &types.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}

	if claims.ExpiresAt == nil || time.Now().Unix() > claims.ExpiresAt.Unix() {
		return nil, jwt.ErrTokenExpired
	}
	if claims.Issuer != t.cfg.Issuer {
		return nil, fmt.Errorf("token issuer mismatch: %w", jwt.ErrTokenInvalidIssuer)
	}
	if t.cfg.Audience != "" && !api.VerifyAudience(claims.Audience, t.cfg.Audience) {
		return nil, fmt.Errorf("token audience mismatch: %w", jwt.ErrTokenInvalidAudience)
	}

	return claims, nil
}
