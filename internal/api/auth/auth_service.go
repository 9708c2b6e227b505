package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"reccalc/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	// Register creates a new user and returns access and refresh tokens.
	Register(ctx context.Context, username, email, password string) (string, string, error)

	// Login authenticates a user and returns access and refresh tokens.
	Login(ctx context.Context, email, password string) (string, string, error)

	// RefreshSession rotates a valid refresh token into a new token pair.
	RefreshSession(ctx context.Context, refreshToken string) (string, string, error)

	// Logout revokes the presented refresh token.
	Logout(ctx context.Context, refreshToken string) error
}

type AuthServiceImpl struct {
	logger *slog.Logger
	repo   AuthRepo
	tokens *TokenService
}

func NewAuthService(repo AuthRepo, tokens *TokenService, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		tokens: tokens,
	}
}

const minPasswordLength = 8

// Register stores a new user with a bcrypt hash of the password and issues a
// token pair. Duplicate username/email surfaces as types.ErrConflict.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string) (string, string, error) {
	l := s.logger.With(slog.String("method", "Register"), slog.String("email", email))

	if username == "" || email == "" {
		return "", "", fmt.Errorf("username and email are required: %w", types.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return "", "", fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, types.ErrValidation)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, username, email, string(hashedPassword), types.RoleUser)
	if err != nil {
		l.WarnContext(ctx, "User creation failed", slog.Any("error", err))
		return "", "", err
	}

	l.InfoContext(ctx, "User registered", slog.String("userID", user.ID.String()))
	return s.issueTokenPair(ctx, user)
}

// Login verifies credentials and issues a token pair. Unknown user and wrong
// password produce the same error so callers cannot enumerate accounts.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, string, error) {
	l := s.logger.With(slog.String("method", "Login"), slog.String("email", email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			// Burn a bcrypt comparison anyway so response timing does not
			// reveal whether the account exists.
			_ = bcrypt.CompareHashAndPassword(
				[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"),
				[]byte(password))
			l.WarnContext(ctx, "Login for unknown user")
			return "", "", fmt.Errorf("invalid credentials: %w", types.ErrUnauthenticated)
		}
		return "", "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		l.WarnContext(ctx, "Password mismatch")
		return "", "", fmt.Errorf("invalid credentials: %w", types.ErrUnauthenticated)
	}

	l.InfoContext(ctx, "Login successful", slog.String("userID", user.ID.String()))
	return s.issueTokenPair(ctx, user)
}

// RefreshSession validates and rotates the refresh token: the old token is
// revoked, a new pair is issued.
func (s *AuthServiceImpl) RefreshSession(ctx context.Context, refreshToken string) (string, string, error) {
	l := s.logger.With(slog.String("method", "RefreshSession"))

	userID, err := s.repo.ValidateRefreshTokenAndGetUserID(ctx, refreshToken)
	if err != nil {
		l.WarnContext(ctx, "Refresh token rejected", slog.Any("error", err))
		return "", "", err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return "", "", fmt.Errorf("user disabled: %w", types.ErrUnauthenticated)
		}
		return "", "", err
	}

	if err := s.repo.InvalidateRefreshToken(ctx, refreshToken); err != nil {
		l.WarnContext(ctx, "Failed to revoke rotated refresh token", slog.Any("error", err))
	}

	return s.issueTokenPair(ctx, user)
}

// Logout revokes the refresh token. Access tokens are left to expire.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.InvalidateRefreshToken(ctx, refreshToken)
}

func (s *AuthServiceImpl) issueTokenPair(ctx context.Context, user *types.UserAuth) (string, string, error) {
	accessToken, err := s.tokens.Issue(user, s.tokens.AccessTokenTTL())
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken := uuid.NewString()
	expiresAt := time.Now().Add(s.tokens.RefreshTokenTTL())
	if err := s.repo.StoreRefreshToken(ctx, user.ID.String(), refreshToken, expiresAt); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}
