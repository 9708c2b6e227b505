package user

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"reccalc/internal/types"
)

const minPasswordLength = 8

// TokenRevoker invalidates all refresh tokens for a user. It is satisfied by
// the auth repository.
type TokenRevoker interface {
	InvalidateAllUserRefreshTokens(ctx context.Context, userID string) error
}

var _ UserService = (*UserServiceImpl)(nil)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)

	// ChangeEmail updates the account email after verifying the current
	// password.
	ChangeEmail(ctx context.Context, userID uuid.UUID, currentPassword, newEmail string) error

	// ChangePassword verifies the old password, stores the new hash and
	// revokes all outstanding refresh tokens so other sessions must log in
	// again.
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
}

type UserServiceImpl struct {
	logger  *slog.Logger
	repo    UserRepo
	revoker TokenRevoker
}

func NewUserService(repo UserRepo, revoker TokenRevoker, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger:  logger,
		repo:    repo,
		revoker: revoker,
	}
}

func (s *UserServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *UserServiceImpl) verifyPassword(ctx context.Context, userID uuid.UUID, password string) error {
	user, err := s.repo.GetAuthByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return fmt.Errorf("password verification failed: %w", types.ErrUnauthenticated)
	}
	return nil
}

func (s *UserServiceImpl) ChangeEmail(ctx context.Context, userID uuid.UUID, currentPassword, newEmail string) error {
	l := s.logger.With(slog.String("method", "ChangeEmail"), slog.String("userID", userID.String()))

	if _, err := mail.ParseAddress(newEmail); err != nil {
		return fmt.Errorf("invalid email address: %w", types.ErrValidation)
	}
	if err := s.verifyPassword(ctx, userID, currentPassword); err != nil {
		return err
	}

	if err := s.repo.UpdateEmail(ctx, userID, newEmail); err != nil {
		l.ErrorContext(ctx, "Failed to change email", slog.Any("error", err))
		return err
	}

	l.InfoContext(ctx, "Email changed")
	return nil
}

func (s *UserServiceImpl) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	l := s.logger.With(slog.String("method", "ChangePassword"), slog.String("userID", userID.String()))

	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, types.ErrValidation)
	}
	if err := s.verifyPassword(ctx, userID, oldPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		l.ErrorContext(ctx, "Failed to change password", slog.Any("error", err))
		return err
	}

	// Other devices keep their access tokens until expiry but cannot refresh.
	if err := s.revoker.InvalidateAllUserRefreshTokens(ctx, userID.String()); err != nil {
		l.WarnContext(ctx, "Failed to revoke refresh tokens after password change", slog.Any("error", err))
	}

	l.InfoContext(ctx, "Password changed")
	return nil
}
