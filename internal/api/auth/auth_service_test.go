package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"reccalc/internal/types"
)

// MockAuthRepo is a mock implementation of the AuthRepo interface
type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, userID string) (*types.UserAuth, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func (m *MockAuthRepo) CreateUser(ctx context.Context, username, email, hashedPassword, role string) (*types.UserAuth, error) {
	args := m.Called(ctx, username, email, hashedPassword, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func (m *MockAuthRepo) StoreRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, token, expiresAt)
	return args.Error(0)
}

func (m *MockAuthRepo) ValidateRefreshTokenAndGetUserID(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthRepo) InvalidateRefreshToken(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthRepo) InvalidateAllUserRefreshTokens(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func newTestAuthService(t *testing.T, repo AuthRepo) *AuthServiceImpl {
	t.Helper()
	tokens, err := NewTokenService(testJWTConfig())
	require.NoError(t, err)
	return NewAuthService(repo, tokens, slog.Default())
}

func TestLogin(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	service := newTestAuthService(t, mockRepo)

	t.Run("Success", func(t *testing.T) {
		ctx := context.Background()
		email := "test@example.com"
		password := "password123"
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		user := &types.UserAuth{
			ID:       uuid.New(),
			Username: "testuser",
			Email:    email,
			Password: string(hashedPassword),
			Role:     types.RoleUser,
		}

		mockRepo.On("GetUserByEmail", ctx, email).Return(user, nil).Once()
		mockRepo.On("StoreRefreshToken", ctx, user.ID.String(), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()

		accessToken, refreshToken, err := service.Login(ctx, email, password)

		assert.NoError(t, err)
		assert.NotEmpty(t, accessToken)
		assert.NotEmpty(t, refreshToken)
		mockRepo.AssertExpectations(t)
	})

	t.Run("UserNotFound", func(t *testing.T) {
		ctx := context.Background()
		email := "nonexistent@example.com"

		mockRepo.On("GetUserByEmail", ctx, email).Return(nil, types.ErrNotFound).Once()

		accessToken, refreshToken, err := service.Login(ctx, email, "password123")

		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		assert.Empty(t, accessToken)
		assert.Empty(t, refreshToken)
		mockRepo.AssertExpectations(t)
	})

	t.Run("InvalidPassword", func(t *testing.T) {
		ctx := context.Background()
		email := "test@example.com"
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correctpassword"), bcrypt.DefaultCost)

		user := &types.UserAuth{
			ID:       uuid.New(),
			Username: "testuser",
			Email:    email,
			Password: string(hashedPassword),
			Role:     types.RoleUser,
		}

		mockRepo.On("GetUserByEmail", ctx, email).Return(user, nil).Once()

		_, _, err := service.Login(ctx, email, "wrongpassword")

		// Unknown user and wrong password must be indistinguishable.
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		mockRepo.AssertExpectations(t)
	})
}

func TestRegister(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	service := newTestAuthService(t, mockRepo)

	t.Run("Success", func(t *testing.T) {
		ctx := context.Background()
		username := "newuser"
		email := "new@example.com"
		password := "password123"

		created := &types.UserAuth{
			ID:       uuid.New(),
			Username: username,
			Email:    email,
			Role:     types.RoleUser,
		}

		mockRepo.On("CreateUser", ctx, username, email, mock.AnythingOfType("string"), types.RoleUser).
			Run(func(args mock.Arguments) {
				// The stored value must be a bcrypt hash, never the raw password.
				hashed := args.String(3)
				assert.NotEqual(t, password, hashed)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)))
			}).
			Return(created, nil).Once()
		mockRepo.On("StoreRefreshToken", ctx, created.ID.String(), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()

		accessToken, refreshToken, err := service.Register(ctx, username, email, password)

		assert.NoError(t, err)
		assert.NotEmpty(t, accessToken)
		assert.NotEmpty(t, refreshToken)
		mockRepo.AssertExpectations(t)
	})

	t.Run("ShortPassword", func(t *testing.T) {
		_, _, err := service.Register(context.Background(), "user", "user@example.com", "short")
		assert.ErrorIs(t, err, types.ErrValidation)
	})

	t.Run("MissingUsername", func(t *testing.T) {
		_, _, err := service.Register(context.Background(), "", "user@example.com", "password123")
		assert.ErrorIs(t, err, types.ErrValidation)
	})

	t.Run("EmailExists", func(t *testing.T) {
		ctx := context.Background()

		mockRepo.On("CreateUser", ctx, "existinguser", "existing@example.com", mock.AnythingOfType("string"), types.RoleUser).
			Return(nil, types.ErrConflict).Once()

		_, _, err := service.Register(ctx, "existinguser", "existing@example.com", "password123")

		assert.ErrorIs(t, err, types.ErrConflict)
		mockRepo.AssertExpectations(t)
	})
}

func TestRefreshSession(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	service := newTestAuthService(t, mockRepo)

	t.Run("RotatesToken", func(t *testing.T) {
		ctx := context.Background()
		user := &types.UserAuth{ID: uuid.New(), Username: "testuser", Email: "test@example.com", Role: types.RoleUser}
		oldToken := "old-refresh-token"

		mockRepo.On("ValidateRefreshTokenAndGetUserID", ctx, oldToken).Return(user.ID.String(), nil).Once()
		mockRepo.On("GetUserByID", ctx, user.ID.String()).Return(user, nil).Once()
		mockRepo.On("InvalidateRefreshToken", ctx, oldToken).Return(nil).Once()
		mockRepo.On("StoreRefreshToken", ctx, user.ID.String(), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()

		accessToken, refreshToken, err := service.RefreshSession(ctx, oldToken)

		assert.NoError(t, err)
		assert.NotEmpty(t, accessToken)
		assert.NotEqual(t, oldToken, refreshToken)
		mockRepo.AssertExpectations(t)
	})

	t.Run("RejectedToken", func(t *testing.T) {
		ctx := context.Background()

		mockRepo.On("ValidateRefreshTokenAndGetUserID", ctx, "bad-token").Return("", types.ErrUnauthenticated).Once()

		_, _, err := service.RefreshSession(ctx, "bad-token")

		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		mockRepo.AssertExpectations(t)
	})

	t.Run("DeletedUser", func(t *testing.T) {
		ctx := context.Background()
		userID := uuid.New().String()

		mockRepo.On("ValidateRefreshTokenAndGetUserID", ctx, "orphan-token").Return(userID, nil).Once()
		mockRepo.On("GetUserByID", ctx, userID).Return(nil, types.ErrNotFound).Once()

		_, _, err := service.RefreshSession(ctx, "orphan-token")

		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		mockRepo.AssertExpectations(t)
	})
}

func TestLogout(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	service := newTestAuthService(t, mockRepo)

	t.Run("Success", func(t *testing.T) {
		ctx := context.Background()
		refreshToken := "valid-refresh-token"

		mockRepo.On("InvalidateRefreshToken", ctx, refreshToken).Return(nil).Once()

		err := service.Logout(ctx, refreshToken)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error", func(t *testing.T) {
		ctx := context.Background()
		expectedError := errors.New("database error")

		mockRepo.On("InvalidateRefreshToken", ctx, "broken-token").Return(expectedError).Once()

		err := service.Logout(ctx, "broken-token")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), expectedError.Error())
		mockRepo.AssertExpectations(t)
	})
}
