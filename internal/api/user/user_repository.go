package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "reccalc/app/db"
	"reccalc/internal/types"
)

const queryTimeout = 5 * time.Second

var _ UserRepo = (*PostgresUserRepo)(nil)

type UserRepo interface {
	// GetByID returns the user's profile or types.ErrNotFound.
	GetByID(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)

	// GetAuthByID returns the credential-side view or types.ErrNotFound.
	GetAuthByID(ctx context.Context, userID uuid.UUID) (*types.UserAuth, error)

	// UpdateEmail changes the user's email. A taken address returns
	// types.ErrConflict.
	UpdateEmail(ctx context.Context, userID uuid.UUID, newEmail string) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, userID uuid.UUID, newHash string) error
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool database.PGXQuerier
}

func NewPostgresUserRepo(pgpool database.PGXQuerier, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func mapStoreErr(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, types.ErrConflict)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, types.ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var profile types.UserProfile
	err := r.pgpool.QueryRow(ctx, `
		SELECT id, username, email, role, created_at, updated_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`, userID).
		Scan(&profile.ID, &profile.Username, &profile.Email, &profile.Role,
			&profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, fmt.Errorf("user not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, mapStoreErr(err, "get user")
	}

	span.SetStatus(codes.Ok, "User fetched")
	return &profile, nil
}

func (r *PostgresUserRepo) GetAuthByID(ctx context.Context, userID uuid.UUID) (*types.UserAuth, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUserAuth", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var user types.UserAuth
	err := r.pgpool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, role, created_at, updated_at
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`, userID).
		Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.Role,
			&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, fmt.Errorf("user not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, mapStoreErr(err, "get user auth")
	}

	span.SetStatus(codes.Ok, "User fetched")
	return &user, nil
}

func (r *PostgresUserRepo) UpdateEmail(ctx context.Context, userID uuid.UUID, newEmail string) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateEmail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.pgpool.Exec(ctx, `
		UPDATE users SET email = $1, updated_at = now()
		WHERE id = $2 AND deleted_at IS NULL`, newEmail, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update email", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return mapStoreErr(err, "update email")
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "User not found")
		return fmt.Errorf("user not found: %w", types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Email updated")
	return nil
}

func (r *PostgresUserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, newHash string) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdatePassword", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.pgpool.Exec(ctx, `
		UPDATE users SET password_hash = $1, updated_at = now()
		WHERE id = $2 AND deleted_at IS NULL`, newHash, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update password", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return mapStoreErr(err, "update password")
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "User not found")
		return fmt.Errorf("user not found: %w", types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Password updated")
	return nil
}
