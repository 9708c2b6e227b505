package recommendation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "reccalc/app/db"
	"reccalc/internal/types"
)

const queryTimeout = 5 * time.Second

var _ RecommendationRepo = (*PostgresRecommendationRepo)(nil)

type RecommendationRepo interface {
	// ListAll returns every recommendation, ordered by type and number.
	ListAll(ctx context.Context) ([]types.Recommendation, error)

	// ListByFactors returns the recommendations matching the selected
	// ecological and management factor numbers.
	ListByFactors(ctx context.Context, ecologicalFactors, managementFactors []int) ([]types.Recommendation, error)
}

type PostgresRecommendationRepo struct {
	logger *slog.Logger
	pgpool database.PGXQuerier
}

func NewPostgresRecommendationRepo(pgpool database.PGXQuerier, logger *slog.Logger) *PostgresRecommendationRepo {
	return &PostgresRecommendationRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func mapStoreErr(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, types.ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *PostgresRecommendationRepo) ListAll(ctx context.Context) ([]types.Recommendation, error) {
	ctx, span := otel.Tracer("RecommendationRepo").Start(ctx, "ListRecommendations", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "recommendations"),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pgpool.Query(ctx, `
		SELECT id, factor_type, factor_number, factor_description, recommendation_text, impact
		FROM recommendations
		ORDER BY factor_type, factor_number`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, mapStoreErr(err, "list recommendations")
	}
	defer rows.Close()

	recs, err := scanRecommendations(rows)
	if err != nil {
		span.RecordError(err)
		return nil, mapStoreErr(err, "scan recommendations")
	}

	span.SetStatus(codes.Ok, "Recommendations listed")
	return recs, nil
}

func (r *PostgresRecommendationRepo) ListByFactors(ctx context.Context, ecologicalFactors, managementFactors []int) ([]types.Recommendation, error) {
	ctx, span := otel.Tracer("RecommendationRepo").Start(ctx, "ListRecommendationsByFactors", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "recommendations"),
	))
	defer span.End()

	if len(ecologicalFactors) == 0 && len(managementFactors) == 0 {
		return []types.Recommendation{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.pgpool.Query(ctx, `
		SELECT id, factor_type, factor_number, factor_description, recommendation_text, impact
		FROM recommendations
		WHERE (factor_type = 'ecological' AND factor_number = ANY($1))
		   OR (factor_type = 'management' AND factor_number = ANY($2))
		ORDER BY factor_type, factor_number`,
		ecologicalFactors, managementFactors)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, mapStoreErr(err, "list recommendations by factors")
	}
	defer rows.Close()

	recs, err := scanRecommendations(rows)
	if err != nil {
		span.RecordError(err)
		return nil, mapStoreErr(err, "scan recommendations")
	}

	span.SetStatus(codes.Ok, "Recommendations listed")
	return recs, nil
}

func scanRecommendations(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]types.Recommendation, error) {
	recs := []types.Recommendation{}
	for rows.Next() {
		var rec types.Recommendation
		if err := rows.Scan(&rec.ID, &rec.FactorType, &rec.FactorNumber,
			&rec.FactorDescription, &rec.RecommendationText, &rec.Impact); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
