package route

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"reccalc/app/observability/metrics"
	"reccalc/internal/api/recommendation"
	"reccalc/internal/types"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Caller identifies the authenticated user acting on a route.
type Caller struct {
	ID   uuid.UUID
	Role string
}

func (c Caller) canAccess(rt *types.Route) bool {
	return rt.UserID == c.ID || c.Role == types.RoleAdmin
}

var _ RouteService = (*RouteServiceImpl)(nil)

// RouteService owns route CRUD and keeps each route's carrying-capacity
// calculation in step with its parameters.
type RouteService interface {
	Create(ctx context.Context, caller Caller, p types.RouteParams) (*types.RouteDetail, error)
	Get(ctx context.Context, caller Caller, routeID uuid.UUID) (*types.RouteDetail, error)
	List(ctx context.Context, caller Caller, page, pageSize int) (*types.Page[types.RouteListItem], error)
	Update(ctx context.Context, caller Caller, routeID uuid.UUID, version int, p types.RouteParams) (*types.RouteDetail, error)
	Delete(ctx context.Context, caller Caller, routeID uuid.UUID) error
}

type RouteServiceImpl struct {
	logger          *slog.Logger
	repo            RouteRepo
	recommendations recommendation.RecommendationService
}

func NewRouteService(repo RouteRepo, recommendations recommendation.RecommendationService, logger *slog.Logger) *RouteServiceImpl {
	return &RouteServiceImpl{
		logger:          logger,
		repo:            repo,
		recommendations: recommendations,
	}
}

func validateParams(p types.RouteParams) error {
	if strings.TrimSpace(p.RouteName) == "" {
		return fmt.Errorf("route_name is required: %w", types.ErrValidation)
	}
	if p.GS <= 0 {
		return fmt.Errorf("gs must be positive: %w", types.ErrValidation)
	}
	switch p.RouteTimeType {
	case types.RouteTimeFixed:
		if p.TSut <= 0 {
			return fmt.Errorf("t_sut must be positive for fixed-time routes: %w", types.ErrValidation)
		}
		if len(p.TDArray) == 0 {
			return fmt.Errorf("td_array must not be empty for fixed-time routes: %w", types.ErrValidation)
		}
		for i, td := range p.TDArray {
			if td <= 0 {
				return fmt.Errorf("td_array[%d] must be positive: %w", i, types.ErrValidation)
			}
		}
	case types.RouteTimeUnlimited:
		if p.TSezon <= 0 {
			return fmt.Errorf("t_sezon must be positive for unlimited-time routes: %w", types.ErrValidation)
		}
		if p.TL <= 0 {
			return fmt.Errorf("tl must be positive for unlimited-time routes: %w", types.ErrValidation)
		}
	default:
		return fmt.Errorf("route_time_type must be %q or %q: %w",
			types.RouteTimeFixed, types.RouteTimeUnlimited, types.ErrValidation)
	}
	return nil
}

// buildCalculation resolves factor impacts and runs the carrying-capacity
// math. The result is not yet persisted; the repository stores it in the
// same transaction as the route write.
func (s *RouteServiceImpl) buildCalculation(ctx context.Context, p types.RouteParams) (*types.RouteCalculation, error) {
	eco, mgmt, err := s.recommendations.ImpactsForFactors(ctx, p.EcologicalFactors, p.ManagementFactors)
	if err != nil {
		return nil, fmt.Errorf("resolving factor impacts: %w", err)
	}
	return Compute(p, eco, mgmt)
}

func (s *RouteServiceImpl) Create(ctx context.Context, caller Caller, p types.RouteParams) (*types.RouteDetail, error) {
	l := s.logger.With(slog.String("method", "Create"), slog.String("userID", caller.ID.String()))

	if err := validateParams(p); err != nil {
		return nil, err
	}

	calc, err := s.buildCalculation(ctx, p)
	if err != nil {
		l.ErrorContext(ctx, "Failed to calculate carrying capacity", slog.Any("error", err))
		return nil, err
	}

	rt, saved, err := s.repo.CreateWithCalculation(ctx, caller.ID, p, calc)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create route", slog.Any("error", err))
		return nil, err
	}
	metrics.Get().CalculationsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("route_time_type", rt.RouteTimeType)))

	recs, err := s.recommendations.ForFactors(ctx, rt.EcologicalFactors, rt.ManagementFactors)
	if err != nil {
		l.WarnContext(ctx, "Failed to load recommendations for route", slog.Any("error", err))
		recs = []types.Recommendation{}
	}

	l.InfoContext(ctx, "Route created", slog.String("routeID", rt.ID.String()))
	return &types.RouteDetail{Route: *rt, Calculation: saved, Recommendations: recs}, nil
}

func (s *RouteServiceImpl) Get(ctx context.Context, caller Caller, routeID uuid.UUID) (*types.RouteDetail, error) {
	rt, err := s.repo.GetByID(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if !caller.canAccess(rt) {
		return nil, fmt.Errorf("route %s does not belong to caller: %w", routeID, types.ErrForbidden)
	}

	detail := &types.RouteDetail{Route: *rt, Recommendations: []types.Recommendation{}}

	// The calculation and the recommendation catalogue live in different
	// tables; fetch them concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		calc, err := s.repo.GetCalculation(gctx, routeID)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return nil
			}
			return err
		}
		detail.Calculation = calc
		return nil
	})
	g.Go(func() error {
		recs, err := s.recommendations.ForFactors(gctx, rt.EcologicalFactors, rt.ManagementFactors)
		if err != nil {
			return err
		}
		detail.Recommendations = recs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return detail, nil
}

func (s *RouteServiceImpl) List(ctx context.Context, caller Caller, page, pageSize int) (*types.Page[types.RouteListItem], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.repo.ListByUser(ctx, caller.ID, page, pageSize)
}

func (s *RouteServiceImpl) Update(ctx context.Context, caller Caller, routeID uuid.UUID, version int, p types.RouteParams) (*types.RouteDetail, error) {
	l := s.logger.With(slog.String("method", "Update"), slog.String("routeID", routeID.String()))

	if err := validateParams(p); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if !caller.canAccess(existing) {
		return nil, fmt.Errorf("route %s does not belong to caller: %w", routeID, types.ErrForbidden)
	}

	calc, err := s.buildCalculation(ctx, p)
	if err != nil {
		l.ErrorContext(ctx, "Failed to recalculate carrying capacity", slog.Any("error", err))
		return nil, err
	}

	rt, saved, err := s.repo.UpdateWithCalculation(ctx, caller, routeID, version, p, calc)
	if err != nil {
		if errors.Is(err, types.ErrStaleWrite) {
			metrics.Get().StaleWritesTotal.Add(ctx, 1)
		}
		return nil, err
	}
	metrics.Get().CalculationsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("route_time_type", rt.RouteTimeType)))

	recs, err := s.recommendations.ForFactors(ctx, rt.EcologicalFactors, rt.ManagementFactors)
	if err != nil {
		l.WarnContext(ctx, "Failed to load recommendations for route", slog.Any("error", err))
		recs = []types.Recommendation{}
	}

	l.InfoContext(ctx, "Route updated", slog.Int("version", rt.Version))
	return &types.RouteDetail{Route: *rt, Calculation: saved, Recommendations: recs}, nil
}

func (s *RouteServiceImpl) Delete(ctx context.Context, caller Caller, routeID uuid.UUID) error {
	rt, err := s.repo.GetByID(ctx, routeID)
	if err != nil {
		return err
	}
	if !caller.canAccess(rt) {
		return fmt.Errorf("route %s does not belong to caller: %w", routeID, types.ErrForbidden)
	}
	return s.repo.Delete(ctx, caller, routeID)
}
