package route

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reccalc/app/observability/metrics"
	"reccalc/internal/types"
)

func TestMain(m *testing.M) {
	metrics.InitAppMetrics()
	m.Run()
}

type MockRouteRepo struct {
	mock.Mock
}

func (m *MockRouteRepo) CreateWithCalculation(ctx context.Context, userID uuid.UUID, p types.RouteParams, calc *types.RouteCalculation) (*types.Route, *types.RouteCalculation, error) {
	args := m.Called(ctx, userID, p, calc)
	rt, _ := args.Get(0).(*types.Route)
	saved, _ := args.Get(1).(*types.RouteCalculation)
	return rt, saved, args.Error(2)
}

func (m *MockRouteRepo) GetByID(ctx context.Context, routeID uuid.UUID) (*types.Route, error) {
	args := m.Called(ctx, routeID)
	rt, _ := args.Get(0).(*types.Route)
	return rt, args.Error(1)
}

func (m *MockRouteRepo) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) (*types.Page[types.RouteListItem], error) {
	args := m.Called(ctx, userID, page, pageSize)
	pg, _ := args.Get(0).(*types.Page[types.RouteListItem])
	return pg, args.Error(1)
}

func (m *MockRouteRepo) UpdateWithCalculation(ctx context.Context, caller Caller, routeID uuid.UUID, version int, p types.RouteParams, calc *types.RouteCalculation) (*types.Route, *types.RouteCalculation, error) {
	args := m.Called(ctx, caller, routeID, version, p, calc)
	rt, _ := args.Get(0).(*types.Route)
	saved, _ := args.Get(1).(*types.RouteCalculation)
	return rt, saved, args.Error(2)
}

func (m *MockRouteRepo) Delete(ctx context.Context, caller Caller, routeID uuid.UUID) error {
	return m.Called(ctx, caller, routeID).Error(0)
}

func (m *MockRouteRepo) GetCalculation(ctx context.Context, routeID uuid.UUID) (*types.RouteCalculation, error) {
	args := m.Called(ctx, routeID)
	calc, _ := args.Get(0).(*types.RouteCalculation)
	return calc, args.Error(1)
}

type MockRecommendationService struct {
	mock.Mock
}

func (m *MockRecommendationService) List(ctx context.Context) ([]types.Recommendation, error) {
	args := m.Called(ctx)
	recs, _ := args.Get(0).([]types.Recommendation)
	return recs, args.Error(1)
}

func (m *MockRecommendationService) ForFactors(ctx context.Context, eco, mgmt []int) ([]types.Recommendation, error) {
	args := m.Called(ctx, eco, mgmt)
	recs, _ := args.Get(0).([]types.Recommendation)
	return recs, args.Error(1)
}

func (m *MockRecommendationService) ImpactsForFactors(ctx context.Context, eco, mgmt []int) ([]float64, []float64, error) {
	args := m.Called(ctx, eco, mgmt)
	e, _ := args.Get(0).([]float64)
	g, _ := args.Get(1).([]float64)
	return e, g, args.Error(2)
}

func newTestRouteService() (*RouteServiceImpl, *MockRouteRepo, *MockRecommendationService) {
	repo := new(MockRouteRepo)
	recs := new(MockRecommendationService)
	return NewRouteService(repo, recs, slog.Default()), repo, recs
}

func storedRoute(owner uuid.UUID, p types.RouteParams, version int) *types.Route {
	return &types.Route{
		ID:                uuid.New(),
		UserID:            owner,
		RouteName:         p.RouteName,
		RouteType:         p.RouteType,
		RouteTimeType:     p.RouteTimeType,
		TSut:              p.TSut,
		TSezon:            p.TSezon,
		GS:                p.GS,
		TL:                p.TL,
		TDArray:           p.TDArray,
		EcologicalFactors: p.EcologicalFactors,
		ManagementFactors: p.ManagementFactors,
		Version:           version,
	}
}

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()
	owner := Caller{ID: uuid.New(), Role: types.RoleUser}
	p := testRouteParams()

	t.Run("Success", func(t *testing.T) {
		svc, repo, recs := newTestRouteService()
		rt := storedRoute(owner.ID, p, 1)

		recs.On("ImpactsForFactors", ctx, p.EcologicalFactors, p.ManagementFactors).
			Return([]float64{-0.1}, []float64{-0.15}, nil).Once()
		repo.On("CreateWithCalculation", ctx, owner.ID, p, mock.AnythingOfType("*types.RouteCalculation")).
			Return(rt, &types.RouteCalculation{RouteID: rt.ID, CFN: 0.9, MCoefficient: 0.85}, nil).Once()
		recs.On("ForFactors", ctx, p.EcologicalFactors, p.ManagementFactors).
			Return([]types.Recommendation{{FactorNumber: 1}}, nil).Once()

		detail, err := svc.Create(ctx, owner, p)
		require.NoError(t, err)
		assert.Equal(t, rt.ID, detail.Route.ID)
		require.NotNil(t, detail.Calculation)
		assert.Len(t, detail.Recommendations, 1)
		repo.AssertExpectations(t)
		recs.AssertExpectations(t)
	})

	t.Run("InvalidParams", func(t *testing.T) {
		svc, repo, _ := newTestRouteService()
		bad := p
		bad.RouteName = "  "

		_, err := svc.Create(ctx, owner, bad)
		assert.ErrorIs(t, err, types.ErrValidation)
		repo.AssertNotCalled(t, "CreateWithCalculation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ImpactResolutionFailureWritesNothing", func(t *testing.T) {
		svc, repo, recs := newTestRouteService()

		// The calculation is built before anything touches the database,
		// so a failure here must leave no route behind.
		recs.On("ImpactsForFactors", ctx, p.EcologicalFactors, p.ManagementFactors).
			Return(nil, nil, errors.New("catalogue unavailable")).Once()

		_, err := svc.Create(ctx, owner, p)
		assert.Error(t, err)
		repo.AssertNotCalled(t, "CreateWithCalculation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RecommendationLoadFailureIsTolerated", func(t *testing.T) {
		svc, repo, recs := newTestRouteService()
		rt := storedRoute(owner.ID, p, 1)

		recs.On("ImpactsForFactors", ctx, p.EcologicalFactors, p.ManagementFactors).
			Return([]float64{}, []float64{}, nil).Once()
		repo.On("CreateWithCalculation", ctx, owner.ID, p, mock.Anything).
			Return(rt, &types.RouteCalculation{RouteID: rt.ID}, nil).Once()
		recs.On("ForFactors", ctx, p.EcologicalFactors, p.ManagementFactors).
			Return(nil, errors.New("catalogue unavailable")).Once()

		detail, err := svc.Create(ctx, owner, p)
		require.NoError(t, err)
		assert.Empty(t, detail.Recommendations)
	})
}

func TestServiceGet(t *testing.T) {
	ctx := context.Background()
	owner := Caller{ID: uuid.New(), Role: types.RoleUser}
	p := testRouteParams()
	rt := storedRoute(owner.ID, p, 1)

	t.Run("OwnerAllowed", func(t *testing.T) {
		svc, repo, recs := newTestRouteService()

		repo.On("GetByID", ctx, rt.ID).Return(rt, nil).Once()
		repo.On("GetCalculation", mock.Anything, rt.ID).
			Return(&types.RouteCalculation{RouteID: rt.ID}, nil).Once()
		recs.On("ForFactors", mock.Anything, p.EcologicalFactors, p.ManagementFactors).
			Return([]types.Recommendation{}, nil).Once()

		detail, err := svc.Get(ctx, owner, rt.ID)
		require.NoError(t, err)
		assert.NotNil(t, detail.Calculation)
	})

	t.Run("StrangerForbidden", func(t *testing.T) {
		svc, repo, _ := newTestRouteService()
		stranger := Caller{ID: uuid.New(), Role: types.RoleUser}

		repo.On("GetByID", ctx, rt.ID).Return(rt, nil).Once()

		_, err := svc.Get(ctx, stranger, rt.ID)
		assert.ErrorIs(t, err, types.ErrForbidden)
		repo.AssertNotCalled(t, "GetCalculation", mock.Anything, mock.Anything)
	})

	t.Run("AdminAllowed", func(t *testing.T) {
		svc, repo, recs := newTestRouteService()
		admin := Caller{ID: uuid.New(), Role: types.RoleAdmin}

		repo.On("GetByID", ctx, rt.ID).Return(rt, nil).Once()
		repo.On("GetCalculation", mock.Anything, rt.ID).
			Return(nil, types.ErrNotFound).Once()
		recs.On("ForFactors", mock.Anything, p.EcologicalFactors, p.ManagementFactors).
			Return([]types.Recommendation{}, nil).Once()

		detail, err := svc.Get(ctx, admin, rt.ID)
		require.NoError(t, err)
		// A missing calculation is not an error, the detail just omits it.
		assert.Nil(t, detail.Calculation)
	})
}

func TestServiceList(t *testing.T) {
	ctx := context.Background()
	caller := Caller{ID: uuid.New(), Role: types.RoleUser}

	t.Run("DefaultsApplied", func(t *testing.T) {
		svc, repo, _ := newTestRouteService()
		repo.On("ListByUser", ctx, caller.ID, 1, defaultPageSize).
			Return(&types.Page[types.RouteListItem]{Page: 1, PageSize: defaultPageSize}, nil).Once()

		_, err := svc.List(ctx, caller, 0, 0)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("PageSizeClamped", func(t *testing.T) {
		svc, repo, _ := newTestRouteService()
		repo.On("ListByUser", ctx, caller.ID, 2, maxPageSize).
			Return(&types.Page[types.RouteListItem]{Page: 2, PageSize: maxPageSize}, nil).Once()

		_, err := svc.List(ctx, caller, 2, 500)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestServiceUpdate(t *testing.T) {
	ctx := context.Background()
	owner := Caller{ID: uuid.New(), Role: types.RoleUser}
	p := testRouteParams()

	t.Run("StaleWritePropagates", func(t *testing.T) {
		svc, repo, recs := newTestRouteService()
		rt := storedRoute(owner.ID, p, 2)

		repo.On("GetByID", ctx, rt.ID).Return(rt, nil).Once()
		recs.On("ImpactsForFactors", ctx, p.EcologicalFactors, p.ManagementFactors).
			Return([]float64{}, []float64{}, nil).Once()
		repo.On("UpdateWithCalculation", ctx, owner, rt.ID, 1, p, mock.Anything).
			Return(nil, nil, types.ErrStaleWrite).Once()

		_, err := svc.Update(ctx, owner, rt.ID, 1, p)
		assert.ErrorIs(t, err, types.ErrStaleWrite)
		repo.AssertExpectations(t)
	})

	t.Run("StrangerForbidden", func(t *testing.T) {
		svc, repo, _ := newTestRouteService()
		rt := storedRoute(owner.ID, p, 1)
		stranger := Caller{ID: uuid.New(), Role: types.RoleUser}

		repo.On("GetByID", ctx, rt.ID).Return(rt, nil).Once()

		_, err := svc.Update(ctx, stranger, rt.ID, 1, p)
		assert.ErrorIs(t, err, types.ErrForbidden)
		repo.AssertNotCalled(t, "UpdateWithCalculation",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("SuccessRecalculates", func(t *testing.T) {
		svc, repo, recs := newTestRouteService()
		rt := storedRoute(owner.ID, p, 1)
		updated := storedRoute(owner.ID, p, 2)
		updated.ID = rt.ID

		repo.On("GetByID", ctx, rt.ID).Return(rt, nil).Once()
		recs.On("ImpactsForFactors", ctx, p.EcologicalFactors, p.ManagementFactors).
			Return([]float64{}, []float64{}, nil).Once()
		repo.On("UpdateWithCalculation", ctx, owner, rt.ID, 1, p, mock.Anything).
			Return(updated, &types.RouteCalculation{RouteID: rt.ID}, nil).Once()
		recs.On("ForFactors", ctx, p.EcologicalFactors, p.ManagementFactors).
			Return([]types.Recommendation{}, nil).Once()

		detail, err := svc.Update(ctx, owner, rt.ID, 1, p)
		require.NoError(t, err)
		assert.Equal(t, 2, detail.Route.Version)
		repo.AssertExpectations(t)
	})
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()
	owner := Caller{ID: uuid.New(), Role: types.RoleUser}
	rt := storedRoute(owner.ID, testRouteParams(), 1)

	t.Run("OwnerAllowed", func(t *testing.T) {
		svc, repo, _ := newTestRouteService()
		repo.On("GetByID", ctx, rt.ID).Return(rt, nil).Once()
		repo.On("Delete", ctx, owner, rt.ID).Return(nil).Once()

		assert.NoError(t, svc.Delete(ctx, owner, rt.ID))
		repo.AssertExpectations(t)
	})

	t.Run("StrangerForbidden", func(t *testing.T) {
		svc, repo, _ := newTestRouteService()
		stranger := Caller{ID: uuid.New(), Role: types.RoleUser}
		repo.On("GetByID", ctx, rt.ID).Return(rt, nil).Once()

		assert.ErrorIs(t, svc.Delete(ctx, stranger, rt.ID), types.ErrForbidden)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})
}
