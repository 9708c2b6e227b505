package recommendation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"reccalc/internal/types"
)

const listCacheKey = "recommendations:all"

var _ RecommendationService = (*RecommendationServiceImpl)(nil)

// RecommendationService serves the recommendation reference catalogue. The
// catalogue only changes through migrations, so reads are cached.
type RecommendationService interface {
	List(ctx context.Context) ([]types.Recommendation, error)
	ForFactors(ctx context.Context, ecologicalFactors, managementFactors []int) ([]types.Recommendation, error)
	ImpactsForFactors(ctx context.Context, ecologicalFactors, managementFactors []int) (eco []float64, mgmt []float64, err error)
}

type RecommendationServiceImpl struct {
	logger *slog.Logger
	repo   RecommendationRepo
	cache  *cache.Cache
}

func NewRecommendationService(repo RecommendationRepo, logger *slog.Logger) *RecommendationServiceImpl {
	return &RecommendationServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache.New(10*time.Minute, 20*time.Minute),
	}
}

func (s *RecommendationServiceImpl) List(ctx context.Context) ([]types.Recommendation, error) {
	if cached, found := s.cache.Get(listCacheKey); found {
		if recs, ok := cached.([]types.Recommendation); ok {
			return recs, nil
		}
	}

	recs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing recommendations: %w", err)
	}

	s.cache.Set(listCacheKey, recs, cache.DefaultExpiration)
	return recs, nil
}

// ForFactors returns the recommendations matching the selected factor
// numbers.
func (s *RecommendationServiceImpl) ForFactors(ctx context.Context, ecologicalFactors, managementFactors []int) ([]types.Recommendation, error) {
	recs, err := s.repo.ListByFactors(ctx, ecologicalFactors, managementFactors)
	if err != nil {
		return nil, fmt.Errorf("listing recommendations by factors: %w", err)
	}
	return recs, nil
}

// ImpactsForFactors resolves the selected factor numbers into their stored
// impact weights, split by factor type. Unknown factor numbers are ignored.
func (s *RecommendationServiceImpl) ImpactsForFactors(ctx context.Context, ecologicalFactors, managementFactors []int) ([]float64, []float64, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	ecoByNumber := make(map[int]float64)
	mgmtByNumber := make(map[int]float64)
	for _, rec := range recs {
		switch rec.FactorType {
		case types.FactorEcological:
			ecoByNumber[rec.FactorNumber] = rec.Impact
		case types.FactorManagement:
			mgmtByNumber[rec.FactorNumber] = rec.Impact
		}
	}

	eco := make([]float64, 0, len(ecologicalFactors))
	for _, n := range ecologicalFactors {
		if impact, ok := ecoByNumber[n]; ok {
			eco = append(eco, impact)
		}
	}
	mgmt := make([]float64, 0, len(managementFactors))
	for _, n := range managementFactors {
		if impact, ok := mgmtByNumber[n]; ok {
			mgmt = append(mgmt, impact)
		}
	}
	return eco, mgmt, nil
}
