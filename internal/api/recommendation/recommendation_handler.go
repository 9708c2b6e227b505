package recommendation

import (
	"log/slog"
	"net/http"

	"reccalc/internal/api"
)

type RecommendationHandler struct {
	recommendationService RecommendationService
	logger                *slog.Logger
}

func NewRecommendationHandler(recommendationService RecommendationService, logger *slog.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recommendationService: recommendationService,
		logger:                logger,
	}
}

// List godoc
// @Summary      List recommendations
// @Description  Returns the full catalogue of limiting factors and their recommendations
// @Tags         Recommendations
// @Produce      json
// @Success      200 {array} types.Recommendation
// @Failure      503 {object} api.APIError
// @Router       /routes/recommendations [get]
func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.recommendationService.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list recommendations", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, "Recommendations are temporarily unavailable")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, recs)
}
