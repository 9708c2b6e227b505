package route

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"reccalc/internal/api"
	"reccalc/internal/api/auth"
	"reccalc/internal/types"
)

type RouteHandler struct {
	routeService RouteService
	logger       *slog.Logger
}

func NewRouteHandler(routeService RouteService, logger *slog.Logger) *RouteHandler {
	return &RouteHandler{
		routeService: routeService,
		logger:       logger,
	}
}

func callerFromContext(r *http.Request) (Caller, bool) {
	idStr, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		return Caller{}, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return Caller{}, false
	}
	role, _ := auth.GetUserRoleFromContext(r.Context())
	return Caller{ID: id, Role: role}, true
}

func routeIDFromURL(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "routeID"))
}

// writeRouteError maps the domain error taxonomy to HTTP statuses.
func (h *RouteHandler) writeRouteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrValidation):
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Route not found")
	case errors.Is(err, types.ErrForbidden):
		api.ErrorResponse(w, r, http.StatusForbidden, "You do not have access to this route")
	case errors.Is(err, types.ErrStaleWrite):
		api.ErrorResponse(w, r, http.StatusConflict, "Route was modified by another request, reload and retry")
	case errors.Is(err, types.ErrUnavailable):
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		h.logger.ErrorContext(r.Context(), "Unhandled route error", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// CreateRoute godoc
// @Summary      Create route
// @Description  Creates a route and computes its carrying capacity
// @Tags         Routes
// @Accept       json
// @Produce      json
// @Param        request body RouteRequest true "Route parameters"
// @Success      201 {object} types.RouteDetail
// @Failure      400 {object} api.APIError
// @Failure      401 {object} api.APIError
// @Security     BearerAuth
// @Router       /routes [post]
func (h *RouteHandler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req RouteRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.routeService.Create(r.Context(), caller, req.toParams())
	if err != nil {
		h.writeRouteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, detail)
}

// GetRoute godoc
// @Summary      Get route
// @Description  Returns a route with its calculation and matching recommendations
// @Tags         Routes
// @Produce      json
// @Param        routeID path string true "Route ID"
// @Success      200 {object} types.RouteDetail
// @Failure      403 {object} api.APIError
// @Failure      404 {object} api.APIError
// @Security     BearerAuth
// @Router       /routes/{routeID} [get]
func (h *RouteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	routeID, err := routeIDFromURL(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid route ID")
		return
	}

	detail, err := h.routeService.Get(r.Context(), caller, routeID)
	if err != nil {
		h.writeRouteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, detail)
}

// ListRoutes godoc
// @Summary      List routes
// @Description  Returns the caller's routes, newest first
// @Tags         Routes
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} types.Page[types.RouteListItem]
// @Failure      401 {object} api.APIError
// @Security     BearerAuth
// @Router       /routes [get]
func (h *RouteHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	result, err := h.routeService.List(r.Context(), caller, page, pageSize)
	if err != nil {
		h.writeRouteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// UpdateRoute godoc
// @Summary      Update route
// @Description  Replaces the route's parameters and recomputes its carrying capacity. The body's version must match the stored version.
// @Tags         Routes
// @Accept       json
// @Produce      json
// @Param        routeID path string true "Route ID"
// @Param        request body RouteRequest true "Route parameters with current version"
// @Success      200 {object} types.RouteDetail
// @Failure      409 {object} api.APIError "Version conflict"
// @Security     BearerAuth
// @Router       /routes/{routeID} [put]
func (h *RouteHandler) UpdateRoute(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	routeID, err := routeIDFromURL(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid route ID")
		return
	}

	var req RouteRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Version < 1 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "version must be the version you last read")
		return
	}

	detail, err := h.routeService.Update(r.Context(), caller, routeID, req.Version, req.toParams())
	if err != nil {
		h.writeRouteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, detail)
}

// DeleteRoute godoc
// @Summary      Delete route
// @Description  Deletes a route and its calculation
// @Tags         Routes
// @Param        routeID path string true "Route ID"
// @Success      204
// @Failure      404 {object} api.APIError
// @Security     BearerAuth
// @Router       /routes/{routeID} [delete]
func (h *RouteHandler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	routeID, err := routeIDFromURL(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid route ID")
		return
	}

	if err := h.routeService.Delete(r.Context(), caller, routeID); err != nil {
		h.writeRouteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
