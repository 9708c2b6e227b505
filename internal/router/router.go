package router

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"reccalc/internal/api/auth"
	"reccalc/internal/api/recommendation"
	"reccalc/internal/api/route"
	"reccalc/internal/api/user"
)

//go:embed openapi.json
var openAPISpec []byte

// Config carries the handlers and middleware the router mounts.
type Config struct {
	AuthHandler            *auth.AuthHandler
	UserHandler            *user.UserHandler
	RouteHandler           *route.RouteHandler
	RecommendationHandler  *recommendation.RecommendationHandler
	AuthenticateMiddleware func(http.Handler) http.Handler
	AllowedOrigins         []string
}

// SetupRouter builds the API router. Server-wide middleware (request ID,
// logging, recoverer) are applied in main.go before mounting this.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Get("/docs/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(openAPISpec)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/openapi.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes, no token required.
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/refresh", cfg.AuthHandler.RefreshSession)
			r.Get("/routes/recommendations", cfg.RecommendationHandler.List)
		})

		// Everything below requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Post("/auth/logout", cfg.AuthHandler.Logout)

			r.Get("/users/me", cfg.UserHandler.GetProfile)
			r.Put("/users/me/email", cfg.UserHandler.ChangeEmail)
			r.Put("/users/me/password", cfg.UserHandler.ChangePassword)

			r.Post("/routes", cfg.RouteHandler.CreateRoute)
			r.Get("/routes", cfg.RouteHandler.ListRoutes)
			r.Get("/routes/{routeID}", cfg.RouteHandler.GetRoute)
			r.Put("/routes/{routeID}", cfg.RouteHandler.UpdateRoute)
			r.Delete("/routes/{routeID}", cfg.RouteHandler.DeleteRoute)
		})
	})

	return r
}
