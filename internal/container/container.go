package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "reccalc/app/db"
	"reccalc/config"
	"reccalc/internal/api/auth"
	"reccalc/internal/api/recommendation"
	"reccalc/internal/api/route"
	"reccalc/internal/api/user"
)

// Container holds all application dependencies.
type Container struct {
	Config                *config.Config
	Logger                *slog.Logger
	Pool                  *pgxpool.Pool
	TokenService          *auth.TokenService
	AuthHandler           *auth.AuthHandler
	UserHandler           *user.UserHandler
	RouteHandler          *route.RouteHandler
	RecommendationHandler *recommendation.RecommendationHandler
}

// NewContainer initializes the database pool and wires repositories,
// services and handlers.
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	tokenService, err := auth.NewTokenService(cfg.JWT)
	if err != nil {
		logger.Error("Failed to initialize token service", slog.Any("error", err))
		pool.Close()
		return nil, err
	}

	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	authService := auth.NewAuthService(authRepo, tokenService, logger)
	authHandler := auth.NewAuthHandler(authService, logger)

	userRepo := user.NewPostgresUserRepo(pool, logger)
	userService := user.NewUserService(userRepo, authRepo, logger)
	userHandler := user.NewUserHandler(userService, logger)

	recommendationRepo := recommendation.NewPostgresRecommendationRepo(pool, logger)
	recommendationService := recommendation.NewRecommendationService(recommendationRepo, logger)
	recommendationHandler := recommendation.NewRecommendationHandler(recommendationService, logger)

	routeRepo := route.NewPostgresRouteRepo(pool, logger)
	routeService := route.NewRouteService(routeRepo, recommendationService, logger)
	routeHandler := route.NewRouteHandler(routeService, logger)

	return &Container{
		Config:                cfg,
		Logger:                logger,
		Pool:                  pool,
		TokenService:          tokenService,
		AuthHandler:           authHandler,
		UserHandler:           userHandler,
		RouteHandler:          routeHandler,
		RecommendationHandler: recommendationHandler,
	}, nil
}

// Close releases all resources held by the container.
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready.
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}
