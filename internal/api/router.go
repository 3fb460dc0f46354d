package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskhive/taskhive/internal/app"
	iauth "github.com/taskhive/taskhive/internal/auth"
	"github.com/taskhive/taskhive/internal/handlers"
	"github.com/taskhive/taskhive/internal/middleware"
	"github.com/taskhive/taskhive/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(cfg *app.Config, jwt *iauth.JWTService, authSvc *services.AuthService, taskSvc *services.TaskService) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if authSvc == nil {
		return nil, fmt.Errorf("auth service must be provided")
	}
	if taskSvc == nil {
		return nil, fmt.Errorf("task service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))

	// Public operational endpoints
	r.GET("/health", handlers.Health())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler, err := handlers.NewAuthHandler(authSvc, jwt, handlers.CookieSettings{
		Production: cfg.Server.IsProduction(),
	})
	if err != nil {
		return nil, err
	}

	requireAuth := middleware.Auth(jwt)

	if err := registerAuthRoutes(r, authHandler, requireAuth); err != nil {
		return nil, err
	}
	if err := registerTaskRoutes(r, taskSvc, requireAuth); err != nil {
		return nil, err
	}
	if err := registerUserRoutes(r, authSvc, requireAuth); err != nil {
		return nil, err
	}

	return r, nil
}
