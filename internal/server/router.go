package server

import (
	"context"

	"github.com/abduss/bugtrack/internal/apperr"
	"github.com/abduss/bugtrack/internal/auth"
	"github.com/abduss/bugtrack/internal/bug"
	"github.com/abduss/bugtrack/internal/config"
	"github.com/abduss/bugtrack/internal/logger"
	"github.com/abduss/bugtrack/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config      config.Config
	Store       Pinger
	AuthService *auth.Service
	BugService  *bug.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	devMode := deps.Config.IsDevelopment()

	router := gin.New()
	router.Use(apperr.Recovery(devMode))
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())
	router.Use(apperr.Handler(devMode))

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/api")
	api.GET("/health", apiHealth)

	if deps.AuthService != nil {
		auth.RegisterRoutes(api, deps.AuthService)
	}

	if deps.BugService != nil {
		bugs := api.Group("")
		var deleteGuards []gin.HandlerFunc
		if deps.Config.API.RequireAuth && deps.AuthService != nil {
			bugs.Use(auth.AuthMiddleware(deps.AuthService))
			deleteGuards = append(deleteGuards, auth.RequireAdmin())
		}
		bug.RegisterRoutes(bugs, deps.BugService, deleteGuards...)
	}

	router.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperr.New(apperr.KindNotFound, "Not found - "+c.Request.URL.Path))
	})

	return router
}
