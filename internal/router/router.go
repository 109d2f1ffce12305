package router

import (
	"github.com/anonto42/nano-midea/relay/internal/dispatch"
	"github.com/anonto42/nano-midea/relay/internal/handlers"
	"github.com/anonto42/nano-midea/relay/internal/middleware"
	"github.com/anonto42/nano-midea/relay/internal/repositories"
	"github.com/anonto42/nano-midea/relay/internal/services"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Follows       *services.FollowService
	Subscriptions *services.SubscriptionService
	Accounts      *services.AccountService
	Dispatcher    *dispatch.Service
	// Topics is nil when topic membership is disabled.
	Topics repositories.TopicRepository
	Health handlers.Pinger

	// Auth authenticates end users and must store the caller id for middleware.CurrentUserID.
	Auth          echo.MiddlewareFunc
	InternalToken string
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies, log *logrus.Logger) {
	// Health check - always accessible
	e.GET("/health", handlers.NewHealthHandler(deps.Health).HealthCheck)

	// --- Protected routes ---
	api := e.Group("/api/v1")
	users := api.Group("", deps.Auth)
	log.Info("Authentication middleware applied to /api/v1 group.")

	handlers.NewFollowHandler(deps.Follows).RegisterFollowRoutes(users)
	log.Info("Follow routes configured.")

	handlers.NewSubscriptionHandler(deps.Subscriptions).RegisterSubscriptionRoutes(users)
	log.Info("Push subscription routes configured.")

	if deps.Topics != nil {
		handlers.NewTopicHandler(deps.Topics).RegisterTopicRoutes(users)
		log.Info("Topic routes configured.")
	} else {
		log.Warn("Topic routes disabled.")
	}

	// --- Service-to-service routes ---
	internal := api.Group("/internal", middleware.InternalTokenMiddleware(deps.InternalToken))
	handlers.NewInternalHandler(deps.Dispatcher, deps.Accounts).RegisterInternalRoutes(internal)
	log.Info("Internal routes configured.")

	log.Info("All routes configured.")
}
