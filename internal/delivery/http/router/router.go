// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"fitgate/config"
	"fitgate/internal/delivery/http/middleware"
	"fitgate/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler     *handler.AuthHandler
	FitnessHandler  *handler.FitnessHandler
	HandoffHandler  *handler.HandoffHandler
	InternalHandler *handler.InternalHandler
	AuthMiddleware  *middleware.AuthMiddleware
	Config          *config.Config
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler     *handler.AuthHandler
	fitnessHandler  *handler.FitnessHandler
	handoffHandler  *handler.HandoffHandler
	internalHandler *handler.InternalHandler
	authMiddleware  *middleware.AuthMiddleware
	config          *config.Config
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:     params.AuthHandler,
		fitnessHandler:  params.FitnessHandler,
		handoffHandler:  params.HandoffHandler,
		internalHandler: params.InternalHandler,
		authMiddleware:  params.AuthMiddleware,
		config:          params.Config,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Auth routes
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/google", r.authHandler.GoogleLogin)
		authGroup.POST("/refresh", r.authHandler.Refresh)
		authGroup.POST("/logout", r.authHandler.Logout)

		// The ticket itself is the credential, so no session is required.
		authGroup.POST("/handoff/redeem", r.handoffHandler.Redeem)
	}

	// Routes that require a valid access token
	apiV1 := e.Group("/api/v1")
	apiV1.Use(r.authMiddleware.Authenticate)

	fitnessGroup := apiV1.Group("/fitness")
	{
		fitnessGroup.GET("/token", r.fitnessHandler.GetToken)
		fitnessGroup.DELETE("/credential", r.fitnessHandler.RevokeCredential)
	}

	handoffGroup := apiV1.Group("/handoff")
	{
		handoffGroup.POST("/tickets", r.handoffHandler.CreateTicket)
		handoffGroup.GET("/tickets/qr", r.handoffHandler.TicketQR)
	}

	// Operator-facing routes. These are expected to be reachable only from
	// inside the deployment, never through the public ingress.
	internalGroup := e.Group("/internal")
	{
		internalGroup.GET("/users", r.internalHandler.ListUsers)
		internalGroup.GET("/users/token", r.internalHandler.IssueToken)
		internalGroup.GET("/users/fitness-token", r.internalHandler.FitnessToken)
	}
}

// RegisterTestRoutes exposes the test-account login when the bypass is
// enabled. The route never exists in production.
func (r *router) RegisterTestRoutes(e *echo.Echo) {
	if r.config.TestAccounts != nil && r.config.TestAccounts.Enabled {
		e.POST("/auth/test", r.authHandler.TestLogin)
	}
}
