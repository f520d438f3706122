package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/civic-auth/internal/auth"
	"github.com/iliyamo/civic-auth/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/civic-auth/internal/metrics"    // prometheus recorder for the /metrics endpoint
	"github.com/iliyamo/civic-auth/internal/middleware" // import middleware for authentication and role enforcement
	"github.com/iliyamo/civic-auth/internal/model"
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance: the health check used by load
// balancers and the prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, rec *metrics.Recorder) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(rec.Handler()))
}

// RegisterAuth registers all authentication-related routes and applies
// the necessary middleware.  Unauthenticated operations live under
// /v1/auth, protected endpoints under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, p *handler.ProfileHandler, coord *auth.Coordinator) {
	authn := middleware.Authenticate(coord)

	// Operations that do not require an existing session: register,
	// login, refresh and the external-identity login.  Each of these
	// handlers is responsible for generating or exchanging tokens.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/google", a.Google)
	// Logout revokes the refresh token in the body and closes the
	// caller's open session entry, so it needs to know who the caller
	// is: it takes the Authenticate middleware on its own.
	g.POST("/logout", a.Logout, authn)

	// Everything under /v1 requires a valid access token.  All three
	// platform roles may read and edit their own profile.
	me := e.Group("/v1/me")
	me.Use(authn)
	me.Use(middleware.RequireRole(model.RoleCitizen, model.RoleRepresentative, model.RoleAdmin))
	me.GET("", p.Me)
	me.PATCH("", p.UpdateMe)
	me.POST("/password", p.ChangePassword)
	me.GET("/sessions", p.Sessions)
}
