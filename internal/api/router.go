package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/comunidadlabs/community-auth/internal/api/handler"
	"github.com/comunidadlabs/community-auth/internal/api/middleware"
	"github.com/comunidadlabs/community-auth/internal/core/domain"
	"github.com/comunidadlabs/community-auth/internal/core/ports"
)

// NewRouter builds the Echo instance for the development user service,
// serving the given user-service implementation (normally the offline mock).
func NewRouter(users ports.UserService, jwtSecret string, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(users)
	usersHandler := handler.NewUsersHandler(users)
	authMiddleware := middleware.Auth(jwtSecret)

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/logout", authHandler.Logout, authMiddleware)

	// --- Member directory (role-gated) ---
	directory := e.Group("/users", authMiddleware)
	directory.GET("", usersHandler.List, middleware.RequireRole(domain.RoleBoardMember))
	directory.PATCH("/:id/role", usersHandler.UpdateRole, middleware.RequireRole(domain.RoleSuperAdmin))

	// --- Operational endpoints ---
	healthHandler := handler.NewHealthHandler()
	e.GET("/health", healthHandler.Liveness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
