package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-pos/internal/handler"
	"github.com/iliyamo/seat-pos/internal/metrics"
)

// Handlers groups every HTTP handler of the service.
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Business *handler.BusinessHandler
	Orders   *handler.OrderHandler
	Sales    *handler.SalesHandler
	Seats    *handler.SeatHandler
	Menus    *handler.MenuHandler
	Session  *handler.SessionHandler
}

// RegisterRoutes registers the routes that need no authentication: the
// health check and the Prometheus endpoint.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers PIN login under /v1/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
}
