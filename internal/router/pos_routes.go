package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-pos/internal/middleware"
)

// RegisterPOS registers the terminal endpoints under /v1.  Every route
// requires a valid JWT with the STAFF or OWNER role and passes the rate
// limiter; catalog, layout and archive edits are OWNER only.
func RegisterPOS(e *echo.Echo, h Handlers, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleStaff, middleware.RoleOwner),
	)
	if limiter != nil {
		g.Use(limiter)
	}
	owner := middleware.RequireRole(middleware.RoleOwner)

	// ---- Business day ----
	g.GET("/business", h.Business.Get)
	g.POST("/business/start", h.Business.Start)
	g.POST("/business/end", h.Business.End)
	g.POST("/business/restart", h.Business.Restart)
	g.GET("/business/items", h.Business.Items)

	// ---- Orders ----
	g.GET("/orders", h.Orders.List)
	g.GET("/orders/:seat", h.Orders.Get)
	g.POST("/orders/:seat/items", h.Orders.AddItem)
	g.PUT("/orders/:seat/items/:menu", h.Orders.SetQuantity)
	g.POST("/orders/:seat/pay", h.Orders.Pay)
	g.DELETE("/orders/:seat", h.Orders.Discard)

	// ---- Sales archive ----
	g.GET("/sales", h.Sales.Month)
	g.GET("/sales/:date", h.Sales.Get)
	g.DELETE("/sales/:date", h.Sales.Delete, owner)

	// ---- Seats ----
	g.GET("/seats", h.Seats.List)
	g.PUT("/seats", h.Seats.Save, owner)

	// ---- Menus ----
	g.GET("/menus", h.Menus.List)
	g.POST("/menus", h.Menus.Create, owner)
	g.PATCH("/menus/:id", h.Menus.Update, owner)

	// ---- Session ----
	g.GET("/session", h.Session.Get)
	g.POST("/session/foreground", h.Session.Foreground)
}
