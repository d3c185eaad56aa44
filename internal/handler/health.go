package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-pos/internal/service"
)

// HealthHandler answers load balancer and terminal health checks.
type HealthHandler struct {
	Session *service.Session
}

func NewHealthHandler(s *service.Session) *HealthHandler {
	if s == nil {
		panic("nil session passed to NewHealthHandler")
	}
	return &HealthHandler{Session: s}
}

// Health returns 200 with the business date and whether the service runs
// without a remote store.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":     "ok",
		"date":       h.Session.Calendar.Date(),
		"local_mode": h.Session.LocalMode(),
	})
}
