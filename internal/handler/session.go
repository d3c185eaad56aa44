package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-pos/internal/service"
)

// SessionHandler reports the session and takes foreground notices from
// terminals.
type SessionHandler struct {
	Session *service.Session
}

func NewSessionHandler(s *service.Session) *SessionHandler {
	if s == nil {
		panic("nil session passed to NewSessionHandler")
	}
	return &SessionHandler{Session: s}
}

// Get returns the business date and storage mode.
func (h *SessionHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"date":       h.Session.Calendar.Date(),
		"status":     h.Session.Day.Status(),
		"local_mode": h.Session.LocalMode(),
	})
}

// Foreground runs the day rollover check right away.  A terminal calls it
// when it regains focus.
func (h *SessionHandler) Foreground(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	rolled, res := h.Session.Rollover.Foreground(ctx)
	return c.JSON(http.StatusOK, echo.Map{
		"rolled":  rolled,
		"date":    h.Session.Calendar.Date(),
		"storage": storage(res),
	})
}
