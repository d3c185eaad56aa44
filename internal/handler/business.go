package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-pos/internal/service"
)

// BusinessHandler drives the business day state machine.
type BusinessHandler struct {
	Day    *service.BusinessDay
	Ledger *service.OrderLedger
}

func NewBusinessHandler(s *service.Session) *BusinessHandler {
	if s == nil || s.Day == nil || s.Ledger == nil {
		panic("nil dependency passed to NewBusinessHandler")
	}
	return &BusinessHandler{Day: s.Day, Ledger: s.Ledger}
}

type endReq struct {
	Confirm bool `json:"confirm"`
}

// Get returns the status document plus the value of unpaid orders.
func (h *BusinessHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"business":      h.Day.Snapshot(),
		"pending_total": h.Ledger.ActiveTotal(),
		"has_active":    h.Ledger.HasActive(),
	})
}

// Start opens a closed day.
func (h *BusinessHandler) Start(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	st, res, err := h.Day.Start(ctx)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"business": st, "storage": storage(res)})
}

// End settles the day.  With unpaid orders open the client must resend
// with confirm=true; until then the answer is 409 with the pending total.
func (h *BusinessHandler) End(c echo.Context) error {
	var req endReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		}
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var pending int64
	st, res, err := h.Day.End(ctx, func(p int64) bool {
		pending = p
		return req.Confirm
	})
	if errors.Is(err, service.ErrConfirmationDeclined) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":            "unpaid orders remain",
			"confirm_required": true,
			"pending_total":    pending,
		})
	}
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"business": st, "storage": storage(res)})
}

// Restart re-opens a settled day.
func (h *BusinessHandler) Restart(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	st, res, err := h.Day.Restart(ctx)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"business": st, "storage": storage(res)})
}

// Items returns today's sold quantities per menu item.
func (h *BusinessHandler) Items(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": h.Day.TodayItemsSummary()})
}
