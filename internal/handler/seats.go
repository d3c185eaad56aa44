package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-pos/internal/model"
	"github.com/iliyamo/seat-pos/internal/service"
)

// SeatHandler reads and replaces the day's seat layout.
type SeatHandler struct {
	Seats    *service.SeatRegistry
	Calendar *service.Calendar
}

func NewSeatHandler(s *service.Session) *SeatHandler {
	if s == nil || s.Seats == nil || s.Calendar == nil {
		panic("nil dependency passed to NewSeatHandler")
	}
	return &SeatHandler{Seats: s.Seats, Calendar: s.Calendar}
}

type saveSeatsReq struct {
	Seats []model.Seat `json:"seats"`
}

// List returns the current layout.
func (h *SeatHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"date": h.Calendar.Date(), "seats": h.Seats.All()})
}

// Save replaces the layout of the current business date.
func (h *SeatHandler) Save(c echo.Context) error {
	var req saveSeatsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	seats, res, err := h.Seats.Save(ctx, req.Seats)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": seats, "storage": storage(res)})
}
