package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-pos/internal/service"
)

// SalesHandler serves archived daily sales.
type SalesHandler struct {
	Archive *service.SalesArchive
}

func NewSalesHandler(s *service.Session) *SalesHandler {
	if s == nil || s.Archive == nil {
		panic("nil dependency passed to NewSalesHandler")
	}
	return &SalesHandler{Archive: s.Archive}
}

func validDate(s string) bool {
	_, err := time.Parse(service.DateLayout, s)
	return err == nil
}

// Month loads a month (default: the viewed one) and returns its summaries
// and totals.
func (h *SalesHandler) Month(c echo.Context) error {
	year, month := h.Archive.ViewMonth()
	if v := c.QueryParam("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid year"})
		}
		year = n
	}
	if v := c.QueryParam("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid month"})
		}
		month = n
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.Archive.LoadMonth(ctx, year, month)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"year":        year,
		"month":       month,
		"total":       h.Archive.MonthlyTotal(),
		"order_count": h.Archive.MonthlyOrderCount(),
		"dates":       h.Archive.Dates(),
		"days":        h.Archive.Month(),
		"storage":     storage(res),
	})
}

// Get returns the summary of one date.
func (h *SalesHandler) Get(c echo.Context) error {
	date := c.Param("date")
	if !validDate(date) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	ds, res := h.Archive.GetByDate(ctx, date)
	if ds == nil {
		if res.Failed() {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "sales unavailable"})
		}
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no sales for date"})
	}
	return c.JSON(http.StatusOK, echo.Map{"sales": ds})
}

// Delete removes the summary of one date.
func (h *SalesHandler) Delete(c echo.Context) error {
	date := c.Param("date")
	if !validDate(date) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res := h.Archive.DeleteByDate(ctx, date)
	return c.JSON(http.StatusOK, echo.Map{"storage": storage(res)})
}
