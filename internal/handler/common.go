package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-pos/internal/repository"
	"github.com/iliyamo/seat-pos/internal/service"
)

// requestTimeout bounds a whole request; a single remote call is bounded
// separately by the gateway.
const requestTimeout = 10 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// storage reports the persistence outcome of a write to the client so the
// terminal can show a notice when it only reached the local store.
func storage(res repository.Result) string {
	if res.Outcome == "" {
		return string(repository.OutcomeOK)
	}
	return string(res.Outcome)
}

// serviceError maps a service sentinel to an HTTP response.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotOpenForOrders):
		return c.JSON(http.StatusConflict, echo.Map{"error": "business day is not open"})
	case errors.Is(err, service.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid business day transition"})
	case errors.Is(err, service.ErrConfirmationDeclined):
		return c.JSON(http.StatusConflict, echo.Map{"error": "confirmation required"})
	case errors.Is(err, service.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	case errors.Is(err, service.ErrLineNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order line not found"})
	case errors.Is(err, service.ErrMenuNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "menu item not found"})
	case errors.Is(err, service.ErrEmptyOrder):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "order is empty, discard it instead"})
	case errors.Is(err, service.ErrInvalidQuantity), errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
