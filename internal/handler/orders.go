package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-pos/internal/service"
)

// OrderHandler exposes the per-seat order ledger.
type OrderHandler struct {
	Ledger *service.OrderLedger
	Menu   *service.MenuCatalog
	Seats  *service.SeatRegistry
}

func NewOrderHandler(s *service.Session) *OrderHandler {
	if s == nil || s.Ledger == nil || s.Menu == nil || s.Seats == nil {
		panic("nil dependency passed to NewOrderHandler")
	}
	return &OrderHandler{Ledger: s.Ledger, Menu: s.Menu, Seats: s.Seats}
}

type addItemReq struct {
	MenuID   string `json:"menu_id"`
	Quantity *int   `json:"quantity"` // default 1
}

type setQuantityReq struct {
	Quantity *int `json:"quantity"`
}

// knownSeat accepts any seat while no layout is defined.
func (h *OrderHandler) knownSeat(id string) bool {
	if len(h.Seats.All()) == 0 {
		return true
	}
	_, ok := h.Seats.GetByID(id)
	return ok
}

// List returns every open order of the day.
func (h *OrderHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"date":         h.Ledger.Date(),
		"orders":       h.Ledger.Snapshot(),
		"active_total": h.Ledger.ActiveTotal(),
	})
}

// Get returns the order of one seat.
func (h *OrderHandler) Get(c echo.Context) error {
	o, ok := h.Ledger.Get(c.Param("seat"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"order": o})
}

// AddItem adds a menu item to the seat's order.
func (h *OrderHandler) AddItem(c echo.Context) error {
	seatID := c.Param("seat")
	if !h.knownSeat(seatID) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
	}
	var req addItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.MenuID = strings.TrimSpace(req.MenuID)
	if req.MenuID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "menu_id required"})
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	item, ok := h.Menu.GetByID(req.MenuID)
	if !ok {
		return serviceError(c, service.ErrMenuNotFound)
	}
	if !item.Available {
		return c.JSON(http.StatusConflict, echo.Map{"error": "menu item unavailable"})
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	o, res, err := h.Ledger.AddItem(ctx, seatID, item, qty)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": o, "storage": storage(res)})
}

// SetQuantity sets a line's quantity; zero removes the line.
func (h *OrderHandler) SetQuantity(c echo.Context) error {
	var req setQuantityReq
	if err := c.Bind(&req); err != nil || req.Quantity == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity required"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	o, res, err := h.Ledger.SetItemQuantity(ctx, c.Param("seat"), c.Param("menu"), *req.Quantity)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": o, "storage": storage(res)})
}

// Pay completes payment of the seat's order.
func (h *OrderHandler) Pay(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	rec, res, err := h.Ledger.CompletePayment(ctx, c.Param("seat"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"payment": rec, "storage": storage(res)})
}

// Discard drops the seat's order without a payment.
func (h *OrderHandler) Discard(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.Ledger.Discard(ctx, c.Param("seat"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"storage": storage(res)})
}
